package testutil

import (
	"os"
	"path/filepath"

	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// SampleTables returns a small, internally consistent set of input tables.
//
// Run through the full pipeline it ranks Wearables, Unknown, Kitchen, Home
// with scores 1.0, 0.675, 0.325 and 0.275.
func SampleTables() opportunity.InputTables {
	return opportunity.InputTables{
		Transactions: []opportunity.Transaction{
			{ProductID: "W1", DiscountPct: 0, Units: 2},
			{ProductID: "W1", DiscountPct: 10, Units: 4},
			{ProductID: "W1", DiscountPct: 20, Units: 6},
			{ProductID: "K1", DiscountPct: 0, Units: 5},
			{ProductID: "K1", DiscountPct: 10, Units: 5},
			{ProductID: "H1", DiscountPct: 5, Units: 3},
			{ProductID: "H1", DiscountPct: 15, Units: 1},
		},
		Searches: []opportunity.SearchLogEntry{
			{Query: "smart watch", ResultsFound: 0, Clicks: 0},
			{Query: "smart watch", ResultsFound: 5, Clicks: 0},
			{Query: "air fryer xl", ResultsFound: 5, Clicks: 2, AddedToCart: true},
			{Query: "robot vacuum", ResultsFound: 3, Clicks: 1},
			{Query: "robot vacuum", ResultsFound: 0, Clicks: 0},
			{Query: "garden hose", ResultsFound: 0, Clicks: 0},
		},
		Reviews: []opportunity.Review{
			{ProductID: "W1", Rating: 2, ReviewText: "strap broke quickly"},
			{ProductID: "W1", Rating: 5, ReviewText: "love it"},
			{ProductID: "K1", Rating: 1, ReviewText: "basket sticks"},
			{ProductID: "H1", Rating: 4, ReviewText: "fine"},
		},
		Catalog: []opportunity.CatalogItem{
			{ProductID: "W1", Category: "Wearables", Name: "Smart Watch", Features: "gps, heart rate"},
			{ProductID: "K1", Category: "Kitchen", Name: "Air Fryer", Features: "basket, timer"},
			{ProductID: "H1", Category: "Home", Name: "Robot Vacuum", Features: "bagless/app control"},
		},
		Competitors: []opportunity.CompetitorRecord{
			{Category: "Wearables", KeyFeatures: "gps, heart rate, ecg"},
			{Category: "Kitchen", KeyFeatures: "basket, timer, wifi"},
			{Category: "Home", KeyFeatures: "bagless, app control"},
			{Category: "Fitness", KeyFeatures: "incline"},
		},
	}
}

// SampleCSV renders SampleTables as the five input files, keyed by file name.
func SampleCSV() map[string]string {
	return map[string]string{
		"transactions.csv": "date,product_id,discount_pct,units\n" +
			"2024-03-01,W1,0,2\n2024-03-02,W1,10,4\n2024-03-03,W1,20,6\n" +
			"2024-03-01,K1,0,5\n2024-03-02,K1,10,5\n" +
			"2024-03-01,H1,5,3\n2024-03-02,H1,15,1\n",
		"search_logs.csv": "ts,query,results_found,clicks,added_to_cart\n" +
			"1,smart watch,0,0,0\n2,smart watch,5,0,0\n3,air fryer xl,5,2,1\n" +
			"4,robot vacuum,3,1,0\n5,robot vacuum,0,0,0\n6,garden hose,0,0,0\n",
		"reviews.csv": "product_id,rating,review_text\n" +
			"W1,2,strap broke quickly\nW1,5,love it\nK1,1,basket sticks\nH1,4,fine\n",
		"catalog.csv": "product_id,category,name,features\n" +
			"W1,Wearables,Smart Watch,\"gps, heart rate\"\n" +
			"K1,Kitchen,Air Fryer,\"basket, timer\"\n" +
			"H1,Home,Robot Vacuum,bagless/app control\n",
		"competitors.csv": "category,key_features\n" +
			"Wearables,\"gps, heart rate, ecg\"\n" +
			"Kitchen,\"basket, timer, wifi\"\n" +
			"Home,\"bagless, app control\"\n" +
			"Fitness,incline\n",
	}
}

// WriteSampleInputs writes SampleCSV into dir.
func WriteSampleInputs(dir string) error {
	for name, body := range SampleCSV() {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			return err
		}
	}
	return nil
}
