// Package opportunity defines the record types that flow through the
// opportunity pipeline: the five raw input tables, the per-entity summaries
// produced by the analyzers, and the final per-category opportunity row.
package opportunity

import (
	"fmt"
	"strconv"
)

// ─────────────────────────────────────────────────────────────────────────────
// Input records
// ─────────────────────────────────────────────────────────────────────────────

// Transaction is one sale of a product at a given discount.
type Transaction struct {
	ProductID   string  `json:"product_id"`
	DiscountPct float64 `json:"discount_pct"`
	Units       int     `json:"units"`
}

// SearchLogEntry is one on-site search and its outcome.
type SearchLogEntry struct {
	Query        string `json:"query"`
	ResultsFound int    `json:"results_found"`
	Clicks       int    `json:"clicks"`
	AddedToCart  bool   `json:"added_to_cart"`
}

// Review is a customer rating with free text.
type Review struct {
	ProductID  string `json:"product_id"`
	Rating     int    `json:"rating"`
	ReviewText string `json:"review_text"`
}

// CatalogItem is one product of our own assortment.  Features holds
// comma/slash-separated tokens.
type CatalogItem struct {
	ProductID string `json:"product_id"`
	Category  string `json:"category"`
	Name      string `json:"name"`
	Features  string `json:"features"`
}

// CompetitorRecord is one competitor listing within a category.
type CompetitorRecord struct {
	Category    string `json:"category"`
	KeyFeatures string `json:"key_features"`
}

// InputTables bundles the five raw inputs of a single pipeline run.
type InputTables struct {
	Transactions []Transaction
	Searches     []SearchLogEntry
	Reviews      []Review
	Catalog      []CatalogItem
	Competitors  []CompetitorRecord
}

// ─────────────────────────────────────────────────────────────────────────────
// Derived records
// ─────────────────────────────────────────────────────────────────────────────

// QueryDemandSummary aggregates all searches for one distinct query string.
type QueryDemandSummary struct {
	Query          string  `json:"query"`
	Searches       int     `json:"searches"`
	Unmet          int     `json:"unmet"`
	AddToCart      int     `json:"add_to_cart"`
	UnmetRate      float64 `json:"unmet_rate"`
	ConversionRate float64 `json:"conversion_rate"`
	UnmetSignal    float64 `json:"unmet_signal"`
}

// ProductPriceSensitivity is the discount/units correlation of one product.
type ProductPriceSensitivity struct {
	ProductID        string  `json:"product_id"`
	PriceSensitivity float64 `json:"price_sensitivity"`
}

// ProductPainPoints holds the salient low-rating terms of one product.
type ProductPainPoints struct {
	ProductID  string `json:"product_id"`
	PainPoints string `json:"pain_points"`
}

// CategoryFeatureGap lists competitor features missing from our catalog.
type CategoryFeatureGap struct {
	Category        string `json:"category"`
	MissingFeatures string `json:"missing_features"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Output record
// ─────────────────────────────────────────────────────────────────────────────

// Output column names, in artifact order.
const (
	ColCategory           = "category"
	ColSearchVolume       = "search_volume"
	ColUnmetSignal        = "unmet_signal"
	ColPriceSensitivity   = "price_sensitivity"
	ColMissingFeatures    = "missing_features"
	ColPainPoints         = "pain_points"
	ColOpportunityScore   = "opportunity_score"
	ColRecommendedActions = "recommended_actions"
)

// OutputColumns is the fixed column order of the opportunity artifact.
var OutputColumns = []string{
	ColCategory,
	ColSearchVolume,
	ColUnmetSignal,
	ColPriceSensitivity,
	ColMissingFeatures,
	ColPainPoints,
	ColOpportunityScore,
	ColRecommendedActions,
}

// CategoryOpportunity is one ranked row of the final artifact.
//
// PriceSensitivity is nil when no product of the category has transactions;
// it is written as an empty cell.
type CategoryOpportunity struct {
	Category           string   `json:"category"`
	SearchVolume       int      `json:"search_volume"`
	UnmetSignal        float64  `json:"unmet_signal"`
	PriceSensitivity   *float64 `json:"price_sensitivity"`
	MissingFeatures    string   `json:"missing_features"`
	PainPoints         string   `json:"pain_points"`
	OpportunityScore   float64  `json:"opportunity_score"`
	RecommendedActions string   `json:"recommended_actions"`
}

// Record renders the row as artifact cells in OutputColumns order.
func (o CategoryOpportunity) Record() []string {
	price := ""
	if o.PriceSensitivity != nil {
		price = FormatFloat(*o.PriceSensitivity)
	}
	return []string{
		o.Category,
		strconv.Itoa(o.SearchVolume),
		FormatFloat(o.UnmetSignal),
		price,
		o.MissingFeatures,
		o.PainPoints,
		FormatFloat(o.OpportunityScore),
		o.RecommendedActions,
	}
}

// Opportunities is the ranked opportunity table.
type Opportunities []CategoryOpportunity

// TableHeaders implements the CLI table provider.
func (o Opportunities) TableHeaders() []string {
	return []string{"CATEGORY", "SEARCHES", "UNMET", "PRICE_SENS", "SCORE", "ACTIONS"}
}

// TableRows implements the CLI table provider.
func (o Opportunities) TableRows() [][]string {
	rows := make([][]string, 0, len(o))
	for _, r := range o {
		price := "-"
		if r.PriceSensitivity != nil {
			price = fmt.Sprintf("%.3f", *r.PriceSensitivity)
		}
		rows = append(rows, []string{
			r.Category,
			strconv.Itoa(r.SearchVolume),
			fmt.Sprintf("%.3f", r.UnmetSignal),
			price,
			fmt.Sprintf("%.3f", r.OpportunityScore),
			Truncate(r.RecommendedActions, 60),
		})
	}
	return rows
}

// Find returns the row for category, if present.
func (o Opportunities) Find(category string) (CategoryOpportunity, bool) {
	for _, r := range o {
		if r.Category == category {
			return r, true
		}
	}
	return CategoryOpportunity{}, false
}

// Top returns at most n leading rows; n <= 0 returns all rows.
func (o Opportunities) Top(n int) Opportunities {
	if n <= 0 || n >= len(o) {
		return o
	}
	return o[:n]
}
