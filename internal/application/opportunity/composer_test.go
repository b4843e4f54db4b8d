package opportunity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OpportunityRadar/internal/testutil"
	types "github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

func TestTaxonomy_Categorize(t *testing.T) {
	tax := NewTaxonomy(nil)
	tests := []struct {
		query string
		want  string
	}{
		{"best smart watch", "Wearables"},
		{"random noise term", UnknownCategory},
		{"Cordless VACUUM", "Home"},
		{"air fryer basket", "Kitchen"},
		{"camping lantern", "Outdoors"},
		{"folding treadmill", "Fitness"},
		{"cat tree", "Pets"},
		{"pet bed", "Pets"},
		{"ice maker", "Kitchen"},
		// "watch" precedes "cat" in rule order.
		{"cat watch", "Wearables"},
		// substring match: "scattered" contains "cat".
		{"scattered", "Pets"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, tax.Categorize(tt.query))
		})
	}
}

func TestTaxonomy_CustomRules(t *testing.T) {
	tax := NewTaxonomy([]KeywordRule{{Keyword: "Drone", Category: "Gadgets"}})
	assert.Equal(t, "Gadgets", tax.Categorize("mini drone"))
	assert.Equal(t, UnknownCategory, tax.Categorize("smart watch"))
}

func TestMinMax(t *testing.T) {
	got, flat := MinMax([]float64{2, 4, 6})
	assert.False(t, flat)
	assert.Equal(t, []float64{0, 0.5, 1}, got)

	got, flat = MinMax([]float64{3, 3, 3})
	assert.True(t, flat)
	assert.Equal(t, []float64{0, 0, 0}, got)

	got, flat = MinMax([]float64{0.7})
	assert.True(t, flat)
	assert.Equal(t, []float64{0}, got)

	got, flat = MinMax(nil)
	assert.True(t, flat)
	assert.Empty(t, got)
}

func TestRecommend(t *testing.T) {
	high, low := 0.5, 0.1
	assert.Equal(t, "Add: wifi; Address: noisy; Test price promotions or bundles", Recommend("wifi", "noisy", &high))
	assert.Equal(t, "Add: wifi", Recommend("wifi", "", &low))
	assert.Equal(t, "", Recommend("", "", nil))

	long := Recommend(strings.Repeat("x", 400), "", nil)
	assert.Equal(t, MaxActionsLen, len([]rune(long)))
}

func TestScore_Monotonic(t *testing.T) {
	prev := -1.0
	for i := 0; i <= 10; i++ {
		s := Score(float64(i)/10, 0.3, true)
		assert.GreaterOrEqual(t, s, prev)
		assert.GreaterOrEqual(t, s, 0.0)
		prev = s
	}
	assert.InDelta(t, 1.0, Score(1, 1, true), 1e-12)
	assert.Equal(t, 0.0, Score(0, 0, false))
}

func TestCompose_SingleCategory(t *testing.T) {
	c := NewComposer(nil, testutil.NewMockLogger())
	price := 0.9
	got := c.Compose(Signals{
		Demand:  []types.QueryDemandSummary{{Query: "smart watch", Searches: 3, UnmetSignal: 0.66}},
		Prices:  []types.ProductPriceSensitivity{{ProductID: "W1", PriceSensitivity: price}},
		Gaps:    []types.CategoryFeatureGap{{Category: "Wearables", MissingFeatures: "ecg"}},
		Catalog: []types.CatalogItem{{ProductID: "W1", Category: "Wearables"}},
	})
	require.Len(t, got, 1)
	assert.InDelta(t, WeightMissing, got[0].OpportunityScore, 1e-12)
	require.NotNil(t, got[0].PriceSensitivity)
	assert.InDelta(t, price, *got[0].PriceSensitivity, 1e-12)
	assert.Equal(t, "Add: ecg; Test price promotions or bundles", got[0].RecommendedActions)
}

func TestCompose_SingleCategoryWithoutGap(t *testing.T) {
	logger := testutil.NewMockLogger()
	got := NewComposer(nil, logger).Compose(Signals{
		Demand: []types.QueryDemandSummary{{Query: "noise", Searches: 1, UnmetSignal: 1}},
	})
	require.Len(t, got, 1)
	assert.Equal(t, UnknownCategory, got[0].Category)
	assert.Nil(t, got[0].PriceSensitivity)
	assert.Equal(t, 0.0, got[0].OpportunityScore)
	assert.True(t, logger.HasMessage("debug", "unmet_signal has zero variance across categories"))
}

func TestCompose_EmptyDemand(t *testing.T) {
	got := NewComposer(nil, nil).Compose(Signals{Catalog: testutil.SampleTables().Catalog})
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestCompose_AggregatesJoinsAndRanks(t *testing.T) {
	s := Signals{
		Demand: []types.QueryDemandSummary{
			{Query: "smart watch", Searches: 2, UnmetSignal: 1},
			{Query: "watch band", Searches: 3, UnmetSignal: 0.5},
			{Query: "air fryer", Searches: 4, UnmetSignal: 0},
			{Query: "pet bed", Searches: 1, UnmetSignal: 0.5},
		},
		Prices: []types.ProductPriceSensitivity{
			{ProductID: "K1", PriceSensitivity: 0.4},
			{ProductID: "K2", PriceSensitivity: 0.2},
			{ProductID: "W1", PriceSensitivity: -0.2},
			{ProductID: "ZZ", PriceSensitivity: 1},
		},
		Pains: []types.ProductPainPoints{
			{ProductID: "K1", PainPoints: "basket"},
			{ProductID: "K2", PainPoints: ""},
			{ProductID: "K3", PainPoints: "smell, smoke"},
		},
		Gaps: []types.CategoryFeatureGap{
			{Category: "Kitchen", MissingFeatures: "wifi"},
			{Category: "Wearables", MissingFeatures: ""},
		},
		Catalog: []types.CatalogItem{
			{ProductID: "K1", Category: "Kitchen"},
			{ProductID: "K2", Category: "Kitchen"},
			{ProductID: "K3", Category: "Kitchen"},
			{ProductID: "W1", Category: "Wearables"},
		},
	}
	got := NewComposer(nil, nil).Compose(s)
	require.Len(t, got, 3)

	wear, ok := got.Find("Wearables")
	require.True(t, ok)
	assert.Equal(t, 5, wear.SearchVolume)
	assert.InDelta(t, 1.5, wear.UnmetSignal, 1e-12)
	assert.Equal(t, "", wear.MissingFeatures)

	kitchen, ok := got.Find("Kitchen")
	require.True(t, ok)
	require.NotNil(t, kitchen.PriceSensitivity)
	assert.InDelta(t, 0.3, *kitchen.PriceSensitivity, 1e-12)
	assert.Equal(t, "basket, smell, smoke", kitchen.PainPoints)
	assert.Equal(t, "Add: wifi; Address: basket, smell, smoke; Test price promotions or bundles", kitchen.RecommendedActions)

	pets, ok := got.Find("Pets")
	require.True(t, ok)
	assert.Nil(t, pets.PriceSensitivity)

	// unmet: W 1.5, K 0, P 0.5 -> 1, 0, 1/3
	// price: W -0.2, K 0.3, P 0 -> 0, 1, 0.4
	assert.InDelta(t, 0.55, wear.OpportunityScore, 1e-12)
	assert.InDelta(t, 0.45, kitchen.OpportunityScore, 1e-12)
	assert.InDelta(t, 0.55/3+0.1, pets.OpportunityScore, 1e-12)

	assert.Equal(t, []string{"Wearables", "Kitchen", "Pets"}, []string{got[0].Category, got[1].Category, got[2].Category})
	for _, row := range got {
		assert.GreaterOrEqual(t, row.OpportunityScore, 0.0)
		assert.LessOrEqual(t, row.OpportunityScore, 1.0+1e-12)
	}
}

func TestCompose_DuplicateCatalogRowsWeighAverage(t *testing.T) {
	got := NewComposer(nil, nil).Compose(Signals{
		Demand: []types.QueryDemandSummary{{Query: "vacuum", Searches: 1}},
		Prices: []types.ProductPriceSensitivity{
			{ProductID: "H1", PriceSensitivity: 1},
			{ProductID: "H2", PriceSensitivity: 0},
		},
		Catalog: []types.CatalogItem{
			{ProductID: "H1", Category: "Home"},
			{ProductID: "H1", Category: "Home"},
			{ProductID: "H2", Category: "Home"},
		},
	})
	require.Len(t, got, 1)
	require.NotNil(t, got[0].PriceSensitivity)
	assert.InDelta(t, 2.0/3.0, *got[0].PriceSensitivity, 1e-12)
}

func TestCompose_TiesOrderedByCategory(t *testing.T) {
	got := NewComposer(nil, nil).Compose(Signals{
		Demand: []types.QueryDemandSummary{
			{Query: "treadmill", Searches: 1, UnmetSignal: 0.2},
			{Query: "lantern", Searches: 1, UnmetSignal: 0.2},
		},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Fitness", got[0].Category)
	assert.Equal(t, "Outdoors", got[1].Category)
}

func TestCompose_PainPointsTruncated(t *testing.T) {
	var pains []types.ProductPainPoints
	var catalog []types.CatalogItem
	for i := 0; i < 30; i++ {
		id := string(rune('A' + i))
		pains = append(pains, types.ProductPainPoints{ProductID: id, PainPoints: "broken hinge, loose screw"})
		catalog = append(catalog, types.CatalogItem{ProductID: id, Category: "Fitness"})
	}
	got := NewComposer(nil, nil).Compose(Signals{
		Demand:  []types.QueryDemandSummary{{Query: "treadmill", Searches: 1}},
		Pains:   pains,
		Catalog: catalog,
	})
	require.Len(t, got, 1)
	assert.Equal(t, MaxPainPointsLen, len([]rune(got[0].PainPoints)))
}
