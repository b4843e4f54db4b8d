// Package opportunity joins the analyzer outputs at category granularity and
// ranks categories by a weighted opportunity score.
package opportunity

import (
	"sort"
	"strings"

	"github.com/turtacn/OpportunityRadar/internal/infrastructure/monitoring/logging"
	types "github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// Score weights.
const (
	WeightUnmet   = 0.55
	WeightPrice   = 0.25
	WeightMissing = 0.20
)

// MaxPainPointsLen caps the per-category pain_points string, in runes.
const MaxPainPointsLen = 200

// Signals are the four analyzer outputs plus the catalog used for joins.
type Signals struct {
	Demand  []types.QueryDemandSummary
	Prices  []types.ProductPriceSensitivity
	Pains   []types.ProductPainPoints
	Gaps    []types.CategoryFeatureGap
	Catalog []types.CatalogItem
}

// Composer builds the ranked category opportunity table.
type Composer struct {
	taxonomy *Taxonomy
	logger   logging.Logger
}

// NewComposer returns a Composer classifying queries with taxonomy.  A nil
// taxonomy selects the default keyword rules.
func NewComposer(taxonomy *Taxonomy, logger logging.Logger) *Composer {
	if taxonomy == nil {
		taxonomy = NewTaxonomy(nil)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Composer{taxonomy: taxonomy, logger: logger}
}

type categoryRow struct {
	unmet    float64
	searches int
	priceSum float64
	priceN   int
	pains    []string
}

// Compose returns one row per category reachable from the search log,
// including UnknownCategory, ordered by opportunity_score descending and then
// by category.
func (c *Composer) Compose(s Signals) types.Opportunities {
	rows := make(map[string]*categoryRow)
	for _, d := range s.Demand {
		cat := c.taxonomy.Categorize(d.Query)
		r, ok := rows[cat]
		if !ok {
			r = &categoryRow{}
			rows[cat] = r
		}
		r.unmet += d.UnmetSignal
		r.searches += d.Searches
	}
	out := make(types.Opportunities, 0, len(rows))
	if len(rows) == 0 {
		return out
	}

	// Catalog rows are joined like a relational merge: a product listed
	// twice contributes twice.
	categoriesOf := make(map[string][]string)
	for _, item := range s.Catalog {
		categoriesOf[item.ProductID] = append(categoriesOf[item.ProductID], item.Category)
	}
	for _, p := range s.Prices {
		for _, cat := range categoriesOf[p.ProductID] {
			if r, ok := rows[cat]; ok {
				r.priceSum += p.PriceSensitivity
				r.priceN++
			}
		}
	}
	for _, p := range s.Pains {
		if p.PainPoints == "" {
			continue
		}
		for _, cat := range categoriesOf[p.ProductID] {
			if r, ok := rows[cat]; ok {
				r.pains = append(r.pains, p.PainPoints)
			}
		}
	}
	gaps := make(map[string]string, len(s.Gaps))
	for _, g := range s.Gaps {
		gaps[g.Category] = g.MissingFeatures
	}

	categories := make([]string, 0, len(rows))
	for cat := range rows {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	unmetVals := make([]float64, len(categories))
	priceVals := make([]float64, len(categories))
	for i, cat := range categories {
		r := rows[cat]
		row := types.CategoryOpportunity{
			Category:        cat,
			SearchVolume:    r.searches,
			UnmetSignal:     r.unmet,
			MissingFeatures: gaps[cat],
			PainPoints:      types.Truncate(strings.Join(r.pains, ", "), MaxPainPointsLen),
		}
		if r.priceN > 0 {
			avg := r.priceSum / float64(r.priceN)
			row.PriceSensitivity = &avg
			priceVals[i] = avg
		}
		unmetVals[i] = r.unmet
		out = append(out, row)
	}

	unmetNorm, flat := MinMax(unmetVals)
	if flat {
		c.logger.Debug("unmet_signal has zero variance across categories", logging.Int(logging.FieldRows, len(categories)))
	}
	priceNorm, flat := MinMax(priceVals)
	if flat {
		c.logger.Debug("price_sensitivity has zero variance across categories", logging.Int(logging.FieldRows, len(categories)))
	}

	for i := range out {
		out[i].OpportunityScore = Score(unmetNorm[i], priceNorm[i], out[i].MissingFeatures != "")
		out[i].RecommendedActions = Recommend(out[i].MissingFeatures, out[i].PainPoints, out[i].PriceSensitivity)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OpportunityScore != out[j].OpportunityScore {
			return out[i].OpportunityScore > out[j].OpportunityScore
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Score combines the normalized signals.  It is non-decreasing in each
// argument.
func Score(unmetNorm, priceNorm float64, hasMissing bool) float64 {
	score := WeightUnmet*unmetNorm + WeightPrice*priceNorm
	if hasMissing {
		score += WeightMissing
	}
	return score
}
