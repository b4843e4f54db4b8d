// Package pricing estimates how strongly each product's unit sales respond to
// discounts.
package pricing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// Estimate returns one ProductPriceSensitivity per product with at least one
// transaction, ordered by product_id.  The sensitivity is the Pearson
// correlation between discount_pct and units; it is exactly 0.0 whenever
// either column takes a single distinct value for the product.
func Estimate(txs []opportunity.Transaction) []opportunity.ProductPriceSensitivity {
	type series struct {
		discounts []float64
		units     []float64
	}
	byProduct := make(map[string]*series)
	for _, tx := range txs {
		s, ok := byProduct[tx.ProductID]
		if !ok {
			s = &series{}
			byProduct[tx.ProductID] = s
		}
		s.discounts = append(s.discounts, tx.DiscountPct)
		s.units = append(s.units, float64(tx.Units))
	}

	ids := make([]string, 0, len(byProduct))
	for id := range byProduct {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]opportunity.ProductPriceSensitivity, 0, len(ids))
	for _, id := range ids {
		s := byProduct[id]
		corr := 0.0
		if distinct(s.discounts) > 1 && distinct(s.units) > 1 {
			corr = Pearson(s.discounts, s.units)
		}
		out = append(out, opportunity.ProductPriceSensitivity{ProductID: id, PriceSensitivity: corr})
	}
	return out
}

// Pearson returns the sample correlation coefficient of xs and ys, clamped to
// [-1, 1].  It returns 0 when the slices differ in length, are empty, or
// either has zero variance.
func Pearson(xs, ys []float64) float64 {
	if len(xs) == 0 || len(xs) != len(ys) {
		return 0
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) {
		return 0
	}
	return math.Max(-1, math.Min(1, r))
}

func distinct(vs []float64) int {
	seen := make(map[float64]struct{}, len(vs))
	for _, v := range vs {
		seen[v] = struct{}{}
	}
	return len(seen)
}
