// Package demand turns raw search logs into per-query search-friction
// signals.
package demand

import (
	"sort"

	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// IsUnmet reports whether a single search failed the shopper: it returned no
// results, or it returned results nobody clicked.
func IsUnmet(e opportunity.SearchLogEntry) bool {
	return e.ResultsFound == 0 || e.Clicks == 0
}

// Summarize aggregates entries per distinct query and derives
//
//	unmet_rate      = unmet / searches
//	conversion_rate = add_to_cart / searches
//	unmet_signal    = unmet_rate * (1 - conversion_rate)
//
// Rows are ordered by unmet_signal descending, then by query ascending.
func Summarize(entries []opportunity.SearchLogEntry) []opportunity.QueryDemandSummary {
	byQuery := make(map[string]*opportunity.QueryDemandSummary)
	for _, e := range entries {
		s, ok := byQuery[e.Query]
		if !ok {
			s = &opportunity.QueryDemandSummary{Query: e.Query}
			byQuery[e.Query] = s
		}
		s.Searches++
		if IsUnmet(e) {
			s.Unmet++
		}
		if e.AddedToCart {
			s.AddToCart++
		}
	}

	out := make([]opportunity.QueryDemandSummary, 0, len(byQuery))
	for _, s := range byQuery {
		// Searches is at least 1 for every grouped query.
		s.UnmetRate = float64(s.Unmet) / float64(s.Searches)
		s.ConversionRate = float64(s.AddToCart) / float64(s.Searches)
		s.UnmetSignal = s.UnmetRate * (1 - s.ConversionRate)
		out = append(out, *s)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].UnmetSignal != out[j].UnmetSignal {
			return out[i].UnmetSignal > out[j].UnmetSignal
		}
		return out[i].Query < out[j].Query
	})
	return out
}
