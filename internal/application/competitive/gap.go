// Package competitive compares the catalog's advertised features against
// competitor listings per category.
package competitive

import (
	"sort"
	"strings"

	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// MaxMissingFeaturesLen caps the missing_features string, in runes.
const MaxMissingFeaturesLen = 200

// Tokens lower-cases text and splits it on commas and slashes, returning the
// trimmed non-empty tokens as a set.
func Tokens(text string) map[string]struct{} {
	set := make(map[string]struct{})
	parts := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || r == '/'
	})
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// Analyze returns one CategoryFeatureGap per category present in both the
// catalog and the competitor data, ordered by category.  MissingFeatures is
// the sorted set of competitor tokens absent from the catalog, joined by ", "
// and cut to MaxMissingFeaturesLen runes.
func Analyze(catalog []opportunity.CatalogItem, competitors []opportunity.CompetitorRecord) []opportunity.CategoryFeatureGap {
	ours := make(map[string]map[string]struct{})
	for _, item := range catalog {
		set, ok := ours[item.Category]
		if !ok {
			set = make(map[string]struct{})
			ours[item.Category] = set
		}
		for t := range Tokens(item.Features) {
			set[t] = struct{}{}
		}
	}

	theirs := make(map[string]map[string]struct{})
	for _, rec := range competitors {
		if _, shared := ours[rec.Category]; !shared {
			continue
		}
		set, ok := theirs[rec.Category]
		if !ok {
			set = make(map[string]struct{})
			theirs[rec.Category] = set
		}
		for t := range Tokens(rec.KeyFeatures) {
			set[t] = struct{}{}
		}
	}

	categories := make([]string, 0, len(theirs))
	for c := range theirs {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	out := make([]opportunity.CategoryFeatureGap, 0, len(categories))
	for _, c := range categories {
		var missing []string
		for t := range theirs[c] {
			if _, have := ours[c][t]; !have {
				missing = append(missing, t)
			}
		}
		sort.Strings(missing)
		out = append(out, opportunity.CategoryFeatureGap{
			Category:        c,
			MissingFeatures: opportunity.Truncate(strings.Join(missing, ", "), MaxMissingFeaturesLen),
		})
	}
	return out
}
