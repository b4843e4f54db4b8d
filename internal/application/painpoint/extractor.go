// Package painpoint mines low-rated review text for the terms that best
// characterize each product's complaints.
package painpoint

import (
	"sort"
	"strings"

	"github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

// Defaults reproduce the reference scoring behaviour.
const (
	DefaultTopK               = 8
	DefaultVocabularySize     = 100
	DefaultLowRatingThreshold = 3
)

// Options tunes the extractor.  Zero fields fall back to the defaults.
type Options struct {
	TopK               int
	VocabularySize     int
	LowRatingThreshold int
}

func (o Options) withDefaults() Options {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.VocabularySize <= 0 {
		o.VocabularySize = DefaultVocabularySize
	}
	if o.LowRatingThreshold <= 0 {
		o.LowRatingThreshold = DefaultLowRatingThreshold
	}
	return o
}

// Extract keeps reviews rated at or below the low-rating threshold, joins
// their text into one document per product and returns, per product ordered
// by product_id, the top-K TF-IDF terms joined by ", ".
//
// The result is a non-nil empty slice when no review qualifies or when the
// qualifying text yields no vocabulary.
func Extract(reviews []opportunity.Review, opts Options) []opportunity.ProductPainPoints {
	opts = opts.withDefaults()

	texts := make(map[string][]string)
	for _, r := range reviews {
		if r.Rating <= opts.LowRatingThreshold {
			texts[r.ProductID] = append(texts[r.ProductID], r.ReviewText)
		}
	}
	out := make([]opportunity.ProductPainPoints, 0, len(texts))
	if len(texts) == 0 {
		return out
	}

	ids := make([]string, 0, len(texts))
	for id := range texts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]string, len(ids))
	for i, id := range ids {
		docs[i] = strings.Join(texts[id], " ")
	}

	m := FitTransform(docs, opts.VocabularySize)
	if m == nil {
		return out
	}
	for i, id := range ids {
		out = append(out, opportunity.ProductPainPoints{
			ProductID:  id,
			PainPoints: strings.Join(m.TopTerms(i, opts.TopK), ", "),
		})
	}
	return out
}
