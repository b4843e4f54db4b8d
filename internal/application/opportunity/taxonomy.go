package opportunity

import "strings"

// UnknownCategory is assigned to queries that match no keyword.
const UnknownCategory = "Unknown"

// KeywordRule maps a query substring to a category.
type KeywordRule struct {
	Keyword  string
	Category string
}

// DefaultKeywordRules is evaluated in order; the first matching keyword wins.
var DefaultKeywordRules = []KeywordRule{
	{Keyword: "watch", Category: "Wearables"},
	{Keyword: "vacuum", Category: "Home"},
	{Keyword: "air fryer", Category: "Kitchen"},
	{Keyword: "lantern", Category: "Outdoors"},
	{Keyword: "treadmill", Category: "Fitness"},
	{Keyword: "cat", Category: "Pets"},
	{Keyword: "pet", Category: "Pets"},
	{Keyword: "ice maker", Category: "Kitchen"},
}

// Taxonomy classifies search queries into catalog categories.
type Taxonomy struct {
	rules []KeywordRule
}

// NewTaxonomy returns a Taxonomy over rules.  A nil slice selects
// DefaultKeywordRules.
func NewTaxonomy(rules []KeywordRule) *Taxonomy {
	if rules == nil {
		rules = DefaultKeywordRules
	}
	normalized := make([]KeywordRule, len(rules))
	for i, r := range rules {
		normalized[i] = KeywordRule{Keyword: strings.ToLower(r.Keyword), Category: r.Category}
	}
	return &Taxonomy{rules: normalized}
}

// Categorize returns the category of the first rule whose keyword is a
// case-insensitive substring of query, or UnknownCategory.
func (t *Taxonomy) Categorize(query string) string {
	q := strings.ToLower(query)
	for _, r := range t.rules {
		if strings.Contains(q, r.Keyword) {
			return r.Category
		}
	}
	return UnknownCategory
}
