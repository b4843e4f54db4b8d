package opportunity

import (
	"strings"

	types "github.com/turtacn/OpportunityRadar/pkg/types/opportunity"
)

const (
	// MaxActionsLen caps recommended_actions, in runes.
	MaxActionsLen = 300

	// PromotionThreshold is the average price sensitivity above which a
	// promotion test is suggested.
	PromotionThreshold = 0.1

	promotionAction = "Test price promotions or bundles"
)

// Recommend builds the "; "-joined action list for one category.
func Recommend(missingFeatures, painPoints string, priceSensitivity *float64) string {
	var ideas []string
	if missingFeatures != "" {
		ideas = append(ideas, "Add: "+missingFeatures)
	}
	if painPoints != "" {
		ideas = append(ideas, "Address: "+painPoints)
	}
	if priceSensitivity != nil && *priceSensitivity > PromotionThreshold {
		ideas = append(ideas, promotionAction)
	}
	return types.Truncate(strings.Join(ideas, "; "), MaxActionsLen)
}
