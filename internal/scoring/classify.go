package scoring

import (
	"strings"

	"NewsAggregator/internal/domain"
)

// DeterminePriority tags free text with a coarse priority using the scoring
// keyword tables.
func DeterminePriority(text string) domain.Priority {
	lower := strings.ToLower(text)

	smb := ContainsAny(lower, keywordsFor(CategorySMBFocus))
	if smb && ContainsAny(lower, keywordsFor(CategoryCostAccessibility)) {
		return domain.PriorityBusiness
	}
	if ContainsAny(lower, keywordsFor(CategoryImplementation)) {
		return domain.PriorityImplementation
	}
	if smb {
		return domain.PriorityIndustry
	}
	return domain.PriorityGeneral
}

// Categorize returns the content tags whose keyword table matches text, in
// a fixed order.
func Categorize(text string) []string {
	lower := strings.ToLower(text)

	tags := make([]string, 0, len(contentCategories))
	for _, cc := range contentCategories {
		if ContainsAny(lower, keywordsFor(cc.from)) {
			tags = append(tags, cc.tag)
		}
	}
	return tags
}
