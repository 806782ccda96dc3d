package esi

// Resource counts as produced by PredictResources. ResourcesMany means "two
// or more".
const (
	ResourcesNone = 0
	ResourcesOne  = 1
	ResourcesMany = 2
)

const (
	painBoostThreshold = 7
	painOneThreshold   = 4
)

// PredictResources estimates how many ED resources the complaint will need.
// complaintLower must already be lower-cased. Keyword evidence outranks the
// pain score: a multi-resource keyword returns ResourcesMany regardless of
// pain, and pain alone is consulted only when no keyword matches.
func PredictResources(complaintLower string, painScore int) int {
	if _, ok := MultiResourceVocabulary.Match(complaintLower); ok {
		return ResourcesMany
	}
	if _, ok := SingleResourceVocabulary.Match(complaintLower); ok {
		if painScore >= painBoostThreshold {
			return ResourcesMany
		}
		return ResourcesOne
	}
	switch {
	case painScore >= painBoostThreshold:
		return ResourcesMany
	case painScore >= painOneThreshold:
		return ResourcesOne
	default:
		return ResourcesNone
	}
}
