// Package matching scores waiting requests against each other and turns the
// best candidate into a session.
package matching

import (
	"strings"

	"snackbox/backend/internal/config"
	"snackbox/backend/internal/models"
)

// Score computes the compatibility of two requests as a weighted sum in
// [0, 1], plus the topic bonus which may push it slightly above 1. Pure and
// deterministic; never fails.
//
// The topic check is a substring containment of the candidate's topic inside
// the request's topic, lowercased. It is directional and uncapped — both are
// observable behaviors of the deployed system and are kept as-is.
func Score(request, candidate *models.SnackRequest) float64 {
	score := tagSimilarity(request.Tags, candidate.Tags) * config.TagWeight

	if request.Duration == candidate.Duration {
		score += config.DurationWeight
	}

	if request.Location != nil && candidate.Location != nil &&
		strings.EqualFold(*request.Location, *candidate.Location) {
		score += config.LocationWeight
	}

	if request.Topic != nil && candidate.Topic != nil &&
		strings.Contains(strings.ToLower(*request.Topic), strings.ToLower(*candidate.Topic)) {
		score += config.TopicBonus
	}

	return score
}

// tagSimilarity is the Jaccard index of the two tag sets, case-insensitive.
// An empty or missing set on either side contributes zero.
func tagSimilarity(tags1, tags2 []string) float64 {
	if len(tags1) == 0 || len(tags2) == 0 {
		return 0
	}

	set1 := make(map[string]bool, len(tags1))
	for _, t := range tags1 {
		set1[strings.ToLower(t)] = true
	}
	set2 := make(map[string]bool, len(tags2))
	for _, t := range tags2 {
		set2[strings.ToLower(t)] = true
	}

	intersection := 0
	for t := range set1 {
		if set2[t] {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	return float64(intersection) / float64(union)
}
