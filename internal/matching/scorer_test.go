package matching_test

import (
	"testing"

	"snackbox/backend/internal/matching"
	"snackbox/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func strPtr(s string) *string { return &s }

func request(tags []string, duration int, location, topic *string) *models.SnackRequest {
	return &models.SnackRequest{
		SnackType: models.SnackStudy,
		Tags:      tags,
		Duration:  duration,
		Location:  location,
		Topic:     topic,
	}
}

// TestScoreFullAgreement checks the maximum: identical tags, duration and
// location plus the topic bonus land above 1.0.
func TestScoreFullAgreement(t *testing.T) {
	a := request([]string{"algebra", "study"}, 15, strPtr("Library"), nil)
	b := request([]string{"algebra", "study"}, 15, strPtr("Library"), nil)
	assert.InDelta(t, 1.0, matching.Score(a, b), 1e-9)

	// The topic bonus sits on top and pushes past 1.0.
	a.Topic = strPtr("linear algebra")
	b.Topic = strPtr("algebra")
	assert.InDelta(t, 1.1, matching.Score(a, b), 1e-9)
}

// TestScoreNoOverlap checks that two requests with nothing in common score
// zero.
func TestScoreNoOverlap(t *testing.T) {
	a := request([]string{"math"}, 10, strPtr("library"), strPtr("calculus"))
	b := request([]string{"film"}, 30, strPtr("cafeteria"), strPtr("horror movies"))

	assert.Zero(t, matching.Score(a, b))
}

// TestScoreTagJaccard verifies the tag component is the Jaccard index of the
// two sets, weighted at 0.6.
func TestScoreTagJaccard(t *testing.T) {
	a := request([]string{"math", "coffee"}, 10, nil, nil)
	b := request([]string{"coffee", "chess"}, 30, nil, nil)

	// intersection 1, union 3.
	assert.InDelta(t, 0.6/3, matching.Score(a, b), 1e-9)
}

// TestScoreTagsCaseInsensitive verifies tag comparison ignores case.
func TestScoreTagsCaseInsensitive(t *testing.T) {
	a := request([]string{"Math"}, 10, nil, nil)
	b := request([]string{"math"}, 30, nil, nil)

	assert.InDelta(t, 0.6, matching.Score(a, b), 1e-9)
}

// TestScoreEmptyTags verifies a missing tag set on either side contributes
// nothing rather than dividing by zero.
func TestScoreEmptyTags(t *testing.T) {
	a := request(nil, 15, nil, nil)
	b := request([]string{"math"}, 15, nil, nil)

	assert.InDelta(t, 0.2, matching.Score(a, b), 1e-9) // duration only
}

// TestScoreTopicBonusIsDirectional pins down the asymmetry: the bonus fires
// when the candidate's topic is contained in the request's topic, not the
// other way around.
func TestScoreTopicBonusIsDirectional(t *testing.T) {
	broad := request(nil, 10, nil, strPtr("Deep Learning"))
	narrow := request(nil, 30, nil, strPtr("learning"))

	assert.InDelta(t, 0.1, matching.Score(broad, narrow), 1e-9)
	assert.Zero(t, matching.Score(narrow, broad))
}

// TestScoreSymmetry verifies the score is symmetric apart from the topic
// bonus, which is the only directional component.
func TestScoreSymmetry(t *testing.T) {
	a := request([]string{"math", "coffee"}, 15, strPtr("Library"), nil)
	b := request([]string{"coffee", "chess"}, 15, strPtr("library"), nil)

	assert.Equal(t, matching.Score(a, b), matching.Score(b, a))

	// With identical topics the bonus fires both ways too.
	a.Topic = strPtr("openings")
	b.Topic = strPtr("Openings")
	assert.Equal(t, matching.Score(a, b), matching.Score(b, a))
}

// TestScoreMissingOptionalFields verifies nil location and topic simply skip
// their components.
func TestScoreMissingOptionalFields(t *testing.T) {
	a := request([]string{"chess"}, 15, nil, strPtr("openings"))
	b := request([]string{"chess"}, 15, strPtr("library"), nil)

	assert.InDelta(t, 0.8, matching.Score(a, b), 1e-9) // tags + duration
}
