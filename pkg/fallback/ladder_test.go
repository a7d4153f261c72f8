package fallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyHybrid(t *testing.T) {
	tier := Classify(Input{ChunksPresent: true, DrawingPresent: true, AnswerText: "the limit is 8 meters"})
	assert.Equal(t, TierHybrid, tier)
	assert.Equal(t, Hybrid, AnswerTypeFor(tier))
}

func TestClassifyDrawingOnlyWhenChunksAbsent(t *testing.T) {
	tier := Classify(Input{ChunksPresent: false, DrawingPresent: true, AnswerText: "plot area is 400 m2"})
	assert.Equal(t, TierDrawingOnly, tier)
	assert.Equal(t, Drawing, AnswerTypeFor(tier))
}

func TestClassifyDrawingOnlyWhenIntentForcesIt(t *testing.T) {
	tier := Classify(Input{ChunksPresent: true, DrawingPresent: true, DrawingOnlyIntent: true, AnswerText: "ok"})
	assert.Equal(t, TierDrawingOnly, tier)
}

func TestClassifyRegulationsOnlyWhenDrawingAbsent(t *testing.T) {
	tier := Classify(Input{ChunksPresent: true, DrawingPresent: false, AnswerText: "setbacks must be 2m"})
	assert.Equal(t, TierRegulationsOnly, tier)
	assert.Equal(t, PDF, AnswerTypeFor(tier))
}

func TestClassifyKnowledgeSummaryWhenNothingAvailable(t *testing.T) {
	tier := Classify(Input{ChunksPresent: false, DrawingPresent: false, AnswerText: "hello"})
	assert.Equal(t, TierKnowledgeSummary, tier)
	assert.Equal(t, NoAnswer, AnswerTypeFor(tier))
}

func TestClassifyRefusalOverridesEveryOtherTier(t *testing.T) {
	tier := Classify(Input{ChunksPresent: true, DrawingPresent: true, AnswerText: "I cannot answer that question"})
	assert.Equal(t, TierKnowledgeSummary, tier)
}

func TestIsRefusalCaseInsensitiveExactPhrases(t *testing.T) {
	assert.True(t, IsRefusal("Sorry, Not Enough Information was retrieved."))
	assert.True(t, IsRefusal("the context doesn't contain an answer"))
	assert.False(t, IsRefusal("the maximum height is 8 meters"))
}
