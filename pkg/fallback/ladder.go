// Package fallback implements the four-tier cascade of §4.8: each
// candidate answer is checked against chunk/drawing presence and a fixed
// refusal-phrase list, and demoted to the next tier when it fails.
package fallback

import (
	"strings"

	"github.com/regulon-ai/regulon/pkg/config"
)

// AnswerType is the wire-visible tier label attached to an AnswerResult.
type AnswerType string

const (
	Hybrid   AnswerType = "hybrid"
	Drawing  AnswerType = "drawing"
	PDF      AnswerType = "pdf"
	NoAnswer AnswerType = "no-answer"
)

// Tier is the ladder rung a Classify call lands on, before the caller
// re-prompts (Tier 2) or attaches a KnowledgeSummary (Tier 4).
type Tier int

const (
	TierHybrid Tier = iota + 1
	TierDrawingOnly
	TierRegulationsOnly
	TierKnowledgeSummary
)

// Input is everything Classify needs to pick a tier.
type Input struct {
	ChunksPresent     bool
	DrawingPresent    bool
	DrawingOnlyIntent bool
	AnswerText        string
	// RefusalPhrases overrides the canonical phrase list; nil uses
	// config.DefaultRefusalPhrases().
	RefusalPhrases []string
}

// Classify applies §4.8's tiered policy, checked in order: a refusal
// match in AnswerText always demotes to Tier 4 regardless of which tier
// would otherwise apply.
func Classify(in Input) Tier {
	phrases := in.RefusalPhrases
	if len(phrases) == 0 {
		phrases = config.DefaultRefusalPhrases()
	}
	if isRefusal(in.AnswerText, phrases) {
		return TierKnowledgeSummary
	}

	switch {
	case in.ChunksPresent && in.DrawingPresent && !in.DrawingOnlyIntent:
		return TierHybrid
	case (!in.ChunksPresent || in.DrawingOnlyIntent) && in.DrawingPresent:
		return TierDrawingOnly
	case !in.DrawingPresent && in.ChunksPresent:
		return TierRegulationsOnly
	default:
		return TierKnowledgeSummary
	}
}

// AnswerTypeFor maps a Tier to its wire-visible AnswerType.
func AnswerTypeFor(t Tier) AnswerType {
	switch t {
	case TierHybrid:
		return Hybrid
	case TierDrawingOnly:
		return Drawing
	case TierRegulationsOnly:
		return PDF
	default:
		return NoAnswer
	}
}

// IsRefusal reports whether text contains any of
// config.DefaultRefusalPhrases, case-insensitively.
func IsRefusal(text string) bool {
	return isRefusal(text, config.DefaultRefusalPhrases())
}

func isRefusal(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
