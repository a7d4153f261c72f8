// Package intent implements the deterministic phrase-bag classifier of
// §4.7: a lower-cased substring match against two fixed phrase sets,
// checked in precedence order, with "general RAG" as the default.
package intent

import "strings"

// Intent is one of the three classification categories.
type Intent string

const (
	DrawingOnly              Intent = "drawing_only"
	ComplianceWithAdjustment Intent = "compliance_with_adjustment"
	GeneralRAG               Intent = "general_rag"
)

var drawingOnlyPhrases = []string{
	"describe my drawing",
	"what is in my drawing",
	"my building drawing",
	"describe my building",
	"analyze my design",
	"what are the dimensions",
	"layers are in my drawing",
}

var complianceWithAdjustmentPhrases = []string{
	"adjust",
	"fix",
	"make compliant",
	"provide compliant",
	"compliant json",
	"compliant design",
}

// Classify applies §4.7's precedence order: drawing-only, then
// compliance-with-adjustment, then general RAG by default.
func Classify(question string) Intent {
	lower := strings.ToLower(question)

	if containsAny(lower, drawingOnlyPhrases) {
		return DrawingOnly
	}
	if containsAny(lower, complianceWithAdjustmentPhrases) {
		return ComplianceWithAdjustment
	}
	return GeneralRAG
}

func containsAny(haystack string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}
