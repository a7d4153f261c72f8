package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDrawingOnly(t *testing.T) {
	assert.Equal(t, DrawingOnly, Classify("Can you describe my drawing for me?"))
	assert.Equal(t, DrawingOnly, Classify("WHAT ARE THE DIMENSIONS of this plot"))
}

func TestClassifyComplianceWithAdjustment(t *testing.T) {
	assert.Equal(t, ComplianceWithAdjustment, Classify("please adjust the extension to be compliant"))
	assert.Equal(t, ComplianceWithAdjustment, Classify("Provide compliant JSON for this design"))
}

func TestClassifyGeneralRAGDefault(t *testing.T) {
	assert.Equal(t, GeneralRAG, Classify("What is the maximum building height allowed?"))
}

func TestClassifyPrecedenceDrawingOnlyBeatsCompliance(t *testing.T) {
	// Contains "fix" (compliance phrase) but also a drawing-only phrase;
	// drawing-only must win per §4.7's first-match-wins ordering.
	assert.Equal(t, DrawingOnly, Classify("describe my drawing, can you fix the colors in the legend?"))
}
