package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/llms"
)

// Completer is the subset of llms.Provider the sub-LLM tools need.
type Completer interface {
	Complete(ctx context.Context, messages []llms.Message) (string, error)
}

const complianceVerdictSystemPrompt = `You are an expert on building regulations. You will be given a set of measured dimensions for a drawing and a list of regulation texts. Decide which regulations the drawing violates and which it satisfies.

Respond with nothing but a JSON object of the exact shape:
{"violations": ["<regulation text that is violated>", ...], "compliant": ["<regulation text that is satisfied>", ...]}

Quote each regulation exactly as given. Do not include any other prose.`

type analyzeDrawingComplianceArgs struct {
	Regulations []string `json:"regulations" jsonschema:"required,description=Regulation texts to check the drawing against"`
}

type complianceVerdict struct {
	Violations []string `json:"violations"`
	Compliant  []string `json:"compliant"`
}

// AnalyzeDrawingComplianceTool implements tool 2 of §4.5: it measures the
// request's drawing via C1 and asks the model to classify each supplied
// regulation as violated or satisfied against those measurements.
type AnalyzeDrawingComplianceTool struct {
	llm Completer
}

// NewAnalyzeDrawingComplianceTool builds the analyze_drawing_compliance tool.
func NewAnalyzeDrawingComplianceTool(llm Completer) *AnalyzeDrawingComplianceTool {
	return &AnalyzeDrawingComplianceTool{llm: llm}
}

func (t *AnalyzeDrawingComplianceTool) Name() string { return "analyze_drawing_compliance" }

func (t *AnalyzeDrawingComplianceTool) Description() string {
	return "Check the current drawing's measured dimensions against a list of regulation texts and report violations."
}

func (t *AnalyzeDrawingComplianceTool) Schema() map[string]any {
	schema, err := generateSchema[analyzeDrawingComplianceArgs]()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	return schema
}

func (t *AnalyzeDrawingComplianceTool) Call(ctx Context, rawArgs map[string]any) (map[string]any, error) {
	args, err := decodeArgs[analyzeDrawingComplianceArgs](rawArgs)
	if err != nil {
		return errorResult(err), nil
	}
	if ctx.Drawing == nil {
		return errorResult(fmt.Errorf("no drawing attached to this request")), nil
	}

	dims := drawing.AllDimensions(ctx.Drawing)
	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: complianceVerdictSystemPrompt},
		{Role: llms.RoleUser, Content: buildComplianceUserPrompt(dims, args.Regulations)},
	}

	text, err := t.llm.Complete(ctx, messages)
	if err != nil {
		return errorResult(err), nil
	}

	verdict, err := parseComplianceVerdict(text)
	if err != nil {
		return errorResult(err), nil
	}

	return map[string]any{
		"success":    true,
		"violations": verdict.Violations,
		"compliant":  verdict.Compliant,
		"measurements": map[string]any{
			"plot_area_m2":      dims.PlotAreaM2,
			"extension_depth_m": dims.ExtensionDepthM,
			"building_height_m": dims.BuildingHeightM,
		},
	}, nil
}

func buildComplianceUserPrompt(dims drawing.Dimensions, regulations []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Measured dimensions:\n- plot area (m2): %v\n- extension depth (m): %v\n- building height (m): %v\n\n",
		dims.PlotAreaM2, dims.ExtensionDepthM, dims.BuildingHeightM)
	b.WriteString("Regulations:\n")
	for i, r := range regulations {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r)
	}
	return b.String()
}

func parseComplianceVerdict(text string) (complianceVerdict, error) {
	var v complianceVerdict
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return v, fmt.Errorf("model did not return a JSON verdict")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &v); err != nil {
		return v, fmt.Errorf("unparseable compliance verdict: %w", err)
	}
	return v, nil
}
