package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/llms"
)

const verifyComplianceSystemPrompt = `You are an expert on building regulations. You will be given a set of measured dimensions for a drawing and a list of regulation texts. Decide whether the drawing, as measured, complies with every regulation.

Respond with nothing but a JSON object of the exact shape:
{"compliant": true|false, "explanation": "...", "remaining_issues": ["...", ...]}

"remaining_issues" must be empty when compliant is true.`

type verifyComplianceArgs struct {
	Regulations []string `json:"regulations" jsonschema:"required,description=Regulation texts to verify the drawing against"`
}

type complianceReport struct {
	Compliant       bool     `json:"compliant"`
	Explanation     string   `json:"explanation"`
	RemainingIssues []string `json:"remaining_issues"`
}

// VerifyComplianceTool implements tool 5 of §4.5: it re-measures the
// request's drawing via C1 and asks the model whether it now complies.
type VerifyComplianceTool struct {
	llm Completer
}

// NewVerifyComplianceTool builds the verify_compliance tool.
func NewVerifyComplianceTool(llm Completer) *VerifyComplianceTool {
	return &VerifyComplianceTool{llm: llm}
}

func (t *VerifyComplianceTool) Name() string { return "verify_compliance" }

func (t *VerifyComplianceTool) Description() string {
	return "Re-measure the current drawing and verify it complies with the given regulations."
}

func (t *VerifyComplianceTool) Schema() map[string]any {
	schema, err := generateSchema[verifyComplianceArgs]()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	return schema
}

func (t *VerifyComplianceTool) Call(ctx Context, rawArgs map[string]any) (map[string]any, error) {
	args, err := decodeArgs[verifyComplianceArgs](rawArgs)
	if err != nil {
		return errorResult(err), nil
	}
	if ctx.Drawing == nil {
		return errorResult(fmt.Errorf("no drawing attached to this request")), nil
	}

	dims := drawing.AllDimensions(ctx.Drawing)
	messages := []llms.Message{
		{Role: llms.RoleSystem, Content: verifyComplianceSystemPrompt},
		{Role: llms.RoleUser, Content: buildComplianceUserPrompt(dims, args.Regulations)},
	}

	text, err := t.llm.Complete(ctx, messages)
	if err != nil {
		return errorResult(err), nil
	}

	report, err := parseComplianceReport(text)
	if err != nil {
		return errorResult(err), nil
	}

	return map[string]any{
		"success":          true,
		"compliant":        report.Compliant,
		"explanation":      report.Explanation,
		"remaining_issues": report.RemainingIssues,
	}, nil
}

func parseComplianceReport(text string) (complianceReport, error) {
	var r complianceReport
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return r, fmt.Errorf("model did not return a JSON compliance report")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &r); err != nil {
		return r, fmt.Errorf("unparseable compliance report: %w", err)
	}
	return r, nil
}
