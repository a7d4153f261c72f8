package tool

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/prompt"
)

type generateCompliantDesignArgs struct {
	OriginalDrawing drawing.Drawing `json:"original_drawing" jsonschema:"required,description=The drawing to adjust"`
	Violations      []string        `json:"violations" jsonschema:"required,description=Violations the adjustment must resolve"`
	Regulations     []string        `json:"regulations" jsonschema:"required,description=Regulation texts the adjusted drawing must satisfy"`
}

type adjustedDesign struct {
	AdjustedDrawing        drawing.Drawing `json:"adjusted_drawing"`
	ChangesMade            []string        `json:"changes_made"`
	ComplianceVerification string          `json:"compliance_verification"`
}

// GenerateCompliantDesignTool implements tool 4 of §4.5: it assembles the
// COMPLIANCE_WITH_ADJUSTMENT prompt and asks the model for an adjusted
// drawing that resolves the supplied violations.
type GenerateCompliantDesignTool struct {
	assembler *prompt.Assembler
	llm       Completer
}

// NewGenerateCompliantDesignTool builds the generate_compliant_design tool.
func NewGenerateCompliantDesignTool(assembler *prompt.Assembler, llm Completer) *GenerateCompliantDesignTool {
	return &GenerateCompliantDesignTool{assembler: assembler, llm: llm}
}

func (t *GenerateCompliantDesignTool) Name() string { return "generate_compliant_design" }

func (t *GenerateCompliantDesignTool) Description() string {
	return "Produce an adjusted drawing, in the same schema, that resolves the given regulation violations."
}

func (t *GenerateCompliantDesignTool) Schema() map[string]any {
	schema, err := generateSchema[generateCompliantDesignArgs]()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	return schema
}

func (t *GenerateCompliantDesignTool) Call(ctx Context, rawArgs map[string]any) (map[string]any, error) {
	args, err := decodeArgs[generateCompliantDesignArgs](rawArgs)
	if err != nil {
		return errorResult(err), nil
	}

	messages, err := t.assembler.Build(prompt.Request{
		Template:    prompt.ComplianceWithAdjustment,
		Question: "Adjust the drawing to resolve every listed violation. Respond with nothing but a JSON object " +
			`of the exact shape {"adjusted_drawing": <drawing JSON>, "changes_made": ["..."], "compliance_verification": "..."}.`,
		Drawing:     &args.OriginalDrawing,
		Regulations: args.Regulations,
		Violations:  args.Violations,
	})
	if err != nil {
		return errorResult(err), nil
	}

	text, err := t.llm.Complete(ctx, messages)
	if err != nil {
		return errorResult(err), nil
	}

	design, err := parseAdjustedDesign(text)
	if err != nil {
		return errorResult(err), nil
	}

	return map[string]any{
		"success":                 true,
		"adjusted_drawing":        design.AdjustedDrawing,
		"changes_made":            design.ChangesMade,
		"compliance_verification": design.ComplianceVerification,
	}, nil
}

func parseAdjustedDesign(text string) (adjustedDesign, error) {
	var d adjustedDesign
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end == -1 || end < start {
		return d, fmt.Errorf("model did not return an adjusted-design JSON object")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &d); err != nil {
		return d, fmt.Errorf("unparseable adjusted-design response: %w", err)
	}
	return d, nil
}
