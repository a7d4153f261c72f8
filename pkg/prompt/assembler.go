// Package prompt builds the system/user messages the LLM Client sends,
// combining retrieved chunks, the ephemeral drawing, and the question
// under one of a fixed set of named templates.
package prompt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/rag"
)

// Template names the fixed set of prompt contracts C3 exposes.
type Template string

const (
	StandardQA               Template = "standard_qa"
	DrawingOnly              Template = "drawing_only"
	ComplianceWithAdjustment Template = "compliance_with_adjustment"
	AgenticSystem            Template = "agentic_system"
)

// ToolDescription is a one-line (name, description) pair used to
// enumerate the five tools inside the AGENTIC_SYSTEM template, without
// pkg/prompt importing pkg/tool (which itself depends on pkg/prompt for
// sub-prompts), so the two packages do not form an import cycle.
type ToolDescription struct {
	Name        string
	Description string
}

// Assembler builds prompts per §4.3.
type Assembler struct {
	budgeter *Budgeter
}

// NewAssembler builds an Assembler with the given token budget (default
// 12000, per spec.md §4.3) for the model named.
func NewAssembler(model string, tokenBudget int) (*Assembler, error) {
	budgeter, err := NewBudgeter(model, tokenBudget)
	if err != nil {
		return nil, err
	}
	return &Assembler{budgeter: budgeter}, nil
}

// Request carries everything a template needs; not every field is used
// by every template.
type Request struct {
	Template  Template
	Question  string
	Chunks    []rag.RetrievedChunk
	Drawing   *drawing.Drawing
	Tools     []ToolDescription
	// Regulations carries rule texts for COMPLIANCE_WITH_ADJUSTMENT and
	// the compliance-checking tools, bypassing fresh retrieval.
	Regulations []string
	Violations  []string
}

// Build renders messages per req.Template.
func (a *Assembler) Build(req Request) ([]llms.Message, error) {
	switch req.Template {
	case StandardQA:
		return a.buildStandardQA(req)
	case DrawingOnly:
		return a.buildDrawingOnly(req), nil
	case ComplianceWithAdjustment:
		return a.buildComplianceWithAdjustment(req), nil
	case AgenticSystem:
		return a.buildAgenticSystem(req), nil
	default:
		return nil, fmt.Errorf("prompt: unknown template %q", req.Template)
	}
}

const standardSystemPrompt = "You are an expert on building regulations. Answer only from the provided context. " +
	"If the context does not contain enough information to answer, say so plainly rather than guessing."

func (a *Assembler) buildStandardQA(req Request) ([]llms.Message, error) {
	chunks := a.budgeter.FitChunks(req.Chunks)

	var b strings.Builder
	if len(chunks) > 0 {
		b.WriteString("Retrieved regulation excerpts:\n\n")
		for _, c := range chunks {
			writeChunkMarker(&b, c)
		}
		b.WriteString("\n")
	}
	if !req.Drawing.IsEmpty() {
		writeDrawingSection(&b, req.Drawing)
	}
	b.WriteString("Question: ")
	b.WriteString(req.Question)

	return []llms.Message{
		{Role: llms.RoleSystem, Content: standardSystemPrompt},
		{Role: llms.RoleUser, Content: b.String()},
	}, nil
}

const drawingOnlySystemPrompt = "You are an expert on building drawings. Describe and analyze the supplied " +
	"drawing literally, using only the geometry it contains. Do not invoke regulations."

func (a *Assembler) buildDrawingOnly(req Request) []llms.Message {
	var b strings.Builder
	if req.Drawing.IsEmpty() {
		b.WriteString("No geometry was provided in this request.\n\n")
	} else {
		writeDrawingSection(&b, req.Drawing)
	}
	b.WriteString("Question: ")
	b.WriteString(req.Question)

	return []llms.Message{
		{Role: llms.RoleSystem, Content: drawingOnlySystemPrompt},
		{Role: llms.RoleUser, Content: b.String()},
	}
}

const complianceSystemPrompt = "You are an expert on building regulations. Identify every violation in the " +
	"supplied drawing against the cited regulations, then emit an adjusted drawing in the same JSON schema " +
	"that resolves each violation, accompanied by a plain-language list of the changes made."

func (a *Assembler) buildComplianceWithAdjustment(req Request) []llms.Message {
	var b strings.Builder
	b.WriteString("Cited regulations:\n")
	for _, r := range req.Regulations {
		b.WriteString("- ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	if len(req.Violations) > 0 {
		b.WriteString("\nKnown violations:\n")
		for _, v := range req.Violations {
			b.WriteString("- ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	b.WriteString("\nOriginal drawing:\n")
	writeDrawingJSON(&b, req.Drawing)
	b.WriteString("\n\nRequest: ")
	b.WriteString(req.Question)

	return []llms.Message{
		{Role: llms.RoleSystem, Content: complianceSystemPrompt},
		{Role: llms.RoleUser, Content: b.String()},
	}
}

func (a *Assembler) buildAgenticSystem(req Request) []llms.Message {
	var b strings.Builder
	b.WriteString("You are an autonomous building-regulations assistant with access to the following tools:\n\n")
	for _, t := range req.Tools {
		b.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
	}
	b.WriteString("\nCall tools as needed to retrieve regulations, measure the drawing, check compliance, " +
		"or produce an adjusted design. Stop calling tools and respond in prose once you have a grounded, " +
		"self-verified answer.")

	var userBody strings.Builder
	userBody.WriteString("Question: ")
	userBody.WriteString(req.Question)
	if !req.Drawing.IsEmpty() {
		userBody.WriteString("\n\nDrawing (JSON):\n")
		writeDrawingJSON(&userBody, req.Drawing)
	}

	return []llms.Message{
		{Role: llms.RoleSystem, Content: b.String()},
		{Role: llms.RoleUser, Content: userBody.String()},
	}
}

func writeChunkMarker(b *strings.Builder, c rag.RetrievedChunk) {
	title := c.Document
	if c.Title != nil && *c.Title != "" {
		title = *c.Title
	}
	b.WriteString(fmt.Sprintf("[%s, page %d", title, c.Page))
	if c.Paragraph != nil {
		b.WriteString(fmt.Sprintf(", ¶%d", *c.Paragraph))
	}
	b.WriteString("]\n")
	b.WriteString(c.Content)
	b.WriteString("\n\n")
}

func writeDrawingSection(b *strings.Builder, d *drawing.Drawing) {
	b.WriteString("Drawing:\n")
	writeDrawingJSON(b, d)
	b.WriteString("\n\n")
}

func writeDrawingJSON(b *strings.Builder, d *drawing.Drawing) {
	if d.IsEmpty() {
		b.WriteString("{}")
		return
	}
	data, err := json.Marshal(d)
	if err != nil {
		b.WriteString("{}")
		return
	}
	b.Write(data)
}

// sortChunksByRelevance returns chunks ordered by decreasing score,
// used by Budgeter when the gateway's own ordering cannot be trusted
// (e.g. after multi-query merging).
func sortChunksByRelevance(chunks []rag.RetrievedChunk) []rag.RetrievedChunk {
	sorted := make([]rag.RetrievedChunk, len(chunks))
	copy(sorted, chunks)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	return sorted
}
