package orchestrator

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulon-ai/regulon/pkg/agentic"
	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/fallback"
	"github.com/regulon-ai/regulon/pkg/knowledge"
	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/tool"
	"github.com/regulon-ai/regulon/pkg/vector"
)

type fakeBackend struct {
	hits []vector.Hit
	err  error
}

func (b *fakeBackend) Search(ctx context.Context, queryText string, topK int) ([]vector.Hit, error) {
	return b.hits, b.err
}

func (b *fakeBackend) Healthy(ctx context.Context) (bool, bool) { return true, len(b.hits) > 0 }

type scriptedProvider struct {
	completions []string
	completeErr error
	toolCalls   func(turns []llms.Message) llms.Completion
}

func (p *scriptedProvider) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	if p.completeErr != nil {
		return "", p.completeErr
	}
	if len(p.completions) == 0 {
		return "", nil
	}
	text := p.completions[0]
	p.completions = p.completions[1:]
	return text, nil
}

func (p *scriptedProvider) CompleteWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (llms.Completion, error) {
	if p.toolCalls != nil {
		return p.toolCalls(messages), nil
	}
	return llms.Completion{Text: "final answer"}, nil
}

func (p *scriptedProvider) Name() string { return "scripted" }

func newTestOrchestrator(t *testing.T, backend vector.Backend, provider *scriptedProvider) *Orchestrator {
	t.Helper()
	gateway := vector.NewGateway(backend, vector.GatewayConfig{})
	assembler, err := prompt.NewAssembler("gpt-4o", 12000)
	require.NoError(t, err)
	tools := tool.NewRegistry()
	know := knowledge.NewService(filepath.Join(t.TempDir(), "summary.yaml"))
	loop := agentic.NewLoop(provider, tools, assembler, 10)

	return New(Services{
		Gateway:   gateway,
		Assembler: assembler,
		LLM:       provider,
		Tools:     tools,
		Loop:      loop,
		Knowledge: know,
	})
}

func TestAnswerRejectsEmptyQuestion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeBackend{}, &scriptedProvider{})
	_, err := o.Answer(context.Background(), Request{Question: "   "})
	assert.ErrorIs(t, err, ErrInvalidQuestion)
}

func TestAnswerRejectsOversizeQuestion(t *testing.T) {
	o := newTestOrchestrator(t, &fakeBackend{}, &scriptedProvider{})
	_, err := o.Answer(context.Background(), Request{Question: strings.Repeat("a", MaxQuestionLength+1)})
	assert.ErrorIs(t, err, ErrQuestionTooLong)
}

func TestAnswerStandardHybridWhenChunksAndDrawingPresent(t *testing.T) {
	backend := &fakeBackend{hits: []vector.Hit{{Document: "doc.pdf", Page: 1, Content: "setback rule", Score: 0.9}}}
	provider := &scriptedProvider{completions: []string{"the setback is 3m"}}
	o := newTestOrchestrator(t, backend, provider)

	d := &drawing.Drawing{Objects: []drawing.Object{{Layer: "Plot Boundary", Kind: drawing.KindPolyline}}}
	result, err := o.Answer(context.Background(), Request{Question: "what is the setback?", Drawing: d, Mode: ModeStandard})
	require.NoError(t, err)
	assert.Equal(t, fallback.Hybrid, result.AnswerType)
	assert.Equal(t, "the setback is 3m", result.Answer)
	assert.True(t, result.DrawingContextUsed)
}

func TestAnswerStandardKnowledgeSummaryWhenNothingAvailable(t *testing.T) {
	provider := &scriptedProvider{completions: []string{"I don't know"}}
	o := newTestOrchestrator(t, &fakeBackend{}, provider)

	result, err := o.Answer(context.Background(), Request{Question: "what color is the sky?", Mode: ModeStandard})
	require.NoError(t, err)
	assert.Equal(t, fallback.NoAnswer, result.AnswerType)
	require.NotNil(t, result.KnowledgeSummary)
	assert.GreaterOrEqual(t, len(result.KnowledgeSummary.SuggestedQuestions), 3)
}

func TestAnswerStandardSkipsRetrievalForDrawingOnlyIntent(t *testing.T) {
	backend := &fakeBackend{err: assertError("backend should not be called")}
	provider := &scriptedProvider{completions: []string{"your drawing has 2 layers"}}
	o := newTestOrchestrator(t, backend, provider)

	d := &drawing.Drawing{Objects: []drawing.Object{{Layer: "Walls", Kind: drawing.KindLine}}}
	result, err := o.Answer(context.Background(), Request{Question: "describe my drawing", Drawing: d, Mode: ModeStandard})
	require.NoError(t, err)
	assert.Equal(t, fallback.Drawing, result.AnswerType)
}

func TestAnswerAgenticAttachesReasoningSteps(t *testing.T) {
	calls := 0
	provider := &scriptedProvider{
		toolCalls: func(turns []llms.Message) llms.Completion {
			calls++
			if calls == 1 {
				return llms.Completion{ToolCalls: []llms.ToolCall{{
					ID: "1", Name: "calculate_drawing_dimensions",
					Arguments: map[string]interface{}{"dimension_type": "plot_area"},
				}}}
			}
			return llms.Completion{Text: "the plot area is 400 square meters"}
		},
	}
	o := newTestOrchestrator(t, &fakeBackend{}, provider)
	dimTool := &stubDimensionsTool{}
	require.NoError(t, o.svc.Tools.Register(dimTool))

	d := &drawing.Drawing{Objects: []drawing.Object{{Layer: "Plot Boundary", Kind: drawing.KindPolyline}}}
	result, err := o.Answer(context.Background(), Request{Question: "what is my plot area?", Drawing: d, Mode: ModeAgentic})
	require.NoError(t, err)
	assert.Equal(t, "the plot area is 400 square meters", result.Answer)
	assert.Len(t, result.ReasoningSteps, 1)
	assert.Equal(t, "calculate_drawing_dimensions", result.ReasoningSteps[0].Name)
}

func TestAnswerAgenticFailureFallsBackToStandard(t *testing.T) {
	provider := &scriptedFailingToolsProvider{completeText: "standard mode answer"}
	o := newTestOrchestrator(t, &fakeBackend{}, &scriptedProvider{})
	o.svc.LLM = provider
	o.svc.Loop = agentic.NewLoop(provider, o.svc.Tools, o.svc.Assembler, 10)

	result, err := o.Answer(context.Background(), Request{Question: "what is the setback?", Mode: ModeAgentic})
	require.NoError(t, err)
	assert.Equal(t, "agentic_failure", result.FallbackCause)
	assert.Equal(t, "standard mode answer", result.Answer)
}

type stubDimensionsTool struct{}

func (s *stubDimensionsTool) Name() string        { return "calculate_drawing_dimensions" }
func (s *stubDimensionsTool) Description() string { return "test stub" }
func (s *stubDimensionsTool) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
func (s *stubDimensionsTool) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"success": true, "dimensions": map[string]any{"plot_area_sqm": 400.0}}, nil
}

type scriptedFailingToolsProvider struct {
	completeText string
}

func (p *scriptedFailingToolsProvider) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	return p.completeText, nil
}

func (p *scriptedFailingToolsProvider) CompleteWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (llms.Completion, error) {
	return llms.Completion{}, assertError("llm unavailable")
}

func (p *scriptedFailingToolsProvider) Name() string { return "failing" }

type assertErr string

func (e assertErr) Error() string { return string(e) }

func assertError(msg string) error { return assertErr(msg) }
