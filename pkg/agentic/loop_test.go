package agentic

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/tool"
)

// scriptedProvider replays a fixed sequence of completions, one per call
// to CompleteWithTools, so the loop's iteration behavior can be tested
// without a real LLM.
type scriptedProvider struct {
	script []llms.Completion
	calls  int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	c, err := p.CompleteWithTools(ctx, messages, nil)
	return c.Text, err
}

func (p *scriptedProvider) CompleteWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (llms.Completion, error) {
	if p.calls >= len(p.script) {
		return llms.Completion{}, nil
	}
	c := p.script[p.calls]
	p.calls++
	return c, nil
}

type echoTool struct{}

func (echoTool) Name() string        { return "calculate_drawing_dimensions" }
func (echoTool) Description() string { return "echo tool for tests" }
func (echoTool) Schema() map[string]any {
	return map[string]any{"type": "object"}
}
func (echoTool) Call(ctx tool.Context, args map[string]any) (map[string]any, error) {
	return map[string]any{"success": true, "dimensions": map[string]any{"plot_area_m2": 400.0}}, nil
}

func newTestLoop(script []llms.Completion, maxIterations int) *Loop {
	reg := tool.NewRegistry()
	_ = reg.Register(echoTool{})
	assembler, _ := prompt.NewAssembler("claude-3-5-sonnet-latest", 0)
	return NewLoop(&scriptedProvider{script: script}, reg, assembler, maxIterations)
}

func TestLoopFinishesOnTextResponse(t *testing.T) {
	loop := newTestLoop([]llms.Completion{
		{ToolCalls: []llms.ToolCall{{ID: "1", Name: "calculate_drawing_dimensions", Arguments: map[string]interface{}{"dimension_type": "all"}}}},
		{Text: "the plot area is 400 square meters"},
	}, 10)

	result, err := loop.Run(context.Background(), "what is the plot area", nil)
	require.NoError(t, err)
	assert.Equal(t, "the plot area is 400 square meters", result.Text)
	assert.False(t, result.IterationCap)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, 2, result.IterationsUsed)
}

func TestLoopHitsIterationCap(t *testing.T) {
	script := make([]llms.Completion, 0, 20)
	for i := 0; i < 20; i++ {
		script = append(script, llms.Completion{
			ToolCalls: []llms.ToolCall{{ID: "x", Name: "calculate_drawing_dimensions", Arguments: map[string]interface{}{"dimension_type": "all"}}},
		})
	}
	loop := newTestLoop(script, 10)

	result, err := loop.Run(context.Background(), "keep calculating", nil)
	require.NoError(t, err)
	assert.True(t, result.IterationCap)
	assert.Contains(t, result.Text, "iteration cap reached")
	assert.Len(t, result.ToolCalls, 10)
}

func TestLoopWrapsLLMErrorAsAgenticFailure(t *testing.T) {
	reg := tool.NewRegistry()
	assembler, _ := prompt.NewAssembler("claude-3-5-sonnet-latest", 0)
	loop := NewLoop(&erroringProvider{}, reg, assembler, 10)

	_, err := loop.Run(context.Background(), "question", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAgenticFailure)
}

type erroringProvider struct{}

func (erroringProvider) Name() string { return "erroring" }
func (erroringProvider) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	return "", assert.AnError
}
func (erroringProvider) CompleteWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (llms.Completion, error) {
	return llms.Completion{}, assert.AnError
}

func TestLoopPreservesPartialTraceOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	reg := tool.NewRegistry()
	_ = reg.Register(echoTool{})
	assembler, _ := prompt.NewAssembler("claude-3-5-sonnet-latest", 0)

	provider := &cancelingProvider{cancel: cancel}
	loop := NewLoop(provider, reg, assembler, 10)

	_, err := loop.Run(ctx, "question", nil)
	require.Error(t, err)
	var canceled *CanceledError
	require.ErrorAs(t, err, &canceled)
	assert.Len(t, canceled.ToolCalls, 2)
}

// cancelingProvider returns a tool call on every call and cancels the
// context during its third call, so two tool calls complete before the
// loop stops, exercising §4.6's cancellation-honoring path.
type cancelingProvider struct {
	cancel context.CancelFunc
	calls  int
}

func (p *cancelingProvider) Name() string { return "canceling" }
func (p *cancelingProvider) Complete(ctx context.Context, messages []llms.Message) (string, error) {
	return "", nil
}
func (p *cancelingProvider) CompleteWithTools(ctx context.Context, messages []llms.Message, tools []llms.ToolDefinition) (llms.Completion, error) {
	p.calls++
	if p.calls == 3 {
		p.cancel()
	}
	return llms.Completion{
		ToolCalls: []llms.ToolCall{{ID: "x", Name: "calculate_drawing_dimensions", Arguments: map[string]interface{}{"dimension_type": "all"}}},
	}, nil
}
