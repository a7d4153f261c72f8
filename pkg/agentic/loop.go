package agentic

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/observability"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/tool"
)

// DefaultMaxIterations is §4.6's default iteration cap.
const DefaultMaxIterations = 10

const iterationCapMarker = "iteration cap reached"
const emptyResponseMessage = "unable to produce an answer"

var tracer = otel.Tracer("github.com/regulon-ai/regulon/pkg/agentic")

// Result is what Run hands back to the orchestrator: a final answer (or
// the best partial one) plus the full tool-call trace.
type Result struct {
	Text           string
	ToolCalls      []ToolCallRecord
	IterationCap   bool
	IterationsUsed int
}

// Loop runs the bounded tool-calling state machine of §4.6.
type Loop struct {
	llm           llms.Provider
	tools         *tool.Registry
	assembler     *prompt.Assembler
	maxIterations int
}

// NewLoop builds a Loop. maxIterations <= 0 uses DefaultMaxIterations.
func NewLoop(llm llms.Provider, tools *tool.Registry, assembler *prompt.Assembler, maxIterations int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{llm: llm, tools: tools, assembler: assembler, maxIterations: maxIterations}
}

// RunOption configures a single Run call.
type RunOption func(*runOptions)

type runOptions struct {
	onToolCall func(ToolCallRecord)
}

// WithOnToolCall registers a callback invoked synchronously right after
// each tool call completes, for callers that want to stream progress
// (e.g. the SSE reasoning-trace endpoint) without waiting for the final
// answer. It never affects the returned Result.
func WithOnToolCall(fn func(ToolCallRecord)) RunOption {
	return func(o *runOptions) { o.onToolCall = fn }
}

// Run executes the state machine of §4.6: start, iterate, bound, error.
func (l *Loop) Run(ctx context.Context, question string, d *drawing.Drawing, opts ...RunOption) (result Result, err error) {
	var cfg runOptions
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, span := tracer.Start(ctx, "agentic.Run")
	defer span.End()
	defer func() {
		observability.GlobalMetrics().ObserveAgenticRun(result.IterationsUsed, result.IterationCap)
	}()

	turns, err := l.assembler.Build(prompt.Request{
		Template: prompt.AgenticSystem,
		Question: question,
		Drawing:  d,
		Tools:    toolDescriptions(l.tools),
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: assemble agentic system prompt: %v", ErrAgenticFailure, err)
	}

	state := &State{Question: question, Drawing: d, ConversationTurns: turns}
	defs := l.tools.Definitions()

	for state.Iteration < l.maxIterations {
		if err := ctx.Err(); err != nil {
			return Result{}, &CanceledError{Cause: err, ToolCalls: state.ToolCalls}
		}

		state.Iteration++
		iterCtx, iterSpan := tracer.Start(ctx, "agentic.iteration", trace.WithAttributes(
			attribute.Int("agentic.iteration", state.Iteration),
		))

		completion, err := l.llm.CompleteWithTools(iterCtx, state.ConversationTurns, defs)
		iterSpan.End()
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrAgenticFailure, err)
		}

		if completion.HasToolCalls() {
			state.ConversationTurns = append(state.ConversationTurns, llms.Message{
				Role:      llms.RoleAssistant,
				Content:   completion.Text,
				ToolCalls: completion.ToolCalls,
			})
			for _, tc := range completion.ToolCalls {
				if err := ctx.Err(); err != nil {
					return Result{}, &CanceledError{Cause: err, ToolCalls: state.ToolCalls}
				}
				dispatchStart := time.Now()
				result := l.tools.Dispatch(tool.Context{Context: ctx, Drawing: d}, tc.Name, tc.Arguments)
				record := newToolCallRecord(state.Iteration, tc, result)
				record.Timestamp = time.Now()
				record.Duration = record.Timestamp.Sub(dispatchStart)
				state.ToolCalls = append(state.ToolCalls, record)
				if cfg.onToolCall != nil {
					cfg.onToolCall(record)
				}
				state.ConversationTurns = append(state.ConversationTurns, llms.Message{
					Role:       llms.RoleTool,
					Content:    resultToJSON(result),
					ToolCallID: tc.ID,
					Name:       tc.Name,
				})
			}
			continue
		}

		if completion.Text != "" {
			return Result{Text: completion.Text, ToolCalls: state.ToolCalls, IterationsUsed: state.Iteration}, nil
		}

		return Result{Text: emptyResponseMessage, ToolCalls: state.ToolCalls, IterationsUsed: state.Iteration}, nil
	}

	return l.partialResult(state), nil
}

func (l *Loop) partialResult(state *State) Result {
	return Result{
		Text:           fmt.Sprintf("%s (%s)", bestAvailableText(state), iterationCapMarker),
		ToolCalls:      state.ToolCalls,
		IterationCap:   true,
		IterationsUsed: state.Iteration,
	}
}

// bestAvailableText falls back to the last tool result's textual content
// when the loop exhausts its iteration cap without ever receiving a
// prose response, per §8 scenario 5.
func bestAvailableText(state *State) string {
	for i := len(state.ToolCalls) - 1; i >= 0; i-- {
		if explanation, ok := state.ToolCalls[i].Result["explanation"].(string); ok && explanation != "" {
			return explanation
		}
	}
	return "no answer could be produced within the iteration limit"
}

func toolDescriptions(r *tool.Registry) []prompt.ToolDescription {
	defs := r.Definitions()
	out := make([]prompt.ToolDescription, 0, len(defs))
	for _, d := range defs {
		out = append(out, prompt.ToolDescription{Name: d.Name, Description: d.Description})
	}
	return out
}

func resultToJSON(result map[string]interface{}) string {
	data, err := json.Marshal(result)
	if err != nil {
		return `{"success":false,"error":"failed to serialize tool result"}`
	}
	return string(data)
}
