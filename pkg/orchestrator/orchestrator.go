// Package orchestrator implements the Orchestrator / Public API (C9):
// the single entry point that classifies intent, picks a path (standard
// or agentic), and applies the fallback ladder to produce an
// AnswerResult.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/regulon-ai/regulon/pkg/agentic"
	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/fallback"
	"github.com/regulon-ai/regulon/pkg/intent"
	"github.com/regulon-ai/regulon/pkg/knowledge"
	"github.com/regulon-ai/regulon/pkg/llms"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/rag"
	"github.com/regulon-ai/regulon/pkg/tool"
	"github.com/regulon-ai/regulon/pkg/vector"
)

// Mode selects the standard single-shot path or the bounded agentic loop.
type Mode string

const (
	ModeStandard Mode = "standard"
	ModeAgentic  Mode = "agentic"
)

// Request is one call to Answer.
type Request struct {
	Question string
	Drawing  *drawing.Drawing
	Mode     Mode
	TopK     int
}

// AnswerResult is §3's external response shape.
type AnswerResult struct {
	Answer              string
	AnswerType          fallback.AnswerType
	Sources             []rag.RetrievedChunk
	DrawingContextUsed  bool
	ReasoningSteps      []agentic.ToolCallRecord
	KnowledgeSummary    *knowledge.Summary
	FallbackCause       string
	IterationCapReached bool
}

// Services bundles every collaborator Answer needs — the dependency
// container the teacher calls AgentServices, renamed to this domain.
type Services struct {
	Gateway         *vector.Gateway
	Retriever       rag.Retriever
	Assembler       *prompt.Assembler
	LLM             llms.Provider
	Tools           *tool.Registry
	Loop            *agentic.Loop
	Knowledge       *knowledge.Service
	RequestDeadline time.Duration
	RefusalPhrases  []string
	Logger          *slog.Logger
}

// Orchestrator wires Services behind the single answer() entry point.
type Orchestrator struct {
	svc Services
}

// New builds an Orchestrator over svc.
func New(svc Services) *Orchestrator {
	if svc.Logger == nil {
		svc.Logger = slog.Default()
	}
	if svc.RequestDeadline == 0 {
		svc.RequestDeadline = 120 * time.Second
	}
	if svc.Retriever == nil {
		svc.Retriever = svc.Gateway
	}
	return &Orchestrator{svc: svc}
}

// Answer implements §4.9's behavior.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (AnswerResult, error) {
	question := rag.SanitizeQuestion(req.Question)
	if question == "" {
		return AnswerResult{}, newInvalidQuestionError("question is empty")
	}
	if utf8.RuneCountInString(question) > MaxQuestionLength {
		return AnswerResult{}, fmt.Errorf("%w: question exceeds %d characters", ErrQuestionTooLong, MaxQuestionLength)
	}

	ctx, cancel := context.WithTimeout(ctx, o.svc.RequestDeadline)
	defer cancel()

	cls := intent.Classify(question)

	if req.Mode == ModeAgentic {
		result, err := o.svc.Loop.Run(ctx, question, req.Drawing)
		var canceled *agentic.CanceledError
		switch {
		case errors.As(err, &canceled):
			return AnswerResult{
				ReasoningSteps:     canceled.ToolCalls,
				DrawingContextUsed: !req.Drawing.IsEmpty(),
			}, fmt.Errorf("%w: %v", ErrRequestTimeout, canceled)
		case errors.Is(err, agentic.ErrAgenticFailure):
			o.svc.Logger.Warn("agentic loop failed, falling back to standard mode", "error", err)
			fallbackResult, stdErr := o.answerStandard(ctx, question, req, cls)
			fallbackResult.FallbackCause = "agentic_failure"
			return fallbackResult, stdErr
		case err != nil:
			return AnswerResult{}, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}

		return o.finishAgentic(result, cls, req.Drawing), nil
	}

	return o.answerStandard(ctx, question, req, cls)
}

func (o *Orchestrator) finishAgentic(result agentic.Result, cls intent.Intent, d *drawing.Drawing) AnswerResult {
	chunksPresent, sources := chunksFromToolCalls(result.ToolCalls)
	tier := fallback.Classify(fallback.Input{
		ChunksPresent:     chunksPresent,
		DrawingPresent:    !d.IsEmpty(),
		DrawingOnlyIntent: cls == intent.DrawingOnly,
		AnswerText:        result.Text,
		RefusalPhrases:    o.svc.RefusalPhrases,
	})

	answer := AnswerResult{
		Answer:              result.Text,
		AnswerType:          fallback.AnswerTypeFor(tier),
		Sources:             sources,
		DrawingContextUsed:  !d.IsEmpty(),
		ReasoningSteps:      result.ToolCalls,
		IterationCapReached: result.IterationCap,
	}
	if tier == fallback.TierKnowledgeSummary {
		s := o.svc.Knowledge.Current()
		answer.KnowledgeSummary = &s
		if answer.Answer == "" {
			answer.Answer = unableToAnswerMessage
		}
	}
	return answer
}

// chunksFromToolCalls scans the trace for a successful
// retrieve_regulations call and returns whether it yielded any chunks,
// plus the chunks themselves as cited sources.
func chunksFromToolCalls(calls []agentic.ToolCallRecord) (bool, []rag.RetrievedChunk) {
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Name != "retrieve_regulations" {
			continue
		}
		ok, _ := calls[i].Result["success"].(bool)
		if !ok {
			continue
		}
		regulations, _ := calls[i].Result["regulations"].([]rag.RetrievedChunk)
		return len(regulations) > 0, regulations
	}
	return false, nil
}
