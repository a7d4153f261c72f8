package orchestrator

import (
	"context"
	"errors"

	"github.com/regulon-ai/regulon/pkg/fallback"
	"github.com/regulon-ai/regulon/pkg/intent"
	"github.com/regulon-ai/regulon/pkg/prompt"
	"github.com/regulon-ai/regulon/pkg/rag"
	"github.com/regulon-ai/regulon/pkg/vector"
)

const unableToAnswerMessage = "I don't have enough information in the regulations or drawing to answer that."

// answerStandard implements §4.9's step 4: retrieve (unless the
// drawing-only Tier-2 shortcut applies), assemble, complete, classify.
// Retrieval and completion failures are recovered locally by demoting
// tiers rather than surfacing as errors — per §7, only orchestration-
// level impossibility (invalid input, client cancellation) is a Go error.
func (o *Orchestrator) answerStandard(ctx context.Context, question string, req Request, cls intent.Intent) (AnswerResult, error) {
	drawingPresent := !req.Drawing.IsEmpty()
	skipRetrieval := cls == intent.DrawingOnly && drawingPresent

	var chunks []rag.RetrievedChunk
	if !skipRetrieval {
		hits, err := o.svc.Retriever.Retrieve(ctx, question, req.TopK)
		switch {
		case err == nil:
			chunks = rag.FromHits(hits)
		case errors.Is(err, vector.ErrRetrievalUnavailable):
			o.svc.Logger.Warn("retrieval unavailable, demoting tier", "error", err)
		default:
			return AnswerResult{}, err
		}
	}

	template := templateFor(cls, drawingPresent, len(chunks) > 0)
	turns, err := o.svc.Assembler.Build(prompt.Request{
		Template: template,
		Question: question,
		Chunks:   chunks,
		Drawing:  req.Drawing,
	})
	if err != nil {
		return AnswerResult{}, err
	}

	answerText, err := o.svc.LLM.Complete(ctx, turns)
	if err != nil {
		o.svc.Logger.Warn("completion failed, demoting to knowledge summary", "error", err)
		answerText = ""
	}

	tier := fallback.Classify(fallback.Input{
		ChunksPresent:     len(chunks) > 0,
		DrawingPresent:    drawingPresent,
		DrawingOnlyIntent: cls == intent.DrawingOnly,
		AnswerText:        answerText,
		RefusalPhrases:    o.svc.RefusalPhrases,
	})

	// A ladder demotion to drawing-only from an attempt that was built
	// against chunks needs a fresh drawing-only completion: the answer
	// text above was produced against the wrong context.
	if tier == fallback.TierDrawingOnly && template != prompt.DrawingOnly && drawingPresent {
		turns, err = o.svc.Assembler.Build(prompt.Request{Template: prompt.DrawingOnly, Question: question, Drawing: req.Drawing})
		if err == nil {
			if retried, retryErr := o.svc.LLM.Complete(ctx, turns); retryErr == nil {
				answerText = retried
			}
		}
	}

	result := AnswerResult{
		Answer:             answerText,
		AnswerType:         fallback.AnswerTypeFor(tier),
		Sources:            chunks,
		DrawingContextUsed: drawingPresent && (tier == fallback.TierHybrid || tier == fallback.TierDrawingOnly),
	}
	if tier == fallback.TierKnowledgeSummary {
		s := o.svc.Knowledge.Current()
		result.KnowledgeSummary = &s
		if result.Answer == "" {
			result.Answer = unableToAnswerMessage
		}
	}
	return result, nil
}

// templateFor picks the prompt template for the initial standard-mode
// attempt, ahead of any ladder demotion.
func templateFor(cls intent.Intent, drawingPresent, chunksPresent bool) prompt.Template {
	switch {
	case cls == intent.DrawingOnly && drawingPresent:
		return prompt.DrawingOnly
	case cls == intent.ComplianceWithAdjustment:
		return prompt.ComplianceWithAdjustment
	case !chunksPresent && drawingPresent:
		return prompt.DrawingOnly
	default:
		return prompt.StandardQA
	}
}
