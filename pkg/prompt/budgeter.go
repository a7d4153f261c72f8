package prompt

import (
	"fmt"

	"github.com/regulon-ai/regulon/pkg/rag"
)

const defaultTokenBudget = 12000

// Budgeter enforces the retrieved-context token cap spec.md §4.3 names:
// chunks are dropped from the tail (lowest relevance first) until the
// serialized context fits. The question itself is never truncated —
// callers must budget it separately if they also cap the user turn.
type Budgeter struct {
	counter *TokenCounter
	budget  int
}

// NewBudgeter builds a Budgeter for model with the given token budget;
// budget <= 0 uses the 12k default.
func NewBudgeter(model string, budget int) (*Budgeter, error) {
	counter, err := NewTokenCounter(model)
	if err != nil {
		return nil, fmt.Errorf("prompt: build budgeter: %w", err)
	}
	if budget <= 0 {
		budget = defaultTokenBudget
	}
	return &Budgeter{counter: counter, budget: budget}, nil
}

// FitChunks returns the prefix of chunks (ordered by decreasing
// relevance) that fits within the token budget, dropping the
// lowest-relevance chunks first when over budget.
func (b *Budgeter) FitChunks(chunks []rag.RetrievedChunk) []rag.RetrievedChunk {
	if len(chunks) == 0 {
		return chunks
	}

	ordered := sortChunksByRelevance(chunks)

	fitted := make([]rag.RetrievedChunk, 0, len(ordered))
	used := 0
	for _, c := range ordered {
		tokens := b.counter.Count(c.Content)
		if used+tokens > b.budget {
			break
		}
		fitted = append(fitted, c)
		used += tokens
	}
	return fitted
}
