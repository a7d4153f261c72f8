package rag

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/regulon-ai/regulon/pkg/vector"
)

// Retriever is the single-query contract both *vector.Gateway and
// *MultiQueryRetriever satisfy, so the orchestrator's standard path can
// be handed either without caring which is behind it.
type Retriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]vector.Hit, error)
}

// MultiQueryRetriever issues the original question alongside a small
// set of paraphrases concurrently, then merges and deduplicates hits
// by document+page, keeping the highest score seen for each. It is
// off by default (config.AgenticConfig.MultiQueryExpansion) — a
// supplemental enrichment beyond the single-shot retrieve() the core
// design names, not a replacement for it.
type MultiQueryRetriever struct {
	gateway    *vector.Gateway
	Paraphrase func(question string) []string
}

// NewMultiQueryRetriever wraps gateway with expansion. A nil paraphrase
// func falls back to DefaultParaphrases.
func NewMultiQueryRetriever(gateway *vector.Gateway, paraphrase func(string) []string) *MultiQueryRetriever {
	if paraphrase == nil {
		paraphrase = DefaultParaphrases
	}
	return &MultiQueryRetriever{gateway: gateway, Paraphrase: paraphrase}
}

// DefaultParaphrases generates mechanical rewordings that widen
// lexical recall without needing an LLM round-trip: a question-mark
// strip and a "regulations about <question>" framing.
func DefaultParaphrases(question string) []string {
	return []string{
		strings.TrimSuffix(strings.TrimSpace(question), "?"),
		"regulations about " + question,
	}
}

// Retrieve runs the original query plus every paraphrase concurrently
// and returns the merged, deduplicated, score-sorted result.
func (m *MultiQueryRetriever) Retrieve(ctx context.Context, question string, topK int) ([]vector.Hit, error) {
	queries := append([]string{question}, m.Paraphrase(question)...)

	results := make([][]vector.Hit, len(queries))
	g, gctx := errgroup.WithContext(ctx)
	for i, q := range queries {
		i, q := i, q
		g.Go(func() error {
			hits, err := m.gateway.Retrieve(gctx, q, topK)
			if err != nil {
				return err
			}
			results[i] = hits
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return mergeByDocumentPage(results, topK), nil
}

func mergeByDocumentPage(results [][]vector.Hit, topK int) []vector.Hit {
	best := make(map[string]vector.Hit)
	for _, hits := range results {
		for _, h := range hits {
			key := h.Document + "#" + strconv.Itoa(h.Page)
			if existing, ok := best[key]; !ok || h.Score > existing.Score {
				best[key] = h
			}
		}
	}

	merged := make([]vector.Hit, 0, len(best))
	for _, h := range best {
		merged = append(merged, h)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
