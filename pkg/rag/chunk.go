// Package rag turns Retrieval Gateway hits into the RetrievedChunk shape
// the rest of the orchestrator deals in, and holds the small amount of
// retrieval-adjacent policy that sits above the gateway: input
// sanitization and optional multi-query expansion.
package rag

import (
	"github.com/regulon-ai/regulon/pkg/vector"
)

// RetrievedChunk is one retrieval hit as carried through prompt
// assembly, tool results, and the final AnswerResult's cited sources.
type RetrievedChunk struct {
	Document    string             `json:"document"`
	Page        int                `json:"page"`
	Paragraph   *int               `json:"paragraph,omitempty"`
	Title       *string            `json:"title,omitempty"`
	Content     string             `json:"content"`
	ContentType vector.ContentType `json:"content_type"`
	Score       float64            `json:"score"`
	Selected    bool               `json:"selected"`
}

// FromHits converts Gateway hits to RetrievedChunks in the same order.
func FromHits(hits []vector.Hit) []RetrievedChunk {
	chunks := make([]RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		chunks = append(chunks, RetrievedChunk{
			Document:    h.Document,
			Page:        h.Page,
			Paragraph:   h.Paragraph,
			Title:       h.Title,
			Content:     h.Content,
			ContentType: h.ContentType,
			Score:       h.Score,
		})
	}
	return chunks
}

// MarkSelected sets Selected=true on every chunk whose Document is one
// of the cited documents the model named; the page is not compared.
func MarkSelected(chunks []RetrievedChunk, citedDocuments map[string]bool) {
	for i := range chunks {
		if citedDocuments[chunks[i].Document] {
			chunks[i].Selected = true
		}
	}
}
