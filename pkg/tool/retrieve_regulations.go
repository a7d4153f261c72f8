package tool

import (
	"context"

	"github.com/regulon-ai/regulon/pkg/rag"
	"github.com/regulon-ai/regulon/pkg/vector"
)

// Retriever is the subset of the Retrieval Gateway retrieve_regulations
// needs — satisfied by *vector.Gateway.
type Retriever interface {
	Retrieve(ctx context.Context, queryText string, topK int) ([]vector.Hit, error)
}

const defaultRetrieveTopK = 5

type retrieveRegulationsArgs struct {
	Query string `json:"query" jsonschema:"required,description=Natural-language regulation query"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"description=Number of chunks to return,default=5,minimum=1,maximum=20"`
}

// RetrieveRegulationsTool implements tool 1 of §4.5: a thin wrapper over
// the Retrieval Gateway.
type RetrieveRegulationsTool struct {
	retriever Retriever
}

// NewRetrieveRegulationsTool builds the retrieve_regulations tool.
func NewRetrieveRegulationsTool(retriever Retriever) *RetrieveRegulationsTool {
	return &RetrieveRegulationsTool{retriever: retriever}
}

func (t *RetrieveRegulationsTool) Name() string { return "retrieve_regulations" }

func (t *RetrieveRegulationsTool) Description() string {
	return "Retrieve building-regulation text chunks relevant to a query."
}

func (t *RetrieveRegulationsTool) Schema() map[string]any {
	schema, err := generateSchema[retrieveRegulationsArgs]()
	if err != nil {
		return map[string]any{"type": "object"}
	}
	return schema
}

func (t *RetrieveRegulationsTool) Call(ctx Context, rawArgs map[string]any) (map[string]any, error) {
	args, err := decodeArgs[retrieveRegulationsArgs](rawArgs)
	if err != nil {
		return errorResult(err), nil
	}
	topK := args.TopK
	if topK <= 0 {
		topK = defaultRetrieveTopK
	}

	hits, err := t.retriever.Retrieve(ctx, args.Query, topK)
	if err != nil {
		return errorResult(err), nil
	}

	chunks := rag.FromHits(hits)
	return map[string]any{
		"success":     true,
		"count":       len(chunks),
		"regulations": chunks,
	}, nil
}
