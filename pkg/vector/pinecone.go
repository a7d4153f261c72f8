package vector

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
)

// PineconeConfig configures PineconeBackend.
type PineconeConfig struct {
	APIKey    string
	Host      string
	IndexName string
}

// PineconeBackend implements Backend against a managed Pinecone index
// over its HTTP API — the fully-managed, no-ops-overhead remote option.
type PineconeBackend struct {
	client    *pinecone.Client
	indexName string
}

// NewPineconeBackend authenticates against Pinecone's control plane.
func NewPineconeBackend(cfg PineconeConfig) (*PineconeBackend, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("vector: pinecone api key is required")
	}

	params := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	if cfg.Host != "" {
		params.Host = cfg.Host
	}

	client, err := pinecone.NewClient(params)
	if err != nil {
		return nil, fmt.Errorf("vector: create pinecone client: %w", err)
	}

	indexName := cfg.IndexName
	if indexName == "" {
		indexName = "regulon-regulations"
	}

	return &PineconeBackend{client: client, indexName: indexName}, nil
}

func (b *PineconeBackend) connection(ctx context.Context) (*pinecone.IndexConnection, error) {
	index, err := b.client.DescribeIndex(ctx, b.indexName)
	if err != nil {
		return nil, fmt.Errorf("vector: describe pinecone index %q: %w", b.indexName, err)
	}
	return b.client.Index(pinecone.NewIndexConnParams{Host: index.Host})
}

// Search implements Backend, embedding queryText the same way the
// ingestion collaborator is expected to have embedded the corpus.
func (b *PineconeBackend) Search(ctx context.Context, queryText string, topK int) ([]Hit, error) {
	conn, err := b.connection(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	queryVec, err := hashEmbeddingFunc(ctx, queryText)
	if err != nil {
		return nil, err
	}

	resp, err := conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          queryVec,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, WrapAuthErrorIfUnauthenticated(err)
	}

	hits := make([]Hit, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		hits = append(hits, hitFromPineconeMatch(m))
	}
	return hits, nil
}

// Healthy implements Backend.
func (b *PineconeBackend) Healthy(ctx context.Context) (reachable bool, nonEmpty bool) {
	stats, err := b.client.DescribeIndex(ctx, b.indexName)
	if err != nil {
		return false, false
	}
	conn, err := b.client.Index(pinecone.NewIndexConnParams{Host: stats.Host})
	if err != nil {
		return true, false
	}
	defer conn.Close()

	describe, err := conn.DescribeIndexStats(ctx)
	if err != nil {
		return true, false
	}
	return true, describe.TotalVectorCount > 0
}

func hitFromPineconeMatch(m *pinecone.ScoredVector) Hit {
	h := Hit{Score: float64(m.Score), ContentType: ContentText}
	if m.Vector == nil || m.Vector.Metadata == nil {
		return h
	}
	fields := m.Vector.Metadata.AsMap()
	if v, ok := fields["document"].(string); ok {
		h.Document = v
	}
	if v, ok := fields["content"].(string); ok {
		h.Content = v
	}
	if v, ok := fields["page"].(float64); ok {
		h.Page = int(v)
	}
	if v, ok := fields["paragraph"].(float64); ok {
		p := int(v)
		h.Paragraph = &p
	}
	if v, ok := fields["title"].(string); ok {
		h.Title = &v
	}
	if v, ok := fields["content_type"].(string); ok && v == string(ContentImageOCR) {
		h.ContentType = ContentImageOCR
	}
	return h
}
