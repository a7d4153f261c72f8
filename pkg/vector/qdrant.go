package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig configures QdrantBackend.
type QdrantConfig struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// QdrantBackend implements Backend against a remote Qdrant server over
// its gRPC API, for deployments that need a distributed index rather
// than the embedded chromem default.
type QdrantBackend struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantBackend dials the configured Qdrant instance.
func NewQdrantBackend(cfg QdrantConfig) (*QdrantBackend, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("vector: dial qdrant at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	return &QdrantBackend{client: client, collection: cfg.Collection}, nil
}

// Search implements Backend. The ingestion collaborator is assumed to
// have embedded and upserted the regulation corpus into the configured
// collection with the same embedding scheme this backend uses to
// embed the query text, matching the split of responsibilities §1
// draws between this service and the external embedding pipeline.
func (b *QdrantBackend) Search(ctx context.Context, queryText string, topK int) ([]Hit, error) {
	queryVec, err := hashEmbeddingFunc(ctx, queryText)
	if err != nil {
		return nil, err
	}

	result, err := b.client.GetPointsClient().Search(ctx, &qdrant.SearchPoints{
		CollectionName: b.collection,
		Vector:         queryVec,
		Limit:          uint64(topK),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, WrapAuthErrorIfUnauthenticated(err)
	}

	hits := make([]Hit, 0, len(result.Result))
	for _, p := range result.Result {
		hits = append(hits, hitFromQdrantPayload(p.Payload, float64(p.Score)))
	}
	return hits, nil
}

// Healthy implements Backend.
func (b *QdrantBackend) Healthy(ctx context.Context) (reachable bool, nonEmpty bool) {
	exists, err := b.client.CollectionExists(ctx, b.collection)
	if err != nil {
		return false, false
	}
	if !exists {
		return true, false
	}

	info, err := b.client.GetCollectionInfo(ctx, b.collection)
	if err != nil {
		return true, false
	}
	return true, info.GetPointsCount() > 0
}

func hitFromQdrantPayload(payload map[string]*qdrant.Value, score float64) Hit {
	get := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}

	h := Hit{
		Document:    get("document"),
		Content:     get("content"),
		ContentType: ContentText,
		Score:       score,
	}
	if v, ok := payload["page"]; ok {
		h.Page = int(v.GetIntegerValue())
	}
	if v, ok := payload["paragraph"]; ok {
		p := int(v.GetIntegerValue())
		h.Paragraph = &p
	}
	if t := get("title"); t != "" {
		h.Title = &t
	}
	if get("content_type") == string(ContentImageOCR) {
		h.ContentType = ContentImageOCR
	}
	return h
}

// WrapAuthErrorIfUnauthenticated marks a gRPC "unauthenticated"-shaped
// error as non-retryable per the gateway's contract; Qdrant surfaces
// auth failures as a plain status error rather than a typed one, so
// this checks the message text the client library produces.
func WrapAuthErrorIfUnauthenticated(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"unauthenticated", "invalid api-key", "permission denied"} {
		if strings.Contains(msg, needle) {
			return WrapAuthError(err)
		}
	}
	return err
}
