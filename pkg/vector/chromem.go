package vector

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemBackend implements Backend using chromem-go, an embedded,
// pure-Go vector store. It is the zero-config default: no external
// service, optional gzip-compressed file persistence.
type ChromemBackend struct {
	db         *chromem.DB
	collection *chromem.Collection
	mu         sync.Mutex
}

// ChromemConfig configures ChromemBackend.
type ChromemConfig struct {
	Collection  string
	PersistPath string
}

// NewChromemBackend opens (or creates) the configured collection. The
// embedding pipeline that would normally sit in front of the index is
// out of this service's scope (spec.md §1), so the collection uses a
// deterministic local hashing embedding: adequate for the embedded
// default, not meant to compete with a real semantic embedder in
// production (operators wanting that should point at Qdrant or
// Pinecone, where the index is populated by the ingestion
// collaborator).
func NewChromemBackend(cfg ChromemConfig) (*ChromemBackend, error) {
	var db *chromem.DB

	if cfg.PersistPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.PersistPath), 0o755); err != nil {
			return nil, fmt.Errorf("vector: create persist dir: %w", err)
		}
		loaded, err := chromem.NewPersistentDB(cfg.PersistPath, true)
		if err != nil {
			slog.Warn("vector: failed to load persisted chromem database, starting fresh", "path", cfg.PersistPath, "error", err)
			db = chromem.NewDB()
		} else {
			db = loaded
		}
	} else {
		db = chromem.NewDB()
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, hashEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("vector: get or create collection %q: %w", cfg.Collection, err)
	}

	return &ChromemBackend{db: db, collection: collection}, nil
}

// Search implements Backend.
func (b *ChromemBackend) Search(ctx context.Context, queryText string, topK int) ([]Hit, error) {
	b.mu.Lock()
	col := b.collection
	b.mu.Unlock()

	n := col.Count()
	if n == 0 {
		return nil, nil
	}
	if topK > n {
		topK = n
	}

	results, err := col.Query(ctx, queryText, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector: chromem query: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, hitFromMetadata(r.Content, r.Metadata, float64(r.Similarity)))
	}
	return hits, nil
}

// Healthy implements Backend; chromem is embedded so it is always
// reachable, but the index may legitimately be empty before the first
// ingestion run.
func (b *ChromemBackend) Healthy(ctx context.Context) (reachable bool, nonEmpty bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return true, b.collection.Count() > 0
}

func hitFromMetadata(content string, metadata map[string]string, score float64) Hit {
	h := Hit{Content: content, Score: score, ContentType: ContentText}
	h.Document = metadata["document"]
	if p := metadata["page"]; p != "" {
		fmt.Sscanf(p, "%d", &h.Page)
	}
	if p, ok := metadata["paragraph"]; ok && p != "" {
		var v int
		if _, err := fmt.Sscanf(p, "%d", &v); err == nil {
			h.Paragraph = &v
		}
	}
	if t, ok := metadata["title"]; ok && t != "" {
		title := t
		h.Title = &title
	}
	if ct, ok := metadata["content_type"]; ok && ct == string(ContentImageOCR) {
		h.ContentType = ContentImageOCR
	}
	return h
}

// hashEmbeddingFunc is a deterministic bag-of-words hashing embedding:
// every distinct lower-cased token is hashed into one of a fixed
// number of buckets, and the resulting vector is L2-normalized. It
// gives chromem-go something consistent to compute cosine similarity
// over without depending on an external embedding API.
const hashEmbeddingDims = 256

func hashEmbeddingFunc(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, hashEmbeddingDims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		sum := sha256.Sum256([]byte(tok))
		idx := (int(sum[0])<<8 | int(sum[1])) % hashEmbeddingDims
		vec[idx]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		return vec, nil
	}
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec, nil
}
