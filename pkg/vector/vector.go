// Package vector implements the Retrieval Gateway (C2): a uniform,
// retrying façade over whichever external vector index backend is
// configured. The index itself, and the chunk embedding pipeline that
// populates it, are external collaborators — this package only issues
// queries and normalizes hits.
package vector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/regulon-ai/regulon/pkg/observability"
)

// ErrRetrievalUnavailable is the sentinel for a backend that is
// unreachable or returns a non-ok status after the retry budget is
// exhausted.
var ErrRetrievalUnavailable = errors.New("retrieval backend unavailable")

// ContentType distinguishes OCR'd image chunks from plain text chunks.
type ContentType string

const (
	ContentText     ContentType = "text"
	ContentImageOCR ContentType = "image-ocr"
)

// Hit is one normalized retrieval result, matching the retrieval
// backend contract verbatim: document, page, optional paragraph/title,
// content, content type, and a relevance score in [0, 1].
type Hit struct {
	Document    string      `json:"document"`
	Page        int         `json:"page"`
	Paragraph   *int        `json:"paragraph,omitempty"`
	Title       *string     `json:"title,omitempty"`
	Content     string      `json:"content"`
	ContentType ContentType `json:"content_type"`
	Score       float64     `json:"score"`
}

// Backend is the minimal contract any vector index integration must
// satisfy. Implementations own their own transport, auth, and
// similarity scoring; the Gateway only adds retry, thresholding, and
// top_k bounding on top.
type Backend interface {
	// Search returns hits for queryText ordered by decreasing
	// relevance, already scored in [0, 1].
	Search(ctx context.Context, queryText string, topK int) ([]Hit, error)
	// Healthy reports whether the backend is reachable and whether its
	// index currently holds any documents (for GET /health).
	Healthy(ctx context.Context) (reachable bool, nonEmpty bool)
}

// GatewayConfig tunes the retry cadence and default thresholds the
// spec assigns to the Retrieval Gateway.
type GatewayConfig struct {
	TopKDefault        int
	RelevanceThreshold float64
}

func (c GatewayConfig) withDefaults() GatewayConfig {
	if c.TopKDefault == 0 {
		c.TopKDefault = 5
	}
	if c.RelevanceThreshold == 0 {
		c.RelevanceThreshold = 0.7
	}
	return c
}

// Gateway wraps a Backend with the retrieval contract: top_k bounding,
// relevance-threshold filtering, and up to three retries with
// exponential backoff (100ms, 400ms, 1.6s) spec.md §4.2 specifies.
type Gateway struct {
	backend Backend
	cfg     GatewayConfig
}

// NewGateway builds a Gateway over backend.
func NewGateway(backend Backend, cfg GatewayConfig) *Gateway {
	return &Gateway{backend: backend, cfg: cfg.withDefaults()}
}

// Healthy reports the backend's reachability and whether its index
// holds any documents (for GET /health).
func (g *Gateway) Healthy(ctx context.Context) (reachable bool, nonEmpty bool) {
	return g.backend.Healthy(ctx)
}

// retryDelays is the fixed backoff ladder spec.md §4.2 names; it is
// deliberately not exponential-with-jitter like pkg/httpclient's LLM
// cadence since the spec pins exact millisecond values.
var retryDelays = []time.Duration{100 * time.Millisecond, 400 * time.Millisecond, 1600 * time.Millisecond}

// authError, when wrapped by a Backend's error, signals the gateway
// must not retry (spec.md §4.2: "never retries on authentication
// errors").
type authError struct{ err error }

func (e *authError) Error() string { return e.err.Error() }
func (e *authError) Unwrap() error { return e.err }

// WrapAuthError marks err as a non-retryable authentication failure.
func WrapAuthError(err error) error { return &authError{err: err} }

func isAuthError(err error) bool {
	var ae *authError
	return errors.As(err, &ae)
}

// Retrieve applies top_k bounding, executes Backend.Search with the
// retry ladder, then applies the relevance threshold. top_k <= 0 uses
// the configured default; it is always clamped to [1, 20].
func (g *Gateway) Retrieve(ctx context.Context, queryText string, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = g.cfg.TopKDefault
	}
	topK = clampInt(topK, 1, 20)

	start := time.Now()
	backendName := fmt.Sprintf("%T", g.backend)

	var hits []Hit
	var lastErr error

	for attempt := 0; attempt <= len(retryDelays); attempt++ {
		var err error
		hits, err = g.backend.Search(ctx, queryText, topK)
		if err == nil {
			filtered := filterByRelevance(hits, g.cfg.RelevanceThreshold)
			observability.GlobalMetrics().ObserveRetrieval(backendName, "success", len(filtered), time.Since(start).Seconds())
			return filtered, nil
		}

		lastErr = err
		if isAuthError(err) {
			observability.GlobalMetrics().ObserveRetrieval(backendName, "auth_error", 0, time.Since(start).Seconds())
			return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
		}
		if attempt >= len(retryDelays) {
			break
		}

		select {
		case <-ctx.Done():
			observability.GlobalMetrics().ObserveRetrieval(backendName, "canceled", 0, time.Since(start).Seconds())
			return nil, ctx.Err()
		case <-time.After(retryDelays[attempt]):
		}
	}

	observability.GlobalMetrics().ObserveRetrieval(backendName, "unavailable", 0, time.Since(start).Seconds())
	return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, lastErr)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func filterByRelevance(hits []Hit, threshold float64) []Hit {
	if threshold <= 0 {
		return hits
	}
	out := make([]Hit, 0, len(hits))
	for _, h := range hits {
		if h.Score >= threshold {
			out = append(out, h)
		}
	}
	return out
}
