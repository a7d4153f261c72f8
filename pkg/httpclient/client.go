// Package httpclient provides an HTTP client with retry, exponential
// backoff, and rate-limit header handling, used by the LLM providers
// (pkg/llms).
package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// RetryStrategy describes how a failed response should be retried.
type RetryStrategy int

const (
	// NoRetry means the response/error is terminal.
	NoRetry RetryStrategy = iota
	// ConservativeRetry retries a bounded number of times with delays
	// that grow linearly with the attempt number (408, 502, 503, 504).
	ConservativeRetry
	// SmartRetry honors rate-limit headers with exponential backoff
	// (HTTP 429).
	SmartRetry
)

// RateLimitInfo is parsed from response headers when present.
type RateLimitInfo struct {
	RetryAfter time.Duration
}

// HeaderParser extracts rate-limit info from response headers.
type HeaderParser func(http.Header) RateLimitInfo

// StrategyFunc maps a status code to a RetryStrategy.
type StrategyFunc func(statusCode int) RetryStrategy

// DefaultStrategy implements the classification spec.md §4.4 requires:
// 429 retries with backoff honoring Retry-After; 408, 502, 503 and 504
// get a small conservative retry budget; every other status (including
// 500 and the remaining 4xx codes) is terminal.
func DefaultStrategy(statusCode int) RetryStrategy {
	switch statusCode {
	case http.StatusTooManyRequests:
		return SmartRetry
	case http.StatusRequestTimeout, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return ConservativeRetry
	default:
		return NoRetry
	}
}

// RetryAfterHeaderParser reads the standard Retry-After header,
// interpreted as seconds.
func RetryAfterHeaderParser(h http.Header) RateLimitInfo {
	v := h.Get("Retry-After")
	if v == "" {
		return RateLimitInfo{}
	}
	var seconds int
	if _, err := fmt.Sscanf(v, "%d", &seconds); err != nil || seconds <= 0 {
		return RateLimitInfo{}
	}
	return RateLimitInfo{RetryAfter: time.Duration(seconds) * time.Second}
}

// Client wraps http.Client with retry and backoff.
type Client struct {
	client       *http.Client
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	headerParser HeaderParser
	strategyFunc StrategyFunc
	limiter      *rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option { return func(cl *Client) { cl.client = c } }
func WithMaxRetries(n int) Option          { return func(cl *Client) { cl.maxRetries = n } }
func WithBaseDelay(d time.Duration) Option { return func(cl *Client) { cl.baseDelay = d } }
func WithMaxDelay(d time.Duration) Option  { return func(cl *Client) { cl.maxDelay = d } }
func WithHeaderParser(p HeaderParser) Option {
	return func(cl *Client) { cl.headerParser = p }
}
func WithStrategy(f StrategyFunc) Option { return func(cl *Client) { cl.strategyFunc = f } }

// WithRateLimit caps outbound requests to rps requests/second with a
// burst of burst, ahead of any server-side 429 — proactive throttling
// for providers (e.g. the LLM APIs) that charge per-request quota
// rather than just returning Retry-After.
func WithRateLimit(rps float64, burst int) Option {
	return func(cl *Client) { cl.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// New builds a Client. Defaults match spec.md §4.4 for the LLM client
// (2 retries, 500ms base). The Retrieval Gateway's 100/400/1600ms
// ladder is not built on this client; pkg/vector implements it itself.
func New(opts ...Option) *Client {
	c := &Client{
		client:       &http.Client{Timeout: 60 * time.Second},
		maxRetries:   2,
		baseDelay:    500 * time.Millisecond,
		maxDelay:     30 * time.Second,
		strategyFunc: DefaultStrategy,
		headerParser: RetryAfterHeaderParser,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes req with retries. The request body, if any, is buffered
// so it can be replayed on each attempt.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("httpclient: rate limiter: %w", err)
		}
	}

	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("httpclient: read request body: %w", err)
		}
		req.Body.Close()
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if bodyBytes != nil {
			req.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			req.ContentLength = int64(len(bodyBytes))
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("httpclient: transport error after %d attempts: %w", attempt+1, err)
			}
			c.sleep(c.delayFor(ConservativeRetry, attempt, RateLimitInfo{}), attempt, 0)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		strategy := c.strategyFunc(resp.StatusCode)
		if strategy == NoRetry || attempt >= c.maxRetries {
			return resp, nil
		}

		var info RateLimitInfo
		if c.headerParser != nil {
			info = c.headerParser(resp.Header)
		}
		delay := c.delayFor(strategy, attempt, info)
		resp.Body.Close()
		c.sleep(delay, attempt, resp.StatusCode)
	}

	return nil, fmt.Errorf("httpclient: exhausted retries: %w", lastErr)
}

func (c *Client) delayFor(strategy RetryStrategy, attempt int, info RateLimitInfo) time.Duration {
	switch strategy {
	case SmartRetry:
		if info.RetryAfter > 0 {
			return min(info.RetryAfter, c.maxDelay)
		}
		delay := time.Duration(math.Pow(2, float64(attempt))) * c.baseDelay
		jitter := time.Duration(rand.Float64() * float64(delay) * 0.1)
		return min(delay+jitter, c.maxDelay)
	case ConservativeRetry:
		return min(c.baseDelay*time.Duration(attempt+1)*4, c.maxDelay)
	default:
		return 0
	}
}

func (c *Client) sleep(d time.Duration, attempt, statusCode int) {
	if d <= 0 {
		return
	}
	slog.Debug("httpclient: retrying", "attempt", attempt+1, "status", statusCode, "delay", d)
	time.Sleep(d)
}
