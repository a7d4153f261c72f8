// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for Regulon, scoped to the query/retrieval/tool/agentic
// surfaces this service exposes.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalMetrics *Metrics
	metricsMu     sync.RWMutex
)

// SetGlobalMetrics installs m as the process-wide metrics sink, so
// packages that can't take a *Metrics through their constructor
// (llms, vector, tool, agentic) can still record against it.
func SetGlobalMetrics(m *Metrics) {
	metricsMu.Lock()
	defer metricsMu.Unlock()
	globalMetrics = m
}

// GlobalMetrics returns the process-wide metrics sink, or nil if none
// was installed (e.g. metrics disabled) — every Observe* method is a
// nil-receiver no-op, so callers never need to check first.
func GlobalMetrics() *Metrics {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	return globalMetrics
}

// MetricsConfig tunes the metrics subsystem.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

func (c *MetricsConfig) SetDefaults() {
	if c.Namespace == "" {
		c.Namespace = "regulon"
	}
}

// Metrics holds every Prometheus collector Regulon emits.
type Metrics struct {
	config   *MetricsConfig
	registry *prometheus.Registry

	queryTotal     *prometheus.CounterVec
	queryDuration  *prometheus.HistogramVec
	queryTierTotal *prometheus.CounterVec
	queryErrors    *prometheus.CounterVec

	retrievalTotal    *prometheus.CounterVec
	retrievalDuration *prometheus.HistogramVec
	retrievalHits     *prometheus.HistogramVec

	llmCalls        *prometheus.CounterVec
	llmCallDuration *prometheus.HistogramVec
	llmErrors       *prometheus.CounterVec

	toolCalls        *prometheus.CounterVec
	toolCallDuration *prometheus.HistogramVec
	toolErrors       *prometheus.CounterVec

	agenticIterations *prometheus.HistogramVec
	agenticCapHits    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewMetrics builds a Metrics instance, or returns (nil, nil) when
// disabled. The Observe* methods are no-ops on a nil *Metrics; Handler
// needs a non-nil one.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	m := &Metrics{config: cfg, registry: prometheus.NewRegistry()}
	m.initQueryMetrics()
	m.initRetrievalMetrics()
	m.initLLMMetrics()
	m.initToolMetrics()
	m.initAgenticMetrics()
	m.initHTTPMetrics()
	return m, nil
}

func (m *Metrics) initQueryMetrics() {
	m.queryTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "query", Name: "total",
		Help: "Total number of Answer calls, by mode",
	}, []string{"mode"})

	m.queryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "query", Name: "duration_seconds",
		Help: "Answer call duration in seconds", Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"mode"})

	m.queryTierTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "query", Name: "tier_total",
		Help: "Total number of answers landing on each fallback tier",
	}, []string{"tier"})

	m.queryErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "query", Name: "errors_total",
		Help: "Total number of Answer calls returning an error, by kind",
	}, []string{"kind"})

	m.registry.MustRegister(m.queryTotal, m.queryDuration, m.queryTierTotal, m.queryErrors)
}

func (m *Metrics) initRetrievalMetrics() {
	m.retrievalTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "retrieval", Name: "total",
		Help: "Total number of Retrieval Gateway calls",
	}, []string{"backend", "outcome"})

	m.retrievalDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "retrieval", Name: "duration_seconds",
		Help: "Retrieval Gateway call duration in seconds", Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	m.retrievalHits = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "retrieval", Name: "hits",
		Help: "Number of chunks returned per retrieval call", Buckets: []float64{0, 1, 2, 3, 5, 8, 13, 20},
	}, []string{"backend"})

	m.registry.MustRegister(m.retrievalTotal, m.retrievalDuration, m.retrievalHits)
}

func (m *Metrics) initLLMMetrics() {
	m.llmCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "calls_total",
		Help: "Total number of LLM provider calls",
	}, []string{"provider", "tool_enabled"})

	m.llmCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "call_duration_seconds",
		Help: "LLM provider call duration in seconds", Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"provider"})

	m.llmErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "llm", Name: "errors_total",
		Help: "Total number of LLM provider call failures",
	}, []string{"provider"})

	m.registry.MustRegister(m.llmCalls, m.llmCallDuration, m.llmErrors)
}

func (m *Metrics) initToolMetrics() {
	m.toolCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "calls_total",
		Help: "Total number of tool dispatches, by tool name",
	}, []string{"tool"})

	m.toolCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "call_duration_seconds",
		Help: "Tool dispatch duration in seconds", Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	m.toolErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "tool", Name: "errors_total",
		Help: "Total number of tool dispatches returning success=false",
	}, []string{"tool"})

	m.registry.MustRegister(m.toolCalls, m.toolCallDuration, m.toolErrors)
}

func (m *Metrics) initAgenticMetrics() {
	m.agenticIterations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "agentic", Name: "iterations",
		Help: "Iterations used per agentic run", Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}, []string{})

	m.agenticCapHits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "agentic", Name: "iteration_cap_total",
		Help: "Total number of agentic runs that hit the iteration cap",
	}, []string{})

	m.registry.MustRegister(m.agenticIterations, m.agenticCapHits)
}

func (m *Metrics) initHTTPMetrics() {
	m.httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.config.Namespace, Subsystem: "http", Name: "requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"route", "method", "status"})

	m.httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.config.Namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help: "HTTP request duration in seconds", Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	m.registry.MustRegister(m.httpRequests, m.httpDuration)
}

// Handler exposes the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveQuery(mode string, tier string, seconds float64) {
	if m == nil {
		return
	}
	m.queryTotal.WithLabelValues(mode).Inc()
	m.queryDuration.WithLabelValues(mode).Observe(seconds)
	m.queryTierTotal.WithLabelValues(tier).Inc()
}

func (m *Metrics) ObserveQueryError(kind string) {
	if m == nil {
		return
	}
	m.queryErrors.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRetrieval(backend, outcome string, hits int, seconds float64) {
	if m == nil {
		return
	}
	m.retrievalTotal.WithLabelValues(backend, outcome).Inc()
	m.retrievalDuration.WithLabelValues(backend).Observe(seconds)
	m.retrievalHits.WithLabelValues(backend).Observe(float64(hits))
}

func (m *Metrics) ObserveLLMCall(provider string, toolEnabled bool, seconds float64, err error) {
	if m == nil {
		return
	}
	m.llmCalls.WithLabelValues(provider, boolLabel(toolEnabled)).Inc()
	m.llmCallDuration.WithLabelValues(provider).Observe(seconds)
	if err != nil {
		m.llmErrors.WithLabelValues(provider).Inc()
	}
}

func (m *Metrics) ObserveToolCall(tool string, seconds float64, success bool) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool).Inc()
	m.toolCallDuration.WithLabelValues(tool).Observe(seconds)
	if !success {
		m.toolErrors.WithLabelValues(tool).Inc()
	}
}

func (m *Metrics) ObserveAgenticRun(iterations int, hitCap bool) {
	if m == nil {
		return
	}
	m.agenticIterations.WithLabelValues().Observe(float64(iterations))
	if hitCap {
		m.agenticCapHits.WithLabelValues().Inc()
	}
}

func (m *Metrics) ObserveHTTPRequest(route, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, status).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(seconds)
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
