// Package server exposes the Orchestrator over HTTP: POST /query,
// POST /query-agentic, GET /query-agentic/stream (SSE progress events),
// GET /knowledge-summary, GET /health, and POST /internal/reindex.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/regulon-ai/regulon/pkg/agentic"
	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/fallback"
	"github.com/regulon-ai/regulon/pkg/knowledge"
	"github.com/regulon-ai/regulon/pkg/observability"
	"github.com/regulon-ai/regulon/pkg/orchestrator"
	"github.com/regulon-ai/regulon/pkg/rag"
	"github.com/regulon-ai/regulon/pkg/vector"
)

// Reindexer is the subset of knowledge.Service the reindex endpoint
// drives: delete-before-rebuild, regenerate-at-end.
type Reindexer interface {
	Delete() error
	Regenerate(ctx context.Context, llm knowledge.Completer, sampleChunks []string) (knowledge.Summary, error)
}

// Server wires an Orchestrator behind a chi router.
type Server struct {
	orch      *orchestrator.Orchestrator
	loop      *agentic.Loop
	gateway   *vector.Gateway
	knowledge *knowledge.Service
	llm       knowledge.Completer
	metrics   *observability.Metrics
	logger    *slog.Logger
	addr      string
	http      *http.Server
}

// Config configures a Server.
type Config struct {
	Addr      string
	Orch      *orchestrator.Orchestrator
	Loop      *agentic.Loop
	Gateway   *vector.Gateway
	Knowledge *knowledge.Service
	LLM       knowledge.Completer
	Metrics   *observability.Metrics
	Logger    *slog.Logger
}

// New builds a Server ready to Start.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		orch:      cfg.Orch,
		loop:      cfg.Loop,
		gateway:   cfg.Gateway,
		knowledge: cfg.Knowledge,
		llm:       cfg.LLM,
		metrics:   cfg.Metrics,
		logger:    logger,
		addr:      cfg.Addr,
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)

	r.Post("/query", s.handleQuery(orchestrator.ModeStandard))
	r.Post("/query-agentic", s.handleQuery(orchestrator.ModeAgentic))
	r.Get("/query-agentic/stream", s.handleQueryAgenticStream)
	r.Get("/knowledge-summary", s.handleKnowledgeSummary)
	r.Get("/health", s.handleHealth)
	r.Post("/internal/reindex", s.handleReindex)

	return r
}

// Start runs the HTTP server until ctx is canceled, then shuts it down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.addr,
		Handler:      s.router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 150 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "address", s.addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

type queryRequest struct {
	Question string           `json:"question"`
	Drawing  *drawing.Drawing `json:"drawing,omitempty"`
	TopK     int              `json:"top_k,omitempty"`
}

type queryResponse struct {
	Answer              string               `json:"answer"`
	AnswerType          fallback.AnswerType  `json:"answer_type"`
	Sources             []rag.RetrievedChunk `json:"sources,omitempty"`
	DrawingContextUsed  bool                 `json:"drawing_context_used"`
	ReasoningSteps      []reasoningStepJSON  `json:"reasoning_steps,omitempty"`
	KnowledgeSummary    *knowledge.Summary   `json:"knowledge_summary,omitempty"`
	IterationCapReached bool                 `json:"iteration_cap_reached,omitempty"`
}

type reasoningStepJSON struct {
	ID        string                 `json:"id"`
	Iteration int                    `json:"iteration"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	Result    map[string]interface{} `json:"result"`
}

func (s *Server) handleQuery(mode orchestrator.Mode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))
			return
		}

		start := time.Now()
		result, err := s.orch.Answer(r.Context(), orchestrator.Request{
			Question: req.Question, Drawing: req.Drawing, Mode: mode, TopK: req.TopK,
		})
		s.observeQuery(string(mode), err, result, time.Since(start))
		if err != nil {
			s.writeOrchestratorError(w, err, result)
			return
		}

		writeJSON(w, http.StatusOK, toQueryResponse(result))
	}
}

func (s *Server) observeQuery(mode string, err error, result orchestrator.AnswerResult, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	if err != nil {
		s.metrics.ObserveQueryError(errorKind(err))
		return
	}
	s.metrics.ObserveQuery(mode, string(result.AnswerType), elapsed.Seconds())
}

func toReasoningStepsJSON(steps []agentic.ToolCallRecord) []reasoningStepJSON {
	out := make([]reasoningStepJSON, 0, len(steps))
	for _, rs := range steps {
		out = append(out, reasoningStepJSON{ID: rs.ID, Iteration: rs.Iteration, Name: rs.Name, Arguments: rs.Arguments, Result: rs.Result})
	}
	return out
}

func toQueryResponse(result orchestrator.AnswerResult) queryResponse {
	steps := toReasoningStepsJSON(result.ReasoningSteps)
	return queryResponse{
		Answer:              result.Answer,
		AnswerType:          result.AnswerType,
		Sources:             result.Sources,
		DrawingContextUsed:  result.DrawingContextUsed,
		ReasoningSteps:      steps,
		KnowledgeSummary:    result.KnowledgeSummary,
		IterationCapReached: result.IterationCapReached,
	}
}

func (s *Server) writeOrchestratorError(w http.ResponseWriter, err error, partial orchestrator.AnswerResult) {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidQuestion), errors.Is(err, orchestrator.ErrQuestionTooLong):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrRequestTimeout):
		writeErrorWithTrace(w, http.StatusGatewayTimeout, err.Error(), toReasoningStepsJSON(partial.ReasoningSteps))
	default:
		s.logger.Error("unexpected orchestrator error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, orchestrator.ErrInvalidQuestion):
		return "invalid_question"
	case errors.Is(err, orchestrator.ErrQuestionTooLong):
		return "question_too_long"
	case errors.Is(err, orchestrator.ErrRequestTimeout):
		return "request_timeout"
	default:
		return "internal"
	}
}

func (s *Server) handleKnowledgeSummary(w http.ResponseWriter, r *http.Request) {
	summary := s.knowledge.Current()
	writeJSON(w, http.StatusOK, summary)
}

type healthResponse struct {
	Status         string `json:"status"`
	IndexReachable bool   `json:"index_reachable"`
	IndexNonEmpty  bool   `json:"index_non_empty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reachable, nonEmpty := s.gateway.Healthy(r.Context())
	status := "ok"
	code := http.StatusOK
	if !reachable {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, healthResponse{Status: status, IndexReachable: reachable, IndexNonEmpty: nonEmpty})
}

type reindexRequest struct {
	SampleChunks []string `json:"sample_chunks"`
}

// handleReindex implements the delete-before-rebuild lifecycle: the
// caller (an external ingestion process, per §1's Non-goals) signals
// that new content has landed, and this endpoint clears the stale
// summary before regenerating against the fresh sample.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))
		return
	}

	if err := s.knowledge.Delete(); err != nil {
		s.logger.Error("reindex: delete stale summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear stale summary")
		return
	}

	summary, err := s.knowledge.Regenerate(r.Context(), s.llm, req.SampleChunks)
	if err != nil {
		s.logger.Error("reindex: regenerate summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to regenerate summary")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error          string              `json:"error"`
	ReasoningSteps []reasoningStepJSON `json:"reasoning_steps,omitempty"`
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorBody{Error: message})
}

// writeErrorWithTrace attaches whatever partial tool-call trace survived a
// canceled request, so a 504 still reports what the agentic loop managed
// to do before the deadline hit.
func writeErrorWithTrace(w http.ResponseWriter, status int, message string, steps []reasoningStepJSON) {
	writeJSON(w, status, errorBody{Error: message, ReasoningSteps: steps})
}
