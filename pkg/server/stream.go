package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/regulon-ai/regulon/pkg/agentic"
	"github.com/regulon-ai/regulon/pkg/rag"
)

// handleQueryAgenticStream emits a Server-Sent Event per ToolCall as it
// completes during an agentic run, purely as an operational aid for
// watching a long run in progress. The authoritative response remains
// POST /query-agentic's final JSON body — no partial answer text is
// ever sent here, only tool-call progress events.
func (s *Server) handleQueryAgenticStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err))
		return
	}
	if len(rag.SanitizeQuestion(req.Question)) == 0 {
		writeError(w, http.StatusBadRequest, "question is empty")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	onToolCall := func(record agentic.ToolCallRecord) {
		writeSSEEvent(w, "tool_call", reasoningStepJSON{
			ID: record.ID, Iteration: record.Iteration, Name: record.Name,
			Arguments: record.Arguments, Result: record.Result,
		})
		flusher.Flush()
	}

	result, err := s.loop.Run(r.Context(), req.Question, req.Drawing, agentic.WithOnToolCall(onToolCall))
	if err != nil {
		writeSSEEvent(w, "error", errorBody{Error: err.Error()})
		flusher.Flush()
		return
	}

	writeSSEEvent(w, "done", streamDoneEvent{
		Answer:              result.Text,
		IterationsUsed:      result.IterationsUsed,
		IterationCapReached: result.IterationCap,
	})
	flusher.Flush()
}

type streamDoneEvent struct {
	Answer              string `json:"answer"`
	IterationsUsed      int    `json:"iterations_used"`
	IterationCapReached bool   `json:"iteration_cap_reached"`
}

func writeSSEEvent(w http.ResponseWriter, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
