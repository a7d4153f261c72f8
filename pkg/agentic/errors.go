package agentic

import (
	"errors"
	"strconv"
)

// ErrAgenticFailure is the sentinel the loop wraps any exception from
// the LLM client that escapes CompleteWithTools's own error handling in.
// The orchestrator catches it and silently falls back to standard mode.
var ErrAgenticFailure = errors.New("agentic loop failure")

// CanceledError is returned when the request's context is found
// canceled between iterations or before a tool call is dispatched. It
// carries the partial trace accumulated so far
// so the orchestrator can preserve it in the RequestTimeout response.
type CanceledError struct {
	Cause     error
	ToolCalls []ToolCallRecord
}

func (e *CanceledError) Error() string {
	return "agentic: canceled after " + strconv.Itoa(len(e.ToolCalls)) + " tool call(s): " + e.Cause.Error()
}

func (e *CanceledError) Unwrap() error { return e.Cause }
