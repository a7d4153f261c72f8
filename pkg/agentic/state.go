// Package agentic implements the bounded tool-calling loop (C6): given a
// question and an optional drawing, it repeatedly calls the LLM client
// with the full tool schema, dispatches whatever tool calls come back,
// and feeds the results back in, until the model answers in prose or the
// iteration cap is reached.
package agentic

import (
	"time"

	"github.com/google/uuid"

	"github.com/regulon-ai/regulon/pkg/drawing"
	"github.com/regulon-ai/regulon/pkg/llms"
)

// ToolCallRecord is one dispatched tool call, kept for the trace
// attached to agentic AnswerResults.
type ToolCallRecord struct {
	ID        string
	Iteration int
	Name      string
	Arguments map[string]interface{}
	Result    map[string]interface{}
	Timestamp time.Time
	Duration  time.Duration
}

// State carries everything the loop accumulates across iterations.
type State struct {
	Question          string
	Drawing           *drawing.Drawing
	ConversationTurns []llms.Message
	ToolCalls         []ToolCallRecord
	Iteration         int
}

func newToolCallRecord(iteration int, tc llms.ToolCall, result map[string]interface{}) ToolCallRecord {
	return ToolCallRecord{
		ID:        toolCallID(tc),
		Iteration: iteration,
		Name:      tc.Name,
		Arguments: tc.Arguments,
		Result:    result,
	}
}

func toolCallID(tc llms.ToolCall) string {
	if tc.ID != "" {
		return tc.ID
	}
	return uuid.NewString()
}
