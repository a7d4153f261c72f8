// Package tool implements the fixed five-tool registry the agentic loop
// dispatches against: retrieve_regulations, analyze_drawing_compliance,
// calculate_drawing_dimensions, generate_compliant_design, and
// verify_compliance. Unlike a general-purpose tool framework, none of
// these stream, none require human approval, and none run long — so the
// interface is pared down to Name/Description/Schema/Call.
package tool

import (
	"context"

	"github.com/regulon-ai/regulon/pkg/drawing"
)

// Context carries the request-scoped values a tool call may need beyond
// its own arguments — principally the drawing attached to the enclosing
// query, which tools 2, 3, and 5 read directly rather than accepting as
// an explicit (and therefore LLM-editable) argument.
type Context struct {
	context.Context
	Drawing *drawing.Drawing
}

// Tool is the uniform contract the registry and dispatcher hold.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON-Schema parameter definition handed to the
	// model alongside Description.
	Schema() map[string]any
	// Call executes the tool. Implementations must never return a Go
	// error for a business-logic failure — catch it and report
	// {"success": false, "error": "..."} instead, so a single failed
	// tool call can't abort the agentic loop.
	Call(ctx Context, args map[string]any) (map[string]any, error)
}

// errorResult builds the canonical failure shape every tool returns
// instead of propagating a Go error.
func errorResult(err error) map[string]any {
	return map[string]any{
		"success": false,
		"error":   err.Error(),
	}
}
