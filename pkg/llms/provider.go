package llms

import (
	"context"
	"errors"
)

// ErrLLM is the sentinel every provider wraps its failures in: request
// build errors, transport errors left after the client's retries, any
// non-200 status, and responses that could not be parsed.
var ErrLLM = errors.New("llm error")

// Provider is the uniform contract C4 exposes over any vendor API.
type Provider interface {
	// Complete runs a plain chat completion and returns the text.
	Complete(ctx context.Context, messages []Message) (string, error)
	// CompleteWithTools exposes tool schemas and returns either a final
	// assistant message or structured tool-call intents.
	CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (Completion, error)
	// Name identifies the provider for logging and registry lookup.
	Name() string
}
