// Package llms provides the uniform request/response surface the rest
// of the module uses for both plain completions and tool-enabled
// completions, plus hand-rolled HTTP clients for Anthropic and OpenAI —
// the vendor SDKs are heavier than this service needs and the wire
// format is simple enough to own directly.
package llms

// Role identifies who authored a ConversationTurn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one ConversationTurn in the universal wire format every
// provider is translated to and from.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolDefinition is the schema a provider advertises to the model,
// generated from Go struct tags by pkg/tool.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall is one tool invocation the model emitted.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
	RawArgs   string                 `json:"raw_args"`
}

// Completion is the result of a tool-enabled completion: either a
// final text answer, or one or more tool-call intents. Per spec.md
// §4.4, when both are present tool calls take precedence.
type Completion struct {
	Text      string
	ToolCalls []ToolCall
}

// HasToolCalls reports whether the model chose to call tools rather
// than respond in prose.
func (c Completion) HasToolCalls() bool {
	return len(c.ToolCalls) > 0
}
