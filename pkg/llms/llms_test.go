package llms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropicToCompletionPrefersToolCalls(t *testing.T) {
	resp := anthropicResponse{
		Content: []anthropicContent{
			{Type: "text", Text: "thinking..."},
			{Type: "tool_use", ID: "call_1", Name: "retrieve_regulations", Input: &map[string]interface{}{"query": "extension depth"}},
		},
	}

	c := anthropicToCompletion(resp)
	require.True(t, c.HasToolCalls())
	assert.Equal(t, "retrieve_regulations", c.ToolCalls[0].Name)
	assert.Equal(t, "extension depth", c.ToolCalls[0].Arguments["query"])
}

func TestOpenAIToCompletionParsesArguments(t *testing.T) {
	msg := openAIMessage{
		ToolCalls: []openAIToolCall{{
			ID:       "call_1",
			Function: openAIFunctionCall{Name: "calculate_drawing_dimensions", Arguments: `{"dimension_type":"all"}`},
		}},
	}

	c, err := openAIToCompletion(msg)
	require.NoError(t, err)
	require.Len(t, c.ToolCalls, 1)
	assert.Equal(t, "all", c.ToolCalls[0].Arguments["dimension_type"])
}

func TestOpenAIToCompletionRejectsMalformedArguments(t *testing.T) {
	msg := openAIMessage{
		ToolCalls: []openAIToolCall{{
			ID:       "call_1",
			Function: openAIFunctionCall{Name: "calculate_drawing_dimensions", Arguments: `{not json`},
		}},
	}

	_, err := openAIToCompletion(msg)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrLLM)
}

func TestAnthropicBuildRequestRoutesRoles(t *testing.T) {
	p := &AnthropicProvider{model: "claude-3-5-sonnet-latest", maxTokens: 500, temperature: 0.3}
	req := p.buildRequest([]Message{
		{Role: RoleSystem, Content: "system prompt"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleTool, ToolCallID: "call_1", Content: `{"success":true}`},
	}, nil)

	assert.Equal(t, "system prompt", req.System)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "user", req.Messages[0].Role)
	assert.Equal(t, "tool_result", req.Messages[1].Content[0].Type)
}
