package llms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/regulon-ai/regulon/pkg/httpclient"
	"github.com/regulon-ai/regulon/pkg/observability"
)

// AnthropicProvider implements Provider against the Anthropic Messages
// API, called directly over net/http — no vendor SDK dependency.
type AnthropicProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	httpClient  *httpclient.Client
}

// AnthropicConfig configures AnthropicProvider.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// NewAnthropicProvider builds an AnthropicProvider per §4.4's retry and
// timeout defaults (60s timeout, 2 retries, 500ms backoff, honoring
// Retry-After on 429).
func NewAnthropicProvider(cfg AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llms: anthropic api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &AnthropicProvider{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(cfg.RetryDelay),
			httpclient.WithRateLimit(anthropicRequestsPerSecond, anthropicBurst),
		),
	}, nil
}

// anthropicRequestsPerSecond/anthropicBurst throttle ahead of Anthropic's
// default per-organization rate limit, so a burst of concurrent agentic
// tool-call turns degrades as added latency rather than a stream of 429s.
const (
	anthropicRequestsPerSecond = 5
	anthropicBurst             = 10
)

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string                  `json:"type"`
	Text      string                  `json:"text,omitempty"`
	ID        string                  `json:"id,omitempty"`
	Name      string                  `json:"name,omitempty"`
	Input     *map[string]interface{} `json:"input,omitempty"`
	ToolUseID string                  `json:"tool_use_id,omitempty"`
	Content   string                  `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Error      *anthropicError    `json:"error,omitempty"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Complete implements Provider.
func (p *AnthropicProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	c, err := p.CompleteWithTools(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

// CompleteWithTools implements Provider.
func (p *AnthropicProvider) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (completion Completion, err error) {
	start := time.Now()
	defer func() {
		observability.GlobalMetrics().ObserveLLMCall("anthropic", len(tools) > 0, time.Since(start).Seconds(), err)
	}()

	req := p.buildRequest(messages, tools)

	body, marshalErr := json.Marshal(req)
	if marshalErr != nil {
		err = fmt.Errorf("%w: marshal request: %v", ErrLLM, marshalErr)
		return Completion{}, err
	}

	httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if reqErr != nil {
		err = fmt.Errorf("%w: build request: %v", ErrLLM, reqErr)
		return Completion{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, doErr := p.httpClient.Do(httpReq)
	if doErr != nil {
		err = fmt.Errorf("%w: %v", ErrLLM, doErr)
		return Completion{}, err
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		err = fmt.Errorf("%w: read response: %v", ErrLLM, readErr)
		return Completion{}, err
	}

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("%w: anthropic status %d: %s", ErrLLM, resp.StatusCode, string(respBody))
		return Completion{}, err
	}

	var parsed anthropicResponse
	if unmarshalErr := json.Unmarshal(respBody, &parsed); unmarshalErr != nil {
		err = fmt.Errorf("%w: unparseable response: %v", ErrLLM, unmarshalErr)
		return Completion{}, err
	}
	if parsed.Error != nil {
		err = fmt.Errorf("%w: %s", ErrLLM, parsed.Error.Message)
		return Completion{}, err
	}

	return anthropicToCompletion(parsed), nil
}

func (p *AnthropicProvider) buildRequest(messages []Message, tools []ToolDefinition) anthropicRequest {
	req := anthropicRequest{
		Model:       p.model,
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}

	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			req.System = m.Content
		case RoleTool:
			req.Messages = append(req.Messages, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		case RoleAssistant:
			content := []anthropicContent{}
			if m.Content != "" {
				content = append(content, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				content = append(content, anthropicContent{
					Type:  "tool_use",
					ID:    tc.ID,
					Name:  tc.Name,
					Input: &args,
				})
			}
			req.Messages = append(req.Messages, anthropicMessage{Role: "assistant", Content: content})
		default:
			req.Messages = append(req.Messages, anthropicMessage{
				Role:    "user",
				Content: []anthropicContent{{Type: "text", Text: m.Content}},
			})
		}
	}

	for _, t := range tools {
		req.Tools = append(req.Tools, anthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	return req
}

func anthropicToCompletion(resp anthropicResponse) Completion {
	var c Completion
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			c.Text += block.Text
		case "tool_use":
			var args map[string]interface{}
			if block.Input != nil {
				args = *block.Input
			}
			raw, _ := json.Marshal(args)
			c.ToolCalls = append(c.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: args,
				RawArgs:   string(raw),
			})
		}
	}
	return c
}
