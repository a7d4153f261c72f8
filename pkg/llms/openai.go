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

// OpenAIProvider implements Provider against the Chat Completions API,
// called directly over net/http.
type OpenAIProvider struct {
	apiKey      string
	model       string
	baseURL     string
	temperature float64
	maxTokens   int
	httpClient  *httpclient.Client
}

// OpenAIConfig configures OpenAIProvider.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
}

// NewOpenAIProvider builds an OpenAIProvider with §4.4's retry cadence.
func NewOpenAIProvider(cfg OpenAIConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llms: openai api key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &OpenAIProvider{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     cfg.BaseURL,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		httpClient: httpclient.New(
			httpclient.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			httpclient.WithMaxRetries(cfg.MaxRetries),
			httpclient.WithBaseDelay(cfg.RetryDelay),
			httpclient.WithRateLimit(openAIRequestsPerSecond, openAIBurst),
		),
	}, nil
}

// openAIRequestsPerSecond/openAIBurst throttle ahead of OpenAI's default
// per-organization rate limit tier, for the same reason as Anthropic's.
const (
	openAIRequestsPerSecond = 5
	openAIBurst             = 10
)

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return "openai" }

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Tools       []openAITool    `json:"tools,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
	Name       string           `json:"name,omitempty"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAIResponse struct {
	Choices []openAIChoice `json:"choices"`
	Error   *openAIError   `json:"error,omitempty"`
}

type openAIChoice struct {
	Message      openAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// Complete implements Provider.
func (p *OpenAIProvider) Complete(ctx context.Context, messages []Message) (string, error) {
	c, err := p.CompleteWithTools(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

// CompleteWithTools implements Provider.
func (p *OpenAIProvider) CompleteWithTools(ctx context.Context, messages []Message, tools []ToolDefinition) (completion Completion, err error) {
	start := time.Now()
	defer func() {
		observability.GlobalMetrics().ObserveLLMCall("openai", len(tools) > 0, time.Since(start).Seconds(), err)
	}()

	req := p.buildRequest(messages, tools)

	body, marshalErr := json.Marshal(req)
	if marshalErr != nil {
		err = fmt.Errorf("%w: marshal request: %v", ErrLLM, marshalErr)
		return Completion{}, err
	}

	httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if reqErr != nil {
		err = fmt.Errorf("%w: build request: %v", ErrLLM, reqErr)
		return Completion{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

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
		err = fmt.Errorf("%w: openai status %d: %s", ErrLLM, resp.StatusCode, string(respBody))
		return Completion{}, err
	}

	var parsed openAIResponse
	if unmarshalErr := json.Unmarshal(respBody, &parsed); unmarshalErr != nil {
		err = fmt.Errorf("%w: unparseable response: %v", ErrLLM, unmarshalErr)
		return Completion{}, err
	}
	if parsed.Error != nil {
		err = fmt.Errorf("%w: %s", ErrLLM, parsed.Error.Message)
		return Completion{}, err
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, nil
	}

	return openAIToCompletion(parsed.Choices[0].Message)
}

func (p *OpenAIProvider) buildRequest(messages []Message, tools []ToolDefinition) openAIRequest {
	req := openAIRequest{
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}

	for _, m := range messages {
		wire := openAIMessage{Role: string(m.Role), Content: m.Content}
		if m.Role == RoleTool {
			wire.ToolCallID = m.ToolCallID
			wire.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			argsJSON, _ := json.Marshal(tc.Arguments)
			wire.ToolCalls = append(wire.ToolCalls, openAIToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: openAIFunctionCall{
					Name:      tc.Name,
					Arguments: string(argsJSON),
				},
			})
		}
		req.Messages = append(req.Messages, wire)
	}

	for _, t := range tools {
		req.Tools = append(req.Tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	return req
}

func openAIToCompletion(msg openAIMessage) (Completion, error) {
	c := Completion{Text: msg.Content}
	for _, tc := range msg.ToolCalls {
		var args map[string]interface{}
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			return Completion{}, fmt.Errorf("%w: malformed tool arguments for %s: %v", ErrLLM, tc.Function.Name, err)
		}
		c.ToolCalls = append(c.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: args,
			RawArgs:   tc.Function.Arguments,
		})
	}
	return c, nil
}
