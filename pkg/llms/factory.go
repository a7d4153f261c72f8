package llms

import (
	"fmt"

	"github.com/regulon-ai/regulon/pkg/config"
)

// New constructs the configured Provider.
func New(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case config.LLMAnthropic:
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
		})
	case config.LLMOpenAI:
		return NewOpenAIProvider(OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
		})
	default:
		return nil, fmt.Errorf("llms: unknown provider %q", cfg.Provider)
	}
}
