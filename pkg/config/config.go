// Package config loads and validates Regulon's process configuration:
// LLM provider credentials, vector backend selection, and the tunables
// spec.md §6 names (top_k, relevance_threshold, max_iterations, ...).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// LLMProviderKind selects which hand-rolled HTTP client pkg/llms constructs.
type LLMProviderKind string

const (
	LLMAnthropic LLMProviderKind = "anthropic"
	LLMOpenAI    LLMProviderKind = "openai"
)

// VectorBackendKind selects the pkg/vector.Backend implementation.
type VectorBackendKind string

const (
	VectorChromem  VectorBackendKind = "chromem"
	VectorQdrant   VectorBackendKind = "qdrant"
	VectorPinecone VectorBackendKind = "pinecone"
)

// LLMConfig configures the LLM client (C4).
type LLMConfig struct {
	Provider    LLMProviderKind `yaml:"provider" mapstructure:"provider"`
	Model       string          `yaml:"model" mapstructure:"model"`
	APIKey      string          `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string          `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Temperature float64         `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int             `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     time.Duration   `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries  int             `yaml:"max_retries" mapstructure:"max_retries"`
	RetryDelay  time.Duration   `yaml:"retry_delay" mapstructure:"retry_delay"`
}

func (c *LLMConfig) setDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 500
	}
	if c.Timeout == 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = 500 * time.Millisecond
	}
}

func (c *LLMConfig) validate() error {
	if c.Provider != LLMAnthropic && c.Provider != LLMOpenAI {
		return fmt.Errorf("%w: llm.provider %q unsupported (want anthropic|openai)", ErrConfiguration, c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("%w: llm.api_key is required", ErrConfiguration)
	}
	return nil
}

// VectorConfig configures the Retrieval Gateway's backend (C2).
type VectorConfig struct {
	Provider           VectorBackendKind `yaml:"provider" mapstructure:"provider"`
	Collection         string            `yaml:"collection" mapstructure:"collection"`
	PersistPath        string            `yaml:"persist_path,omitempty" mapstructure:"persist_path"`
	Host               string            `yaml:"host,omitempty" mapstructure:"host"`
	Port               int               `yaml:"port,omitempty" mapstructure:"port"`
	APIKey             string            `yaml:"api_key,omitempty" mapstructure:"api_key"`
	TopKDefault        int               `yaml:"top_k_default" mapstructure:"top_k_default"`
	RelevanceThreshold float64           `yaml:"relevance_threshold" mapstructure:"relevance_threshold"`
}

func (c *VectorConfig) setDefaults() {
	if c.Provider == "" {
		c.Provider = VectorChromem
	}
	if c.Collection == "" {
		c.Collection = "regulations"
	}
	if c.TopKDefault == 0 {
		c.TopKDefault = 5
	}
	if c.RelevanceThreshold == 0 {
		c.RelevanceThreshold = 0.7
	}
}

func (c *VectorConfig) validate() error {
	switch c.Provider {
	case VectorChromem, VectorQdrant, VectorPinecone:
	default:
		return fmt.Errorf("%w: vector.provider %q unsupported", ErrConfiguration, c.Provider)
	}
	if c.TopKDefault < 1 || c.TopKDefault > 20 {
		return fmt.Errorf("%w: vector.top_k_default must be in [1,20]", ErrConfiguration)
	}
	return nil
}

// AgenticConfig configures the bounded reasoning loop (C6).
type AgenticConfig struct {
	MaxIterations        int           `yaml:"max_iterations" mapstructure:"max_iterations"`
	RequestDeadline      time.Duration `yaml:"request_deadline" mapstructure:"request_deadline"`
	MultiQueryExpansion  bool          `yaml:"multi_query_expansion" mapstructure:"multi_query_expansion"`
	PromptTokenBudget    int           `yaml:"prompt_token_budget" mapstructure:"prompt_token_budget"`
	KnowledgeSummaryPath string        `yaml:"knowledge_summary_path" mapstructure:"knowledge_summary_path"`
	KnowledgeSampleSize  int           `yaml:"knowledge_sample_size" mapstructure:"knowledge_sample_size"`
}

func (c *AgenticConfig) setDefaults() {
	if c.MaxIterations == 0 {
		c.MaxIterations = 10
	}
	if c.RequestDeadline == 0 {
		c.RequestDeadline = 120 * time.Second
	}
	if c.PromptTokenBudget == 0 {
		c.PromptTokenBudget = 12000
	}
	if c.KnowledgeSummaryPath == "" {
		c.KnowledgeSummaryPath = "./data/knowledge-summary.yaml"
	}
	if c.KnowledgeSampleSize == 0 {
		c.KnowledgeSampleSize = 20
	}
}

// ServerConfig configures the HTTP API (§6).
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

func (c *ServerConfig) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Config is the root process configuration.
type Config struct {
	LogLevel       string        `yaml:"log_level" mapstructure:"log_level"`
	LogJSON        bool          `yaml:"log_json" mapstructure:"log_json"`
	LLM            LLMConfig     `yaml:"llm" mapstructure:"llm"`
	Vector         VectorConfig  `yaml:"vector" mapstructure:"vector"`
	Agentic        AgenticConfig `yaml:"agentic" mapstructure:"agentic"`
	Server         ServerConfig  `yaml:"server" mapstructure:"server"`
	RefusalPhrases []string      `yaml:"refusal_phrases,omitempty" mapstructure:"refusal_phrases"`
}

// SetDefaults fills in every unset field with its documented default.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.LLM.setDefaults()
	c.Vector.setDefaults()
	c.Agentic.setDefaults()
	c.Server.setDefaults()
	if len(c.RefusalPhrases) == 0 {
		c.RefusalPhrases = DefaultRefusalPhrases()
	}
}

// DefaultRefusalPhrases is the canonical set from spec.md §4.8. It MUST
// NOT be silently extended by callers (§4.8, §9 "Refusal detection
// fragility").
func DefaultRefusalPhrases() []string {
	return []string{
		"i cannot answer",
		"i can't answer",
		"cannot answer this question",
		"not enough information",
		"insufficient information",
		"doesn't contain",
	}
}

// Validate checks the fully-defaulted configuration for internal
// consistency, returning ErrConfiguration-wrapped errors (spec.md §7:
// ConfigurationError is fatal at startup).
func (c *Config) Validate() error {
	if err := c.LLM.validate(); err != nil {
		return err
	}
	if err := c.Vector.validate(); err != nil {
		return err
	}
	if c.Agentic.MaxIterations < 1 {
		return fmt.Errorf("%w: agentic.max_iterations must be >= 1", ErrConfiguration)
	}
	return nil
}

// Load reads YAML configuration from path (if it exists), applies
// environment-variable expansion and overrides, fills defaults, and
// validates the result. A missing path is not an error — Regulon runs
// fully from environment variables in that case (container-native
// deployments rarely ship a YAML file).
func Load(path string) (*Config, error) {
	LoadDotEnv()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("%w: reading %s: %v", ErrConfiguration, path, err)
			}
		} else {
			expanded := ExpandEnv(string(data))
			var raw map[string]interface{}
			if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
				return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfiguration, path, err)
			}
			if err := decodeConfig(raw, cfg); err != nil {
				return nil, fmt.Errorf("%w: decoding %s: %v", ErrConfiguration, path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeConfig decodes a raw YAML map into cfg using mapstructure, so
// duration strings and comma-separated lists in the YAML (e.g. "30s",
// "a,b,c") decode into time.Duration and []string fields.
func decodeConfig(raw map[string]interface{}, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	return decoder.Decode(raw)
}
