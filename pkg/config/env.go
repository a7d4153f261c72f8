package config

import (
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
)

var (
	withDefault = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*):-(.*?)\}`)
	braced      = regexp.MustCompile(`\$\{([A-Z_][A-Z0-9_]*)\}`)
	simple      = regexp.MustCompile(`\$([A-Z_][A-Z0-9_]*)`)
)

// LoadDotEnv loads a .env file from the working directory, if present.
// A missing file is not an error — production deployments set real
// environment variables instead.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// ExpandEnv substitutes ${VAR}, ${VAR:-default}, and $VAR references in
// s with values from the process environment, matching the teacher's
// config templating so YAML files can reference secrets by name rather
// than embedding them.
func ExpandEnv(s string) string {
	s = withDefault.ReplaceAllStringFunc(s, func(match string) string {
		parts := withDefault.FindStringSubmatch(match)
		if v, ok := os.LookupEnv(parts[1]); ok && v != "" {
			return v
		}
		return parts[2]
	})
	s = braced.ReplaceAllStringFunc(s, func(match string) string {
		parts := braced.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})
	s = simple.ReplaceAllStringFunc(s, func(match string) string {
		parts := simple.FindStringSubmatch(match)
		return os.Getenv(parts[1])
	})
	return s
}

// applyEnvOverrides layers a small, explicit set of environment
// variables over the parsed config, taking precedence over the YAML
// file. This mirrors the teacher's env-first-class-citizen convention
// without pulling in a full env-to-struct reflection layer.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REGULON_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("REGULON_LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = LLMProviderKind(strings.ToLower(v))
	}
	if v := os.Getenv("REGULON_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && cfg.LLM.Provider != LLMOpenAI {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" && cfg.LLM.Provider == LLMOpenAI {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("REGULON_LLM_API_KEY"); v != "" {
		cfg.LLM.APIKey = v
	}
	if v := os.Getenv("REGULON_VECTOR_PROVIDER"); v != "" {
		cfg.Vector.Provider = VectorBackendKind(strings.ToLower(v))
	}
	if v := os.Getenv("REGULON_VECTOR_API_KEY"); v != "" {
		cfg.Vector.APIKey = v
	}
	if v := os.Getenv("REGULON_SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
}
