package config

import (
	"errors"
	"time"
)

// ErrMissingAuth is returned when no authentication method is configured.
var ErrMissingAuth = errors.New("no API key or OAuth credentials configured")

// Config represents the main application configuration.
type Config struct {
	API       APIConfig     `yaml:"api"`
	Model     ModelConfig   `yaml:"model"`
	Agent     AgentConfig   `yaml:"agent"`
	Budget    BudgetConfig  `yaml:"budget"`
	Gateway   GatewayConfig `yaml:"gateway"`
	Logging   LoggingConfig `yaml:"logging"`
	Workspace string        `yaml:"workspace"`

	// Runtime version information
	Version string `yaml:"-"`
}

// APIConfig holds API-related settings.
type APIConfig struct {
	// Gemini API key (used when model.provider is "gemini")
	GeminiKey string `yaml:"gemini_key,omitempty"`

	// Ollama server URL (default: http://localhost:11434)
	OllamaBaseURL string `yaml:"ollama_base_url,omitempty"`

	// Retry configuration for API calls
	Retry RetryConfig `yaml:"retry"`
}

// RetryConfig holds retry behavior for API calls.
type RetryConfig struct {
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
}

// ModelConfig holds model selection settings.
type ModelConfig struct {
	// Provider: "gemini" (API key), "gemini-oauth" (browser login), "ollama" (local)
	Provider string `yaml:"provider"`

	// Model name, e.g. "gemini-2.0-flash"
	Name string `yaml:"name"`

	Temperature     float32 `yaml:"temperature"`
	MaxOutputTokens int32   `yaml:"max_output_tokens"`
}

// AgentConfig holds orchestration loop settings.
type AgentConfig struct {
	// Maximum tool-calling iterations per turn
	MaxIterations int `yaml:"max_iterations"`

	// Number of most-recent history messages included in each request
	HistoryWindow int `yaml:"history_window"`
}

// BudgetConfig holds token budget limits.
type BudgetConfig struct {
	SystemPrompt int `yaml:"system_prompt"`
	Tools        int `yaml:"tools"`
	History      int `yaml:"history"`
	Message      int `yaml:"message"`
	Total        int `yaml:"total"`
}

// GatewayConfig holds chat-platform gateway settings.
type GatewayConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"token,omitempty"`

	// Usernames or sender IDs allowed to talk to the assistant.
	// An empty list allows everyone.
	AllowFrom []string `yaml:"allow_from,omitempty"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	ToFile bool   `yaml:"to_file"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case "gemini":
		if c.API.GeminiKey == "" {
			return ErrMissingAuth
		}
	case "gemini-oauth", "ollama":
		// OAuth credentials are checked lazily; Ollama needs no key.
	case "":
		return errors.New("model.provider is required")
	default:
		return errors.New("unknown provider: " + c.Model.Provider)
	}
	if c.Model.Name == "" {
		return errors.New("model.name is required")
	}
	return nil
}
