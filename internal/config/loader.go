package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"leo/internal/fileutil"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		API: APIConfig{
			OllamaBaseURL: "http://localhost:11434",
			Retry: RetryConfig{
				MaxRetries:  5,
				RetryDelay:  time.Second,
				HTTPTimeout: 120 * time.Second,
			},
		},
		Model: ModelConfig{
			Provider:        "gemini-oauth",
			Name:            "gemini-2.0-flash",
			Temperature:     0.7,
			MaxOutputTokens: 8192,
		},
		Agent: AgentConfig{
			MaxIterations: 20,
			HistoryWindow: 40,
		},
		Budget: BudgetConfig{
			SystemPrompt: 4000,
			Tools:        2000,
			History:      8000,
			Message:      4000,
			Total:        32000,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Workspace: filepath.Join(home, "leo"),
	}
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := GetConfigPath()
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			// Config file is optional, don't fail if it doesn't exist
			if !os.IsNotExist(err) {
				return nil, err
			}
		}
	}

	loadFromEnv(cfg)

	return cfg, nil
}

// GetConfigPath returns the path to the config file.
func GetConfigPath() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// ConfigDir returns the directory that holds config, credentials and logs.
func ConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "leo")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config", "leo")
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Expand environment variables in the config file
	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func loadFromEnv(cfg *Config) {
	if apiKey := os.Getenv("LEO_GEMINI_API_KEY"); apiKey != "" {
		cfg.API.GeminiKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		cfg.API.GeminiKey = apiKey
	}

	if model := os.Getenv("LEO_MODEL"); model != "" {
		cfg.Model.Name = model
	}

	if provider := os.Getenv("LEO_PROVIDER"); provider != "" {
		cfg.Model.Provider = provider
	}

	if workspace := os.Getenv("LEO_WORKSPACE"); workspace != "" {
		cfg.Workspace = workspace
	}

	if token := os.Getenv("LEO_TELEGRAM_TOKEN"); token != "" {
		cfg.Gateway.Token = token
		cfg.Gateway.Enabled = true
	}
}

// Save saves the configuration to the config file.
func (c *Config) Save() error {
	configPath := GetConfigPath()
	if configPath == "" {
		return fmt.Errorf("could not determine config path")
	}

	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600 because the file may contain API keys.
	if err := fileutil.WriteAtomic(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
