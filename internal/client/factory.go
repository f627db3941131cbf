package client

import (
	"context"
	"fmt"

	"leo/internal/auth"
	"leo/internal/config"
)

// New creates the backend client selected by the configuration.
func New(ctx context.Context, cfg *config.Config, provider *auth.Provider) (Client, error) {
	switch cfg.Model.Provider {
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	case "gemini-oauth":
		return NewGeminiOAuthClient(cfg, provider), nil
	case "ollama":
		return NewOllamaClient(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Model.Provider)
	}
}
