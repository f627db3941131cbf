package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"leo/internal/agent"
	"leo/internal/config"
	"leo/internal/logging"
)

// GeminiClient talks to the Gemini API with a static API key.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int32
	maxRetries  int
	retryDelay  time.Duration
}

// NewGeminiClient creates an API-key backed Gemini client.
func NewGeminiClient(ctx context.Context, cfg *config.Config) (*GeminiClient, error) {
	if cfg.API.GeminiKey == "" {
		return nil, config.ErrMissingAuth
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Backend: genai.BackendGeminiAPI,
		APIKey:  cfg.API.GeminiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	maxRetries := cfg.API.Retry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}
	retryDelay := cfg.API.Retry.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &GeminiClient{
		client:      client,
		model:       cfg.Model.Name,
		temperature: cfg.Model.Temperature,
		maxTokens:   cfg.Model.MaxOutputTokens,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
	}, nil
}

// DefaultModel returns the configured model name.
func (c *GeminiClient) DefaultModel() string {
	return c.model
}

// Chat sends one completion request.
func (c *GeminiClient) Chat(ctx context.Context, messages []agent.Message, tools []*genai.FunctionDeclaration) (*agent.Response, error) {
	system, rest := splitSystem(messages)
	contents := toGenaiContents(rest)

	genConfig := &genai.GenerateContentConfig{
		Temperature:     Ptr(c.temperature),
		MaxOutputTokens: c.maxTokens,
	}
	if system != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(tools) > 0 {
		genConfig.Tools = []*genai.Tool{{FunctionDeclarations: tools}}
	}

	resp, err := retryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() (*genai.GenerateContentResponse, error) {
		return c.client.Models.GenerateContent(ctx, c.model, contents, genConfig)
	})
	if err != nil {
		return nil, err
	}

	parsed, err := parseGenaiResponse(resp)
	if err != nil {
		return nil, err
	}
	logging.Debug("gemini response", "finish_reason", parsed.FinishReason, "tool_calls", len(parsed.ToolCalls))
	return parsed, nil
}
