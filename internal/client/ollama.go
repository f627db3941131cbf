package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"google.golang.org/genai"

	"leo/internal/agent"
	"leo/internal/config"
	"leo/internal/logging"
)

// OllamaClient runs conversations against a local Ollama server.
type OllamaClient struct {
	client      *api.Client
	model       string
	temperature float32
	maxTokens   int32
	maxRetries  int
	retryDelay  time.Duration
}

// NewOllamaClient creates a client for the configured Ollama server.
func NewOllamaClient(cfg *config.Config) (*OllamaClient, error) {
	if cfg.Model.Name == "" {
		return nil, fmt.Errorf("model name is required")
	}

	rawURL := cfg.API.OllamaBaseURL
	if rawURL == "" {
		rawURL = "http://localhost:11434"
	}
	baseURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama base URL: %w", err)
	}

	if baseURL.Scheme == "http" {
		host := baseURL.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			logging.Warn("Ollama connection uses unencrypted HTTP to remote host", "host", host)
		}
	}

	timeout := cfg.API.Retry.HTTPTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	maxRetries := cfg.API.Retry.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.API.Retry.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &OllamaClient{
		client:      api.NewClient(baseURL, &http.Client{Timeout: timeout}),
		model:       cfg.Model.Name,
		temperature: cfg.Model.Temperature,
		maxTokens:   cfg.Model.MaxOutputTokens,
		maxRetries:  maxRetries,
		retryDelay:  retryDelay,
	}, nil
}

// DefaultModel returns the configured model name.
func (c *OllamaClient) DefaultModel() string {
	return c.model
}

// Chat sends one completion request, accumulating the streamed chunks
// into a single response.
func (c *OllamaClient) Chat(ctx context.Context, messages []agent.Message, tools []*genai.FunctionDeclaration) (*agent.Response, error) {
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: toOllamaMessages(messages),
		Stream:   Ptr(false),
		Options: map[string]interface{}{
			"num_predict": c.maxTokens,
		},
	}
	if c.temperature > 0 {
		req.Options["temperature"] = c.temperature
	}
	if len(tools) > 0 {
		req.Tools = toOllamaTools(tools)
	}

	return retryWithBackoff(ctx, c.maxRetries, c.retryDelay, func() (*agent.Response, error) {
		return c.doChat(ctx, req)
	})
}

func (c *OllamaClient) doChat(ctx context.Context, req *api.ChatRequest) (*agent.Response, error) {
	out := &agent.Response{FinishReason: "stop"}

	err := c.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		out.Content += resp.Message.Content

		for _, tc := range resp.Message.ToolCalls {
			id := tc.ID
			if id == "" {
				id = fmt.Sprintf("tc_%d", len(out.ToolCalls))
			}
			out.ToolCalls = append(out.ToolCalls, agent.ToolCallRequest{
				ID:   id,
				Name: tc.Function.Name,
				Args: tc.Function.Arguments.ToMap(),
			})
		}

		if resp.Done {
			out.Usage = &agent.Usage{
				PromptTokens:     resp.PromptEvalCount,
				CompletionTokens: resp.EvalCount,
				TotalTokens:      resp.PromptEvalCount + resp.EvalCount,
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapOllamaError(err, c.model)
	}
	return out, nil
}

// toOllamaMessages maps conversation messages to the Ollama chat format.
func toOllamaMessages(messages []agent.Message) []api.Message {
	out := make([]api.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case agent.RoleSystem:
			out = append(out, api.Message{Role: "system", Content: m.Content})

		case agent.RoleUser:
			out = append(out, api.Message{Role: "user", Content: m.Content})

		case agent.RoleAssistant:
			msg := api.Message{Role: "assistant", Content: m.Content}
			for _, call := range m.ToolCalls {
				args := api.NewToolCallFunctionArguments()
				for k, v := range call.Args {
					args.Set(k, v)
				}
				msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
					ID: call.ID,
					Function: api.ToolCallFunction{
						Name:      call.Name,
						Arguments: args,
					},
				})
			}
			out = append(out, msg)

		case agent.RoleTool:
			out = append(out, api.Message{
				Role:       "tool",
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
			})
		}
	}
	return out
}

// toOllamaTools converts genai declarations to the Ollama tool format.
func toOllamaTools(decls []*genai.FunctionDeclaration) []api.Tool {
	tools := make([]api.Tool, 0, len(decls))
	for _, decl := range decls {
		params := api.ToolFunctionParameters{
			Type:       "object",
			Properties: api.NewToolPropertiesMap(),
		}

		if decl.Parameters != nil {
			if len(decl.Parameters.Required) > 0 {
				params.Required = decl.Parameters.Required
			}
			for name, propSchema := range decl.Parameters.Properties {
				prop := api.ToolProperty{
					Description: propSchema.Description,
				}
				if propSchema.Type != "" {
					prop.Type = api.PropertyType{strings.ToLower(string(propSchema.Type))}
				}
				if len(propSchema.Enum) > 0 {
					enumVals := make([]any, len(propSchema.Enum))
					for i, v := range propSchema.Enum {
						enumVals[i] = v
					}
					prop.Enum = enumVals
				}
				params.Properties.Set(name, prop)
			}
		}

		tools = append(tools, api.Tool{
			Type: "function",
			Function: api.ToolFunction{
				Name:        decl.Name,
				Description: decl.Description,
				Parameters:  params,
			},
		})
	}
	return tools
}

// wrapOllamaError adds actionable hints to common Ollama failures.
func wrapOllamaError(err error, model string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()

	if strings.Contains(msg, "connection refused") {
		return fmt.Errorf("Ollama server is not running (start it with `ollama serve`): %w", err)
	}
	if strings.Contains(msg, "not found") && strings.Contains(msg, "model") {
		return fmt.Errorf("model %q is not installed (pull it with `ollama pull %s`): %w", model, model, err)
	}
	return err
}
