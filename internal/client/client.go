// Package client talks to the model backends. All variants implement
// the same Client interface over the shared conversation model, so the
// orchestration loop never knows which backend it is driving.
package client

import (
	"context"

	"google.golang.org/genai"

	"leo/internal/agent"
)

// Client is a model backend.
type Client interface {
	// Chat sends the full message list plus available tool
	// declarations and returns one completion.
	Chat(ctx context.Context, messages []agent.Message, tools []*genai.FunctionDeclaration) (*agent.Response, error)

	// DefaultModel returns the model name this client targets.
	DefaultModel() string
}

// Ptr returns a pointer to v. The genai SDK takes optional scalars as pointers.
func Ptr[T any](v T) *T {
	return &v
}
