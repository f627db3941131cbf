// Package tools holds the capabilities the assistant can invoke during
// a conversation, keyed by name in a registry the loop executes from.
package tools

import (
	"context"

	"google.golang.org/genai"
)

// Tool is a single capability the model can call.
type Tool interface {
	// Name returns the unique tool name.
	Name() string

	// Description returns a human-readable description.
	Description() string

	// Declaration returns the function declaration advertised to the model.
	Declaration() *genai.FunctionDeclaration

	// Execute runs the tool. The returned string goes back to the
	// model verbatim as the tool result.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// GetString extracts a string argument.
func GetString(args map[string]any, key string) (string, bool) {
	v, ok := args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetInt extracts an integer argument. JSON numbers arrive as float64.
func GetInt(args map[string]any, key string) (int, bool) {
	v, ok := args[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// GetBool extracts a boolean argument.
func GetBool(args map[string]any, key string) (bool, bool) {
	v, ok := args[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
