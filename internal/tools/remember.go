package tools

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"leo/internal/memory"
)

// RememberTool writes a note into the assistant's memory.
type RememberTool struct {
	Store memory.Store
}

func (t *RememberTool) Name() string { return "remember" }

func (t *RememberTool) Description() string {
	return "Save a fact to memory: long-term for lasting facts, daily for today's notes"
}

func (t *RememberTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"note": {
					Type:        genai.TypeString,
					Description: "The fact or note to remember",
				},
				"scope": {
					Type:        genai.TypeString,
					Description: "Where to store it",
					Enum:        []string{"long_term", "daily"},
				},
			},
			Required: []string{"note"},
		},
	}
}

func (t *RememberTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	note, _ := GetString(args, "note")
	if note == "" {
		return "", fmt.Errorf("note is required")
	}
	scope, _ := GetString(args, "scope")

	switch scope {
	case "long_term":
		if err := t.Store.AppendLongTerm("- " + note); err != nil {
			return "", fmt.Errorf("failed to save note: %w", err)
		}
		return "saved to long-term memory", nil
	case "daily", "":
		if err := t.Store.AppendToday(note); err != nil {
			return "", fmt.Errorf("failed to save note: %w", err)
		}
		return "saved to today's notes", nil
	default:
		return "", fmt.Errorf("unknown scope: %s", scope)
	}
}
