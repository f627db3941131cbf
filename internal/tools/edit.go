package tools

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
	"google.golang.org/genai"
)

// EditFileTool replaces an exact text fragment inside a file and
// reports a diff summary of the change.
type EditFileTool struct {
	Root string
}

func (t *EditFileTool) Name() string { return "edit_file" }

func (t *EditFileTool) Description() string {
	return "Replace an exact text fragment in a file with new text"
}

func (t *EditFileTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"path": {
					Type:        genai.TypeString,
					Description: "Path to the file, relative to the workspace",
				},
				"old_text": {
					Type:        genai.TypeString,
					Description: "Exact text to replace; must appear exactly once",
				},
				"new_text": {
					Type:        genai.TypeString,
					Description: "Replacement text",
				},
			},
			Required: []string{"path", "old_text", "new_text"},
		},
	}
}

func (t *EditFileTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	path, _ := GetString(args, "path")
	oldText, _ := GetString(args, "old_text")
	newText, _ := GetString(args, "new_text")
	if oldText == "" {
		return "", fmt.Errorf("old_text is required")
	}

	resolved, err := resolvePath(t.Root, path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := string(data)

	switch strings.Count(content, oldText) {
	case 0:
		return "", fmt.Errorf("old_text not found in %s", path)
	case 1:
	default:
		return "", fmt.Errorf("old_text appears multiple times in %s, provide more context", path)
	}

	updated := strings.Replace(content, oldText, newText, 1)
	if err := os.WriteFile(resolved, []byte(updated), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}

	return fmt.Sprintf("edited %s\n%s", path, diffSummary(content, updated)), nil
}

// diffSummary produces a compact line-level summary of the change.
func diffSummary(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(before, after, false)
	dmp.DiffCleanupSemantic(diffs)

	added, removed := 0, 0
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			added += len(strings.Split(d.Text, "\n"))
		case diffmatchpatch.DiffDelete:
			removed += len(strings.Split(d.Text, "\n"))
		}
	}
	return fmt.Sprintf("~%d lines added, ~%d lines removed", added, removed)
}
