package tools

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"google.golang.org/genai"
)

// maxGlobResults bounds the result list sent back to the model.
const maxGlobResults = 200

// GlobTool matches workspace files against a doublestar pattern.
type GlobTool struct {
	Root string
}

func (t *GlobTool) Name() string { return "glob" }

func (t *GlobTool) Description() string {
	return "Find workspace files matching a glob pattern like **/*.md"
}

func (t *GlobTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"pattern": {
					Type:        genai.TypeString,
					Description: "Glob pattern, ** matches across directories",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *GlobTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := GetString(args, "pattern")
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	if !doublestar.ValidatePattern(pattern) {
		return "", fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(t.Root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		if err == fs.ErrNotExist {
			return "(no matches)", nil
		}
		return "", fmt.Errorf("glob failed: %w", err)
	}
	sort.Strings(matches)

	if len(matches) == 0 {
		return "(no matches)", nil
	}
	if len(matches) > maxGlobResults {
		extra := len(matches) - maxGlobResults
		matches = matches[:maxGlobResults]
		return strings.Join(matches, "\n") + fmt.Sprintf("\n... (%d more)", extra), nil
	}
	return strings.Join(matches, "\n"), nil
}
