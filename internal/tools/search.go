package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"google.golang.org/genai"
)

const maxSearchMatches = 100

// SearchTool runs a regular expression over workspace files.
type SearchTool struct {
	Root string
}

func (t *SearchTool) Name() string { return "search" }

func (t *SearchTool) Description() string {
	return "Search workspace files for lines matching a regular expression"
}

func (t *SearchTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"pattern": {
					Type:        genai.TypeString,
					Description: "Go regular expression to match against each line",
				},
				"path": {
					Type:        genai.TypeString,
					Description: "Directory to search, relative to the workspace (default: whole workspace)",
				},
			},
			Required: []string{"pattern"},
		},
	}
}

func (t *SearchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	pattern, _ := GetString(args, "pattern")
	if pattern == "" {
		return "", fmt.Errorf("pattern is required")
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid pattern: %w", err)
	}

	dir, _ := GetString(args, "path")
	if dir == "" {
		dir = "."
	}
	root, err := resolvePath(t.Root, dir)
	if err != nil {
		return "", err
	}

	var matches []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if len(matches) >= maxSearchMatches {
			return fs.SkipAll
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		rel, _ := filepath.Rel(t.Root, path)
		matches = append(matches, searchFile(path, rel, re, maxSearchMatches-len(matches))...)
		return nil
	})
	if err != nil {
		return "", err
	}

	if len(matches) == 0 {
		return "(no matches)", nil
	}
	return strings.Join(matches, "\n"), nil
}

func searchFile(path, rel string, re *regexp.Regexp, limit int) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var results []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() && len(results) < limit {
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			results = append(results, fmt.Sprintf("%s:%d: %s", rel, lineNo, strings.TrimSpace(line)))
		}
	}
	return results
}
