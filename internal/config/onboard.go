package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const agentsSeed = `# Agent Instructions

You are Leo, a personal assistant running on this machine. Be concise,
act directly, and use your tools instead of guessing.

Edit this file to change how Leo behaves.
`

const memorySeed = `# Long-term Memory

Facts Leo should remember across conversations go here.
`

// Onboard creates the workspace directory tree and seed documents.
// Existing files are never overwritten.
func Onboard(workspace string) error {
	dirs := []string{
		workspace,
		filepath.Join(workspace, "memory"),
		filepath.Join(workspace, "memory", "daily"),
		filepath.Join(workspace, "skills"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	seeds := map[string]string{
		filepath.Join(workspace, "AGENTS.md"):           agentsSeed,
		filepath.Join(workspace, "memory", "MEMORY.md"): memorySeed,
	}
	for path, content := range seeds {
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return nil
}
