package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"google.golang.org/genai"
)

const (
	execTimeout   = 60 * time.Second
	maxExecOutput = 64 * 1024
)

// ExecTool runs a shell command in the workspace.
type ExecTool struct {
	Root string
}

func (t *ExecTool) Name() string { return "exec" }

func (t *ExecTool) Description() string {
	return "Run a shell command in the workspace and return its output"
}

func (t *ExecTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"command": {
					Type:        genai.TypeString,
					Description: "Shell command to run",
				},
			},
			Required: []string{"command"},
		},
	}
}

func (t *ExecTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	command, _ := GetString(args, "command")
	if command == "" {
		return "", fmt.Errorf("command is required")
	}

	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = t.Root

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := truncateOutput(buf.String())

	if execCtx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("command timed out after %s", execTimeout)
	}
	if err != nil {
		if output == "" {
			return "", fmt.Errorf("command failed: %w", err)
		}
		return fmt.Sprintf("command failed (%v):\n%s", err, output), nil
	}
	if output == "" {
		return "(no output)", nil
	}
	return output, nil
}

// GitTool runs a git subcommand in the workspace.
type GitTool struct {
	Root string
}

func (t *GitTool) Name() string { return "git" }

func (t *GitTool) Description() string {
	return "Run a git command in the workspace, e.g. status, diff, log"
}

func (t *GitTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"args": {
					Type:        genai.TypeString,
					Description: "Arguments passed to git, e.g. \"status --short\"",
				},
			},
			Required: []string{"args"},
		},
	}
}

func (t *GitTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	gitArgs, _ := GetString(args, "args")
	if gitArgs == "" {
		return "", fmt.Errorf("args is required")
	}

	execCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "git", strings.Fields(gitArgs)...)
	cmd.Dir = t.Root

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	output := truncateOutput(buf.String())
	if err != nil {
		if output == "" {
			return "", fmt.Errorf("git failed: %w", err)
		}
		return fmt.Sprintf("git failed (%v):\n%s", err, output), nil
	}
	if output == "" {
		return "(no output)", nil
	}
	return output, nil
}

func truncateOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	if len(s) > maxExecOutput {
		return s[:maxExecOutput] + "\n... (output truncated)"
	}
	return s
}
