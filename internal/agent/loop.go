package agent

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"leo/internal/logging"
)

// DefaultMaxIterations bounds the tool-calling loop when no limit is configured.
const DefaultMaxIterations = 20

// Client is the backend the loop talks to. internal/client implements it.
type Client interface {
	Chat(ctx context.Context, messages []Message, tools []*genai.FunctionDeclaration) (*Response, error)
}

// ToolExecutor runs tools by name. internal/tools.Registry implements it.
type ToolExecutor interface {
	Declarations() []*genai.FunctionDeclaration
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
}

// Assembler turns caller-owned history plus the new user text into the
// message list sent to the backend. internal/context implements it.
type Assembler interface {
	BuildMessages(history []Message, userText string) []Message
}

// Loop drives the model/tool conversation until the model produces a
// final text answer or the iteration budget runs out.
type Loop struct {
	client        Client
	tools         ToolExecutor
	assembler     Assembler
	maxIterations int
}

// NewLoop creates an orchestration loop. maxIterations <= 0 uses the default.
func NewLoop(client Client, tools ToolExecutor, assembler Assembler, maxIterations int) *Loop {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	return &Loop{
		client:        client,
		tools:         tools,
		assembler:     assembler,
		maxIterations: maxIterations,
	}
}

// Run processes one user turn. History is caller-owned: Run never
// mutates it, and the caller appends the user text and final answer
// after a successful return.
func (l *Loop) Run(ctx context.Context, history []Message, userText string) (string, error) {
	messages := l.assembler.BuildMessages(history, userText)

	for i := 0; i < l.maxIterations; i++ {
		// Definitions are re-fetched each pass so tools registered
		// mid-conversation become visible.
		decls := l.tools.Declarations()

		resp, err := l.client.Chat(ctx, messages, decls)
		if err != nil {
			return "", fmt.Errorf("chat request failed: %w", err)
		}

		if !resp.HasToolCalls() {
			return resp.Content, nil
		}

		logging.Debug("executing tool calls", "count", len(resp.ToolCalls), "iteration", i+1)
		messages = append(messages, AssistantWithTools(resp.Content, resp.ToolCalls))

		for _, call := range resp.ToolCalls {
			result, err := l.tools.Execute(ctx, call.Name, call.Args)
			if err != nil {
				// Tool failures go back to the model as text so it
				// can recover or explain, not up to the caller.
				logging.Warn("tool execution failed", "tool", call.Name, "error", err)
				result = fmt.Sprintf("Error: %v", err)
			}
			messages = append(messages, ToolResult(call.ID, result))
		}
	}

	return "", ErrMaxIterations
}
