// Package context assembles the message list sent to the backend:
// system prompt from workspace bootstrap documents, memory and skills,
// plus a window of recent history, all under a token budget.
package context

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"leo/internal/agent"
	"leo/internal/logging"
	"leo/internal/memory"
	"leo/internal/skills"
)

// DefaultHistoryWindow is how many recent history messages each
// request carries when no window is configured.
const DefaultHistoryWindow = 40

// BootstrapFiles are the workspace documents folded into the system
// prompt, in order. Missing files are skipped.
var BootstrapFiles = []string{
	"AGENTS.md",
	"SOUL.md",
	"USER.md",
	"IDENTITY.md",
	"TOOLS.md",
}

// Context assembles prompts for the orchestration loop.
type Context struct {
	workspace     string
	memory        memory.Store
	skills        *skills.Registry
	budget        TokenBudget
	historyWindow int

	mu        sync.RWMutex
	bootstrap string
}

// Option configures a Context.
type Option func(*Context)

// WithBudget overrides the default token budget.
func WithBudget(b TokenBudget) Option {
	return func(c *Context) { c.budget = b }
}

// WithHistoryWindow overrides the history window size.
func WithHistoryWindow(n int) Option {
	return func(c *Context) {
		if n > 0 {
			c.historyWindow = n
		}
	}
}

// WithSkills attaches a skill registry.
func WithSkills(r *skills.Registry) Option {
	return func(c *Context) { c.skills = r }
}

// New creates a Context for the given workspace and loads the
// bootstrap documents once. store may be nil when memory is disabled.
func New(workspace string, store memory.Store, opts ...Option) *Context {
	c := &Context{
		workspace:     workspace,
		memory:        store,
		budget:        DefaultBudget(),
		historyWindow: DefaultHistoryWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.bootstrap = c.loadBootstrap()
	return c
}

// Workspace returns the workspace root directory.
func (c *Context) Workspace() string {
	return c.workspace
}

// Budget returns the active token budget.
func (c *Context) Budget() TokenBudget {
	return c.budget
}

// ReloadBootstrap re-reads the bootstrap documents from disk.
func (c *Context) ReloadBootstrap() {
	text := c.loadBootstrap()
	c.mu.Lock()
	c.bootstrap = text
	c.mu.Unlock()
	logging.Debug("bootstrap documents reloaded", "workspace", c.workspace)
}

func (c *Context) loadBootstrap() string {
	var parts []string
	for _, name := range BootstrapFiles {
		data, err := os.ReadFile(filepath.Join(c.workspace, name))
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(data))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func (c *Context) bootstrapText() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bootstrap
}

// BuildMessages assembles the full message list for one request:
// system prompt, the most recent window of history, then the user text.
func (c *Context) BuildMessages(history []agent.Message, userText string) []agent.Message {
	window := history
	if len(window) > c.historyWindow {
		window = window[len(window)-c.historyWindow:]
	}

	messages := make([]agent.Message, 0, len(window)+2)
	messages = append(messages, agent.System(c.BuildSystemPrompt()))
	messages = append(messages, window...)
	messages = append(messages, agent.User(TruncateToBudget(userText, c.budget.Message)))
	return messages
}
