package app

import (
	"context"
	"fmt"
	"path/filepath"

	"leo/internal/agent"
	"leo/internal/auth"
	"leo/internal/client"
	"leo/internal/config"
	appcontext "leo/internal/context"
	"leo/internal/logging"
	"leo/internal/memory"
	"leo/internal/skills"
	"leo/internal/tools"
)

// App wires configuration, memory, skills, tools, the backend client
// and the orchestration loop into one runnable assistant.
type App struct {
	cfg      *config.Config
	registry *tools.Registry
	loop     *agent.Loop
	watcher  *appcontext.BootstrapWatcher

	history   []agent.Message
	lastReply string
}

// New builds the application from configuration. The workspace is
// created and seeded on first run.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Logging.ToFile {
		if err := logging.EnableFileLogging(config.ConfigDir(), logging.Level(cfg.Logging.Level)); err != nil {
			logging.Warn("failed to enable file logging", "error", err)
		}
	}

	if err := config.Onboard(cfg.Workspace); err != nil {
		return nil, fmt.Errorf("failed to prepare workspace: %w", err)
	}

	store := memory.NewFileStore(filepath.Join(cfg.Workspace, "memory"))

	skillsReg, err := skills.LoadDir(filepath.Join(cfg.Workspace, "skills"))
	if err != nil {
		return nil, fmt.Errorf("failed to load skills: %w", err)
	}

	assembler := appcontext.New(cfg.Workspace, store,
		appcontext.WithBudget(budgetFromConfig(cfg.Budget)),
		appcontext.WithHistoryWindow(cfg.Agent.HistoryWindow),
		appcontext.WithSkills(skillsReg),
	)

	registry := tools.DefaultRegistry(cfg.Workspace, store)
	provider := auth.NewProvider(config.ConfigDir())

	backend, err := client.New(ctx, cfg, provider)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend client: %w", err)
	}

	app := &App{
		cfg:      cfg,
		registry: registry,
		loop:     agent.NewLoop(backend, registry, assembler, cfg.Agent.MaxIterations),
	}

	// Bootstrap edits (AGENTS.md and friends) take effect without a
	// restart. Watching is best effort.
	watcher, err := appcontext.NewBootstrapWatcher(assembler)
	if err != nil {
		logging.Warn("bootstrap watcher unavailable", "error", err)
	} else {
		watcher.Start()
		app.watcher = watcher
	}

	return app, nil
}

// RunOnce answers a single prompt with no prior history.
func (a *App) RunOnce(ctx context.Context, prompt string) (string, error) {
	return a.loop.Run(ctx, nil, prompt)
}

// Turn runs one conversational turn against the app's own history and
// records the exchange on success.
func (a *App) Turn(ctx context.Context, userText string) (string, error) {
	reply, err := a.loop.Run(ctx, a.history, userText)
	if err != nil {
		return "", err
	}
	a.history = append(a.history, agent.User(userText), agent.Assistant(reply))
	a.lastReply = reply
	return reply, nil
}

// ResetHistory drops the in-process conversation.
func (a *App) ResetHistory() {
	a.history = nil
	a.lastReply = ""
}

// LastReply returns the most recent assistant answer, if any.
func (a *App) LastReply() string {
	return a.lastReply
}

// Tools lists the registered tool names.
func (a *App) Tools() []string {
	return a.registry.Names()
}

// Close releases background resources.
func (a *App) Close() {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	logging.Close()
}

func budgetFromConfig(b config.BudgetConfig) appcontext.TokenBudget {
	if b.Total == 0 {
		return appcontext.DefaultBudget()
	}
	return appcontext.TokenBudget{
		SystemPrompt: b.SystemPrompt,
		Tools:        b.Tools,
		History:      b.History,
		Message:      b.Message,
		Total:        b.Total,
	}
}
