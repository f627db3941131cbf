package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leo/internal/config"
	appcontext "leo/internal/context"
)

func TestBudgetFromConfig(t *testing.T) {
	b := budgetFromConfig(config.BudgetConfig{
		SystemPrompt: 100, Tools: 50, History: 200, Message: 100, Total: 450,
	})
	assert.Equal(t, 100, b.SystemPrompt)
	assert.Equal(t, 450, b.Total)
}

func TestBudgetFromConfigDefaults(t *testing.T) {
	b := budgetFromConfig(config.BudgetConfig{})
	assert.Equal(t, appcontext.DefaultBudget(), b)
}

func TestHandleCommand(t *testing.T) {
	a := &App{}

	quit, msg := a.handleCommand("/help")
	assert.False(t, quit)
	assert.Contains(t, msg, "/reset")

	quit, msg = a.handleCommand("/quit")
	assert.True(t, quit)
	assert.Equal(t, "Bye!", msg)

	quit, msg = a.handleCommand("/exit")
	assert.True(t, quit)

	quit, msg = a.handleCommand("/copy")
	assert.False(t, quit)
	assert.Equal(t, "Nothing to copy yet.", msg)

	quit, msg = a.handleCommand("/nope")
	assert.False(t, quit)
	assert.Contains(t, msg, "Unknown command")
}

func TestHandleCommandReset(t *testing.T) {
	a := &App{lastReply: "old"}
	a.history = nil

	quit, msg := a.handleCommand("/reset")
	assert.False(t, quit)
	assert.Equal(t, "Conversation reset.", msg)
	assert.Empty(t, a.lastReply)
}
