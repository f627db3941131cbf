package context

import (
	"fmt"
	"strings"
	"time"

	"leo/internal/logging"
)

const identity = "You are Leo 🦁, a personal assistant running on the user's own machine. " +
	"You are helpful, direct, and act through your tools rather than guessing."

// BuildSystemPrompt assembles the system prompt from the identity
// header, the cached bootstrap documents, memory, and the skill list,
// truncated to the system prompt budget.
func (c *Context) BuildSystemPrompt() string {
	sections := []string{
		fmt.Sprintf("%s\n\nCurrent time: %s\nWorkspace: %s",
			identity,
			time.Now().Format("Monday, 2 January 2006 15:04"),
			c.workspace),
	}

	if bootstrap := c.bootstrapText(); bootstrap != "" {
		sections = append(sections, bootstrap)
	}

	if c.memory != nil {
		memText, err := c.memory.GetContext()
		if err != nil {
			logging.Warn("failed to read memory", "error", err)
		} else if memText != "" {
			sections = append(sections, "# Memory\n\n"+memText)
		}
	}

	if c.skills != nil {
		if summary := c.skills.BuildSummary(); summary != "" {
			sections = append(sections, "# Skills\n\n"+summary)
		}
	}

	prompt := strings.Join(sections, "\n\n---\n\n")
	return TruncateToBudget(prompt, c.budget.SystemPrompt)
}
