package context

import (
	"fmt"
	"unicode/utf8"

	"leo/internal/agent"
)

// charsPerToken is the estimation ratio. Good enough for budgeting;
// exact counts would need a tokenizer round trip per message.
const charsPerToken = 4

// EstimateTokens returns a rough token count for text (~4 chars/token,
// rounded up). Empty text is zero.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + charsPerToken - 1) / charsPerToken
}

// TokenBudget caps each section of an assembled request.
type TokenBudget struct {
	SystemPrompt int `yaml:"system_prompt"`
	Tools        int `yaml:"tools"`
	History      int `yaml:"history"`
	Message      int `yaml:"message"`
	Total        int `yaml:"total"`
}

// DefaultBudget fits mid-size context windows.
func DefaultBudget() TokenBudget {
	return TokenBudget{
		SystemPrompt: 4000,
		Tools:        2000,
		History:      8000,
		Message:      4000,
		Total:        32000,
	}
}

// SmallBudget fits small local models.
func SmallBudget() TokenBudget {
	return TokenBudget{
		SystemPrompt: 1500,
		Tools:        1000,
		History:      3000,
		Message:      1500,
		Total:        8000,
	}
}

// LargeBudget fits large-context hosted models.
func LargeBudget() TokenBudget {
	return TokenBudget{
		SystemPrompt: 8000,
		Tools:        4000,
		History:      32000,
		Message:      8000,
		Total:        128000,
	}
}

// TokenUsage records the estimated size of each assembled section.
type TokenUsage struct {
	SystemPrompt int
	Tools        int
	History      int
	Message      int
}

// Total returns the sum of all sections.
func (u TokenUsage) Total() int {
	return u.SystemPrompt + u.Tools + u.History + u.Message
}

// Summary returns a one-line human-readable breakdown.
func (u TokenUsage) Summary() string {
	return fmt.Sprintf("tokens: system=%d tools=%d history=%d message=%d total=%d",
		u.SystemPrompt, u.Tools, u.History, u.Message, u.Total())
}

// TruncateToBudget clips text so it fits within maxTokens. The cut
// lands on a rune boundary, never inside a multi-byte character.
func TruncateToBudget(text string, maxTokens int) string {
	if EstimateTokens(text) <= maxTokens {
		return text
	}
	maxBytes := maxTokens * charsPerToken
	if maxBytes <= 0 {
		return ""
	}
	for maxBytes > 0 && !utf8.RuneStart(text[maxBytes]) {
		maxBytes--
	}
	return text[:maxBytes]
}

// TruncateHistory keeps the newest messages that fit within budget.
// It walks from the newest backwards, stops before the message that
// would exceed the budget, and returns the kept suffix in order.
func TruncateHistory(history []agent.Message, budget int) []agent.Message {
	total := 0
	start := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := EstimateTokens(history[i].Content)
		if total+cost > budget {
			break
		}
		total += cost
		start = i
	}
	return history[start:]
}
