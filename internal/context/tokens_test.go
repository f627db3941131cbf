package context

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"

	"leo/internal/agent"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 2, EstimateTokens("abcde"))
	assert.Equal(t, 2, EstimateTokens("abcdefgh"))
	assert.Equal(t, 25, EstimateTokens(strings.Repeat("x", 100)))
}

func TestBudgetPresets(t *testing.T) {
	assert.Equal(t, 32000, DefaultBudget().Total)
	assert.Equal(t, 8000, SmallBudget().Total)
	assert.Equal(t, 128000, LargeBudget().Total)
	assert.Equal(t, 4000, DefaultBudget().SystemPrompt)
}

func TestTokenUsageSummary(t *testing.T) {
	u := TokenUsage{SystemPrompt: 100, Tools: 50, History: 200, Message: 25}
	assert.Equal(t, 375, u.Total())
	assert.Equal(t, "tokens: system=100 tools=50 history=200 message=25 total=375", u.Summary())
}

func TestTruncateToBudget(t *testing.T) {
	assert.Equal(t, "short", TruncateToBudget("short", 100))

	long := strings.Repeat("a", 100)
	got := TruncateToBudget(long, 10)
	assert.Len(t, got, 40)

	assert.Equal(t, "", TruncateToBudget("something", 0))
}

func TestTruncateToBudgetRuneBoundary(t *testing.T) {
	// 50 two-byte runes = 100 bytes; a 10-token budget allows 40 bytes,
	// which is an even rune boundary here, so force an odd cut instead.
	text := "a" + strings.Repeat("é", 60)
	got := TruncateToBudget(text, 10)

	assert.True(t, utf8.ValidString(got))
	assert.LessOrEqual(t, len(got), 40)
}

func TestTruncateHistory(t *testing.T) {
	history := []agent.Message{
		agent.User(strings.Repeat("a", 40)),      // 10 tokens
		agent.Assistant(strings.Repeat("b", 40)), // 10 tokens
		agent.User(strings.Repeat("c", 40)),      // 10 tokens
	}

	// Everything fits.
	assert.Len(t, TruncateHistory(history, 30), 3)

	// Only the newest two fit.
	kept := TruncateHistory(history, 25)
	assert.Len(t, kept, 2)
	assert.Equal(t, strings.Repeat("b", 40), kept[0].Content)

	// Nothing fits.
	assert.Empty(t, TruncateHistory(history, 5))
}

func TestTruncateHistoryEmpty(t *testing.T) {
	assert.Empty(t, TruncateHistory(nil, 1000))
}
