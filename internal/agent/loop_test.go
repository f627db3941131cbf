package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

// scriptedClient returns canned responses in order and records the
// message list of every call.
type scriptedClient struct {
	responses []*Response
	err       error
	calls     [][]Message
}

func (c *scriptedClient) Chat(ctx context.Context, messages []Message, tools []*genai.FunctionDeclaration) (*Response, error) {
	c.calls = append(c.calls, append([]Message(nil), messages...))
	if c.err != nil {
		return nil, c.err
	}
	if len(c.calls) > len(c.responses) {
		return c.responses[len(c.responses)-1], nil
	}
	return c.responses[len(c.calls)-1], nil
}

type recordingExecutor struct {
	results map[string]string
	errs    map[string]error
	calls   []ToolCallRequest
}

func (e *recordingExecutor) Declarations() []*genai.FunctionDeclaration {
	return []*genai.FunctionDeclaration{{Name: "echo"}}
}

func (e *recordingExecutor) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	e.calls = append(e.calls, ToolCallRequest{Name: name, Args: args})
	if err, ok := e.errs[name]; ok {
		return "", err
	}
	if r, ok := e.results[name]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown tool: %s", name)
}

type passthroughAssembler struct{}

func (passthroughAssembler) BuildMessages(history []Message, userText string) []Message {
	msgs := []Message{System("test system")}
	msgs = append(msgs, history...)
	return append(msgs, User(userText))
}

func TestLoopTextOnlyResponse(t *testing.T) {
	client := &scriptedClient{responses: []*Response{{Content: "hello there"}}}
	exec := &recordingExecutor{}
	loop := NewLoop(client, exec, passthroughAssembler{}, 0)

	out, err := loop.Run(context.Background(), nil, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", out)
	assert.Len(t, client.calls, 1)
	assert.Empty(t, exec.calls)
}

func TestLoopExecutesToolThenReturns(t *testing.T) {
	client := &scriptedClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "tc_0", Name: "echo", Args: map[string]any{"text": "ping"}}}},
		{Content: "done"},
	}}
	exec := &recordingExecutor{results: map[string]string{"echo": "pong"}}
	loop := NewLoop(client, exec, passthroughAssembler{}, 0)

	out, err := loop.Run(context.Background(), nil, "run echo")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	require.Len(t, client.calls, 2)
	require.Len(t, exec.calls, 1)
	assert.Equal(t, "echo", exec.calls[0].Name)
	assert.Equal(t, "ping", exec.calls[0].Args["text"])

	// Second request carries the assistant tool request and its result.
	second := client.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, RoleAssistant, second[2].Role)
	require.Len(t, second[2].ToolCalls, 1)
	assert.Equal(t, RoleTool, second[3].Role)
	assert.Equal(t, "tc_0", second[3].ToolCallID)
	assert.Equal(t, "pong", second[3].Content)
}

func TestLoopFoldsToolErrorIntoResult(t *testing.T) {
	client := &scriptedClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "tc_0", Name: "echo"}}},
		{Content: "recovered"},
	}}
	exec := &recordingExecutor{errs: map[string]error{"echo": errors.New("disk on fire")}}
	loop := NewLoop(client, exec, passthroughAssembler{}, 0)

	out, err := loop.Run(context.Background(), nil, "go")
	require.NoError(t, err)
	assert.Equal(t, "recovered", out)

	second := client.calls[1]
	assert.Equal(t, "Error: disk on fire", second[len(second)-1].Content)
}

func TestLoopMaxIterations(t *testing.T) {
	client := &scriptedClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "tc_0", Name: "echo"}}},
	}}
	exec := &recordingExecutor{results: map[string]string{"echo": "again"}}
	loop := NewLoop(client, exec, passthroughAssembler{}, 3)

	_, err := loop.Run(context.Background(), nil, "forever")
	assert.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, client.calls, 3)
	assert.Len(t, exec.calls, 3)
}

func TestLoopPropagatesClientError(t *testing.T) {
	client := &scriptedClient{err: errors.New("boom")}
	loop := NewLoop(client, &recordingExecutor{}, passthroughAssembler{}, 0)

	_, err := loop.Run(context.Background(), nil, "hi")
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
}

func TestLoopDoesNotMutateHistory(t *testing.T) {
	history := []Message{User("earlier"), Assistant("sure")}
	client := &scriptedClient{responses: []*Response{
		{ToolCalls: []ToolCallRequest{{ID: "tc_0", Name: "echo"}}},
		{Content: "ok"},
	}}
	exec := &recordingExecutor{results: map[string]string{"echo": "x"}}
	loop := NewLoop(client, exec, passthroughAssembler{}, 0)

	_, err := loop.Run(context.Background(), history, "next")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "earlier", history[0].Content)
	assert.Equal(t, "sure", history[1].Content)
}

func TestSessionKey(t *testing.T) {
	m := InboundMessage{Channel: "telegram", ChatID: "42", Sender: "ada"}
	assert.Equal(t, "telegram:42", m.SessionKey())
}

func TestMessageConstructors(t *testing.T) {
	assert.Equal(t, RoleSystem, System("s").Role)
	assert.Equal(t, RoleUser, User("u").Role)
	assert.Equal(t, RoleAssistant, Assistant("a").Role)

	calls := []ToolCallRequest{{ID: "tc_0", Name: "x"}}
	m := AssistantWithTools("", calls)
	assert.True(t, m.HasToolCalls())

	r := ToolResult("tc_0", "out")
	assert.Equal(t, RoleTool, r.Role)
	assert.Equal(t, "tc_0", r.ToolCallID)
}
