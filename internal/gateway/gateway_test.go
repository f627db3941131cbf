package gateway

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leo/internal/agent"
)

type stubRunner struct {
	mu      sync.Mutex
	calls   []string
	history [][]agent.Message
	reply   string
	err     error
	active  int
	maxSeen int
}

func (r *stubRunner) Run(ctx context.Context, history []agent.Message, userText string) (string, error) {
	r.mu.Lock()
	r.active++
	if r.active > r.maxSeen {
		r.maxSeen = r.active
	}
	r.calls = append(r.calls, userText)
	snapshot := make([]agent.Message, len(history))
	copy(snapshot, history)
	r.history = append(r.history, snapshot)
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.active--
	r.mu.Unlock()

	if r.err != nil {
		return "", r.err
	}
	if r.reply != "" {
		return r.reply, nil
	}
	return "reply to " + userText, nil
}

func TestGatewayHandleKeepsHistory(t *testing.T) {
	runner := &stubRunner{}
	g := New(runner, nil)
	ctx := context.Background()

	msg := agent.InboundMessage{Channel: "telegram", ChatID: "42", Sender: "sam", Text: "hello"}
	reply, err := g.Handle(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, "reply to hello", reply)

	msg.Text = "again"
	_, err = g.Handle(ctx, msg)
	require.NoError(t, err)

	// The second turn must see the first exchange as history.
	require.Len(t, runner.history, 2)
	assert.Empty(t, runner.history[0])
	require.Len(t, runner.history[1], 2)
	assert.Equal(t, agent.RoleUser, runner.history[1][0].Role)
	assert.Equal(t, "hello", runner.history[1][0].Content)
	assert.Equal(t, agent.RoleAssistant, runner.history[1][1].Role)
	assert.Equal(t, "reply to hello", runner.history[1][1].Content)
}

func TestGatewayHistoryNotSavedOnError(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("backend down")}
	g := New(runner, nil)

	msg := agent.InboundMessage{Channel: "telegram", ChatID: "1", Sender: "sam", Text: "hi"}
	_, err := g.Handle(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, 0, g.sessions.Len(msg.SessionKey()))
}

func TestGatewayAllowList(t *testing.T) {
	g := New(&stubRunner{}, []string{"alice", "bob"})

	assert.True(t, g.Allowed("alice"))
	assert.True(t, g.Allowed("bob"))
	assert.False(t, g.Allowed("mallory"))

	_, err := g.Handle(context.Background(), agent.InboundMessage{
		Channel: "telegram", ChatID: "1", Sender: "mallory", Text: "hi",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not allowed")
}

func TestGatewayEmptyAllowListAllowsAll(t *testing.T) {
	g := New(&stubRunner{}, nil)
	assert.True(t, g.Allowed("anyone"))
	assert.True(t, g.Allowed(""))
}

func TestGatewaySerializesSameSession(t *testing.T) {
	runner := &stubRunner{}
	g := New(runner, nil)
	msg := agent.InboundMessage{Channel: "telegram", ChatID: "7", Sender: "sam", Text: "x"}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.Handle(context.Background(), msg)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Same session key, so turns must never overlap.
	assert.Equal(t, 1, runner.maxSeen)
	assert.Len(t, runner.calls, 5)
}

func TestGatewayRateLimitsSender(t *testing.T) {
	runner := &stubRunner{}
	g := New(runner, nil)
	ctx := context.Background()

	var limited bool
	for i := 0; i < messageBurst+3; i++ {
		msg := agent.InboundMessage{Channel: "telegram", ChatID: "3", Sender: "flood", Text: "x"}
		if _, err := g.Handle(ctx, msg); err != nil {
			assert.Contains(t, err.Error(), "rate limited")
			limited = true
		}
	}
	assert.True(t, limited, "flooding past the burst should hit the rate limit")
}

func TestGatewayReset(t *testing.T) {
	g := New(&stubRunner{}, nil)
	msg := agent.InboundMessage{Channel: "telegram", ChatID: "9", Sender: "sam", Text: "hi"}

	_, err := g.Handle(context.Background(), msg)
	require.NoError(t, err)
	require.Equal(t, 2, g.sessions.Len(msg.SessionKey()))

	g.Reset(msg.SessionKey())
	assert.Equal(t, 0, g.sessions.Len(msg.SessionKey()))
}

func TestSessionManagerTrimsTail(t *testing.T) {
	sm := NewSessionManager()
	sm.maxMessages = 4

	for i := 0; i < 6; i++ {
		sm.Append("k", agent.User(fmt.Sprintf("m%d", i)))
	}

	history := sm.History("k")
	require.Len(t, history, 4)
	assert.Equal(t, "m2", history[0].Content)
	assert.Equal(t, "m5", history[3].Content)
}

func TestSessionManagerHistoryIsCopy(t *testing.T) {
	sm := NewSessionManager()
	sm.Append("k", agent.User("original"))

	history := sm.History("k")
	history[0].Content = "mutated"

	assert.Equal(t, "original", sm.History("k")[0].Content)
}

func TestSessionLocksSameKeySameLock(t *testing.T) {
	locks := NewSessionLocks()
	assert.Same(t, locks.Get("a"), locks.Get("a"))
	assert.NotSame(t, locks.Get("a"), locks.Get("b"))
}

type fakeChannel struct {
	inbound chan agent.InboundMessage
	mu      sync.Mutex
	sent    map[string]string
	done    chan struct{}
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		inbound: make(chan agent.InboundMessage, 8),
		sent:    make(map[string]string),
		done:    make(chan struct{}, 8),
	}
}

func (c *fakeChannel) Name() string { return "fake" }

func (c *fakeChannel) Receive(ctx context.Context) (<-chan agent.InboundMessage, error) {
	return c.inbound, nil
}

func (c *fakeChannel) Send(ctx context.Context, chatID, text string) error {
	c.mu.Lock()
	c.sent[chatID] = text
	c.mu.Unlock()
	c.done <- struct{}{}
	return nil
}

func TestGatewayServe(t *testing.T) {
	runner := &stubRunner{}
	g := New(runner, nil)
	ch := newFakeChannel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- g.Serve(ctx, ch)
	}()

	ch.inbound <- agent.InboundMessage{Channel: "fake", ChatID: "5", Sender: "sam", Text: "ping"}

	select {
	case <-ch.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reply")
	}

	ch.mu.Lock()
	assert.Equal(t, "reply to ping", ch.sent["5"])
	ch.mu.Unlock()

	cancel()
	select {
	case err := <-serveErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not stop on cancel")
	}
}
