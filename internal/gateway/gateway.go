package gateway

import (
	"context"
	"fmt"

	"leo/internal/agent"
	"leo/internal/logging"
	"leo/internal/ratelimit"
)

// Channel is a chat front end the gateway can serve. Implementations
// deliver inbound messages on the channel returned by Receive and
// publish replies through Send.
type Channel interface {
	Name() string
	Receive(ctx context.Context) (<-chan agent.InboundMessage, error)
	Send(ctx context.Context, chatID, text string) error
}

// Runner executes one conversation turn against a caller-owned history.
type Runner interface {
	Run(ctx context.Context, history []agent.Message, userText string) (string, error)
}

// Gateway routes inbound chat messages to the assistant. It serializes
// turns per conversation and keeps each conversation's history.
type Gateway struct {
	runner    Runner
	sessions  *SessionManager
	locks     *SessionLocks
	limiter   *ratelimit.SenderLimiter
	allowFrom []string
}

// messagesPerMinute throttles each sender. Bursts cover a quick
// back-and-forth; the sustained rate stops runaway scripted senders.
const (
	messagesPerMinute = 20
	messageBurst      = 5
)

// New creates a gateway. allowFrom lists the senders permitted to talk
// to the assistant; an empty list allows everyone.
func New(runner Runner, allowFrom []string) *Gateway {
	return &Gateway{
		runner:    runner,
		sessions:  NewSessionManager(),
		locks:     NewSessionLocks(),
		limiter:   ratelimit.NewSenderLimiter(messagesPerMinute, messageBurst),
		allowFrom: allowFrom,
	}
}

// Allowed reports whether sender may use the gateway.
func (g *Gateway) Allowed(sender string) bool {
	if len(g.allowFrom) == 0 {
		return true
	}
	for _, allowed := range g.allowFrom {
		if sender == allowed {
			return true
		}
	}
	return false
}

// Handle runs one turn for an inbound message and returns the reply.
// Turns for the same session key run one at a time; the session history
// is updated only after a successful turn.
func (g *Gateway) Handle(ctx context.Context, msg agent.InboundMessage) (string, error) {
	if !g.Allowed(msg.Sender) {
		return "", fmt.Errorf("sender %s is not allowed", msg.Sender)
	}
	if !g.limiter.Allow(msg.Sender) {
		return "", fmt.Errorf("sender %s is rate limited, try again in a moment", msg.Sender)
	}

	key := msg.SessionKey()
	lock := g.locks.Get(key)
	lock.Lock()
	defer lock.Unlock()

	history := g.sessions.History(key)

	reply, err := g.runner.Run(ctx, history, msg.Text)
	if err != nil {
		return "", err
	}

	g.sessions.Append(key,
		agent.User(msg.Text),
		agent.Assistant(reply),
	)
	return reply, nil
}

// Reset clears the stored conversation for a session key.
func (g *Gateway) Reset(key string) {
	g.sessions.Reset(key)
}

// Serve pumps messages from a channel until ctx is cancelled. Each
// message is handled on its own goroutine; the per-session lock inside
// Handle keeps turns for the same chat sequential.
func (g *Gateway) Serve(ctx context.Context, ch Channel) error {
	inbound, err := ch.Receive(ctx)
	if err != nil {
		return fmt.Errorf("failed to start channel %s: %w", ch.Name(), err)
	}

	logging.Info("gateway serving", "channel", ch.Name())

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbound:
			if !ok {
				return nil
			}
			go g.deliver(ctx, ch, msg)
		}
	}
}

func (g *Gateway) deliver(ctx context.Context, ch Channel, msg agent.InboundMessage) {
	reply, err := g.Handle(ctx, msg)
	if err != nil {
		logging.Warn("gateway turn failed",
			"channel", ch.Name(), "chat_id", msg.ChatID, "error", err)
		reply = fmt.Sprintf("Error: %v", err)
	}
	if err := ch.Send(ctx, msg.ChatID, reply); err != nil {
		logging.Warn("failed to send reply",
			"channel", ch.Name(), "chat_id", msg.ChatID, "error", err)
	}
}
