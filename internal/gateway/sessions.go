package gateway

import (
	"sync"

	"leo/internal/agent"
)

// defaultMaxSessionMessages bounds how much history a single chat session
// keeps in memory. The tail is always preserved.
const defaultMaxSessionMessages = 200

// SessionLocks hands out one mutex per conversation key so that turns
// within the same conversation never run concurrently. Turns for
// different conversations proceed in parallel.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sync.Mutex)}
}

// Get returns the lock for key, creating it on first use.
func (s *SessionLocks) Get(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// SessionManager owns the per-session conversation history, keyed by
// the inbound message's session key (channel:chat id).
type SessionManager struct {
	mu          sync.RWMutex
	sessions    map[string][]agent.Message
	maxMessages int
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions:    make(map[string][]agent.Message),
		maxMessages: defaultMaxSessionMessages,
	}
}

// History returns a copy of the stored history for key.
func (s *SessionManager) History(key string) []agent.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored := s.sessions[key]
	out := make([]agent.Message, len(stored))
	copy(out, stored)
	return out
}

// Append adds messages to the session for key, trimming the oldest
// entries when the session grows past its cap.
func (s *SessionManager) Append(key string, msgs ...agent.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.sessions[key], msgs...)
	if len(history) > s.maxMessages {
		history = history[len(history)-s.maxMessages:]
	}
	s.sessions[key] = history
}

// Reset drops the stored history for key.
func (s *SessionManager) Reset(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, key)
}

// Len reports how many messages the session for key holds.
func (s *SessionManager) Len(key string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions[key])
}
