// Package memory persists what the assistant remembers between
// conversations: a curated long-term file plus append-only daily notes.
package memory

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Store is the persistence boundary for assistant memory.
type Store interface {
	// GetContext returns the combined memory text injected into the
	// system prompt: long-term memory followed by today's notes.
	GetContext() (string, error)

	ReadLongTerm() (string, error)
	AppendLongTerm(note string) error

	ReadToday() (string, error)
	AppendToday(note string) error
}

// FileStore keeps memory under <root>/MEMORY.md and <root>/daily/YYYY-MM-DD.md.
type FileStore struct {
	root string
	mu   sync.Mutex

	// now is swappable for tests
	now func() time.Time
}

// NewFileStore creates a file-backed store rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{root: dir, now: time.Now}
}

func (s *FileStore) longTermPath() string {
	return filepath.Join(s.root, "MEMORY.md")
}

func (s *FileStore) todayPath() string {
	return filepath.Join(s.root, "daily", s.now().Format("2006-01-02")+".md")
}

// GetContext returns long-term memory and today's notes as one block.
func (s *FileStore) GetContext() (string, error) {
	longTerm, err := s.ReadLongTerm()
	if err != nil {
		return "", err
	}
	today, err := s.ReadToday()
	if err != nil {
		return "", err
	}

	var parts []string
	if strings.TrimSpace(longTerm) != "" {
		parts = append(parts, strings.TrimSpace(longTerm))
	}
	if strings.TrimSpace(today) != "" {
		parts = append(parts, "## Today\n\n"+strings.TrimSpace(today))
	}
	return strings.Join(parts, "\n\n"), nil
}

// ReadLongTerm returns the long-term memory file, or "" if absent.
func (s *FileStore) ReadLongTerm() (string, error) {
	return readOptional(s.longTermPath())
}

// AppendLongTerm appends a note to the long-term memory file.
func (s *FileStore) AppendLongTerm(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendLine(s.longTermPath(), note)
}

// ReadToday returns today's daily note file, or "" if absent.
func (s *FileStore) ReadToday() (string, error) {
	return readOptional(s.todayPath())
}

// AppendToday appends a timestamped note to today's daily file.
func (s *FileStore) AppendToday(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry := fmt.Sprintf("- %s %s", s.now().Format("15:04"), note)
	return appendLine(s.todayPath(), entry)
}

func readOptional(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

func appendLine(path, line string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_, err = f.WriteString(line)
	return err
}

// InMemoryStore is a Store for tests and ephemeral sessions.
type InMemoryStore struct {
	mu       sync.Mutex
	longTerm []string
	today    []string
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) GetContext() (string, error) {
	longTerm, _ := s.ReadLongTerm()
	today, _ := s.ReadToday()

	var parts []string
	if longTerm != "" {
		parts = append(parts, longTerm)
	}
	if today != "" {
		parts = append(parts, "## Today\n\n"+today)
	}
	return strings.Join(parts, "\n\n"), nil
}

func (s *InMemoryStore) ReadLongTerm() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.longTerm, "\n"), nil
}

func (s *InMemoryStore) AppendLongTerm(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.longTerm = append(s.longTerm, note)
	return nil
}

func (s *InMemoryStore) ReadToday() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return strings.Join(s.today, "\n"), nil
}

func (s *InMemoryStore) AppendToday(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.today = append(s.today, note)
	return nil
}
