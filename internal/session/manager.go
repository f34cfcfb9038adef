// Package session owns per-conversation state: the message history, the
// memory store and the calendar and mailbox the tools act on. A session is
// created on first interaction and discarded when it ends.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/aide/internal/generation"
	"github.com/kalambet/aide/internal/storage"
	"github.com/kalambet/aide/internal/tools"
)

// ErrNotFound is returned when no live session has the requested ID.
var ErrNotFound = errors.New("session not found")

// Recorder persists interactions and memory snapshots. *storage.Store
// satisfies it.
type Recorder interface {
	SaveInteraction(i storage.Interaction) (string, error)
	SaveSnapshot(sessionID string, payload []byte) (string, error)
	LatestSnapshot(sessionID string) (storage.MemorySnapshot, error)
	DeleteSession(sessionID string) error
}

// Options configures every session a Manager creates.
type Options struct {
	Generator generation.Generator
	// Weather is shared by all sessions; nil leaves the weather tool
	// unconfigured.
	Weather tools.WeatherTool
	// Recorder is optional.
	Recorder Recorder

	MaxMemories      int
	RelevantLimit    int
	HistoryRetained  int
	HistoryInPrompt  int
	MaxContextTokens int
}

func (o Options) withDefaults() Options {
	if o.RelevantLimit <= 0 {
		o.RelevantLimit = 5
	}
	if o.HistoryRetained <= 0 {
		o.HistoryRetained = 5
	}
	if o.HistoryInPrompt <= 0 {
		o.HistoryInPrompt = 3
	}
	return o
}

// Manager tracks live sessions by ID.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	opts     Options
}

// NewManager creates a Manager with no sessions.
func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		opts:     opts.withDefaults(),
	}
}

// Open returns the live session with id, or creates one. An empty id gets a
// fresh UUID. A new session whose id has a stored snapshot starts with that
// memory restored.
func (m *Manager) Open(id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", id, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s, nil
	}

	s := newSession(id, m.opts)
	if m.opts.Recorder != nil {
		m.restore(s)
	}
	m.sessions[id] = s
	slog.Debug("session opened", "session", id)
	return s, nil
}

func (m *Manager) restore(s *Session) {
	snap, err := m.opts.Recorder.LatestSnapshot(s.ID)
	if errors.Is(err, storage.ErrNotFound) {
		return
	}
	if err != nil {
		slog.Warn("session: loading snapshot failed", "session", s.ID, "error", err)
		return
	}
	if !s.memory.Import([]byte(snap.Payload)) {
		slog.Warn("session: snapshot could not be imported", "session", s.ID, "snapshot", snap.ID)
		return
	}
	slog.Info("session memory restored", "session", s.ID, "memories", s.memory.Len())
}

// Get returns the live session with id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// End snapshots the session's memory (when a recorder is configured) and
// discards the session.
func (m *Manager) End(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if m.opts.Recorder == nil || s.memory.Len() == 0 {
		return nil
	}

	payload, err := s.memory.Export()
	if err != nil {
		return fmt.Errorf("exporting memory: %w", err)
	}
	if _, err := m.opts.Recorder.SaveSnapshot(id, payload); err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	slog.Debug("session ended", "session", id)
	return nil
}

// Forget discards the session and deletes everything recorded for it.
func (m *Manager) Forget(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if m.opts.Recorder != nil {
		if err := m.opts.Recorder.DeleteSession(id); err != nil {
			return fmt.Errorf("deleting session records: %w", err)
		}
	} else if !ok {
		return ErrNotFound
	}
	return nil
}

// Info summarizes a live session.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  int       `json:"messages"`
	Memories  int       `json:"memories"`
}

// List returns live sessions, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s.Info())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
