package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/aide/internal/assistant"
	"github.com/kalambet/aide/internal/calendar"
	"github.com/kalambet/aide/internal/composer"
	"github.com/kalambet/aide/internal/intent"
	"github.com/kalambet/aide/internal/mailbox"
	"github.com/kalambet/aide/internal/memory"
	"github.com/kalambet/aide/internal/storage"
	"github.com/kalambet/aide/internal/tools"
)

// RecentHours is the window used for the recent-memory count in Status.
const RecentHours = 24

// Session is one conversation. Turns are serialized; the tools and the memory
// store guard their own state.
type Session struct {
	ID        string
	CreatedAt time.Time

	turnMu   sync.Mutex
	msgMu    sync.Mutex
	messages []composer.Turn

	memory    *memory.Store
	calendar  *calendar.Calendar
	mailbox   *mailbox.Mailbox
	assistant *assistant.Assistant
	recorder  Recorder

	relevantLimit   int
	historyRetained int
}

func newSession(id string, opts Options) *Session {
	cal := calendar.New()
	mail := mailbox.New()

	d := &tools.Dispatcher{Weather: opts.Weather, Calendar: cal, Email: mail}

	comp := composer.New(opts.MaxContextTokens)
	comp.HistoryTurns = opts.HistoryInPrompt

	return &Session{
		ID:              id,
		CreatedAt:       time.Now(),
		memory:          memory.NewStore(opts.MaxMemories),
		calendar:        cal,
		mailbox:         mail,
		assistant:       assistant.New(opts.Generator, d, comp),
		recorder:        opts.Recorder,
		relevantLimit:   opts.RelevantLimit,
		historyRetained: opts.HistoryRetained,
	}
}

// Reply is the outcome of one turn.
type Reply struct {
	SessionID string             `json:"session_id"`
	Text      string             `json:"reply"`
	Metadata  assistant.Metadata `json:"metadata"`
}

// Handle runs one turn: fetch relevant memories, answer with the recent
// history as context, then remember the exchange. Blank input is answered
// without touching history or memory.
func (s *Session) Handle(ctx context.Context, input string) Reply {
	if strings.TrimSpace(input) == "" {
		text, meta := s.assistant.Process(ctx, input, nil, nil)
		return Reply{SessionID: s.ID, Text: text, Metadata: meta}
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	memories := s.memory.Relevant(input, s.relevantLimit)
	history := s.appendTurn(composer.Turn{Role: composer.RoleUser, Content: input})

	text, meta := s.assistant.Process(ctx, input, memories, history)

	s.appendTurn(composer.Turn{Role: composer.RoleAssistant, Content: text})
	s.memory.Add(input, text, memory.DefaultImportance)
	s.record(input, text, meta)

	return Reply{SessionID: s.ID, Text: text, Metadata: meta}
}

// appendTurn adds t and returns the last historyRetained messages.
func (s *Session) appendTurn(t composer.Turn) []composer.Turn {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	s.messages = append(s.messages, t)
	tail := s.messages[max(0, len(s.messages)-s.historyRetained):]
	return append([]composer.Turn(nil), tail...)
}

func (s *Session) record(input, text string, meta assistant.Metadata) {
	if s.recorder == nil {
		return
	}
	_, err := s.recorder.SaveInteraction(storage.Interaction{
		SessionID:  s.ID,
		UserInput:  input,
		IntentType: string(meta.Intent.Type),
		Confidence: meta.Intent.Confidence,
		Tool:       meta.Tool,
		Response:   text,
		DurationMs: meta.DurationMs,
	})
	if err != nil {
		slog.Warn("session: recording interaction failed", "session", s.ID, "error", err)
	}
}

// Classify runs intent extraction only.
func (s *Session) Classify(input string) intent.Intent {
	return s.assistant.Classify(input)
}

// Messages returns a copy of the conversation so far.
func (s *Session) Messages() []composer.Turn {
	s.msgMu.Lock()
	defer s.msgMu.Unlock()
	return append([]composer.Turn(nil), s.messages...)
}

// Clear drops the conversation and every memory. Calendar and mailbox state
// are kept.
func (s *Session) Clear() {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	s.msgMu.Lock()
	s.messages = nil
	s.msgMu.Unlock()

	s.memory.Clear()
}

// Memory returns the session's memory store.
func (s *Session) Memory() *memory.Store { return s.memory }

// Calendar returns the session's calendar.
func (s *Session) Calendar() *calendar.Calendar { return s.calendar }

// Mailbox returns the session's mailbox.
func (s *Session) Mailbox() *mailbox.Mailbox { return s.mailbox }

// Capabilities reports which tools are configured.
func (s *Session) Capabilities() map[string]bool {
	return s.assistant.Capabilities()
}

// Info summarizes the session.
func (s *Session) Info() Info {
	s.msgMu.Lock()
	n := len(s.messages)
	s.msgMu.Unlock()
	return Info{ID: s.ID, CreatedAt: s.CreatedAt, Messages: n, Memories: s.memory.Len()}
}

// Status is the sidebar view of a session.
type Status struct {
	Info
	RecentMemories int             `json:"recent_memories"`
	Events         int             `json:"events"`
	Capabilities   map[string]bool `json:"capabilities"`
}

// Status reports counts for display.
func (s *Session) Status() Status {
	return Status{
		Info:           s.Info(),
		RecentMemories: len(s.memory.Recent(RecentHours)),
		Events:         s.calendar.Len(),
		Capabilities:   s.Capabilities(),
	}
}
