package memory

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"
)

var errNotObject = errors.New("memory snapshot must be a JSON object")

// Snapshot is the serialized form of a Store.
type Snapshot struct {
	Memories        []Entry         `json:"memories"`
	UserPreferences Preferences     `json:"user_preferences"`
	ImportantFacts  map[string]Fact `json:"important_facts"`
	ExportTimestamp time.Time       `json:"export_timestamp"`
}

// Snapshot captures the current contents of the store.
func (s *Store) Snapshot() Snapshot {
	entries := s.Entries()
	if entries == nil {
		entries = []Entry{}
	}
	return Snapshot{
		Memories:        entries,
		UserPreferences: s.Preferences(),
		ImportantFacts:  s.Facts(),
		ExportTimestamp: s.clock.Now(),
	}
}

// Export serializes the store as indented JSON.
func (s *Store) Export() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(s.Snapshot()); err != nil {
		return nil, fmt.Errorf("encoding memory snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Import replaces the store contents with data produced by Export. It
// reports false and leaves the store untouched when data cannot be decoded.
func (s *Store) Import(data []byte) bool {
	snap, err := decodeSnapshot(data)
	if err != nil {
		slog.Warn("memory import failed", "error", err)
		return false
	}
	s.Restore(snap)
	return true
}

func decodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if !bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
		return snap, errNotObject
	}
	if err := json.Unmarshal(data, &snap); err != nil {
		return snap, err
	}
	return snap, nil
}

// Restore replaces the store contents with a copy of snap.
func (s *Store) Restore(snap Snapshot) {
	prefs := make(Preferences, len(snap.UserPreferences))
	for kind, values := range snap.UserPreferences {
		prefs[kind] = slices.Clone(values)
	}
	facts := maps.Clone(snap.ImportantFacts)
	if facts == nil {
		facts = map[string]Fact{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = cloneEntries(snap.Memories)
	s.prefs = prefs
	s.facts = facts
}

func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		e.Keywords = slices.Clone(e.Keywords)
		out[i] = e
	}
	return out
}
