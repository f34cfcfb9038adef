package memory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kalambet/aide/internal/extract"
)

// DefaultRelevantLimit is the number of memories returned by Relevant when
// the caller passes a non-positive limit.
const DefaultRelevantLimit = 5

// Scored pairs an entry with its relevance to a query.
type Scored struct {
	Entry Entry   `json:"entry"`
	Score float64 `json:"score"`
}

// Score ranks every entry sharing at least one keyword with query by
// 0.7 × Jaccard(query keywords, entry keywords) + 0.3 × importance, highest
// first. Entries with no keyword overlap are never returned.
func (s *Store) Score(query string, limit int) []Scored {
	if limit <= 0 {
		limit = DefaultRelevantLimit
	}
	q := toSet(extract.Keywords(query))

	s.mu.Lock()
	var scored []Scored
	for _, e := range s.entries {
		m := toSet(e.Keywords)
		inter := 0
		for k := range q {
			if _, ok := m[k]; ok {
				inter++
			}
		}
		if inter == 0 {
			continue
		}
		union := len(q) + len(m) - inter
		scored = append(scored, Scored{
			Entry: e,
			Score: float64(inter)/float64(union)*0.7 + e.Importance*0.3,
		})
	}
	s.mu.Unlock()

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// Relevant returns the top memories for query formatted for prompt
// injection as "[MM-DD HH:MM] 用戶: <first 50 chars>...".
func (s *Store) Relevant(query string, limit int) []string {
	scored := s.Score(query, limit)
	out := make([]string, 0, len(scored))
	for _, sc := range scored {
		out = append(out, fmt.Sprintf("[%s] 用戶: %s...", sc.Entry.Timestamp.Format("01-02 15:04"), firstRunes(sc.Entry.UserInput, 50)))
	}
	return out
}

// Recent returns entries newer than the given number of hours, newest first.
func (s *Store) Recent(hours int) []Entry {
	cutoff := s.clock.Now().Add(-time.Duration(hours) * time.Hour)

	s.mu.Lock()
	var out []Entry
	for _, e := range s.entries {
		if !e.Timestamp.Before(cutoff) {
			out = append(out, e)
		}
	}
	s.mu.Unlock()

	newestFirst(out)
	return out
}

// Search returns entries whose input, response or keywords contain keyword
// (case-insensitive), newest first.
func (s *Store) Search(keyword string) []Entry {
	k := strings.ToLower(keyword)

	s.mu.Lock()
	var out []Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.UserInput), k) ||
			strings.Contains(strings.ToLower(e.AssistantResponse), k) ||
			strings.Contains(strings.Join(e.Keywords, " "), k) {
			out = append(out, e)
		}
	}
	s.mu.Unlock()

	newestFirst(out)
	return out
}

// Entries returns a copy of all entries in storage order.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Preferences returns a copy of the captured user preferences.
func (s *Store) Preferences() Preferences {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(Preferences, len(s.prefs))
	for k, v := range s.prefs {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Facts returns a copy of the captured facts keyed by "<timestamp>_<content>".
func (s *Store) Facts() map[string]Fact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Fact, len(s.facts))
	for k, v := range s.facts {
		out[k] = v
	}
	return out
}

// Stats summarises the store.
type Stats struct {
	TotalMemories     int            `json:"total_memories"`
	Categories        map[string]int `json:"categories"`
	AverageImportance float64        `json:"average_importance"`
	PreferencesCount  int            `json:"user_preferences_count"`
	FactsCount        int            `json:"important_facts_count"`
}

// Stats returns counts for the store. An empty store reports zeros.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalMemories:    len(s.entries),
		Categories:       map[string]int{},
		PreferencesCount: len(s.prefs),
		FactsCount:       len(s.facts),
	}
	if len(s.entries) == 0 {
		return st
	}
	var total float64
	for _, e := range s.entries {
		st.Categories[e.Category]++
		total += e.Importance
	}
	st.AverageImportance = total / float64(len(s.entries))
	return st
}

// Clear drops every entry, preference and fact.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.prefs = Preferences{}
	s.facts = map[string]Fact{}
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func newestFirst(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.After(entries[j].Timestamp) })
}
