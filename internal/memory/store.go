// Package memory keeps a bounded, relevance-ranked log of past exchanges
// together with the user preferences and notable facts mined from them.
package memory

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kalambet/aide/internal/extract"
)

// DefaultMaxMemories is the capacity used when none is configured.
const DefaultMaxMemories = 100

// DefaultImportance is the importance given to ordinary exchanges.
const DefaultImportance = 0.5

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Entry is one remembered exchange. Entries are never modified after they
// are appended.
type Entry struct {
	Timestamp         time.Time `json:"timestamp"`
	UserInput         string    `json:"user_input"`
	AssistantResponse string    `json:"assistant_response"`
	Importance        float64   `json:"importance"`
	Keywords          []string  `json:"keywords"`
	Category          string    `json:"category"`
}

// Fact is a notable fragment (date, time, event, address, phone number)
// seen in an exchange.
type Fact struct {
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Context   string    `json:"context"`
}

// Preferences maps a preference kind (likes, dislikes, attributes,
// location, job, name) to every value captured for it, oldest first.
type Preferences map[string][]string

// Store is a per-session memory store. All methods are safe for concurrent
// use.
type Store struct {
	mu    sync.Mutex
	clock Clock
	max   int

	entries []Entry
	prefs   Preferences
	facts   map[string]Fact
}

// NewStore creates an empty Store holding at most capacity entries.
func NewStore(capacity int) *Store {
	return NewStoreWithClock(capacity, realClock{})
}

// NewStoreWithClock creates a Store with a custom clock (for testing).
func NewStoreWithClock(capacity int, clock Clock) *Store {
	if capacity <= 0 {
		capacity = DefaultMaxMemories
	}
	return &Store{
		clock: clock,
		max:   capacity,
		prefs: Preferences{},
		facts: map[string]Fact{},
	}
}

// Max returns the configured capacity.
func (s *Store) Max() int { return s.max }

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var categories = []struct {
	name     string
	keywords []string
}{
	{"weather", []string{"天氣", "氣溫", "下雨", "晴天", "weather"}},
	{"schedule", []string{"會議", "安排", "日程", "約會", "meeting", "schedule"}},
	{"email", []string{"郵件", "信件", "寄信", "email", "mail"}},
	{"personal", []string{"我", "我的", "個人", "喜歡", "偏好", "my", "personal"}},
	{"work", []string{"工作", "公司", "同事", "專案", "work", "project", "company"}},
}

// Categorize returns the first category whose keywords appear in input.
func Categorize(input string) string {
	lower := strings.ToLower(input)
	for _, c := range categories {
		if extract.ContainsAny(lower, c.keywords) {
			return c.name
		}
	}
	return "general"
}

var preferencePatterns = []struct {
	re   *regexp.Regexp
	kind string
}{
	{regexp.MustCompile(`我喜歡(.+)`), "likes"},
	{regexp.MustCompile(`我不喜歡(.+)`), "dislikes"},
	{regexp.MustCompile(`我的(.+)是(.+)`), "attributes"},
	{regexp.MustCompile(`我住在(.+)`), "location"},
	{regexp.MustCompile(`我的工作是(.+)`), "job"},
	{regexp.MustCompile(`我叫(.+)`), "name"},
}

// word approximates a Unicode word character.
const word = `[\p{L}\p{N}_\s]`

var factPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\p{Nd}{4}年\p{Nd}{1,2}月\p{Nd}{1,2}日`),
	regexp.MustCompile(`\p{Nd}{1,2}[:：]\p{Nd}{2}`),
	regexp.MustCompile(word + `+(?:會議|活動|約會)`),
	regexp.MustCompile(word + `+@` + word + `+\.` + word + `+`),
	regexp.MustCompile(`\p{Nd}{4}-\p{Nd}{4}-\p{Nd}{4}`),
}

// Add records an exchange. Importance is clamped to [0,1]. When the store
// grows past capacity, entries are ordered by importance then timestamp,
// highest first, and the tail is dropped.
func (s *Store) Add(userInput, response string, importance float64) {
	now := s.clock.Now()
	entry := Entry{
		Timestamp:         now,
		UserInput:         userInput,
		AssistantResponse: response,
		Importance:        min(max(importance, 0), 1),
		Keywords:          extract.Keywords(userInput + " " + response),
		Category:          Categorize(userInput),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	s.extractPreferences(userInput)
	s.extractFacts(userInput, response, now)

	if len(s.entries) > s.max {
		sort.SliceStable(s.entries, func(i, j int) bool {
			a, b := s.entries[i], s.entries[j]
			if a.Importance != b.Importance {
				return a.Importance > b.Importance
			}
			return a.Timestamp.After(b.Timestamp)
		})
		s.entries = s.entries[:s.max]
	}
}

// extractPreferences runs every pattern independently, so one input may
// feed several kinds.
func (s *Store) extractPreferences(input string) {
	for _, p := range preferencePatterns {
		for _, m := range p.re.FindAllStringSubmatch(input, -1) {
			value := m[1]
			if len(m) > 2 {
				value = m[1] + ": " + m[2]
			}
			s.prefs[p.kind] = append(s.prefs[p.kind], value)
		}
	}
}

func (s *Store) extractFacts(input, response string, now time.Time) {
	text := input + " " + response
	ctx := firstRunes(input, 100)
	stamp := now.Format(time.RFC3339Nano)
	for _, re := range factPatterns {
		for _, m := range re.FindAllString(text, -1) {
			s.facts[stamp+"_"+m] = Fact{Content: m, Timestamp: now, Context: ctx}
		}
	}
}

func firstRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
