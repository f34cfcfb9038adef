package intent

import (
	"strings"

	"github.com/kalambet/aide/internal/extract"
)

// Type is the closed set of intents the classifier can produce.
type Type string

const (
	General  Type = "general"
	Weather  Type = "weather"
	Calendar Type = "calendar"
	Email    Type = "email"
)

// Entity keys populated by the classifier.
const (
	EntityCity = "city"
	EntityDate = "date"
	EntityTime = "time"
)

// DispatchThreshold is the confidence a non-general intent must strictly
// exceed before a tool runs.
const DispatchThreshold = 0.5

// Intent holds the classification result for a single user input. It lives
// only for the duration of one request.
type Intent struct {
	Type       Type              `json:"type"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
}

// Dispatchable reports whether the intent is strong enough to invoke a tool.
func (i Intent) Dispatchable() bool {
	return i.Type != General && i.Confidence > DispatchThreshold
}

var (
	weatherKeywords  = []string{"天氣", "氣溫", "下雨", "晴天", "陰天", "風速", "weather", "temperature"}
	calendarKeywords = []string{"會議", "安排", "日程", "約會", "提醒", "meeting", "schedule", "appointment"}
	emailKeywords    = []string{"郵件", "信件", "寄信", "回信", "email", "mail", "send"}
)

// Extractor classifies free text into an Intent using fixed keyword sets.
// It is stateless and safe for concurrent use.
type Extractor struct{}

// NewExtractor creates an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract classifies query. Categories are checked in fixed priority order
// (weather, calendar, email) and the first match wins; no match yields a
// general intent with zero confidence.
func (e *Extractor) Extract(query string) Intent {
	lower := strings.ToLower(query)
	result := Intent{Type: General, Confidence: 0.0, Entities: map[string]string{}}

	switch {
	case extract.ContainsAny(lower, weatherKeywords):
		result.Type = Weather
		result.Confidence = 0.8
		if city := extract.FirstCity(query); city != "" {
			result.Entities[EntityCity] = city
		}
	case extract.ContainsAny(lower, calendarKeywords):
		result.Type = Calendar
		result.Confidence = 0.7
		if tok, ok := extract.RelativeDate(query); ok {
			result.Entities[EntityDate] = string(tok)
		}
		if t, ok := extract.ClockTime(query); ok {
			result.Entities[EntityTime] = t
		}
	case extract.ContainsAny(lower, emailKeywords):
		result.Type = Email
		result.Confidence = 0.7
	}
	return result
}
