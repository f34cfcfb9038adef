// Package extract holds the pattern-matching entity extractors shared by the
// intent classifier, the domain tools, and the memory store. Every function is
// pure: no state, no I/O, and no validation of what a pattern captured.
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// gazetteer is searched in order; the first entry found in the text wins when
// a single city is required.
var gazetteer = []string{
	"台北", "台中", "台南", "高雄", "桃園", "新竹", "台東", "花蓮",
	"台灣", "香港", "澳門", "北京", "上海", "廣州", "深圳",
	"taipei", "taichung", "kaohsiung", "hong kong", "macau",
	"beijing", "shanghai", "guangzhou", "shenzhen",
	"tokyo", "osaka", "seoul", "singapore", "bangkok",
	"new york", "london", "paris", "sydney", "melbourne",
}

// Cities returns every gazetteer entry that occurs in text (case-insensitive),
// in gazetteer order.
func Cities(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, city := range gazetteer {
		if strings.Contains(lower, strings.ToLower(city)) {
			found = append(found, city)
		}
	}
	return found
}

// FirstCity returns the first gazetteer match, or "" when none is present.
func FirstCity(text string) string {
	if cities := Cities(text); len(cities) > 0 {
		return cities[0]
	}
	return ""
}

// DateToken is a relative-date marker recognised in free text.
type DateToken string

const (
	Today            DateToken = "today"
	Tomorrow         DateToken = "tomorrow"
	DayAfterTomorrow DateToken = "day_after_tomorrow"
)

// RelativeDate returns the highest-priority relative-date token present in
// text: today, then tomorrow, then the day after tomorrow. Only one token is
// ever returned even when several appear.
func RelativeDate(text string) (DateToken, bool) {
	switch {
	case strings.Contains(text, "今天") || strings.Contains(text, "今日"):
		return Today, true
	case strings.Contains(text, "明天") || strings.Contains(text, "明日"):
		return Tomorrow, true
	case strings.Contains(text, "後天"):
		return DayAfterTomorrow, true
	}
	return "", false
}

// DateLayout is the fixed-width zero-padded layout used for every event date.
const DateLayout = "2006-01-02"

// ResolveDate turns a relative-date token into a concrete YYYY-MM-DD string
// relative to now. Anything that is not a known token is returned unchanged.
func ResolveDate(token string, now time.Time) string {
	switch DateToken(token) {
	case Today:
		return now.Format(DateLayout)
	case Tomorrow:
		return now.AddDate(0, 0, 1).Format(DateLayout)
	case DayAfterTomorrow:
		return now.AddDate(0, 0, 2).Format(DateLayout)
	}
	return token
}

// DateFromText resolves the relative date mentioned in text, if any.
func DateFromText(text string, now time.Time) (string, bool) {
	tok, ok := RelativeDate(text)
	if !ok {
		return "", false
	}
	return ResolveDate(string(tok), now), true
}

// clockPatterns are tried in order: an hour with a unit marker (optionally led
// by a period of day), an HH:MM clock, then a bare period of day.
var clockPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:上午|下午|早上|晚上|中午)?\p{Nd}{1,2}[點時]`),
	regexp.MustCompile(`\p{Nd}{1,2}[:：]\p{Nd}{2}`),
	regexp.MustCompile(`上午|下午|早上|晚上|中午`),
}

// ClockTime returns the first clock-time fragment found in text. The value is
// returned as written; "25:99" passes because only the shape is checked.
func ClockTime(text string) (string, bool) {
	for _, re := range clockPatterns {
		if m := re.FindString(text); m != "" {
			return m, true
		}
	}
	return "", false
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// EmailAddresses returns all email addresses in text, in order of appearance.
func EmailAddresses(text string) []string {
	return emailPattern.FindAllString(text, -1)
}

var numberPattern = regexp.MustCompile(`\p{Nd}+`)

// FirstNumber returns the first run of digits in text as an integer.
// Full-width digits count ("事件３" is 3). Zero is reported as absent, so
// "事件0" behaves like no id at all.
func FirstNumber(text string) (int, bool) {
	m := numberPattern.FindString(text)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(width.Narrow.String(m))
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}
