package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// MaxKeywords caps the keyword list kept per memory entry.
const MaxKeywords = 10

var punctuation = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)

var stopWords = map[string]struct{}{
	"的": {}, "是": {}, "在": {}, "了": {}, "有": {}, "和": {}, "就": {}, "都": {},
	"而": {}, "及": {}, "與": {}, "或": {}, "但": {}, "不": {}, "沒": {}, "很": {},
	"還": {}, "也": {}, "只": {}, "再": {}, "更": {}, "最": {}, "非常": {},
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "and": {}, "a": {},
	"to": {}, "as": {}, "are": {}, "was": {}, "will": {}, "be": {}, "have": {},
	"has": {}, "had": {}, "do": {}, "does": {}, "did": {},
}

// Keywords lower-cases text, replaces punctuation with spaces, splits on
// whitespace and drops single-rune tokens and stop words. Order is kept and
// at most MaxKeywords tokens are returned.
func Keywords(text string) []string {
	cleaned := punctuation.ReplaceAllString(strings.ToLower(text), " ")

	keywords := []string{}
	for _, word := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(word) <= 1 {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
		if len(keywords) == MaxKeywords {
			break
		}
	}
	return keywords
}

// ContainsAny reports whether any of the needles is a substring of s.
func ContainsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
