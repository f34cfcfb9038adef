// Package calendar is an in-memory schedule keeper driven by free-text
// commands. Events live only as long as the Calendar value.
package calendar

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/kalambet/aide/internal/extract"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

const (
	unspecified     = "未指定"
	defaultDuration = "1小時"
)

// Event is a scheduled item. ID is assigned from a counter that starts at 1
// and never reuses a value, even after deletes.
type Event struct {
	ID          int       `json:"id"`
	Title       string    `json:"title"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	Duration    string    `json:"duration"`
	Location    string    `json:"location"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Priority    string    `json:"priority"`
}

// Calendar holds events for one session.
type Calendar struct {
	mu     sync.Mutex
	clock  Clock
	events []Event
	nextID int
}

// New creates an empty Calendar.
func New() *Calendar {
	return NewWithClock(realClock{})
}

// NewWithClock creates a Calendar with a custom clock (for testing).
func NewWithClock(clock Clock) *Calendar {
	return &Calendar{clock: clock, nextID: 1}
}

// Action is the schedule operation requested by a command.
type Action string

const (
	ActionAdd    Action = "add"
	ActionView   Action = "view"
	ActionDelete Action = "delete"
	ActionUpdate Action = "update"
	ActionHelp   Action = "help"
)

var (
	addKeywords    = []string{"安排", "預約", "設定", "新增", "添加", "約", "會議", "schedule", "add", "book"}
	viewKeywords   = []string{"查看", "顯示", "看", "今天", "明天", "本週", "show", "view", "list"}
	deleteKeywords = []string{"刪除", "取消", "移除", "delete", "cancel", "remove"}
	updateKeywords = []string{"修改", "更改", "調整", "update", "modify", "change"}
)

// DetectAction picks the schedule operation for input. Checks run in fixed
// order, so anything mentioning 會議 is an add.
func DetectAction(input string) Action {
	lower := strings.ToLower(input)
	switch {
	case extract.ContainsAny(lower, addKeywords):
		return ActionAdd
	case extract.ContainsAny(lower, viewKeywords):
		return ActionView
	case extract.ContainsAny(lower, deleteKeywords):
		return ActionDelete
	case extract.ContainsAny(lower, updateKeywords):
		return ActionUpdate
	}
	return ActionHelp
}

// Manage executes the command in input using the classifier entities
// (keys "date" and "time") and returns a display string.
func (c *Calendar) Manage(input string, entities map[string]string) string {
	switch DetectAction(input) {
	case ActionAdd:
		return c.add(input, entities)
	case ActionView:
		return c.view(input, entities)
	case ActionDelete:
		return c.remove(input)
	case ActionUpdate:
		return "🔧 事件更新功能正在開發中，敬請期待！\n\n💡 目前您可以刪除舊事件並添加新事件來達到更新的效果。"
	default:
		return helpText
	}
}

// Events returns a copy of all events in insertion order.
func (c *Calendar) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// Len reports the number of stored events.
func (c *Calendar) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

func (c *Calendar) add(input string, entities map[string]string) string {
	now := c.clock.Now()
	info := parseEvent(input, entities, now)
	if info.Title == "" {
		return "❌ 請告訴我要安排什麼事件，例如：「明天下午2點安排與客戶的會議」"
	}

	c.mu.Lock()
	info.ID = c.nextID
	info.CreatedAt = now
	c.nextID++
	c.events = append(c.events, info)
	c.mu.Unlock()

	var sb strings.Builder
	fmt.Fprintf(&sb, "✅ **事件已成功添加！**\n\n📋 **事件詳情**:\n🎯 **標題**: %s\n📅 **日期**: %s\n⏰ **時間**: %s\n⌛ **預計時長**: %s",
		info.Title, info.Date, info.Time, info.Duration)
	if info.Location != "" {
		fmt.Fprintf(&sb, "\n📍 **地點**: %s", info.Location)
	}
	if info.Description != "" {
		fmt.Fprintf(&sb, "\n📝 **備註**: %s", info.Description)
	}
	fmt.Fprintf(&sb, "\n\n🔢 **事件ID**: %d", info.ID)
	sb.WriteString(suggestions(info))
	return sb.String()
}

var (
	titlePatterns = []*regexp.Regexp{
		regexp.MustCompile(`安排(.+?)(?:在|的|，|$)`),
		regexp.MustCompile(`預約(.+?)(?:在|的|，|$)`),
		regexp.MustCompile(`(.+?)會議`),
		regexp.MustCompile(`(.+?)活動`),
		regexp.MustCompile(`(.+?)課程`),
	}
	stripTemporal = regexp.MustCompile(`今天|明天|後天|\p{Nd}+點|\p{Nd}+[:：]\p{Nd}+|上午|下午|早上|晚上`)
	stripVerbs    = regexp.MustCompile(`安排|預約|設定`)

	locationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`在(.+?)(?:舉行|進行|開會|，|$)`),
		regexp.MustCompile(`地點[：:](.+?)(?:，|$)`),
		regexp.MustCompile(`(?:會議室|辦公室|咖啡廳)(.+?)(?:，|$)`),
	}
	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\p{Nd}+小時`),
		regexp.MustCompile(`\p{Nd}+分鐘`),
		regexp.MustCompile(`\p{Nd}+個小時`),
	}
)

// firstGroup returns the trimmed first capture of the first matching pattern.
func firstGroup(patterns []*regexp.Regexp, s string) (string, bool) {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(s); m != nil {
			return strings.TrimSpace(m[1]), true
		}
	}
	return "", false
}

func parseEvent(input string, entities map[string]string, now time.Time) Event {
	ev := Event{
		Date:     unspecified,
		Time:     unspecified,
		Duration: defaultDuration,
		Priority: "normal",
	}

	ev.Title, _ = firstGroup(titlePatterns, input)
	if ev.Title == "" {
		cleaned := stripTemporal.ReplaceAllString(input, "")
		ev.Title = strings.TrimSpace(stripVerbs.ReplaceAllString(cleaned, ""))
	}

	if d := entities["date"]; d != "" {
		ev.Date = extract.ResolveDate(d, now)
	} else if d, ok := extract.DateFromText(input, now); ok {
		ev.Date = d
	}

	if t := entities["time"]; t != "" {
		ev.Time = t
	} else if t, ok := extract.ClockTime(input); ok {
		ev.Time = t
	}

	if loc, ok := firstGroup(locationPatterns, input); ok {
		ev.Location = loc
	}
	for _, re := range durationPatterns {
		if m := re.FindString(input); m != "" {
			ev.Duration = m
			break
		}
	}
	return ev
}

func suggestions(ev Event) string {
	var sb strings.Builder
	sb.WriteString("\n\n💡 **貼心提醒**:\n")

	title := strings.ToLower(ev.Title)
	switch {
	case strings.Contains(title, "會議") || strings.Contains(title, "meeting"):
		sb.WriteString("• 建議提前5-10分鐘到達會議地點\n• 記得準備相關資料和議程\n")
	case strings.Contains(title, "面試") || strings.Contains(title, "interview"):
		sb.WriteString("• 建議提前15分鐘到達\n• 記得準備履歷和相關證件\n")
	case strings.Contains(title, "醫生") || strings.Contains(title, "看診"):
		sb.WriteString("• 記得攜帶健保卡和相關病歷\n• 建議提前10分鐘到達\n")
	}
	if ev.Time != unspecified {
		sb.WriteString("• 我會在事件開始前提醒您\n")
	}
	return sb.String()
}
