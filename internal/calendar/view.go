package calendar

import (
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/aide/internal/extract"
)

// Range labels used in view output.
const (
	RangeToday    = "今天"
	RangeTomorrow = "明天"
	RangeThisWeek = "本週"
	RangeNextWeek = "下週"
	RangeAll      = "所有"
)

// viewRange prefers the classifier date entity and falls back to the raw
// input. Next week has no filter of its own and lists everything.
func viewRange(input string, entities map[string]string) string {
	date := entities["date"]
	if date == "" {
		if tok, ok := extract.RelativeDate(input); ok {
			date = string(tok)
		}
	}
	switch {
	case date == string(extract.Today):
		return RangeToday
	case date == string(extract.Tomorrow):
		return RangeTomorrow
	case strings.Contains(input, "本週") || strings.Contains(input, "這週"):
		return RangeThisWeek
	case strings.Contains(input, "下週"):
		return RangeNextWeek
	}
	return RangeAll
}

// filter selects events by range. Dates compare as YYYY-MM-DD strings, so
// events with an unspecified date only appear in the unfiltered views.
func filter(events []Event, rng string, now time.Time) []Event {
	var lo, hi string
	switch rng {
	case RangeToday:
		lo = now.Format(extract.DateLayout)
		hi = lo
	case RangeTomorrow:
		lo = now.AddDate(0, 0, 1).Format(extract.DateLayout)
		hi = lo
	case RangeThisWeek:
		offset := (int(now.Weekday()) + 6) % 7
		start := now.AddDate(0, 0, -offset)
		lo = start.Format(extract.DateLayout)
		hi = start.AddDate(0, 0, 6).Format(extract.DateLayout)
	default:
		return events
	}

	var out []Event
	for _, e := range events {
		if e.Date >= lo && e.Date <= hi {
			out = append(out, e)
		}
	}
	return out
}

func (c *Calendar) view(input string, entities map[string]string) string {
	events := c.Events()
	if len(events) == 0 {
		return "📅 您目前沒有任何安排的事件。\n\n💡 試試說：「明天下午2點安排與客戶會議」來添加新事件！"
	}

	rng := viewRange(input, entities)
	matched := filter(events, rng, c.clock.Now())
	if len(matched) == 0 {
		return fmt.Sprintf("📅 在%s內沒有安排的事件。", rng)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 **%s的事件安排**\n\n", rng)
	for i, e := range matched {
		fmt.Fprintf(&sb, "**%d. %s**\n", i+1, e.Title)
		fmt.Fprintf(&sb, "   📅 日期: %s\n", e.Date)
		fmt.Fprintf(&sb, "   ⏰ 時間: %s\n", e.Time)
		fmt.Fprintf(&sb, "   ⌛ 時長: %s\n", e.Duration)
		if e.Location != "" {
			fmt.Fprintf(&sb, "   📍 地點: %s\n", e.Location)
		}
		if e.Description != "" {
			fmt.Fprintf(&sb, "   📝 備註: %s\n", e.Description)
		}
		fmt.Fprintf(&sb, "   🔢 ID: %d\n\n", e.ID)
	}
	fmt.Fprintf(&sb, "📊 **統計**: 共 %d 個事件", len(matched))
	return sb.String()
}

func (c *Calendar) remove(input string) string {
	id, ok := extract.FirstNumber(input)
	if !ok {
		return "❌ 請指定要刪除的事件ID，例如：「刪除事件1」或先查看事件列表獲取ID"
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i, e := range c.events {
		if e.ID == id {
			c.events = append(c.events[:i], c.events[i+1:]...)
			return fmt.Sprintf("✅ 已成功刪除事件「%s」", e.Title)
		}
	}
	return fmt.Sprintf("❌ 找不到ID為 %d 的事件", id)
}

const helpText = `📅 **日程管理幫助**

🎯 **我可以幫您**：
• 📝 **添加事件**: 「明天下午2點安排與客戶會議」
• 👀 **查看事件**: 「今天有什麼安排？」
• 🗑️ **刪除事件**: 「刪除事件1」
• 📊 **查看統計**: 「本週有幾個會議？」

💡 **使用技巧**：
• 盡量提供完整資訊（時間、地點、事件內容）
• 可以使用相對時間（今天、明天、下週）
• 每個事件都有唯一ID，刪除時請使用ID

🚀 **即將推出**：
• 事件提醒功能
• 重複事件設定
• 日程衝突檢測
• 與Google Calendar同步

試試看說：「明天上午10點安排產品會議，地點在會議室A」`
