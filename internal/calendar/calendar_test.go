package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// Tuesday.
var tuesday = time.Date(2024, 6, 11, 9, 0, 0, 0, time.Local)

func newTestCalendar() *Calendar {
	return NewWithClock(fixedClock{now: tuesday})
}

func TestDetectAction(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{"明天安排會議", ActionAdd},
		{"Book a table", ActionAdd},
		{"查看行程", ActionView},
		{"show my events", ActionView},
		{"刪除事件1", ActionDelete},
		{"修改事件", ActionUpdate},
		{"hello", ActionHelp},
		{"今天有什麼安排？", ActionAdd},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectAction(tt.input), tt.input)
	}
}

func TestAdd_ClientMeeting(t *testing.T) {
	c := newTestCalendar()
	got := c.Manage("明天下午2點安排與客戶的會議", map[string]string{"date": "tomorrow", "time": "下午2點"})

	assert.Contains(t, got, "✅ **事件已成功添加！**")
	assert.Contains(t, got, "🎯 **標題**: 與客戶")
	assert.Contains(t, got, "📅 **日期**: 2024-06-12")
	assert.Contains(t, got, "⏰ **時間**: 下午2點")
	assert.Contains(t, got, "⌛ **預計時長**: 1小時")
	assert.Contains(t, got, "🔢 **事件ID**: 1")
	assert.Contains(t, got, "• 我會在事件開始前提醒您")

	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].ID)
	assert.Equal(t, "與客戶", events[0].Title)
	assert.Equal(t, "normal", events[0].Priority)
	assert.Equal(t, tuesday, events[0].CreatedAt)
}

func TestAdd_DateFromTextWithoutEntities(t *testing.T) {
	c := newTestCalendar()
	c.Manage("後天安排讀書會", nil)

	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "2024-06-13", events[0].Date)
	assert.Equal(t, unspecified, events[0].Time)
}

func TestAdd_LocationAndMeetingSuggestions(t *testing.T) {
	c := newTestCalendar()
	got := c.Manage("明天上午10點安排產品會議，地點在會議室A", map[string]string{"date": "tomorrow", "time": "上午10點"})

	assert.Contains(t, got, "🎯 **標題**: 產品會議")
	assert.Contains(t, got, "📍 **地點**: 會議室A")
	assert.Contains(t, got, "• 建議提前5-10分鐘到達會議地點")
	assert.Contains(t, got, "• 記得準備相關資料和議程")
}

func TestAdd_Duration(t *testing.T) {
	c := newTestCalendar()
	c.Manage("下午安排讀書活動，時長90分鐘", nil)

	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "讀書活動", events[0].Title)
	assert.Equal(t, "90分鐘", events[0].Duration)
	assert.Equal(t, "下午", events[0].Time)
}

func TestAdd_FallbackTitle(t *testing.T) {
	c := newTestCalendar()
	c.Manage("設定明天早上牙醫", nil)

	events := c.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "牙醫", events[0].Title)
	assert.Equal(t, "2024-06-12", events[0].Date)
	assert.Equal(t, "早上", events[0].Time)
}

func TestAdd_NoTitleCreatesNothing(t *testing.T) {
	c := newTestCalendar()
	got := c.Manage("安排", nil)

	assert.Equal(t, "❌ 請告訴我要安排什麼事件，例如：「明天下午2點安排與客戶的會議」", got)
	assert.Zero(t, c.Len())
}

func TestIDsAreNeverReused(t *testing.T) {
	c := newTestCalendar()
	c.Manage("安排晨跑", nil)
	c.Manage("安排午餐", nil)

	assert.Equal(t, "✅ 已成功刪除事件「午餐」", c.Manage("刪除事件2", nil))
	c.Manage("安排晚餐", nil)

	events := c.Events()
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].ID)
	assert.Equal(t, 3, events[1].ID)
}

func TestDelete_Messages(t *testing.T) {
	c := newTestCalendar()
	assert.Equal(t, "❌ 找不到ID為 9 的事件", c.Manage("刪除事件9", nil))
	assert.Equal(t, "❌ 請指定要刪除的事件ID，例如：「刪除事件1」或先查看事件列表獲取ID", c.Manage("刪除事件", nil))
}

func TestDelete_MissingIDLeavesEvents(t *testing.T) {
	c := newTestCalendar()
	c.Manage("明天下午2點安排與客戶會議", map[string]string{"date": "tomorrow"})
	c.Manage("安排晨跑", nil)
	before := c.Events()
	require.Len(t, before, 2)

	assert.Equal(t, "❌ 找不到ID為 7 的事件", c.Manage("刪除事件7", nil))
	assert.Equal(t, before, c.Events())
}

func TestDelete_FullWidthID(t *testing.T) {
	c := newTestCalendar()
	c.Manage("安排晨跑", nil)
	c.Manage("安排午餐", nil)

	assert.Equal(t, "✅ 已成功刪除事件「午餐」", c.Manage("刪除事件２", nil))
	require.Len(t, c.Events(), 1)
	assert.Equal(t, "晨跑", c.Events()[0].Title)
}

func TestUpdate_IsStatic(t *testing.T) {
	c := newTestCalendar()
	c.Manage("安排晨跑", nil)
	got := c.Manage("修改事件1", nil)

	assert.Contains(t, got, "事件更新功能正在開發中")
	assert.Equal(t, "晨跑", c.Events()[0].Title)
}

func TestHelp(t *testing.T) {
	got := newTestCalendar().Manage("hello", nil)
	assert.Contains(t, got, "📅 **日程管理幫助**")
}

func TestView_Empty(t *testing.T) {
	got := newTestCalendar().Manage("查看行程", nil)
	assert.Contains(t, got, "您目前沒有任何安排的事件")
}

func TestView_Ranges(t *testing.T) {
	c := newTestCalendar()
	c.Manage("今天安排晨跑", map[string]string{"date": "today"})
	c.Manage("後天安排午餐", map[string]string{"date": "day_after_tomorrow"})
	c.Manage("安排旅行", map[string]string{"date": "2024-06-20"})

	today := c.Manage("查看今天", map[string]string{"date": "today"})
	assert.Contains(t, today, "📅 **今天的事件安排**")
	assert.Contains(t, today, "晨跑")
	assert.NotContains(t, today, "午餐")
	assert.Contains(t, today, "共 1 個事件")

	assert.Equal(t, "📅 在明天內沒有安排的事件。", c.Manage("查看明天", map[string]string{"date": "tomorrow"}))

	week := c.Manage("顯示本週", nil)
	assert.Contains(t, week, "📅 **本週的事件安排**")
	assert.Contains(t, week, "共 2 個事件")
	assert.NotContains(t, week, "旅行")

	all := c.Manage("show everything", nil)
	assert.Contains(t, all, "📅 **所有的事件安排**")
	assert.Contains(t, all, "共 3 個事件")
}

func TestFilter_WeekStartsMonday(t *testing.T) {
	sunday := time.Date(2024, 6, 16, 12, 0, 0, 0, time.Local)
	events := []Event{
		{ID: 1, Date: "2024-06-09"},
		{ID: 2, Date: "2024-06-10"},
		{ID: 3, Date: "2024-06-16"},
		{ID: 4, Date: "2024-06-17"},
		{ID: 5, Date: unspecified},
	}

	got := filter(events, RangeThisWeek, sunday)
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
}

func TestFilter_WeekAcrossYearBoundary(t *testing.T) {
	wednesday := time.Date(2025, 12, 31, 12, 0, 0, 0, time.Local)
	events := []Event{
		{ID: 1, Date: "2025-12-28"},
		{ID: 2, Date: "2025-12-29"},
		{ID: 3, Date: "2026-01-02"},
		{ID: 4, Date: "2026-01-04"},
		{ID: 5, Date: "2026-01-05"},
	}

	got := filter(events, RangeThisWeek, wednesday)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[0].ID)
	assert.Equal(t, 3, got[1].ID)
	assert.Equal(t, 4, got[2].ID)
}
