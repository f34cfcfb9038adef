package mailbox

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectAction(t *testing.T) {
	tests := []struct {
		input string
		want  Action
	}{
		{"查看郵件2", ActionRead},
		{"回覆郵件1", ActionRead},
		{"寫信給john@company.com", ActionCompose},
		{"reply 3", ActionReply},
		{"找 專案", ActionSearch},
		{"summary please", ActionSummary},
		{"使用會議邀請模板", ActionTemplate},
		{"hello", ActionHelp},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectAction(tt.input), tt.input)
	}
}

func TestReadByID_MarksRead(t *testing.T) {
	m := New()

	first := m.Process("查看郵件1")
	assert.Contains(t, first, "📋 **主旨**: 週會議程確認")
	assert.Contains(t, first, "⚡ **優先級**: 🟢 一般")
	assert.Contains(t, first, "📬 **狀態**: 🆕 未讀")
	assert.True(t, m.Messages()[0].Read)

	second := m.Process("查看郵件1")
	assert.Contains(t, second, "📬 **狀態**: ✅ 已讀")
}

func TestReadByID_AlreadyRead(t *testing.T) {
	m := New()
	got := m.Process("查看郵件2")

	assert.Contains(t, got, "📋 **主旨**: 年假申請審核")
	assert.Contains(t, got, "📥 **收件者**: user@email.com")
	assert.Contains(t, got, "⚡ **優先級**: 🟡 重要")
	assert.Contains(t, got, "📬 **狀態**: ✅ 已讀")
	assert.Contains(t, m.Process("查看郵件2"), "📬 **狀態**: ✅ 已讀")
}

func TestReadByID_FullWidthID(t *testing.T) {
	got := New().Process("查看郵件２")
	assert.Contains(t, got, "📋 **主旨**: 年假申請審核")
	assert.NotContains(t, got, "**最新郵件**")
}

func TestReadByID_NotFound(t *testing.T) {
	assert.Equal(t, "❌ 找不到ID為 9 的郵件", New().Process("查看郵件9"))
}

func TestRead_Filters(t *testing.T) {
	m := New()

	unread := m.Process("查看未讀郵件")
	assert.Contains(t, unread, "📧 **未讀郵件**")
	assert.Contains(t, unread, "週會議程確認")
	assert.Contains(t, unread, "專案進度詢問")
	assert.NotContains(t, unread, "年假申請審核")
	assert.Contains(t, unread, "共 2 封郵件")

	important := m.Process("查看重要郵件")
	assert.Contains(t, important, "⚡ **重要郵件**")
	assert.Contains(t, important, "**1. 年假申請審核** 🟡 ✅")
	assert.Contains(t, important, "**2. 專案進度詢問** 🔴 🆕")

	latest := m.Process("查看郵件")
	assert.Contains(t, latest, "📧 **最新郵件**")
	assert.Contains(t, latest, "共 3 封郵件")
}

func TestRead_NoUnreadLeft(t *testing.T) {
	m := New()
	m.Process("查看郵件1")
	m.Process("查看郵件3")
	assert.Equal(t, "📪 沒有找到符合條件的郵件。", m.Process("查看未讀郵件"))
}

func TestCompose(t *testing.T) {
	got := New().Process("寫信給john@company.com詢問報價")
	assert.Contains(t, got, "✉️ **郵件草稿已生成**")
	assert.Contains(t, got, "**收件者**: john@company.com")
	assert.Contains(t, got, "**主旨**: 詢問")
	assert.Contains(t, got, "我想詢問關於 [請填入詢問內容] 的相關資訊。")
}

func TestCompose_NeedsSubjectOrRecipient(t *testing.T) {
	got := New().Process("寫")
	assert.Contains(t, got, "✉️ **撰寫新郵件**")
	assert.NotContains(t, got, "草稿已生成")
}

func TestParseDraft(t *testing.T) {
	tests := []struct {
		input string
		want  Draft
	}{
		{"撰寫專案進度更新", Draft{Subject: "專案相關", Kind: "project"}},
		{"寄出 主旨：季度報告", Draft{Subject: "季度報告", Kind: "general"}},
		{"寫關於預算的信給amy@example.org", Draft{Recipient: "amy@example.org", Subject: "預算", Kind: "general"}},
		{"寫信安排會議", Draft{Subject: "會議安排", Kind: "meeting"}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDraft(tt.input), tt.input)
	}
}

func TestDraftRender_Placeholders(t *testing.T) {
	got := Draft{Kind: "general"}.Render()
	assert.Contains(t, got, "**收件者**: [收件者]")
	assert.Contains(t, got, "**主旨**: [主旨]")
	assert.Contains(t, got, "[請填入郵件內容]")
}

func TestReply(t *testing.T) {
	m := New()
	got := m.Process("reply 3")
	assert.Contains(t, got, "**收件者**: client@external.com")
	assert.Contains(t, got, "**主旨**: Re: 專案進度詢問")
	assert.Contains(t, got, "內容: 想了解一下目前專案的進度如何？預計什麼時候可以完成？...")

	assert.Equal(t, "❌ 請指定要回覆的郵件ID，例如：「回覆郵件1」", m.Process("reply"))
	assert.Equal(t, "❌ 找不到ID為 7 的郵件", m.Process("reply 7"))
}

func TestSearchTerms(t *testing.T) {
	assert.Equal(t, []string{"專案"}, SearchTerms("找 專案"))
	assert.Equal(t, []string{"budget"}, SearchTerms("Search budget x"))
	assert.Empty(t, SearchTerms("搜尋"))
}

func TestSearch_OrSemantics(t *testing.T) {
	m := New()

	got := m.Process("找 年假 週會")
	assert.Contains(t, got, "🔍 **搜尋結果** (關鍵詞: 年假, 週會)")
	assert.Contains(t, got, "週會議程確認")
	assert.Contains(t, got, "年假申請審核")
	assert.Contains(t, got, "共 2 封郵件")

	byFrom := m.Process("找 COMPANY")
	assert.Contains(t, byFrom, "共 2 封郵件")

	assert.Equal(t, "🔍 沒有找到包含「火星」的郵件", m.Process("找 火星"))
	assert.Equal(t, "🔍 請提供搜尋關鍵詞，例如：「搜尋包含會議的郵件」", m.Process("找"))
}

func TestSummary(t *testing.T) {
	m := New()
	got := m.Process("summary")
	assert.Contains(t, got, "• 總郵件數: 3")
	assert.Contains(t, got, "• 未讀郵件: 2")
	assert.Contains(t, got, "• 緊急郵件: 1")
	assert.Contains(t, got, "• 週會議程確認 (來自: john.doe@company.com)")
	assert.Contains(t, got, "「回覆郵件1」")

	m.Process("查看郵件1")
	got = m.Process("summary")
	assert.Contains(t, got, "• 未讀郵件: 1")
	assert.Contains(t, got, "「回覆郵件3」")

	m.Process("查看郵件3")
	got = m.Process("summary")
	assert.Contains(t, got, "• 未讀郵件: 0")
	assert.Contains(t, got, "「回覆郵件1」")
}

func TestTemplates(t *testing.T) {
	assert.Equal(t, "meeting_invite", DetectTemplate("使用會議邀請模板"))
	assert.Equal(t, "project_update", DetectTemplate("template for Project"))
	assert.Equal(t, "follow_up", DetectTemplate("追蹤模板"))
	assert.Equal(t, "meeting_invite", DetectTemplate("模板"))

	got := New().Process("template for project")
	assert.Contains(t, got, "📋 **project_update 模板**")
	assert.Contains(t, got, "**主旨模板**: 專案進度更新 - {project_name}")
	assert.Contains(t, got, "• 完成度：{progress}%")

	require.Contains(t, Template("nope"), "可用的郵件模板")
}

func TestHelp(t *testing.T) {
	got := New().Process("hello")
	assert.True(t, strings.HasPrefix(got, "📧 **郵件管理幫助**"))
	assert.True(t, strings.HasSuffix(got, "試試說：「查看未讀郵件」或「寫郵件給客戶」"))
}
