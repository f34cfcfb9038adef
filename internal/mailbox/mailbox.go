// Package mailbox is a demo mail client over a fixed seeded inbox. It reads,
// drafts, searches and summarises but never sends anything.
package mailbox

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/kalambet/aide/internal/extract"
)

// Priority levels carried by a message.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Message is a mailbox entry. Only Read changes after construction.
type Message struct {
	ID       int    `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	Date     string `json:"date"`
	Read     bool   `json:"read"`
	Priority string `json:"priority"`
}

func seed() []Message {
	return []Message{
		{
			ID: 1, From: "john.doe@company.com", To: "user@email.com",
			Subject: "週會議程確認", Body: "請確認明天的週會議程，會議時間是上午10點。",
			Date: "2024-06-11", Read: false, Priority: PriorityNormal,
		},
		{
			ID: 2, From: "hr@company.com", To: "user@email.com",
			Subject: "年假申請審核", Body: "您的年假申請已通過審核，請查看附件。",
			Date: "2024-06-10", Read: true, Priority: PriorityHigh,
		},
		{
			ID: 3, From: "client@external.com", To: "user@email.com",
			Subject: "專案進度詢問", Body: "想了解一下目前專案的進度如何？預計什麼時候可以完成？",
			Date: "2024-06-09", Read: false, Priority: PriorityUrgent,
		},
	}
}

// Mailbox holds one session's inbox.
type Mailbox struct {
	mu       sync.Mutex
	messages []Message
}

// New creates a Mailbox with the three seeded messages.
func New() *Mailbox {
	return &Mailbox{messages: seed()}
}

// Messages returns a copy of the inbox.
func (m *Mailbox) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Action is the mail operation requested by a command.
type Action string

const (
	ActionRead     Action = "read"
	ActionCompose  Action = "compose"
	ActionReply    Action = "reply"
	ActionSearch   Action = "search"
	ActionSummary  Action = "summary"
	ActionTemplate Action = "template"
	ActionHelp     Action = "help"
)

var actionKeywords = []struct {
	action   Action
	keywords []string
}{
	{ActionRead, []string{"查看", "讀", "顯示", "郵件", "信件", "read", "show", "view"}},
	{ActionCompose, []string{"寫", "撰寫", "發送", "寄", "compose", "write", "send"}},
	{ActionReply, []string{"回覆", "回信", "reply", "respond"}},
	{ActionSearch, []string{"搜尋", "查找", "找", "search", "find"}},
	{ActionSummary, []string{"摘要", "總結", "概要", "summary", "overview"}},
	{ActionTemplate, []string{"模板", "範本", "template"}},
}

// DetectAction returns the first action whose keywords appear in input.
// Read is checked first, so anything mentioning 郵件 reads mail.
func DetectAction(input string) Action {
	lower := strings.ToLower(input)
	for _, ak := range actionKeywords {
		if extract.ContainsAny(lower, ak.keywords) {
			return ak.action
		}
	}
	return ActionHelp
}

// Process executes the command in input and returns a display string.
func (m *Mailbox) Process(input string) string {
	switch DetectAction(input) {
	case ActionRead:
		return m.read(input)
	case ActionCompose:
		return compose(input)
	case ActionReply:
		return m.reply(input)
	case ActionSearch:
		return m.search(input)
	case ActionSummary:
		return m.summary()
	case ActionTemplate:
		return Template(DetectTemplate(input))
	default:
		return helpText
	}
}

func (m *Mailbox) read(input string) string {
	if id, ok := extract.FirstNumber(input); ok {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i := range m.messages {
			if m.messages[i].ID == id {
				shown := m.messages[i]
				m.messages[i].Read = true
				return formatSingle(shown)
			}
		}
		return fmt.Sprintf("❌ 找不到ID為 %d 的郵件", id)
	}

	all := m.Messages()
	lower := strings.ToLower(input)

	var (
		selected []Message
		title    string
	)
	switch {
	case strings.Contains(input, "未讀") || strings.Contains(lower, "unread"):
		title = "📧 **未讀郵件**"
		for _, msg := range all {
			if !msg.Read {
				selected = append(selected, msg)
			}
		}
	case strings.Contains(input, "重要") || strings.Contains(lower, "important"):
		title = "⚡ **重要郵件**"
		for _, msg := range all {
			if msg.Priority == PriorityHigh || msg.Priority == PriorityUrgent {
				selected = append(selected, msg)
			}
		}
	default:
		title = "📧 **最新郵件**"
		selected = all[max(0, len(all)-5):]
	}

	if len(selected) == 0 {
		return "📪 沒有找到符合條件的郵件。"
	}
	return formatList(selected, title)
}

func (m *Mailbox) find(id int) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return Message{}, false
}

func (m *Mailbox) reply(input string) string {
	id, ok := extract.FirstNumber(input)
	if !ok {
		return "❌ 請指定要回覆的郵件ID，例如：「回覆郵件1」"
	}
	orig, ok := m.find(id)
	if !ok {
		return fmt.Sprintf("❌ 找不到ID為 %d 的郵件", id)
	}

	return fmt.Sprintf(`✉️ **回覆郵件草稿**

**收件者**: %s
**主旨**: Re: %s

**內容**:
您好，

謝謝您的郵件。

[請填入回覆內容]

如有任何問題，請隨時聯繫我。

謝謝！

---
**原始郵件**:
寄件者: %s
主旨: %s
內容: %s...

---
💡 **下一步**: 「修改回覆內容」或「發送回覆」`, orig.From, orig.Subject, orig.From, orig.Subject, truncate(orig.Body, 100))
}

var searchVerbs = regexp.MustCompile(`(?i)搜尋|查找|找|包含|關於|search|find`)

// SearchTerms strips search verbs from input and returns the remaining
// whitespace-separated tokens longer than one rune.
func SearchTerms(input string) []string {
	cleaned := searchVerbs.ReplaceAllString(input, "")
	var terms []string
	for _, tok := range strings.Fields(cleaned) {
		if utf8.RuneCountInString(tok) > 1 {
			terms = append(terms, tok)
		}
	}
	return terms
}

func (m *Mailbox) search(input string) string {
	terms := SearchTerms(input)
	if len(terms) == 0 {
		return "🔍 請提供搜尋關鍵詞，例如：「搜尋包含會議的郵件」"
	}

	var results []Message
	for _, msg := range m.Messages() {
		for _, term := range terms {
			t := strings.ToLower(term)
			if strings.Contains(strings.ToLower(msg.Subject), t) ||
				strings.Contains(strings.ToLower(msg.Body), t) ||
				strings.Contains(strings.ToLower(msg.From), t) {
				results = append(results, msg)
				break
			}
		}
	}

	joined := strings.Join(terms, ", ")
	if len(results) == 0 {
		return fmt.Sprintf("🔍 沒有找到包含「%s」的郵件", joined)
	}
	return formatList(results, fmt.Sprintf("🔍 **搜尋結果** (關鍵詞: %s)", joined))
}

func (m *Mailbox) summary() string {
	all := m.Messages()

	var unread []Message
	urgent := 0
	for _, msg := range all {
		if !msg.Read {
			unread = append(unread, msg)
		}
		if msg.Priority == PriorityUrgent {
			urgent++
		}
	}
	latest := unread[max(0, len(unread)-3):]

	var sb strings.Builder
	fmt.Fprintf(&sb, "📊 **郵件摘要**\n\n📈 **統計資訊**:\n• 總郵件數: %d\n• 未讀郵件: %d\n• 緊急郵件: %d\n\n🆕 **最新未讀郵件**:",
		len(all), len(unread), urgent)
	for _, msg := range latest {
		fmt.Fprintf(&sb, "\n• %s (來自: %s)", msg.Subject, msg.From)
	}

	replyID := 1
	if len(latest) > 0 {
		replyID = latest[0].ID
	}
	fmt.Fprintf(&sb, "\n\n💡 **建議行動**:\n• 查看未讀郵件: 「查看未讀郵件」\n• 處理緊急郵件: 「查看重要郵件」\n• 回覆待處理: 「回覆郵件%d」", replyID)
	return sb.String()
}

// truncate returns the first n runes of s.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
