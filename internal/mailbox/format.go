package mailbox

import (
	"fmt"
	"strings"
)

func priorityIcon(p string) string {
	switch p {
	case PriorityUrgent:
		return "🔴"
	case PriorityHigh:
		return "🟡"
	}
	return "🟢"
}

func priorityLabel(p string) string {
	switch p {
	case PriorityUrgent:
		return "🔴 緊急"
	case PriorityHigh:
		return "🟡 重要"
	}
	return "🟢 一般"
}

func readIcon(read bool) string {
	if read {
		return "✅"
	}
	return "🆕"
}

func readLabel(read bool) string {
	if read {
		return "✅ 已讀"
	}
	return "🆕 未讀"
}

func formatList(msgs []Message, title string) string {
	var sb strings.Builder
	sb.WriteString(title + "\n\n")
	for i, msg := range msgs {
		fmt.Fprintf(&sb, "**%d. %s** %s %s\n", i+1, msg.Subject, priorityIcon(msg.Priority), readIcon(msg.Read))
		fmt.Fprintf(&sb, "   📤 寄件者: %s\n", msg.From)
		fmt.Fprintf(&sb, "   📅 日期: %s\n", msg.Date)
		fmt.Fprintf(&sb, "   📝 預覽: %s...\n", truncate(msg.Body, 50))
		fmt.Fprintf(&sb, "   🔢 ID: %d\n\n", msg.ID)
	}
	fmt.Fprintf(&sb, "📊 **統計**: 共 %d 封郵件\n", len(msgs))
	sb.WriteString("💡 使用「查看郵件{ID}」來讀取完整內容")
	return sb.String()
}

// formatSingle renders msg in full. The status line reflects the state before
// this read marked it.
func formatSingle(msg Message) string {
	return fmt.Sprintf(`📧 **郵件詳情**

📋 **主旨**: %s
📤 **寄件者**: %s
📥 **收件者**: %s
📅 **日期**: %s
⚡ **優先級**: %s
📬 **狀態**: %s

📝 **內容**:
%s

---
💡 **操作建議**: 
• 回覆此郵件：「回覆郵件%d」
• 標記為重要：「標記郵件%d為重要」`,
		msg.Subject, msg.From, msg.To, msg.Date, priorityLabel(msg.Priority), readLabel(msg.Read),
		msg.Body, msg.ID, msg.ID)
}

const helpText = `📧 **郵件管理幫助**

🎯 **我可以幫您**：
• 📖 **讀取郵件**: 「查看最新郵件」、「讀取未讀郵件」
• ✍️ **撰寫郵件**: 「寫郵件給john@company.com關於會議」
• 💬 **回覆郵件**: 「回覆郵件1」
• 🔍 **搜尋郵件**: 「搜尋包含專案的郵件」
• 📊 **郵件摘要**: 「郵件摘要」
• 📋 **使用模板**: 「使用會議邀請模板」

💡 **實用功能**：
• 查看特定郵件：「查看郵件{ID}」
• 按優先級篩選：「查看重要郵件」
• 郵件統計：「有多少未讀郵件？」

🚀 **即將推出**：
• 郵件自動分類
• 智能回覆建議
• 郵件排程發送
• 與Gmail/Outlook同步

試試說：「查看未讀郵件」或「寫郵件給客戶」`
