package mailbox

import (
	"fmt"
	"strings"
)

// MessageTemplate is a reusable subject/body pair with {name} placeholders
// left for the user to fill in.
type MessageTemplate struct {
	Subject string
	Body    string
}

// Templates is the built-in template library.
var Templates = map[string]MessageTemplate{
	"meeting_invite": {
		Subject: "會議邀請 - {topic}",
		Body: `親愛的 {recipient}，

希望您一切安好。

我想邀請您參加關於「{topic}」的會議。

會議詳情：
• 時間：{datetime}
• 地點：{location}
• 預計時長：{duration}

議程：
{agenda}

請回覆確認您是否能夠參加。

謝謝！

最佳問候，
{sender}`,
	},
	"project_update": {
		Subject: "專案進度更新 - {project_name}",
		Body: `您好，

這是關於「{project_name}」專案的進度更新。

目前狀況：
• 完成度：{progress}%
• 預計完成時間：{estimated_completion}
• 主要里程碑：{milestones}

如有任何問題，請隨時聯繫我。

謝謝！

{sender}`,
	},
	"follow_up": {
		Subject: "後續追蹤 - {topic}",
		Body: `您好，

希望您一切順利。

我想跟進我們之前討論的「{topic}」。

{follow_up_content}

期待您的回覆。

謝謝！

{sender}`,
	},
}

// DetectTemplate maps input to a template name, defaulting to meeting_invite.
func DetectTemplate(input string) string {
	lower := strings.ToLower(input)
	switch {
	case strings.Contains(lower, "會議") || strings.Contains(lower, "meeting"):
		return "meeting_invite"
	case strings.Contains(lower, "專案") || strings.Contains(lower, "project"):
		return "project_update"
	case strings.Contains(lower, "追蹤") || strings.Contains(lower, "follow"):
		return "follow_up"
	}
	return "meeting_invite"
}

// Template renders the named template with its placeholders untouched. An
// unknown name lists what is available.
func Template(name string) string {
	tpl, ok := Templates[name]
	if !ok {
		return `📋 **可用的郵件模板**:

🎯 **模板類型**:
• **meeting_invite** - 會議邀請
• **project_update** - 專案進度更新
• **follow_up** - 後續追蹤

💡 **使用方法**: 「使用會議邀請模板」

📝 **自定義**: 告訴我您需要什麼類型的郵件，我可以為您創建模板！`
	}
	return fmt.Sprintf(`📋 **%s 模板**

**主旨模板**: %s

**內容模板**:
%s

---
💡 **使用說明**:
• 將 {參數} 替換為實際內容
• 例如 {topic} 替換為實際主題
• 「使用此模板寫郵件給john@company.com」`, name, tpl.Subject, tpl.Body)
}
