package mailbox

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kalambet/aide/internal/extract"
)

// Draft is an unsent message produced by compose.
type Draft struct {
	Recipient string
	Subject   string
	Kind      string
}

var subjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`關於(.+?)的`),
	regexp.MustCompile(`(.+?)郵件`),
	regexp.MustCompile(`主旨[：:](.+?)(?:，|$)`),
	regexp.MustCompile(`標題[：:](.+?)(?:，|$)`),
}

// ParseDraft extracts the recipient, subject and coarse kind from input.
// Kind is one of meeting, project, inquiry or general; the first three
// supply a default subject when none was found.
func ParseDraft(input string) Draft {
	d := Draft{Kind: "general"}
	if addrs := extract.EmailAddresses(input); len(addrs) > 0 {
		d.Recipient = addrs[0]
	}
	for _, re := range subjectPatterns {
		if m := re.FindStringSubmatch(input); m != nil {
			d.Subject = strings.TrimSpace(m[1])
			break
		}
	}

	var fallback string
	switch {
	case strings.Contains(input, "會議"):
		d.Kind, fallback = "meeting", "會議安排"
	case strings.Contains(input, "專案") || strings.Contains(input, "項目"):
		d.Kind, fallback = "project", "專案相關"
	case strings.Contains(input, "詢問") || strings.Contains(input, "請問"):
		d.Kind, fallback = "inquiry", "詢問"
	}
	if d.Subject == "" {
		d.Subject = fallback
	}
	return d
}

var draftBodies = map[string]string{
	"meeting": `您好，

希望您一切安好。

我想與您安排一個會議來討論相關事宜。

會議詳情：
• 時間：[請填入時間]
• 地點：[請填入地點]
• 議程：[請填入議程]

請回覆確認您是否能夠參加。

謝謝！

最佳問候`,
	"project": `您好，

關於我們目前進行的專案，我想與您分享一些更新。

[請填入專案詳情]

如有任何問題或建議，請隨時聯繫我。

謝謝！`,
	"inquiry": `您好，

我想詢問關於 [請填入詢問內容] 的相關資訊。

[請填入具體問題]

期待您的回覆。

謝謝！`,
	"general": `您好，

[請填入郵件內容]

謝謝！`,
}

// Render formats the draft with the body template for its kind.
func (d Draft) Render() string {
	recipient := d.Recipient
	if recipient == "" {
		recipient = "[收件者]"
	}
	subject := d.Subject
	if subject == "" {
		subject = "[主旨]"
	}
	body, ok := draftBodies[d.Kind]
	if !ok {
		body = draftBodies["general"]
	}
	return fmt.Sprintf("**收件者**: %s\n**主旨**: %s\n\n**內容**:\n%s", recipient, subject, body)
}

func compose(input string) string {
	d := ParseDraft(input)
	if d.Subject == "" && d.Recipient == "" {
		return composeHelp
	}
	return fmt.Sprintf(`✉️ **郵件草稿已生成**

%s

---
💡 **下一步**：
• 修改內容：「修改主旨為...」
• 發送郵件：「發送這封郵件」（演示模式）
• 使用模板：「使用會議邀請模板」`, d.Render())
}

const composeHelp = `✉️ **撰寫新郵件**

請提供更多資訊來幫您撰寫郵件：

📝 **範例用法**：
• 「寫一封關於會議安排的郵件給john@company.com」
• 「撰寫專案進度更新郵件」
• 「寄信給客戶詢問需求」

🎯 **需要的資訊**：
• 收件者（誰）
• 主旨（什麼事）
• 內容要點

💡 **或者使用模板**：「使用會議邀請模板」`
