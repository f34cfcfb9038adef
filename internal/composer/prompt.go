package composer

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultMaxContextTokens = 4000
	defaultHistoryTurns     = 3
)

// SystemPrompt describes the assistant persona and is placed at the top of
// every generation prompt.
const SystemPrompt = `你是一個智能個人助理，名叫 AI助手。你的特點：

🎯 核心能力：
- 天氣查詢：可以查詢全球任何城市的即時天氣
- 日程管理：幫助用戶管理和安排日程
- 郵件處理：協助處理郵件相關任務
- 智能記憶：記住用戶的偏好和重要資訊

💬 對話風格：
- 友善、專業、有幫助
- 使用繁體中文回應
- 適當使用emoji讓對話更生動
- 主動提供建議和解決方案

🔧 工具使用：
- 當用戶詢問天氣時，使用天氣工具
- 當用戶需要安排日程時，使用日程工具
- 當用戶需要處理郵件時，使用郵件工具
- 根據上下文智能選擇合適的工具

📝 記憶運用：
- 參考用戶的歷史對話
- 記住用戶的偏好和習慣
- 提供個性化的建議

現在開始為用戶提供服務吧！`

const noMemories = "無相關記憶"

// Roles used in Turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message of the conversation so far.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Composer assembles the generation prompt from the user input, the tool
// result, recent conversation turns and retrieved memories.
type Composer struct {
	MaxContextTokens int
	HistoryTurns     int
	SystemPrompt     string
}

// New creates a Composer with the given token budget for injected memories.
// If maxContextTokens <= 0, the default (4000) is used.
func New(maxContextTokens int) *Composer {
	if maxContextTokens <= 0 {
		maxContextTokens = defaultMaxContextTokens
	}
	return &Composer{
		MaxContextTokens: maxContextTokens,
		HistoryTurns:     defaultHistoryTurns,
		SystemPrompt:     SystemPrompt,
	}
}

// Context builds the context block: current time, the tool result when a
// tool ran, and the last HistoryTurns turns.
func (c *Composer) Context(now time.Time, toolResult string, toolUsed bool, history []Turn) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "當前時間：%s\n", now.Format("2006-01-02 15:04:05"))

	if toolUsed {
		fmt.Fprintf(&sb, "\n工具執行結果：\n%s\n", toolResult)
	}

	if len(history) > 0 {
		n := c.HistoryTurns
		if n <= 0 {
			n = defaultHistoryTurns
		}
		sb.WriteString("\n最近對話：\n")
		for _, t := range history[max(0, len(history)-n):] {
			role := "助理"
			if t.Role == RoleUser {
				role = "用戶"
			}
			fmt.Fprintf(&sb, "%s: %s\n", role, t.Content)
		}
	}
	return sb.String()
}

// Prompt builds the full prompt sent to the generation backend. Memories are
// kept in the given order until the token budget runs out.
func (c *Composer) Prompt(userInput, context string, memories []string) string {
	kept := c.fitMemories(memories)
	memText := noMemories
	if len(kept) > 0 {
		memText = strings.Join(kept, "\n")
	}

	return fmt.Sprintf(`
%s

基於以下資訊回應用戶：

用戶輸入：%s

上下文資訊：
%s

相關記憶：
%s

請生成一個有幫助、自然的回應。如果有使用工具獲得的資訊，請整合到回應中。
`, c.SystemPrompt, userInput, context, memText)
}

// fitMemories drops memories that would exceed MaxContextTokens.
func (c *Composer) fitMemories(memories []string) []string {
	remaining := c.MaxContextTokens
	var kept []string
	for _, m := range memories {
		tokens := EstimateTokens(m + "\n")
		if tokens > remaining {
			continue
		}
		kept = append(kept, m)
		remaining -= tokens
	}
	return kept
}

// EstimateTokens provides a rough token count using 4 bytes per token heuristic.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}
