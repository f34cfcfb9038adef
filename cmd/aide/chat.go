package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kalambet/aide/internal/config"
	"github.com/kalambet/aide/internal/session"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the assistant in the terminal",
	Long: `Start an interactive session in the terminal. No server is needed.

Type a message and press Enter. Lines starting with "/" are commands;
type /help to list them. The session ends on /quit or end of input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg.Log.Level)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sessions, err := newSessionManager(ctx, cfg, nil)
		if err != nil {
			return err
		}
		s, err := sessions.Open("")
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), colorize(colorBold, "🤖 AI 智能助理"), "(/help 查看指令)")
		return runREPL(ctx, s, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

const replPrompt = "> "

const replHelp = `指令：
  /stats          記憶統計
  /prefs          已記住的偏好
  /events         日程列表
  /export <file>  匯出記憶
  /import <file>  匯入記憶
  /clear          清除對話與記憶
  /quit           結束`

// runREPL reads lines from in until EOF, /quit or ctx is done.
func runREPL(ctx context.Context, s *session.Session, in io.Reader, out io.Writer) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	fmt.Fprint(out, replPrompt)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		switch {
		case line == "":
		case strings.HasPrefix(line, "/"):
			if quit := replCommand(s, line, out); quit {
				return nil
			}
		default:
			reply := s.Handle(ctx, line)
			if reply.Metadata.ToolUsed {
				fmt.Fprintln(out, colorize(colorCyan, "["+reply.Metadata.Tool+"]"))
			}
			fmt.Fprintln(out, reply.Text)
		}
		fmt.Fprint(out, replPrompt)
	}
	fmt.Fprintln(out)
	return sc.Err()
}

const maxLineSize = 1 << 20

// replCommand runs a slash command and reports whether the REPL should stop.
func replCommand(s *session.Session, line string, out io.Writer) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true
	case "/help":
		fmt.Fprintln(out, replHelp)
	case "/clear":
		s.Clear()
		fmt.Fprintln(out, "✅ 對話與記憶已清除")
	case "/stats":
		st := s.Memory().Stats()
		fmt.Fprintf(out, "記憶數量: %d\n平均重要度: %.2f\n偏好: %d\n重要資訊: %d\n",
			st.TotalMemories, st.AverageImportance, st.PreferencesCount, st.FactsCount)
	case "/prefs":
		if err := writeIndented(out, s.Memory().Preferences()); err != nil {
			fmt.Fprintf(out, "❌ %v\n", err)
		}
	case "/events":
		events := s.Calendar().Events()
		if len(events) == 0 {
			fmt.Fprintln(out, "📅 目前沒有安排任何日程")
			break
		}
		for _, e := range events {
			fmt.Fprintf(out, "%d. %s %s %s\n", e.ID, e.Date, e.Time, e.Title)
		}
	case "/export":
		if arg == "" {
			fmt.Fprintln(out, "用法: /export <file>")
			break
		}
		data, err := s.Memory().Export()
		if err == nil {
			err = os.WriteFile(arg, data, 0o600)
		}
		if err != nil {
			fmt.Fprintf(out, "❌ 匯出失敗: %v\n", err)
			break
		}
		fmt.Fprintf(out, "✅ 記憶已匯出到 %s\n", arg)
	case "/import":
		if arg == "" {
			fmt.Fprintln(out, "用法: /import <file>")
			break
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			fmt.Fprintf(out, "❌ 匯入失敗: %v\n", err)
			break
		}
		if !s.Memory().Import(data) {
			fmt.Fprintln(out, "❌ 匯入失敗: 檔案格式錯誤")
			break
		}
		fmt.Fprintf(out, "✅ 已匯入 %d 筆記憶\n", s.Memory().Len())
	default:
		fmt.Fprintf(out, "未知指令 %s，輸入 /help 查看指令\n", name)
	}
	return false
}
