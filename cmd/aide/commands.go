package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/aide/internal/config"
	"github.com/kalambet/aide/internal/intent"
	"github.com/kalambet/aide/internal/memory"
	"github.com/kalambet/aide/internal/session"
	"github.com/kalambet/aide/internal/storage"
)

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send one message to the running server",
	Long: `Send one message to the running server and print the reply.

Without --session a new session is opened; its ID is printed so the
conversation can be continued.

Examples:
  aide ask "台北今天天氣如何？"
  aide ask --session 4f1c... "幫我安排明天下午3點的會議"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/chat", map[string]string{
			"session_id": sessionID,
			"message":    strings.Join(args, " "),
		})
		if err != nil {
			return err
		}

		var reply session.Reply
		if err := decodeJSON(resp, &reply); err != nil {
			return err
		}

		if asJSON {
			return writeIndented(cmd.OutOrStdout(), reply)
		}
		fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
		if sessionID == "" {
			printStep("session %s", reply.SessionID)
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("session", "", "session ID to continue")
	askCmd.Flags().Bool("json", false, "print the reply with its metadata as JSON")
}

// --- classify ---

var classifyCmd = &cobra.Command{
	Use:   "classify <message>",
	Short: "Show the intent and entities extracted from a message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := intent.NewExtractor().Extract(strings.Join(args, " "))
		return writeIndented(cmd.OutOrStdout(), in)
	},
}

// --- sessions ---

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List or end sessions on the running server",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/sessions")
		if err != nil {
			return err
		}

		var infos []session.Info
		if err := decodeJSON(resp, &infos); err != nil {
			return err
		}

		if len(infos) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No live sessions.")
			return nil
		}
		for _, info := range infos {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %d messages  %d memories\n",
				colorize(colorCyan, info.ID),
				info.CreatedAt.Format("2006-01-02 15:04"),
				info.Messages, info.Memories,
			)
		}
		return nil
	},
}

var sessionsEndCmd = &cobra.Command{
	Use:   "end <id>",
	Short: "End a session, keeping a snapshot of its memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		forget, _ := cmd.Flags().GetBool("forget")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := sessionPath(args[0], "")
		if forget {
			path += "?forget=true"
		}
		resp, err := client.delete(cmd.Context(), path)
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if forget {
			printSuccess("Session %s ended and its records deleted", args[0])
		} else {
			printSuccess("Session %s ended", args[0])
		}
		return nil
	},
}

func init() {
	sessionsEndCmd.Flags().Bool("forget", false, "also delete the session's interactions and memory snapshots")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsEndCmd)
}

func sessionPath(id, suffix string) string {
	return "/sessions/" + url.PathEscape(id) + suffix
}

// --- memory ---

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect, export or import a session's memory",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show memory statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, id, err := memoryClient(cmd)
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), sessionPath(id, "/memory/stats"))
		if err != nil {
			return err
		}

		var stats memory.Stats
		if err := decodeJSON(resp, &stats); err != nil {
			return err
		}

		printStatus("Memories", "%d", stats.TotalMemories)
		printStatus("Average importance", "%.2f", stats.AverageImportance)
		printStatus("Preferences", "%d", stats.PreferencesCount)
		printStatus("Facts", "%d", stats.FactsCount)
		for category, n := range stats.Categories {
			printStatus("  "+category, "%d", n)
		}
		return nil
	},
}

var memorySearchCmd = &cobra.Command{
	Use:   "search <keyword>",
	Short: "Find memories containing a keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, id, err := memoryClient(cmd)
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), sessionPath(id, "/memory/search?q="+url.QueryEscape(args[0])))
		if err != nil {
			return err
		}

		var entries []memory.Entry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No matching memories.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %s\n    %s\n",
				colorize(colorBold, e.Timestamp.Format("01-02 15:04")),
				e.Category, e.UserInput, e.AssistantResponse,
			)
		}
		return nil
	},
}

var memoryPreferencesCmd = &cobra.Command{
	Use:   "preferences",
	Short: "Show the preferences captured from the conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, id, err := memoryClient(cmd)
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), sessionPath(id, "/memory/preferences"))
		if err != nil {
			return err
		}

		var prefs memory.Preferences
		if err := decodeJSON(resp, &prefs); err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), prefs)
	},
}

var memoryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session's memory as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		client, id, err := memoryClient(cmd)
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), sessionPath(id, "/memory/export"))
		if err != nil {
			return err
		}
		data, err := readBody(resp)
		if err != nil {
			return err
		}

		if output == "" {
			_, err := cmd.OutOrStdout().Write(data)
			return err
		}
		if err := os.WriteFile(output, data, 0o600); err != nil {
			return fmt.Errorf("writing export: %w", err)
		}
		printSuccess("Memory exported to %s", output)
		return nil
	},
}

var memoryImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace a session's memory with an exported snapshot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, id, err := memoryClient(cmd)
		if err != nil {
			return err
		}

		resp, err := client.postRaw(cmd.Context(), sessionPath(id, "/memory/import"), data)
		if err != nil {
			return err
		}

		var result map[string]bool
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Memory imported into session %s", id)
		return nil
	},
}

func init() {
	memoryCmd.PersistentFlags().String("session", "", "session ID (required)")
	memoryExportCmd.Flags().String("output", "", "output file path (default: stdout)")
	memoryCmd.AddCommand(memoryStatsCmd, memorySearchCmd, memoryPreferencesCmd, memoryExportCmd, memoryImportCmd)
}

func memoryClient(cmd *cobra.Command) (*apiClient, string, error) {
	id, _ := cmd.Flags().GetString("session")
	if id == "" {
		return nil, "", fmt.Errorf("--session is required")
	}
	client, err := newAPIClient()
	if err != nil {
		return nil, "", err
	}
	return client, id, nil
}

// --- interactions ---

var interactionsCmd = &cobra.Command{
	Use:   "interactions",
	Short: "Browse the interaction log",
}

var interactionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent interactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		q := url.Values{}
		q.Set("limit", fmt.Sprint(limit))
		if sessionID != "" {
			q.Set("session", sessionID)
		}
		resp, err := client.get(cmd.Context(), "/interactions?"+q.Encode())
		if err != nil {
			return err
		}

		var interactions []storage.Interaction
		if err := decodeJSON(resp, &interactions); err != nil {
			return err
		}

		if len(interactions) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No interactions found.")
			return nil
		}
		for _, ix := range interactions {
			tool := ix.Tool
			if tool == "" {
				tool = "-"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-8s %-8s %s\n",
				colorize(colorCyan, ix.ID),
				ix.CreatedAt.Format("2006-01-02 15:04"),
				ix.IntentType, tool,
				truncate(ix.UserInput, 40),
			)
		}
		return nil
	},
}

var interactionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one interaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/interactions/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}

		var ix storage.Interaction
		if err := decodeJSON(resp, &ix); err != nil {
			return err
		}
		return writeIndented(cmd.OutOrStdout(), ix)
	},
}

func init() {
	interactionsListCmd.Flags().Int("limit", 20, "maximum number of interactions")
	interactionsListCmd.Flags().String("session", "", "only show this session")
	interactionsCmd.AddCommand(interactionsListCmd, interactionsShowCmd)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value.

API keys are not stored here; set AIDE_GEMINI_API_KEY, AIDE_OPENROUTER_API_KEY
or AIDE_WEATHER_API_KEY, or add them to the secrets file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
