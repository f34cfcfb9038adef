package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "aide",
	Short: "aide: personal assistant with weather, calendar and mail tools",
	Long: `aide is a personal assistant that answers in Traditional Chinese.

It classifies each message, runs the weather, calendar or mail tool when one
fits, remembers past exchanges and asks a language model for the reply.

Run "aide start" for the HTTP API and MCP server, or "aide chat" for an
interactive session in the terminal.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd, stopCmd, statusCmd)
	rootCmd.AddCommand(chatCmd, askCmd, classifyCmd)
	rootCmd.AddCommand(sessionsCmd, memoryCmd, interactionsCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
