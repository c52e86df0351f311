package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var configPath string

func buildRootCommand() *cobra.Command {
	var showVersion bool

	root := &cobra.Command{
		Use:   "majordomo",
		Short: "Sarcastic butler chat agent with Telegram, WhatsApp and Discord gateways",
		Long: strings.TrimSpace(`majordomo runs Cristóbal, an LLM-backed butler that answers over
Telegram, a Twilio WhatsApp webhook, or Discord, with weather, news and web
lookup tools and per-user conversation memory.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				printVersion()
				return nil
			}
			_ = cmd.Help()
			return fmt.Errorf("a subcommand is required")
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.Flags().BoolVarP(&showVersion, "version", "v", false, "Show build/version metadata")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "majordomo.json", "Path to the JSON config file")

	root.AddCommand(newGatewayCommand())
	root.AddCommand(newChatCommand())
	root.AddCommand(newStatusCommand())
	root.AddCommand(newVersionCommand())

	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show build/version metadata",
		RunE: func(cmd *cobra.Command, args []string) error {
			printVersion()
			return nil
		},
	}
}

func printVersion() {
	fmt.Printf("majordomo %s (commit %s, built %s)\n", version, commit, date)
}
