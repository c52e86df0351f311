package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/majordomo-ai/majordomo/pkg/config"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus()
		},
	}
}

func runStatus() error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fmt.Printf("Config file:  %s\n", configPath)
	fmt.Printf("Provider:     %s (model %s) key=%s\n", cfg.Provider.Name, cfg.Agent.Model, presence(cfg.Provider.APIKey))
	fmt.Printf("Language:     %s, max iterations %d\n", cfg.Agent.Language, cfg.MaxIterations())

	fmt.Println("Channels:")
	fmt.Printf("  telegram:   %s token=%s\n", enabled(cfg.Channels.Telegram.Enabled), presence(cfg.Channels.Telegram.Token))
	fmt.Printf("  whatsapp:   %s webhook=%s:%d\n", enabled(cfg.Channels.WhatsApp.Enabled), cfg.Channels.WhatsApp.Host, cfg.Channels.WhatsApp.Port)
	fmt.Printf("  discord:    %s token=%s\n", enabled(cfg.Channels.Discord.Enabled), presence(cfg.Channels.Discord.Token))

	fmt.Println("Tools:")
	fmt.Printf("  get_weather: key=%s\n", presence(cfg.Tools.Weather.APIKey))
	fmt.Printf("  get_news:    key=%s\n", presence(cfg.Tools.News.APIKey))
	fmt.Printf("  web:         %s\n", enabled(cfg.Tools.Web.Enabled))

	fmt.Printf("Admin server: %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	if cfg.Digest.Enabled {
		fmt.Printf("Digest:       %q → %s/%s\n", cfg.Digest.Schedule, cfg.Digest.Channel, cfg.Digest.ChatID)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Printf("\nNot ready: %v\n", err)
		return nil
	}
	fmt.Println("\nReady.")
	return nil
}

func presence(secret string) string {
	if strings.TrimSpace(secret) == "" {
		return "missing"
	}
	return "set"
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
