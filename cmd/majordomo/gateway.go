package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/majordomo-ai/majordomo/pkg/agent"
	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/channels"
	"github.com/majordomo-ai/majordomo/pkg/config"
	"github.com/majordomo-ai/majordomo/pkg/health"
	"github.com/majordomo-ai/majordomo/pkg/logger"
	"github.com/majordomo-ai/majordomo/pkg/memory"
	"github.com/majordomo-ai/majordomo/pkg/providers"
	"github.com/majordomo-ai/majordomo/pkg/tools"
)

func newGatewayCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:     "gateway",
		Short:   "Run the channel gateways, agent pipeline and admin server",
		Example: "  majordomo gateway\n  majordomo gateway --config /etc/majordomo.json",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGateway(debug)
		},
	}
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func runGateway(debug bool) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	setupLogging(cfg, debug)
	defer logger.Close()

	provider, err := providers.NewProvider(cfg.Provider.Name, cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Agent.Model, cfg.Provider.Proxy)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	registry := buildToolRegistry(cfg)
	store := memory.NewStore()
	msgBus := bus.NewMessageBus()

	pipeline := agent.NewPipeline(provider, registry, store, cfg.Agent.Model, cfg.Agent.Language, cfg.MaxIterations())
	agentLoop := agent.NewAgentLoop(msgBus, pipeline, store)

	channelManager, err := channels.NewManager(cfg, msgBus, agentLoop.ProcessDirect)
	if err != nil {
		return fmt.Errorf("create channel manager: %w", err)
	}

	fmt.Printf("✓ Provider: %s (model %s)\n", cfg.Provider.Name, cfg.Agent.Model)
	fmt.Printf("✓ Tools: %s\n", strings.Join(registry.Names(), ", "))
	fmt.Printf("✓ Channels enabled: %s\n", strings.Join(channelManager.EnabledChannels(), ", "))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go agentLoop.Run(ctx)

	if err := channelManager.StartAll(ctx); err != nil {
		agentLoop.Stop()
		return fmt.Errorf("start channels: %w", err)
	}

	healthServer := health.NewServer(cfg.Gateway.Host, cfg.Gateway.Port, store.ResetAll)
	if err := healthServer.Start(); err != nil {
		channelManager.StopAll(ctx)
		agentLoop.Stop()
		return err
	}
	fmt.Printf("✓ Admin server on http://%s:%d (/, /health, /reset)\n", cfg.Gateway.Host, cfg.Gateway.Port)

	var digest *agent.DigestService
	if cfg.Digest.Enabled {
		digest, err = agent.NewDigestService(msgBus, pipeline, cfg.Digest.Schedule, cfg.Digest.Prompt, cfg.Digest.Channel, cfg.Digest.ChatID)
		if err != nil {
			return fmt.Errorf("configure digest: %w", err)
		}
		digest.Start(ctx)
		fmt.Printf("✓ Digest scheduled: %s\n", cfg.Digest.Schedule)
	}

	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	if digest != nil {
		digest.Stop()
	}
	if err := healthServer.Stop(ctx); err != nil {
		logger.WarnCF("gateway", "Admin server shutdown error", map[string]interface{}{"error": err.Error()})
	}
	channelManager.StopAll(ctx)
	agentLoop.Stop()
	cancel()
	msgBus.Close()
	fmt.Println("Goodbye.")
	return nil
}

func setupLogging(cfg *config.Config, debug bool) {
	if debug {
		logger.SetLevel(logger.DEBUG)
	}
	logPath := cfg.LogFile
	if strings.TrimSpace(logPath) == "" {
		logPath = "majordomo.log"
	}
	if err := logger.SetLogFile(logPath); err != nil {
		fmt.Printf("Warning: cannot open log file %s: %v\n", logPath, err)
	}
}

// buildToolRegistry wires the tool catalog. The web tools are optional; the
// weather and news tools always register and degrade to an unavailability
// message when their key is missing.
func buildToolRegistry(cfg *config.Config) *tools.Registry {
	registry := tools.NewRegistry()
	registry.Register(tools.NewWeatherTool(cfg.Tools.Weather.APIKey))
	registry.Register(tools.NewNewsTool(cfg.Tools.News.APIKey))
	if cfg.Tools.Web.Enabled {
		registry.Register(tools.NewSearchTool(cfg.Tools.Web.MaxResults))
		registry.Register(tools.NewFetchTool(cfg.Tools.Web.MaxChars))
	}
	return registry
}
