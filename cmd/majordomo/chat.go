package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/majordomo-ai/majordomo/pkg/agent"
	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/config"
	"github.com/majordomo-ai/majordomo/pkg/format"
	"github.com/majordomo-ai/majordomo/pkg/memory"
	"github.com/majordomo-ai/majordomo/pkg/providers"
)

func newChatCommand() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the butler in the terminal, no channels needed",
		Example: strings.Join([]string{
			"  majordomo chat",
			"  majordomo chat --message \"qué tiempo hace en Madrid\"",
		}, "\n"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(message)
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "One-shot message instead of an interactive session")
	return cmd
}

func runChat(oneShot string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(cfg.Provider.APIKey) == "" {
		return fmt.Errorf("provider.api_key is required (set MAJORDOMO_PROVIDER_API_KEY)")
	}

	provider, err := providers.NewProvider(cfg.Provider.Name, cfg.Provider.APIKey, cfg.Provider.APIBase, cfg.Agent.Model, cfg.Provider.Proxy)
	if err != nil {
		return fmt.Errorf("create provider: %w", err)
	}

	registry := buildToolRegistry(cfg)
	store := memory.NewStore()
	msgBus := bus.NewMessageBus()
	pipeline := agent.NewPipeline(provider, registry, store, cfg.Agent.Model, cfg.Agent.Language, cfg.MaxIterations())
	agentLoop := agent.NewAgentLoop(msgBus, pipeline, store)

	ctx := context.Background()
	const chatUser = "cli"

	if strings.TrimSpace(oneShot) != "" {
		fmt.Println(format.Render(agentLoop.ProcessDirect(ctx, chatUser, oneShot), format.StyleLine))
		return nil
	}

	rl, err := readline.New("tú> ")
	if err != nil {
		return fmt.Errorf("initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("Cristóbal a su servicio. Escribe 'exit' para salir, /reset para olvidar la conversación.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		answer := agentLoop.ProcessDirect(ctx, chatUser, line)
		fmt.Println("\ncristóbal> " + format.Render(answer, format.StyleLine) + "\n")
	}
}
