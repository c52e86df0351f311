package agent

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/logger"
	"github.com/majordomo-ai/majordomo/pkg/memory"
)

const componentLoop = "agent"

const (
	welcomeReply  = "¡Hola! Soy Cristóbal, tu asistente. ¿En qué puedo ayudarte hoy?"
	resetReply    = "He olvidado nuestra conversación anterior. ¿En qué puedo ayudarte ahora?"
	nothingReply  = "No hay conversación que borrar."
	helpReply     = "Comandos disponibles:\n/start - Iniciar la conversación\n/reset - Borrar el historial de la conversación\n/help - Mostrar este mensaje de ayuda\n\nPuedes preguntarme cualquier cosa y te ayudaré lo mejor que pueda.\nTambién puedo consultar el clima en cualquier lugar."
)

// AgentLoop consumes inbound messages from the bus, drives the pipeline, and
// publishes raw answers back on the outbound side. Channel adapters apply
// their own formatting on delivery.
type AgentLoop struct {
	bus      *bus.MessageBus
	pipeline *Pipeline
	store    *memory.Store
	running  atomic.Bool
}

func NewAgentLoop(msgBus *bus.MessageBus, pipeline *Pipeline, store *memory.Store) *AgentLoop {
	return &AgentLoop{
		bus:      msgBus,
		pipeline: pipeline,
		store:    store,
	}
}

func (al *AgentLoop) Run(ctx context.Context) error {
	al.running.Store(true)
	logger.InfoC(componentLoop, "agent loop started")

	for al.running.Load() {
		select {
		case <-ctx.Done():
			return nil
		default:
			msg, ok := al.bus.ConsumeInbound(ctx)
			if !ok {
				continue
			}

			response := al.process(ctx, msg)
			if response == "" {
				continue
			}
			al.bus.PublishOutbound(bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: response,
			})
		}
	}
	return nil
}

func (al *AgentLoop) Stop() {
	al.running.Store(false)
	logger.InfoC(componentLoop, "agent loop stopped")
}

// ProcessDirect runs one message through command handling and the pipeline,
// returning the raw answer synchronously. Used by adapters that must reply
// in-band (the Twilio webhook) and by the interactive CLI session.
func (al *AgentLoop) ProcessDirect(ctx context.Context, userID, content string) string {
	return al.process(ctx, bus.InboundMessage{
		Channel:  "direct",
		SenderID: userID,
		ChatID:   userID,
		Content:  content,
	})
}

func (al *AgentLoop) process(ctx context.Context, msg bus.InboundMessage) string {
	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return ""
	}

	logger.InfoCF(componentLoop, "message received", map[string]interface{}{
		"channel": msg.Channel,
		"sender":  msg.SenderID,
	})

	if reply, handled := al.handleCommand(msg.SenderID, content); handled {
		return reply
	}
	return al.pipeline.Respond(ctx, msg.SenderID, content)
}

// handleCommand intercepts the /start, /reset and /help verbs before they
// reach the model. Commands are channel-agnostic.
func (al *AgentLoop) handleCommand(userID, content string) (string, bool) {
	if !strings.HasPrefix(content, "/") {
		return "", false
	}
	verb := content
	if idx := strings.IndexAny(verb, " @"); idx > 0 {
		verb = verb[:idx]
	}

	switch strings.ToLower(verb) {
	case "/start":
		return welcomeReply, true
	case "/reset":
		if al.store.Reset(userID) {
			return resetReply, true
		}
		return nothingReply, true
	case "/help":
		return helpReply, true
	default:
		// Unknown slash commands fall through to the model.
		return "", false
	}
}
