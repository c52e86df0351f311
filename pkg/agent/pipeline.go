package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/majordomo-ai/majordomo/pkg/logger"
	"github.com/majordomo-ai/majordomo/pkg/memory"
	"github.com/majordomo-ai/majordomo/pkg/providers"
	"github.com/majordomo-ai/majordomo/pkg/tools"
)

const componentPipeline = "pipeline"

// apologyMessage is the fixed reply for any internal failure. The pipeline
// never propagates errors to its caller.
const apologyMessage = "Sorry, there was an error processing your request."

// forcedStopMessage is returned when the reasoning loop exhausts its
// iteration cap with no usable partial text.
const forcedStopMessage = "Me temo que no he podido completar su petición a tiempo, mi señor. ¿Podría reformularla? <sarcasm>Tres intentos y nada. Qué eficiencia la mía.</sarcasm>"

const defaultMaxIterations = 3

// Pipeline runs the bounded reasoning loop: it interleaves model completions
// with tool invocations until the model produces a final answer or the
// iteration cap forces a stop.
type Pipeline struct {
	provider      providers.LLMProvider
	registry      *tools.Registry
	store         *memory.Store
	prompt        *promptBuilder
	model         string
	maxIterations int
}

func NewPipeline(provider providers.LLMProvider, registry *tools.Registry, store *memory.Store, model, language string, maxIterations int) *Pipeline {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	catalog := strings.Join(registry.CatalogLines(), "\n")
	return &Pipeline{
		provider:      provider,
		registry:      registry,
		store:         store,
		prompt:        newPromptBuilder(language, catalog, registry.Names()),
		model:         model,
		maxIterations: maxIterations,
	}
}

// Respond converts one user message into one raw answer string. The answer
// may still contain aside markers; splitting them off is the formatter's
// job, not the pipeline's. Respond never fails: any internal error becomes
// the fixed apology, and the exchange is recorded in memory only on success.
func (p *Pipeline) Respond(ctx context.Context, userID, input string) string {
	turnID := uuid.NewString()[:8]

	if p.provider == nil || p.registry.Count() == 0 {
		logger.ErrorCF(componentPipeline, "pipeline not operational", map[string]interface{}{
			"turn_id":   turnID,
			"has_model": p.provider != nil,
			"tools":     p.registry.Count(),
		})
		return apologyMessage
	}

	history := p.store.GetOrCreate(userID)

	answer, err := p.run(ctx, turnID, history, input)
	if err != nil {
		logger.ErrorCF(componentPipeline, "reasoning loop failed", map[string]interface{}{
			"turn_id": turnID,
			"user_id": userID,
			"error":   err.Error(),
		})
		return apologyMessage
	}

	p.store.Append(userID, input, answer)
	logger.InfoCF(componentPipeline, "exchange completed", map[string]interface{}{
		"turn_id": turnID,
		"user_id": userID,
		"chars":   len(answer),
	})
	return answer
}

func (p *Pipeline) run(ctx context.Context, turnID string, history []memory.Turn, input string) (string, error) {
	messages := []providers.Message{
		{Role: "system", Content: p.prompt.system()},
		{Role: "user", Content: p.prompt.userTurn(history, input)},
	}

	partial := ""
	for iteration := 1; iteration <= p.maxIterations; iteration++ {
		resp, err := p.provider.Chat(ctx, messages, p.model, map[string]interface{}{
			"temperature": 0.1,
		})
		if err != nil {
			return "", fmt.Errorf("model call: %w", err)
		}

		step, parseErr := parseStep(resp.Content)
		if parseErr != nil {
			// Free text that fits no shape is still the closest thing to an
			// answer we have if the cap runs out.
			partial = strings.TrimSpace(resp.Content)
			logger.WarnCF(componentPipeline, "unparseable model output, correcting", map[string]interface{}{
				"turn_id":   turnID,
				"iteration": iteration,
			})
			messages = appendExchange(messages, resp.Content, correctiveInstruction)
			continue
		}

		if step.Kind == stepFinal {
			return step.Answer, nil
		}

		observation, found := p.registry.Invoke(ctx, step.Tool, step.ToolInput)
		if !found {
			// Unknown tool names are a parse failure, not a fatal error.
			logger.WarnCF(componentPipeline, "model named unknown tool", map[string]interface{}{
				"turn_id": turnID,
				"tool":    step.Tool,
			})
			feedback := fmt.Sprintf("There is no tool named %q. Available tools: %s. %s",
				step.Tool, strings.Join(p.registry.Names(), ", "), correctiveInstruction)
			messages = appendExchange(messages, resp.Content, feedback)
			continue
		}

		logger.DebugCF(componentPipeline, "tool observation", map[string]interface{}{
			"turn_id": turnID,
			"tool":    step.Tool,
			"chars":   len(observation),
		})
		messages = appendExchange(messages, resp.Content, observationTurn(observation))
	}

	logger.WarnCF(componentPipeline, "iteration cap reached, forcing stop", map[string]interface{}{
		"turn_id":        turnID,
		"max_iterations": p.maxIterations,
	})
	if partial != "" {
		return partial, nil
	}
	return forcedStopMessage, nil
}

func appendExchange(messages []providers.Message, assistantText, userText string) []providers.Message {
	return append(messages,
		providers.Message{Role: "assistant", Content: assistantText},
		providers.Message{Role: "user", Content: userText},
	)
}
