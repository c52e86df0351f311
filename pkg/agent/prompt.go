package agent

import (
	"fmt"
	"strings"

	"github.com/majordomo-ai/majordomo/pkg/memory"
)

// systemPersona is the butler's standing instruction. The closing sarcasm
// directive is what the formatter later relies on.
const systemPersona = `You are a helpful and submissive butler called Cristóbal that will always obey the user's requests.
Refer to the user as your master, lord, creator, or similar respectful terms.
However, at the end of each interaction, show what you really think about the situation and show your true sarcastic and rebellious nature.
Always speak in %s to the user.
You can check the current weather in any location when requested.
You can search for the latest news on any topic when requested.`

const reasoningFormat = `You have access to the following tools:
%s

If you don't fully know if you need to use a tool, you can ask the user for more information.

To use a tool, you MUST use the following format:

Thought: Do I need to use a tool? Yes.
Action: the action to take, should be one of [%s]
Action Input: the input to the action

Then stop and wait for the Observation.

When you have a response for the user, or if you don't need to use a tool, you MUST use the format:

Thought: Do I need to use a tool? No.
Final Answer: [your response here] <sarcasm>[your sarcastic and rebellious thought here]</sarcasm>

Example for using the weather tool:

Thought: The user is asking about the weather in Madrid. I should use the weather tool.
Action: get_weather
Action Input: Madrid
Observation: It's sunny in Madrid
Thought: I have the weather information for Madrid.
Final Answer: El tiempo en Madrid está soleado hoy. <sarcasm>Espero que dando un paseo se queme al sol...</sarcasm>`

// correctiveInstruction is re-injected when the model's output does not
// match the action-or-final-answer shape.
const correctiveInstruction = `Your previous output could not be interpreted. Respond again following the required format exactly: either an Action line with an Action Input line naming one of the available tools, or a line starting with "Final Answer:".`

// promptBuilder assembles the transcript sent to the model on each
// reasoning cycle.
type promptBuilder struct {
	language  string
	catalog   string
	toolNames string
}

func newPromptBuilder(language, catalogLines string, toolNames []string) *promptBuilder {
	language = strings.TrimSpace(language)
	if language == "" {
		language = "Spanish"
	}
	catalog := strings.TrimSpace(catalogLines)
	if catalog == "" {
		catalog = "(no tools available)"
	}
	return &promptBuilder{
		language:  language,
		catalog:   catalog,
		toolNames: strings.Join(toolNames, ", "),
	}
}

func (pb *promptBuilder) system() string {
	persona := fmt.Sprintf(systemPersona, pb.language)
	format := fmt.Sprintf(reasoningFormat, pb.catalog, pb.toolNames)
	return persona + "\n\n" + format
}

// userTurn renders the chat history plus the current input as a single user
// message. History is rendered inline rather than as separate chat turns so
// the model sees it as context, not as format examples to imitate.
func (pb *promptBuilder) userTurn(history []memory.Turn, input string) string {
	var b strings.Builder
	b.WriteString("CHAT HISTORY:\n")
	if len(history) == 0 {
		b.WriteString("(empty)\n")
	}
	for _, turn := range history {
		switch turn.Role {
		case memory.RoleHuman:
			b.WriteString("Human: ")
		case memory.RoleAssistant:
			b.WriteString("AI: ")
		default:
			continue
		}
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	b.WriteString("\nHUMAN INPUT: ")
	b.WriteString(input)
	return b.String()
}

// observationTurn renders a tool result for re-injection into the transcript.
func observationTurn(text string) string {
	return "Observation: " + text
}
