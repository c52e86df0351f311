package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFinalAnswer(t *testing.T) {
	step, err := parseStep("Thought: Do I need to use a tool? No.\nFinal Answer: El tiempo en Madrid está soleado. <sarcasm>Qué emoción.</sarcasm>")
	require.NoError(t, err)
	assert.Equal(t, stepFinal, step.Kind)
	assert.Equal(t, "El tiempo en Madrid está soleado. <sarcasm>Qué emoción.</sarcasm>", step.Answer)
}

func TestParseAction(t *testing.T) {
	step, err := parseStep("Thought: The user is asking about the weather in Madrid.\nAction: get_weather\nAction Input: Madrid")
	require.NoError(t, err)
	assert.Equal(t, stepAction, step.Kind)
	assert.Equal(t, "get_weather", step.Tool)
	assert.Equal(t, "Madrid", step.ToolInput)
}

func TestParseActionWithoutInput(t *testing.T) {
	step, err := parseStep("Action: get_news\nAction Input:")
	require.NoError(t, err)
	assert.Equal(t, "get_news", step.Tool)
	assert.Equal(t, "", step.ToolInput)
}

func TestParseInsideCodeFence(t *testing.T) {
	step, err := parseStep("```\nThought: done\nFinal Answer: listo\n```")
	require.NoError(t, err)
	assert.Equal(t, stepFinal, step.Kind)
	assert.Equal(t, "listo", step.Answer)
}

func TestParseFinalAnswerWinsOverEarlierAction(t *testing.T) {
	raw := "Action: get_weather\nAction Input: Madrid\nObservation: sunny\nThought: I have it.\nFinal Answer: Hace sol."
	step, err := parseStep(raw)
	require.NoError(t, err)
	assert.Equal(t, stepFinal, step.Kind)
	assert.Equal(t, "Hace sol.", step.Answer)
}

func TestParsePlaceholderBracketsStripped(t *testing.T) {
	step, err := parseStep("Final Answer: [Buenos días, mi señor.]")
	require.NoError(t, err)
	assert.Equal(t, "Buenos días, mi señor.", step.Answer)
}

func TestParseFailure(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"I think the weather in Madrid is probably nice.",
		"Final Answer:",
	} {
		_, err := parseStep(raw)
		assert.ErrorIs(t, err, ErrParseFailure, "input: %q", raw)
	}
}

func TestParseToolNameTrimsDecoration(t *testing.T) {
	step, err := parseStep("Action: `get_weather`\nAction Input: \"Madrid\"")
	require.NoError(t, err)
	assert.Equal(t, "get_weather", step.Tool)
	assert.Equal(t, "Madrid", step.ToolInput)
}
