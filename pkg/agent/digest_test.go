package agent

import (
	"context"
	"testing"
	"time"

	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDigestServiceValidation(t *testing.T) {
	provider := &scriptedProvider{}
	pipeline, _ := newTestPipeline(provider, &stubTool{name: "get_news", description: "d", result: "r"})
	msgBus := bus.NewMessageBus()

	_, err := NewDigestService(msgBus, pipeline, "not a cron", "prompt", "telegram", "42")
	assert.Error(t, err)

	_, err = NewDigestService(msgBus, pipeline, "0 8 * * *", "", "telegram", "42")
	assert.Error(t, err)

	_, err = NewDigestService(msgBus, pipeline, "0 8 * * *", "prompt", "", "42")
	assert.Error(t, err)

	svc, err := NewDigestService(msgBus, pipeline, "0 8 * * *", "prompt", "telegram", "42")
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestDigestRunPublishesToTarget(t *testing.T) {
	provider := &scriptedProvider{script: []string{
		"Final Answer: Las noticias del día, mi señor. <sarcasm>Como si fuera a leerlas.</sarcasm>",
	}}
	pipeline, _ := newTestPipeline(provider, &stubTool{name: "get_news", description: "d", result: "r"})
	msgBus := bus.NewMessageBus()

	svc, err := NewDigestService(msgBus, pipeline, "0 8 * * *", "resume las noticias de hoy", "telegram", "42")
	require.NoError(t, err)

	svc.run(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, ok := msgBus.SubscribeOutbound(ctx)
	require.True(t, ok)
	assert.Equal(t, "telegram", out.Channel)
	assert.Equal(t, "42", out.ChatID)
	assert.Contains(t, out.Content, "noticias del día")
}
