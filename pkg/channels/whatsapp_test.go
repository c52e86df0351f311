package channels

import (
	"context"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookRepliesWithTwiML(t *testing.T) {
	var gotUser, gotContent string
	respond := func(ctx context.Context, userID, content string) string {
		gotUser = userID
		gotContent = content
		return "Buenos días, mi señor. <sarcasm>Otro madrugador.</sarcasm>"
	}

	c, err := NewWhatsAppChannel(config.WhatsAppConfig{Port: 5001}, bus.NewMessageBus(), respond)
	require.NoError(t, err)

	form := url.Values{}
	form.Set("From", "whatsapp:+34666000111")
	form.Set("Body", "buenos días")
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	c.handleWebhook(rec, req)

	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Equal(t, "whatsapp:+34666000111", gotUser)
	assert.Equal(t, "buenos días", gotContent)

	respBody := rec.Body.String()
	assert.Contains(t, respBody, "<Response>")
	assert.Contains(t, respBody, "<Message>")
	assert.Contains(t, respBody, "Buenos días, mi señor.")
	// Paragraph-style aside: emphasized on its own paragraph, markers gone.
	assert.Contains(t, respBody, "_Otro madrugador._")
	assert.NotContains(t, respBody, "sarcasm")
}

func TestWebhookRejectsDisallowedSender(t *testing.T) {
	called := false
	respond := func(ctx context.Context, userID, content string) string {
		called = true
		return "should not happen"
	}

	c, err := NewWhatsAppChannel(config.WhatsAppConfig{
		Port:      5001,
		AllowFrom: config.FlexibleStringSlice{"whatsapp:+34111111111"},
	}, bus.NewMessageBus(), respond)
	require.NoError(t, err)

	form := url.Values{}
	form.Set("From", "whatsapp:+34999999999")
	form.Set("Body", "hola")
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	c.handleWebhook(rec, req)

	assert.False(t, called)
	assert.Equal(t, 200, rec.Code)
	assert.NotContains(t, rec.Body.String(), "<Message>")
}

func TestWebhookIgnoresEmptyBody(t *testing.T) {
	respond := func(ctx context.Context, userID, content string) string { return "x" }
	c, err := NewWhatsAppChannel(config.WhatsAppConfig{Port: 5001}, bus.NewMessageBus(), respond)
	require.NoError(t, err)

	form := url.Values{}
	form.Set("From", "whatsapp:+34666000111")
	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	c.handleWebhook(rec, req)
	assert.NotContains(t, rec.Body.String(), "<Message>")
}

func TestWebhookRejectsGet(t *testing.T) {
	respond := func(ctx context.Context, userID, content string) string { return "x" }
	c, err := NewWhatsAppChannel(config.WhatsAppConfig{Port: 5001}, bus.NewMessageBus(), respond)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/webhook", nil)
	rec := httptest.NewRecorder()
	c.handleWebhook(rec, req)
	assert.Equal(t, 405, rec.Code)
}

func TestWhatsAppSendIsUnsupported(t *testing.T) {
	respond := func(ctx context.Context, userID, content string) string { return "x" }
	c, err := NewWhatsAppChannel(config.WhatsAppConfig{Port: 5001}, bus.NewMessageBus(), respond)
	require.NoError(t, err)

	err = c.Send(context.Background(), bus.OutboundMessage{Channel: "whatsapp", ChatID: "x", Content: "y"})
	assert.Error(t, err)
}
