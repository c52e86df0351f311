package channels

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBotAPI records sendMessage/sendChatAction calls and serves a single
// canned getUpdates batch.
type fakeBotAPI struct {
	mu           sync.Mutex
	sent         []map[string]interface{}
	actions      []map[string]interface{}
	updates      string
	rejectParsed bool // reject requests carrying parse_mode to force the plain-text fallback
}

func (f *fakeBotAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			w.Write([]byte(`{"ok":true,"result":{"id":1,"username":"majordomo_bot"}}`))
		case strings.HasSuffix(r.URL.Path, "/getUpdates"):
			if f.updates == "" {
				w.Write([]byte(`{"ok":true,"result":[]}`))
				return
			}
			w.Write([]byte(f.updates))
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.rejectParsed && body["parse_mode"] != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"ok":false,"description":"can't parse entities"}`))
				return
			}
			f.sent = append(f.sent, body)
			w.Write([]byte(`{"ok":true}`))
		case strings.HasSuffix(r.URL.Path, "/sendChatAction"):
			var body map[string]interface{}
			json.NewDecoder(r.Body).Decode(&body)
			f.mu.Lock()
			f.actions = append(f.actions, body)
			f.mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	return mux
}

func (f *fakeBotAPI) sentTexts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := make([]string, 0, len(f.sent))
	for _, body := range f.sent {
		texts = append(texts, body["text"].(string))
	}
	return texts
}

func newTestTelegramChannel(serverURL string, msgBus *bus.MessageBus, allowFrom []string) *TelegramChannel {
	c := &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", msgBus, allowFrom),
		api:         newTelegramAPI(nil, serverURL, "TEST-TOKEN"),
	}
	c.setRunning(true)
	return c
}

func TestTelegramSendRendersLineStyleAsides(t *testing.T) {
	fake := &fakeBotAPI{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	c := newTestTelegramChannel(server.URL, bus.NewMessageBus(), nil)
	err := c.Send(context.Background(), bus.OutboundMessage{
		Channel: "telegram",
		ChatID:  "42",
		Content: "El tiempo es soleado. <sarcasm>Qué noticia.</sarcasm>",
	})
	require.NoError(t, err)

	texts := fake.sentTexts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "El tiempo es soleado.")
	assert.Contains(t, texts[0], "💭 _Qué noticia._")
	assert.NotContains(t, texts[0], "sarcasm")
}

func TestTelegramSendFallsBackToPlainText(t *testing.T) {
	fake := &fakeBotAPI{rejectParsed: true}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	c := newTestTelegramChannel(server.URL, bus.NewMessageBus(), nil)
	err := c.Send(context.Background(), bus.OutboundMessage{
		Channel: "telegram",
		ChatID:  "42",
		Content: "broken _markdown",
	})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.sent, 1)
	assert.Nil(t, fake.sent[0]["parse_mode"])
}

func TestTelegramSendChunksLongMessages(t *testing.T) {
	fake := &fakeBotAPI{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	c := newTestTelegramChannel(server.URL, bus.NewMessageBus(), nil)
	err := c.Send(context.Background(), bus.OutboundMessage{
		Channel: "telegram",
		ChatID:  "42",
		Content: strings.Repeat("a", telegramChunkLimit+100),
	})
	require.NoError(t, err)
	assert.Len(t, fake.sentTexts(), 2)
}

func TestTelegramSendChunksOnRuneBoundaries(t *testing.T) {
	fake := &fakeBotAPI{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	// Two-byte runes straddling the chunk limit must not be split, or the
	// wire JSON carries a U+FFFD where the broken byte was.
	c := newTestTelegramChannel(server.URL, bus.NewMessageBus(), nil)
	err := c.Send(context.Background(), bus.OutboundMessage{
		Channel: "telegram",
		ChatID:  "42",
		Content: strings.Repeat("ñ", telegramChunkLimit),
	})
	require.NoError(t, err)

	texts := fake.sentTexts()
	require.Len(t, texts, 2)
	for _, text := range texts {
		assert.True(t, utf8.ValidString(text))
		assert.NotContains(t, text, "�")
	}
}

func TestTelegramSendRejectsBadChatID(t *testing.T) {
	c := newTestTelegramChannel("http://127.0.0.1:0", bus.NewMessageBus(), nil)
	err := c.Send(context.Background(), bus.OutboundMessage{ChatID: "not-a-number", Content: "x"})
	assert.Error(t, err)
}

func TestTelegramHandleUpdatePublishesInboundAndTypes(t *testing.T) {
	fake := &fakeBotAPI{}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	msgBus := bus.NewMessageBus()
	c := newTestTelegramChannel(server.URL, msgBus, nil)

	c.handleUpdate(context.Background(), telegramUpdate{
		UpdateID: 7,
		Message: &telegramMessage{
			MessageID: 100,
			Chat:      &telegramChat{ID: 42},
			From:      &telegramUser{ID: 9, Username: "ana"},
			Text:      "qué tiempo hace",
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, ok := msgBus.ConsumeInbound(ctx)
	require.True(t, ok)
	assert.Equal(t, "telegram", msg.Channel)
	assert.Equal(t, "9|ana", msg.SenderID)
	assert.Equal(t, "42", msg.ChatID)
	assert.Equal(t, "qué tiempo hace", msg.Content)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.actions, 1)
	assert.Equal(t, "typing", fake.actions[0]["action"])
}

func TestTelegramHandleUpdateIgnoresBotsAndEmpty(t *testing.T) {
	msgBus := bus.NewMessageBus()
	c := newTestTelegramChannel("http://127.0.0.1:0", msgBus, nil)

	c.handleUpdate(context.Background(), telegramUpdate{Message: nil})
	c.handleUpdate(context.Background(), telegramUpdate{
		Message: &telegramMessage{
			Chat: &telegramChat{ID: 1},
			From: &telegramUser{ID: 2, IsBot: true},
			Text: "beep",
		},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, ok := msgBus.ConsumeInbound(ctx)
	assert.False(t, ok)
}

func TestTelegramGetUpdatesAdvancesOffset(t *testing.T) {
	fake := &fakeBotAPI{
		updates: `{"ok":true,"result":[{"update_id":10,"message":{"message_id":1,"chat":{"id":5},"from":{"id":6},"text":"hola"}}]}`,
	}
	server := httptest.NewServer(fake.handler())
	defer server.Close()

	api := newTelegramAPI(nil, server.URL, "TEST-TOKEN")
	updates, next, err := api.getUpdates(context.Background(), 0, time.Second)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, int64(11), next)
}
