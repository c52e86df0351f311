package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/config"
	"github.com/majordomo-ai/majordomo/pkg/format"
	"github.com/majordomo-ai/majordomo/pkg/logger"
)

const (
	telegramDefaultBaseURL = "https://api.telegram.org"
	telegramPollTimeout    = 30 * time.Second
	telegramChunkLimit     = 3500
)

// TelegramChannel long-polls the Bot API for updates and answers through
// sendMessage. Asides are rendered line-style with Markdown emphasis.
type TelegramChannel struct {
	*BaseChannel
	api    *telegramAPI
	cancel context.CancelFunc
}

func NewTelegramChannel(cfg config.TelegramConfig, msgBus *bus.MessageBus) (*TelegramChannel, error) {
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("telegram token is empty")
	}
	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", msgBus, cfg.AllowFrom),
		api:         newTelegramAPI(nil, telegramDefaultBaseURL, token),
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	me, err := c.api.getMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}
	logger.InfoCF("telegram", "Telegram bot connected", map[string]interface{}{
		"username": me.Username,
		"user_id":  me.ID,
	})

	pollCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.setRunning(true)
	go c.pollLoop(pollCtx)
	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.cancel != nil {
		c.cancel()
	}
	logger.InfoC("telegram", "Telegram bot stopped")
	return nil
}

func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram bot not running")
	}
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram chat id %q: %w", msg.ChatID, err)
	}
	text := format.Render(msg.Content, format.StyleLine)
	return c.api.sendMessageChunked(ctx, chatID, text)
}

func (c *TelegramChannel) pollLoop(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, next, err := c.api.getUpdates(ctx, offset, telegramPollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.WarnCF("telegram", "getUpdates failed, retrying", map[string]interface{}{
				"error": err.Error(),
			})
			time.Sleep(3 * time.Second)
			continue
		}
		offset = next

		for _, update := range updates {
			c.handleUpdate(ctx, update)
		}
	}
}

func (c *TelegramChannel) handleUpdate(ctx context.Context, update telegramUpdate) {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return
	}
	if msg.From != nil && msg.From.IsBot {
		return
	}

	senderID := ""
	username := ""
	if msg.From != nil {
		senderID = strconv.FormatInt(msg.From.ID, 10)
		username = msg.From.Username
		if username != "" {
			senderID = senderID + "|" + username
		}
	}
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	if !c.IsAllowed(senderID) {
		logger.DebugCF("telegram", "Message rejected by allowlist", map[string]interface{}{
			"sender": senderID,
		})
		return
	}

	// Show "typing..." while the pipeline works on the reply.
	if err := c.api.sendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		logger.DebugCF("telegram", "sendChatAction failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.HandleMessage(senderID, chatID, msg.Text, map[string]string{
		"message_id": strconv.FormatInt(msg.MessageID, 10),
		"username":   username,
	})
}

// telegramAPI is a minimal Bot API client. The base URL is a parameter so
// tests can point it at a local server.
type telegramAPI struct {
	http    *http.Client
	baseURL string
	token   string
}

func newTelegramAPI(httpClient *http.Client, baseURL, token string) *telegramAPI {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &telegramAPI{
		http:    httpClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type telegramUpdate struct {
	UpdateID int64            `json:"update_id"`
	Message  *telegramMessage `json:"message,omitempty"`
}

type telegramMessage struct {
	MessageID int64         `json:"message_id"`
	Chat      *telegramChat `json:"chat,omitempty"`
	From      *telegramUser `json:"from,omitempty"`
	Text      string        `json:"text,omitempty"`
}

type telegramChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type,omitempty"`
}

type telegramUser struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot,omitempty"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
}

type telegramGetUpdatesResponse struct {
	OK     bool             `json:"ok"`
	Result []telegramUpdate `json:"result"`
}

type telegramGetMeResponse struct {
	OK     bool         `json:"ok"`
	Result telegramUser `json:"result"`
}

type telegramOKResponse struct {
	OK bool `json:"ok"`
}

func (api *telegramAPI) getMe(ctx context.Context) (*telegramUser, error) {
	raw, err := api.get(ctx, fmt.Sprintf("%s/bot%s/getMe", api.baseURL, api.token))
	if err != nil {
		return nil, err
	}
	var out telegramGetMeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if !out.OK {
		return nil, fmt.Errorf("telegram getMe: ok=false")
	}
	return &out.Result, nil
}

func (api *telegramAPI) getUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegramUpdate, int64, error) {
	secs := int(timeout.Seconds())
	if secs < 1 {
		secs = 1
	}
	url := fmt.Sprintf("%s/bot%s/getUpdates?timeout=%d", api.baseURL, api.token, secs)
	if offset > 0 {
		url += fmt.Sprintf("&offset=%d", offset)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout+5*time.Second)
	defer cancel()
	raw, err := api.get(reqCtx, url)
	if err != nil {
		return nil, offset, err
	}

	var out telegramGetUpdatesResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, offset, err
	}
	if !out.OK {
		return nil, offset, fmt.Errorf("telegram getUpdates: ok=false")
	}

	next := offset
	for _, u := range out.Result {
		if u.UpdateID >= next {
			next = u.UpdateID + 1
		}
	}
	return out.Result, next, nil
}

func (api *telegramAPI) sendChatAction(ctx context.Context, chatID int64, action string) error {
	body := map[string]interface{}{"chat_id": chatID, "action": action}
	_, err := api.post(ctx, fmt.Sprintf("%s/bot%s/sendChatAction", api.baseURL, api.token), body)
	return err
}

// sendMessage tries Markdown first so the italic asides render, then falls
// back to plain text when Telegram rejects the markup.
func (api *telegramAPI) sendMessage(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if err := api.sendMessageWithParseMode(ctx, chatID, text, "Markdown"); err == nil {
		return nil
	}
	return api.sendMessageWithParseMode(ctx, chatID, text, "")
}

func (api *telegramAPI) sendMessageChunked(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	for len(text) > 0 {
		chunk := text
		if len(chunk) > telegramChunkLimit {
			chunk = chunk[:runeSafeCut(chunk, telegramChunkLimit)]
		}
		if err := api.sendMessage(ctx, chatID, chunk); err != nil {
			return err
		}
		text = strings.TrimSpace(text[len(chunk):])
	}
	return nil
}

func (api *telegramAPI) sendMessageWithParseMode(ctx context.Context, chatID int64, text, parseMode string) error {
	body := map[string]interface{}{
		"chat_id":                  chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if parseMode != "" {
		body["parse_mode"] = parseMode
	}
	raw, err := api.post(ctx, fmt.Sprintf("%s/bot%s/sendMessage", api.baseURL, api.token), body)
	if err != nil {
		return err
	}
	var ok telegramOKResponse
	_ = json.Unmarshal(raw, &ok)
	if !ok.OK {
		return fmt.Errorf("telegram sendMessage: ok=false")
	}
	return nil
}

func (api *telegramAPI) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return api.do(req)
}

func (api *telegramAPI) post(ctx context.Context, url string, body interface{}) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return api.do(req)
}

func (api *telegramAPI) do(req *http.Request) ([]byte, error) {
	resp, err := api.http.Do(req)
	if err != nil {
		return nil, err
	}
	raw, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("telegram http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}
