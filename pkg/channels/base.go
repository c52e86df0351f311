package channels

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/majordomo-ai/majordomo/pkg/bus"
)

type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	IsRunning() bool
	IsAllowed(senderID string) bool
}

// Responder produces one raw answer for one user message, synchronously.
// Channels that must reply in-band (the Twilio webhook) call this instead
// of publishing to the bus.
type Responder func(ctx context.Context, userID, content string) string

type BaseChannel struct {
	bus       *bus.MessageBus
	running   bool
	name      string
	allowList []string
}

func NewBaseChannel(name string, msgBus *bus.MessageBus, allowList []string) *BaseChannel {
	return &BaseChannel{
		bus:       msgBus,
		name:      name,
		allowList: allowList,
	}
}

func (c *BaseChannel) Name() string {
	return c.name
}

func (c *BaseChannel) IsRunning() bool {
	return c.running
}

// IsAllowed checks the sender against the channel allow-list. An empty list
// allows everyone. Compound ids like "123456|username" match on either part.
func (c *BaseChannel) IsAllowed(senderID string) bool {
	if len(c.allowList) == 0 {
		return true
	}

	idPart := senderID
	userPart := ""
	if idx := strings.Index(senderID, "|"); idx > 0 {
		idPart = senderID[:idx]
		userPart = senderID[idx+1:]
	}

	for _, allowed := range c.allowList {
		candidate := strings.TrimSpace(strings.TrimPrefix(allowed, "@"))
		if candidate == "" {
			continue
		}
		if candidate == senderID || candidate == idPart || (userPart != "" && candidate == userPart) {
			return true
		}
	}
	return false
}

func (c *BaseChannel) HandleMessage(senderID, chatID, content string, metadata map[string]string) {
	if !c.IsAllowed(senderID) {
		return
	}
	c.bus.PublishInbound(bus.InboundMessage{
		Channel:  c.name,
		SenderID: senderID,
		ChatID:   chatID,
		Content:  content,
		Metadata: metadata,
	})
}

func (c *BaseChannel) setRunning(running bool) {
	c.running = running
}

// runeSafeCut returns the largest index at or below limit that does not
// split a multi-byte rune.
func runeSafeCut(s string, limit int) int {
	if len(s) <= limit {
		return len(s)
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return limit
}
