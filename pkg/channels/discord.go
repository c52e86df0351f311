package channels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/config"
	"github.com/majordomo-ai/majordomo/pkg/format"
	"github.com/majordomo-ai/majordomo/pkg/logger"
)

const (
	discordSendTimeout = 10 * time.Second
	discordChunkLimit  = 1900 // Discord caps messages at 2000 characters
)

// DiscordChannel relays direct and guild messages through a discordgo
// session. Asides are rendered line-style, same as Telegram.
type DiscordChannel struct {
	*BaseChannel
	session *discordgo.Session
}

func NewDiscordChannel(cfg config.DiscordConfig, msgBus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", msgBus, cfg.AllowFrom),
		session:     session,
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	c.session.AddHandler(c.handleMessage)
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	c.setRunning(true)

	botUser, err := c.session.User("@me")
	if err != nil {
		return fmt.Errorf("get discord bot user: %w", err)
	}
	logger.InfoCF("discord", "Discord bot connected", map[string]interface{}{
		"username": botUser.Username,
		"user_id":  botUser.ID,
	})
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if err := c.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	logger.InfoC("discord", "Discord bot stopped")
	return nil
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord bot not running")
	}
	if msg.ChatID == "" {
		return fmt.Errorf("discord channel id is empty")
	}

	text := format.Render(msg.Content, format.StyleLine)
	for _, chunk := range splitMessage(text, discordChunkLimit) {
		if err := c.sendChunk(ctx, msg.ChatID, chunk); err != nil {
			return err
		}
	}
	return nil
}

func (c *DiscordChannel) sendChunk(ctx context.Context, channelID, content string) error {
	sendCtx, cancel := context.WithTimeout(ctx, discordSendTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.session.ChannelMessageSend(channelID, content)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send discord message: %w", err)
		}
		return nil
	case <-sendCtx.Done():
		return fmt.Errorf("send discord message: %w", sendCtx.Err())
	}
}

// splitMessage cuts long text at newline or space boundaries where possible.
func splitMessage(content string, limit int) []string {
	var chunks []string
	for len(content) > 0 {
		if len(content) <= limit {
			chunks = append(chunks, content)
			break
		}
		cut := strings.LastIndexByte(content[:limit], '\n')
		if cut <= 0 {
			cut = strings.LastIndexByte(content[:limit], ' ')
		}
		if cut <= 0 {
			cut = runeSafeCut(content, limit)
		}
		chunks = append(chunks, strings.TrimSpace(content[:cut]))
		content = strings.TrimSpace(content[cut:])
	}
	return chunks
}

func (c *DiscordChannel) handleMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m == nil || m.Author == nil || m.Content == "" {
		return
	}
	if m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	senderID := m.Author.ID
	if m.Author.Username != "" {
		senderID = senderID + "|" + m.Author.Username
	}
	if !c.IsAllowed(senderID) {
		logger.DebugCF("discord", "Message rejected by allowlist", map[string]interface{}{
			"sender": senderID,
		})
		return
	}

	// Typing shows until the reply lands or Discord times it out.
	if err := c.session.ChannelTyping(m.ChannelID); err != nil {
		logger.DebugCF("discord", "ChannelTyping failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	c.HandleMessage(senderID, m.ChannelID, m.Content, map[string]string{
		"message_id": m.ID,
		"username":   m.Author.Username,
		"guild_id":   m.GuildID,
	})
}
