package bus

// InboundMessage is a user message received from a channel adapter.
type InboundMessage struct {
	Channel  string            // originating channel name ("telegram", "whatsapp", ...)
	SenderID string            // opaque per-channel user identifier
	ChatID   string            // where the reply should go
	Content  string            // message text
	Metadata map[string]string // channel-specific extras (username, chat type)
}

// OutboundMessage is a reply to deliver through a channel adapter.
type OutboundMessage struct {
	Channel string
	ChatID  string
	Content string
}
