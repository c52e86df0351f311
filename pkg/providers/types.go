package providers

import "context"

// Message is one entry of a chat transcript sent to the model.
type Message struct {
	Role    string `json:"role"` // system | user | assistant
	Content string `json:"content"`
}

type UsageInfo struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type LLMResponse struct {
	Content      string
	FinishReason string
	Usage        *UsageInfo
}

// LLMProvider generates text. The reasoning loop drives tool use through a
// textual convention, so providers only need plain chat completion; no
// native tool-call plumbing is involved.
type LLMProvider interface {
	Chat(ctx context.Context, messages []Message, model string, options map[string]interface{}) (*LLMResponse, error)
	GetDefaultModel() string
}
