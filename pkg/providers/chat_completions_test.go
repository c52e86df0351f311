package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatSendsRequestAndParsesResponse(t *testing.T) {
	var captured map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"content": "Final Answer: hola"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 4, "total_tokens": 16}
		}`))
	}))
	defer server.Close()

	provider, err := NewProvider("openai-compatible", "test-key", server.URL, "test-model", "")
	require.NoError(t, err)

	resp, err := provider.Chat(context.Background(), []Message{
		{Role: "system", Content: "eres un mayordomo"},
		{Role: "user", Content: "hola"},
	}, "", map[string]interface{}{"max_tokens": 256, "temperature": 0.2})
	require.NoError(t, err)

	assert.Equal(t, "Final Answer: hola", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	require.NotNil(t, resp.Usage)
	assert.Equal(t, 16, resp.Usage.TotalTokens)

	assert.Equal(t, "test-model", captured["model"])
	assert.Equal(t, float64(256), captured["max_tokens"])
	messages, ok := captured["messages"].([]interface{})
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestChatSurfacesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"message": "rate limit exceeded"}}`))
	}))
	defer server.Close()

	provider, err := NewProvider("openai-compatible", "test-key", server.URL, "test-model", "")
	require.NoError(t, err)

	_, err = provider.Chat(context.Background(), []Message{{Role: "user", Content: "hola"}}, "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
	assert.Contains(t, err.Error(), "429")
}

func TestChatFlattensPartedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": [{"type": "text", "text": "dos "}, {"type": "text", "text": "partes"}]}, "finish_reason": "stop"}]}`))
	}))
	defer server.Close()

	provider, err := NewProvider("openai-compatible", "test-key", server.URL, "test-model", "")
	require.NoError(t, err)

	resp, err := provider.Chat(context.Background(), []Message{{Role: "user", Content: "hola"}}, "", nil)
	require.NoError(t, err)
	assert.Equal(t, "dos partes", resp.Content)
}

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider("gemini", "", "", "m", "")
	assert.Error(t, err)

	_, err = NewProvider("nope", "key", "", "m", "")
	assert.Error(t, err)

	_, err = NewProvider("openai-compatible", "key", "", "m", "")
	assert.Error(t, err)

	p, err := NewProvider("", "key", "", "gemini-2.0-flash", "")
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.0-flash", p.GetDefaultModel())
}
