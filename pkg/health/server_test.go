package health

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHomeReturnsLivenessString(t *testing.T) {
	s := NewServer("127.0.0.1", 0, nil)
	rec := httptest.NewRecorder()
	s.handleHome(rec, httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bot is running!")
}

func TestHomeUnknownPathIs404(t *testing.T) {
	s := NewServer("127.0.0.1", 0, nil)
	rec := httptest.NewRecorder()
	s.handleHome(rec, httptest.NewRequest("GET", "/nope", nil))
	assert.Equal(t, 404, rec.Code)
}

func TestResetClearsAllConversations(t *testing.T) {
	called := false
	s := NewServer("127.0.0.1", 0, func() { called = true })

	rec := httptest.NewRecorder()
	s.handleReset(rec, httptest.NewRequest("GET", "/reset", nil))

	assert.True(t, called)
	assert.Equal(t, "All conversations have been reset.", rec.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	s := NewServer("127.0.0.1", 0, nil)
	rec := httptest.NewRecorder()
	s.handleHealth(rec, httptest.NewRequest("GET", "/health", nil))
	assert.Equal(t, "ok", rec.Body.String())
}
