// Package memory holds per-user conversation histories for the lifetime of
// the process. Nothing is persisted: a restart forgets every conversation,
// and there is no eviction policy (history grows with conversation volume).
package memory

import "sync"

// Role tags one turn of a conversation.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

// Turn is a single message within a user's history.
type Turn struct {
	Role    Role
	Content string
}

// Store maps an opaque user identifier to that user's ordered history.
// It is passed explicitly into the pipeline and channel adapters rather
// than reached through package state, so tests can own their own stores.
type Store struct {
	histories map[string][]Turn
	mu        sync.RWMutex
}

func NewStore() *Store {
	return &Store{histories: make(map[string][]Turn)}
}

// GetOrCreate returns a copy of the user's history, creating an empty one
// on first sight of the user. Always succeeds.
func (s *Store) GetOrCreate(userID string) []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.histories[userID]; !ok {
		s.histories[userID] = []Turn{}
	}
	history := s.histories[userID]
	out := make([]Turn, len(history))
	copy(out, history)
	return out
}

// Append records one completed exchange: exactly one human turn followed by
// one assistant turn.
func (s *Store) Append(userID, humanText, assistantText string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories[userID] = append(s.histories[userID],
		Turn{Role: RoleHuman, Content: humanText},
		Turn{Role: RoleAssistant, Content: assistantText},
	)
}

// Reset forgets a single user's conversation. Reports whether there was
// anything to forget.
func (s *Store) Reset(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed := s.histories[userID]
	delete(s.histories, userID)
	return existed
}

// ResetAll clears every user's history at once.
func (s *Store) ResetAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = make(map[string][]Turn)
}

// Len reports the number of turns stored for a user without creating an
// entry for unknown users.
func (s *Store) Len(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories[userID])
}

// Users reports how many users currently have a history.
func (s *Store) Users() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.histories)
}
