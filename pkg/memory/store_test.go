package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate_IdempotentWithoutWrites(t *testing.T) {
	s := NewStore()

	first := s.GetOrCreate("u1")
	second := s.GetOrCreate("u1")
	assert.Equal(t, first, second)
	assert.Empty(t, first)
	assert.Equal(t, 1, s.Users())
}

func TestAppend_OrderAndLength(t *testing.T) {
	s := NewStore()
	s.Append("u1", "H", "A")

	history := s.GetOrCreate("u1")
	require.Len(t, history, 2)
	assert.Equal(t, Turn{Role: RoleHuman, Content: "H"}, history[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Content: "A"}, history[1])

	s.Append("u1", "H2", "A2")
	assert.Equal(t, 4, s.Len("u1"))
}

func TestReset_ScopedToOneUser(t *testing.T) {
	s := NewStore()
	s.Append("u1", "hola", "buenas")
	s.Append("u2", "hi", "hello")

	require.True(t, s.Reset("u1"))
	assert.Empty(t, s.GetOrCreate("u1"))
	assert.Equal(t, 2, s.Len("u2"), "other users untouched")

	assert.False(t, s.Reset("ghost"), "resetting an unknown user reports nothing to forget")
}

func TestResetAll(t *testing.T) {
	s := NewStore()
	s.Append("u1", "a", "b")
	s.Append("u2", "c", "d")

	s.ResetAll()
	assert.Equal(t, 0, s.Users())
	assert.Empty(t, s.GetOrCreate("u1"))
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.Append(fmt.Sprintf("u%d", n%4), "q", "a")
		}(i)
	}
	wg.Wait()

	total := 0
	for i := 0; i < 4; i++ {
		total += s.Len(fmt.Sprintf("u%d", i))
	}
	assert.Equal(t, 40, total)
}
