package rag

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreUnknownSessionIsEmpty(t *testing.T) {
	s := NewSessionStore()
	assert.Empty(t, s.History("never-seen"))
	assert.Equal(t, 0, s.Len())
}

func TestSessionStoreAppendKeepsOrder(t *testing.T) {
	s := NewSessionStore()
	s.Append("s1", "q1", "a1")
	s.Append("s1", "q2", "a2")
	s.Append("s2", "other", "answer")

	history := s.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, "q1", history[0].Question)
	assert.Equal(t, "a1", history[0].Answer)
	assert.Equal(t, "q2", history[1].Question)
	assert.Equal(t, 2, s.Len())
}

func TestSessionStoreHistoryReturnsCopy(t *testing.T) {
	s := NewSessionStore()
	s.Append("s1", "q1", "a1")

	history := s.History("s1")
	history[0].Question = "mutated"

	assert.Equal(t, "q1", s.History("s1")[0].Question)
}

func TestSessionStoreClear(t *testing.T) {
	s := NewSessionStore()
	s.Append("s1", "q", "a")
	s.Append("s2", "q", "a")

	s.Clear("s1")
	assert.Empty(t, s.History("s1"))
	assert.Len(t, s.History("s2"), 1)

	// A cleared id stays usable.
	s.Append("s1", "q2", "a2")
	assert.Len(t, s.History("s1"), 1)
}

func TestSessionStoreClearAll(t *testing.T) {
	s := NewSessionStore()
	s.Append("s1", "q", "a")
	s.Append("s2", "q", "a")

	s.ClearAll()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.History("s1"))
}
