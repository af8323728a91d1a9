package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitShortDocumentSinglePassage(t *testing.T) {
	c := NewChunker(1000, 200)
	passages := c.Split([]Document{{ID: "d1", Name: "short.txt", Text: "hello world"}})

	require.Len(t, passages, 1)
	assert.Equal(t, "hello world", passages[0].Text)
	assert.Equal(t, 0, passages[0].Offset)
	assert.Equal(t, "d1#0", passages[0].ID)
	assert.Equal(t, "short.txt", passages[0].DocName)
}

func TestSplitOverlapAndOffsets(t *testing.T) {
	text := strings.Repeat("a", 800) + strings.Repeat("b", 800) + strings.Repeat("c", 900)
	c := NewChunker(1000, 200)

	passages := c.Split([]Document{{ID: "d1", Text: text}})

	require.Len(t, passages, 3)
	assert.Equal(t, 0, passages[0].Offset)
	assert.Equal(t, 800, passages[1].Offset)
	assert.Equal(t, 1600, passages[2].Offset)
	assert.Len(t, []rune(passages[0].Text), 1000)
	assert.Len(t, []rune(passages[1].Text), 1000)
	assert.Len(t, []rune(passages[2].Text), 900)

	// Consecutive passages share the trailing/leading overlap region.
	assert.Equal(t, passages[0].Text[800:], passages[1].Text[:200])
	assert.Equal(t, passages[1].Text[800:], passages[2].Text[:200])

	// Concatenating passages minus overlaps reconstructs the document.
	rebuilt := passages[0].Text + passages[1].Text[200:] + passages[2].Text[200:]
	assert.Equal(t, text, rebuilt)
}

func TestSplitEmptyDocumentYieldsNothing(t *testing.T) {
	c := NewChunker(1000, 200)
	assert.Empty(t, c.Split([]Document{{ID: "d1", Text: ""}}))
	assert.Empty(t, c.Split(nil))
}

func TestSplitPreservesDocumentOrder(t *testing.T) {
	c := NewChunker(10, 2)
	passages := c.Split([]Document{
		{ID: "first", Text: "aaaa"},
		{ID: "second", Text: "bbbb"},
	})

	require.Len(t, passages, 2)
	assert.Equal(t, 0, passages[0].DocOrder)
	assert.Equal(t, "first", passages[0].DocID)
	assert.Equal(t, 1, passages[1].DocOrder)
	assert.Equal(t, "second", passages[1].DocID)
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	// 12 three-byte runes; a byte-based splitter would cut mid-character.
	text := strings.Repeat("世界和平真好", 2)
	c := NewChunker(10, 2)

	passages := c.Split([]Document{{ID: "d1", Text: text}})

	require.Len(t, passages, 2)
	assert.Len(t, []rune(passages[0].Text), 10)
	assert.Equal(t, 8, passages[1].Offset)
	assert.Len(t, []rune(passages[1].Text), 4)
}

func TestNewChunkerRejectsBadConfig(t *testing.T) {
	c := NewChunker(0, -5)
	assert.Equal(t, DefaultChunkSize, c.size)
	assert.Equal(t, DefaultChunkSize/5, c.overlap)

	// Overlap >= size would never advance.
	c = NewChunker(100, 100)
	assert.Equal(t, 20, c.overlap)
}
