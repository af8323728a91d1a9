// Package rag implements the conversational retrieval pipeline: document
// chunking, vector indexing, history-aware query reformulation, multi-query
// retrieval, and grounded answer synthesis with per-session memory.
package rag

import (
	"context"
	"fmt"
	"time"

	"docchat/internal/ai"
)

// Document is the raw text of one ingested source. Immutable once ingested;
// the engine owns the set for the lifetime of the current index.
type Document struct {
	ID   string // stored identifier, stable across rebuilds of the same file
	Name string // display name shown to the user
	Text string
}

// Passage is a contiguous slice of a document's text, indexed independently.
type Passage struct {
	ID       string
	DocID    string
	DocName  string
	DocOrder int // position of the source document in the ingested set
	Offset   int // rune offset of the passage within the document
	Text     string
}

// PassageID builds the identity used for retrieval dedup.
func PassageID(docID string, offset int) string {
	return fmt.Sprintf("%s#%d", docID, offset)
}

// ScoredPassage is one retrieval hit. Transient, scoped to a single query.
type ScoredPassage struct {
	Passage
	Score float64
}

// Turn is one completed (question, answer) exchange. Immutable once appended.
type Turn struct {
	Question string
	Answer   string
	At       time.Time
}

// Generator produces chat completions. Implemented by ai.Chat.
type Generator interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
	StreamComplete(ctx context.Context, messages []ai.ChatMessage, onDelta func(string) error) (string, error)
}

// Embedder produces embedding vectors for text. All vectors compared against
// each other must come from the same implementation and model.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
