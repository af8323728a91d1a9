package rag

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// NoDocumentsAnswer is returned by Answer and AnswerStream when no index
// exists yet. It is a normal answer, not an error, and no model call is made.
const NoDocumentsAnswer = "No documents are loaded yet. Please upload documents first."

// Options configures an Engine.
type Options struct {
	Generator       Generator
	Embedder        Embedder
	ChunkSize       int
	ChunkOverlap    int
	QueryExpansions int
	TopK            int
}

// Engine composes the pipeline stages into the end-to-end ingest and answer
// operations. It owns the live index and the session map: Ingest, Restore and
// Reset are the only index mutators, the clear operations the only session-map
// mutators. Answer calls across distinct sessions run concurrently; readers
// always observe either the fully old or fully new index, never a partial one.
type Engine struct {
	chunker   *Chunker
	embedder  Embedder
	reform    *Reformulator
	retriever *Retriever
	synth     *Synthesizer
	sessions  *SessionStore

	index    atomic.Pointer[Index]
	ingestMu sync.Mutex
}

func NewEngine(opts Options) *Engine {
	return &Engine{
		chunker:   NewChunker(opts.ChunkSize, opts.ChunkOverlap),
		embedder:  opts.Embedder,
		reform:    NewReformulator(opts.Generator),
		retriever: NewRetriever(opts.Generator, opts.Embedder, opts.QueryExpansions, opts.TopK),
		synth:     NewSynthesizer(opts.Generator),
		sessions:  NewSessionStore(),
	}
}

// IngestResult describes a completed rebuild. Passages and Vectors are
// exposed so the caller can persist them for warm starts.
type IngestResult struct {
	Documents int
	Passages  []Passage
	Vectors   [][]float32
}

// Ingest chunks and embeds the full document set and atomically replaces the
// live index with the result. Not safe to run concurrently with itself; an
// embedding failure aborts the rebuild and leaves the previous index intact.
func (e *Engine) Ingest(ctx context.Context, docs []Document) (*IngestResult, error) {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	passages := e.chunker.Split(docs)
	texts := make([]string, len(passages))
	for i := range passages {
		texts[i] = passages[i].Text
	}

	var vectors [][]float32
	if len(texts) > 0 {
		var err error
		vectors, err = e.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed passages: %w", err)
		}
		if len(vectors) != len(passages) {
			return nil, fmt.Errorf("embedding count mismatch: %d vectors for %d passages", len(vectors), len(passages))
		}
	}

	ix, err := NewIndex(passages, vectors)
	if err != nil {
		return nil, err
	}
	e.index.Store(ix)
	return &IngestResult{Documents: len(docs), Passages: passages, Vectors: vectors}, nil
}

// Restore replaces the live index with one built from previously persisted
// passages and vectors, skipping embedding calls entirely.
func (e *Engine) Restore(passages []Passage, vectors [][]float32) error {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()

	ix, err := NewIndex(passages, vectors)
	if err != nil {
		return err
	}
	e.index.Store(ix)
	return nil
}

// Reset drops the index and clears every session. Used when the last document
// is removed; the engine returns to its uninitialized, answerable state.
func (e *Engine) Reset() {
	e.ingestMu.Lock()
	defer e.ingestMu.Unlock()
	e.index.Store(nil)
	e.sessions.ClearAll()
}

// Ready reports whether an index exists. An empty index still counts as ready.
func (e *Engine) Ready() bool { return e.index.Load() != nil }

// PassageCount returns the size of the live index, or zero without one.
func (e *Engine) PassageCount() int {
	if ix := e.index.Load(); ix != nil {
		return ix.Len()
	}
	return 0
}

// Answer runs the full pipeline for one message: read history, reformulate,
// retrieve, synthesize, append the completed turn. A failed turn is never
// appended to the session.
func (e *Engine) Answer(ctx context.Context, sessionID, message string) (string, error) {
	return e.answer(ctx, sessionID, message, nil)
}

// AnswerStream behaves like Answer but delivers the reply incrementally
// through onDelta. The returned string is the concatenation of all fragments.
func (e *Engine) AnswerStream(ctx context.Context, sessionID, message string, onDelta func(string) error) (string, error) {
	if onDelta == nil {
		return e.answer(ctx, sessionID, message, nil)
	}
	return e.answer(ctx, sessionID, message, onDelta)
}

func (e *Engine) answer(ctx context.Context, sessionID, message string, onDelta func(string) error) (string, error) {
	ix := e.index.Load()
	if ix == nil {
		if onDelta != nil {
			if err := onDelta(NoDocumentsAnswer); err != nil {
				return "", err
			}
		}
		return NoDocumentsAnswer, nil
	}

	history := e.sessions.History(sessionID)

	standalone, err := e.reform.Rewrite(ctx, history, message)
	if err != nil {
		return "", fmt.Errorf("reformulate question: %w", err)
	}

	hits, err := e.retriever.Retrieve(ctx, ix, standalone)
	if err != nil {
		return "", fmt.Errorf("retrieve passages: %w", err)
	}

	var answer string
	if onDelta != nil {
		answer, err = e.synth.SynthesizeStream(ctx, message, hits, history, onDelta)
	} else {
		answer, err = e.synth.Synthesize(ctx, message, hits, history)
	}
	if err != nil {
		return "", fmt.Errorf("synthesize answer: %w", err)
	}

	e.sessions.Append(sessionID, message, answer)
	return answer, nil
}

// History returns the session's transcript in arrival order.
func (e *Engine) History(sessionID string) []Turn {
	return e.sessions.History(sessionID)
}

// ClearSession empties one session's history.
func (e *Engine) ClearSession(sessionID string) {
	e.sessions.Clear(sessionID)
}

// ClearAllSessions drops every session.
func (e *Engine) ClearAllSessions() {
	e.sessions.ClearAll()
}

// SessionCount returns the number of sessions with recorded turns.
func (e *Engine) SessionCount() int { return e.sessions.Len() }
