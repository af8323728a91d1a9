package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"strings"

	"docchat/internal/ai"
)

// scriptedGenerator replays canned completions in order and records every
// message slice it was called with.
type scriptedGenerator struct {
	responses []string
	err       error
	calls     [][]ai.ChatMessage
}

func (g *scriptedGenerator) Complete(_ context.Context, messages []ai.ChatMessage) (string, error) {
	g.calls = append(g.calls, messages)
	if g.err != nil {
		return "", g.err
	}
	if len(g.responses) == 0 {
		return "", errors.New("no scripted response left")
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	return next, nil
}

func (g *scriptedGenerator) StreamComplete(ctx context.Context, messages []ai.ChatMessage, onDelta func(string) error) (string, error) {
	full, err := g.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	// Two fragments so streaming consumers see more than one delta.
	mid := len(full) / 2
	for _, part := range []string{full[:mid], full[mid:]} {
		if part == "" {
			continue
		}
		if err := onDelta(part); err != nil {
			return "", err
		}
	}
	return full, nil
}

const wordHashDims = 64

// wordHashEmbedder embeds text as a normalized bag-of-words histogram over
// hashed tokens. Texts sharing words score higher under cosine similarity,
// which is enough semantic signal for retrieval tests.
type wordHashEmbedder struct {
	failOn string
	calls  int
}

func (e *wordHashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && strings.Contains(text, e.failOn) {
		return nil, errors.New("embedding unavailable")
	}
	vec := make([]float32, wordHashDims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%wordHashDims]++
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

func (e *wordHashEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}
