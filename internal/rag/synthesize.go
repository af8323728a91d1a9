package rag

import (
	"context"
	"strings"

	"docchat/internal/ai"
)

const answerSystemPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer " +
	"the question. If you don't know the answer, say that you " +
	"don't know. Use three sentences maximum and keep the " +
	"answer concise. Make your response in the same language that the user asked with. " +
	"Answer the user greeting in a friendly manner.\n\n"

// Synthesizer produces a grounded answer from retrieved passages and the
// conversation history, either in one call or incrementally.
type Synthesizer struct {
	gen Generator
}

func NewSynthesizer(gen Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Synthesize returns the full answer in one blocking call.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, passages []ScoredPassage, history []Turn) (string, error) {
	answer, err := s.gen.Complete(ctx, s.messages(question, passages, history))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// SynthesizeStream delivers the answer incrementally through onDelta, in
// generation order, and returns the concatenation of all fragments. For the
// same inputs and model state the returned string equals what Synthesize
// produces. On error the caller must discard any partial output.
func (s *Synthesizer) SynthesizeStream(ctx context.Context, question string, passages []ScoredPassage, history []Turn, onDelta func(string) error) (string, error) {
	full, err := s.gen.StreamComplete(ctx, s.messages(question, passages, history), onDelta)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(full), nil
}

func (s *Synthesizer) messages(question string, passages []ScoredPassage, history []Turn) []ai.ChatMessage {
	var contextBlock strings.Builder
	for i, p := range passages {
		if i > 0 {
			contextBlock.WriteString("\n\n")
		}
		contextBlock.WriteString(p.Text)
	}

	messages := make([]ai.ChatMessage, 0, 2*len(history)+2)
	messages = append(messages, ai.ChatMessage{
		Role:    "system",
		Content: answerSystemPrompt + contextBlock.String(),
	})
	for _, turn := range history {
		messages = append(messages,
			ai.ChatMessage{Role: "user", Content: turn.Question},
			ai.ChatMessage{Role: "assistant", Content: turn.Answer},
		)
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: question})
	return messages
}
