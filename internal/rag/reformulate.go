package rag

import (
	"context"
	"strings"

	"docchat/internal/ai"
)

const contextualizeSystemPrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, " +
	"formulate a standalone question which can be understood " +
	"without the chat history. Do NOT answer the question, " +
	"just reformulate it if needed and otherwise return it as is."

// Reformulator rewrites a follow-up question into a standalone query using
// prior conversation turns, so that retrieval does not depend on pronouns or
// ellipsis only resolvable from the history.
type Reformulator struct {
	gen Generator
}

func NewReformulator(gen Generator) *Reformulator {
	return &Reformulator{gen: gen}
}

// Rewrite returns a context-free version of latest. With no history the input
// is already standalone and is returned as is, without a model call.
func (r *Reformulator) Rewrite(ctx context.Context, history []Turn, latest string) (string, error) {
	if len(history) == 0 {
		return latest, nil
	}

	messages := make([]ai.ChatMessage, 0, 2*len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: "system", Content: contextualizeSystemPrompt})
	for _, turn := range history {
		messages = append(messages,
			ai.ChatMessage{Role: "user", Content: turn.Question},
			ai.ChatMessage{Role: "assistant", Content: turn.Answer},
		)
	}
	messages = append(messages, ai.ChatMessage{Role: "user", Content: latest})

	rewritten, err := r.gen.Complete(ctx, messages)
	if err != nil {
		return "", err
	}
	rewritten = strings.TrimSpace(rewritten)
	if rewritten == "" {
		return latest, nil
	}
	return rewritten, nil
}
