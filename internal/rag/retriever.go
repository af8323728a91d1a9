package rag

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"docchat/internal/ai"
)

const (
	DefaultQueryExpansions = 3
	DefaultTopK            = 4
)

var lineNumberPrefix = regexp.MustCompile(`^\d+[\.\)]\s*`)

// Retriever expands a standalone query into several semantically diverse
// phrasings, searches the index with each plus the original, and merges the
// results by passage identity keeping the best score seen. Expansion failure
// degrades to single-query retrieval rather than failing the answer.
type Retriever struct {
	gen        Generator
	embedder   Embedder
	expansions int
	topK       int
}

func NewRetriever(gen Generator, embedder Embedder, expansions, topK int) *Retriever {
	if expansions <= 0 {
		expansions = DefaultQueryExpansions
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{gen: gen, embedder: embedder, expansions: expansions, topK: topK}
}

// Retrieve returns the merged top passages for the query, sorted by descending
// score with ties broken by document order then offset, capped at the
// configured fan-out.
func (r *Retriever) Retrieve(ctx context.Context, ix *Index, query string) ([]ScoredPassage, error) {
	queries := []string{query}
	variants, err := r.expand(ctx, query)
	if err != nil {
		log.Printf("query expansion failed, retrieving with original query only: %v", err)
	} else {
		queries = append(queries, variants...)
	}

	best := make(map[string]ScoredPassage)
	for i, q := range queries {
		vec, embedErr := r.embedder.Embed(ctx, q)
		if embedErr != nil {
			if i == 0 {
				return nil, fmt.Errorf("embed query: %w", embedErr)
			}
			log.Printf("embed query variant failed, skipping: %v", embedErr)
			continue
		}
		hits, searchErr := ix.Search(vec, r.topK)
		if searchErr != nil {
			if i == 0 {
				return nil, searchErr
			}
			continue
		}
		for _, hit := range hits {
			if prev, ok := best[hit.ID]; !ok || hit.Score > prev.Score {
				best[hit.ID] = hit
			}
		}
	}

	merged := make([]ScoredPassage, 0, len(best))
	for _, hit := range best {
		merged = append(merged, hit)
	}
	SortByScore(merged)
	if len(merged) > r.topK {
		merged = merged[:r.topK]
	}
	return merged, nil
}

// expand asks the model for alternative phrasings, one per line. The original
// query is not included in the result.
func (r *Retriever) expand(ctx context.Context, query string) ([]string, error) {
	prompt := fmt.Sprintf("You are an AI language model assistant. Your task is to generate %d "+
		"different versions of the given user question to retrieve relevant documents from a "+
		"vector database. By generating multiple perspectives on the user question, your goal is "+
		"to help overcome some of the limitations of distance-based similarity search. "+
		"Provide these alternative questions separated by newlines.\n"+
		"Original question: %s", r.expansions, query)

	response, err := r.gen.Complete(ctx, []ai.ChatMessage{{Role: "user", Content: prompt}})
	if err != nil {
		return nil, err
	}

	var variants []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = lineNumberPrefix.ReplaceAllString(line, "")
		if line == "" || line == query {
			continue
		}
		variants = append(variants, line)
		if len(variants) >= r.expansions {
			break
		}
	}
	return variants, nil
}
