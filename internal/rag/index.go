package rag

import (
	"fmt"
	"math"
	"sort"
)

// Index maps passages to their embedding vectors and answers nearest-neighbor
// queries by exact brute-force cosine similarity. An Index is immutable after
// construction, so it is safe for concurrent readers; the engine replaces the
// whole value atomically on rebuild. An index built from zero passages is a
// valid, empty index, distinct from having no index at all.
type Index struct {
	dim      int
	passages []Passage
	vectors  [][]float32
}

// NewIndex builds an index over the given passages and their vectors. All
// vectors must share one dimensionality.
func NewIndex(passages []Passage, vectors [][]float32) (*Index, error) {
	if len(passages) != len(vectors) {
		return nil, fmt.Errorf("passage/vector count mismatch: %d vs %d", len(passages), len(vectors))
	}
	ix := &Index{passages: passages, vectors: vectors}
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("empty vector for passage %s", passages[i].ID)
		}
		if ix.dim == 0 {
			ix.dim = len(vec)
		} else if len(vec) != ix.dim {
			return nil, fmt.Errorf("vector dimension mismatch for passage %s: got %d, expected %d", passages[i].ID, len(vec), ix.dim)
		}
	}
	return ix, nil
}

// Len returns the number of indexed passages.
func (ix *Index) Len() int { return len(ix.passages) }

// Search returns the k most similar passages to the query vector, scored by
// cosine similarity and sorted descending. Ties are broken by document order,
// then offset.
func (ix *Index) Search(query []float32, k int) ([]ScoredPassage, error) {
	if ix.Len() == 0 || k <= 0 {
		return nil, nil
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), ix.dim)
	}
	hits := make([]ScoredPassage, len(ix.passages))
	for i := range ix.passages {
		hits[i] = ScoredPassage{
			Passage: ix.passages[i],
			Score:   cosineSimilarity(query, ix.vectors[i]),
		}
	}
	SortByScore(hits)
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

// SortByScore orders hits by descending score, breaking ties by original
// document order and then by passage offset.
func SortByScore(hits []ScoredPassage) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].DocOrder != hits[j].DocOrder {
			return hits[i].DocOrder < hits[j].DocOrder
		}
		return hits[i].Offset < hits[j].Offset
	})
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA <= 0 || normB <= 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
