package rag

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// Chunker splits document text into overlapping rune-based passages so that
// semantic context is not severed at chunk boundaries. Pure and deterministic.
type Chunker struct {
	size    int
	overlap int
}

func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 5
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split partitions each document into passages of at most the configured size,
// consecutive passages sharing the configured overlap. Original text order is
// preserved; documents with no text yield no passages.
func (c *Chunker) Split(docs []Document) []Passage {
	var passages []Passage
	for order, doc := range docs {
		runes := []rune(doc.Text)
		step := c.size - c.overlap
		for i := 0; i < len(runes); i += step {
			end := i + c.size
			if end > len(runes) {
				end = len(runes)
			}
			passages = append(passages, Passage{
				ID:       PassageID(doc.ID, i),
				DocID:    doc.ID,
				DocName:  doc.Name,
				DocOrder: order,
				Offset:   i,
				Text:     string(runes[i:end]),
			})
			if end >= len(runes) {
				break
			}
		}
	}
	return passages
}
