package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"docchat/internal/docstore"
	"docchat/internal/model"
	"docchat/internal/pkg/extract"
	"docchat/internal/rag"
	"docchat/internal/repository"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrUnsupportedFile  = errors.New("unsupported file type")
	ErrEmptyDocument    = errors.New("document contains no extractable text")
	ErrDocumentNotFound = errors.New("document not found")
)

// DocumentService owns the document lifecycle: storing uploads, extracting
// text, driving engine rebuilds, and maintaining the durable registry the
// index is restored from at startup.
type DocumentService struct {
	store     *docstore.Store
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	engine    *rag.Engine
}

func NewDocumentService(
	store *docstore.Store,
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	engine *rag.Engine,
) *DocumentService {
	return &DocumentService{
		store:     store,
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		engine:    engine,
	}
}

// UploadResult reports one completed ingestion.
type UploadResult struct {
	Document  model.Document `json:"document"`
	Documents int            `json:"documents"`
	Passages  int            `json:"passages"`
}

// Upload stores the file and re-ingests the full document set. On any failure
// the stored copy is removed again and the previous index stays live.
func (s *DocumentService) Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error) {
	if !extract.Supported(filename) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, filename)
	}

	stored, err := s.store.Save(filename, r)
	if err != nil {
		return nil, err
	}

	result, err := s.rebuild(ctx)
	if err != nil {
		if cleanupErr := s.store.Delete(stored.StoredName); cleanupErr != nil {
			log.Printf("cleanup of failed upload %s: %v", stored.StoredName, cleanupErr)
		}
		return nil, err
	}

	docs, err := s.docRepo.List()
	if err != nil {
		return nil, err
	}
	var uploaded model.Document
	for _, d := range docs {
		if d.StoredName == stored.StoredName {
			uploaded = d
			break
		}
	}

	return &UploadResult{
		Document:  uploaded,
		Documents: result.Documents,
		Passages:  len(result.Passages),
	}, nil
}

// List returns the registry in ingestion order.
func (s *DocumentService) List() ([]model.Document, error) {
	return s.docRepo.List()
}

// Delete removes one document and re-ingests the remaining set; removing the
// last document resets the engine to its no-documents state and clears all
// sessions.
func (s *DocumentService) Delete(ctx context.Context, id uint) error {
	doc, err := s.docRepo.GetByID(id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}
	if err := s.store.Delete(doc.StoredName); err != nil {
		return err
	}

	remaining, err := s.store.List()
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return s.reset()
	}
	_, err = s.rebuild(ctx)
	return err
}

// DeleteAll removes every document and resets the engine.
func (s *DocumentService) DeleteAll(ctx context.Context) error {
	if err := s.store.DeleteAll(); err != nil {
		return err
	}
	return s.reset()
}

// RestoreIndex rebuilds the index from persisted chunk embeddings without
// calling the embedding service. With an empty registry but files on disk
// (e.g. after a database wipe) it falls back to a full re-ingestion.
func (s *DocumentService) RestoreIndex(ctx context.Context) error {
	docs, err := s.docRepo.List()
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		files, listErr := s.store.List()
		if listErr != nil {
			return listErr
		}
		if len(files) == 0 {
			return nil
		}
		_, rebuildErr := s.rebuild(ctx)
		return rebuildErr
	}

	var passages []rag.Passage
	var vectors [][]float32
	for order, doc := range docs {
		chunks, chunkErr := s.chunkRepo.ListByDocumentID(doc.ID)
		if chunkErr != nil {
			return chunkErr
		}
		for _, chunk := range chunks {
			vec := chunk.EmbeddingVector()
			if len(vec) == 0 {
				return fmt.Errorf("chunk %d of document %q has no stored embedding", chunk.ID, doc.Name)
			}
			passages = append(passages, rag.Passage{
				ID:       rag.PassageID(doc.StoredName, chunk.Offset),
				DocID:    doc.StoredName,
				DocName:  doc.Name,
				DocOrder: order,
				Offset:   chunk.Offset,
				Text:     chunk.Content,
			})
			vectors = append(vectors, vec)
		}
	}
	return s.engine.Restore(passages, vectors)
}

// rebuild re-ingests every stored file and rewrites the registry to match the
// new index.
func (s *DocumentService) rebuild(ctx context.Context) (*rag.IngestResult, error) {
	files, err := s.store.List()
	if err != nil {
		return nil, err
	}

	docs := make([]rag.Document, 0, len(files))
	for _, f := range files {
		reader, openErr := s.store.Open(f.StoredName)
		if openErr != nil {
			return nil, fmt.Errorf("%w: %s", openErr, f.Name)
		}
		text, extractErr := extract.Text(f.Name, reader)
		_ = reader.Close()
		if extractErr != nil {
			return nil, fmt.Errorf("extract %q: %w", f.Name, extractErr)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, f.Name)
		}
		docs = append(docs, rag.Document{ID: f.StoredName, Name: f.Name, Text: text})
	}

	result, err := s.engine.Ingest(ctx, docs)
	if err != nil {
		return nil, err
	}

	if err := s.persistRegistry(docs, result); err != nil {
		// The new index is already live; losing the registry only costs the
		// next warm start a re-embedding pass.
		log.Printf("persist document registry failed: %v", err)
	}
	return result, nil
}

func (s *DocumentService) persistRegistry(docs []rag.Document, result *rag.IngestResult) error {
	if err := s.chunkRepo.DeleteAll(); err != nil {
		return err
	}
	if err := s.docRepo.DeleteAll(); err != nil {
		return err
	}

	idByStoredName := make(map[string]uint, len(docs))
	chunkCounts := make(map[string]int, len(docs))
	for _, p := range result.Passages {
		chunkCounts[p.DocID]++
	}
	for i, doc := range docs {
		record := model.Document{
			StoredName: doc.ID,
			Name:       doc.Name,
			Position:   i,
			ChunkCount: chunkCounts[doc.ID],
		}
		if err := s.docRepo.Create(&record); err != nil {
			return err
		}
		idByStoredName[doc.ID] = record.ID
	}

	chunks := make([]model.Chunk, len(result.Passages))
	for i, p := range result.Passages {
		chunks[i] = model.Chunk{
			DocumentID: idByStoredName[p.DocID],
			Offset:     p.Offset,
			Content:    p.Text,
		}
		chunks[i].SetEmbedding(result.Vectors[i])
	}
	return s.chunkRepo.CreateBatch(chunks)
}

func (s *DocumentService) reset() error {
	s.engine.Reset()
	if err := s.chunkRepo.DeleteAll(); err != nil {
		return err
	}
	return s.docRepo.DeleteAll()
}
