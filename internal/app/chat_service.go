package app

import (
	"context"
	"log"
	"strings"

	"github.com/google/uuid"

	"docchat/internal/model"
	"docchat/internal/rag"
)

// TurnPublisher hands completed turns to the async persistence pipeline.
type TurnPublisher interface {
	Publish(ctx context.Context, turn model.Turn) error
}

// TranscriptReader reads the durable audit trail written by the turn worker.
type TranscriptReader interface {
	ListBySessionID(sessionID string, limit int) ([]model.Turn, error)
}

// ChatService fronts the engine for the transport layer: it mints session IDs,
// forwards finished turns to the audit queue, and serves the persisted
// transcript.
type ChatService struct {
	engine      *rag.Engine
	publisher   TurnPublisher
	transcripts TranscriptReader
}

func NewChatService(engine *rag.Engine, publisher TurnPublisher, transcripts TranscriptReader) *ChatService {
	return &ChatService{engine: engine, publisher: publisher, transcripts: transcripts}
}

type AnswerResult struct {
	Answer    string `json:"answer"`
	SessionID string `json:"session_id"`
}

// Answer runs one blocking turn. An empty sessionID starts a new session.
func (s *ChatService) Answer(ctx context.Context, sessionID, message string) (*AnswerResult, error) {
	sessionID, err := s.ensureSession(sessionID)
	if err != nil {
		return nil, err
	}
	answer, err := s.engine.Answer(ctx, sessionID, message)
	if err != nil {
		return nil, err
	}
	s.publishTurn(ctx, sessionID, message, answer)
	return &AnswerResult{Answer: answer, SessionID: sessionID}, nil
}

// AnswerStream runs one turn delivering fragments through onDelta and returns
// the full concatenated answer.
func (s *ChatService) AnswerStream(ctx context.Context, sessionID, message string, onDelta func(string) error) (*AnswerResult, error) {
	sessionID, err := s.ensureSession(sessionID)
	if err != nil {
		return nil, err
	}
	answer, err := s.engine.AnswerStream(ctx, sessionID, message, onDelta)
	if err != nil {
		return nil, err
	}
	s.publishTurn(ctx, sessionID, message, answer)
	return &AnswerResult{Answer: answer, SessionID: sessionID}, nil
}

// Transcript returns the session's persisted turns in arrival order.
func (s *ChatService) Transcript(sessionID string, limit int) ([]model.Turn, error) {
	if s.transcripts == nil {
		return nil, nil
	}
	return s.transcripts.ListBySessionID(sessionID, limit)
}

func (s *ChatService) ClearSession(sessionID string) {
	s.engine.ClearSession(sessionID)
}

func (s *ChatService) ClearAllSessions() {
	s.engine.ClearAllSessions()
}

func (s *ChatService) ensureSession(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return uuid.NewString(), nil
	}
	return sessionID, nil
}

// publishTurn is best effort: the audit trail must never fail a chat turn.
// The no-documents guidance is not a conversation turn; the engine does not
// record it and neither does the audit trail.
func (s *ChatService) publishTurn(ctx context.Context, sessionID, question, answer string) {
	if s.publisher == nil || answer == rag.NoDocumentsAnswer {
		return
	}
	turn := model.Turn{SessionID: sessionID, Question: question, Answer: answer}
	if err := s.publisher.Publish(ctx, turn); err != nil {
		log.Printf("publish turn for session %s: %v", sessionID, err)
	}
}
