package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/ai"
	"docchat/internal/app"
	"docchat/internal/model"
	"docchat/internal/rag"
	"docchat/internal/transport/http/response"
)

type fixedGenerator struct{ answer string }

func (g fixedGenerator) Complete(context.Context, []ai.ChatMessage) (string, error) {
	return g.answer, nil
}

func (g fixedGenerator) StreamComplete(_ context.Context, _ []ai.ChatMessage, onDelta func(string) error) (string, error) {
	if err := onDelta(g.answer); err != nil {
		return "", err
	}
	return g.answer, nil
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1}, nil
}

func (unitEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1}
	}
	return out, nil
}

type memoryTranscript struct {
	turns []model.Turn
	limit int
}

func (r *memoryTranscript) ListBySessionID(sessionID string, limit int) ([]model.Turn, error) {
	r.limit = limit
	var out []model.Turn
	for _, turn := range r.turns {
		if turn.SessionID == sessionID {
			out = append(out, turn)
		}
	}
	return out, nil
}

func newChatRouter(t *testing.T, ingest bool, transcripts app.TranscriptReader) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := rag.NewEngine(rag.Options{
		Generator: fixedGenerator{answer: "Paris."},
		Embedder:  unitEmbedder{},
	})
	if ingest {
		_, err := engine.Ingest(context.Background(), []rag.Document{{ID: "d", Text: "paris facts"}})
		require.NoError(t, err)
	}

	h := NewChatHandler(app.NewChatService(engine, nil, transcripts))
	router := gin.New()
	router.POST("/chat", h.Send)
	router.POST("/chat/stream", h.Stream)
	router.GET("/chat/sessions/:id/turns", h.Transcript)
	router.DELETE("/chat/sessions/:id", h.ClearSession)
	router.DELETE("/chat/sessions", h.ClearAllSessions)
	return router
}

func TestSendRejectsInvalidPayload(t *testing.T) {
	router := newChatRouter(t, true, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"session_id":"s1"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendRejectsBlankMessage(t *testing.T) {
	router := newChatRouter(t, true, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"   "}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendReturnsAnswerAndSessionID(t *testing.T) {
	router := newChatRouter(t, true, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"capital of france?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.CodeOK, body.Code)

	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Paris.", data["answer"])
	assert.NotEmpty(t, data["session_id"])
}

func TestSendWithoutDocumentsReturnsGuidance(t *testing.T) {
	router := newChatRouter(t, false, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	data, ok := body.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, rag.NoDocumentsAnswer, data["answer"])
}

func TestStreamEmitsSSEEvents(t *testing.T) {
	router := newChatRouter(t, true, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"session_id":"s1","message":"capital?"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	out := w.Body.String()
	assert.Contains(t, out, "data: Paris.\n\n")
	assert.Contains(t, out, "event: done\ndata: s1\n\n")
}

func TestTranscriptReturnsSessionTurns(t *testing.T) {
	transcripts := &memoryTranscript{turns: []model.Turn{
		{SessionID: "s1", Question: "q1", Answer: "a1"},
		{SessionID: "s2", Question: "other", Answer: "other"},
		{SessionID: "s1", Question: "q2", Answer: "a2"},
	}}
	router := newChatRouter(t, true, transcripts)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/chat/sessions/s1/turns?limit=25", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body response.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, response.CodeOK, body.Code)
	assert.Equal(t, 25, transcripts.limit)

	data, ok := body.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, data, 2)
}

func TestClearSessionValidatesID(t *testing.T) {
	router := newChatRouter(t, true, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/chat/sessions/%20", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodDelete, "/chat/sessions/s1", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClearAllSessions(t *testing.T) {
	router := newChatRouter(t, true, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/chat/sessions", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
