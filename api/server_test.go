package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pensieve-ai/pensieve/internal/assistant"
	"github.com/pensieve-ai/pensieve/internal/contextcache"
	"github.com/pensieve-ai/pensieve/internal/log"
	"github.com/pensieve-ai/pensieve/internal/note"
)

type stubStore struct{}

func (stubStore) Notes(context.Context) ([]note.Note, error) {
	return []note.Note{
		{ID: "n1", Type: "task", Title: "Pay invoices", Content: "invoice details",
			Embedding: []float32{1, 0}},
	}, nil
}

func (stubStore) Types(context.Context) ([]note.ObjectType, error) {
	return []note.ObjectType{{ID: "task", Name: "Task", Plural: "Tasks"}}, nil
}

// stubGenerator fails routing (forcing the fallback path) and answers the
// completion call with a fixed reply.
type stubGenerator struct{}

func (stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "=== NOTE ===") {
		return "the invoices are due friday", nil
	}
	return "", errors.New("router offline")
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func newTestServer(t *testing.T, ready func(context.Context) error) *Server {
	t.Helper()
	asst, err := assistant.New(assistant.Config{
		Corpus:    stubStore{},
		Generator: stubGenerator{},
		Embedder:  stubEmbedder{},
		Cache:     contextcache.New(contextcache.Config{}),
		Logger:    log.NewNop(),
		Sleep:     func(context.Context, time.Duration) error { return nil },
	})
	require.NoError(t, err)
	return NewServer(asst, log.NewNop(), ready)
}

func TestHealth(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReady(t *testing.T) {
	t.Parallel()

	t.Run("no probe", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("failing probe", func(t *testing.T) {
		t.Parallel()
		srv := newTestServer(t, func(context.Context) error { return errors.New("db down") })
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestChat(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)
	body := `{"message":"what invoices are due?","history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"answer":"the invoices are due friday"}`, rec.Body.String())
}

func TestChatValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"missing message", `{"history":[]}`},
		{"blank message", `{"message":""}`},
		{"bad role", `{"message":"hi","history":[{"role":"wizard","content":"x"}]}`},
		{"empty turn content", `{"message":"hi","history":[{"role":"user","content":""}]}`},
	}
	srv := newTestServer(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			srv.Handler().ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, nil)

	t.Run("generated", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
	})

	t.Run("echoed", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set(requestIDHeader, "req-123")
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
	})
}
