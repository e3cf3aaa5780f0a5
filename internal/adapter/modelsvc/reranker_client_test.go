package modelsvc

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"law-rag/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRerankerClient_Rerank_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/rerank", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req RerankRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		require.NoError(t, err)

		assert.Equal(t, "مدة الإجازة السنوية", req.Query)
		assert.Len(t, req.Candidates, 3)
		assert.Equal(t, "bge-reranker-v2-m3", req.Model)

		resp := RerankResponse{
			Results: []RerankResponseResult{
				{Index: 1, Score: 0.95},
				{Index: 0, Score: 0.85},
				{Index: 2, Score: 0.75},
			},
			Model: "bge-reranker-v2-m3",
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, discardLogger())

	candidates := []domain.RerankCandidate{
		{ID: "chunk-1", Content: "نص المادة الأولى", Score: 0.8},
		{ID: "chunk-2", Content: "نص المادة الثانية", Score: 0.7},
		{ID: "chunk-3", Content: "نص المادة الثالثة", Score: 0.6},
	}

	results, err := client.Rerank(context.Background(), "مدة الإجازة السنوية", candidates)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "chunk-2", results[0].ID)
	assert.Equal(t, float32(0.95), results[0].Score)
	assert.Equal(t, "chunk-1", results[1].ID)
	assert.Equal(t, "chunk-3", results[2].ID)
}

func TestRerankerClient_Rerank_EmptyCandidates(t *testing.T) {
	client := NewRerankerClient("http://localhost:8001", "bge-reranker-v2-m3", 30*time.Second, discardLogger())

	results, err := client.Rerank(context.Background(), "سؤال", []domain.RerankCandidate{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRerankerClient_Rerank_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("internal server error"))
	}))
	defer server.Close()

	client := NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, discardLogger())

	results, err := client.Rerank(context.Background(), "سؤال", []domain.RerankCandidate{
		{ID: "chunk-1", Content: "نص", Score: 0.8},
	})
	assert.Error(t, err)
	assert.Nil(t, results)
	assert.Contains(t, err.Error(), "500")
}

func TestRerankerClient_Rerank_InvalidIndex(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := RerankResponse{Results: []RerankResponseResult{{Index: 9, Score: 0.5}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewRerankerClient(server.URL, "bge-reranker-v2-m3", 30*time.Second, discardLogger())

	_, err := client.Rerank(context.Background(), "سؤال", []domain.RerankCandidate{
		{ID: "chunk-1", Content: "نص", Score: 0.8},
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid result index")
}
