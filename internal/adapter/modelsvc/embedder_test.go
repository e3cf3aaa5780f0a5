package modelsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)
		assert.Equal(t, []string{"نص أول", "نص ثاني"}, req.Input)

		resp := embedResponse{Embeddings: [][]float32{{0.1, 0.2}, {0.3, 0.4}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewEmbedder(server.URL, "bge-m3", 2, 0, nil, discardLogger())

	vectors, err := e.Embed(context.Background(), []string{"نص أول", "نص ثاني"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
}

func TestEmbedder_Embed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embedResponse{Embeddings: [][]float32{{0.1, 0.2}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewEmbedder(server.URL, "bge-m3", 2, 0, nil, discardLogger())

	_, err := e.Embed(context.Background(), []string{"نص أول", "نص ثاني"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "2 vectors")
}

func TestEmbedder_Embed_DimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := embedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	e := NewEmbedder(server.URL, "bge-m3", 2, 0, nil, discardLogger())

	_, err := e.Embed(context.Background(), []string{"نص"})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "dimension")
}

func TestEmbedder_Embed_EmptyInput(t *testing.T) {
	e := NewEmbedder("http://localhost:11434", "bge-m3", 2, 0, nil, discardLogger())

	vectors, err := e.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestSparseEncoder_Encode_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/sparse-encode", r.URL.Path)

		var req sparseEncodeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Len(t, req.Texts, 1)

		resp := sparseEncodeResponse{Vectors: []sparseVectorPayload{
			{Indices: []uint32{7, 42}, Values: []float32{0.5, 0.25}},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := NewSparseEncoder(server.URL, "bge-m3-sparse", nil, discardLogger())

	vectors, err := s.Encode(context.Background(), []string{"نص"})
	require.NoError(t, err)
	require.Len(t, vectors, 1)
	assert.Equal(t, float32(0.5), vectors[0][7])
	assert.Equal(t, float32(0.25), vectors[0][42])
}

func TestSparseEncoder_Encode_MismatchedArrays(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := sparseEncodeResponse{Vectors: []sparseVectorPayload{
			{Indices: []uint32{7}, Values: []float32{0.5, 0.25}},
		}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	s := NewSparseEncoder(server.URL, "bge-m3-sparse", nil, discardLogger())

	_, err := s.Encode(context.Background(), []string{"نص"})
	assert.Error(t, err)
}
