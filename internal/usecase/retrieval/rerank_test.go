package retrieval_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"law-rag/internal/domain"
	"law-rag/internal/usecase/retrieval"
)

// MockReranker is a test double for domain.Reranker.
type MockReranker struct {
	mock.Mock
}

func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []domain.RerankCandidate) ([]domain.RerankResult, error) {
	args := m.Called(ctx, query, candidates)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RerankResult), args.Error(1)
}

func (m *MockReranker) ModelName() string {
	return "test-reranker"
}

func fusedCandidates(ids ...uuid.UUID) []domain.Candidate {
	cands := make([]domain.Candidate, len(ids))
	for i, id := range ids {
		cands[i] = domain.Candidate{
			Chunk:      domain.Chunk{ID: id, SearchText: "نص"},
			FusedScore: 1.0 / float64(61+i),
		}
	}
	return cands
}

func TestRerank_ReordersByRerankScore(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")
	c := uuid.MustParse("cccccccc-0000-0000-0000-000000000000")
	cands := fusedCandidates(a, b, c)

	reranker := new(MockReranker)
	reranker.On("Rerank", mock.Anything, "سؤال", mock.Anything).Return([]domain.RerankResult{
		{ID: c.String(), Score: 0.9},
		{ID: a.String(), Score: 0.5},
		{ID: b.String(), Score: 0.1},
	}, nil)

	ranked, degraded := retrieval.Rerank(context.Background(), reranker, "سؤال", cands,
		retrieval.RerankConfig{TopK: 2, Timeout: time.Second}, testLogger())

	assert.False(t, degraded)
	require.Len(t, ranked, 2)
	assert.Equal(t, c, ranked[0].Chunk.ID)
	assert.Equal(t, a, ranked[1].Chunk.ID)
	require.NotNil(t, ranked[0].RerankScore)
	assert.InDelta(t, 0.9, float64(*ranked[0].RerankScore), 1e-6)
}

func TestRerank_DegradesToFusedOrderOnError(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")
	c := uuid.MustParse("cccccccc-0000-0000-0000-000000000000")
	cands := fusedCandidates(a, b, c)

	reranker := new(MockReranker)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	ranked, degraded := retrieval.Rerank(context.Background(), reranker, "سؤال", cands,
		retrieval.RerankConfig{TopK: 2, Timeout: time.Second}, testLogger())

	// Fused ordering survives unchanged, truncated to TopK, no scores attached.
	assert.True(t, degraded)
	require.Len(t, ranked, 2)
	assert.Equal(t, a, ranked[0].Chunk.ID)
	assert.Equal(t, b, ranked[1].Chunk.ID)
	assert.Nil(t, ranked[0].RerankScore)
}

func TestRerank_UnscoredCandidatesSortLast(t *testing.T) {
	a := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	b := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")
	cands := fusedCandidates(a, b)

	reranker := new(MockReranker)
	reranker.On("Rerank", mock.Anything, mock.Anything, mock.Anything).Return([]domain.RerankResult{
		{ID: b.String(), Score: 0.3},
	}, nil)

	ranked, degraded := retrieval.Rerank(context.Background(), reranker, "سؤال", cands,
		retrieval.RerankConfig{TopK: 5, Timeout: time.Second}, testLogger())

	assert.False(t, degraded)
	require.Len(t, ranked, 2)
	assert.Equal(t, b, ranked[0].Chunk.ID)
	assert.Equal(t, a, ranked[1].Chunk.ID)
	assert.Nil(t, ranked[1].RerankScore)
}

func TestRerank_EmptyCandidates(t *testing.T) {
	reranker := new(MockReranker)

	ranked, degraded := retrieval.Rerank(context.Background(), reranker, "سؤال", nil,
		retrieval.RerankConfig{TopK: 5, Timeout: time.Second}, testLogger())

	assert.Empty(t, ranked)
	assert.False(t, degraded)
	reranker.AssertNotCalled(t, "Rerank")
}
