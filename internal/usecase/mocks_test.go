package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"law-rag/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// MockExtractor is a test double for domain.PageTextExtractor.
type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, pdfBytes []byte) (*domain.ExtractedText, error) {
	args := m.Called(ctx, pdfBytes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractedText), args.Error(1)
}

// MockEmbedder is a test double for domain.Embedder.
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func([]string) [][]float32); ok {
		return fn(texts), args.Error(1)
	}
	return args.Get(0).([][]float32), args.Error(1)
}

func (m *MockEmbedder) Dimension() int  { return 4 }
func (m *MockEmbedder) Version() string { return "test-embedder" }

// MockSparseEncoder is a test double for domain.SparseEncoder.
type MockSparseEncoder struct {
	mock.Mock
}

func (m *MockSparseEncoder) Encode(ctx context.Context, texts []string) ([]domain.SparseVector, error) {
	args := m.Called(ctx, texts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if fn, ok := args.Get(0).(func([]string) []domain.SparseVector); ok {
		return fn(texts), args.Error(1)
	}
	return args.Get(0).([]domain.SparseVector), args.Error(1)
}

func (m *MockSparseEncoder) Version() string { return "test-sparse" }

// MockVectorIndex is a test double for domain.VectorIndex.
type MockVectorIndex struct {
	mock.Mock
}

func (m *MockVectorIndex) UpsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	args := m.Called(ctx, chunks)
	return args.Error(0)
}

func (m *MockVectorIndex) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	args := m.Called(ctx, batchID)
	return args.Error(0)
}

func (m *MockVectorIndex) SearchDense(ctx context.Context, vector []float32, country string, limit int) ([]domain.SearchHit, error) {
	args := m.Called(ctx, vector, country, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchHit), args.Error(1)
}

func (m *MockVectorIndex) SearchSparse(ctx context.Context, vector domain.SparseVector, country string, limit int) ([]domain.SearchHit, error) {
	args := m.Called(ctx, vector, country, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SearchHit), args.Error(1)
}

func (m *MockVectorIndex) ResetCountry(ctx context.Context, country string) error {
	args := m.Called(ctx, country)
	return args.Error(0)
}

func (m *MockVectorIndex) DeleteCountry(ctx context.Context, country string) error {
	args := m.Called(ctx, country)
	return args.Error(0)
}

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

func (m *MockReranker) ModelName() string { return "test-reranker" }

// MockGenerator is a test double for domain.Generator.
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, messages []domain.Message, maxTokens int) (*domain.GenerationResult, error) {
	args := m.Called(ctx, messages, maxTokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GenerationResult), args.Error(1)
}

func (m *MockGenerator) Version() string { return "test-generator" }

// memorySessionStore is an in-memory domain.SessionStore for ledger tests.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *memorySessionStore) Create(ctx context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.sessions[session.ID] = &copied
	return nil
}

func (s *memorySessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	copied.Turns = append([]domain.Turn(nil), session.Turns...)
	return &copied, nil
}

func (s *memorySessionStore) AppendTurn(ctx context.Context, id string, turn domain.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.Turns = append(session.Turns, turn)
	return nil
}

func (s *memorySessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *memorySessionStore) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids, nil
}
