package domain

import (
	"context"

	"github.com/google/uuid"
)

// ExtractedText is the raw page-extractor output: the document's full text
// plus the byte offset at which each page begins.
type ExtractedText struct {
	FullText    string
	PageOffsets []int
}

// PageTextExtractor turns raw PDF bytes into text with page boundaries.
type PageTextExtractor interface {
	Extract(ctx context.Context, pdfBytes []byte) (*ExtractedText, error)
}

// Embedder produces fixed-dimensionality dense vectors, batched.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	Version() string
}

// SparseEncoder produces term-weight mappings, batched.
type SparseEncoder interface {
	Encode(ctx context.Context, texts []string) ([]SparseVector, error)
	Version() string
}

// RerankCandidate is one passage to be scored against the query.
type RerankCandidate struct {
	ID      string
	Content string
	Score   float32
}

// RerankResult carries a cross-encoder relevance score for a candidate id.
type RerankResult struct {
	ID    string
	Score float32
}

// Reranker scores candidates against a query with a cross-encoder model.
// Results come back sorted by score descending. On error callers fall back
// to their pre-rerank ordering.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []RerankCandidate) ([]RerankResult, error)
	ModelName() string
}

// Message is one chat turn handed to the generator.
type Message struct {
	Role    string
	Content string
}

// GenerationResult carries the model output and whether generation finished.
type GenerationResult struct {
	Text string
	Done bool
}

// Generator is the LLM capability that writes the final answer, constrained
// to the supplied context by the prompt.
type Generator interface {
	Generate(ctx context.Context, messages []Message, maxTokens int) (*GenerationResult, error)
	Version() string
}

// VectorIndex is the external system of record for chunk vectors. Upserts
// are keyed by chunk id; a whole ingestion batch can be compensated away by
// its batch id. Both search sides are scoped by country.
type VectorIndex interface {
	UpsertBatch(ctx context.Context, chunks []Chunk) error
	DeleteBatch(ctx context.Context, batchID uuid.UUID) error
	SearchDense(ctx context.Context, vector []float32, country string, limit int) ([]SearchHit, error)
	SearchSparse(ctx context.Context, vector SparseVector, country string, limit int) ([]SearchHit, error)
	ResetCountry(ctx context.Context, country string) error
	DeleteCountry(ctx context.Context, country string) error
}
