package domain

import (
	"time"

	"github.com/google/uuid"
)

// SparseVector is a term-weight mapping keyed by vocabulary term id.
type SparseVector map[uint32]float32

// Terms returns the vector as parallel id/weight slices, in unspecified
// order. Used when handing the vector to the index adapter.
func (v SparseVector) Terms() ([]uint32, []float32) {
	ids := make([]uint32, 0, len(v))
	weights := make([]float32, 0, len(v))
	for id, w := range v {
		ids = append(ids, id)
		weights = append(weights, w)
	}
	return ids, weights
}

// DocumentContext carries the law-level identity a PDF was ingested under.
// Country and LawName are required; everything else is optional metadata.
type DocumentContext struct {
	Country     string
	LawName     string
	LawNameEn   string
	LawType     string
	SourceFile  string
	PageOffsets []int // byte offset where each page begins, ascending
}

// Chunk is the smallest retrievable, independently citable unit of a law.
// Its ID is derived from content, not random, so re-ingesting an unchanged
// document produces identical ids and persistence can upsert instead of
// duplicating.
type Chunk struct {
	ID            uuid.UUID
	BatchID       uuid.UUID // document-unique ingestion batch
	Country       string
	LawName       string
	LawNameEn     string
	LawType       string
	ArticleNumber *int // nil for the preamble chunk
	Chapter       string
	PageNumber    *int // nil when no page boundary covers the span
	Part          int  // 1-based part index for split long articles
	TotalParts    int
	DisplayText   string
	SearchText    string
	Dense         []float32
	Sparse        SparseVector
	CreatedAt     time.Time
}

// SearchHit is a chunk returned by one side of the hybrid index, with that
// retriever's raw similarity score. Raw scores from the dense and sparse
// sides are not comparable; fusion only ever uses rank positions.
type SearchHit struct {
	Chunk Chunk
	Score float32
}
