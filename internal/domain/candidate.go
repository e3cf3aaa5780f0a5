package domain

// Candidate is a query-time chunk reference carrying its rank in each
// retriever list, the fused score computed from those ranks, and the
// cross-encoder score once reranked. A rank of 0 means the chunk was absent
// from that retriever's list (it contributes nothing to the fused score).
type Candidate struct {
	Chunk       Chunk
	DenseRank   int
	SparseRank  int
	FusedScore  float64
	RerankScore *float32
}
