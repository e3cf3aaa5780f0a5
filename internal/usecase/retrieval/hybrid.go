// Package retrieval implements the query-time ranking stages: hybrid
// dense+sparse retrieval fused by Reciprocal Rank Fusion, followed by
// cross-encoder reranking with graceful degradation.
package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"law-rag/internal/domain"
)

// DefaultRRFK is the rank-fusion constant. 60 is the value from the original
// RRF paper and works well without tuning.
const DefaultRRFK = 60.0

// Config holds hybrid retrieval parameters.
type Config struct {
	PrefetchN int
	RRFK      float64
}

// Retrieve issues the dense and sparse top-N queries independently, fuses the
// two ranked lists by RRF and returns the fused list truncated to PrefetchN.
// Fusion uses rank positions only; the retrievers' raw similarity scores are
// never mixed. A chunk absent from one list contributes nothing for that
// retriever. Ties in fused score break by ascending chunk id so the ordering
// is deterministic.
func Retrieve(
	ctx context.Context,
	index domain.VectorIndex,
	dense []float32,
	sparse domain.SparseVector,
	country string,
	cfg Config,
	logger *slog.Logger,
) ([]domain.Candidate, error) {
	k := cfg.RRFK
	if k <= 0 {
		k = DefaultRRFK
	}

	start := time.Now()

	var denseHits, sparseHits []domain.SearchHit
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hits, err := index.SearchDense(gctx, dense, country, cfg.PrefetchN)
		if err != nil {
			return fmt.Errorf("dense search: %w", err)
		}
		denseHits = hits
		return nil
	})
	g.Go(func() error {
		hits, err := index.SearchSparse(gctx, sparse, country, cfg.PrefetchN)
		if err != nil {
			return fmt.Errorf("sparse search: %w", err)
		}
		sparseHits = hits
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, domain.AsCapabilityError(err)
	}

	fused := Fuse(denseHits, sparseHits, k)
	if len(fused) > cfg.PrefetchN {
		fused = fused[:cfg.PrefetchN]
	}

	logger.Info("hybrid_retrieval_completed",
		slog.String("country", country),
		slog.Int("dense_count", len(denseHits)),
		slog.Int("sparse_count", len(sparseHits)),
		slog.Int("fused_count", len(fused)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return fused, nil
}

// Fuse combines the two ranked hit lists by Reciprocal Rank Fusion:
//
//	fused(chunk) = Σ over retrievers 1/(k + rank)
//
// with 1-based ranks. The result is sorted by descending fused score, ties by
// ascending chunk id.
func Fuse(denseHits, sparseHits []domain.SearchHit, k float64) []domain.Candidate {
	byID := make(map[[16]byte]*domain.Candidate, len(denseHits)+len(sparseHits))

	for i, hit := range denseHits {
		byID[hit.Chunk.ID] = &domain.Candidate{Chunk: hit.Chunk, DenseRank: i + 1}
	}
	for i, hit := range sparseHits {
		c, ok := byID[hit.Chunk.ID]
		if !ok {
			c = &domain.Candidate{Chunk: hit.Chunk}
			byID[hit.Chunk.ID] = c
		}
		c.SparseRank = i + 1
	}

	fused := make([]domain.Candidate, 0, len(byID))
	for _, c := range byID {
		if c.DenseRank > 0 {
			c.FusedScore += 1.0 / (k + float64(c.DenseRank))
		}
		if c.SparseRank > 0 {
			c.FusedScore += 1.0 / (k + float64(c.SparseRank))
		}
		fused = append(fused, *c)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].FusedScore != fused[j].FusedScore {
			return fused[i].FusedScore > fused[j].FusedScore
		}
		return bytes.Compare(fused[i].Chunk.ID[:], fused[j].Chunk.ID[:]) < 0
	})

	return fused
}
