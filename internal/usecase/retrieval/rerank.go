package retrieval

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"law-rag/internal/domain"
)

// RerankConfig holds reranking stage parameters.
type RerankConfig struct {
	TopK    int
	Timeout time.Duration
}

// Rerank scores the fused candidates against the question with the
// cross-encoder, sorts by rerank score alone (the fused score was only a
// prefetch filter) and truncates to TopK. When the capability is unreachable
// the fused ordering is returned instead, truncated to TopK, with degraded
// set; a retrieval result beats no answer.
func Rerank(
	ctx context.Context,
	reranker domain.Reranker,
	question string,
	candidates []domain.Candidate,
	cfg RerankConfig,
	logger *slog.Logger,
) (ranked []domain.Candidate, degraded bool) {
	if len(candidates) == 0 {
		return nil, false
	}

	rerankCands := make([]domain.RerankCandidate, len(candidates))
	for i, c := range candidates {
		rerankCands[i] = domain.RerankCandidate{
			ID:      c.Chunk.ID.String(),
			Content: c.Chunk.SearchText,
			Score:   float32(c.FusedScore),
		}
	}

	start := time.Now()
	rctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	results, rerr := reranker.Rerank(rctx, question, rerankCands)
	cancel()

	if rerr != nil {
		cause := fmt.Errorf("%w: %w", domain.ErrRerankUnavailable, domain.AsCapabilityError(rerr))
		logger.Warn("rerank_degraded_to_fused_order",
			slog.String("error", cause.Error()),
			slog.String("model", reranker.ModelName()),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()))
		return truncate(candidates, cfg.TopK), true
	}

	scores := make(map[string]float32, len(results))
	for _, r := range results {
		scores[r.ID] = r.Score
	}

	ranked = make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if score, ok := scores[c.Chunk.ID.String()]; ok {
			s := score
			c.RerankScore = &s
		}
		ranked = append(ranked, c)
	}

	sort.Slice(ranked, func(i, j int) bool {
		si, sj := rerankScore(ranked[i]), rerankScore(ranked[j])
		if si != sj {
			return si > sj
		}
		return bytes.Compare(ranked[i].Chunk.ID[:], ranked[j].Chunk.ID[:]) < 0
	})

	logger.Info("rerank_completed",
		slog.Int("candidate_count", len(candidates)),
		slog.Int("scored_count", len(results)),
		slog.String("model", reranker.ModelName()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return truncate(ranked, cfg.TopK), false
}

// rerankScore treats an unscored candidate as lowest-ranked rather than
// failing the request.
func rerankScore(c domain.Candidate) float32 {
	if c.RerankScore == nil {
		return float32(-1 << 30)
	}
	return *c.RerankScore
}

func truncate(cands []domain.Candidate, n int) []domain.Candidate {
	if n > 0 && len(cands) > n {
		return cands[:n]
	}
	return cands
}
