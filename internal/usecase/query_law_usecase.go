package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"law-rag/internal/domain"
	"law-rag/internal/usecase/retrieval"
)

// apologyAnswer is returned when generation fails; the query still answers
// rather than surfacing a bare transport error.
const apologyAnswer = "عذراً، تعذّر توليد الإجابة في الوقت الحالي. الرجاء المحاولة مرة أخرى."

// noContextAnswer is returned when retrieval finds nothing relevant.
const noContextAnswer = "لم أجد معلومات كافية في النصوص القانونية المتاحة للإجابة على سؤالك."

// QueryInput is one question scoped to a country, optionally continuing a
// session.
type QueryInput struct {
	Question  string
	Country   string
	SessionID string
	TopK      int
}

// Source is one citation backing the answer.
type Source struct {
	LawName       string
	ArticleNumber *int
	PageNumber    *int
	Citation      string
	Preview       string
	Relevance     float32
}

// QueryMetadata carries per-request observability fields.
type QueryMetadata struct {
	SessionID       string
	ChunksRetrieved int
	ChunksReranked  int
	RerankDegraded  bool
	ElapsedMs       int64
}

// QueryOutput is the cited answer.
type QueryOutput struct {
	Answer   string
	Sources  []Source
	Metadata QueryMetadata
}

// QueryConfig holds query pipeline parameters.
type QueryConfig struct {
	PrefetchN      int
	RRFK           float64
	TopK           int
	HistoryTurns   int
	MaxTokens      int
	CallTimeout    time.Duration
	EmbedCacheSize int
}

// QueryLawUsecase runs the query pipeline: preprocess (with session
// context), dual-encode, hybrid retrieve, rerank, generate, format.
type QueryLawUsecase interface {
	Query(ctx context.Context, input QueryInput) (*QueryOutput, error)
}

type queryLawUsecase struct {
	embedder      domain.Embedder
	sparse        domain.SparseEncoder
	index         domain.VectorIndex
	reranker      domain.Reranker
	generator     domain.Generator
	promptBuilder PromptBuilder
	ledger        *SessionLedger
	guard         *CountryGuard
	normalizer    *domain.Normalizer
	embedCache    *lru.Cache[string, []float32]
	cfg           QueryConfig
	logger        *slog.Logger
}

// NewQueryLawUsecase wires the query pipeline.
func NewQueryLawUsecase(
	embedder domain.Embedder,
	sparse domain.SparseEncoder,
	index domain.VectorIndex,
	reranker domain.Reranker,
	generator domain.Generator,
	promptBuilder PromptBuilder,
	ledger *SessionLedger,
	guard *CountryGuard,
	normalizer *domain.Normalizer,
	cfg QueryConfig,
	logger *slog.Logger,
) (QueryLawUsecase, error) {
	size := cfg.EmbedCacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding cache: %w", err)
	}
	return &queryLawUsecase{
		embedder:      embedder,
		sparse:        sparse,
		index:         index,
		reranker:      reranker,
		generator:     generator,
		promptBuilder: promptBuilder,
		ledger:        ledger,
		guard:         guard,
		normalizer:    normalizer,
		embedCache:    cache,
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// Query runs the state machine Preprocess → Encode → Retrieve → Rerank →
// Generate → Format. Encode and Retrieve failures are fatal; a Generate
// failure still yields an answer and the turn is recorded either way so the
// next turn's coreference resolution keeps working.
func (u *queryLawUsecase) Query(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, fmt.Errorf("question is required")
	}

	release := u.guard.Enter(input.Country)
	defer release()

	start := time.Now()

	// Preprocess.
	session, err := u.ledger.Resolve(ctx, input.SessionID, input.Country)
	if err != nil {
		return nil, err
	}
	history := session.RecentTurns(u.cfg.HistoryTurns)
	normalized := u.normalizer.Normalize(input.Question, domain.NormalizeSearch)
	question := rewriteWithHistory(normalized, history)
	if question != normalized {
		u.logger.Info("question_rewritten",
			slog.String("session_id", session.ID),
			slog.String("rewritten", question))
	}

	// Encode.
	dense, sparse, err := u.encode(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncodingFailed, err)
	}

	// Retrieve.
	candidates, err := retrieval.Retrieve(ctx, u.index, dense, sparse, input.Country,
		retrieval.Config{PrefetchN: u.cfg.PrefetchN, RRFK: u.cfg.RRFK}, u.logger)
	if err != nil {
		return nil, err
	}
	retrieved := len(candidates)

	// Rerank.
	topK := input.TopK
	if topK <= 0 || topK > u.cfg.TopK {
		topK = u.cfg.TopK
	}
	ranked, degraded := retrieval.Rerank(ctx, u.reranker, question, candidates,
		retrieval.RerankConfig{TopK: topK, Timeout: u.cfg.CallTimeout}, u.logger)

	// Generate.
	answer := u.generate(ctx, input.Question, ranked, history)

	// Format.
	output := u.format(answer, ranked, session.ID, retrieved, degraded, start)

	turn := domain.Turn{
		Question:      input.Question,
		Answer:        answer,
		CitedChunkIDs: citedIDs(ranked),
		CreatedAt:     time.Now(),
	}
	if err := u.ledger.AppendTurn(ctx, session.ID, turn); err != nil {
		u.logger.Warn("turn_append_failed",
			slog.String("session_id", session.ID),
			slog.String("error", err.Error()))
	}

	return output, nil
}

// encode produces both query representations concurrently. Either failure is
// fatal to the request: no retrieval is possible without both halves.
func (u *queryLawUsecase) encode(ctx context.Context, question string) ([]float32, domain.SparseVector, error) {
	var (
		dense  []float32
		sparse domain.SparseVector
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if cached, ok := u.embedCache.Get(question); ok {
			dense = cached
			return nil
		}
		callCtx, cancel := context.WithTimeout(gctx, u.cfg.CallTimeout)
		defer cancel()
		vectors, err := u.embedder.Embed(callCtx, []string{question})
		if err != nil {
			return fmt.Errorf("dense encode: %w", domain.AsCapabilityError(err))
		}
		if len(vectors) != 1 {
			return fmt.Errorf("dense encode: got %d vectors for one text", len(vectors))
		}
		dense = vectors[0]
		u.embedCache.Add(question, dense)
		return nil
	})
	g.Go(func() error {
		callCtx, cancel := context.WithTimeout(gctx, u.cfg.CallTimeout)
		defer cancel()
		vectors, err := u.sparse.Encode(callCtx, []string{question})
		if err != nil {
			return fmt.Errorf("sparse encode: %w", domain.AsCapabilityError(err))
		}
		if len(vectors) != 1 {
			return fmt.Errorf("sparse encode: got %d vectors for one text", len(vectors))
		}
		sparse = vectors[0]
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return dense, sparse, nil
}

// generate asks the model for an answer grounded in the ranked chunks. Any
// failure degrades to an apologetic answer; the caller records the turn
// regardless.
func (u *queryLawUsecase) generate(ctx context.Context, question string, ranked []domain.Candidate, history []domain.Turn) string {
	if len(ranked) == 0 {
		return noContextAnswer
	}

	chunks := make([]domain.Chunk, len(ranked))
	for i, c := range ranked {
		chunks[i] = c.Chunk
	}
	messages, err := u.promptBuilder.Build(PromptInput{
		Question: question,
		Chunks:   chunks,
		History:  history,
	})
	if err != nil {
		u.logger.Warn("prompt_build_failed", slog.String("error", err.Error()))
		return apologyAnswer
	}

	callCtx, cancel := context.WithTimeout(ctx, u.cfg.CallTimeout)
	defer cancel()
	result, err := u.generator.Generate(callCtx, messages, u.cfg.MaxTokens)
	if err != nil {
		u.logger.Warn("generation_failed",
			slog.String("error", domain.AsCapabilityError(err).Error()))
		return apologyAnswer
	}
	if result == nil || strings.TrimSpace(result.Text) == "" {
		u.logger.Warn("generation_empty")
		return apologyAnswer
	}
	return result.Text
}

func (u *queryLawUsecase) format(answer string, ranked []domain.Candidate, sessionID string, retrieved int, degraded bool, start time.Time) *QueryOutput {
	sources := make([]Source, 0, len(ranked))
	for _, c := range ranked {
		relevance := float32(c.FusedScore)
		if c.RerankScore != nil {
			relevance = *c.RerankScore
		}
		sources = append(sources, Source{
			LawName:       c.Chunk.LawName,
			ArticleNumber: c.Chunk.ArticleNumber,
			PageNumber:    c.Chunk.PageNumber,
			Citation:      c.Chunk.Citation(),
			Preview:       c.Chunk.Preview(),
			Relevance:     relevance,
		})
	}

	return &QueryOutput{
		Answer:  answer,
		Sources: sources,
		Metadata: QueryMetadata{
			SessionID:       sessionID,
			ChunksRetrieved: retrieved,
			ChunksReranked:  len(ranked),
			RerankDegraded:  degraded,
			ElapsedMs:       time.Since(start).Milliseconds(),
		},
	}
}

func citedIDs(ranked []domain.Candidate) []string {
	ids := make([]string, 0, len(ranked))
	for _, c := range ranked {
		ids = append(ids, c.Chunk.ID.String())
	}
	return ids
}

// referringExpressions are the surface cues that a question leans on earlier
// turns ("that article", "the previous law", ...).
var referringExpressions = []string{
	"ذلك", "تلك", "هذه الماده", "هذا القانون", "السابق", "السابقه",
	"المذكور", "المذكوره", "نفس الماده", "نفس القانون",
}

// rewriteWithHistory resolves coreference by appending the previous question
// as explicit context when the current one contains a referring expression.
// It is a pure function of (question, turns) and never mutates the session.
func rewriteWithHistory(question string, turns []domain.Turn) string {
	if len(turns) == 0 {
		return question
	}
	for _, expr := range referringExpressions {
		if strings.Contains(question, expr) {
			last := turns[len(turns)-1]
			return fmt.Sprintf("%s (في سياق السؤال السابق: %s)", question, last.Question)
		}
	}
	return question
}
