package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"law-rag/internal/adapter/modelsvc"
	"law-rag/internal/adapter/pdfext"
	"law-rag/internal/adapter/repository"
	"law-rag/internal/domain"
	"law-rag/internal/infra"
	"law-rag/internal/infra/config"
	"law-rag/internal/infra/httpclient"
	"law-rag/internal/usecase"
	"law-rag/internal/worker"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client

	Index        domain.VectorIndex
	SessionStore domain.SessionStore
	Ledger       *usecase.SessionLedger

	IngestUsecase usecase.IngestLawUsecase
	QueryUsecase  usecase.QueryLawUsecase

	IngestPool *worker.Pool
}

// NewApplicationComponents wires all dependencies from config.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	pool, err := infra.NewPostgresDB(ctx, cfg.DSN(), infra.PoolConfig{MaxConns: cfg.DBMaxConns})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Shared HTTP clients with connection pooling
	modelHTTP := httpclient.NewPooledClient(cfg.CallTimeout)

	// External clients
	embedder := modelsvc.NewEmbedder(cfg.EmbedderURL, cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.EmbedMaxRPS, modelHTTP, log)
	sparseEncoder := modelsvc.NewSparseEncoder(cfg.SparseEncoderURL, cfg.SparseModel, modelHTTP, log)
	reranker := modelsvc.NewRerankerClient(cfg.RerankerURL, cfg.RerankerModel, cfg.CallTimeout, log, modelHTTP)
	generator := modelsvc.NewGenerator(cfg.GeneratorURL, cfg.GeneratorModel, modelHTTP)

	// Repositories
	index := repository.NewVectorIndexRepository(pool)
	sessionStore := repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)

	// Domain services
	normalizer := domain.NewNormalizer()
	segmenter := domain.NewSegmenter(log)
	enricher := domain.NewEnricher(normalizer)

	// Shared coordination
	guard := usecase.NewCountryGuard()
	ledger := usecase.NewSessionLedger(sessionStore, cfg.SessionTTL, log)

	// Usecases
	extractor := pdfext.NewExtractor(log)
	ingestUsecase := usecase.NewIngestLawUsecase(
		extractor, normalizer, segmenter, enricher,
		embedder, sparseEncoder, index, guard, cfg.CallTimeout, log,
	)

	promptBuilder := usecase.NewLegalPromptBuilder()
	queryUsecase, err := usecase.NewQueryLawUsecase(
		embedder, sparseEncoder, index, reranker, generator,
		promptBuilder, ledger, guard, normalizer,
		usecase.QueryConfig{
			PrefetchN:      cfg.PrefetchN,
			RRFK:           cfg.RRFK,
			TopK:           cfg.TopK,
			HistoryTurns:   cfg.HistoryTurns,
			MaxTokens:      cfg.AnswerMaxTokens,
			CallTimeout:    cfg.CallTimeout,
			EmbedCacheSize: cfg.EmbedCacheSize,
		},
		log,
	)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("failed to build query usecase: %w", err)
	}

	return &ApplicationComponents{
		Pool:          pool,
		Redis:         redisClient,
		Index:         index,
		SessionStore:  sessionStore,
		Ledger:        ledger,
		IngestUsecase: ingestUsecase,
		QueryUsecase:  queryUsecase,
		IngestPool:    worker.NewPool(cfg.IngestWorkers, log),
	}, nil
}

// Close releases the container's connections.
func (c *ApplicationComponents) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
