package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"law-rag/internal/domain"
)

// Ingestion step names, reported in IngestionError.
const (
	StepExtract   = "extract"
	StepNormalize = "normalize"
	StepSegment   = "segment"
	StepEnrich    = "enrich"
	StepEncode    = "encode"
	StepPersist   = "persist"
)

// IngestInput is one legal PDF plus the identity it is filed under.
type IngestInput struct {
	PDF        []byte
	Country    string
	LawName    string
	LawNameEn  string
	LawType    string
	SourceFile string
}

// IngestReport summarizes a completed ingestion.
type IngestReport struct {
	BatchID       uuid.UUID
	ArticlesFound int
	ChunksCreated int
}

// IngestLawUsecase runs the ingestion pipeline: extract, normalize, segment,
// enrich, dual-encode, persist. Steps run strictly in order for one document;
// distinct documents may run concurrently on the worker pool.
type IngestLawUsecase interface {
	Ingest(ctx context.Context, input IngestInput) (*IngestReport, error)
	ResetCountry(ctx context.Context, country string) error
	DeleteCountry(ctx context.Context, country string) error
}

type ingestLawUsecase struct {
	extractor   domain.PageTextExtractor
	normalizer  *domain.Normalizer
	segmenter   *domain.Segmenter
	enricher    *domain.Enricher
	embedder    domain.Embedder
	sparse      domain.SparseEncoder
	index       domain.VectorIndex
	guard       *CountryGuard
	callTimeout time.Duration
	logger      *slog.Logger
}

// NewIngestLawUsecase wires the ingestion pipeline. callTimeout bounds each
// external capability call, not the pipeline as a whole.
func NewIngestLawUsecase(
	extractor domain.PageTextExtractor,
	normalizer *domain.Normalizer,
	segmenter *domain.Segmenter,
	enricher *domain.Enricher,
	embedder domain.Embedder,
	sparse domain.SparseEncoder,
	index domain.VectorIndex,
	guard *CountryGuard,
	callTimeout time.Duration,
	logger *slog.Logger,
) IngestLawUsecase {
	return &ingestLawUsecase{
		extractor:   extractor,
		normalizer:  normalizer,
		segmenter:   segmenter,
		enricher:    enricher,
		embedder:    embedder,
		sparse:      sparse,
		index:       index,
		guard:       guard,
		callTimeout: callTimeout,
		logger:      logger,
	}
}

// Ingest runs the pipeline for one document. Any step failure aborts the
// remaining steps; no partial chunk set ever becomes queryable. Re-running
// for the same document is idempotent because chunk ids are content-derived
// and the persist step upserts by id.
func (u *ingestLawUsecase) Ingest(ctx context.Context, input IngestInput) (*IngestReport, error) {
	release := u.guard.Enter(input.Country)
	defer release()

	batchID := uuid.New()
	fail := func(step string, err error) (*IngestReport, error) {
		u.logger.Error("ingestion_failed",
			slog.String("batch_id", batchID.String()),
			slog.String("step", step),
			slog.String("law_name", input.LawName),
			slog.String("error", err.Error()))
		return nil, &domain.IngestionError{DocumentBatchID: batchID, Step: step, Err: err}
	}

	// Extract.
	extracted, err := u.extract(ctx, input.PDF)
	if err != nil {
		return fail(StepExtract, fmt.Errorf("%w: %w", domain.ErrExtractionFailed, err))
	}

	// Normalize per page so span offsets still line up with page boundaries.
	text, pageOffsets := u.normalizePages(extracted)

	// Segment.
	spans := u.segmenter.Segment(text)
	articles := 0
	for _, span := range spans {
		if span.ArticleNumber != nil {
			articles++
		}
	}
	u.logger.Info("document_segmented",
		slog.String("batch_id", batchID.String()),
		slog.Int("span_count", len(spans)),
		slog.Int("article_count", articles))

	// Enrich.
	docCtx := domain.DocumentContext{
		Country:     input.Country,
		LawName:     input.LawName,
		LawNameEn:   input.LawNameEn,
		LawType:     input.LawType,
		SourceFile:  input.SourceFile,
		PageOffsets: pageOffsets,
	}
	var chunks []domain.Chunk
	for _, span := range spans {
		enriched, err := u.enricher.Enrich(span, docCtx, batchID)
		if err != nil {
			return fail(StepEnrich, err)
		}
		chunks = append(chunks, enriched...)
	}
	if len(chunks) == 0 {
		return fail(StepSegment, fmt.Errorf("document produced no chunks"))
	}

	// Dual-encode. Both representations are required: a chunk retrievable by
	// only one half of the hybrid index silently degrades fusion, so the
	// document aborts before persist when either encoding fails.
	if err := u.dualEncode(ctx, chunks); err != nil {
		return fail(StepEncode, err)
	}

	// Persist as a single batch keyed by batchID, compensated on failure.
	if err := u.persist(ctx, batchID, chunks); err != nil {
		return fail(StepPersist, err)
	}

	u.logger.Info("ingestion_completed",
		slog.String("batch_id", batchID.String()),
		slog.String("country", input.Country),
		slog.String("law_name", input.LawName),
		slog.Int("articles_found", articles),
		slog.Int("chunks_created", len(chunks)))

	return &IngestReport{BatchID: batchID, ArticlesFound: articles, ChunksCreated: len(chunks)}, nil
}

func (u *ingestLawUsecase) extract(ctx context.Context, pdf []byte) (*domain.ExtractedText, error) {
	callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()
	extracted, err := u.extractor.Extract(callCtx, pdf)
	if err != nil {
		return nil, domain.AsCapabilityError(err)
	}
	return extracted, nil
}

// normalizePages display-normalizes each page independently and reassembles
// the document, recomputing page offsets so the segmenter's span offsets map
// back to the right pages.
func (u *ingestLawUsecase) normalizePages(extracted *domain.ExtractedText) (string, []int) {
	offsets := extracted.PageOffsets
	if len(offsets) == 0 {
		return u.normalizer.Normalize(extracted.FullText, domain.NormalizeDisplay), nil
	}

	var (
		b          []byte
		newOffsets = make([]int, 0, len(offsets))
	)
	for i, start := range offsets {
		end := len(extracted.FullText)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if start > end || start > len(extracted.FullText) {
			continue
		}
		page := u.normalizer.Normalize(extracted.FullText[start:end], domain.NormalizeDisplay)
		if len(b) > 0 {
			b = append(b, '\n')
		}
		newOffsets = append(newOffsets, len(b))
		b = append(b, page...)
	}
	return string(b), newOffsets
}

// dualEncode fills Dense and Sparse for every chunk. The two capability calls
// are independent: a failure in one does not cancel the other, but the
// document is rejected unless both succeed for every chunk.
func (u *ingestLawUsecase) dualEncode(ctx context.Context, chunks []domain.Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.SearchText
	}

	var (
		wg        sync.WaitGroup
		dense     [][]float32
		sparse    []domain.SparseVector
		denseErr  error
		sparseErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
		defer cancel()
		dense, denseErr = u.embedder.Embed(callCtx, texts)
	}()
	go func() {
		defer wg.Done()
		callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
		defer cancel()
		sparse, sparseErr = u.sparse.Encode(callCtx, texts)
	}()
	wg.Wait()

	if denseErr != nil {
		return fmt.Errorf("%w: dense: %w", domain.ErrEncodingFailed, domain.AsCapabilityError(denseErr))
	}
	if sparseErr != nil {
		return fmt.Errorf("%w: sparse: %w", domain.ErrEncodingFailed, domain.AsCapabilityError(sparseErr))
	}
	if len(dense) != len(chunks) || len(sparse) != len(chunks) {
		return fmt.Errorf("%w: got %d dense and %d sparse vectors for %d chunks",
			domain.ErrEncodingFailed, len(dense), len(sparse), len(chunks))
	}

	for i := range chunks {
		chunks[i].Dense = dense[i]
		chunks[i].Sparse = sparse[i]
	}
	return nil
}

// persist writes the whole batch, issuing a compensating delete-by-batch-id
// when the write itself fails partway: either all of a document's chunks are
// queryable or none are.
func (u *ingestLawUsecase) persist(ctx context.Context, batchID uuid.UUID, chunks []domain.Chunk) error {
	callCtx, cancel := context.WithTimeout(ctx, u.callTimeout)
	defer cancel()

	if err := u.index.UpsertBatch(callCtx, chunks); err != nil {
		// Compensation runs on a fresh context: a cancelled request must not
		// leave a half-visible batch behind.
		compCtx, compCancel := context.WithTimeout(context.Background(), u.callTimeout)
		defer compCancel()
		if delErr := u.index.DeleteBatch(compCtx, batchID); delErr != nil {
			u.logger.Error("compensating_delete_failed",
				slog.String("batch_id", batchID.String()),
				slog.String("error", delErr.Error()))
		}
		return fmt.Errorf("%w: %w", domain.ErrPersistenceFailed, domain.AsCapabilityError(err))
	}
	return nil
}

// ResetCountry clears a country's collection under the exclusive per-country
// section: no ingestion or query for that country proceeds while it runs.
func (u *ingestLawUsecase) ResetCountry(ctx context.Context, country string) error {
	release := u.guard.EnterExclusive(country)
	defer release()

	if err := u.index.ResetCountry(ctx, country); err != nil {
		return fmt.Errorf("failed to reset country %s: %w", country, err)
	}
	u.logger.Info("country_reset", slog.String("country", country))
	return nil
}

// DeleteCountry removes a country's collection entirely.
func (u *ingestLawUsecase) DeleteCountry(ctx context.Context, country string) error {
	release := u.guard.EnterExclusive(country)
	defer release()

	if err := u.index.DeleteCountry(ctx, country); err != nil {
		return fmt.Errorf("failed to delete country %s: %w", country, err)
	}
	u.logger.Info("country_deleted", slog.String("country", country))
	return nil
}
