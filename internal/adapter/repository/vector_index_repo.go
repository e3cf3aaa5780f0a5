package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"law-rag/internal/domain"
)

type vectorIndexRepository struct {
	pool *pgxpool.Pool
}

// NewVectorIndexRepository creates the pgvector-backed chunk index. Dense
// search goes through the vector column, sparse search through the
// law_chunk_terms inverted table.
func NewVectorIndexRepository(pool *pgxpool.Pool) domain.VectorIndex {
	return &vectorIndexRepository{pool: pool}
}

type dbExecutor interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (r *vectorIndexRepository) getExecutor(ctx context.Context) dbExecutor {
	tx := ExtractTx(ctx)
	if tx != nil {
		return tx
	}
	return r.pool
}

const chunkColumns = `id, batch_id, country, law_name, law_name_en, law_type,
	article_number, chapter, page_number, part, total_parts,
	display_text, search_text, embedding, created_at`

// UpsertBatch writes the chunks and their sparse terms in one transaction.
// Re-ingesting the same document overwrites by chunk id, so stale term rows
// for those ids are dropped first.
func (r *vectorIndexRepository) UpsertBatch(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return runInTx(ctx, r.pool, func(ctx context.Context) error {
		exec := r.getExecutor(ctx)

		ids := make([]uuid.UUID, len(chunks))
		for i, c := range chunks {
			ids[i] = c.ID
		}
		if _, err := exec.Exec(ctx, `DELETE FROM law_chunk_terms WHERE chunk_id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("failed to clear chunk terms: %w", err)
		}

		upsert := `
			INSERT INTO law_chunks (` + chunkColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			ON CONFLICT (id) DO UPDATE SET
				batch_id = EXCLUDED.batch_id,
				country = EXCLUDED.country,
				law_name = EXCLUDED.law_name,
				law_name_en = EXCLUDED.law_name_en,
				law_type = EXCLUDED.law_type,
				article_number = EXCLUDED.article_number,
				chapter = EXCLUDED.chapter,
				page_number = EXCLUDED.page_number,
				part = EXCLUDED.part,
				total_parts = EXCLUDED.total_parts,
				display_text = EXCLUDED.display_text,
				search_text = EXCLUDED.search_text,
				embedding = EXCLUDED.embedding,
				created_at = EXCLUDED.created_at
		`
		var termRows [][]interface{}
		for _, c := range chunks {
			if _, err := exec.Exec(ctx, upsert,
				c.ID, c.BatchID, c.Country, c.LawName, c.LawNameEn, c.LawType,
				c.ArticleNumber, c.Chapter, c.PageNumber, c.Part, c.TotalParts,
				c.DisplayText, c.SearchText, pgvector.NewVector(c.Dense), c.CreatedAt,
			); err != nil {
				return fmt.Errorf("failed to upsert chunk %s: %w", c.ID, err)
			}
			terms, weights := c.Sparse.Terms()
			for i, term := range terms {
				termRows = append(termRows, []interface{}{c.ID, int64(term), weights[i]})
			}
		}

		if len(termRows) > 0 {
			if _, err := exec.CopyFrom(
				ctx,
				pgx.Identifier{"law_chunk_terms"},
				[]string{"chunk_id", "term_id", "weight"},
				pgx.CopyFromRows(termRows),
			); err != nil {
				return fmt.Errorf("failed to bulk insert chunk terms: %w", err)
			}
		}
		return nil
	})
}

// DeleteBatch removes every chunk written under batchID.
func (r *vectorIndexRepository) DeleteBatch(ctx context.Context, batchID uuid.UUID) error {
	return runInTx(ctx, r.pool, func(ctx context.Context) error {
		exec := r.getExecutor(ctx)
		if _, err := exec.Exec(ctx, `
			DELETE FROM law_chunk_terms
			WHERE chunk_id IN (SELECT id FROM law_chunks WHERE batch_id = $1)
		`, batchID); err != nil {
			return fmt.Errorf("failed to delete batch terms: %w", err)
		}
		if _, err := exec.Exec(ctx, `DELETE FROM law_chunks WHERE batch_id = $1`, batchID); err != nil {
			return fmt.Errorf("failed to delete batch chunks: %w", err)
		}
		return nil
	})
}

// SearchDense returns the limit nearest chunks by cosine distance within one
// country's collection.
func (r *vectorIndexRepository) SearchDense(ctx context.Context, vector []float32, country string, limit int) ([]domain.SearchHit, error) {
	query := `
		SELECT ` + chunkColumns + `,
			1 - (embedding <=> $1) AS score
		FROM law_chunks
		WHERE country = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, pgvector.NewVector(vector), country, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query dense search: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// SearchSparse scores chunks by the dot product of their term weights with
// the query's, via the inverted term table.
func (r *vectorIndexRepository) SearchSparse(ctx context.Context, vector domain.SparseVector, country string, limit int) ([]domain.SearchHit, error) {
	terms, weights := vector.Terms()
	if len(terms) == 0 {
		return []domain.SearchHit{}, nil
	}
	termIDs := make([]int64, len(terms))
	for i, t := range terms {
		termIDs[i] = int64(t)
	}

	query := `
		SELECT c.id, c.batch_id, c.country, c.law_name, c.law_name_en, c.law_type,
			c.article_number, c.chapter, c.page_number, c.part, c.total_parts,
			c.display_text, c.search_text, c.embedding, c.created_at,
			SUM(t.weight * q.weight)::real AS score
		FROM law_chunk_terms t
		JOIN unnest($1::bigint[], $2::real[]) AS q(term_id, weight)
			ON q.term_id = t.term_id
		JOIN law_chunks c ON c.id = t.chunk_id
		WHERE c.country = $3
		GROUP BY c.id
		ORDER BY score DESC
		LIMIT $4
	`
	rows, err := r.getExecutor(ctx).Query(ctx, query, termIDs, weights, country, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sparse search: %w", err)
	}
	defer rows.Close()

	return scanHits(rows)
}

// ResetCountry deletes a country's chunks under an advisory lock so two
// concurrent resets for the same country serialize at the database too.
func (r *vectorIndexRepository) ResetCountry(ctx context.Context, country string) error {
	return runInTx(ctx, r.pool, func(ctx context.Context) error {
		exec := r.getExecutor(ctx)
		if _, err := exec.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, country); err != nil {
			return fmt.Errorf("failed to acquire country lock: %w", err)
		}
		if _, err := exec.Exec(ctx, `
			DELETE FROM law_chunk_terms
			WHERE chunk_id IN (SELECT id FROM law_chunks WHERE country = $1)
		`, country); err != nil {
			return fmt.Errorf("failed to delete country terms: %w", err)
		}
		if _, err := exec.Exec(ctx, `DELETE FROM law_chunks WHERE country = $1`, country); err != nil {
			return fmt.Errorf("failed to delete country chunks: %w", err)
		}
		return nil
	})
}

// DeleteCountry removes a country's collection entirely. The storage layout
// keys everything by the country column, so this is the same operation as a
// reset.
func (r *vectorIndexRepository) DeleteCountry(ctx context.Context, country string) error {
	return r.ResetCountry(ctx, country)
}

func scanHits(rows pgx.Rows) ([]domain.SearchHit, error) {
	var hits []domain.SearchHit
	for rows.Next() {
		var (
			hit       domain.SearchHit
			embedding pgvector.Vector
		)
		if err := rows.Scan(
			&hit.Chunk.ID, &hit.Chunk.BatchID, &hit.Chunk.Country,
			&hit.Chunk.LawName, &hit.Chunk.LawNameEn, &hit.Chunk.LawType,
			&hit.Chunk.ArticleNumber, &hit.Chunk.Chapter, &hit.Chunk.PageNumber,
			&hit.Chunk.Part, &hit.Chunk.TotalParts,
			&hit.Chunk.DisplayText, &hit.Chunk.SearchText,
			&embedding, &hit.Chunk.CreatedAt,
			&hit.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan search hit: %w", err)
		}
		hit.Chunk.Dense = embedding.Slice()
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return hits, nil
}
