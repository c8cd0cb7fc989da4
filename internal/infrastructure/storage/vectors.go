package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
)

// PostgresVectorIndex stores one pgvector embedding per job and answers
// cosine-similarity queries through the <=> operator.
type PostgresVectorIndex struct {
	db  *sql.DB
	dim int
}

var _ ports.VectorIndex = (*PostgresVectorIndex)(nil)

// NewPostgresVectorIndex binds the index to a fixed dimensionality; the
// dimension is part of the table definition and holds for the lifetime of
// the index.
func NewPostgresVectorIndex(db *sql.DB, dim int) *PostgresVectorIndex {
	return &PostgresVectorIndex{db: db, dim: dim}
}

// Setup enables the pgvector extension and creates the embeddings table and
// its cosine index. All statements are IF NOT EXISTS, so repeated calls are
// harmless.
func (x *PostgresVectorIndex) Setup(ctx context.Context) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS job_embeddings (
            job_id BIGINT PRIMARY KEY REFERENCES jobs(id) ON DELETE CASCADE,
            model_version TEXT NOT NULL,
            content_hash TEXT NOT NULL,
            embedding vector(%d) NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`, x.dim),
		`CREATE INDEX IF NOT EXISTS job_embeddings_embedding_idx
            ON job_embeddings USING ivfflat (embedding vector_cosine_ops)
            WITH (lists = 100)`,
	}

	for _, stmt := range statements {
		if _, err := x.db.ExecContext(ctx, stmt); err != nil {
			return &domain.PersistenceError{Op: "setup vector index", Err: err}
		}
	}

	return nil
}

// Put upserts the embedding keyed by job id. A vector of the wrong length
// is rejected before touching the database.
func (x *PostgresVectorIndex) Put(ctx context.Context, emb domain.JobEmbedding) error {
	if len(emb.Vector) != x.dim {
		return &domain.DimensionMismatchError{Want: x.dim, Got: len(emb.Vector)}
	}

	_, err := x.db.ExecContext(ctx,
		`INSERT INTO job_embeddings (job_id, model_version, content_hash, embedding)
         VALUES ($1, $2, $3, $4)
         ON CONFLICT (job_id) DO UPDATE SET
             model_version = EXCLUDED.model_version,
             content_hash = EXCLUDED.content_hash,
             embedding = EXCLUDED.embedding,
             created_at = NOW()`,
		emb.JobID, emb.ModelVersion, emb.ContentHash, pgvector.NewVector(emb.Vector),
	)
	if err != nil {
		return &domain.PersistenceError{Op: "put embedding", Err: err}
	}

	return nil
}

// Query returns up to k neighbors by descending cosine similarity, ties
// broken by ascending job id. The secondary ORDER BY keeps rankings
// reproducible when distances collide.
func (x *PostgresVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	if len(vector) != x.dim {
		return nil, &domain.DimensionMismatchError{Want: x.dim, Got: len(vector)}
	}
	if k <= 0 {
		return nil, nil
	}

	rows, err := x.db.QueryContext(ctx,
		`SELECT job_id, 1 - (embedding <=> $1) AS score
         FROM job_embeddings
         ORDER BY embedding <=> $1 ASC, job_id ASC
         LIMIT $2`,
		pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "query neighbors", Err: err}
	}
	defer rows.Close()

	var neighbors []domain.Neighbor
	for rows.Next() {
		var n domain.Neighbor
		if err := rows.Scan(&n.JobID, &n.Score); err != nil {
			return nil, &domain.PersistenceError{Op: "scan neighbor", Err: err}
		}
		neighbors = append(neighbors, n)
	}

	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "neighbor rows", Err: err}
	}

	return neighbors, nil
}
