// Package storage provides the Postgres-backed job repository and vector
// index, plus an in-memory index used when no database is configured.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
)

const jobsSchema = `CREATE TABLE IF NOT EXISTS jobs (
    id BIGSERIAL PRIMARY KEY,
    source TEXT NOT NULL,
    job_title TEXT NOT NULL,
    company TEXT NOT NULL DEFAULT '',
    location TEXT NOT NULL DEFAULT '',
    description TEXT NOT NULL DEFAULT '',
    job_url TEXT NOT NULL UNIQUE,
    content_hash TEXT NOT NULL,
    scraped_at TIMESTAMPTZ NOT NULL
)`

var jobColumns = []string{"id", "source", "job_title", "company", "location", "description", "job_url", "scraped_at"}

// PostgresJobs persists canonical jobs deduplicated on job_url.
type PostgresJobs struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ ports.JobRepository = (*PostgresJobs)(nil)

// NewPostgresJobs wires a sql.DB implementation.
func NewPostgresJobs(db *sql.DB) *PostgresJobs {
	return &PostgresJobs{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Setup creates the jobs table when absent. Calling it on an existing
// schema changes nothing.
func (r *PostgresJobs) Setup(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, jobsSchema); err != nil {
		return &domain.PersistenceError{Op: "setup jobs", Err: err}
	}
	return nil
}

// Upsert inserts the job or, when a row with the same url exists, updates
// its mutable fields in place. Either way the row id is returned, so
// embeddings keyed on it stay valid.
func (r *PostgresJobs) Upsert(ctx context.Context, job domain.Job) (int64, error) {
	query, args, err := r.sb.Insert("jobs").
		Columns("source", "job_title", "company", "location", "description", "job_url", "content_hash", "scraped_at").
		Values(job.Source, job.Title, job.Company, job.Location, job.Description, job.URL, job.ContentHash(), job.ScrapedAt).
		Suffix(`ON CONFLICT (job_url) DO UPDATE SET
            source = EXCLUDED.source,
            job_title = EXCLUDED.job_title,
            company = EXCLUDED.company,
            location = EXCLUDED.location,
            description = EXCLUDED.description,
            content_hash = EXCLUDED.content_hash,
            scraped_at = EXCLUDED.scraped_at
        RETURNING id`).
		ToSql()
	if err != nil {
		return 0, &domain.PersistenceError{Op: "build upsert", Err: err}
	}

	var id int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, &domain.PersistenceError{Op: "upsert job", Err: err}
	}

	return id, nil
}

// ListMissingEmbeddings returns jobs whose embedding row is absent, was
// produced by a different model version, or no longer matches the job's
// content hash.
func (r *PostgresJobs) ListMissingEmbeddings(ctx context.Context, modelVersion string) ([]domain.Job, error) {
	query, args, err := r.sb.Select(
		"j.id", "j.source", "j.job_title", "j.company", "j.location", "j.description", "j.job_url", "j.scraped_at").
		From("jobs j").
		LeftJoin("job_embeddings je ON je.job_id = j.id").
		Where(sq.Or{
			sq.Expr("je.job_id IS NULL"),
			sq.Expr("je.model_version <> ?", modelVersion),
			sq.Expr("je.content_hash <> j.content_hash"),
		}).
		OrderBy("j.scraped_at DESC", "j.id ASC").
		ToSql()
	if err != nil {
		return nil, &domain.PersistenceError{Op: "build missing-embedding query", Err: err}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "query missing embeddings", Err: err}
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "scan missing embeddings", Err: err}
	}

	return jobs, nil
}

// GetByIDs loads full jobs for the given ids, keyed by id.
func (r *PostgresJobs) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Job, error) {
	result := make(map[int64]domain.Job, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := r.sb.Select(jobColumns...).
		From("jobs").
		Where(sq.Expr("id = ANY(?)", pq.Array(ids))).
		ToSql()
	if err != nil {
		return nil, &domain.PersistenceError{Op: "build jobs-by-id query", Err: err}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "query jobs by id", Err: err}
	}
	defer rows.Close()

	jobs, err := scanJobs(rows)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "scan jobs by id", Err: err}
	}

	for _, job := range jobs {
		result[job.ID] = job
	}

	return result, nil
}

func scanJobs(rows *sql.Rows) ([]domain.Job, error) {
	var jobs []domain.Job
	for rows.Next() {
		var job domain.Job
		if err := rows.Scan(
			&job.ID, &job.Source, &job.Title, &job.Company,
			&job.Location, &job.Description, &job.URL, &job.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return jobs, nil
}
