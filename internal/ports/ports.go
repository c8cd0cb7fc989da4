package ports

import (
	"context"
	"time"

	"JobMatcher/internal/domain"
)

// JobSource pulls raw postings from one external job board. Implementations
// skip individual listings without a usable URL and report whole-source
// failures through the returned error.
type JobSource interface {
	Name() string
	Fetch(ctx context.Context) ([]domain.RawRecord, error)
}

// JobRepository persists canonical jobs, deduplicated on URL.
type JobRepository interface {
	// Setup creates the jobs table if absent; safe to call repeatedly.
	Setup(ctx context.Context) error
	// Upsert inserts or updates by URL and returns the row id. Repeated
	// calls with identical input never create a second row.
	Upsert(ctx context.Context, job domain.Job) (int64, error)
	// ListMissingEmbeddings returns jobs with no embedding row, a stale
	// model version, or a content hash differing from the last-embedded one.
	ListMissingEmbeddings(ctx context.Context, modelVersion string) ([]domain.Job, error)
	// GetByIDs loads full jobs for the given ids.
	GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Job, error)
}

// VectorIndex stores one embedding per job and answers cosine-similarity
// queries.
type VectorIndex interface {
	// Setup creates vector tables/indexes if absent; idempotent.
	Setup(ctx context.Context) error
	// Put upserts the embedding keyed by job id.
	Put(ctx context.Context, emb domain.JobEmbedding) error
	// Query returns up to k neighbors ordered by descending cosine
	// similarity, ties broken by ascending job id. A query vector whose
	// length differs from the index dimensionality yields a
	// DimensionMismatchError.
	Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error)
}

// Embedder converts texts to fixed-length vectors. Output order matches
// input order and batch splitting never changes the vectors.
type Embedder interface {
	ModelVersion() string
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// SkillExtractor calls the hosted model that pulls a skill set out of CV
// text. Failures surface as RemoteServiceError.
type SkillExtractor interface {
	ExtractSkills(ctx context.Context, text string) ([]string, error)
}

// TextExtractor turns an uploaded document into plain text. Failures
// surface as ExtractionError and callers treat them as "no skills".
type TextExtractor interface {
	ExtractText(ctx context.Context, file []byte) (string, error)
}

// Notifier publishes run summaries to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
