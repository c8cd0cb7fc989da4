package storage

import (
	"context"
	"math"
	"sort"
	"sync"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
)

// MemoryVectorIndex is a process-local VectorIndex. It backs the DSN-less
// development mode and the matcher tests; ranking semantics match the
// Postgres index exactly.
type MemoryVectorIndex struct {
	mu   sync.RWMutex
	dim  int
	rows map[int64]domain.JobEmbedding
}

var _ ports.VectorIndex = (*MemoryVectorIndex)(nil)

// NewMemoryVectorIndex builds an index with a fixed dimensionality. A dim
// of 0 adopts the length of the first stored vector.
func NewMemoryVectorIndex(dim int) *MemoryVectorIndex {
	return &MemoryVectorIndex{dim: dim, rows: map[int64]domain.JobEmbedding{}}
}

// Setup is a no-op; the index lives in memory.
func (x *MemoryVectorIndex) Setup(ctx context.Context) error { return nil }

// Put upserts the embedding keyed by job id.
func (x *MemoryVectorIndex) Put(ctx context.Context, emb domain.JobEmbedding) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.dim == 0 {
		x.dim = len(emb.Vector)
	}
	if len(emb.Vector) != x.dim {
		return &domain.DimensionMismatchError{Want: x.dim, Got: len(emb.Vector)}
	}

	x.rows[emb.JobID] = emb
	return nil
}

// Query ranks all stored vectors by cosine similarity against the query
// vector, ties broken by ascending job id.
func (x *MemoryVectorIndex) Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.rows) == 0 || k <= 0 {
		return nil, nil
	}
	if len(vector) != x.dim {
		return nil, &domain.DimensionMismatchError{Want: x.dim, Got: len(vector)}
	}

	neighbors := make([]domain.Neighbor, 0, len(x.rows))
	for id, emb := range x.rows {
		neighbors = append(neighbors, domain.Neighbor{
			JobID: id,
			Score: cosineSimilarity(vector, emb.Vector),
		})
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].JobID < neighbors[j].JobID
	})

	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}

	return neighbors, nil
}

func (x *MemoryVectorIndex) lookup(jobID int64) (domain.JobEmbedding, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	emb, ok := x.rows[jobID]
	return emb, ok
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MemoryJobs is a process-local JobRepository paired with a
// MemoryVectorIndex, which stands in for the embedding table during
// staleness checks. It serves the DSN-less development mode.
type MemoryJobs struct {
	mu     sync.Mutex
	nextID int64
	byURL  map[string]int64
	rows   map[int64]domain.Job
	index  *MemoryVectorIndex
}

var _ ports.JobRepository = (*MemoryJobs)(nil)

// NewMemoryJobs builds an empty repository joined to the given index.
func NewMemoryJobs(index *MemoryVectorIndex) *MemoryJobs {
	return &MemoryJobs{
		byURL: map[string]int64{},
		rows:  map[int64]domain.Job{},
		index: index,
	}
}

// Setup is a no-op; the repository lives in memory.
func (r *MemoryJobs) Setup(ctx context.Context) error { return nil }

// Upsert inserts the job or, when the url is already known, replaces the
// stored row under the existing id.
func (r *MemoryJobs) Upsert(ctx context.Context, job domain.Job) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byURL[job.URL]; ok {
		job.ID = id
		r.rows[id] = job
		return id, nil
	}

	r.nextID++
	job.ID = r.nextID
	r.byURL[job.URL] = job.ID
	r.rows[job.ID] = job
	return job.ID, nil
}

// ListMissingEmbeddings returns jobs whose vector is absent, built by a
// different model version, or stale against the current content hash.
func (r *MemoryJobs) ListMissingEmbeddings(ctx context.Context, modelVersion string) ([]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var missing []domain.Job
	for _, job := range r.rows {
		emb, ok := r.index.lookup(job.ID)
		if !ok || emb.ModelVersion != modelVersion || emb.ContentHash != job.ContentHash() {
			missing = append(missing, job)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].ID < missing[j].ID })
	return missing, nil
}

// GetByIDs loads the requested jobs; unknown ids are silently absent.
func (r *MemoryJobs) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make(map[int64]domain.Job, len(ids))
	for _, id := range ids {
		if job, ok := r.rows[id]; ok {
			result[id] = job
		}
	}
	return result, nil
}
