package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
)

// fakeSource emits a fixed record set or a fixed error.
type fakeSource struct {
	name    string
	records []domain.RawRecord
	err     error
	block   bool // wait for ctx cancellation before returning
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

// fakeStore joins the job table and the embedding table the way the
// database does, implementing both JobRepository and VectorIndex.
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	byURL      map[string]int64
	jobs       map[int64]domain.Job
	embeddings map[int64]domain.JobEmbedding
	dim        int

	upsertErr error
	putErr    error
}

var (
	_ ports.JobRepository = (*fakeStore)(nil)
	_ ports.VectorIndex   = (*fakeStore)(nil)
)

func newFakeStore(dim int) *fakeStore {
	return &fakeStore{
		byURL:      map[string]int64{},
		jobs:       map[int64]domain.Job{},
		embeddings: map[int64]domain.JobEmbedding{},
		dim:        dim,
	}
}

func (s *fakeStore) Setup(ctx context.Context) error { return nil }

func (s *fakeStore) Upsert(ctx context.Context, job domain.Job) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upsertErr != nil {
		return 0, s.upsertErr
	}

	if id, ok := s.byURL[job.URL]; ok {
		job.ID = id
		s.jobs[id] = job
		return id, nil
	}

	s.nextID++
	job.ID = s.nextID
	s.byURL[job.URL] = job.ID
	s.jobs[job.ID] = job
	return job.ID, nil
}

func (s *fakeStore) ListMissingEmbeddings(ctx context.Context, modelVersion string) ([]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var missing []domain.Job
	for _, job := range s.jobs {
		emb, ok := s.embeddings[job.ID]
		if !ok || emb.ModelVersion != modelVersion || emb.ContentHash != job.ContentHash() {
			missing = append(missing, job)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].ID < missing[j].ID })
	return missing, nil
}

func (s *fakeStore) GetByIDs(ctx context.Context, ids []int64) (map[int64]domain.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := map[int64]domain.Job{}
	for _, id := range ids {
		if job, ok := s.jobs[id]; ok {
			result[id] = job
		}
	}
	return result, nil
}

func (s *fakeStore) Put(ctx context.Context, emb domain.JobEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.putErr != nil {
		return s.putErr
	}
	if len(emb.Vector) != s.dim {
		return &domain.DimensionMismatchError{Want: s.dim, Got: len(emb.Vector)}
	}
	s.embeddings[emb.JobID] = emb
	return nil
}

func (s *fakeStore) Query(ctx context.Context, vector []float32, k int) ([]domain.Neighbor, error) {
	return nil, nil
}

// stubEmbedder returns a constant-dimension vector per text.
type stubEmbedder struct {
	dim   int
	err   error
	calls int
}

func (e *stubEmbedder) ModelVersion() string { return "stub-v1" }

func (e *stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dim)
		vec[0] = float32(len(text))
		vectors[i] = vec
	}
	return vectors, nil
}

func record(url, title string) domain.RawRecord {
	return domain.RawRecord{Title: title, Company: "Co", Location: "Remote", URL: url}
}

func newTestPipeline(store *fakeStore, embedder ports.Embedder, sources ...ports.JobSource) *Pipeline {
	return NewPipeline(PipelineDeps{
		Sources:  sources,
		Jobs:     store,
		Index:    store,
		Embedder: embedder,
	})
}

func TestRunHappyPath(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3},
		&fakeSource{name: "remoteok", records: []domain.RawRecord{
			record("https://x/1", "Go Engineer"),
			record("https://x/2", "SRE"),
		}},
		&fakeSource{name: "arbeitnow", records: []domain.RawRecord{
			record("https://x/3", "Data Engineer"),
		}},
	)

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StateDone, report.State)
	require.Empty(t, report.Failures)

	require.Equal(t, domain.SourceCounts{Fetched: 2, Normalized: 2, Upserted: 2}, report.Sources["remoteok"])
	require.Equal(t, domain.SourceCounts{Fetched: 1, Normalized: 1, Upserted: 1}, report.Sources["arbeitnow"])

	require.Len(t, store.jobs, 3)
	require.Len(t, store.embeddings, 3)
	require.Equal(t, 3, report.Embedded)
}

func TestRunDeduplicatesAcrossSources(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3},
		&fakeSource{name: "siteA", records: []domain.RawRecord{record("http://x/1", "Title From A")}},
		&fakeSource{name: "siteB", records: []domain.RawRecord{record("http://x/1", "Title From B")}},
	)

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StateDone, report.State)

	// One global namespace: a single row, reflecting the later write.
	require.Len(t, store.jobs, 1)
	id := store.byURL["http://x/1"]
	require.Equal(t, "Title From B", store.jobs[id].Title)

	require.Equal(t, 1, report.Sources["siteA"].Upserted)
	require.Equal(t, 1, report.Sources["siteB"].Upserted)
}

func TestRunAccumulatesSourceFailures(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3},
		&fakeSource{name: "sitex", err: errors.New("boom")},
		&fakeSource{name: "healthy", records: []domain.RawRecord{record("https://x/9", "Fine Job")}},
	)

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StateDone, report.State)

	require.Len(t, report.Failures, 1)
	require.Equal(t, "sitex", report.Failures[0].Source)
	require.Equal(t, domain.SourceCounts{}, report.Sources["sitex"])
	require.Equal(t, 1, report.Sources["healthy"].Upserted)
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	src := &fakeSource{name: "remoteok", records: []domain.RawRecord{record("https://x/1", "Go Engineer")}}
	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3}, src)

	first, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, first.Embedded)

	second, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StateDone, second.State)

	require.Len(t, store.jobs, 1, "re-run must not duplicate rows")
	require.Equal(t, 0, second.Embedded, "unchanged content must not re-embed")
}

func TestRunReembedsOnContentChange(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	src := &fakeSource{name: "remoteok", records: []domain.RawRecord{
		{Title: "Go Engineer", Company: "Co", URL: "https://x/1", Description: "v1"},
	}}
	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3}, src)

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	src.records[0].Description = "v2 much longer description"
	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, report.Embedded, "edited description must refresh the vector")
	require.Len(t, store.jobs, 1)
}

func TestRunSkipsUnnormalizableRecords(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3},
		&fakeSource{name: "remoteok", records: []domain.RawRecord{
			record("https://x/1", "Kept"),
			{Title: "", URL: "https://x/2"},
		}},
	)

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.SourceCounts{Fetched: 2, Normalized: 1, Upserted: 1, Skipped: 1},
		report.Sources["remoteok"])
}

func TestRunFailsOnPersistenceError(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	store.upsertErr = &domain.PersistenceError{Op: "upsert job", Err: errors.New("db unreachable")}

	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3},
		&fakeSource{name: "remoteok", records: []domain.RawRecord{record("https://x/1", "Job")}},
	)

	report, err := pipeline.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, domain.StateFailed, report.State)

	var perr *domain.PersistenceError
	require.ErrorAs(t, err, &perr)
}

func TestRunSkipsJobsWhenEmbedderIsDown(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	embedder := &stubEmbedder{dim: 3, err: &domain.RemoteServiceError{Service: "embedding", Err: errors.New("down")}}

	pipeline := newTestPipeline(store, embedder,
		&fakeSource{name: "remoteok", records: []domain.RawRecord{
			record("https://x/1", "One"),
			record("https://x/2", "Two"),
		}},
	)

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err, "embedding outage is recoverable, not run-fatal")
	require.Equal(t, domain.StateDone, report.State)
	require.Equal(t, 0, report.Embedded)
	require.Equal(t, 2, report.EmbeddingSkipped)

	// Jobs stay in the missing set for the next run.
	missing, listErr := store.ListMissingEmbeddings(context.Background(), embedder.ModelVersion())
	require.NoError(t, listErr)
	require.Len(t, missing, 2)
}

func TestRunFailsOnDimensionMismatch(t *testing.T) {
	t.Parallel()

	store := newFakeStore(2) // index dimensioned differently from embedder
	pipeline := newTestPipeline(store, &stubEmbedder{dim: 3},
		&fakeSource{name: "remoteok", records: []domain.RawRecord{record("https://x/1", "Job")}},
	)

	report, err := pipeline.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, domain.StateFailed, report.State)

	var mismatch *domain.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
}

func TestRunDeadlineReportsTimedOutSources(t *testing.T) {
	t.Parallel()

	store := newFakeStore(3)
	pipeline := NewPipeline(PipelineDeps{
		Sources: []ports.JobSource{
			&fakeSource{name: "slow", block: true},
			&fakeSource{name: "fast", records: []domain.RawRecord{record("https://x/1", "Quick Job")}},
		},
		Jobs:       store,
		Index:      store,
		Embedder:   &stubEmbedder{dim: 3},
		RunTimeout: 50 * time.Millisecond,
	})

	report, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, domain.StateDone, report.State)

	require.Len(t, report.Failures, 1)
	require.Equal(t, "slow", report.Failures[0].Source)
	require.ErrorIs(t, report.Failures[0].Err, context.DeadlineExceeded)
	require.Equal(t, 1, report.Sources["fast"].Upserted)
}

func TestRunBoundsSourceConcurrency(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	inFlight, peak := 0, 0

	mkSource := func(i int) ports.JobSource {
		return &trackingSource{
			name: fmt.Sprintf("s%d", i),
			onFetch: func() {
				mu.Lock()
				inFlight++
				if inFlight > peak {
					peak = inFlight
				}
				mu.Unlock()
				time.Sleep(10 * time.Millisecond)
				mu.Lock()
				inFlight--
				mu.Unlock()
			},
		}
	}

	store := newFakeStore(3)
	sources := make([]ports.JobSource, 6)
	for i := range sources {
		sources[i] = mkSource(i)
	}

	pipeline := NewPipeline(PipelineDeps{
		Sources:              sources,
		Jobs:                 store,
		Index:                store,
		Embedder:             &stubEmbedder{dim: 3},
		MaxConcurrentSources: 2,
	})

	_, err := pipeline.Run(context.Background())
	require.NoError(t, err)
	require.LessOrEqual(t, peak, 2, "worker bound exceeded")
}

type trackingSource struct {
	name    string
	onFetch func()
}

func (s *trackingSource) Name() string { return s.name }

func (s *trackingSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	s.onFetch()
	return nil, nil
}
