package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/normalize"
	"JobMatcher/internal/ports"
)

const defaultMaxConcurrentSources = 4

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Sources  []ports.JobSource
	Jobs     ports.JobRepository
	Index    ports.VectorIndex
	Embedder ports.Embedder
	Notifier ports.Notifier
	Logger   *slog.Logger

	// MaxConcurrentSources bounds parallel fetches; a single source is
	// never invoked concurrently with itself within one run.
	MaxConcurrentSources int
	// RunTimeout abandons still-running sources after the deadline and
	// reports them as timed-out failures. Zero disables the deadline.
	RunTimeout time.Duration
	// Clock supplies scrape timestamps; defaults to time.Now.
	Clock func() time.Time
}

// Pipeline implements the scrape → normalize → upsert → embed workflow.
// A Pipeline is safe to run repeatedly; every run starts from Idle.
type Pipeline struct {
	sources     []ports.JobSource
	jobs        ports.JobRepository
	index       ports.VectorIndex
	embedder    ports.Embedder
	notifier    ports.Notifier
	logger      *slog.Logger
	maxInFlight int
	runTimeout  time.Duration
	clock       func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	maxInFlight := deps.MaxConcurrentSources
	if maxInFlight <= 0 {
		maxInFlight = defaultMaxConcurrentSources
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Pipeline{
		sources:     deps.Sources,
		jobs:        deps.Jobs,
		index:       deps.Index,
		embedder:    deps.Embedder,
		notifier:    deps.Notifier,
		logger:      deps.Logger,
		maxInFlight: maxInFlight,
		runTimeout:  deps.RunTimeout,
		clock:       clock,
	}
}

type fetchResult struct {
	records []domain.RawRecord
	err     error
}

// Run executes one full pipeline pass and returns its report. Source
// failures are accumulated in the report; the returned error is non-nil
// only for orchestrator-fatal conditions, in which case the report state is
// Failed.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	report := domain.RunReport{
		RunID:     uuid.New(),
		State:     domain.StateIdle,
		StartedAt: p.clock(),
		Sources:   map[string]domain.SourceCounts{},
	}

	// The deadline covers fetching only: a slow board is abandoned and
	// reported, while persistence and embedding of everything already
	// fetched still complete.
	fetchCtx := ctx
	if p.runTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.runTimeout)
		defer cancel()
	}

	report.State = domain.StateFetching
	results := p.fetchAll(fetchCtx)

	report.State = domain.StateNormalizing
	jobsBySource := make([][]domain.Job, len(p.sources))
	for i, src := range p.sources {
		name := src.Name()
		res := results[i]

		if res.err != nil {
			report.Failures = append(report.Failures, domain.SourceFailure{Source: name, Err: res.err})
			report.Sources[name] = domain.SourceCounts{}
			p.log("source failed", "source", name, "error", res.err)
			continue
		}

		counts := domain.SourceCounts{Fetched: len(res.records)}
		scrapedAt := p.clock()
		for _, raw := range res.records {
			job := normalize.Normalize(raw, name, scrapedAt)
			if job == nil {
				counts.Skipped++
				continue
			}
			counts.Normalized++
			jobsBySource[i] = append(jobsBySource[i], *job)
		}
		report.Sources[name] = counts
	}

	report.State = domain.StatePersisting
	for i, src := range p.sources {
		name := src.Name()
		counts := report.Sources[name]
		for _, job := range jobsBySource[i] {
			if _, err := p.jobs.Upsert(ctx, job); err != nil {
				return p.fail(report, fmt.Errorf("upsert %s: %w", job.URL, err))
			}
			counts.Upserted++
		}
		report.Sources[name] = counts
	}

	report.State = domain.StateEmbedding
	if err := p.embedMissing(ctx, &report); err != nil {
		return p.fail(report, err)
	}

	report.State = domain.StateDone
	report.FinishedAt = p.clock()
	p.log("run done",
		"run_id", report.RunID,
		"totals", fmt.Sprintf("%+v", report.Totals()),
		"source_failures", len(report.Failures),
		"embedded", report.Embedded)

	p.notify(ctx, report)

	return report, nil
}

// fetchAll runs every source under the concurrency bound and collects one
// result per source, indexed like p.sources.
func (p *Pipeline) fetchAll(ctx context.Context) []fetchResult {
	results := make([]fetchResult, len(p.sources))
	sem := make(chan struct{}, p.maxInFlight)
	var wg sync.WaitGroup

	for i, src := range p.sources {
		wg.Add(1)
		go func(i int, src ports.JobSource) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				results[i] = fetchResult{err: fmt.Errorf("timed out waiting for fetch slot: %w", ctx.Err())}
				return
			}
			defer func() { <-sem }()

			records, err := src.Fetch(ctx)
			results[i] = fetchResult{records: records, err: err}
		}(i, src)
	}

	wg.Wait()
	return results
}

// embedMissing embeds every job the store reports as lacking a current
// vector. Per-job embedding failures are skipped and retried next run; a
// dimension mismatch or store failure is fatal.
func (p *Pipeline) embedMissing(ctx context.Context, report *domain.RunReport) error {
	missing, err := p.jobs.ListMissingEmbeddings(ctx, p.embedder.ModelVersion())
	if err != nil {
		return fmt.Errorf("list missing embeddings: %w", err)
	}
	if len(missing) == 0 {
		return nil
	}

	texts := make([]string, len(missing))
	for i, job := range missing {
		texts[i] = job.EmbedText()
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		var mismatch *domain.DimensionMismatchError
		if errors.As(err, &mismatch) {
			return err
		}
		// Fall back to one-by-one so a poison text cannot starve the
		// whole batch.
		vectors = p.embedIndividually(ctx, texts, report)
	}
	if len(vectors) != len(missing) {
		return &domain.EmbeddingError{
			Jobs: len(missing),
			Err:  fmt.Errorf("embedder returned %d vectors for %d jobs", len(vectors), len(missing)),
		}
	}

	for i, job := range missing {
		if vectors[i] == nil {
			continue
		}
		err := p.index.Put(ctx, domain.JobEmbedding{
			JobID:        job.ID,
			Vector:       vectors[i],
			ModelVersion: p.embedder.ModelVersion(),
			ContentHash:  job.ContentHash(),
		})
		if err != nil {
			var mismatch *domain.DimensionMismatchError
			if errors.As(err, &mismatch) {
				return err
			}
			report.EmbeddingSkipped++
			p.log("store embedding failed", "job_id", job.ID, "error", err)
			continue
		}
		report.Embedded++
	}

	return nil
}

func (p *Pipeline) embedIndividually(ctx context.Context, texts []string, report *domain.RunReport) [][]float32 {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		single, err := p.embedder.EmbedBatch(ctx, []string{text})
		if err != nil || len(single) != 1 {
			report.EmbeddingSkipped++
			p.log("embed job failed", "error", err)
			continue
		}
		vectors[i] = single[0]
	}
	return vectors
}

func (p *Pipeline) fail(report domain.RunReport, err error) (domain.RunReport, error) {
	report.State = domain.StateFailed
	report.Err = err
	report.FinishedAt = p.clock()
	p.log("run failed", "run_id", report.RunID, "error", err)
	return report, err
}

func (p *Pipeline) notify(ctx context.Context, report domain.RunReport) {
	if p.notifier == nil {
		return
	}

	totals := report.Totals()
	digest := fmt.Sprintf(
		"Job scrape %s\nfetched: %d\nupserted: %d\nskipped: %d\nembedded: %d\nsource failures: %d",
		report.RunID, totals.Fetched, totals.Upserted, totals.Skipped, report.Embedded, len(report.Failures))

	if err := p.notifier.PublishDigest(ctx, digest); err != nil {
		p.log("publish digest failed", "error", err)
	}
}

func (p *Pipeline) log(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}
