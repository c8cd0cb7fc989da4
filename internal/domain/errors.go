package domain

import "fmt"

// SourceFailure records a whole-source fetch or parse failure. It is
// accumulated in the run report and never aborts the other sources.
type SourceFailure struct {
	Source string
	Err    error
}

func (f SourceFailure) Error() string {
	return fmt.Sprintf("source %s: %v", f.Source, f.Err)
}

func (f SourceFailure) Unwrap() error { return f.Err }

// PersistenceError marks a job-store failure. The orchestrator treats it as
// fatal for the current run; upserts already committed remain valid.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// EmbeddingError covers a failed embedding attempt for a batch of jobs.
// Affected jobs stay in the missing-embedding set and are retried next run.
type EmbeddingError struct {
	Jobs int
	Err  error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %d jobs: %v", e.Jobs, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// DimensionMismatchError signals a vector whose length differs from the
// index dimensionality. It usually means the embedding model changed without
// a full re-embed, so it is surfaced distinctly rather than folded into a
// generic failure.
type DimensionMismatchError struct {
	Want int
	Got  int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: index holds %d-dimensional vectors, got %d", e.Want, e.Got)
}

// RemoteServiceError wraps failures of hosted-model calls (skill extraction,
// embedding backend). Callers surface it as a user-visible retry hint
// instead of retry-storming.
type RemoteServiceError struct {
	Service string
	Err     error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("remote service %s: %v", e.Service, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// ExtractionError wraps PDF text-extraction failures. Callers treat it as
// "no skills", never as a crash.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("text extraction: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
