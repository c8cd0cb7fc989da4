package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunState enumerates the orchestrator state machine. Done and Failed are
// terminal; Failed is reached only for orchestrator-fatal conditions, never
// for an individual source failure.
type RunState string

const (
	StateIdle        RunState = "idle"
	StateFetching    RunState = "fetching_sources"
	StateNormalizing RunState = "normalizing"
	StatePersisting  RunState = "persisting"
	StateEmbedding   RunState = "embedding"
	StateDone        RunState = "done"
	StateFailed      RunState = "failed"
)

// SourceCounts tracks per-source outcomes for one run.
type SourceCounts struct {
	Fetched    int
	Normalized int
	Upserted   int
	Skipped    int
}

// RunReport is the terminal-state summary of one orchestrator run.
type RunReport struct {
	RunID      uuid.UUID
	State      RunState
	StartedAt  time.Time
	FinishedAt time.Time

	Sources  map[string]SourceCounts
	Failures []SourceFailure

	Embedded         int
	EmbeddingSkipped int

	// Err is set only when State is StateFailed.
	Err error
}

// Totals sums the per-source counters.
func (r RunReport) Totals() SourceCounts {
	var t SourceCounts
	for _, c := range r.Sources {
		t.Fetched += c.Fetched
		t.Normalized += c.Normalized
		t.Upserted += c.Upserted
		t.Skipped += c.Skipped
	}
	return t
}
