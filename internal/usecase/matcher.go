package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
)

// MatcherDeps wires the read path: embed a skill query, ask the vector
// index, join the hits back to full job rows.
type MatcherDeps struct {
	Jobs     ports.JobRepository
	Index    ports.VectorIndex
	Embedder ports.Embedder
	Logger   *slog.Logger

	// MinScore drops weak hits; zero keeps everything.
	MinScore float64
}

// Matcher answers "which stored jobs fit these skills". It only reads; the
// pipeline owns all writes.
type Matcher struct {
	jobs     ports.JobRepository
	index    ports.VectorIndex
	embedder ports.Embedder
	logger   *slog.Logger
	minScore float64
}

// NewMatcher constructs the matching engine.
func NewMatcher(deps MatcherDeps) *Matcher {
	return &Matcher{
		jobs:     deps.Jobs,
		index:    deps.Index,
		embedder: deps.Embedder,
		logger:   deps.Logger,
		minScore: deps.MinScore,
	}
}

// Match embeds the skill set and returns up to k jobs by descending
// similarity. An empty skill set or an empty index yields an empty result,
// never an error; both are ordinary states the caller renders as
// "no matches".
func (m *Matcher) Match(ctx context.Context, skills []string, k int) ([]domain.Match, error) {
	query := QueryText(skills)
	if query == "" || k <= 0 {
		return nil, nil
	}
	return m.matchText(ctx, query, k)
}

// MatchText matches free text (e.g. a pasted job wish) instead of a skill
// set.
func (m *Matcher) MatchText(ctx context.Context, text string, k int) ([]domain.Match, error) {
	text = strings.TrimSpace(text)
	if text == "" || k <= 0 {
		return nil, nil
	}
	return m.matchText(ctx, text, k)
}

func (m *Matcher) matchText(ctx context.Context, text string, k int) ([]domain.Match, error) {
	vectors, err := m.embedder.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	neighbors, err := m.index.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Score < m.minScore {
			continue
		}
		ids = append(ids, n.JobID)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	jobsByID, err := m.jobs.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load jobs: %w", err)
	}

	matches := make([]domain.Match, 0, len(ids))
	for _, n := range neighbors {
		job, ok := jobsByID[n.JobID]
		if !ok || n.Score < m.minScore {
			continue
		}
		matches = append(matches, domain.Match{Job: job, Score: n.Score})
	}

	if m.logger != nil {
		m.logger.Debug("match served", "hits", len(matches), "k", k)
	}

	return matches, nil
}

// QueryText builds the deterministic query representation of a skill set.
// Skills are trimmed, deduplicated, and sorted so the insertion order of
// the input never affects the embedding.
func QueryText(skills []string) string {
	seen := map[string]struct{}{}
	cleaned := make([]string, 0, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		if skill == "" {
			continue
		}
		if _, ok := seen[skill]; ok {
			continue
		}
		seen[skill] = struct{}{}
		cleaned = append(cleaned, skill)
	}
	if len(cleaned) == 0 {
		return ""
	}

	sort.Strings(cleaned)
	return "Professional skills: " + strings.Join(cleaned, ", ")
}
