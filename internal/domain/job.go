package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const embedDescriptionLimit = 2000

// RawRecord is the source-specific shape produced by a job board adapter
// before normalization. Fields other than URL may be empty.
type RawRecord struct {
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
}

// Job is the canonical posting persisted to the jobs table. URL is the sole
// identity key: two records with the same URL are the same Job regardless of
// which source produced them.
type Job struct {
	ID          int64
	Source      string
	Title       string
	Company     string
	Location    string
	Description string
	URL         string
	ScrapedAt   time.Time
}

// EmbedText builds the canonical text representation fed to the embedding
// model. Jobs without a description fall back to a short title/company line
// so they still receive a usable vector.
func (j Job) EmbedText() string {
	desc := strings.TrimSpace(j.Description)
	if desc == "" {
		desc = fmt.Sprintf("%s at %s", j.Title, j.Company)
		if j.Location != "" {
			desc += fmt.Sprintf(" in %s", j.Location)
		}
	} else if len([]rune(desc)) > embedDescriptionLimit {
		desc = string([]rune(desc)[:embedDescriptionLimit])
	}

	location := j.Location
	if location == "" {
		location = "Remote"
	}

	return fmt.Sprintf("Job Title: %s\nCompany: %s\nLocation: %s\nDescription: %s",
		j.Title, j.Company, location, desc)
}

// ContentHash fingerprints the embed text. The vector index stores the hash
// alongside each vector so edits to any embedded field mark the embedding
// stale instead of leaving it silently outdated.
func (j Job) ContentHash() string {
	sum := sha256.Sum256([]byte(j.EmbedText()))
	return hex.EncodeToString(sum[:])
}

// JobEmbedding is the derived vector artifact, one per job.
type JobEmbedding struct {
	JobID        int64
	Vector       []float32
	ModelVersion string
	ContentHash  string
}

// Neighbor is a single nearest-neighbor hit from the vector index.
type Neighbor struct {
	JobID int64
	Score float64
}

// Match pairs a full Job with its similarity score for a skill query.
type Match struct {
	Job
	Score float64
}
