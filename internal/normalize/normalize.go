// Package normalize maps source-specific raw records into canonical jobs.
package normalize

import (
	"strings"
	"time"

	"JobMatcher/internal/domain"
)

// Normalize converts a raw record into a canonical Job, or nil when the
// record is unusable (missing title or url). Whitespace is trimmed and
// missing optional fields become empty strings. The scrape timestamp is
// supplied by the caller so the function stays deterministic.
func Normalize(raw domain.RawRecord, source string, scrapedAt time.Time) *domain.Job {
	title := strings.TrimSpace(raw.Title)
	url := strings.TrimSpace(raw.URL)
	if title == "" || url == "" {
		return nil
	}

	return &domain.Job{
		Source:      source,
		Title:       title,
		Company:     strings.TrimSpace(raw.Company),
		Location:    strings.TrimSpace(raw.Location),
		Description: strings.TrimSpace(raw.Description),
		URL:         url,
		ScrapedAt:   scrapedAt,
	}
}
