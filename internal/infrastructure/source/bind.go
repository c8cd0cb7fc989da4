package source

import (
	"context"
	"fmt"
	"log/slog"

	"JobMatcher/internal/config"
	"JobMatcher/internal/domain"
	"JobMatcher/internal/ports"
	"JobMatcher/internal/scraper"
)

// boundSource pairs one configured site with its resolved strategy, giving
// the pipeline a uniform per-source fetch handle.
type boundSource struct {
	name     string
	strategy scraper.Scraper
	request  scraper.Request
	logger   *slog.Logger
}

var _ ports.JobSource = (*boundSource)(nil)

func (b *boundSource) Name() string { return b.name }

func (b *boundSource) Fetch(ctx context.Context) ([]domain.RawRecord, error) {
	records, err := b.strategy.Scrape(ctx, b.request)
	if err != nil {
		return nil, err
	}
	if b.logger != nil {
		b.logger.Debug("site produced records", "site", b.name, "count", len(records))
	}
	return records, nil
}

// Bind resolves each configured site against the scraper registry and
// returns one JobSource per site. An unknown scraper name fails fast: it is
// a configuration defect, not a per-run source failure.
func Bind(reg *scraper.Registry, sites []config.SiteConfig, logger *slog.Logger) ([]ports.JobSource, error) {
	if reg == nil {
		return nil, fmt.Errorf("scraper registry is not configured")
	}

	sources := make([]ports.JobSource, 0, len(sites))
	for _, site := range sites {
		strategy, err := reg.Resolve(site.Scraper)
		if err != nil {
			return nil, fmt.Errorf("site %s: %w", site.Name, err)
		}

		sources = append(sources, &boundSource{
			name:     site.Name,
			strategy: strategy,
			request: scraper.Request{
				SiteName: site.Name,
				URL:      site.URL,
				Options:  site.Options,
			},
			logger: logger,
		})
	}

	return sources, nil
}
