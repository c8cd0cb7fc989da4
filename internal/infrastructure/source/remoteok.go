package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/scraper"
)

// RemoteOKScraper crawls the RemoteOK listing table. Each posting is a
// tr.job row with the detail link on a.preventLink.
type RemoteOKScraper struct {
	client *http.Client
}

var _ scraper.Scraper = (*RemoteOKScraper)(nil)

// NewRemoteOKScraper wires an HTTP client; nil falls back to a default one.
func NewRemoteOKScraper(client *http.Client) *RemoteOKScraper {
	if client == nil {
		client = defaultClient()
	}
	return &RemoteOKScraper{client: client}
}

// Name identifies the strategy inside the registry.
func (s *RemoteOKScraper) Name() string {
	return "remoteok"
}

// Scrape fetches the listing page and extracts one raw record per job row.
// Rows without a usable link are skipped, never errored.
func (s *RemoteOKScraper) Scrape(ctx context.Context, req scraper.Request) ([]domain.RawRecord, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no url configured for site %s", req.SiteName)
	}

	root, err := siteRoot(req.URL)
	if err != nil {
		return nil, err
	}

	doc, err := fetchDocument(ctx, s.client, req.URL)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", req.SiteName, err)
	}

	var records []domain.RawRecord
	doc.Find("tr.job").Each(func(i int, row *goquery.Selection) {
		href, ok := row.Find("a.preventLink").First().Attr("href")
		if !ok || href == "" {
			return
		}
		if !strings.HasPrefix(href, "http") {
			href = root + href
		}

		title := strings.TrimSpace(row.Find("h2").First().Text())
		company := strings.TrimSpace(row.Find("h3").First().Text())
		location := strings.TrimSpace(row.Find(".location").First().Text())
		if location == "" {
			location = "Remote"
		}

		records = append(records, domain.RawRecord{
			Title:    title,
			Company:  company,
			Location: location,
			URL:      href,
		})
	})

	return records, nil
}
