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

// Navigation links share the /remote-jobs/ prefix with postings; their link
// text gives them away.
var wwrSkipTitles = []string{"remote jobs", "categories", "companies", "post a job", "log in", "sign up"}

// WeWorkRemotelyScraper walks the WeWorkRemotely listing page. Postings are
// anchors under /remote-jobs/ whose text carries title and company lines.
type WeWorkRemotelyScraper struct {
	client *http.Client
}

var _ scraper.Scraper = (*WeWorkRemotelyScraper)(nil)

// NewWeWorkRemotelyScraper wires an HTTP client; nil falls back to a default one.
func NewWeWorkRemotelyScraper(client *http.Client) *WeWorkRemotelyScraper {
	if client == nil {
		client = defaultClient()
	}
	return &WeWorkRemotelyScraper{client: client}
}

// Name identifies the strategy inside the registry.
func (s *WeWorkRemotelyScraper) Name() string {
	return "weworkremotely"
}

// Scrape extracts one raw record per posting anchor, deduplicating links
// within the page. Unusable anchors are skipped.
func (s *WeWorkRemotelyScraper) Scrape(ctx context.Context, req scraper.Request) ([]domain.RawRecord, error) {
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

	seen := map[string]struct{}{}
	var records []domain.RawRecord

	doc.Find("a[href]").Each(func(i int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		if !strings.HasPrefix(href, "/remote-jobs/") || strings.Contains(href, "/remote-jobs/search") {
			return
		}

		full := root + href
		if _, ok := seen[full]; ok {
			return
		}

		parts := splitLinkText(link.Text())
		if len(parts) < 2 {
			return
		}

		title, company := parts[0], parts[1]
		for _, skip := range wwrSkipTitles {
			if strings.Contains(strings.ToLower(title), skip) {
				return
			}
		}

		seen[full] = struct{}{}
		records = append(records, domain.RawRecord{
			Title:    title,
			Company:  company,
			Location: "Remote",
			URL:      full,
		})
	})

	return records, nil
}

func splitLinkText(text string) []string {
	var parts []string
	for _, part := range strings.Split(text, "\n") {
		part = strings.TrimSpace(part)
		if len(part) > 2 {
			parts = append(parts, part)
		}
	}
	return parts
}
