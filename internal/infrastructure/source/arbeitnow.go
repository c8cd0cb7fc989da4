package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"JobMatcher/internal/domain"
	"JobMatcher/internal/scraper"
)

// ArbeitnowScraper consumes the Arbeitnow job-board JSON API.
type ArbeitnowScraper struct {
	client *http.Client
}

var _ scraper.Scraper = (*ArbeitnowScraper)(nil)

// NewArbeitnowScraper wires an HTTP client; nil falls back to a default one.
func NewArbeitnowScraper(client *http.Client) *ArbeitnowScraper {
	if client == nil {
		client = defaultClient()
	}
	return &ArbeitnowScraper{client: client}
}

// Name identifies the strategy inside the registry.
func (s *ArbeitnowScraper) Name() string {
	return "arbeitnow"
}

type arbeitnowResponse struct {
	Data []arbeitnowJob `json:"data"`
}

type arbeitnowJob struct {
	Title       string   `json:"title"`
	CompanyName string   `json:"company_name"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	URL         string   `json:"url"`
}

// Scrape fetches the API page and converts listings to raw records.
// Listings without a url are skipped.
func (s *ArbeitnowScraper) Scrape(ctx context.Context, req scraper.Request) ([]domain.RawRecord, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("no url configured for site %s", req.SiteName)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("site %s: %w", req.SiteName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("site %s: unexpected status %s", req.SiteName, resp.Status)
	}

	var payload arbeitnowResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("site %s: decode response: %w", req.SiteName, err)
	}

	records := make([]domain.RawRecord, 0, len(payload.Data))
	for _, job := range payload.Data {
		if strings.TrimSpace(job.URL) == "" {
			continue
		}

		description := job.Description
		if strings.TrimSpace(description) == "" {
			description = strings.Join(job.Tags, ", ")
		}

		records = append(records, domain.RawRecord{
			Title:       job.Title,
			Company:     job.CompanyName,
			Location:    job.Location,
			Description: description,
			URL:         job.URL,
		})
	}

	return records, nil
}
