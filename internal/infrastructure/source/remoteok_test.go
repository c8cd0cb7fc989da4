package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"JobMatcher/internal/scraper"
)

func TestRemoteOKScrape(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`
		<table>
		  <tr class="job">
		    <td><a class="preventLink" href="/remote-jobs/100-go-engineer"></a>
		      <h2>Go Engineer</h2><h3>Acme</h3><div class="location">Worldwide</div></td>
		  </tr>
		  <tr class="job">
		    <td><h2>No Link Job</h2><h3>Ghost Co</h3></td>
		  </tr>
		  <tr class="job">
		    <td><a class="preventLink" href="/remote-jobs/101-rust-dev"></a>
		      <h2>Rust Dev</h2><h3>Oxide</h3></td>
		  </tr>
		</table>`))
	}))
	defer server.Close()

	sc := NewRemoteOKScraper(server.Client())
	records, err := sc.Scrape(context.Background(), scraper.Request{
		SiteName: "remoteok",
		URL:      server.URL + "/remote-dev-jobs",
	})
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("expected 2 records (row without link skipped), got %d", len(records))
	}

	first := records[0]
	if first.Title != "Go Engineer" {
		t.Fatalf("unexpected title: %q", first.Title)
	}
	if first.Company != "Acme" {
		t.Fatalf("unexpected company: %q", first.Company)
	}
	if first.Location != "Worldwide" {
		t.Fatalf("unexpected location: %q", first.Location)
	}
	if first.URL != server.URL+"/remote-jobs/100-go-engineer" {
		t.Fatalf("unexpected url: %q", first.URL)
	}

	if records[1].Location != "Remote" {
		t.Fatalf("expected location fallback Remote, got %q", records[1].Location)
	}
}

func TestRemoteOKScrapeReportsHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	sc := NewRemoteOKScraper(server.Client())
	_, err := sc.Scrape(context.Background(), scraper.Request{SiteName: "remoteok", URL: server.URL})
	if err == nil {
		t.Fatal("expected an error for 403 response")
	}
}
