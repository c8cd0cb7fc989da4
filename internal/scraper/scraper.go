package scraper

import (
	"context"
	"fmt"

	"JobMatcher/internal/domain"
)

// Request carries all parameters required to execute a scrape of one
// configured board.
type Request struct {
	SiteName string
	URL      string
	Options  map[string]string
}

// Scraper captures a single board strategy (RemoteOK, WeWorkRemotely, an
// API-backed board, etc.). Implementations skip listings without a usable
// URL; a returned error means the whole source failed.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context, req Request) ([]domain.RawRecord, error)
}

// Registry keeps a mapping from scraper names to their implementations.
type Registry struct {
	scrapers map[string]Scraper
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scrapers: map[string]Scraper{}}
}

// Register adds or replaces a scraper implementation.
func (r *Registry) Register(s Scraper) {
	if r.scrapers == nil {
		r.scrapers = map[string]Scraper{}
	}
	r.scrapers[s.Name()] = s
}

// Resolve returns a scraper by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scraper, error) {
	if s, ok := r.scrapers[name]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("scraper %s is not registered", name)
}
