// Package search implements the external search provider boundary. A
// provider turns a free-text query into (source identifier, text) results;
// providers that only return URLs leave Text empty and rely on the caller
// to fetch the page.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/winnowlabs/winnow/internal/model"
)

// Result is a single search hit
type Result struct {
	URL        string
	Title      string
	Snippet    string
	Text       string // Empty when the page still needs fetching
	Provenance model.Provenance
}

// Provider executes a query against one external search backend
type Provider interface {
	Name() string
	Search(ctx context.Context, query string) ([]Result, error)
}

// NewProviders builds the configured provider list, in fanout order.
func NewProviders(cfg model.SearchConfig) ([]Provider, error) {
	var providers []Provider
	for _, name := range cfg.Providers {
		switch strings.ToLower(name) {
		case "duckduckgo", "ddg":
			providers = append(providers, NewDuckDuckGo())
		case "findzebra":
			providers = append(providers, NewFindZebra(cfg.FindZebraKey))
		case "pubmed":
			providers = append(providers, NewPubMed())
		default:
			return nil, fmt.Errorf("unknown search provider: %s (supported: duckduckgo, findzebra, pubmed)", name)
		}
	}
	return providers, nil
}

// NormalizedDomain reduces a URL to its scheme+host prefix for domain-level
// deduplication of search results.
func NormalizedDomain(rawURL string) string {
	parts := strings.SplitN(rawURL, "/", 4)
	if len(parts) < 3 {
		return rawURL
	}
	return strings.ToLower(strings.Join(parts[:3], "/"))
}
