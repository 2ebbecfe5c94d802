// Package retrieve ties search, fetch, chunking, embedding and the cache
// together behind a single ranked-retrieval call.
package retrieve

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/winnowlabs/winnow/internal/cache"
	"github.com/winnowlabs/winnow/internal/chunk"
	"github.com/winnowlabs/winnow/internal/embed"
	"github.com/winnowlabs/winnow/internal/model"
	"github.com/winnowlabs/winnow/internal/rank"
	"github.com/winnowlabs/winnow/internal/search"
	"github.com/winnowlabs/winnow/internal/worker"
)

// PageFetcher downloads a URL and returns its visible text.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// Orchestrator answers retrieval requests cache-first: if the subject's
// namespace already holds embedded fragments, it ranks those; otherwise it
// fans out to the search providers, fetches and chunks the documents,
// embeds the fragments and persists them before ranking.
type Orchestrator struct {
	store        cache.Store
	embedder     embed.Embedder
	providers    []search.Provider
	fetcher      PageFetcher
	chunker      *chunk.Chunker
	topK         int
	maxResults   int
	maxChars     int
	fetchWorkers int
	verbose      bool
}

// NewOrchestrator creates an orchestrator wired from the given configuration.
func NewOrchestrator(cfg *model.Config, store cache.Store, embedder embed.Embedder, providers []search.Provider, fetcher PageFetcher) *Orchestrator {
	return &Orchestrator{
		store:        store,
		embedder:     embedder,
		providers:    providers,
		fetcher:      fetcher,
		chunker:      chunk.NewChunker(cfg.Engine.ChunkMin, cfg.Engine.ChunkMax),
		topK:         cfg.Engine.TopFragments,
		maxResults:   cfg.Search.MaxResults,
		maxChars:     cfg.Embedding.MaxChars,
		fetchWorkers: cfg.Concurrency.FetchWorkers,
		verbose:      cfg.Output.Verbose,
	}
}

// Retrieve returns fragments for the subject ranked by relevance to terms,
// excluding any source URL already present in excluded. Keywords, when
// supplied, are averaged into the ranking as a literal-overlap score.
// Provider and fetch failures degrade to an empty result; only the query
// embedding is allowed to fail hard, since nothing can be ranked without it.
func (o *Orchestrator) Retrieve(ctx context.Context, subject string, terms, keywords []string, excluded map[string]bool) ([]model.Fragment, error) {
	query := strings.TrimSpace(strings.Join(terms, " "))
	if query == "" {
		query = subject
	}

	cached, err := o.store.Load(subject)
	if err != nil {
		o.logf("cache load %q: %v", subject, err)
	}
	usable := filterExcluded(cached, excluded)
	if len(usable) > 0 {
		o.logf("cache hit for %q: %d usable fragments", subject, len(usable))
		return o.rankEntries(ctx, query, keywords, usable)
	}

	entries := o.gather(ctx, subject, query, excluded)
	if len(entries) == 0 {
		return nil, nil
	}
	return o.rankEntries(ctx, query, keywords, entries)
}

func filterExcluded(entries []cache.Entry, excluded map[string]bool) []cache.Entry {
	var out []cache.Entry
	for _, e := range entries {
		if !excluded[e.SourceURL] {
			out = append(out, e)
		}
	}
	return out
}

// rankEntries embeds the query, scores every entry against it and returns
// the top fragments in descending score order.
func (o *Orchestrator) rankEntries(ctx context.Context, query string, keywords []string, entries []cache.Entry) ([]model.Fragment, error) {
	queryVector, err := o.embedder.Embed(ctx, embed.Truncate(query, o.maxChars))
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	pool := make([][]float32, len(entries))
	contents := make([]string, len(entries))
	for i, e := range entries {
		pool[i] = e.Vector
		contents[i] = e.Content
	}

	scored := rank.RankWithKeywords(queryVector, pool, contents, keywords)
	if len(scored) > o.topK {
		scored = scored[:o.topK]
	}

	fragments := make([]model.Fragment, len(scored))
	for i, s := range scored {
		e := entries[s.Index]
		fragments[i] = model.Fragment{
			SourceURL:  e.SourceURL,
			Content:    e.Content,
			Provenance: e.Provenance,
		}
	}
	return fragments, nil
}

// gather runs the search providers, keeps at most maxResults sources after
// domain dedup, fetches any result that came without text, chunks and embeds
// the documents, and persists the entries. Every failure along the way drops
// that document rather than aborting the round.
func (o *Orchestrator) gather(ctx context.Context, subject, query string, excluded map[string]bool) []cache.Entry {
	var results []search.Result
	for _, p := range o.providers {
		found, err := p.Search(ctx, query)
		if err != nil {
			o.logf("search %s: %v", p.Name(), err)
			continue
		}
		o.logf("search %s: %d results", p.Name(), len(found))
		results = append(results, found...)
	}

	picked := dedupeByDomain(results, excluded)
	if o.maxResults > 0 && len(picked) > o.maxResults {
		picked = picked[:o.maxResults]
	}
	if len(picked) == 0 {
		return nil
	}

	docs := o.fetchDocuments(ctx, picked)

	var entries []cache.Entry
	for _, d := range docs {
		if d.Text == "" {
			continue
		}
		entries = append(entries, o.embedDocument(ctx, d)...)
	}
	if len(entries) == 0 {
		return nil
	}

	if err := o.store.Append(subject, entries); err != nil {
		o.logf("cache append %q: %v", subject, err)
	}
	return entries
}

// dedupeByDomain keeps the first result per normalized source domain and
// drops excluded or unparseable URLs.
func dedupeByDomain(results []search.Result, excluded map[string]bool) []search.Result {
	seen := make(map[string]bool)
	var out []search.Result
	for _, r := range results {
		if excluded[r.URL] {
			continue
		}
		domain := search.NormalizedDomain(r.URL)
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, r)
	}
	return out
}

// fetchDocuments fills in Text for results that arrived without it, with
// bounded parallelism across sources.
func (o *Orchestrator) fetchDocuments(ctx context.Context, results []search.Result) []model.Document {
	jobs := make([]worker.Job[model.Document], len(results))
	for i, r := range results {
		r := r
		jobs[i] = func(ctx context.Context) model.Document {
			doc := model.Document{URL: r.URL, Text: r.Text, Provenance: r.Provenance}
			if doc.Text != "" {
				return doc
			}
			text, err := o.fetcher.Fetch(ctx, r.URL)
			if err != nil {
				o.logf("fetch %s: %v", r.URL, err)
				return doc
			}
			doc.Text = text
			return doc
		}
	}
	return worker.NewPool[model.Document](o.fetchWorkers).Run(ctx, jobs)
}

// embedDocument chunks one document and returns validated cache entries
// with L2-normalized vectors. The entry index is the chunk's position
// within its document, so a re-retrieval of the same source overwrites
// rather than duplicates.
func (o *Orchestrator) embedDocument(ctx context.Context, doc model.Document) []cache.Entry {
	chunks := o.chunker.Split(doc.Text)
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = embed.Truncate(c, o.maxChars)
	}
	vectors, err := o.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		o.logf("embed %s: %v", doc.URL, err)
		return nil
	}

	var entries []cache.Entry
	for i, c := range chunks {
		if err := embed.Validate(vectors[i], o.embedder.Dimension()); err != nil {
			o.logf("embed %s chunk %d: %v", doc.URL, i, err)
			continue
		}
		entries = append(entries, cache.Entry{
			Record: cache.Record{
				Index:      i,
				SourceURL:  doc.URL,
				Content:    c,
				Provenance: doc.Provenance,
			},
			Vector: rank.Normalize(vectors[i]),
		})
	}
	return entries
}

func (o *Orchestrator) logf(format string, args ...any) {
	if o.verbose {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
