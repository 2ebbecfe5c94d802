package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/winnowlabs/winnow/internal/model"
)

// FindZebra queries the FindZebra rare-disease search API. Hits carry the
// document text directly, so no page fetch is needed.
type FindZebra struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
	rows    int
}

// NewFindZebra creates a FindZebra client. The API allows roughly one
// request per second.
func NewFindZebra(apiKey string) *FindZebra {
	return &FindZebra{
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		baseURL: "https://www.findzebra.com/api/v1/query",
		apiKey:  apiKey,
		rows:    20,
	}
}

// Name returns the provider name.
func (f *FindZebra) Name() string {
	return "findzebra"
}

type findZebraResponse struct {
	Response struct {
		Docs []struct {
			Title          string `json:"title"`
			DisplayContent string `json:"display_content"`
			Source         string `json:"source"`
			SourceURL      string `json:"source_url"`
		} `json:"docs"`
	} `json:"response"`
}

// Search runs the query plus clinical-focus variations and merges unique
// results by source URL.
func (f *FindZebra) Search(ctx context.Context, query string) ([]Result, error) {
	if f.apiKey == "" {
		return nil, fmt.Errorf("FindZebra API key is required")
	}

	variations := []string{
		query,
		query + " symptoms treatment diagnosis",
		query + " pathophysiology genetics",
	}

	var results []Result
	seen := make(map[string]bool)

	for _, variation := range variations {
		if err := f.limiter.Wait(ctx); err != nil {
			return results, err
		}

		docs, err := f.query(ctx, variation)
		if err != nil {
			// A failed variation is not fatal; later ones may still land.
			continue
		}

		for _, doc := range docs.Response.Docs {
			if doc.SourceURL == "" || seen[doc.SourceURL] {
				continue
			}
			seen[doc.SourceURL] = true

			text := CleanMarkup(doc.DisplayContent)
			if doc.Title != "" {
				text = doc.Title + "\n\n" + text
			}

			results = append(results, Result{
				URL:        doc.SourceURL,
				Title:      doc.Title,
				Text:       text,
				Provenance: model.ProvenanceFindZebra,
			})
		}
	}
	return results, nil
}

func (f *FindZebra) query(ctx context.Context, q string) (*findZebraResponse, error) {
	params := url.Values{}
	params.Set("api_key", f.apiKey)
	params.Set("q", q)
	params.Set("response_format", "json")
	params.Set("rows", fmt.Sprintf("%d", f.rows))
	params.Set("fl", "title,display_content,source,source_url,score")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query findzebra: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("findzebra http %d", resp.StatusCode)
	}

	var parsed findZebraResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &parsed, nil
}

var (
	markupBreak = strings.NewReplacer(
		"<br>", "\n", "<p>", "\n", "</p>", "",
		"<h2>", "\n", "</h2>", "\n",
		"<h3>", "\n", "</h3>", "\n",
		"&amp;", "&", "&nbsp;", " ",
	)
	markupTag = regexp.MustCompile(`<[^>]+>`)
)

// CleanMarkup strips the lightweight HTML FindZebra embeds in document text.
func CleanMarkup(s string) string {
	s = markupBreak.Replace(s)
	s = markupTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
