package search

import (
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/winnowlabs/winnow/internal/model"
)

// ddgLimiter enforces 1 query per second across all DuckDuckGo instances;
// the lite endpoint bans aggressive clients.
var ddgLimiter = rate.NewLimiter(rate.Limit(1), 1)

// DuckDuckGo scrapes DuckDuckGo's HTML lite interface. Results carry URLs
// and snippets only; pages are fetched separately.
type DuckDuckGo struct {
	client   *http.Client
	endpoint string
}

// NewDuckDuckGo creates a DuckDuckGo searcher with a modest timeout.
func NewDuckDuckGo() *DuckDuckGo {
	return &DuckDuckGo{
		client:   &http.Client{Timeout: 15 * time.Second},
		endpoint: "https://lite.duckduckgo.com/lite/",
	}
}

// Name returns the provider name.
func (d *DuckDuckGo) Name() string {
	return "duckduckgo"
}

// Search posts the query to the lite endpoint and parses result links.
func (d *DuckDuckGo) Search(ctx context.Context, query string) ([]Result, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("query is empty")
	}

	if err := ddgLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("duckduckgo http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2_000_000))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return parseLiteResults(string(body)), nil
}

var (
	ddgLinkPattern  = regexp.MustCompile(`<a[^>]*class=['"]result-link['"][^>]*href=['"]([^'"]+)['"][^>]*>(.*?)</a>`)
	ddgLinkPattern2 = regexp.MustCompile(`<a[^>]*href=['"]([^'"]+)['"][^>]*class=['"]result-link['"][^>]*>(.*?)</a>`)
	ddgSnippet      = regexp.MustCompile(`(?s)<td[^>]*class=['"]result-snippet['"][^>]*>(.*?)</td>`)
	ddgTag          = regexp.MustCompile(`<[^>]+>`)
)

// parseLiteResults extracts result links and snippets from the lite HTML,
// which is a plain table of links and snippet cells in document order.
func parseLiteResults(page string) []Result {
	matches := ddgLinkPattern.FindAllStringSubmatch(page, -1)
	if len(matches) == 0 {
		matches = ddgLinkPattern2.FindAllStringSubmatch(page, -1)
	}

	snippets := ddgSnippet.FindAllStringSubmatch(page, -1)

	var results []Result
	for i, m := range matches {
		link := html.UnescapeString(m[1])
		link = resolveLiteRedirect(link)
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
			continue
		}

		title := strings.TrimSpace(html.UnescapeString(ddgTag.ReplaceAllString(m[2], "")))

		snippet := ""
		if i < len(snippets) {
			snippet = strings.TrimSpace(html.UnescapeString(ddgTag.ReplaceAllString(snippets[i][1], " ")))
		}

		results = append(results, Result{
			URL:        link,
			Title:      title,
			Snippet:    snippet,
			Provenance: model.ProvenanceDuckDuckGo, // page content fetched by the caller
		})
	}
	return results
}

// resolveLiteRedirect unwraps //duckduckgo.com/l/?uddg=<encoded> indirection.
func resolveLiteRedirect(link string) string {
	if !strings.Contains(link, "duckduckgo.com/l/") {
		return link
	}
	parsed, err := url.Parse(link)
	if err != nil {
		return link
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
	}
	return link
}
