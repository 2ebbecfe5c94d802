// Package fetch downloads pages returned by search providers and reduces
// them to plain text. It respects robots.txt and per-domain rate limits.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/winnowlabs/winnow/internal/model"
	"github.com/winnowlabs/winnow/internal/worker"
)

// Fetcher retrieves page text from URLs
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *RobotsChecker
	limiter    *worker.Limiter
	delay      time.Duration
}

// NewFetcher creates a fetcher from configuration. interCallDelay is extra
// spacing applied on top of the limiter's per-domain rate before every
// request.
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter, interCallDelay time.Duration) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	var robots *RobotsChecker
	if cfg.RespectRobots {
		robots = NewRobotsChecker(cfg.UserAgent, timeout)
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		robots:    robots,
		limiter:   limiter,
		delay:     interCallDelay,
	}
}

// Fetch downloads the URL and returns its extracted plain text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if f.robots != nil && !f.robots.IsAllowed(ctx, rawURL) {
		return "", fmt.Errorf("disallowed by robots.txt: %s", rawURL)
	}
	if f.limiter != nil {
		if err := f.limiter.WaitWithDelay(ctx, rawURL, f.delay); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return ExtractText(string(body)), nil
}
