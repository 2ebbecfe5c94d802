package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/winnowlabs/winnow/internal/model"
	"github.com/winnowlabs/winnow/internal/worker"
)

func testHTTPConfig() model.HTTPConfig {
	return model.HTTPConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "Winnow/0.1 (test)",
		MaxBodyBytes: 1_000_000,
	}
}

func TestFetcher_ExtractsPageText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.HasPrefix(got, "Winnow/") {
			t.Errorf("Unexpected User-Agent: %q", got)
		}
		fmt.Fprint(w, `<html><head><title>x</title><script>alert(1)</script></head>
<body><nav>Home | About</nav>
<article><h1>Tay-Sachs disease</h1><p>Caused by HEXA variants.</p><p>Onset in infancy.</p></article>
<footer>© 2026</footer></body></html>`)
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig(), nil, 0)

	text, err := f.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	if !strings.Contains(text, "Caused by HEXA variants.") {
		t.Errorf("Expected article text, got %q", text)
	}
	for _, boilerplate := range []string{"alert(1)", "Home | About", "© 2026"} {
		if strings.Contains(text, boilerplate) {
			t.Errorf("Expected %q stripped, got %q", boilerplate, text)
		}
	}
	if !strings.Contains(text, "\n\n") {
		t.Errorf("Expected paragraph boundaries in extracted text, got %q", text)
	}
}

func TestFetcher_NonSuccessStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(testHTTPConfig(), nil, 0)

	if _, err := f.Fetch(context.Background(), server.URL); err == nil {
		t.Fatal("Expected error for 404")
	}
}

func TestFetcher_RespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>public content here</p>")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cfg := testHTTPConfig()
	cfg.RespectRobots = true
	f := NewFetcher(cfg, nil, 0)

	if _, err := f.Fetch(context.Background(), server.URL+"/private/page"); err == nil {
		t.Error("Expected robots.txt to block /private/")
	}

	text, err := f.Fetch(context.Background(), server.URL+"/public/page")
	if err != nil {
		t.Fatalf("Expected public path allowed, got %v", err)
	}
	if !strings.Contains(text, "public content") {
		t.Errorf("Unexpected text: %q", text)
	}
}

func TestFetcher_InterCallDelay(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<p>spaced out</p>")
	}))
	defer server.Close()

	delay := 40 * time.Millisecond
	f := NewFetcher(testHTTPConfig(), worker.NewLimiter(1000, 10), delay)

	start := time.Now()
	if _, err := f.Fetch(context.Background(), server.URL); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("Expected at least %v between calls, fetch took %v", delay, elapsed)
	}
}

func TestExtractText_MalformedHTML(t *testing.T) {
	// The parser is lenient; even broken markup yields the visible text.
	text := ExtractText("<p>unclosed paragraph <b>bold")
	if !strings.Contains(text, "unclosed paragraph") || !strings.Contains(text, "bold") {
		t.Errorf("Expected text recovered from malformed HTML, got %q", text)
	}
}

func TestExtractText_InlineSpacing(t *testing.T) {
	text := ExtractText("<p>Vitamin <b>E</b> deficiency</p>")
	if !strings.Contains(text, "Vitamin E deficiency") {
		t.Errorf("Expected inline elements joined with spaces, got %q", text)
	}
}
