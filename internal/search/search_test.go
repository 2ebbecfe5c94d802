package search

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/time/rate"

	"github.com/winnowlabs/winnow/internal/model"
)

// testRateLimit removes provider throttling so tests run fast.
const testRateLimit = rate.Inf

func TestParseLiteResults(t *testing.T) {
	page := `
<table>
<tr><td><a rel="nofollow" class="result-link" href="https://example.com/disease">Example <b>Disease</b> Page</a></td></tr>
<tr><td class="result-snippet">A snippet about the disease.</td></tr>
<tr><td><a rel="nofollow" class="result-link" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Forpha.net%2Fentry">Orphanet entry</a></td></tr>
<tr><td class="result-snippet">Second snippet.</td></tr>
<tr><td><a rel="nofollow" class="result-link" href="javascript:void(0)">Bad link</a></td></tr>
</table>`

	results := parseLiteResults(page)

	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %v", len(results), results)
	}
	if results[0].URL != "https://example.com/disease" {
		t.Errorf("Unexpected first URL: %s", results[0].URL)
	}
	if results[0].Title != "Example Disease Page" {
		t.Errorf("Expected tags stripped from title, got %q", results[0].Title)
	}
	if results[0].Snippet != "A snippet about the disease." {
		t.Errorf("Unexpected snippet: %q", results[0].Snippet)
	}
	if results[1].URL != "https://orpha.net/entry" {
		t.Errorf("Expected redirect unwrapped, got %s", results[1].URL)
	}
	for _, r := range results {
		if r.Provenance != model.ProvenanceDuckDuckGo {
			t.Errorf("Unexpected provenance: %s", r.Provenance)
		}
		if r.Text != "" {
			t.Errorf("DuckDuckGo results must not carry text, got %q", r.Text)
		}
	}
}

func TestDuckDuckGo_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		if got := r.PostForm.Get("q"); got != "cystic fibrosis inheritance" {
			t.Errorf("Unexpected query: %q", got)
		}
		fmt.Fprint(w, `<a class="result-link" href="https://example.com/cf">CF</a>`)
	}))
	defer server.Close()

	d := NewDuckDuckGo()
	d.endpoint = server.URL
	ddgLimiter.SetLimit(testRateLimit)

	results, err := d.Search(context.Background(), "cystic fibrosis inheritance")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].URL != "https://example.com/cf" {
		t.Fatalf("Unexpected results: %v", results)
	}
}

func TestDuckDuckGo_EmptyQuery(t *testing.T) {
	d := NewDuckDuckGo()
	if _, err := d.Search(context.Background(), "   "); err == nil {
		t.Fatal("Expected error for empty query")
	}
}

func TestFindZebra_Search(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Query().Get("api_key") != "test-key" {
			t.Errorf("Missing api_key parameter")
		}
		// Same doc in every variation; must be deduplicated by source URL
		fmt.Fprint(w, `{"response":{"docs":[
			{"title":"Gaucher disease","display_content":"<p>Lysosomal storage disorder.</p><br>Caused by GBA variants.","source":"GARD","source_url":"https://rarediseases.info/gaucher"}
		]}}`)
	}))
	defer server.Close()

	f := NewFindZebra("test-key")
	f.baseURL = server.URL
	f.limiter.SetLimit(testRateLimit)

	results, err := f.Search(context.Background(), "gaucher disease")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 query variations, got %d calls", calls)
	}
	if len(results) != 1 {
		t.Fatalf("Expected deduplicated single result, got %d", len(results))
	}

	r := results[0]
	if r.Provenance != model.ProvenanceFindZebra {
		t.Errorf("Unexpected provenance: %s", r.Provenance)
	}
	if strings.Contains(r.Text, "<") {
		t.Errorf("Expected markup stripped, got %q", r.Text)
	}
	if !strings.HasPrefix(r.Text, "Gaucher disease") {
		t.Errorf("Expected title prepended, got %q", r.Text)
	}
}

func TestFindZebra_RequiresKey(t *testing.T) {
	f := NewFindZebra("")
	if _, err := f.Search(context.Background(), "anything"); err == nil {
		t.Fatal("Expected error without API key")
	}
}

func TestPubMed_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "esearch"):
			fmt.Fprint(w, `<eSearchResult><IdList><Id>111</Id><Id>222</Id></IdList></eSearchResult>`)
		case strings.Contains(r.URL.Path, "efetch"):
			fmt.Fprint(w, `<PubmedArticleSet>
				<PubmedArticle><MedlineCitation><PMID>111</PMID><Article>
					<Journal><JournalIssue><PubDate><Year>2019</Year></PubDate></JournalIssue></Journal>
					<ArticleTitle>Older review</ArticleTitle>
					<Abstract><AbstractText Label="BACKGROUND">First part.</AbstractText><AbstractText>Second part.</AbstractText></Abstract>
				</Article></MedlineCitation></PubmedArticle>
				<PubmedArticle><MedlineCitation><PMID>222</PMID><Article>
					<Journal><JournalIssue><PubDate><Year>2024</Year></PubDate></JournalIssue></Journal>
					<ArticleTitle>Newer review</ArticleTitle>
					<Abstract><AbstractText>Recent findings.</AbstractText></Abstract>
				</Article></MedlineCitation></PubmedArticle>
				<PubmedArticle><MedlineCitation><PMID>333</PMID><Article>
					<Journal><JournalIssue><PubDate><Year>2025</Year></PubDate></JournalIssue></Journal>
					<ArticleTitle>No abstract</ArticleTitle>
				</Article></MedlineCitation></PubmedArticle>
			</PubmedArticleSet>`)
		default:
			t.Errorf("Unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	p := NewPubMed()
	p.baseURL = server.URL
	p.limiter.SetLimit(testRateLimit)

	results, err := p.Search(context.Background(), "alkaptonuria")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results (record without abstract skipped), got %d", len(results))
	}
	if results[0].Title != "Newer review" {
		t.Errorf("Expected newest first, got %q", results[0].Title)
	}
	if results[1].URL != "https://pubmed.ncbi.nlm.nih.gov/111/" {
		t.Errorf("Unexpected URL: %s", results[1].URL)
	}
	if !strings.Contains(results[1].Text, "BACKGROUND: First part.") {
		t.Errorf("Expected labeled abstract section, got %q", results[1].Text)
	}
}

func TestNewProviders(t *testing.T) {
	cfg := model.SearchConfig{Providers: []string{"duckduckgo", "pubmed"}}
	providers, err := NewProviders(cfg)
	if err != nil {
		t.Fatalf("NewProviders failed: %v", err)
	}
	if len(providers) != 2 || providers[0].Name() != "duckduckgo" || providers[1].Name() != "pubmed" {
		t.Fatalf("Unexpected providers: %v", providers)
	}

	if _, err := NewProviders(model.SearchConfig{Providers: []string{"google"}}); err == nil {
		t.Fatal("Expected error for unknown provider")
	}
}

func TestNormalizedDomain(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://Example.com/path/to/page", "https://example.com"},
		{"https://example.com/other", "https://example.com"},
		{"not-a-url", "not-a-url"},
	}
	for _, tt := range tests {
		if got := NormalizedDomain(tt.url); got != tt.want {
			t.Errorf("NormalizedDomain(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
