package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/winnowlabs/winnow/internal/model"
)

// PubMed searches article abstracts through the NCBI E-utilities API.
// NCBI allows 3 requests per second without an API key.
type PubMed struct {
	client     *http.Client
	limiter    *rate.Limiter
	baseURL    string
	maxPerTerm int
}

// NewPubMed creates a PubMed client.
func NewPubMed() *PubMed {
	return &PubMed{
		client:     &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(3), 1),
		baseURL:    "https://eutils.ncbi.nlm.nih.gov/entrez/eutils",
		maxPerTerm: 10,
	}
}

// Name returns the provider name.
func (p *PubMed) Name() string {
	return "pubmed"
}

type esearchResult struct {
	IDs []string `xml:"IdList>Id"`
}

type efetchResult struct {
	Articles []struct {
		PMID     string `xml:"MedlineCitation>PMID"`
		Title    string `xml:"MedlineCitation>Article>ArticleTitle"`
		Year     string `xml:"MedlineCitation>Article>Journal>JournalIssue>PubDate>Year"`
		Abstract []struct {
			Label string `xml:"Label,attr"`
			Text  string `xml:",chardata"`
		} `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	} `xml:"PubmedArticle"`
}

// Search runs esearch+efetch for the query and a review-focused variation,
// deduplicates by PMID and orders newest first.
func (p *PubMed) Search(ctx context.Context, query string) ([]Result, error) {
	variations := []string{
		fmt.Sprintf(`"%s"[Title/Abstract]`, query),
		fmt.Sprintf(`"%s"[Title/Abstract] AND (Review[ptyp] OR diagnosis OR treatment)`, query),
	}

	seen := make(map[string]bool)
	var pmids []string

	for _, term := range variations {
		ids, err := p.esearch(ctx, term)
		if err != nil {
			continue
		}
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				pmids = append(pmids, id)
			}
		}
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	articles, err := p.efetch(ctx, pmids)
	if err != nil {
		return nil, err
	}

	// Newest first; stable so efetch order breaks ties
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].year > articles[j].year
	})

	results := make([]Result, 0, len(articles))
	for _, a := range articles {
		results = append(results, Result{
			URL:        fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", a.pmid),
			Title:      a.title,
			Text:       a.text,
			Provenance: model.ProvenancePubMed,
		})
	}
	return results, nil
}

type pubmedArticle struct {
	pmid  string
	title string
	year  string
	text  string
}

func (p *PubMed) esearch(ctx context.Context, term string) ([]string, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("retmax", fmt.Sprintf("%d", p.maxPerTerm))
	params.Set("retmode", "xml")

	body, err := p.get(ctx, "/esearch.fcgi?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed esearchResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse esearch response: %w", err)
	}
	return parsed.IDs, nil
}

func (p *PubMed) efetch(ctx context.Context, pmids []string) ([]pubmedArticle, error) {
	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")

	body, err := p.get(ctx, "/efetch.fcgi?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var parsed efetchResult
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse efetch response: %w", err)
	}

	articles := make([]pubmedArticle, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		var abstract []string
		for _, part := range a.Abstract {
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if part.Label != "" {
				text = part.Label + ": " + text
			}
			abstract = append(abstract, text)
		}
		if len(abstract) == 0 {
			continue // abstracts are the evidence; skip title-only records
		}

		articles = append(articles, pubmedArticle{
			pmid:  a.PMID,
			title: a.Title,
			year:  a.Year,
			text:  a.Title + "\n\n" + strings.Join(abstract, "\n"),
		})
	}
	return articles, nil
}

func (p *PubMed) get(ctx context.Context, path string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query pubmed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pubmed http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 5_000_000))
}
