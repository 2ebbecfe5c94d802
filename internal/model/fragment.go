package model

// Provenance identifies which provider produced a fragment
type Provenance string

const (
	ProvenanceDuckDuckGo Provenance = "duckduckgo"
	ProvenanceFindZebra  Provenance = "findzebra"
	ProvenancePubMed     Provenance = "pubmed"
	ProvenanceCache      Provenance = "cache" // Served from the embedding cache
)

// Fragment is a bounded unit of retrieved source text. Fragments are
// immutable once created; two fragments with the same SourceURL are
// duplicates and must not both be analyzed within one question.
type Fragment struct {
	SourceURL  string     `json:"source_url"` // URL or equivalent locator
	Content    string     `json:"content"`
	Provenance Provenance `json:"provenance"`
}

// Document is a raw (source identifier, text) pair as returned by a search
// provider, before chunking.
type Document struct {
	URL        string
	Text       string
	Provenance Provenance
}
