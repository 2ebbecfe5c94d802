// Package cache persists fragment embeddings per subject so evidence
// retrieved for one question is reusable by later questions about the same
// subject. Writes are idempotent per (source, index) key: repeating a write
// replaces the entry, never duplicates it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/winnowlabs/winnow/internal/model"
)

// Record is one cached fragment without its vector
type Record struct {
	Index      int              `json:"index"` // Fragment-local index within its source
	SourceURL  string           `json:"source_url"`
	Content    string           `json:"content"`
	Provenance model.Provenance `json:"provenance"`
}

// Entry joins a fragment record with its embedding. Records and vectors are
// keyed identically so they can always be joined.
type Entry struct {
	Record
	Vector []float32 `json:"vector"`
}

// Key identifies an entry inside a subject namespace.
func (e Entry) Key() string {
	return fmt.Sprintf("%s#%d", e.SourceURL, e.Index)
}

// Store is the embedding cache contract. Namespaces persist until cleared;
// entries never expire automatically.
type Store interface {
	// Load returns every entry in the subject namespace, in write order.
	// An absent namespace yields an empty slice, not an error.
	Load(subject string) ([]Entry, error)

	// Append writes entries to the subject namespace. Entries whose
	// (source, index) key already exists are replaced in place.
	Append(subject string, entries []Entry) error

	// Clear deletes the whole namespace for a subject.
	Clear(subject string) error
}

// Namespace derives a stable directory name for a subject: a readable slug
// plus a short content hash so distinct subjects never collide.
func Namespace(subject string) string {
	slug := strings.ToLower(strings.TrimSpace(subject))
	var b strings.Builder
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_', r == '/':
			b.WriteRune('-')
		}
	}
	clean := strings.Trim(b.String(), "-")
	if len(clean) > 48 {
		clean = clean[:48]
	}

	hash := sha256.Sum256([]byte(slug))
	short := hex.EncodeToString(hash[:4])
	if clean == "" {
		return short
	}
	return clean + "-" + short
}
