package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore keeps whole subject namespaces in process memory with a TTL.
// It is a read-through layer, not durable storage; LayeredStore pairs it
// with a DiskStore.
type MemoryStore struct {
	cache *gocache.Cache
}

// NewMemoryStore creates a memory store with the given TTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryStore{
		cache: gocache.New(ttl, 10*time.Minute),
	}
}

// Load returns the cached namespace, or an empty slice when absent.
func (s *MemoryStore) Load(subject string) ([]Entry, error) {
	if v, found := s.cache.Get(Namespace(subject)); found {
		return v.([]Entry), nil
	}
	return []Entry{}, nil
}

// Append merges entries into the in-memory namespace with the same
// replace-by-key semantics as the disk store.
func (s *MemoryStore) Append(subject string, entries []Entry) error {
	existing, _ := s.Load(subject)

	position := make(map[string]int, len(existing))
	for i, e := range existing {
		position[e.Key()] = i
	}
	for _, e := range entries {
		if i, ok := position[e.Key()]; ok {
			existing[i] = e
			continue
		}
		position[e.Key()] = len(existing)
		existing = append(existing, e)
	}

	s.cache.SetDefault(Namespace(subject), existing)
	return nil
}

// Replace overwrites the in-memory namespace wholesale.
func (s *MemoryStore) Replace(subject string, entries []Entry) {
	s.cache.SetDefault(Namespace(subject), entries)
}

// Clear drops the in-memory namespace.
func (s *MemoryStore) Clear(subject string) error {
	s.cache.Delete(Namespace(subject))
	return nil
}
