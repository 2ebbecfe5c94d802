package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// DiskStore implements Store on the local filesystem. Each subject namespace
// is a directory holding fragments.json (the record index) and vectors.json
// (the parallel vector store), joinable by position.
type DiskStore struct {
	dir string
	mu  sync.Mutex
}

// NewDiskStore creates a disk store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{dir: dir}
}

type vectorRow struct {
	Key    string    `json:"key"`
	Vector []float32 `json:"vector"`
}

// Load reads a subject namespace. A missing namespace is an empty cache.
func (s *DiskStore) Load(subject string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(subject)
}

func (s *DiskStore) load(subject string) ([]Entry, error) {
	dir := s.namespaceDir(subject)

	records, err := readJSON[[]Record](filepath.Join(dir, "fragments.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("read fragment index: %w", err)
	}

	vectors, err := readJSON[[]vectorRow](filepath.Join(dir, "vectors.json"))
	if err != nil {
		if os.IsNotExist(err) {
			vectors = []vectorRow{}
		} else {
			return nil, fmt.Errorf("read vector store: %w", err)
		}
	}

	byKey := make(map[string][]float32, len(vectors))
	for _, row := range vectors {
		byKey[row.Key] = row.Vector
	}

	entries := make([]Entry, 0, len(records))
	for _, rec := range records {
		e := Entry{Record: rec}
		e.Vector = byKey[e.Key()]
		entries = append(entries, e)
	}
	return entries, nil
}

// Append writes entries, replacing any existing entry with the same
// (source, index) key. The replace-not-duplicate behavior makes concurrent
// population of the same subject safe.
func (s *DiskStore) Append(subject string, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.load(subject)
	if err != nil {
		return err
	}

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

	return s.write(subject, existing)
}

func (s *DiskStore) write(subject string, entries []Entry) error {
	dir := s.namespaceDir(subject)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create namespace dir: %w", err)
	}

	records := make([]Record, len(entries))
	vectors := make([]vectorRow, len(entries))
	for i, e := range entries {
		records[i] = e.Record
		vectors[i] = vectorRow{Key: e.Key(), Vector: e.Vector}
	}

	if err := writeJSON(filepath.Join(dir, "fragments.json"), records); err != nil {
		return fmt.Errorf("write fragment index: %w", err)
	}
	if err := writeJSON(filepath.Join(dir, "vectors.json"), vectors); err != nil {
		return fmt.Errorf("write vector store: %w", err)
	}
	return nil
}

// Clear deletes a subject namespace. Clearing an absent namespace is a no-op.
func (s *DiskStore) Clear(subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.namespaceDir(subject))
}

func (s *DiskStore) namespaceDir(subject string) string {
	return filepath.Join(s.dir, Namespace(subject))
}

func readJSON[T any](path string) (T, error) {
	var out T
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshal %s: %w", filepath.Base(path), err)
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return os.Rename(tmp, path)
}
