package cache

import "time"

// LayeredStore fronts a DiskStore with a MemoryStore so repeated questions
// about the same subject skip disk reads within one process.
type LayeredStore struct {
	memory *MemoryStore
	disk   *DiskStore
}

// NewLayeredStore creates the memory+disk pair.
func NewLayeredStore(dir string, memoryTTL time.Duration) *LayeredStore {
	return &LayeredStore{
		memory: NewMemoryStore(memoryTTL),
		disk:   NewDiskStore(dir),
	}
}

// Load checks memory first and promotes disk hits.
func (s *LayeredStore) Load(subject string) ([]Entry, error) {
	if entries, _ := s.memory.Load(subject); len(entries) > 0 {
		return entries, nil
	}

	entries, err := s.disk.Load(subject)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		s.memory.Replace(subject, entries)
	}
	return entries, nil
}

// Append writes through to disk and keeps the memory layer coherent.
func (s *LayeredStore) Append(subject string, entries []Entry) error {
	if err := s.disk.Append(subject, entries); err != nil {
		return err
	}
	return s.memory.Append(subject, entries)
}

// Clear removes the namespace from both layers.
func (s *LayeredStore) Clear(subject string) error {
	_ = s.memory.Clear(subject)
	return s.disk.Clear(subject)
}
