package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	pkgio "github.com/checklistapp/diagram/pkg/io"
)

// MemoryStore keeps every version in memory. It is safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	projects map[string][]Record
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{projects: make(map[string][]Record), now: time.Now}
}

func (s *MemoryStore) Put(ctx context.Context, projectID string, doc pkgio.GraphDocument) (Version, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := newRecord(projectID, len(s.projects[projectID])+1, doc, s.now())
	s.projects[projectID] = append(s.projects[projectID], rec)
	return rec.Version, nil
}

func (s *MemoryStore) Current(ctx context.Context, projectID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.projects[projectID]
	if len(recs) == 0 {
		return Record{}, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	return recs[len(recs)-1], nil
}

func (s *MemoryStore) Get(ctx context.Context, projectID string, version int) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.projects[projectID]
	if version < 1 || version > len(recs) {
		return Record{}, fmt.Errorf("project %s version %d: %w", projectID, version, ErrNotFound)
	}
	return recs[version-1], nil
}

func (s *MemoryStore) List(ctx context.Context, projectID string) ([]Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.projects[projectID]
	out := make([]Version, len(recs))
	for i, r := range recs {
		out[i] = r.Version
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
