package profile

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 1024

// CachedStore is a read-through LRU in front of another Store. Save and Clear
// drop the entry once the backend write is done, and a Load that was already
// reading the backend at that point does not repopulate the cache.
type CachedStore struct {
	next  Store
	cache *lru.Cache[string, *PatientProfile]

	mu          sync.Mutex
	generations map[string]uint64
}

func NewCachedStore(next Store, size int) (*CachedStore, error) {
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, *PatientProfile](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create profile cache: %w", err)
	}
	return &CachedStore{
		next:        next,
		cache:       cache,
		generations: make(map[string]uint64),
	}, nil
}

func (s *CachedStore) Save(ctx context.Context, patientID string, p *PatientProfile) error {
	defer s.invalidate(patientID)
	return s.next.Save(ctx, patientID, p)
}

func (s *CachedStore) Load(ctx context.Context, patientID string) (*PatientProfile, error) {
	if p, ok := s.cache.Get(patientID); ok {
		return p.Clone(), nil
	}

	s.mu.Lock()
	gen := s.generations[patientID]
	s.mu.Unlock()

	p, err := s.next.Load(ctx, patientID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generations[patientID] == gen {
		s.cache.Add(patientID, p.Clone())
	}
	s.mu.Unlock()
	return p, nil
}

func (s *CachedStore) Clear(ctx context.Context, patientID string) error {
	defer s.invalidate(patientID)
	return s.next.Clear(ctx, patientID)
}

// invalidate drops the cached entry and fences out in-flight loads.
func (s *CachedStore) invalidate(patientID string) {
	s.mu.Lock()
	s.generations[patientID]++
	s.cache.Remove(patientID)
	s.mu.Unlock()
}

// Len reports the number of cached profiles.
func (s *CachedStore) Len() int {
	return s.cache.Len()
}
