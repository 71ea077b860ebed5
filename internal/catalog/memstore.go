package catalog

import (
	"context"
	"strings"
	"sync"
)

// MemStore is an in-memory ListingRepository. It backs tests and small
// deployments where the corpus fits in a single JSON file.
type MemStore struct {
	mu       sync.RWMutex
	listings []*ComparableListing
}

// NewMemStore creates a MemStore pre-populated with the given listings.
func NewMemStore(listings ...*ComparableListing) *MemStore {
	s := &MemStore{}
	s.listings = append(s.listings, listings...)
	return s
}

// Create stores a listing.
func (s *MemStore) Create(_ context.Context, listing *ComparableListing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listings = append(s.listings, listing)
	return nil
}

// ListByDesigner returns all listings for a designer, case-insensitively.
func (s *MemStore) ListByDesigner(_ context.Context, designer string) ([]*ComparableListing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*ComparableListing
	for _, l := range s.listings {
		if strings.EqualFold(l.Designer, designer) {
			out = append(out, l)
		}
	}
	return out, nil
}

// Count returns the number of stored listings.
func (s *MemStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listings), nil
}

// Ensure MemStore implements ListingRepository
var _ ListingRepository = (*MemStore)(nil)
