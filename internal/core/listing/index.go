// Package listing holds the in-memory listing snapshot the search engine reads.
package listing

import (
	"sync"
	"time"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

// Index is a read-mostly collection of listings. Readers always see a whole
// snapshot; Replace swaps it atomically.
type Index struct {
	mu        sync.RWMutex
	listings  []domain.Listing
	byID      map[string]int
	updatedAt time.Time
}

// NewIndex builds an index over a copy of listings. A nil slice yields an
// empty index that has never been loaded (UpdatedAt is zero).
func NewIndex(listings []domain.Listing) *Index {
	idx := &Index{byID: map[string]int{}}
	if listings != nil {
		idx.Replace(listings)
	}
	return idx
}

// Replace installs a new snapshot. A later listing with a duplicate ID wins,
// keeping the position of the first occurrence.
func (idx *Index) Replace(listings []domain.Listing) {
	next := make([]domain.Listing, 0, len(listings))
	byID := make(map[string]int, len(listings))
	for _, l := range listings {
		if i, ok := byID[l.ID]; ok {
			next[i] = l
			continue
		}
		byID[l.ID] = len(next)
		next = append(next, l)
	}

	idx.mu.Lock()
	idx.listings = next
	idx.byID = byID
	idx.updatedAt = time.Now()
	idx.mu.Unlock()
}

// Snapshot returns a copy of the current listings in load order.
func (idx *Index) Snapshot() []domain.Listing {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]domain.Listing, len(idx.listings))
	copy(out, idx.listings)
	return out
}

// Get returns the listing with id.
func (idx *Index) Get(id string) (domain.Listing, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	i, ok := idx.byID[id]
	if !ok {
		return domain.Listing{}, false
	}
	return idx.listings[i], true
}

func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.listings)
}

// UpdatedAt reports when the current snapshot was installed.
func (idx *Index) UpdatedAt() time.Time {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.updatedAt
}
