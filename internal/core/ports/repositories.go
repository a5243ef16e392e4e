package ports

import (
	"context"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

// ListingRepository persists marketplace listings.
type ListingRepository interface {
	UpsertBatch(ctx context.Context, listings []domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	// List returns one page ordered by creation time, newest first, and the total count.
	List(ctx context.Context, limit, offset int) ([]domain.Listing, int, error)
	// All loads every listing for the in-memory index.
	All(ctx context.Context) ([]domain.Listing, error)
}
