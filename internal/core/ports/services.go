package ports

import (
	"context"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishSearchPerformed(ctx context.Context, event *domain.SearchEvent) error
	PublishViewportChanged(ctx context.Context, sessionID string, vp domain.ViewportRef) error
	PublishListingsImported(ctx context.Context, count int) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeListingsImported(ctx context.Context, handler func(ctx context.Context, count int) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// Geocoder resolves free-text locations. Implementations return
// domain.ErrLocationNotFound when nothing matches.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*domain.Place, error)
}
