package usecases_test

import (
	"context"
	"errors"
	"sync"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

// --- Mock ListingRepository ---

type mockListingRepo struct {
	allFn         func(ctx context.Context) ([]domain.Listing, error)
	getByIDFn     func(ctx context.Context, id string) (*domain.Listing, error)
	listFn        func(ctx context.Context, limit, offset int) ([]domain.Listing, int, error)
	upsertBatchFn func(ctx context.Context, listings []domain.Listing) error
}

func (m *mockListingRepo) All(ctx context.Context) ([]domain.Listing, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

func (m *mockListingRepo) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrListingNotFound
}

func (m *mockListingRepo) List(ctx context.Context, limit, offset int) ([]domain.Listing, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockListingRepo) UpsertBatch(ctx context.Context, listings []domain.Listing) error {
	if m.upsertBatchFn != nil {
		return m.upsertBatchFn(ctx, listings)
	}
	return nil
}

// --- Mock CacheService ---

var errCacheMiss = errors.New("cache miss")

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	searches  []domain.SearchEvent
	viewports []domain.ViewportRef
	imported  []int
}

func (m *mockPublisher) PublishSearchPerformed(ctx context.Context, event *domain.SearchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches = append(m.searches, *event)
	return nil
}

func (m *mockPublisher) PublishViewportChanged(ctx context.Context, sessionID string, vp domain.ViewportRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.viewports = append(m.viewports, vp)
	return nil
}

func (m *mockPublisher) PublishListingsImported(ctx context.Context, count int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported = append(m.imported, count)
	return nil
}

func (m *mockPublisher) searchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searches)
}

// --- Mock Geocoder / LocationResolver ---

type mockGeocoder struct {
	geocodeFn func(ctx context.Context, query string) (*domain.Place, error)
	calls     int
}

func (m *mockGeocoder) Geocode(ctx context.Context, query string) (*domain.Place, error) {
	m.calls++
	if m.geocodeFn != nil {
		return m.geocodeFn(ctx, query)
	}
	return nil, domain.ErrLocationNotFound
}

type resolverFunc func(ctx context.Context, query string) (*domain.Place, error)

func (f resolverFunc) Resolve(ctx context.Context, query string) (*domain.Place, error) {
	return f(ctx, query)
}

// --- Fixtures ---

var (
	newYork = domain.Coordinate{Lat: 40.7128, Lng: -74.0060}
	london  = domain.Coordinate{Lat: 51.5, Lng: -0.12}
)

func fixtureListings() []domain.Listing {
	return []domain.Listing{
		{ID: "cam", Title: "Vintage Camera", Category: "Electronics", Condition: domain.ConditionGood, EstimatedValue: 150, OwnerRating: 4.6, Coordinates: domain.Coordinate{Lat: 40.7130, Lng: -74.0050}},
		{ID: "bike", Title: "Road Bike", Category: "Sports", Condition: domain.ConditionLikeNew, EstimatedValue: 400, OwnerRating: 3.9, Coordinates: domain.Coordinate{Lat: 40.7200, Lng: -74.0100}},
		{ID: "guitar", Title: "Guitar", Category: "Music", Condition: domain.ConditionFair, EstimatedValue: 250, OwnerRating: 4.9, Coordinates: london},
		{ID: "games", Title: "Board games", Category: "Toys", Condition: domain.ConditionExcellent, EstimatedValue: 60, OwnerRating: 2.5, Coordinates: domain.Coordinate{Lat: 40.9, Lng: -73.9}},
	}
}
