package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/listing"
	"github.com/samirrijal/barterbay/internal/core/ports"
	"github.com/samirrijal/barterbay/internal/pkg/metrics"
	"github.com/samirrijal/barterbay/internal/pkg/telemetry"
)

const snapshotCacheKey = "listings:snapshot"

// ListingService keeps the in-memory index in step with the listing store.
type ListingService struct {
	listings    ports.ListingRepository
	cache       ports.CacheService
	publisher   ports.EventPublisher
	index       *listing.Index
	snapshotTTL int
}

// NewListingService creates a new ListingService. cache and publisher may be nil.
func NewListingService(
	listings ports.ListingRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
	index *listing.Index,
	snapshotTTL int,
) *ListingService {
	if snapshotTTL <= 0 {
		snapshotTTL = 300
	}
	return &ListingService{
		listings:    listings,
		cache:       cache,
		publisher:   publisher,
		index:       index,
		snapshotTTL: snapshotTTL,
	}
}

// Index returns the index the service maintains.
func (s *ListingService) Index() *listing.Index { return s.index }

// Refresh reloads the index from the store. When the store is unavailable the
// last cached snapshot is installed instead, so a restart during a database
// outage still serves listings.
func (s *ListingService) Refresh(ctx context.Context) (int, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanIndexRefresh)
	defer span.End()

	all, err := s.listings.All(ctx)
	if err != nil {
		metrics.IndexRefreshErrors.Inc()
		if cached, ok := s.cachedSnapshot(ctx); ok {
			slog.Warn("listing store unavailable, using cached snapshot", "error", err, "listings", len(cached))
			s.index.Replace(cached)
			metrics.ListingsIndexed.Set(float64(s.index.Len()))
			return s.index.Len(), nil
		}
		return 0, fmt.Errorf("load listings: %w", err)
	}

	s.index.Replace(all)
	metrics.ListingsIndexed.Set(float64(s.index.Len()))

	if s.cache != nil {
		if data, err := json.Marshal(all); err == nil {
			_ = s.cache.Set(ctx, snapshotCacheKey, data, s.snapshotTTL)
		}
	}
	return s.index.Len(), nil
}

// RunRefresher refreshes the index every interval until ctx is done.
func (s *ListingService) RunRefresher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := s.Refresh(ctx); err != nil {
				slog.Error("listing refresh failed", "error", err)
			} else {
				slog.Debug("listing index refreshed", "listings", n)
			}
		}
	}
}

func (s *ListingService) cachedSnapshot(ctx context.Context) ([]domain.Listing, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, snapshotCacheKey)
	if err != nil {
		metrics.ObserveCache("listings_snapshot", false)
		return nil, false
	}
	var all []domain.Listing
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, false
	}
	metrics.ObserveCache("listings_snapshot", true)
	return all, true
}

// GetByID returns a single listing, preferring the index over the store.
func (s *ListingService) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	if l, ok := s.index.Get(id); ok {
		return &l, nil
	}

	cacheKey := "listings:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var l domain.Listing
			if err := json.Unmarshal(data, &l); err == nil {
				metrics.ObserveCache("listing", true)
				return &l, nil
			}
		}
		metrics.ObserveCache("listing", false)
	}

	l, err := s.listings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, domain.ErrListingNotFound
	}

	if s.cache != nil {
		if data, err := json.Marshal(l); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return l, nil
}

// List returns one page of the catalog and the total number of listings.
func (s *ListingService) List(ctx context.Context, limit, offset int) ([]domain.Listing, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	items, total, err := s.listings.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}
	return items, total, nil
}

// Import validates and stores listings, then announces the import so running
// services reload their index. It returns the number stored.
func (s *ListingService) Import(ctx context.Context, listings []domain.Listing) (int, error) {
	valid := make([]domain.Listing, 0, len(listings))
	var errs []error
	for i := range listings {
		l := listings[i]
		if err := ValidateListing(&l); err != nil {
			errs = append(errs, fmt.Errorf("listing %d (%s): %w", i, l.ID, err))
			continue
		}
		valid = append(valid, l)
	}
	if len(valid) == 0 {
		return 0, errors.Join(append(errs, errors.New("no valid listings to import"))...)
	}

	if err := s.listings.UpsertBatch(ctx, valid); err != nil {
		return 0, fmt.Errorf("upsert listings: %w", err)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishListingsImported(ctx, len(valid)); err != nil {
			slog.Warn("publish listings imported", "error", err)
		}
	}
	return len(valid), errors.Join(errs...)
}

// ValidateListing checks required fields and ranges and canonicalises its condition.
func ValidateListing(l *domain.Listing) error {
	l.ID = strings.TrimSpace(l.ID)
	if l.ID == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(l.Title) == "" {
		return errors.New("title is required")
	}
	if !l.Coordinates.Valid() {
		return domain.ErrInvalidCoordinate
	}
	if l.EstimatedValue < 0 || math.IsNaN(l.EstimatedValue) {
		return fmt.Errorf("estimated value must be non-negative, got %v", l.EstimatedValue)
	}
	if l.OwnerRating < 0 || l.OwnerRating > 5 || math.IsNaN(l.OwnerRating) {
		return fmt.Errorf("owner rating must be within [0,5], got %v", l.OwnerRating)
	}
	c, ok := domain.ParseCondition(string(l.Condition))
	if !ok {
		return fmt.Errorf("unknown condition %q", l.Condition)
	}
	l.Condition = c
	l.DistanceMiles = nil
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	return nil
}
