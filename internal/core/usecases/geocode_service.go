package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/ports"
	"github.com/samirrijal/barterbay/internal/pkg/metrics"
	"github.com/samirrijal/barterbay/internal/pkg/telemetry"
)

// GeocodeService resolves location text through an external geocoder with a
// read-through cache.
type GeocodeService struct {
	geocoder ports.Geocoder
	cache    ports.CacheService
	ttl      int
}

// NewGeocodeService creates a new GeocodeService. ttlSeconds <= 0 means one day.
func NewGeocodeService(geocoder ports.Geocoder, cache ports.CacheService, ttlSeconds int) *GeocodeService {
	if ttlSeconds <= 0 {
		ttlSeconds = 86400
	}
	return &GeocodeService{geocoder: geocoder, cache: cache, ttl: ttlSeconds}
}

// Resolve turns query into a place. Blank queries and misses return
// domain.ErrLocationNotFound.
func (s *GeocodeService) Resolve(ctx context.Context, query string) (*domain.Place, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if key == "" {
		return nil, domain.ErrLocationNotFound
	}

	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanGeocode)
	defer span.End()

	cacheKey := "geocode:" + key
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var p domain.Place
			if err := json.Unmarshal(data, &p); err == nil {
				metrics.ObserveCache("geocode", true)
				metrics.GeocodeRequests.WithLabelValues("cached").Inc()
				return &p, nil
			}
		}
		metrics.ObserveCache("geocode", false)
	}

	p, err := s.geocoder.Geocode(ctx, query)
	switch {
	case errors.Is(err, domain.ErrLocationNotFound):
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return nil, err
	case err != nil:
		metrics.GeocodeRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("geocode %q: %w", query, err)
	case p == nil || !p.Coordinates.Valid():
		metrics.GeocodeRequests.WithLabelValues("not_found").Inc()
		return nil, domain.ErrLocationNotFound
	}
	metrics.GeocodeRequests.WithLabelValues("resolved").Inc()

	if s.cache != nil {
		if data, err := json.Marshal(p); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}
	return p, nil
}
