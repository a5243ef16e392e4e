package http

import (
	natsadapter "github.com/samirrijal/barterbay/internal/adapters/nats"
	"github.com/samirrijal/barterbay/internal/adapters/postgres"
	"github.com/samirrijal/barterbay/internal/adapters/valkey"
	"github.com/samirrijal/barterbay/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Listings *usecases.ListingService
	Search   *usecases.SearchService
	Geocode  *usecases.GeocodeService
	Sessions usecases.ControllerConfig

	// RateLimit is requests per minute per IP; zero uses the default.
	RateLimit int

	Events *natsadapter.Publisher
	DB     *postgres.DB
	Cache  *valkey.Cache
}

// resolver returns the geocoder as a LocationResolver, or nil when none is wired.
func (d *Dependencies) resolver() usecases.LocationResolver {
	if d.Geocode == nil {
		return nil
	}
	return d.Geocode
}
