package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/usecases"
)

// searchResponse is a page of search results plus how the location was resolved.
type searchResponse struct {
	Filter        domain.FilterConfig `json:"filter"`
	UserLocation  *domain.Coordinate  `json:"user_location,omitempty"`
	Place         *domain.Place       `json:"place,omitempty"`
	LocationError string              `json:"location_error,omitempty"`
	Data          []domain.Listing    `json:"data"`
	Pagination    Pagination          `json:"pagination"`
}

// mapResponse is a map view plus how the location was resolved.
type mapResponse struct {
	usecases.MapResult
	Filter        domain.FilterConfig `json:"filter"`
	UserLocation  *domain.Coordinate  `json:"user_location,omitempty"`
	Place         *domain.Place       `json:"place,omitempty"`
	LocationError string              `json:"location_error,omitempty"`
}

// IndexStatus describes the in-memory listing index.
type IndexStatus struct {
	Listings  int    `json:"listings"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// ListListingsHandler returns the listing catalogue from the store, paginated.
func ListListingsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset, limit := pageParams(c, 20, 100)

		listings, total, err := deps.Listings.List(c.UserContext(), limit, offset)
		if err != nil {
			return errFromDomain(c, err)
		}
		if listings == nil {
			listings = []domain.Listing{}
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: listings, Pagination: pg})
	}
}

// GetListingHandler returns a single listing by ID.
func GetListingHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Params("id"))
		if id == "" {
			return errBadRequest(c, "listing id is required")
		}
		l, err := deps.Listings.GetByID(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(l)
	}
}

// SearchHandler filters the listing index.
// GET /v1/search?q=camera&category=Electronics&rating=4%2B+Stars&lat=40.7&lng=-74&distance=25
// POST /v1/search {"filter":{...},"user_location":{"lat":..,"lng":..}}
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sq, err := parseSearch(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		place, locErr := resolveLocation(c, deps, &sq)

		res := deps.Search.Search(c.UserContext(), usecases.SearchRequest{
			SessionID:    RequestIDFromCtx(c.UserContext()),
			Filter:       sq.Filter,
			UserLocation: sq.UserLocation,
		})

		offset, limit := pageParams(c, 50, 200)
		pg := Pagination{Offset: offset, Limit: limit, Total: res.Total}
		SetLinkHeaders(c, pg)
		return c.JSON(searchResponse{
			Filter:        res.Filter,
			UserLocation:  res.UserLocation,
			Place:         place,
			LocationError: locErr,
			Data:          page(res.Listings, offset, limit),
			Pagination:    pg,
		})
	}
}

// MapHandler filters the listing index and places the matches on a viewport.
// The viewport centers on center_lat/center_lng, then the user location, then
// the configured default.
func MapHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sq, err := parseSearch(c)
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		if sq.Width < 0 || sq.Height < 0 || sq.Width > 8192 || sq.Height > 8192 {
			return errBadRequest(c, "width and height must be between 1 and 8192 pixels")
		}
		place, locErr := resolveLocation(c, deps, &sq)

		center := deps.Search.MapConfig().DefaultCenter
		switch {
		case sq.Center != nil:
			center = *sq.Center
		case sq.UserLocation != nil:
			center = *sq.UserLocation
		}

		res := deps.Search.MapView(c.UserContext(), usecases.MapRequest{
			SearchRequest: usecases.SearchRequest{
				SessionID:    RequestIDFromCtx(c.UserContext()),
				Filter:       sq.Filter,
				UserLocation: sq.UserLocation,
			},
			Center:  center,
			Zoom:    sq.Zoom,
			Width:   sq.Width,
			Height:  sq.Height,
			Cluster: sq.Cluster,
		})

		filter := sq.Filter.Clone()
		filter.Normalize()
		return c.JSON(mapResponse{
			MapResult:     res,
			Filter:        filter,
			UserLocation:  sq.UserLocation,
			Place:         place,
			LocationError: locErr,
		})
	}
}

// GeocodeHandler resolves location text to a coordinate.
func GeocodeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q query parameter is required")
		}
		if len(q) > maxQueryLength {
			return errBadRequest(c, "query too long (max 200 characters)")
		}
		if deps.Geocode == nil {
			return errUnavailable(c, "geocoding not configured")
		}

		place, err := deps.Geocode.Resolve(c.UserContext(), q)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(place)
	}
}

// IndexStatusHandler reports the size and age of the listing index.
func IndexStatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		idx := deps.Listings.Index()
		st := IndexStatus{Listings: idx.Len()}
		if t := idx.UpdatedAt(); !t.IsZero() {
			st.UpdatedAt = t.UTC().Format(time.RFC3339)
		}
		c.Set("Cache-Control", "public, max-age=10")
		return c.JSON(st)
	}
}
