package http

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

const maxQueryLength = 200

// searchQuery is a search or map request after parsing, before normalisation.
type searchQuery struct {
	Filter       domain.FilterConfig
	UserLocation *domain.Coordinate
	Center       *domain.Coordinate
	Zoom         int
	Width        float64
	Height       float64
	Cluster      bool
}

// searchBody is the JSON form accepted by POST /v1/search and POST /v1/map.
type searchBody struct {
	Filter       *domain.FilterConfig `json:"filter"`
	UserLocation *domain.Coordinate   `json:"user_location"`
	Center       *domain.Coordinate   `json:"center"`
	Zoom         int                  `json:"zoom"`
	Width        float64              `json:"width"`
	Height       float64              `json:"height"`
	Cluster      bool                 `json:"cluster"`
}

// parseSearch reads a searchQuery from the query string (GET) or JSON body (POST).
// Malformed numbers and out-of-range coordinates are rejected; inverted ranges
// and non-positive radii are left for FilterConfig.Normalize.
func parseSearch(c *fiber.Ctx) (searchQuery, error) {
	if c.Method() == fiber.MethodPost {
		return parseSearchBody(c)
	}
	return parseSearchQuery(c)
}

func parseSearchBody(c *fiber.Ctx) (searchQuery, error) {
	f := domain.DefaultFilterConfig()
	body := searchBody{Filter: &f}
	if err := c.BodyParser(&body); err != nil {
		return searchQuery{}, errors.New("invalid request body")
	}
	if body.Filter == nil {
		body.Filter = &f
	}
	sq := searchQuery{
		Filter:       *body.Filter,
		UserLocation: body.UserLocation,
		Center:       body.Center,
		Zoom:         body.Zoom,
		Width:        body.Width,
		Height:       body.Height,
		Cluster:      body.Cluster,
	}
	if sq.UserLocation != nil && !sq.UserLocation.Valid() {
		return searchQuery{}, fmt.Errorf("%w: user_location", domain.ErrInvalidCoordinate)
	}
	if sq.Center != nil && !sq.Center.Valid() {
		return searchQuery{}, fmt.Errorf("%w: center", domain.ErrInvalidCoordinate)
	}
	return sq, validateText(sq.Filter)
}

func parseSearchQuery(c *fiber.Ctx) (searchQuery, error) {
	f := domain.DefaultFilterConfig()
	f.TextQuery = c.Query("q")
	f.LocationQuery = c.Query("location")
	f.Categories = domain.NewSet(multiValue(c, "category")...)
	f.Conditions = domain.NewSet(multiValue(c, "condition")...)
	f.Ratings = domain.NewSet(multiValue(c, "rating")...)
	f.IncludeWorldwide = c.QueryBool("worldwide", false)

	var err error
	if f.MinValue, err = queryFloat(c, "min_value", f.MinValue); err != nil {
		return searchQuery{}, err
	}
	if f.MaxValue, err = queryFloat(c, "max_value", f.MaxValue); err != nil {
		return searchQuery{}, err
	}
	if f.DistanceMiles, err = queryFloat(c, "distance", f.DistanceMiles); err != nil {
		return searchQuery{}, err
	}

	sq := searchQuery{
		Filter:  f,
		Zoom:    c.QueryInt("zoom", 0),
		Cluster: c.QueryBool("cluster", false),
	}
	if sq.Width, err = queryFloat(c, "width", 0); err != nil {
		return searchQuery{}, err
	}
	if sq.Height, err = queryFloat(c, "height", 0); err != nil {
		return searchQuery{}, err
	}
	if sq.UserLocation, err = queryCoordinate(c, "lat", "lng"); err != nil {
		return searchQuery{}, err
	}
	if sq.Center, err = queryCoordinate(c, "center_lat", "center_lng"); err != nil {
		return searchQuery{}, err
	}
	return sq, validateText(f)
}

func validateText(f domain.FilterConfig) error {
	if len(f.TextQuery) > maxQueryLength || len(f.LocationQuery) > maxQueryLength {
		return fmt.Errorf("query too long (max %d characters)", maxQueryLength)
	}
	return nil
}

// multiValue collects a repeatable parameter; each occurrence may also be comma-separated.
func multiValue(c *fiber.Ctx, key string) []string {
	var out []string
	for _, raw := range c.Context().QueryArgs().PeekMulti(key) {
		for _, v := range strings.Split(string(raw), ",") {
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
	}
	return out
}

func queryFloat(c *fiber.Ctx, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a finite number", key)
	}
	return v, nil
}

func queryCoordinate(c *fiber.Ctx, latKey, lngKey string) (*domain.Coordinate, error) {
	rawLat, rawLng := c.Query(latKey), c.Query(lngKey)
	if rawLat == "" && rawLng == "" {
		return nil, nil
	}
	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lng, errLng := strconv.ParseFloat(rawLng, 64)
	if errLat != nil || errLng != nil {
		return nil, fmt.Errorf("%s and %s must both be numbers", latKey, lngKey)
	}
	co := domain.Coordinate{Lat: lat, Lng: lng}
	if !co.Valid() {
		return nil, fmt.Errorf("%w: %s,%s", domain.ErrInvalidCoordinate, rawLat, rawLng)
	}
	return &co, nil
}

// resolveLocation fills the user location from the location text when the
// client sent no coordinate. A failed lookup leaves the location unset and is
// reported back as a message, never as a request failure.
func resolveLocation(c *fiber.Ctx, deps *Dependencies, sq *searchQuery) (*domain.Place, string) {
	if sq.UserLocation != nil {
		return nil, ""
	}
	place, msg := locate(c.UserContext(), deps, sq.Filter.LocationQuery)
	if place != nil {
		loc := place.Coordinates
		sq.UserLocation = &loc
	}
	return place, msg
}

func locate(ctx context.Context, deps *Dependencies, query string) (*domain.Place, string) {
	q := strings.TrimSpace(query)
	if q == "" || deps.Geocode == nil {
		return nil, ""
	}
	if d := deps.Sessions.LocationTimeout; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	place, err := deps.Geocode.Resolve(ctx, q)
	if err != nil {
		if !errors.Is(err, domain.ErrLocationNotFound) {
			LoggerFromCtx(ctx).Warn("location lookup failed", "query", q, "error", err)
		}
		return nil, err.Error()
	}
	return place, ""
}
