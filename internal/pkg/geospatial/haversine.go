package geospatial

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

const earthRadiusMiles = 3958.8

// DistanceMiles returns the great-circle distance between a and b in miles.
// Invalid coordinates yield +Inf so callers exclude them from radius checks.
func DistanceMiles(a, b domain.Coordinate) float64 {
	if !a.Valid() || !b.Valid() {
		return math.Inf(1)
	}
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Haversine calculates the great-circle distance in miles between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMiles * c
}

// IsInBounds reports whether c lies inside b, edges included.
func IsInBounds(c domain.Coordinate, b domain.Bounds) bool {
	if !c.Valid() {
		return false
	}
	return ToOrbBound(b).Contains(orb.Point{c.Lng, c.Lat})
}

// ToOrbBound converts map bounds to an orb.Bound (x = lng, y = lat).
func ToOrbBound(b domain.Bounds) orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// ExtentOf returns the smallest bounds containing every valid listing coordinate.
// found is false when no listing has a valid coordinate.
func ExtentOf(listings []domain.Listing) (b domain.Bounds, found bool) {
	var bound orb.Bound
	for _, l := range listings {
		if !l.Coordinates.Valid() {
			continue
		}
		p := orb.Point{l.Coordinates.Lng, l.Coordinates.Lat}
		if !found {
			bound = orb.Bound{Min: p, Max: p}
			found = true
			continue
		}
		bound = bound.Extend(p)
	}
	if !found {
		return domain.Bounds{}, false
	}
	return domain.Bounds{
		North: bound.Max[1],
		South: bound.Min[1],
		East:  bound.Max[0],
		West:  bound.Min[0],
	}, true
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
