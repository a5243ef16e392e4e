package geospatial

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

func TestBoundsFor_Baseline(t *testing.T) {
	b := BoundsFor(domain.Coordinate{Lat: 40, Lng: -74}, 13)

	assert.InDelta(t, 40.02, b.North, 1e-12)
	assert.InDelta(t, 39.98, b.South, 1e-12)
	assert.InDelta(t, -73.98, b.East, 1e-12)
	assert.InDelta(t, -74.02, b.West, 1e-12)
}

func TestBoundsFor_ContainsCenterAtEveryZoom(t *testing.T) {
	centers := []domain.Coordinate{newYork, london, bilbao, {Lat: 0, Lng: 0}, {Lat: -45.5, Lng: 170.1}}
	for _, c := range centers {
		for z := 0; z <= 22; z++ {
			b := BoundsFor(c, z)
			assert.True(t, c.Lat >= b.South && c.Lat <= b.North, "lat %v zoom %d", c, z)
			assert.True(t, c.Lng >= b.West && c.Lng <= b.East, "lng %v zoom %d", c, z)
		}
	}
}

func TestBoundsFor_ZoomInShrinks(t *testing.T) {
	c := domain.Coordinate{Lat: 40, Lng: -74}
	b13 := BoundsFor(c, 13)
	b15 := BoundsFor(c, 15)

	assert.Less(t, b15.LatSpan(), b13.LatSpan())
	assert.Less(t, b15.LngSpan(), b13.LngSpan())
	assert.InDelta(t, b13.LatSpan()*0.64, b15.LatSpan(), 1e-12)
}

func TestZoomScale_Custom(t *testing.T) {
	z := ZoomScale{BaseHalfWidth: 1, Factor: 0.5, BaselineZoom: 10}

	assert.InDelta(t, 1.0, z.HalfWidth(10), 1e-12)
	assert.InDelta(t, 0.25, z.HalfWidth(12), 1e-12)
	assert.InDelta(t, 4.0, z.HalfWidth(8), 1e-12)
}

func TestProject_Corners(t *testing.T) {
	b := domain.Bounds{North: 10, South: 0, East: 20, West: 0}

	nw := Project(domain.Coordinate{Lat: 10, Lng: 0}, b, 800, 600)
	assert.Equal(t, domain.Pixel{X: 0, Y: 0}, nw)

	se := Project(domain.Coordinate{Lat: 0, Lng: 20}, b, 800, 600)
	assert.Equal(t, domain.Pixel{X: 800, Y: 600}, se)

	mid := Project(domain.Coordinate{Lat: 5, Lng: 10}, b, 800, 600)
	assert.Equal(t, domain.Pixel{X: 400, Y: 300}, mid)
}

func TestProject_OutsideBoundsStillProjects(t *testing.T) {
	b := domain.Bounds{North: 10, South: 0, East: 20, West: 0}

	p := Project(domain.Coordinate{Lat: 15, Lng: -5}, b, 800, 600)
	assert.Less(t, p.X, 0.0)
	assert.Less(t, p.Y, 0.0)
}

func TestUnproject_RoundTrip(t *testing.T) {
	b := BoundsFor(bilbao, 14)
	c := domain.Coordinate{Lat: bilbao.Lat + 0.003, Lng: bilbao.Lng - 0.004}

	px := Project(c, b, 1024, 768)
	back := Unproject(px, b, 1024, 768)

	assert.InDelta(t, c.Lat, back.Lat, 1e-9)
	assert.InDelta(t, c.Lng, back.Lng, 1e-9)
}

func TestClampCoordinate(t *testing.T) {
	assert.Equal(t, domain.Coordinate{Lat: 90, Lng: -180}, ClampCoordinate(domain.Coordinate{Lat: 95, Lng: -200}))
	assert.Equal(t, newYork, ClampCoordinate(newYork))
}
