package mapview

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

var origin = domain.Coordinate{Lat: 40, Lng: -74}

func newTestViewport() *Viewport {
	return New(origin, 13, DefaultConfig())
}

func TestNew_ClampsZoomAndFallsBackOnInvalidCenter(t *testing.T) {
	cfg := DefaultConfig()

	v := New(domain.Coordinate{Lat: math.NaN()}, 40, cfg)
	assert.Equal(t, cfg.DefaultCenter, v.Center())
	assert.Equal(t, 18, v.ZoomLevel())
	assert.Equal(t, Idle, v.State())

	v = New(origin, 2, cfg)
	assert.Equal(t, 8, v.ZoomLevel())
}

func TestBounds_DerivedFromCenterAndZoom(t *testing.T) {
	v := newTestViewport()
	b := v.Bounds()

	assert.InDelta(t, 40.02, b.North, 1e-12)
	assert.InDelta(t, 39.98, b.South, 1e-12)
	assert.InDelta(t, -73.98, b.East, 1e-12)
	assert.InDelta(t, -74.02, b.West, 1e-12)
}

func TestZoom_ShrinksBoundsAndClamps(t *testing.T) {
	v := newTestViewport()
	before := v.Bounds()

	z, err := v.Zoom(2)
	require.NoError(t, err)
	assert.Equal(t, 15, z)
	after := v.Bounds()
	assert.Less(t, after.LatSpan(), before.LatSpan())
	assert.Less(t, after.LngSpan(), before.LngSpan())
	assert.Equal(t, origin, v.Center())
	assert.Equal(t, Idle, v.State())

	z, _ = v.Zoom(100)
	assert.Equal(t, 18, z)
	z, _ = v.Zoom(-100)
	assert.Equal(t, 8, z)
}

func TestPan_Direction(t *testing.T) {
	v := newTestViewport()

	require.NoError(t, v.Pan(100, 0))
	assert.InDelta(t, -74.005, v.Center().Lng, 1e-9, "dragging right moves center west")
	assert.InDelta(t, 40, v.Center().Lat, 1e-9)

	require.NoError(t, v.Pan(0, 60))
	assert.InDelta(t, 40.004, v.Center().Lat, 1e-9, "dragging down moves center north")

	b := v.Bounds()
	assert.InDelta(t, v.Center().Lat, b.Center().Lat, 1e-9)
	assert.InDelta(t, v.Center().Lng, b.Center().Lng, 1e-9)
}

func TestPan_ClampsToValidRange(t *testing.T) {
	v := New(domain.Coordinate{Lat: 89.99, Lng: 0}, 8, DefaultConfig())

	require.NoError(t, v.Pan(0, 100000))
	assert.Equal(t, 90.0, v.Center().Lat)
}

func TestStateMachine(t *testing.T) {
	v := newTestViewport()

	require.NoError(t, v.BeginDrag())
	assert.Equal(t, Dragging, v.State())
	require.NoError(t, v.Pan(10, 10), "pan allowed while dragging")

	_, err := v.Zoom(1)
	assert.True(t, errors.Is(err, domain.ErrInvalidTransition))
	assert.Equal(t, 13, v.ZoomLevel())

	v.EndDrag()
	assert.Equal(t, Idle, v.State())

	require.NoError(t, v.BeginZoom())
	err = v.Pan(5, 5)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.ErrorIs(t, v.BeginDrag(), domain.ErrInvalidTransition)

	z, err := v.Zoom(1)
	require.NoError(t, err)
	assert.Equal(t, 14, z)
	assert.Equal(t, Zooming, v.State(), "zoom inside a gesture stays zooming")

	v.EndZoom()
	assert.Equal(t, Idle, v.State())
}

func TestRecenter(t *testing.T) {
	v := newTestViewport()
	target := domain.Coordinate{Lat: 43.263, Lng: -2.935}

	assert.True(t, v.Recenter(target))
	assert.Equal(t, target, v.Center())
	assert.Equal(t, 13, v.ZoomLevel())

	assert.False(t, v.Recenter(domain.Coordinate{Lat: 120, Lng: 0}))
	assert.Equal(t, target, v.Center())
}

func TestFit(t *testing.T) {
	v := newTestViewport()

	ok := v.Fit(domain.Bounds{North: 40.03, South: 40.0, East: -73.99, West: -74.0})
	require.True(t, ok)
	assert.Equal(t, 14, v.ZoomLevel())
	assert.InDelta(t, 40.015, v.Center().Lat, 1e-9)

	v.Fit(domain.Bounds{North: 50, South: 30, East: -60, West: -80})
	assert.Equal(t, 8, v.ZoomLevel())
}

func TestVisible_ClipsAndProjects(t *testing.T) {
	v := newTestViewport()
	listings := []domain.Listing{
		{ID: "center", Category: "Electronics", Coordinates: origin},
		{ID: "far", Category: "Books", Coordinates: domain.Coordinate{Lat: 41, Lng: -74}},
		{ID: "nw", Category: "unknown", Coordinates: domain.Coordinate{Lat: 40.0199, Lng: -74.0199}},
		{ID: "bad", Coordinates: domain.Coordinate{Lat: math.Inf(1), Lng: 0}},
	}

	got := v.Visible(listings)
	require.Len(t, got, 2)

	assert.Equal(t, "center", got[0].Listing.ID)
	assert.InDelta(t, 400, got[0].X, 1e-6)
	assert.InDelta(t, 300, got[0].Y, 1e-6)
	assert.Equal(t, "#3b82f6", got[0].Color)

	assert.Equal(t, "nw", got[1].Listing.ID)
	assert.InDelta(t, 2, got[1].X, 1e-3)
	assert.InDelta(t, 1.5, got[1].Y, 1e-3)
	assert.Equal(t, DefaultPalette().Fallback, got[1].Color)

	assert.Len(t, listings, 4, "visibility pass leaves the input intact")
}

func TestVisible_FollowsZoom(t *testing.T) {
	v := newTestViewport()
	edge := []domain.Listing{{ID: "edge", Coordinates: domain.Coordinate{Lat: 40.019, Lng: -74}}}

	assert.Len(t, v.Visible(edge), 1)
	_, _ = v.Zoom(2)
	assert.Len(t, v.Visible(edge), 0)
}

func TestCluster(t *testing.T) {
	v := newTestViewport()
	listings := []domain.Listing{
		{ID: "a", EstimatedValue: 10, Coordinates: origin},
		{ID: "b", EstimatedValue: 90, Coordinates: domain.Coordinate{Lat: 40.015, Lng: -73.985}},
		{ID: "c", EstimatedValue: 30, Coordinates: origin},
	}

	assert.Equal(t, uint(7), v.ClusterPrecision())
	clusters := v.Cluster(v.Visible(listings))
	require.Len(t, clusters, 2)

	first := clusters[0]
	assert.Equal(t, 2, first.Count)
	assert.Equal(t, []string{"a", "c"}, first.ListingIDs)
	assert.Equal(t, 10.0, first.MinValue)
	assert.Equal(t, 30.0, first.MaxValue)
	assert.InDelta(t, 400, first.X, 1e-6)
	assert.Len(t, first.Geohash, 7)
	assert.True(t, CellBounds(first.Geohash).North >= origin.Lat)

	assert.Equal(t, []string{"b"}, clusters[1].ListingIDs)
}

func TestPalette_CaseInsensitive(t *testing.T) {
	p := DefaultPalette()
	assert.Equal(t, p.ColorFor("electronics"), p.ColorFor("  Electronics "))
	assert.Equal(t, p.Fallback, p.ColorFor("Spaceships"))
}
