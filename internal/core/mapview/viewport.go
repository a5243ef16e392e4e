// Package mapview owns the map viewport: center, zoom and the bounds derived
// from them, plus the visibility pass that places listings on screen.
package mapview

import (
	"fmt"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/pkg/geospatial"
)

// State is the gesture the viewport is currently in.
type State int

const (
	Idle State = iota
	Dragging
	Zooming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Zooming:
		return "zooming"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Config holds the presentation constants a viewport is built with.
type Config struct {
	Scale         geospatial.ZoomScale `mapstructure:"zoom_scale"`
	MinZoom       int                  `mapstructure:"min_zoom"`
	MaxZoom       int                  `mapstructure:"max_zoom"`
	DefaultZoom   int                  `mapstructure:"default_zoom"`
	DefaultCenter domain.Coordinate    `mapstructure:"default_center"`
	Width         float64              `mapstructure:"width"`
	Height        float64              `mapstructure:"height"`
	// ClusterPrecision is the geohash length used at MinZoom.
	ClusterPrecision uint    `mapstructure:"cluster_precision"`
	Palette          Palette `mapstructure:"palette"`
}

// DefaultConfig matches the reference map: zoom 8..18 starting at 13 over New York.
func DefaultConfig() Config {
	return Config{
		Scale:            geospatial.DefaultZoomScale,
		MinZoom:          8,
		MaxZoom:          18,
		DefaultZoom:      13,
		DefaultCenter:    domain.Coordinate{Lat: 40.7128, Lng: -74.0060},
		Width:            800,
		Height:           600,
		ClusterPrecision: 6,
		Palette:          DefaultPalette(),
	}
}

// Viewport is not safe for concurrent use; a search session owns one.
type Viewport struct {
	cfg    Config
	center domain.Coordinate
	zoom   int
	bounds domain.Bounds
	state  State
}

// New creates a viewport in Idle. An invalid center falls back to cfg.DefaultCenter
// and zoom is clamped to the configured range.
func New(center domain.Coordinate, zoom int, cfg Config) *Viewport {
	if cfg.MinZoom > cfg.MaxZoom {
		cfg.MinZoom, cfg.MaxZoom = cfg.MaxZoom, cfg.MinZoom
	}
	if !center.Valid() {
		center = cfg.DefaultCenter
	}
	v := &Viewport{cfg: cfg, center: center, zoom: clampInt(zoom, cfg.MinZoom, cfg.MaxZoom)}
	v.recompute()
	return v
}

func (v *Viewport) State() State              { return v.state }
func (v *Viewport) Center() domain.Coordinate { return v.center }
func (v *Viewport) ZoomLevel() int            { return v.zoom }
func (v *Viewport) Bounds() domain.Bounds     { return v.bounds }
func (v *Viewport) Config() Config            { return v.cfg }

// Ref returns the serialisable view of the viewport.
func (v *Viewport) Ref() domain.ViewportRef {
	return domain.ViewportRef{Center: v.center, Zoom: v.zoom, Bounds: v.bounds}
}

// BeginDrag moves Idle to Dragging. Calling it while already dragging is a no-op.
func (v *Viewport) BeginDrag() error {
	switch v.state {
	case Idle, Dragging:
		v.state = Dragging
		return nil
	}
	return fmt.Errorf("begin drag while %s: %w", v.state, domain.ErrInvalidTransition)
}

// EndDrag returns to Idle from Dragging.
func (v *Viewport) EndDrag() {
	if v.state == Dragging {
		v.state = Idle
	}
}

// BeginZoom moves Idle to Zooming for multi-step gestures such as a pinch.
func (v *Viewport) BeginZoom() error {
	switch v.state {
	case Idle, Zooming:
		v.state = Zooming
		return nil
	}
	return fmt.Errorf("begin zoom while %s: %w", v.state, domain.ErrInvalidTransition)
}

// EndZoom returns to Idle from Zooming.
func (v *Viewport) EndZoom() {
	if v.state == Zooming {
		v.state = Idle
	}
}

// Pan moves the map content by (dx, dy) pixels. Dragging content right moves
// the center west; dragging it down moves the center north.
func (v *Viewport) Pan(dx, dy float64) error {
	if v.state != Idle && v.state != Dragging {
		return fmt.Errorf("pan while %s: %w", v.state, domain.ErrInvalidTransition)
	}
	if v.cfg.Width <= 0 || v.cfg.Height <= 0 {
		return nil
	}
	target := domain.Pixel{X: v.cfg.Width/2 - dx, Y: v.cfg.Height/2 - dy}
	v.center = geospatial.ClampCoordinate(geospatial.Unproject(target, v.bounds, v.cfg.Width, v.cfg.Height))
	v.recompute()
	return nil
}

// Zoom changes the zoom level by delta, clamped to the configured range, and
// returns the new level. A standalone call passes through Zooming back to Idle.
func (v *Viewport) Zoom(delta int) (int, error) {
	prev := v.state
	if err := v.BeginZoom(); err != nil {
		return v.zoom, err
	}
	v.zoom = clampInt(v.zoom+delta, v.cfg.MinZoom, v.cfg.MaxZoom)
	v.recompute()
	if prev == Idle {
		v.EndZoom()
	}
	return v.zoom, nil
}

// Recenter moves the center to c keeping the zoom. Invalid coordinates are
// ignored and reported as false.
func (v *Viewport) Recenter(c domain.Coordinate) bool {
	if !c.Valid() {
		return false
	}
	v.center = c
	v.recompute()
	return true
}

// Fit recenters on the middle of b and picks the deepest zoom whose bounds
// still cover it.
func (v *Viewport) Fit(b domain.Bounds) bool {
	c := b.Center()
	if !c.Valid() {
		return false
	}
	v.center = c
	v.zoom = v.cfg.MinZoom
	for z := v.cfg.MaxZoom; z >= v.cfg.MinZoom; z-- {
		half := v.cfg.Scale.HalfWidth(z)
		if half*2 >= b.LatSpan() && half*2 >= b.LngSpan() {
			v.zoom = z
			break
		}
	}
	v.recompute()
	return true
}

// Resize changes the pixel size used for projection. Non-positive sizes are ignored.
func (v *Viewport) Resize(width, height float64) {
	if width > 0 {
		v.cfg.Width = width
	}
	if height > 0 {
		v.cfg.Height = height
	}
}

// Visible returns a projection for every listing inside the current bounds,
// in input order. listings is not modified.
func (v *Viewport) Visible(listings []domain.Listing) []domain.Projection {
	out := make([]domain.Projection, 0, len(listings))
	for _, l := range listings {
		if !geospatial.IsInBounds(l.Coordinates, v.bounds) {
			continue
		}
		px := geospatial.Project(l.Coordinates, v.bounds, v.cfg.Width, v.cfg.Height)
		out = append(out, domain.Projection{
			Listing: l,
			X:       px.X,
			Y:       px.Y,
			Color:   v.cfg.Palette.ColorFor(l.Category),
		})
	}
	return out
}

func (v *Viewport) recompute() {
	v.bounds = v.cfg.Scale.BoundsFor(v.center, v.zoom)
}

func clampInt(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
