package geospatial

import (
	"math"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

// ZoomScale controls how a zoom level maps to a bounding box half-width.
// half-width = BaseHalfWidth * Factor^(zoom - BaselineZoom) degrees.
type ZoomScale struct {
	BaseHalfWidth float64 `mapstructure:"base_half_width"`
	Factor        float64 `mapstructure:"factor"`
	BaselineZoom  int     `mapstructure:"baseline_zoom"`
}

// DefaultZoomScale is 0.02 degrees at zoom 13, shrinking by 0.8 per level.
var DefaultZoomScale = ZoomScale{BaseHalfWidth: 0.02, Factor: 0.8, BaselineZoom: 13}

// HalfWidth returns the half-width in degrees for zoom.
func (z ZoomScale) HalfWidth(zoom int) float64 {
	return z.BaseHalfWidth * math.Pow(z.Factor, float64(zoom-z.BaselineZoom))
}

// BoundsFor returns the rectangle around center for zoom.
func (z ZoomScale) BoundsFor(center domain.Coordinate, zoom int) domain.Bounds {
	half := z.HalfWidth(zoom)
	return domain.Bounds{
		North: center.Lat + half,
		South: center.Lat - half,
		East:  center.Lng + half,
		West:  center.Lng - half,
	}
}

// BoundsFor computes bounds with DefaultZoomScale.
func BoundsFor(center domain.Coordinate, zoom int) domain.Bounds {
	return DefaultZoomScale.BoundsFor(center, zoom)
}

// Project maps coord into a width x height viewport spanning bounds.
// Longitude runs west→east along x; latitude runs north→south along y because
// pixel y grows downward. Coordinates outside bounds project outside the viewport.
func Project(coord domain.Coordinate, b domain.Bounds, width, height float64) domain.Pixel {
	var p domain.Pixel
	if span := b.LngSpan(); span != 0 {
		p.X = (coord.Lng - b.West) / span * width
	}
	if span := b.LatSpan(); span != 0 {
		p.Y = (b.North - coord.Lat) / span * height
	}
	return p
}

// Unproject is the inverse of Project.
func Unproject(px domain.Pixel, b domain.Bounds, width, height float64) domain.Coordinate {
	var c domain.Coordinate
	c.Lng = b.West
	c.Lat = b.North
	if width != 0 {
		c.Lng += px.X / width * b.LngSpan()
	}
	if height != 0 {
		c.Lat -= px.Y / height * b.LatSpan()
	}
	return c
}

// ClampCoordinate pulls c back inside the valid lat/lng range.
func ClampCoordinate(c domain.Coordinate) domain.Coordinate {
	c.Lat = math.Max(-90, math.Min(90, c.Lat))
	c.Lng = math.Max(-180, math.Min(180, c.Lng))
	return c
}
