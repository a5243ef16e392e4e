package domain

import "math"

// Coordinate is a WGS 84 position.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is finite and inside lat [-90,90], lng [-180,180].
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// Bounds is the rectangular lat/lng region visible in a map viewport.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// LatSpan returns north - south.
func (b Bounds) LatSpan() float64 { return b.North - b.South }

// LngSpan returns east - west.
func (b Bounds) LngSpan() float64 { return b.East - b.West }

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() Coordinate {
	return Coordinate{Lat: (b.North + b.South) / 2, Lng: (b.East + b.West) / 2}
}

// Pixel is a position inside a viewport, origin at the top-left corner.
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Projection places a listing on the map.
type Projection struct {
	Listing Listing `json:"listing"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Color   string  `json:"color,omitempty"`
}

// Cluster groups visible projections that share a geohash cell.
type Cluster struct {
	Geohash    string     `json:"geohash"`
	Center     Coordinate `json:"center"`
	X          float64    `json:"x"`
	Y          float64    `json:"y"`
	Count      int        `json:"count"`
	ListingIDs []string   `json:"listing_ids"`
	MinValue   float64    `json:"min_value"`
	MaxValue   float64    `json:"max_value"`
}
