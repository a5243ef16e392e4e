package mapview

import (
	"math"

	"github.com/mmcloughlin/geohash"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/pkg/geospatial"
)

const maxGeohashPrecision = 12

// ClusterPrecision returns the geohash length used to group markers at zoom.
// It grows by one character every four zoom levels above MinZoom.
func (v *Viewport) ClusterPrecision() uint {
	p := int(v.cfg.ClusterPrecision) + (v.zoom-v.cfg.MinZoom)/4
	return uint(clampInt(p, 1, maxGeohashPrecision))
}

// Cluster groups projections that fall in the same geohash cell. Clusters are
// returned in order of their first member; the cluster position is the mean
// of its members' coordinates projected into the current viewport.
func (v *Viewport) Cluster(projections []domain.Projection) []domain.Cluster {
	precision := v.ClusterPrecision()

	type acc struct {
		cluster domain.Cluster
		sumLat  float64
		sumLng  float64
	}
	cells := make(map[string]*acc)
	var order []string

	for _, p := range projections {
		c := p.Listing.Coordinates
		hash := geohash.EncodeWithPrecision(c.Lat, c.Lng, precision)
		a, ok := cells[hash]
		if !ok {
			a = &acc{cluster: domain.Cluster{
				Geohash:  hash,
				MinValue: math.Inf(1),
				MaxValue: math.Inf(-1),
			}}
			cells[hash] = a
			order = append(order, hash)
		}
		a.sumLat += c.Lat
		a.sumLng += c.Lng
		a.cluster.Count++
		a.cluster.ListingIDs = append(a.cluster.ListingIDs, p.Listing.ID)
		a.cluster.MinValue = math.Min(a.cluster.MinValue, p.Listing.EstimatedValue)
		a.cluster.MaxValue = math.Max(a.cluster.MaxValue, p.Listing.EstimatedValue)
	}

	out := make([]domain.Cluster, 0, len(order))
	for _, hash := range order {
		a := cells[hash]
		n := float64(a.cluster.Count)
		a.cluster.Center = domain.Coordinate{Lat: a.sumLat / n, Lng: a.sumLng / n}
		px := geospatial.Project(a.cluster.Center, v.bounds, v.cfg.Width, v.cfg.Height)
		a.cluster.X, a.cluster.Y = px.X, px.Y
		out = append(out, a.cluster)
	}
	return out
}

// CellBounds returns the rectangle covered by a cluster's geohash cell.
func CellBounds(hash string) domain.Bounds {
	box := geohash.BoundingBox(hash)
	return domain.Bounds{North: box.MaxLat, South: box.MinLat, East: box.MaxLng, West: box.MinLng}
}
