package usecases

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/facet"
	"github.com/samirrijal/barterbay/internal/core/listing"
	"github.com/samirrijal/barterbay/internal/core/mapview"
	"github.com/samirrijal/barterbay/internal/core/ports"
	"github.com/samirrijal/barterbay/internal/pkg/metrics"
	"github.com/samirrijal/barterbay/internal/pkg/telemetry"
)

// SearchRequest is one stateless search over the listing index.
type SearchRequest struct {
	SessionID    string
	Filter       domain.FilterConfig
	UserLocation *domain.Coordinate
}

// SearchResult is the filtered listing set for a request.
type SearchResult struct {
	Filter       domain.FilterConfig `json:"filter"`
	UserLocation *domain.Coordinate  `json:"user_location,omitempty"`
	Listings     []domain.Listing    `json:"listings"`
	Total        int                 `json:"total"`
}

// MapRequest is a search clipped to a map viewport.
type MapRequest struct {
	SearchRequest
	Center  domain.Coordinate
	Zoom    int
	Width   float64
	Height  float64
	Cluster bool
}

// MapResult places the filtered listings that fall inside the viewport.
type MapResult struct {
	Viewport    domain.ViewportRef  `json:"viewport"`
	Matched     int                 `json:"matched"`
	Projections []domain.Projection `json:"projections"`
	Clusters    []domain.Cluster    `json:"clusters,omitempty"`
}

// SearchService applies facets to the listing index and places results on a map.
type SearchService struct {
	index     *listing.Index
	publisher ports.EventPublisher
	mapCfg    mapview.Config
}

// NewSearchService creates a new SearchService. publisher may be nil.
func NewSearchService(index *listing.Index, publisher ports.EventPublisher, mapCfg mapview.Config) *SearchService {
	return &SearchService{index: index, publisher: publisher, mapCfg: mapCfg}
}

// MapConfig returns the viewport configuration new sessions start from.
func (s *SearchService) MapConfig() mapview.Config { return s.mapCfg }

// Search normalises the filter and narrows the current index snapshot. When a
// user location is known, results carry their distance from it.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) SearchResult {
	res := s.filter(ctx, req, "list")
	s.publishSearch(ctx, req, len(res.Listings), nil)
	return res
}

// MapView runs a search and keeps only the listings visible in the requested viewport.
func (s *SearchService) MapView(ctx context.Context, req MapRequest) MapResult {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMapView)
	defer span.End()

	cfg := s.mapCfg
	if req.Width > 0 {
		cfg.Width = req.Width
	}
	if req.Height > 0 {
		cfg.Height = req.Height
	}
	zoom := req.Zoom
	if zoom == 0 {
		zoom = cfg.DefaultZoom
	}
	vp := mapview.New(req.Center, zoom, cfg)

	res := s.filter(ctx, req.SearchRequest, "map")
	out := s.Place(vp, res.Listings, req.Cluster)
	out.Matched = len(res.Listings)

	span.SetAttributes(
		attribute.Int("map.zoom", vp.ZoomLevel()),
		attribute.Int("map.visible", len(out.Projections)),
	)
	ref := vp.Ref()
	s.publishSearch(ctx, req.SearchRequest, len(out.Projections), &ref)
	return out
}

// Place runs the visibility pass for listings against vp.
func (s *SearchService) Place(vp *mapview.Viewport, listings []domain.Listing, cluster bool) MapResult {
	out := MapResult{
		Viewport:    vp.Ref(),
		Matched:     len(listings),
		Projections: vp.Visible(listings),
	}
	if cluster {
		out.Clusters = vp.Cluster(out.Projections)
	}
	return out
}

// Filter is Search without the analytics event, for callers that publish their own.
func (s *SearchService) Filter(ctx context.Context, req SearchRequest) SearchResult {
	return s.filter(ctx, req, "session")
}

func (s *SearchService) filter(ctx context.Context, req SearchRequest, mode string) SearchResult {
	_, span := telemetry.Tracer().Start(ctx, telemetry.SpanSearch)
	defer span.End()

	start := time.Now()
	cfg := req.Filter.Clone()
	cfg.Normalize()

	loc := req.UserLocation
	if loc != nil && !loc.Valid() {
		loc = nil
	}

	matched := facet.Apply(s.index.Snapshot(), cfg, loc)
	if loc != nil {
		matched = facet.Annotate(matched, *loc)
	}

	metrics.SearchDuration.WithLabelValues(mode).Observe(time.Since(start).Seconds())
	metrics.SearchResults.WithLabelValues(mode).Observe(float64(len(matched)))
	span.SetAttributes(
		attribute.String("search.mode", mode),
		attribute.Int("search.results", len(matched)),
		attribute.Bool("search.worldwide", cfg.IncludeWorldwide),
		attribute.Bool("search.located", loc != nil),
	)

	return SearchResult{Filter: cfg, UserLocation: loc, Listings: matched, Total: len(matched)}
}

func (s *SearchService) publishSearch(ctx context.Context, req SearchRequest, count int, vp *domain.ViewportRef) {
	if s.publisher == nil {
		return
	}
	ev := &domain.SearchEvent{
		Time:         time.Now().UTC(),
		SessionID:    req.SessionID,
		TextQuery:    req.Filter.TextQuery,
		Categories:   req.Filter.Categories.Sorted(),
		Worldwide:    req.Filter.IncludeWorldwide,
		UserLocation: req.UserLocation,
		ResultCount:  count,
		Viewport:     vp,
	}
	if err := s.publisher.PublishSearchPerformed(ctx, ev); err != nil {
		slog.Debug("publish search event", "error", err)
	}
}

// ViewportChanged announces a session's settled viewport.
func (s *SearchService) ViewportChanged(ctx context.Context, sessionID string, vp domain.ViewportRef) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishViewportChanged(ctx, sessionID, vp); err != nil {
		slog.Debug("publish viewport event", "error", err)
	}
}
