package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/mapview"
	"github.com/samirrijal/barterbay/internal/pkg/geospatial"
	"github.com/samirrijal/barterbay/internal/pkg/metrics"
	"github.com/samirrijal/barterbay/internal/pkg/telemetry"
)

// ErrSessionClosed is returned by commands sent after the session stopped.
var ErrSessionClosed = errors.New("search session closed")

// LocationResolver turns location text into a place. GeocodeService implements it.
type LocationResolver interface {
	Resolve(ctx context.Context, query string) (*domain.Place, error)
}

// ControllerConfig tunes a search session.
type ControllerConfig struct {
	Debounce        time.Duration
	LocationTimeout time.Duration
	QueueSize       int
}

// DefaultControllerConfig debounces text for 250ms and gives lookups 8s.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{Debounce: 250 * time.Millisecond, LocationTimeout: 8 * time.Second, QueueSize: 64}
}

// SessionResult is the single derived value a session exposes.
type SessionResult struct {
	Version         uint64              `json:"version"`
	Filter          domain.FilterConfig `json:"filter"`
	UserLocation    *domain.Coordinate  `json:"user_location,omitempty"`
	Place           *domain.Place       `json:"place,omitempty"`
	LocationPending bool                `json:"location_pending"`
	LocationError   string              `json:"location_error,omitempty"`
	Listings        []domain.Listing    `json:"listings"`
	MapMode         bool                `json:"map_mode"`
	Map             *MapResult          `json:"map,omitempty"`
	ViewportState   string              `json:"viewport_state,omitempty"`
	LastError       string              `json:"last_error,omitempty"`
}

type effect uint8

const (
	recompute effect = 1 << iota
	debounce
	lookup
	viewportMoved
)

type command func(s *sessionState) effect

type lookupResult struct {
	seq   uint64
	place *domain.Place
	err   error
}

// sessionState is owned by the Run goroutine.
type sessionState struct {
	filter          domain.FilterConfig
	pendingText     *string
	device          *domain.Coordinate
	place           *domain.Place
	locationSeq     uint64
	locationPending bool
	locationErr     string
	mapMode         bool
	cluster         bool
	viewport        *mapview.Viewport
	lastErr         string
}

func (s *sessionState) userLocation() *domain.Coordinate {
	if s.place != nil {
		c := s.place.Coordinates
		return &c
	}
	return s.device
}

// SearchController turns a stream of user input into a filtered, optionally
// map-projected listing set. Commands are queued and applied by a single
// goroutine started with Run; bursts are coalesced into one recompute.
type SearchController struct {
	id       string
	search   *SearchService
	resolver LocationResolver
	cfg      ControllerConfig

	cmds    chan command
	lookups chan lookupResult
	updates chan SessionResult
	done    chan struct{}

	state   sessionState
	version uint64

	mu     sync.RWMutex
	result SessionResult
}

// NewSearchController creates a session. resolver may be nil, in which case
// location text never resolves.
func NewSearchController(id string, search *SearchService, resolver LocationResolver, cfg ControllerConfig) *SearchController {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.LocationTimeout <= 0 {
		cfg.LocationTimeout = DefaultControllerConfig().LocationTimeout
	}
	mapCfg := search.MapConfig()
	return &SearchController{
		id:       id,
		search:   search,
		resolver: resolver,
		cfg:      cfg,
		cmds:     make(chan command, cfg.QueueSize),
		lookups:  make(chan lookupResult, 1),
		updates:  make(chan SessionResult, 1),
		done:     make(chan struct{}),
		state: sessionState{
			filter:   domain.DefaultFilterConfig(),
			viewport: mapview.New(mapCfg.DefaultCenter, mapCfg.DefaultZoom, mapCfg),
		},
	}
}

func (c *SearchController) ID() string { return c.id }

// Snapshot returns the latest result.
func (c *SearchController) Snapshot() SessionResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Updates delivers results as they are computed. Slow readers only see the
// newest one. The channel is closed when Run returns.
func (c *SearchController) Updates() <-chan SessionResult { return c.updates }

// Done is closed when Run returns.
func (c *SearchController) Done() <-chan struct{} { return c.done }

// Run applies commands until ctx is cancelled. It must be called exactly once.
func (c *SearchController) Run(ctx context.Context) error {
	defer close(c.updates)
	defer close(c.done)

	slog.Debug("search session started", "session", c.id)
	defer slog.Debug("search session stopped", "session", c.id)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	var debounceC <-chan time.Time

	c.recompute(ctx, false)

	for {
		var eff effect
		announce := false

		select {
		case <-ctx.Done():
			return ctx.Err()

		case cmd := <-c.cmds:
			// Rejections from every command in the burst are reported together.
			c.state.lastErr = ""
			eff = c.apply(cmd)
			eff |= c.drain()

		case res := <-c.lookups:
			eff = c.settleLookup(res)
			announce = eff&recompute != 0

		case <-debounceC:
			debounceC = nil
			if c.state.pendingText != nil {
				c.state.filter.TextQuery = strings.TrimSpace(*c.state.pendingText)
				c.state.pendingText = nil
				eff = recompute
				announce = true
			}
		}

		if eff&lookup != 0 && c.state.locationPending && c.state.filter.LocationQuery != "" {
			go c.lookup(ctx, c.state.locationSeq, c.state.filter.LocationQuery)
		}
		if eff&debounce != 0 && c.state.pendingText != nil {
			if c.cfg.Debounce <= 0 {
				c.state.filter.TextQuery = strings.TrimSpace(*c.state.pendingText)
				c.state.pendingText = nil
				eff |= recompute
			} else {
				timer.Reset(c.cfg.Debounce)
				debounceC = timer.C
			}
		}
		if eff&recompute != 0 {
			c.recompute(ctx, announce)
		}
		if eff&viewportMoved != 0 && c.state.viewport.State() == mapview.Idle {
			ref := c.state.viewport.Ref()
			go c.search.ViewportChanged(context.WithoutCancel(ctx), c.id, ref)
		}
	}
}

// drain applies whatever is already queued so a burst costs one recompute.
func (c *SearchController) drain() effect {
	var eff effect
	for i := 0; i < cap(c.cmds); i++ {
		select {
		case cmd := <-c.cmds:
			eff |= c.apply(cmd)
		default:
			return eff
		}
	}
	return eff
}

func (c *SearchController) apply(cmd command) effect {
	eff := cmd(&c.state)
	c.state.filter.Normalize()
	return eff
}

func (c *SearchController) settleLookup(res lookupResult) effect {
	s := &c.state
	if res.seq != s.locationSeq {
		metrics.StaleLookups.Inc()
		return 0
	}
	s.locationPending = false
	if res.err != nil {
		s.place = nil
		s.locationErr = "location not found"
		if !errors.Is(res.err, domain.ErrLocationNotFound) {
			slog.Warn("location lookup failed", "session", c.id, "error", res.err)
		}
		return recompute
	}
	s.place = res.place
	s.locationErr = ""
	if s.mapMode {
		s.viewport.Recenter(res.place.Coordinates)
		return recompute | viewportMoved
	}
	return recompute
}

func (c *SearchController) lookup(ctx context.Context, seq uint64, query string) {
	lctx, cancel := context.WithTimeout(ctx, c.cfg.LocationTimeout)
	defer cancel()

	ch := make(chan lookupResult, 1)
	go func() {
		var res lookupResult
		if c.resolver == nil {
			res.err = domain.ErrLocationNotFound
		} else {
			res.place, res.err = c.resolver.Resolve(lctx, query)
			if res.err == nil && res.place == nil {
				res.err = domain.ErrLocationNotFound
			}
		}
		res.seq = seq
		ch <- res
	}()

	var res lookupResult
	select {
	case res = <-ch:
	case <-lctx.Done():
		res = lookupResult{seq: seq, err: lctx.Err()}
	}

	select {
	case c.lookups <- res:
	case <-ctx.Done():
	}
}

func (c *SearchController) recompute(ctx context.Context, announce bool) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionCompute)
	defer span.End()

	s := &c.state
	req := SearchRequest{SessionID: c.id, Filter: s.filter, UserLocation: s.userLocation()}

	var res SearchResult
	if announce {
		res = c.search.Search(ctx, req)
	} else {
		res = c.search.Filter(ctx, req)
	}

	out := SessionResult{
		Filter:          res.Filter,
		UserLocation:    res.UserLocation,
		Place:           s.place,
		LocationPending: s.locationPending,
		LocationError:   s.locationErr,
		Listings:        res.Listings,
		MapMode:         s.mapMode,
		LastError:       s.lastErr,
	}
	if s.mapMode {
		m := c.search.Place(s.viewport, res.Listings, s.cluster)
		out.Map = &m
		out.ViewportState = s.viewport.State().String()
	}

	c.version++
	out.Version = c.version
	metrics.SessionRecomputes.Inc()

	c.mu.Lock()
	c.result = out
	c.mu.Unlock()

	select {
	case c.updates <- out:
	default:
		select {
		case <-c.updates:
		default:
		}
		c.updates <- out
	}
}

func (c *SearchController) send(ctx context.Context, kind string, fn func(s *sessionState) effect) error {
	select {
	case <-c.done:
		return ErrSessionClosed
	default:
	}
	metrics.SessionCommands.WithLabelValues(kind).Inc()
	select {
	case c.cmds <- fn:
		return nil
	case <-c.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetText updates the free-text query. It takes effect after the debounce interval.
func (c *SearchController) SetText(ctx context.Context, q string) error {
	return c.send(ctx, "text", func(s *sessionState) effect {
		s.pendingText = &q
		return debounce
	})
}

// SetLocationQuery stores location text and starts resolving it. A newer
// query supersedes any lookup still in flight. Blank text clears the place.
func (c *SearchController) SetLocationQuery(ctx context.Context, q string) error {
	return c.send(ctx, "location", func(s *sessionState) effect {
		s.filter.LocationQuery = strings.TrimSpace(q)
		s.locationSeq++
		s.place = nil
		s.locationErr = ""
		if s.filter.LocationQuery == "" {
			s.locationPending = false
			return recompute
		}
		s.locationPending = true
		return recompute | lookup
	})
}

// SetDeviceLocation records the device geolocation. nil means it is unavailable.
func (c *SearchController) SetDeviceLocation(ctx context.Context, loc *domain.Coordinate) error {
	var device *domain.Coordinate
	if loc != nil && loc.Valid() {
		l := *loc
		device = &l
	}
	return c.send(ctx, "geolocation", func(s *sessionState) effect {
		s.device = device
		return recompute
	})
}

func (c *SearchController) SetRadius(ctx context.Context, miles float64) error {
	return c.send(ctx, "radius", func(s *sessionState) effect {
		s.filter.DistanceMiles = miles
		return recompute
	})
}

func (c *SearchController) SetValueRange(ctx context.Context, min, max float64) error {
	return c.send(ctx, "value_range", func(s *sessionState) effect {
		s.filter.MinValue, s.filter.MaxValue = min, max
		return recompute
	})
}

func (c *SearchController) SetWorldwide(ctx context.Context, on bool) error {
	return c.send(ctx, "worldwide", func(s *sessionState) effect {
		s.filter.IncludeWorldwide = on
		return recompute
	})
}

func (c *SearchController) ToggleCategory(ctx context.Context, label string) error {
	return c.send(ctx, "category", func(s *sessionState) effect {
		s.filter.Categories.Toggle(label)
		return recompute
	})
}

func (c *SearchController) ToggleCondition(ctx context.Context, label string) error {
	return c.send(ctx, "condition", func(s *sessionState) effect {
		s.filter.Conditions.Toggle(label)
		return recompute
	})
}

func (c *SearchController) ToggleRating(ctx context.Context, label string) error {
	return c.send(ctx, "rating", func(s *sessionState) effect {
		s.filter.Ratings.Toggle(label)
		return recompute
	})
}

// Clear restores every facet to its default and drops pending text and the resolved place.
func (c *SearchController) Clear(ctx context.Context) error {
	return c.send(ctx, "clear", func(s *sessionState) effect {
		s.filter.Clear()
		s.pendingText = nil
		s.place = nil
		s.locationSeq++
		s.locationPending = false
		s.locationErr = ""
		return recompute
	})
}

// SetMapMode switches viewport clipping and projection on or off.
func (c *SearchController) SetMapMode(ctx context.Context, on, cluster bool) error {
	return c.send(ctx, "map_mode", func(s *sessionState) effect {
		s.mapMode, s.cluster = on, cluster
		return recompute
	})
}

func (c *SearchController) BeginDrag(ctx context.Context) error {
	return c.viewportCmd(ctx, "begin_drag", func(v *mapview.Viewport) error { return v.BeginDrag() })
}

func (c *SearchController) EndDrag(ctx context.Context) error {
	return c.viewportCmd(ctx, "end_drag", func(v *mapview.Viewport) error { v.EndDrag(); return nil })
}

func (c *SearchController) BeginZoom(ctx context.Context) error {
	return c.viewportCmd(ctx, "begin_zoom", func(v *mapview.Viewport) error { return v.BeginZoom() })
}

func (c *SearchController) EndZoom(ctx context.Context) error {
	return c.viewportCmd(ctx, "end_zoom", func(v *mapview.Viewport) error { v.EndZoom(); return nil })
}

func (c *SearchController) Pan(ctx context.Context, dx, dy float64) error {
	return c.viewportCmd(ctx, "pan", func(v *mapview.Viewport) error { return v.Pan(dx, dy) })
}

func (c *SearchController) Zoom(ctx context.Context, delta int) error {
	return c.viewportCmd(ctx, "zoom", func(v *mapview.Viewport) error {
		_, err := v.Zoom(delta)
		return err
	})
}

// Recenter moves the map to to. Invalid coordinates are ignored.
func (c *SearchController) Recenter(ctx context.Context, to domain.Coordinate) error {
	return c.viewportCmd(ctx, "recenter", func(v *mapview.Viewport) error {
		v.Recenter(to)
		return nil
	})
}

// RecenterOnUser moves the map to the current user location, if one is known.
func (c *SearchController) RecenterOnUser(ctx context.Context) error {
	return c.send(ctx, "recenter_user", func(s *sessionState) effect {
		loc := s.userLocation()
		if loc == nil || !s.viewport.Recenter(*loc) {
			return 0
		}
		return c.viewportEffect(s)
	})
}

// FitResults zooms and centers the map on the extent of the current results.
func (c *SearchController) FitResults(ctx context.Context) error {
	return c.send(ctx, "fit", func(s *sessionState) effect {
		b, ok := c.extentOfCurrent()
		if !ok || !s.viewport.Fit(b) {
			return 0
		}
		return c.viewportEffect(s)
	})
}

// extentOfCurrent is only called from the Run goroutine, which owns c.result writes.
func (c *SearchController) extentOfCurrent() (domain.Bounds, bool) {
	return geospatial.ExtentOf(c.result.Listings)
}

func (c *SearchController) Resize(ctx context.Context, width, height float64) error {
	return c.viewportCmd(ctx, "resize", func(v *mapview.Viewport) error {
		v.Resize(width, height)
		return nil
	})
}

// viewportCmd waits until the command is applied so a rejected transition is
// returned to the caller as well as reported in the next result.
func (c *SearchController) viewportCmd(ctx context.Context, kind string, fn func(v *mapview.Viewport) error) error {
	reply := make(chan error, 1)
	err := c.send(ctx, kind, func(s *sessionState) effect {
		if err := fn(s.viewport); err != nil {
			reply <- err
			if s.lastErr != "" {
				s.lastErr += "; "
			}
			s.lastErr += err.Error()
			slog.Debug("viewport command rejected", "session", c.id, "command", kind, "error", err)
			return recompute
		}
		reply <- nil
		return c.viewportEffect(s)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-c.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *SearchController) viewportEffect(s *sessionState) effect {
	if !s.mapMode {
		return viewportMoved
	}
	return recompute | viewportMoved
}
