package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/usecases"
	"github.com/samirrijal/barterbay/internal/pkg/metrics"
)

// wsCommand is sent by the client to drive its search session.
// Clients send JSON such as {"type":"set_text","text":"camera"} or
// {"type":"pan","dx":40,"dy":-10}. Fields a command does not use are ignored.
type wsCommand struct {
	Type    string   `json:"type"`
	Text    string   `json:"text"`
	Label   string   `json:"label"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	Value   float64  `json:"value"`
	Min     float64  `json:"min"`
	Max     float64  `json:"max"`
	On      bool     `json:"on"`
	Cluster bool     `json:"cluster"`
	DX      float64  `json:"dx"`
	DY      float64  `json:"dy"`
	Delta   int      `json:"delta"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
}

// wsEvent is pushed to the client: a fresh session result or a command error.
type wsEvent struct {
	Type    string                  `json:"type"` // "result" | "error"
	Session string                  `json:"session,omitempty"`
	Result  *usecases.SessionResult `json:"result,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

var errUnknownCommand = errors.New("unknown command")

func (m wsCommand) coordinate() (*domain.Coordinate, error) {
	if m.Lat == nil && m.Lng == nil {
		return nil, nil
	}
	if m.Lat == nil || m.Lng == nil {
		return nil, errors.New("lat and lng must be given together")
	}
	return &domain.Coordinate{Lat: *m.Lat, Lng: *m.Lng}, nil
}

// dispatch forwards one client command to the session.
func dispatch(ctx context.Context, s *usecases.SearchController, m wsCommand) error {
	switch m.Type {
	case "set_text":
		return s.SetText(ctx, m.Text)
	case "set_location":
		return s.SetLocationQuery(ctx, m.Text)
	case "set_device_location":
		loc, err := m.coordinate()
		if err != nil {
			return err
		}
		return s.SetDeviceLocation(ctx, loc)
	case "set_radius":
		return s.SetRadius(ctx, m.Value)
	case "set_value_range":
		return s.SetValueRange(ctx, m.Min, m.Max)
	case "set_worldwide":
		return s.SetWorldwide(ctx, m.On)
	case "toggle_category":
		return s.ToggleCategory(ctx, m.Label)
	case "toggle_condition":
		return s.ToggleCondition(ctx, m.Label)
	case "toggle_rating":
		return s.ToggleRating(ctx, m.Label)
	case "clear":
		return s.Clear(ctx)
	case "map_mode":
		return s.SetMapMode(ctx, m.On, m.Cluster)
	case "begin_drag":
		return s.BeginDrag(ctx)
	case "end_drag":
		return s.EndDrag(ctx)
	case "begin_zoom":
		return s.BeginZoom(ctx)
	case "end_zoom":
		return s.EndZoom(ctx)
	case "pan":
		return s.Pan(ctx, m.DX, m.DY)
	case "zoom":
		return s.Zoom(ctx, m.Delta)
	case "recenter":
		loc, err := m.coordinate()
		if err != nil {
			return err
		}
		if loc == nil {
			return errors.New("lat and lng are required")
		}
		return s.Recenter(ctx, *loc)
	case "recenter_on_user":
		return s.RecenterOnUser(ctx)
	case "fit_results":
		return s.FitResults(ctx)
	case "resize":
		return s.Resize(ctx, m.Width, m.Height)
	}
	return fmt.Errorf("%w: %q", errUnknownCommand, m.Type)
}

// MapSessionHandler returns a handler that runs one search session per
// WebSocket connection. Every recomputed session result is pushed to the
// client; only the newest is sent when the client falls behind.
func MapSessionHandler(deps *Dependencies) func(*websocket.Conn) {
	var seq atomic.Uint64

	return func(c *websocket.Conn) {
		defer c.Close()

		id, _ := c.Locals("requestid").(string)
		if id == "" {
			id = fmt.Sprintf("ws-%d", seq.Add(1))
		}
		log := slog.Default().With("session", id, "remote", c.RemoteAddr().String())
		log.Info("map session opened")

		metrics.ActiveMapSessions.Inc()
		defer metrics.ActiveMapSessions.Dec()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		session := usecases.NewSearchController(id, deps.Search, deps.resolver(), deps.Sessions)
		go func() { _ = session.Run(ctx) }()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		// Push results and keep-alive pings
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case r, ok := <-session.Updates():
					if !ok {
						return
					}
					if err := writeJSON(wsEvent{Type: "result", Session: id, Result: &r}); err != nil {
						cancel()
						return
					}
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						cancel()
						return
					}
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsCommand
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(wsEvent{Type: "error", Error: "invalid JSON"})
				continue
			}
			if err := dispatch(ctx, session, m); err != nil {
				if errors.Is(err, usecases.ErrSessionClosed) || errors.Is(err, context.Canceled) {
					break
				}
				_ = writeJSON(wsEvent{Type: "error", Error: err.Error()})
			}
		}

		cancel()
		<-writerDone
		log.Info("map session closed")
	}
}
