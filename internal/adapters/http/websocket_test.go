package http

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/listing"
	"github.com/samirrijal/barterbay/internal/core/mapview"
	"github.com/samirrijal/barterbay/internal/core/usecases"
)

func startSession(t *testing.T) *usecases.SearchController {
	t.Helper()
	idx := listing.NewIndex([]domain.Listing{
		{ID: "cam", Title: "Vintage Camera", Category: "Electronics", Condition: domain.ConditionGood, EstimatedValue: 150, OwnerRating: 4.6, Coordinates: domain.Coordinate{Lat: 40.7130, Lng: -74.0050}},
		{ID: "bike", Title: "Road Bike", Category: "Sports", Condition: domain.ConditionLikeNew, EstimatedValue: 400, OwnerRating: 3.9, Coordinates: domain.Coordinate{Lat: 40.7200, Lng: -74.0100}},
	})
	search := usecases.NewSearchService(idx, nil, mapview.DefaultConfig())
	s := usecases.NewSearchController("ws-test", search, nil, usecases.ControllerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { _ = s.Run(ctx); close(done) }()
	t.Cleanup(func() { cancel(); <-done })
	return s
}

func awaitResult(t *testing.T, s *usecases.SearchController, pred func(usecases.SessionResult) bool) usecases.SessionResult {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if r := s.Snapshot(); pred(r) {
			return r
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met, last result: %+v", s.Snapshot())
	return usecases.SessionResult{}
}

func decodeCommand(t *testing.T, raw string) wsCommand {
	t.Helper()
	var m wsCommand
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestDispatch_DrivesSession(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	for _, raw := range []string{
		`{"type":"toggle_category","label":"Electronics"}`,
		`{"type":"set_text","text":"camera"}`,
		`{"type":"map_mode","on":true,"cluster":true}`,
		`{"type":"zoom","delta":1}`,
	} {
		if err := dispatch(ctx, s, decodeCommand(t, raw)); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
	}

	r := awaitResult(t, s, func(r usecases.SessionResult) bool {
		return r.Filter.TextQuery == "camera" && r.Map != nil && r.Map.Viewport.Zoom == 14
	})
	if len(r.Listings) != 1 || r.Listings[0].ID != "cam" {
		t.Errorf("expected only the camera, got %+v", r.Listings)
	}
	if len(r.Map.Clusters) != 1 {
		t.Errorf("expected one cluster, got %d", len(r.Map.Clusters))
	}
}

func TestDispatch_DeviceLocationAndRecenter(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	if err := dispatch(ctx, s, decodeCommand(t, `{"type":"set_device_location","lat":40.7128,"lng":-74.006}`)); err != nil {
		t.Fatal(err)
	}
	awaitResult(t, s, func(r usecases.SessionResult) bool { return r.UserLocation != nil })

	if err := dispatch(ctx, s, decodeCommand(t, `{"type":"set_device_location"}`)); err != nil {
		t.Fatal(err)
	}
	awaitResult(t, s, func(r usecases.SessionResult) bool { return r.UserLocation == nil })

	_ = dispatch(ctx, s, decodeCommand(t, `{"type":"map_mode","on":true}`))
	if err := dispatch(ctx, s, decodeCommand(t, `{"type":"recenter","lat":40.72,"lng":-74.01}`)); err != nil {
		t.Fatal(err)
	}
	awaitResult(t, s, func(r usecases.SessionResult) bool {
		return r.Map != nil && r.Map.Viewport.Center == domain.Coordinate{Lat: 40.72, Lng: -74.01}
	})
}

func TestDispatch_Rejects(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	if err := dispatch(ctx, s, wsCommand{Type: "teleport"}); !errors.Is(err, errUnknownCommand) {
		t.Errorf("expected errUnknownCommand, got %v", err)
	}
	if err := dispatch(ctx, s, decodeCommand(t, `{"type":"recenter"}`)); err == nil {
		t.Error("recenter without a coordinate should fail")
	}
	if err := dispatch(ctx, s, decodeCommand(t, `{"type":"set_device_location","lat":1}`)); err == nil {
		t.Error("a coordinate needs both lat and lng")
	}
}

func TestDispatch_ZoomWhileDraggingReturnsError(t *testing.T) {
	s := startSession(t)
	ctx := context.Background()

	for _, raw := range []string{`{"type":"map_mode","on":true}`, `{"type":"begin_drag"}`} {
		if err := dispatch(ctx, s, decodeCommand(t, raw)); err != nil {
			t.Fatalf("%s: %v", raw, err)
		}
	}

	err := dispatch(ctx, s, decodeCommand(t, `{"type":"zoom","delta":1}`))
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition for the client, got %v", err)
	}
	if err := dispatch(ctx, s, decodeCommand(t, `{"type":"set_radius","value":10}`)); err != nil {
		t.Fatal(err)
	}

	r := awaitResult(t, s, func(r usecases.SessionResult) bool { return r.Filter.DistanceMiles == 10 })
	if r.Map == nil || r.Map.Viewport.Zoom != 13 {
		t.Errorf("rejected zoom must leave the viewport alone, got %+v", r.Map)
	}
}

func TestEtagMatches(t *testing.T) {
	etag := `W/"abc"`
	tests := []struct {
		header string
		want   bool
	}{
		{"", false},
		{`W/"abc"`, true},
		{`"abc"`, true},
		{`"x", W/"abc"`, true},
		{"*", true},
		{`"abd"`, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, etag); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}
