package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

// Subjects carrying barterbay events.
const (
	SubjectSearchPerformed  = "search.performed"
	SubjectViewportChanged  = "map.viewport"
	SubjectListingsImported = "listings.imported"
)

// Streams returns the JetStream streams the services rely on.
func Streams() []nats.StreamConfig {
	return []nats.StreamConfig{
		{
			Name:      "SEARCH_ANALYTICS",
			Subjects:  []string{SubjectSearchPerformed, SubjectViewportChanged},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "LISTINGS",
			Subjects:  []string{"listings.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}
}

// Connect dials NATS with reconnects enabled.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}

// EnsureStreams creates the streams or updates them in place.
func EnsureStreams(js nats.JetStreamContext) error {
	for _, cfg := range Streams() {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS, enables JetStream and ensures the streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if err := EnsureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishSearchPerformed(ctx context.Context, event *domain.SearchEvent) error {
	return p.publishJSON(ctx, SubjectSearchPerformed, event)
}

func (p *Publisher) PublishViewportChanged(ctx context.Context, sessionID string, vp domain.ViewportRef) error {
	return p.publishJSON(ctx, SubjectViewportChanged, viewportEvent{
		Time:      time.Now().UTC(),
		SessionID: sessionID,
		Viewport:  vp,
	})
}

func (p *Publisher) PublishListingsImported(ctx context.Context, count int) error {
	_, err := p.js.Publish(SubjectListingsImported, []byte(strconv.Itoa(count)), nats.Context(ctx))
	return err
}

func (p *Publisher) publishJSON(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(subject, data, nats.Context(ctx))
	return err
}

// Conn exposes the connection for subscribers sharing it.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Healthy reports whether the connection is up.
func (p *Publisher) Healthy() bool { return p.conn.IsConnected() }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

type viewportEvent struct {
	Time      time.Time          `json:"time"`
	SessionID string             `json:"session_id"`
	Viewport  domain.ViewportRef `json:"viewport"`
}
