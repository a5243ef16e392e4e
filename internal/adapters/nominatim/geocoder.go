// Package nominatim resolves free-text locations with an OpenStreetMap
// Nominatim server.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org"
	defaultUserAgent = "barterbay/1.0"
	maxBodySize      = 2 << 20
)

// Config configures the geocoder.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Language  string
}

// Geocoder implements ports.Geocoder over the Nominatim search API.
type Geocoder struct {
	endpoint string
	language string
	timeout  time.Duration
	client   *fasthttp.Client
}

type searchItem struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// New creates a Geocoder.
func New(cfg Config) *Geocoder {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	lang := cfg.Language
	if lang == "" {
		lang = "en"
	}
	return &Geocoder{
		endpoint: base + "/search",
		language: lang,
		timeout:  timeout,
		client: &fasthttp.Client{
			Name:                ua,
			ReadTimeout:         timeout,
			WriteTimeout:        timeout,
			MaxResponseBodySize: maxBodySize,
		},
	}
}

// Geocode returns the best match for query, or domain.ErrLocationNotFound.
func (g *Geocoder) Geocode(ctx context.Context, query string) (*domain.Place, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, domain.ErrLocationNotFound
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := url.Values{}
	values.Set("q", q)
	values.Set("format", "jsonv2")
	values.Set("limit", "1")
	values.Set("accept-language", g.language)

	deadline := time.Now().Add(g.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	// fasthttp has no context support; the request runs to its deadline in the
	// background while a cancelled caller returns straight away.
	done := make(chan fetchResult, 1)
	go func() { done <- g.fetch(g.endpoint+"?"+values.Encode(), deadline) }()

	var res fetchResult
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-done:
	}
	if res.err != nil {
		return nil, fmt.Errorf("nominatim request: %w", res.err)
	}

	if res.status != fasthttp.StatusOK {
		body := res.body
		if len(body) > 2048 {
			body = body[:2048]
		}
		return nil, fmt.Errorf("nominatim status %d: %s", res.status, strings.TrimSpace(string(body)))
	}

	var items []searchItem
	if err := json.Unmarshal(res.body, &items); err != nil {
		return nil, fmt.Errorf("decode nominatim response: %w", err)
	}

	for _, item := range items {
		lat, err := strconv.ParseFloat(strings.TrimSpace(item.Lat), 64)
		if err != nil {
			continue
		}
		lng, err := strconv.ParseFloat(strings.TrimSpace(item.Lon), 64)
		if err != nil {
			continue
		}
		c := domain.Coordinate{Lat: lat, Lng: lng}
		if !c.Valid() {
			continue
		}
		return &domain.Place{
			Query:       q,
			DisplayName: strings.TrimSpace(item.DisplayName),
			Coordinates: c,
		}, nil
	}
	return nil, domain.ErrLocationNotFound
}

type fetchResult struct {
	status int
	body   []byte
	err    error
}

// fetch owns the pooled request and response, so the body is copied out.
func (g *Geocoder) fetch(uri string, deadline time.Time) fetchResult {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set("Accept", "application/json")

	if err := g.client.DoDeadline(req, resp, deadline); err != nil {
		return fetchResult{err: err}
	}
	return fetchResult{status: resp.StatusCode(), body: append([]byte(nil), resp.Body()...)}
}
