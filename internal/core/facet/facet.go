// Package facet narrows a listing snapshot by the active search facets.
package facet

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/pkg/geospatial"
)

// Apply returns the listings that pass every active facet in cfg, in input order.
// userLocation may be nil, in which case the distance facet passes everything.
// cfg is used as given; callers normalise it at the boundary.
func Apply(listings []domain.Listing, cfg domain.FilterConfig, userLocation *domain.Coordinate) []domain.Listing {
	out := make([]domain.Listing, 0, len(listings))
	if len(listings) == 0 {
		return out
	}

	m := newMatcher(cfg, userLocation)
	for _, l := range listings {
		if m.match(l) {
			out = append(out, l)
		}
	}
	return out
}

// Annotate returns a copy of listings with DistanceMiles set relative to from.
// Listings with invalid coordinates are left without a distance.
func Annotate(listings []domain.Listing, from domain.Coordinate) []domain.Listing {
	out := make([]domain.Listing, len(listings))
	for i, l := range listings {
		if d := geospatial.DistanceMiles(from, l.Coordinates); !math.IsInf(d, 1) {
			l.DistanceMiles = &d
		}
		out[i] = l
	}
	return out
}

type matcher struct {
	cfg        domain.FilterConfig
	categories map[string]struct{}
	conditions map[string]struct{}
	thresholds []float64
	location   *domain.Coordinate
	text       string
}

func newMatcher(cfg domain.FilterConfig, userLocation *domain.Coordinate) *matcher {
	m := &matcher{cfg: cfg, text: strings.ToLower(strings.TrimSpace(cfg.TextQuery))}

	if len(cfg.Categories) > 0 {
		m.categories = make(map[string]struct{}, len(cfg.Categories))
		for c := range cfg.Categories {
			m.categories[categoryKey(c)] = struct{}{}
		}
	}

	if len(cfg.Conditions) > 0 {
		m.conditions = make(map[string]struct{}, len(cfg.Conditions))
		for c := range cfg.Conditions {
			m.conditions[domain.ConditionKey(c)] = struct{}{}
		}
	}

	for label := range cfg.Ratings {
		if t, ok := ParseRatingThreshold(label); ok {
			m.thresholds = append(m.thresholds, t)
		}
	}

	if !cfg.IncludeWorldwide && userLocation != nil {
		loc := *userLocation
		m.location = &loc
	}
	return m
}

func (m *matcher) match(l domain.Listing) bool {
	if m.categories != nil {
		if _, ok := m.categories[categoryKey(l.Category)]; !ok {
			return false
		}
	}
	if m.conditions != nil {
		if _, ok := m.conditions[domain.ConditionKey(string(l.Condition))]; !ok {
			return false
		}
	}
	if len(m.thresholds) > 0 && !m.meetsAnyThreshold(l.OwnerRating) {
		return false
	}
	if l.EstimatedValue < m.cfg.MinValue || l.EstimatedValue > m.cfg.MaxValue {
		return false
	}
	if m.location != nil && !(geospatial.DistanceMiles(*m.location, l.Coordinates) <= m.cfg.DistanceMiles) {
		return false
	}
	if m.text != "" &&
		!strings.Contains(strings.ToLower(l.Title), m.text) &&
		!strings.Contains(strings.ToLower(l.Description), m.text) {
		return false
	}
	return true
}

// Categories match case-insensitively, like marker colors.
func categoryKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Unparseable rating labels are ignored; if none parse the facet passes all.
func (m *matcher) meetsAnyThreshold(rating float64) bool {
	for _, t := range m.thresholds {
		if rating >= t {
			return true
		}
	}
	return false
}

var ratingPattern = regexp.MustCompile(`^\s*(\d+(?:\.\d+)?)\s*\+?\s*(?:stars?)?\s*$`)

// ParseRatingThreshold reads a rating facet label such as "4+ Stars", "4+",
// "3.5" or "5 stars" as a minimum owner rating.
func ParseRatingThreshold(label string) (float64, bool) {
	sub := ratingPattern.FindStringSubmatch(strings.ToLower(label))
	if sub == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(sub[1], 64)
	if err != nil || v < 0 || v > 5 {
		return 0, false
	}
	return v, true
}
