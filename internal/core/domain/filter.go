package domain

import (
	"encoding/json"
	"math"
	"sort"
	"strings"
)

// Default facet values restored by FilterConfig.Clear.
const (
	DefaultMinValue      = 0.0
	DefaultMaxValue      = 1000.0
	DefaultDistanceMiles = 50.0
)

// Set is an unordered collection of facet labels. It marshals as a sorted JSON array.
type Set map[string]struct{}

// NewSet builds a set from labels, skipping blanks.
func NewSet(labels ...string) Set {
	s := make(Set, len(labels))
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

func (s Set) Add(label string) {
	label = strings.TrimSpace(label)
	if label == "" {
		return
	}
	s[label] = struct{}{}
}

func (s Set) Remove(label string) {
	delete(s, strings.TrimSpace(label))
}

// Toggle flips membership and reports whether the label is now present.
func (s Set) Toggle(label string) bool {
	label = strings.TrimSpace(label)
	if _, ok := s[label]; ok {
		delete(s, label)
		return false
	}
	s.Add(label)
	_, ok := s[label]
	return ok
}

func (s Set) Has(label string) bool {
	_, ok := s[label]
	return ok
}

func (s Set) Len() int { return len(s) }

// Sorted returns the labels in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for l := range s {
		c[l] = struct{}{}
	}
	return c
}

func (s Set) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

func (s *Set) UnmarshalJSON(data []byte) error {
	var labels []string
	if err := json.Unmarshal(data, &labels); err != nil {
		return err
	}
	*s = NewSet(labels...)
	return nil
}

// FilterConfig is the full set of active facets for one search.
type FilterConfig struct {
	Categories       Set     `json:"categories"`
	Conditions       Set     `json:"conditions"`
	Ratings          Set     `json:"ratings"`
	MinValue         float64 `json:"min_value"`
	MaxValue         float64 `json:"max_value"`
	DistanceMiles    float64 `json:"distance_miles"`
	IncludeWorldwide bool    `json:"include_worldwide"`
	LocationQuery    string  `json:"location_query,omitempty"`
	TextQuery        string  `json:"text_query,omitempty"`
}

// DefaultFilterConfig returns a config with every facet at its default.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Categories:    Set{},
		Conditions:    Set{},
		Ratings:       Set{},
		MinValue:      DefaultMinValue,
		MaxValue:      DefaultMaxValue,
		DistanceMiles: DefaultDistanceMiles,
	}
}

// Clear resets every facet to its default.
func (f *FilterConfig) Clear() {
	*f = DefaultFilterConfig()
}

// Clone returns a deep copy so the sets can be mutated independently.
func (f FilterConfig) Clone() FilterConfig {
	c := f
	c.Categories = f.Categories.Clone()
	c.Conditions = f.Conditions.Clone()
	c.Ratings = f.Ratings.Clone()
	return c
}

// Normalize repairs an out-of-contract config in place: nil sets become empty,
// negative values clamp to zero, an inverted value range is swapped and a
// non-positive distance falls back to the default radius. Non-finite values
// fall back to their defaults.
func (f *FilterConfig) Normalize() {
	if f.Categories == nil {
		f.Categories = Set{}
	}
	if f.Conditions == nil {
		f.Conditions = Set{}
	}
	if f.Ratings == nil {
		f.Ratings = Set{}
	}
	if !finite(f.MinValue) {
		f.MinValue = DefaultMinValue
	}
	if !finite(f.MaxValue) {
		f.MaxValue = DefaultMaxValue
	}
	if f.MinValue < 0 {
		f.MinValue = 0
	}
	if f.MaxValue < 0 {
		f.MaxValue = 0
	}
	if f.MinValue > f.MaxValue {
		f.MinValue, f.MaxValue = f.MaxValue, f.MinValue
	}
	if !(f.DistanceMiles > 0) || math.IsInf(f.DistanceMiles, 1) {
		f.DistanceMiles = DefaultDistanceMiles
	}
	f.TextQuery = strings.TrimSpace(f.TextQuery)
	f.LocationQuery = strings.TrimSpace(f.LocationQuery)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
