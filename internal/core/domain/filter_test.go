package domain_test

import (
	"math"
	"testing"

	"github.com/samirrijal/barterbay/internal/core/domain"
)

func TestFilterConfig_NormalizeNonFinite(t *testing.T) {
	tests := []struct {
		name               string
		min, max, distance float64
		wantMin, wantMax   float64
		wantDistance       float64
	}{
		{"infinite distance", 0, 500, math.Inf(1), 0, 500, domain.DefaultDistanceMiles},
		{"infinite max", 10, math.Inf(1), 5, 10, domain.DefaultMaxValue, 5},
		{"negative infinite min", math.Inf(-1), 200, 5, 0, 200, 5},
		{"NaN everywhere", math.NaN(), math.NaN(), math.NaN(), 0, domain.DefaultMaxValue, domain.DefaultDistanceMiles},
		{"inverted range", 300, 100, 0, 100, 300, domain.DefaultDistanceMiles},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := domain.FilterConfig{MinValue: tc.min, MaxValue: tc.max, DistanceMiles: tc.distance}
			f.Normalize()

			if f.MinValue != tc.wantMin || f.MaxValue != tc.wantMax {
				t.Errorf("expected range %v-%v, got %v-%v", tc.wantMin, tc.wantMax, f.MinValue, f.MaxValue)
			}
			if f.DistanceMiles != tc.wantDistance {
				t.Errorf("expected distance %v, got %v", tc.wantDistance, f.DistanceMiles)
			}
			if f.Categories == nil || f.Conditions == nil || f.Ratings == nil {
				t.Error("expected empty sets, not nil")
			}
		})
	}
}
