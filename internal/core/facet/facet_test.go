package facet_test

import (
	"testing"

	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/facet"
)

var (
	newYork = domain.Coordinate{Lat: 40.7, Lng: -74.0}
	london  = domain.Coordinate{Lat: 51.5, Lng: -0.12}
)

func sampleListings() []domain.Listing {
	return []domain.Listing{
		{ID: "1", Title: "Vintage Camera", Description: "35mm film body", Category: "Electronics", Condition: domain.ConditionGood, EstimatedValue: 150, OwnerRating: 4.6, Coordinates: domain.Coordinate{Lat: 40.71, Lng: -74.01}},
		{ID: "2", Title: "Road Bike", Description: "Steel frame, new tyres", Category: "Sports", Condition: domain.ConditionLikeNew, EstimatedValue: 400, OwnerRating: 3.9, Coordinates: domain.Coordinate{Lat: 40.75, Lng: -73.98}},
		{ID: "3", Title: "Guitar", Description: "Acoustic, small scratch", Category: "Music", Condition: domain.ConditionFair, EstimatedValue: 250, OwnerRating: 4.9, Coordinates: london},
		{ID: "4", Title: "Board games bundle", Description: "Five classic CAMERA-free games", Category: "Toys", Condition: domain.ConditionExcellent, EstimatedValue: 60, OwnerRating: 2.5, Coordinates: domain.Coordinate{Lat: 40.68, Lng: -73.95}},
		{ID: "5", Title: "Drill", Description: "Cordless", Category: "Tools", Condition: domain.ConditionNew, EstimatedValue: 90, OwnerRating: 5, Coordinates: domain.Coordinate{Lat: 200, Lng: 0}},
	}
}

func ids(listings []domain.Listing) []string {
	out := make([]string, len(listings))
	for i, l := range listings {
		out[i] = l.ID
	}
	return out
}

func equalIDs(t *testing.T, got []domain.Listing, want ...string) {
	t.Helper()
	g := ids(got)
	if len(g) != len(want) {
		t.Fatalf("expected %v, got %v", want, g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, g)
		}
	}
}

func TestApply_EmptyInput(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.Categories.Add("Electronics")
	cfg.TextQuery = "anything"

	got := facet.Apply(nil, cfg, &newYork)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestApply_DefaultConfigWithoutLocationPassesAll(t *testing.T) {
	in := sampleListings()
	got := facet.Apply(in, domain.DefaultFilterConfig(), nil)
	equalIDs(t, got, "1", "2", "3", "4", "5")
}

func TestApply_Categories(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.Categories = domain.NewSet("Music", "Electronics")

	got := facet.Apply(sampleListings(), cfg, nil)
	equalIDs(t, got, "1", "3")
}

func TestApply_CategoriesMatchCaseInsensitively(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.Categories = domain.NewSet("electronics", " MUSIC ")

	got := facet.Apply(sampleListings(), cfg, nil)
	equalIDs(t, got, "1", "3")
}

// Any category selection returns a subset of the unfiltered result, and adding
// a category to the selection can only keep or grow it.
func TestApply_CategorySelectionIsSubsetAndWideningNeverShrinks(t *testing.T) {
	in := sampleListings()
	labels := []string{"Electronics", "Sports", "Music", "Toys", "Tools"}
	all := len(facet.Apply(in, domain.DefaultFilterConfig(), nil))

	prev := 0
	for n := 1; n <= len(labels); n++ {
		cfg := domain.DefaultFilterConfig()
		cfg.Categories = domain.NewSet(labels[:n]...)
		count := len(facet.Apply(in, cfg, nil))
		if count > all {
			t.Fatalf("%d categories returned %d, more than unfiltered %d", n, count, all)
		}
		if count < prev {
			t.Fatalf("widening categories to %d shrank result from %d to %d", n, prev, count)
		}
		prev = count
	}
}

func TestApply_ConditionsMatchAnySpelling(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.Conditions = domain.NewSet("likenew", "New")

	got := facet.Apply(sampleListings(), cfg, nil)
	equalIDs(t, got, "2", "5")
}

func TestApply_RatingThresholdsAreOred(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.Ratings = domain.NewSet("4.5+ Stars")
	equalIDs(t, facet.Apply(sampleListings(), cfg, nil), "1", "3", "5")

	cfg.Ratings.Add("3+ Stars")
	equalIDs(t, facet.Apply(sampleListings(), cfg, nil), "1", "2", "3", "5")
}

func TestApply_UnparseableRatingsIgnored(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.Ratings = domain.NewSet("excellent traders")

	got := facet.Apply(sampleListings(), cfg, nil)
	if len(got) != 5 {
		t.Errorf("expected unparseable rating label to pass all, got %v", ids(got))
	}
}

func TestApply_ValueRange(t *testing.T) {
	in := []domain.Listing{
		{ID: "in", EstimatedValue: 150},
		{ID: "out", EstimatedValue: 250},
		{ID: "low-edge", EstimatedValue: 100},
		{ID: "high-edge", EstimatedValue: 200},
	}
	cfg := domain.DefaultFilterConfig()
	cfg.MinValue, cfg.MaxValue = 100, 200

	equalIDs(t, facet.Apply(in, cfg, nil), "in", "low-edge", "high-edge")
}

func TestApply_Distance(t *testing.T) {
	here := domain.Coordinate{Lat: 40.0, Lng: -74.0}
	in := []domain.Listing{{ID: "same", Coordinates: here}}
	cfg := domain.DefaultFilterConfig()
	cfg.DistanceMiles = 10

	equalIDs(t, facet.Apply(in, cfg, &here), "same")
}

func TestApply_WorldwideSkipsDistance(t *testing.T) {
	in := []domain.Listing{{ID: "london", Coordinates: london}}
	cfg := domain.DefaultFilterConfig()
	cfg.DistanceMiles = 50

	if got := facet.Apply(in, cfg, &newYork); len(got) != 0 {
		t.Fatalf("expected London excluded from 50 miles of New York, got %v", ids(got))
	}

	cfg.IncludeWorldwide = true
	equalIDs(t, facet.Apply(in, cfg, &newYork), "london")
}

func TestApply_InvalidCoordinatesExcludedOnlyByDistance(t *testing.T) {
	cfg := domain.DefaultFilterConfig()

	got := facet.Apply(sampleListings(), cfg, &newYork)
	equalIDs(t, got, "1", "2", "4")

	cfg.IncludeWorldwide = true
	got = facet.Apply(sampleListings(), cfg, &newYork)
	equalIDs(t, got, "1", "2", "3", "4", "5")
}

func TestApply_TextQuery(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.TextQuery = "camera"

	got := facet.Apply(sampleListings(), cfg, nil)
	equalIDs(t, got, "1", "4")
}

func TestApply_AllFacetsConjunctive(t *testing.T) {
	cfg := domain.DefaultFilterConfig()
	cfg.Categories = domain.NewSet("Electronics", "Toys", "Sports")
	cfg.Ratings = domain.NewSet("4+")
	cfg.MaxValue = 300
	cfg.TextQuery = "CAMERA"

	got := facet.Apply(sampleListings(), cfg, &newYork)
	equalIDs(t, got, "1")
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	in := sampleListings()
	cfg := domain.DefaultFilterConfig()
	cfg.Categories = domain.NewSet("Music")

	_ = facet.Apply(in, cfg, nil)
	if len(in) != 5 || in[0].ID != "1" {
		t.Fatalf("input slice changed: %v", ids(in))
	}
}

func TestParseRatingThreshold(t *testing.T) {
	tests := []struct {
		label string
		want  float64
		ok    bool
	}{
		{"4+ Stars", 4, true},
		{"4+", 4, true},
		{"4", 4, true},
		{"3.5+ stars", 3.5, true},
		{"1 star", 1, true},
		{" 5+ ", 5, true},
		{"6+ Stars", 0, false},
		{"great", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := facet.ParseRatingThreshold(tt.label)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ParseRatingThreshold(%q) = %v, %v; want %v, %v", tt.label, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAnnotate(t *testing.T) {
	got := facet.Annotate(sampleListings(), newYork)

	if got[0].DistanceMiles == nil || *got[0].DistanceMiles > 2 {
		t.Errorf("expected short distance for listing 1, got %v", got[0].DistanceMiles)
	}
	if got[4].DistanceMiles != nil {
		t.Errorf("expected no distance for invalid coordinates, got %v", *got[4].DistanceMiles)
	}
	if sampleListings()[0].DistanceMiles != nil {
		t.Error("annotate must not alias input")
	}
}
