//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	handler "github.com/samirrijal/barterbay/internal/adapters/http"
	"github.com/samirrijal/barterbay/internal/adapters/postgres"
	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/listing"
	"github.com/samirrijal/barterbay/internal/core/mapview"
	"github.com/samirrijal/barterbay/internal/core/usecases"
	"github.com/samirrijal/barterbay/internal/pkg/config"
)

// setupTestDB connects to the test database described by the usual config.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("barterbay-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	return db
}

// seedListings stores listings under a run-unique ID prefix and returns them.
func seedListings(t *testing.T, repo *postgres.ListingRepo) []domain.Listing {
	prefix := "it-" + time.Now().Format("20060102150405.000") + "-"
	seeded := fixtureListings()
	for i := range seeded {
		seeded[i].ID = prefix + seeded[i].ID
		seeded[i].CreatedAt = time.Now().UTC()
	}
	if err := repo.UpsertBatch(context.Background(), seeded); err != nil {
		t.Fatalf("seed listings: %v", err)
	}
	return seeded
}

// setupTestDeps wires real repos and a refreshed index, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *handler.Dependencies {
	repo := postgres.NewListingRepo(db)
	idx := listing.NewIndex(nil)
	listings := usecases.NewListingService(repo, nil, nil, idx, 0)
	if _, err := listings.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh index: %v", err)
	}
	return &handler.Dependencies{
		Listings: listings,
		Search:   usecases.NewSearchService(idx, nil, mapview.DefaultConfig()),
		Sessions: usecases.DefaultControllerConfig(),
		DB:       db,
	}
}

func TestGetListing_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	seeded := seedListings(t, postgres.NewListingRepo(db))

	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/listings/"+seeded[0].ID, nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var l domain.Listing
	if err := json.NewDecoder(resp.Body).Decode(&l); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if l.Title != seeded[0].Title || l.Coordinates != seeded[0].Coordinates {
		t.Errorf("round trip mismatch: %+v", l)
	}
}

func TestListListings_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	seedListings(t, postgres.NewListingRepo(db))

	app := setupApp(setupTestDeps(t, db))

	resp, err := app.Test(httptest.NewRequest("GET", "/v1/listings?limit=2", nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	var result struct {
		Data       []domain.Listing    `json:"data"`
		Pagination struct{ Total int } `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.Pagination.Total < 4 || len(result.Data) != 2 {
		t.Errorf("expected a page of 2 out of at least 4, got %d of %d", len(result.Data), result.Pagination.Total)
	}
}

func TestSearch_Integration_DistanceFromStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Close()
	seeded := seedListings(t, postgres.NewListingRepo(db))

	app := setupApp(setupTestDeps(t, db))

	target := fmt.Sprintf("/v1/search?lat=%v&lng=%v&distance=1&q=%s", 40.7128, -74.0060, "vintage")
	resp, err := app.Test(httptest.NewRequest("GET", target, nil), -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}
	var page searchPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	found := false
	for _, l := range page.Data {
		if l.ID == seeded[0].ID {
			found = true
		}
		if l.DistanceMiles == nil || *l.DistanceMiles > 1 {
			t.Errorf("listing %s outside the radius: %v", l.ID, l.DistanceMiles)
		}
	}
	if !found {
		t.Errorf("expected seeded camera %s in results", seeded[0].ID)
	}
}
