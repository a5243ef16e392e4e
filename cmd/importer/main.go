package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	natsadapter "github.com/samirrijal/barterbay/internal/adapters/nats"
	"github.com/samirrijal/barterbay/internal/adapters/postgres"
	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/listing"
	"github.com/samirrijal/barterbay/internal/core/ports"
	"github.com/samirrijal/barterbay/internal/core/usecases"
	"github.com/samirrijal/barterbay/internal/pkg/config"
	"github.com/samirrijal/barterbay/internal/pkg/logging"
)

// importFile is either a bare array of listings or {"listings": [...]}.
type importFile struct {
	Source   string           `json:"source"`
	Listings []domain.Listing `json:"listings"`
}

func main() {
	path := "listings.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load("barterbay-importer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	listings, err := readListings(path)
	if err != nil {
		log.Fatalf("read %s: %v", path, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Running API instances reload on listings.imported; importing still works without NATS.
	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, index refresh will wait for the next tick", "error", err)
	} else {
		defer pub.Close()
		events = pub
	}

	svc := usecases.NewListingService(postgres.NewListingRepo(db), nil, events, listing.NewIndex(nil), 0)

	start := time.Now()
	n, err := svc.Import(ctx, listings)
	if err != nil && n == 0 {
		log.Fatalf("import: %v", err)
	}
	if err != nil {
		slog.Warn("some listings were skipped", "error", err)
	}
	slog.Info("import complete", "file", path, "read", len(listings), "stored", n, "took", time.Since(start))
}

func readListings(path string) ([]domain.Listing, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var listings []domain.Listing
		if err := json.Unmarshal(data, &listings); err != nil {
			return nil, fmt.Errorf("parse listings: %w", err)
		}
		return listings, nil
	}
	var f importFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse listings: %w", err)
	}
	return f.Listings, nil
}
