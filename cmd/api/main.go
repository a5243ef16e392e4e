package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/barterbay/internal/adapters/http"
	natsadapter "github.com/samirrijal/barterbay/internal/adapters/nats"
	"github.com/samirrijal/barterbay/internal/adapters/nominatim"
	"github.com/samirrijal/barterbay/internal/adapters/postgres"
	"github.com/samirrijal/barterbay/internal/adapters/valkey"
	"github.com/samirrijal/barterbay/internal/core/domain"
	"github.com/samirrijal/barterbay/internal/core/listing"
	"github.com/samirrijal/barterbay/internal/core/mapview"
	"github.com/samirrijal/barterbay/internal/core/ports"
	"github.com/samirrijal/barterbay/internal/core/usecases"
	"github.com/samirrijal/barterbay/internal/pkg/config"
	"github.com/samirrijal/barterbay/internal/pkg/geospatial"
	"github.com/samirrijal/barterbay/internal/pkg/logging"
	"github.com/samirrijal/barterbay/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("barterbay-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	shutdownTracer, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr, cfg.Telemetry.Enabled)
	if err != nil {
		slog.Warn("telemetry init failed", "error", err)
	} else {
		defer func() { _ = shutdownTracer(context.Background()) }()
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	go db.ReportPoolStats(ctx, 15*time.Second)

	// Cache and events are optional; keep the interfaces nil when absent.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr, "barterbay")
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var events ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		events = pub
		if js, err := pub.Conn().JetStream(); err != nil {
			slog.Warn("jetstream unavailable", "error", err)
		} else if err := natsadapter.EnsureStreams(js); err != nil {
			slog.Warn("ensure streams", "error", err)
		}
	}

	// Use cases
	index := listing.NewIndex(nil)
	listingSvc := usecases.NewListingService(postgres.NewListingRepo(db), cacheSvc, events, index, cfg.Search.SnapshotCacheTTL)
	if n, err := listingSvc.Refresh(ctx); err != nil {
		slog.Warn("initial index load failed", "error", err)
	} else {
		slog.Info("listing index loaded", "listings", n)
	}
	go listingSvc.RunRefresher(ctx, cfg.Search.RefreshInterval)

	if pub != nil {
		sub, err := natsadapter.NewSubscriber(pub.Conn())
		if err != nil {
			slog.Warn("nats subscriber unavailable", "error", err)
		} else {
			defer sub.Close()
			err := sub.SubscribeListingsImported(ctx, func(ctx context.Context, count int) error {
				slog.Info("listings imported, refreshing index", "count", count)
				_, err := listingSvc.Refresh(ctx)
				return err
			})
			if err != nil {
				slog.Warn("subscribe listings.imported", "error", err)
			}
		}
	}

	geocoder := nominatim.New(nominatim.Config{
		BaseURL:   cfg.Geocoder.BaseURL,
		UserAgent: cfg.Geocoder.UserAgent,
		Timeout:   cfg.Geocoder.Timeout,
	})

	deps := &http.Dependencies{
		Listings: listingSvc,
		Search:   usecases.NewSearchService(index, events, mapConfig(cfg.Map)),
		Geocode:  usecases.NewGeocodeService(geocoder, cacheSvc, cfg.Geocoder.CacheTTL),
		Sessions: usecases.ControllerConfig{
			Debounce:        cfg.Search.Debounce,
			LocationTimeout: cfg.Search.LocationTimeout,
			QueueSize:       cfg.Search.QueueSize,
		},
		RateLimit: cfg.Server.RateLimit,
		Events:    pub,
		DB:        db,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "BarterBay API",
	})

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// mapConfig overlays configured map constants on the built-in defaults.
func mapConfig(m config.MapConfig) mapview.Config {
	out := mapview.DefaultConfig()
	if m.BaseHalfWidth > 0 && m.ZoomFactor > 0 {
		out.Scale = geospatial.ZoomScale{BaseHalfWidth: m.BaseHalfWidth, Factor: m.ZoomFactor, BaselineZoom: m.BaselineZoom}
	}
	if m.MinZoom > 0 && m.MaxZoom >= m.MinZoom {
		out.MinZoom, out.MaxZoom = m.MinZoom, m.MaxZoom
	}
	if m.DefaultZoom > 0 {
		out.DefaultZoom = m.DefaultZoom
	}
	center := domain.Coordinate{Lat: m.DefaultLat, Lng: m.DefaultLng}
	if center.Valid() && (center.Lat != 0 || center.Lng != 0) {
		out.DefaultCenter = center
	}
	if m.Width > 0 && m.Height > 0 {
		out.Width, out.Height = m.Width, m.Height
	}
	if m.ClusterPrecision > 0 {
		out.ClusterPrecision = m.ClusterPrecision
	}
	for category, color := range m.CategoryColors {
		out.Palette.Colors[strings.ToLower(category)] = color
	}
	if m.FallbackColor != "" {
		out.Palette.Fallback = m.FallbackColor
	}
	return out
}
