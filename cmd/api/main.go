package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/pinpoint/internal/adapters/devicegeo"
	"github.com/samirrijal/pinpoint/internal/adapters/googlemaps"
	"github.com/samirrijal/pinpoint/internal/adapters/http"
	"github.com/samirrijal/pinpoint/internal/adapters/memory"
	natsadapter "github.com/samirrijal/pinpoint/internal/adapters/nats"
	"github.com/samirrijal/pinpoint/internal/adapters/nominatim"
	"github.com/samirrijal/pinpoint/internal/adapters/postgres"
	"github.com/samirrijal/pinpoint/internal/adapters/tiles"
	"github.com/samirrijal/pinpoint/internal/adapters/valkey"
	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
	"github.com/samirrijal/pinpoint/internal/pkg/config"
	"github.com/samirrijal/pinpoint/internal/pkg/logging"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
	"github.com/samirrijal/pinpoint/internal/pkg/telemetry"
	"github.com/samirrijal/pinpoint/internal/workflows"
)

type placesProvider interface {
	ports.PlaceService
	ports.ReverseGeocoder
}

func main() {
	cfg, err := config.Load("pinpoint-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	appLogger := logging.FromEnv(cfg.Telemetry.ServiceName)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr, cfg.Telemetry.SampleRatio)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{RateLimit: cfg.Server.RateLimit}

	// Event bus: NATS when enabled, otherwise in process
	var bus ports.EventBus
	var announcer ports.ConfirmationPublisher
	if cfg.NATS.Enabled {
		nc, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			log.Fatalf("nats: %v", err)
		}
		defer func() { _ = nc.Drain() }()
		bus = natsadapter.NewBus(nc)
		deps.NATS = nc

		pub, err := natsadapter.NewPublisher(nc)
		if err != nil {
			slog.Warn("jetstream unavailable, confirmations will not be announced", "error", err)
		} else {
			announcer = pub
		}
	} else {
		slog.Info("nats disabled, using in-process event bus")
		bus = memory.NewBus()
	}
	deps.Bus = bus

	// Cache and form storage
	var cache ports.CacheService
	var forms ports.FormStore
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, geocode cache and form store disabled", "error", err)
	} else {
		defer vc.Close()
		cache = vc
		deps.Cache = vc
		fs := valkey.NewFormStore(vc.Client(), time.Duration(cfg.Form.TTL)*time.Second)
		forms = fs
		deps.Forms = fs
	}

	// Database (optional: the archiver service persists announced records)
	var confirmations ports.ConfirmationRepository
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		slog.Warn("database unavailable, confirmations will not be stored locally", "error", err)
	} else {
		defer db.Close()
		repo := postgres.NewConfirmationRepo(db)
		confirmations = repo
		deps.Confirmations = repo
		deps.DB = db
		go poolMetrics(ctx, db)
	}

	settings := mapSettings(cfg.Map)

	// Places and reverse geocoding come from the same provider
	places := newPlaces(cfg, settings)
	streetView := newStreetView(cfg, places, settings)

	// Basemap engine; its readiness promotes deferred overlays
	engine := tiles.NewEngine(tiles.Config{
		Provider:    cfg.Tiles.Provider,
		BaseURL:     cfg.Tiles.BaseURL,
		APIKey:      cfg.Google.APIKey,
		Language:    cfg.Google.Language,
		Region:      cfg.Tiles.Region,
		Templates:   cfg.Tiles.Templates,
		Attribution: cfg.Tiles.Attribution,
	}, appLogger)
	registry := usecases.NewBasemapRegistry()
	engine.OnReady(func() { registry.DrainAndPromote() })
	go engine.Run(ctx)

	locator := devicegeo.NewLocator(bus, time.Duration(cfg.Geolocation.Timeout)*time.Second)
	gateway := usecases.NewGeocodeGateway(places, cache, cfg.Session.GeocodeTTL)

	archiver, closeArchiver := newArchiver(cfg, confirmations, announcer, appLogger)
	defer closeArchiver()

	flow := usecases.NewConfirmationFlow(gateway, forms, archiver, cfg.Form.Path)

	picker := usecases.NewPickerService(usecases.SessionDeps{
		Places:     places,
		Geolocator: locator,
		StreetView: streetView,
		Bus:        bus,
		Engine:     engine,
		Registry:   registry,
		Confirm:    flow,
		Settings:   settings,
		Logger:     appLogger,
	}, usecases.PickerConfig{
		IdleTTL:       time.Duration(cfg.Session.IdleTTL) * time.Second,
		SweepInterval: time.Duration(cfg.Session.SweepInterval) * time.Second,
		MaxSessions:   cfg.Session.MaxSessions,
	})
	go picker.Run(ctx)
	deps.Picker = picker

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    256 * 1024,
		AppName:      "Pinpoint Picker API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Location, Link, X-Request-ID",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "places", cfg.Places.Provider, "tiles", cfg.Tiles.Provider)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Stops the sweeper and tears down open sessions.
	cancel()
	picker.Shutdown()

	slog.Info("server stopped")
}

func mapSettings(m config.MapConfig) domain.MapSettings {
	return domain.MapSettings{
		DefaultCenter: domain.Coordinate{Lat: m.DefaultLat, Lng: m.DefaultLng},
		DefaultZoom:   m.DefaultZoom,
		MinZoom:       m.MinZoom,
		MaxZoom:       m.MaxZoom,
		CloseUpZoom:   m.CloseUpZoom,
		MaxBounds: domain.Bounds{
			MinLat: m.MaxBounds[0],
			MinLng: m.MaxBounds[1],
			MaxLat: m.MaxBounds[2],
			MaxLng: m.MaxBounds[3],
		},
		Country: m.Country,
	}
}

func newPlaces(cfg *config.Config, settings domain.MapSettings) placesProvider {
	if cfg.Places.Provider == "nominatim" {
		return nominatim.New(nominatim.Config{
			BaseURL:   cfg.Nominatim.BaseURL,
			UserAgent: cfg.Nominatim.UserAgent,
			Country:   settings.Country,
			Bounds:    settings.MaxBounds,
			RateLimit: cfg.Nominatim.RateLimit,
			Timeout:   time.Duration(cfg.Nominatim.Timeout) * time.Second,
		})
	}
	return googlemaps.New(googlemaps.Config{
		APIKey:   cfg.Google.APIKey,
		BaseURL:  cfg.Google.BaseURL,
		Language: cfg.Google.Language,
		Country:  settings.Country,
		Bounds:   settings.MaxBounds,
		Timeout:  time.Duration(cfg.Google.Timeout) * time.Second,
	})
}

// newStreetView reuses the Google client when it already serves places.
// Street View needs a Google key whatever the places provider is.
func newStreetView(cfg *config.Config, places placesProvider, settings domain.MapSettings) ports.StreetViewService {
	if sv, ok := places.(ports.StreetViewService); ok {
		return sv
	}
	if cfg.Google.APIKey == "" {
		return nil
	}
	return googlemaps.New(googlemaps.Config{
		APIKey:   cfg.Google.APIKey,
		BaseURL:  cfg.Google.BaseURL,
		Language: cfg.Google.Language,
		Country:  settings.Country,
		Bounds:   settings.MaxBounds,
		Timeout:  time.Duration(cfg.Google.Timeout) * time.Second,
	})
}

// newArchiver picks the archive path: a Temporal workflow when a cluster
// is configured, inline activities when there is somewhere to write, and
// a log line otherwise.
func newArchiver(cfg *config.Config, repo ports.ConfirmationRepository, pub ports.ConfirmationPublisher, logger *slog.Logger) (ports.ConfirmationArchiver, func()) {
	if cfg.Temporal.Enabled {
		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
			Logger:    logger,
		})
		if err == nil {
			return workflows.NewTemporalArchiver(c, cfg.Temporal.TaskQueue), c.Close
		}
		slog.Warn("temporal unavailable, archiving inline", "error", err)
	}

	if repo != nil || pub != nil {
		return workflows.NewDirectArchiver(&workflows.ArchiveActivities{
			Confirmations: repo,
			Publisher:     pub,
			Logger:        logger,
		}), func() {}
	}
	return workflows.LogArchiver{Logger: logger}, func() {}
}

func poolMetrics(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}
