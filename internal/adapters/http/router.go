package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

const (
	defaultRateLimit = 300
	requestTimeout   = 15 * time.Second
	// Confirmation waits on reverse geocoding and the form store.
	confirmTimeout = 30 * time.Second
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Drags and cursor updates are chatty, so the budget is higher than a
	// typical read API.
	budget := deps.RateLimit
	if budget <= 0 {
		budget = defaultRateLimit
	}
	app.Use(limiter.New(limiter.Config{
		Max:        budget,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/metrics" || c.Path() == "/v1/health"
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	with := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, requestTimeout) }

	v1.Get("/basemaps", with(ListBasemapsHandler(deps)))

	v1.Post("/sessions", with(OpenSessionHandler(deps)))
	v1.Get("/sessions/:id", with(GetSessionHandler(deps)))
	v1.Delete("/sessions/:id", with(CloseSessionHandler(deps)))
	v1.Post("/sessions/:id/drag", with(DragHandler(deps)))
	v1.Post("/sessions/:id/search", with(SearchHandler(deps)))
	v1.Get("/sessions/:id/places/suggest", with(SuggestHandler(deps)))
	v1.Post("/sessions/:id/places/select", with(SelectPlaceHandler(deps)))
	v1.Post("/sessions/:id/geolocate", timeout.NewWithContext(GeolocateHandler(deps), confirmTimeout))
	v1.Post("/sessions/:id/view", with(ViewHandler(deps)))
	v1.Post("/sessions/:id/resize", with(ResizeHandler(deps)))
	v1.Post("/sessions/:id/cursor", with(CursorHandler(deps)))
	v1.Post("/sessions/:id/zoom/reset", with(ResetZoomHandler(deps)))
	v1.Put("/sessions/:id/basemap", with(BasemapHandler(deps)))
	v1.Delete("/sessions/:id/marker", with(ClearMarkerHandler(deps)))
	v1.Get("/sessions/:id/streetview", with(StreetViewHandler(deps)))
	v1.Post("/sessions/:id/confirm", timeout.NewWithContext(ConfirmHandler(deps), confirmTimeout))
	v1.Get("/sessions/:id/confirmations", with(SessionConfirmationsHandler(deps)))

	v1.Get("/confirmations", with(ListConfirmationsHandler(deps)))
	v1.Get("/confirmations/:id", with(GetConfirmationHandler(deps)))
	v1.Get("/forms/:key", with(GetFormHandler(deps)))

	// GraphQL
	app.Post("/graphql", GraphQLHandler(deps))

	// API documentation (Swagger UI)
	SetupDocs(app, DefaultSpecPath)

	// WebSocket session channel
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/sessions/:id", func(c *fiber.Ctx) error {
		if _, err := deps.Picker.Get(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.Next()
	}, websocket.New(WebSocketHandler(deps)))
}
