package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pinpoint",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pinpoint",
		Subsystem: "http",
		Name:      "response_size_bytes",
		Help:      "HTTP response size in bytes",
		Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
	}, []string{"method", "path"})

	// Picker metrics
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pinpoint",
		Subsystem: "picker",
		Name:      "sessions_active",
		Help:      "Currently mounted picker sessions",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "picker",
		Name:      "sessions_expired_total",
		Help:      "Picker sessions closed by the idle sweeper",
	})

	CoordinateUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "picker",
		Name:      "coordinate_updates_total",
		Help:      "Marker updates applied, by input channel",
	}, []string{"source"})

	GeolocationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "picker",
		Name:      "geolocation_failures_total",
		Help:      "Failed device position requests, by kind",
	}, []string{"kind"})

	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "picker",
		Name:      "geocode_requests_total",
		Help:      "Reverse geocode lookups, by outcome",
	}, []string{"outcome"})

	Confirmations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "picker",
		Name:      "confirmations_total",
		Help:      "Confirmation attempts, by outcome",
	}, []string{"outcome"})

	MarkerDisplacement = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pinpoint",
		Subsystem: "picker",
		Name:      "marker_displacement_meters",
		Help:      "Distance the marker moved per update, by input channel",
		Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
	}, []string{"source"})

	// Basemap metrics
	BasemapPending = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pinpoint",
		Subsystem: "basemap",
		Name:      "pending_overlays",
		Help:      "Overlays waiting for the basemap engine to load",
	})

	BasemapPromotions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "basemap",
		Name:      "promotions_total",
		Help:      "Deferred overlays promoted once the engine loaded",
	})

	BasemapFrames = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "basemap",
		Name:      "frames_total",
		Help:      "Tile frames rendered, by variant",
	}, []string{"variant"})

	// Upstream vendor calls
	VendorRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pinpoint",
		Subsystem: "vendor",
		Name:      "request_duration_seconds",
		Help:      "Latency of calls to places, geocoding and tile vendors",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, []string{"provider", "operation"})

	VendorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "vendor",
		Name:      "errors_total",
		Help:      "Failed vendor calls",
	}, []string{"provider", "operation"})

	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pinpoint",
		Subsystem: "ws",
		Name:      "active_connections",
		Help:      "Current number of active WebSocket connections",
	})

	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Total cache hits",
	}, []string{"operation"})

	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pinpoint",
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Total cache misses",
	}, []string{"operation"})

	// Database pool metrics
	DBPoolConnsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pinpoint",
		Subsystem: "db",
		Name:      "pool_conns_open",
		Help:      "Total connections open in the database pool",
	})

	DBPoolConnsAcquired = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pinpoint",
		Subsystem: "db",
		Name:      "pool_conns_acquired",
		Help:      "Connections currently acquired from the database pool",
	})

	DBPoolConnsIdle = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "pinpoint",
		Subsystem: "db",
		Name:      "pool_conns_idle",
		Help:      "Idle connections in the database pool",
	})
)

// ObserveVendor records one upstream call.
func ObserveVendor(provider, operation string, start time.Time, err error) {
	VendorRequestDuration.WithLabelValues(provider, operation).Observe(time.Since(start).Seconds())
	if err != nil {
		VendorErrors.WithLabelValues(provider, operation).Inc()
	}
}

// Middleware records request metrics.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Response().StatusCode())
		// Route pattern keeps session IDs out of the label set.
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		method := c.Method()

		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)
		httpResponseSize.WithLabelValues(method, path).Observe(float64(len(c.Response().Body())))

		return err
	}
}

// Handler returns a Fiber handler serving Prometheus /metrics endpoint.
func Handler() fiber.Handler {
	handler := promhttp.Handler()
	return func(c *fiber.Ctx) error {
		fasthttpadaptor.NewFastHTTPHandler(handler)(c.Context())
		return nil
	}
}

// PoolStat is the subset of pgxpool.Stat the pool gauges read.
type PoolStat interface {
	AcquiredConns() int32
	IdleConns() int32
	TotalConns() int32
}

// UpdateDBPoolMetrics copies pool stats into the gauges.
func UpdateDBPoolMetrics(s PoolStat) {
	DBPoolConnsAcquired.Set(float64(s.AcquiredConns()))
	DBPoolConnsIdle.Set(float64(s.IdleConns()))
	DBPoolConnsOpen.Set(float64(s.TotalConns()))
}
