// Package tiles renders basemap overlays as raster tile frames.
package tiles

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

const (
	ProviderGoogle   = "google"
	ProviderTemplate = "template"

	DefaultGoogleBaseURL = "https://tile.googleapis.com"
	googleAttribution    = "Map data ©Google"

	// Sessions are renewed this long before Google expires them.
	refreshMargin = time.Hour
	retryInterval = 10 * time.Second
)

var labels = map[domain.BasemapVariant]string{
	domain.BasemapRoad:      "Road",
	domain.BasemapSatellite: "Satellite",
	domain.BasemapHybrid:    "Hybrid",
	domain.BasemapTerrain:   "Terrain",
}

// Config selects and parameterizes the tile source.
type Config struct {
	Provider string
	BaseURL  string
	APIKey   string
	Language string
	Region   string
	// Templates maps a variant to an XYZ URL with {z}, {x} and {y}
	// placeholders. Only used by the template provider.
	Templates   map[string]string
	Attribution string
}

type variantSource struct {
	urlFor      func(z, x, y int) string
	attribution string
	expiry      time.Time
}

// Engine implements ports.BasemapEngine. It is not ready until Load has
// fetched every variant's tile source.
type Engine struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger

	mu      sync.RWMutex
	ready   bool
	sources map[domain.BasemapVariant]variantSource
	onReady []func()
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGoogleBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		sources: make(map[domain.BasemapVariant]variantSource),
	}
}

// OnReady registers fn to run once, after the first successful Load.
func (e *Engine) OnReady(fn func()) {
	e.mu.Lock()
	if !e.ready {
		e.onReady = append(e.onReady, fn)
		e.mu.Unlock()
		return
	}
	e.mu.Unlock()
	fn()
}

func (e *Engine) Ready() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ready
}

// Load fetches tile sources for every variant and marks the engine ready.
func (e *Engine) Load(ctx context.Context) error {
	ctx, span := otel.Tracer("pinpoint/tiles").Start(ctx, "tiles.Load")
	defer span.End()

	sources := make(map[domain.BasemapVariant]variantSource, 4)
	for _, v := range domain.BasemapVariants() {
		var (
			src variantSource
			err error
		)
		switch e.cfg.Provider {
		case ProviderTemplate:
			src, err = e.templateSource(v)
		default:
			src, err = e.googleSource(ctx, v)
		}
		if err != nil {
			span.RecordError(err)
			return fmt.Errorf("load %s tiles: %w", v, err)
		}
		sources[v] = src
	}

	e.mu.Lock()
	e.sources = sources
	first := !e.ready
	e.ready = true
	callbacks := e.onReady
	e.onReady = nil
	e.mu.Unlock()

	if first {
		e.logger.Info("basemap engine ready", "provider", e.cfg.Provider, "variants", len(sources))
	}
	for _, fn := range callbacks {
		fn()
	}
	return nil
}

// Run loads the engine, retrying until it succeeds, then renews expiring
// sessions until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	for {
		wait := retryInterval
		if err := e.Load(ctx); err != nil {
			e.logger.Warn("basemap engine load failed", "error", err)
		} else if exp := e.nextExpiry(); !exp.IsZero() {
			wait = time.Until(exp) - refreshMargin
			if wait < retryInterval {
				wait = retryInterval
			}
		} else {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (e *Engine) nextExpiry() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var next time.Time
	for _, s := range e.sources {
		if !s.expiry.IsZero() && (next.IsZero() || s.expiry.Before(next)) {
			next = s.expiry
		}
	}
	return next
}

func (e *Engine) Variants() []domain.BasemapInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]domain.BasemapInfo, 0, 4)
	for _, v := range domain.BasemapVariants() {
		info := domain.BasemapInfo{Variant: v, Label: labels[v], Default: v == domain.DefaultBasemap}
		if s, ok := e.sources[v]; ok {
			info.Attribution = s.attribution
		}
		out = append(out, info)
	}
	return out
}

// NewMap creates a map rendering into container. Frames go to sink.
func (e *Engine) NewMap(variant domain.BasemapVariant, container ports.Container, sink func(domain.BasemapFrame)) (ports.BasemapMap, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready {
		return nil, domain.ErrEngineNotReady
	}
	if _, ok := e.sources[variant]; !ok {
		return nil, fmt.Errorf("%w: no tile source for %q", domain.ErrInvalidInput, variant)
	}
	return &Map{
		engine:    e,
		variant:   variant,
		container: container,
		sink:      sink,
		size:      container.Size(),
		zoom:      -1,
	}, nil
}

func (e *Engine) source(v domain.BasemapVariant) (variantSource, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s, ok := e.sources[v]
	return s, ok
}

func (e *Engine) templateSource(v domain.BasemapVariant) (variantSource, error) {
	tmpl, ok := e.cfg.Templates[string(v)]
	if !ok {
		tmpl, ok = e.cfg.Templates[string(domain.DefaultBasemap)]
	}
	if !ok || tmpl == "" {
		return variantSource{}, fmt.Errorf("no url template")
	}
	return variantSource{
		urlFor: func(z, x, y int) string {
			return strings.NewReplacer(
				"{z}", strconv.Itoa(z),
				"{x}", strconv.Itoa(x),
				"{y}", strconv.Itoa(y),
			).Replace(tmpl)
		},
		attribution: e.cfg.Attribution,
	}, nil
}

type createSessionRequest struct {
	MapType    string   `json:"mapType"`
	Language   string   `json:"language"`
	Region     string   `json:"region"`
	LayerTypes []string `json:"layerTypes,omitempty"`
}

type createSessionResponse struct {
	Session string `json:"session"`
	Expiry  string `json:"expiry"` // unix seconds
}

// googleSource creates a Map Tiles API session for v. Hybrid is satellite
// imagery with the roadmap layer on top.
func (e *Engine) googleSource(ctx context.Context, v domain.BasemapVariant) (src variantSource, err error) {
	body := createSessionRequest{Language: e.cfg.Language, Region: e.cfg.Region}
	switch v {
	case domain.BasemapSatellite:
		body.MapType = "satellite"
	case domain.BasemapHybrid:
		body.MapType = "satellite"
		body.LayerTypes = []string{"layerRoadmap"}
	case domain.BasemapTerrain:
		body.MapType = "terrain"
		body.LayerTypes = []string{"layerRoadmap"}
	default:
		body.MapType = "roadmap"
	}
	if body.Language == "" {
		body.Language = "en-US"
	}
	if body.Region == "" {
		body.Region = "US"
	}

	start := time.Now()
	defer func() { metrics.ObserveVendor(ProviderGoogle, "create_tile_session", start, err) }()

	payload, err := json.Marshal(body)
	if err != nil {
		return variantSource{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		e.cfg.BaseURL+"/v1/createSession?key="+e.cfg.APIKey, bytes.NewReader(payload))
	if err != nil {
		return variantSource{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return variantSource{}, fmt.Errorf("create tile session: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return variantSource{}, fmt.Errorf("create tile session returned status %d", resp.StatusCode)
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return variantSource{}, fmt.Errorf("decoding tile session: %w", err)
	}
	if out.Session == "" {
		return variantSource{}, fmt.Errorf("empty tile session")
	}

	var expiry time.Time
	if secs, err := strconv.ParseInt(out.Expiry, 10, 64); err == nil {
		expiry = time.Unix(secs, 0)
	}
	base, session, key := e.cfg.BaseURL, out.Session, e.cfg.APIKey
	return variantSource{
		urlFor: func(z, x, y int) string {
			return fmt.Sprintf("%s/v1/2dtiles/%d/%d/%d?session=%s&key=%s", base, z, x, y, session, key)
		},
		attribution: googleAttribution,
		expiry:      expiry,
	}, nil
}
