package usecases

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/pkg/geospatial"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

// PickerConfig bounds the session table.
type PickerConfig struct {
	IdleTTL       time.Duration
	SweepInterval time.Duration
	MaxSessions   int
}

// PickerService opens, finds and tears down picker sessions.
type PickerService struct {
	deps SessionDeps
	cfg  PickerConfig

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewPickerService creates a new PickerService.
func NewPickerService(deps SessionDeps, cfg PickerConfig) *PickerService {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 30 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &PickerService{
		deps:     deps,
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Open mounts a new session seeded from req.
func (p *PickerService) Open(ctx context.Context, req OpenRequest) (*Session, error) {
	if err := req.Size.Validate(); err != nil {
		return nil, err
	}
	if req.Basemap != "" {
		if _, err := domain.ParseBasemapVariant(string(req.Basemap)); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	if p.cfg.MaxSessions > 0 && len(p.sessions) >= p.cfg.MaxSessions {
		p.mu.Unlock()
		return nil, domain.ErrSessionLimit
	}
	id := uuid.NewString()
	s := newSession(id, p.deps, req)
	p.sessions[id] = s
	n := len(p.sessions)
	p.mu.Unlock()

	metrics.SessionsActive.Set(float64(n))
	p.deps.Logger.Info("picker session opened", "session_id", id, "form_key", s.formKey)
	return s, nil
}

// Get returns an open session.
func (p *PickerService) Get(id string) (*Session, error) {
	p.mu.RLock()
	s, ok := p.sessions[id]
	p.mu.RUnlock()
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return s, nil
}

// Close unmounts a session.
func (p *PickerService) Close(id string) error {
	p.mu.Lock()
	s, ok := p.sessions[id]
	delete(p.sessions, id)
	n := len(p.sessions)
	p.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.Close()
	metrics.SessionsActive.Set(float64(n))
	p.deps.Logger.Info("picker session closed", "session_id", id)
	return nil
}

// Sweep closes sessions idle since before now-IdleTTL and returns how many.
func (p *PickerService) Sweep(now time.Time) int {
	cutoff := now.Add(-p.cfg.IdleTTL)
	var stale []string
	p.mu.RLock()
	for id, s := range p.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	p.mu.RUnlock()

	for _, id := range stale {
		_ = p.Close(id)
	}
	if len(stale) > 0 {
		metrics.SessionsExpired.Add(float64(len(stale)))
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done, then closes the rest.
func (p *PickerService) Run(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.Shutdown()
			return
		case now := <-ticker.C:
			if n := p.Sweep(now); n > 0 {
				p.deps.Logger.Info("expired idle picker sessions", "count", n)
			}
		}
	}
}

// Shutdown closes every session.
func (p *PickerService) Shutdown() {
	p.mu.RLock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	p.mu.RUnlock()
	for _, id := range ids {
		_ = p.Close(id)
	}
}

// Count returns the number of open sessions.
func (p *PickerService) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.sessions)
}

// Settings returns the map settings sessions are created with.
func (p *PickerService) Settings() domain.MapSettings {
	return p.deps.Settings
}

// Basemaps lists the variants the engine can render.
func (p *PickerService) Basemaps() []domain.BasemapInfo {
	if p.deps.Engine == nil {
		return nil
	}
	return p.deps.Engine.Variants()
}

// BasemapReady reports whether the basemap engine has loaded.
func (p *PickerService) BasemapReady() bool {
	return p.deps.Registry != nil && p.deps.Registry.Ready()
}

func recordUpdate(src domain.UpdateSource, prev *domain.Coordinate, next domain.Coordinate) {
	metrics.CoordinateUpdates.WithLabelValues(string(src)).Inc()
	if prev != nil {
		d := geospatial.Haversine(prev.Lat, prev.Lng, next.Lat, next.Lng)
		metrics.MarkerDisplacement.WithLabelValues(string(src)).Observe(d)
	}
}
