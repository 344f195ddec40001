package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/pkg/geospatial"
)

// SessionDeps are the collaborators shared by every picker session.
type SessionDeps struct {
	Places     ports.PlaceService
	Geolocator ports.Geolocator
	StreetView ports.StreetViewService
	Bus        ports.EventBus
	Engine     ports.BasemapEngine
	Registry   *BasemapRegistry
	Confirm    *ConfirmationFlow
	Settings   domain.MapSettings
	Logger     *slog.Logger
}

// OpenRequest describes the page mounting the map.
type OpenRequest struct {
	// Query is the page's query string at mount.
	Query   string
	FormKey string
	Basemap domain.BasemapVariant
	Size    domain.Size
}

// Session is one mounted picker map. Every state change runs on a single
// loop goroutine; I/O runs elsewhere and posts its result back.
type Session struct {
	id      string
	formKey string
	deps    SessionDeps
	logger  *slog.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	ops      chan func()
	done     chan struct{}
	inflight sync.WaitGroup
	active   atomic.Int64

	// loop-confined
	seq          uint64
	lastMarker   *domain.Coordinate
	model        *CoordinateModel
	primary      *PrimaryMap
	mirror       *URLMirror
	bridge       *BasemapBridge
	drag         *DragAdapter
	search       *SearchAdapter
	autocomplete *AutocompleteAdapter
	geolocation  *GeolocationAdapter
}

func newSession(id string, deps SessionDeps, req OpenRequest) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:      id,
		formKey: req.FormKey,
		deps:    deps,
		logger:  logger.With("session_id", id),
		ctx:     ctx,
		cancel:  cancel,
		ops:     make(chan func(), 64),
		done:    make(chan struct{}),
	}
	if s.formKey == "" {
		s.formKey = id
	}
	s.touch()

	settings := deps.Settings
	s.mirror = NewURLMirror(req.Query, settings, func(q string) {
		s.emit(domain.EventURLReplace, domain.URLReplace{Query: q})
	})

	// Seed from the URL, else the default view with no marker.
	s.model = NewCoordinateModel()
	center, zoom := settings.DefaultCenter, settings.DefaultZoom
	snap := s.mirror.Read()
	if snap.Zoom != nil {
		zoom = *snap.Zoom
	}
	if snap.Coordinate != nil {
		center = *snap.Coordinate
		s.model.Apply(Update{Coordinate: center, Source: domain.SourceURL})
		s.lastMarker = &center
	}
	s.primary = NewPrimaryMap(settings, center, zoom, s.emit)
	s.primary.view.Size = req.Size

	s.drag = NewDragAdapter(s.model, settings.MaxBounds)
	s.search = NewSearchAdapter(s.model, deps.Places, settings.CloseUpZoom, s.spawn, s.logger)
	s.autocomplete = NewAutocompleteAdapter(s.model, deps.Places, settings.CloseUpZoom, s.spawn, s.logger)
	s.geolocation = NewGeolocationAdapter(s.model, deps.Geolocator, settings.CloseUpZoom, id, s.spawn, func(n domain.Notification) {
		s.emit(domain.EventNotification, n)
	})

	s.model.OnChange(s.onModelChange)
	s.primary.OnMove(s.onViewChange)

	if deps.Engine != nil && deps.Registry != nil {
		s.bridge = NewBasemapBridge(deps.Engine, deps.Registry, s.primary, s.post, func(f domain.BasemapFrame) {
			s.emit(domain.EventBasemapFrame, f)
		}, s.logger)
		variant := req.Basemap
		if variant == "" {
			variant = domain.DefaultBasemap
		}
		s.bridge.Attach(variant)
	}

	go s.run()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Done is closed once the session has been torn down.
func (s *Session) Done() <-chan struct{} { return s.done }

// LastActive reports the last client interaction.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.active.Load())
}

func (s *Session) touch() {
	s.active.Store(time.Now().UnixNano())
}

func (s *Session) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			if s.bridge != nil {
				s.bridge.Remove()
			}
			return
		case op := <-s.ops:
			s.exec(op)
		}
	}
}

func (s *Session) exec(op func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("session op panicked", "panic", r)
		}
	}()
	op()
}

// do runs fn on the loop and waits for it.
func (s *Session) do(ctx context.Context, fn func()) error {
	s.touch()
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case s.ops <- op:
	case <-s.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		select {
		case <-finished:
			return nil
		default:
			return domain.ErrSessionClosed
		}
	}
}

// post schedules fn on the loop without waiting. It is a no-op after
// teardown and must not be called from the loop itself.
func (s *Session) post(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.ctx.Done():
	}
}

// spawn runs task in its own goroutine with the session context and applies
// its continuation on the loop. The context doubles as the cancellation
// token: continuations are dropped once the session is closed.
func (s *Session) spawn(task func(ctx context.Context) func()) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		apply := task(s.ctx)
		if apply == nil {
			return
		}
		s.post(func() {
			if s.ctx.Err() != nil {
				return
			}
			apply()
		})
	}()
}

func (s *Session) emit(kind domain.EventType, payload any) {
	if s.deps.Bus == nil {
		return
	}
	s.seq++
	data, err := json.Marshal(domain.Event{
		Type:      kind,
		SessionID: s.id,
		Seq:       s.seq,
		At:        time.Now().UTC(),
		Payload:   payload,
	})
	if err != nil {
		s.logger.Error("marshal event", "type", kind, "error", err)
		return
	}
	if err := s.deps.Bus.Publish(context.Background(), domain.SessionSubject(s.id), data); err != nil {
		s.logger.Warn("publish event", "type", kind, "error", err)
	}
}

func (s *Session) onModelChange(u *Update) {
	if u == nil {
		s.lastMarker = nil
		s.mirror.Write(URLWrite{ClearPoint: true})
		s.emit(domain.EventState, s.state())
		return
	}
	if u.FlyZoom > 0 {
		s.primary.FlyTo(u.Coordinate, u.FlyZoom)
	} else {
		s.primary.SetView(u.Coordinate, s.primary.Zoom())
	}
	w := URLWrite{Coordinate: &u.Coordinate}
	if u.ClearRoute {
		w.Delete = []string{queryRoute}
	}
	s.mirror.Write(w)
	recordUpdate(u.Source, s.lastMarker, u.Coordinate)
	c := u.Coordinate
	s.lastMarker = &c
	s.emit(domain.EventState, s.state())
}

func (s *Session) onViewChange() {
	z := s.primary.Zoom()
	s.mirror.Write(URLWrite{Zoom: &z})
}

func (s *Session) state() domain.SessionState {
	st := domain.SessionState{
		ID:         s.id,
		Marker:     s.model.Get(),
		Source:     s.model.Source(),
		Viewport:   s.primary.Viewport(),
		Scale:      domain.ScaleForZoom(s.primary.Zoom()),
		Resolution: geospatial.MetersPerPixel(s.primary.Center().Lat, s.primary.Zoom()),
		Basemap:    domain.DefaultBasemap,
		Overlay:    OverlayUninitialized.String(),
		Query:      s.mirror.Query(),
		FormKey:    s.formKey,
	}
	if s.bridge != nil {
		st.Basemap = s.bridge.Variant()
		st.Overlay = s.bridge.State().String()
	}
	return st
}

// Snapshot returns the current session state.
func (s *Session) Snapshot(ctx context.Context) (domain.SessionState, error) {
	var st domain.SessionState
	err := s.do(ctx, func() { st = s.state() })
	return st, err
}

// Drag applies a marker drag-end.
func (s *Session) Drag(ctx context.Context, c domain.Coordinate) (domain.SessionState, error) {
	var (
		st    domain.SessionState
		opErr error
	)
	err := s.do(ctx, func() {
		if _, opErr = s.drag.DragEnd(c); opErr == nil {
			st = s.state()
		}
	})
	if err != nil {
		return st, err
	}
	return st, opErr
}

// Search submits free text. It returns the applied coordinate, nil when the
// lookup found nothing, or ErrInvalidInput for an out-of-range literal.
func (s *Session) Search(ctx context.Context, text string) (*domain.Coordinate, error) {
	result := make(chan *domain.Coordinate, 1)
	var opErr error
	if err := s.do(ctx, func() {
		opErr = s.search.Submit(text, func(c *domain.Coordinate) { result <- c })
	}); err != nil {
		return nil, err
	}
	if opErr != nil {
		return nil, opErr
	}
	return s.await(ctx, result)
}

// Suggest returns autocomplete predictions without changing state.
func (s *Session) Suggest(ctx context.Context, input string) ([]domain.Suggestion, error) {
	select {
	case <-s.done:
		return nil, domain.ErrSessionClosed
	default:
	}
	s.touch()
	return s.autocomplete.Suggest(ctx, input)
}

// SelectPlace applies an autocomplete selection. It returns nil when the
// selection was superseded or had no geometry.
func (s *Session) SelectPlace(ctx context.Context, placeID string) (*domain.Coordinate, error) {
	result := make(chan *domain.Coordinate, 1)
	if err := s.do(ctx, func() {
		s.autocomplete.Select(placeID, func(c *domain.Coordinate) { result <- c })
	}); err != nil {
		return nil, err
	}
	return s.await(ctx, result)
}

// Locate starts a device position request and returns immediately. The
// outcome arrives on the event stream.
func (s *Session) Locate(ctx context.Context) error {
	return s.do(ctx, func() {
		s.geolocation.Locate(func(*domain.Coordinate, error) {})
	})
}

// LocateWait is Locate that also waits for the outcome.
func (s *Session) LocateWait(ctx context.Context) (*domain.Coordinate, error) {
	type outcome struct {
		c   *domain.Coordinate
		err error
	}
	result := make(chan outcome, 1)
	if err := s.do(ctx, func() {
		s.geolocation.Locate(func(c *domain.Coordinate, err error) { result <- outcome{c, err} })
	}); err != nil {
		return nil, err
	}
	select {
	case o := <-result:
		return o.c, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, domain.ErrSessionClosed
	}
}

// ReportView records a user pan or zoom on the primary map.
func (s *Session) ReportView(ctx context.Context, center domain.Coordinate, zoom int) error {
	if err := center.Validate(); err != nil {
		return err
	}
	return s.do(ctx, func() { s.primary.Report(center, zoom) })
}

// ReportResize records a new primary container size.
func (s *Session) ReportResize(ctx context.Context, size domain.Size) error {
	if err := size.Validate(); err != nil {
		return err
	}
	return s.do(ctx, func() { s.primary.Resize(size) })
}

// Hover tracks the pointer and returns the updated viewport.
func (s *Session) Hover(ctx context.Context, c domain.Coordinate) (domain.Viewport, error) {
	var vp domain.Viewport
	if err := c.Validate(); err != nil {
		return vp, err
	}
	err := s.do(ctx, func() {
		s.primary.Hover(c)
		vp = s.primary.Viewport()
	})
	return vp, err
}

// SetBasemap switches the overlay variant.
func (s *Session) SetBasemap(ctx context.Context, v domain.BasemapVariant) (domain.SessionState, error) {
	var st domain.SessionState
	err := s.do(ctx, func() {
		if s.bridge != nil {
			s.bridge.Attach(v)
		}
		st = s.state()
	})
	return st, err
}

// ResetZoom returns the primary map to the default zoom at its current center.
func (s *Session) ResetZoom(ctx context.Context) error {
	return s.do(ctx, func() {
		s.primary.SetView(s.primary.Center(), s.deps.Settings.DefaultZoom)
	})
}

// ClearMarker removes the marker without confirming.
func (s *Session) ClearMarker(ctx context.Context) error {
	return s.do(ctx, func() { s.model.Clear() })
}

// Confirm runs the confirmation flow for the current marker. On failure the
// user is notified and the marker stays where it is.
func (s *Session) Confirm(ctx context.Context) (*ConfirmResult, error) {
	if s.deps.Confirm == nil {
		return nil, errors.New("confirmation not configured")
	}
	var req ConfirmRequest
	if err := s.do(ctx, func() {
		req = ConfirmRequest{
			SessionID:   s.id,
			FormKey:     s.formKey,
			Marker:      s.model.Get(),
			Source:      s.model.Source(),
			PassThrough: s.mirror.PassThrough(),
		}
	}); err != nil {
		return nil, err
	}
	if req.Marker == nil {
		return nil, domain.ErrNoMarker
	}

	cctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	res, err := s.deps.Confirm.Confirm(cctx, req)
	if err != nil {
		if s.ctx.Err() != nil {
			return nil, domain.ErrSessionClosed
		}
		s.logger.Warn("confirmation failed", "error", err)
		_ = s.do(ctx, func() {
			s.emit(domain.EventNotification, confirmFailure(err))
		})
		return nil, err
	}

	if err := s.do(ctx, func() {
		s.emit(domain.EventNavigate, domain.Navigate{URL: res.NavigateURL})
	}); err != nil {
		return nil, err
	}
	s.deps.Confirm.Archive(res.Confirmation)
	return res, nil
}

// StreetView reports the panorama at the current marker. It does not change
// state.
func (s *Session) StreetView(ctx context.Context) (*domain.StreetView, error) {
	if s.deps.StreetView == nil {
		return nil, domain.ErrStreetViewDisabled
	}
	var marker *domain.Coordinate
	if err := s.do(ctx, func() { marker = s.model.Get() }); err != nil {
		return nil, err
	}
	if marker == nil {
		return nil, domain.ErrNoMarker
	}

	sctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	sv, err := s.deps.StreetView.StreetView(sctx, *marker)
	if err != nil && s.ctx.Err() != nil {
		return nil, domain.ErrSessionClosed
	}
	return sv, err
}

func confirmFailure(err error) domain.Notification {
	n := domain.Notification{Level: "error", Title: "Unable to confirm location"}
	switch {
	case errors.Is(err, domain.ErrGeocodeMiss):
		n.Description = "No address was found for the selected location. Move the marker and try again"
	case errors.Is(err, domain.ErrGeocodeFailed):
		n.Description = "The address lookup failed. Please try again"
	default:
		n.Description = "Your address could not be saved. Please try again"
	}
	return n
}

func (s *Session) await(ctx context.Context, ch <-chan *domain.Coordinate) (*domain.Coordinate, error) {
	select {
	case c := <-ch:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, domain.ErrSessionClosed
	}
}

// Close tears the session down: in-flight requests are abandoned, the
// overlay is removed and the loop stops.
func (s *Session) Close() {
	s.cancel()
	<-s.done
}

// Wait blocks until in-flight requests have returned. Used in tests and at
// shutdown.
func (s *Session) Wait() {
	s.inflight.Wait()
}
