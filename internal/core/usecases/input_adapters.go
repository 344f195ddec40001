package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/google/uuid"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/ports"
	"github.com/samirrijal/pinpoint/internal/pkg/metrics"
)

// spawnFunc runs task off the session loop. The func task returns, if any,
// is applied on the loop unless the session has been torn down meanwhile.
type spawnFunc func(task func(ctx context.Context) func())

// DragAdapter applies marker drag-end events.
type DragAdapter struct {
	model  *CoordinateModel
	bounds domain.Bounds
}

func NewDragAdapter(model *CoordinateModel, bounds domain.Bounds) *DragAdapter {
	return &DragAdapter{model: model, bounds: bounds}
}

// DragEnd sets the marker to raw, pulled inside the map bounds, and clears
// the route key tied to the previous point.
func (a *DragAdapter) DragEnd(raw domain.Coordinate) (domain.Coordinate, error) {
	if math.IsNaN(raw.Lat) || math.IsNaN(raw.Lng) || math.IsInf(raw.Lat, 0) || math.IsInf(raw.Lng, 0) {
		return domain.Coordinate{}, fmt.Errorf("%w: drag position must be finite", domain.ErrInvalidInput)
	}
	c := a.bounds.Clamp(raw)
	a.model.Apply(Update{Coordinate: c, Source: domain.SourceDrag, ClearRoute: true})
	return c, nil
}

// SearchAdapter resolves free-text search submissions: a literal "lat,lng"
// pair first, a places lookup otherwise.
type SearchAdapter struct {
	model  *CoordinateModel
	places ports.PlaceService
	zoom   int
	spawn  spawnFunc
	logger *slog.Logger
}

func NewSearchAdapter(model *CoordinateModel, places ports.PlaceService, closeUpZoom int, spawn spawnFunc, logger *slog.Logger) *SearchAdapter {
	return &SearchAdapter{model: model, places: places, zoom: closeUpZoom, spawn: spawn, logger: logger}
}

// Submit handles one submission. done receives the applied coordinate, or
// nil when the lookup found nothing; it is not called when Submit returns
// an error or the session closes first.
func (a *SearchAdapter) Submit(text string, done func(*domain.Coordinate)) error {
	c, ok, err := domain.ParseCoordinate(text)
	if err != nil {
		return err
	}
	if ok {
		a.apply(c)
		done(&c)
		return nil
	}
	if a.places == nil {
		done(nil)
		return nil
	}

	a.spawn(func(ctx context.Context) func() {
		place, err := a.places.FindPlace(ctx, text)
		if err != nil {
			a.logger.Warn("place lookup failed", "query", text, "error", err)
			return func() { done(nil) }
		}
		if place == nil || place.Geometry == nil || place.Geometry.Validate() != nil {
			return func() { done(nil) }
		}
		found := *place.Geometry
		return func() {
			a.apply(found)
			done(&found)
		}
	})
	return nil
}

func (a *SearchAdapter) apply(c domain.Coordinate) {
	a.model.Apply(Update{Coordinate: c, Source: domain.SourceSearch, FlyZoom: a.zoom})
}

// AutocompleteAdapter serves suggestions and applies the latest selection.
type AutocompleteAdapter struct {
	model  *CoordinateModel
	places ports.PlaceService
	zoom   int
	spawn  spawnFunc
	logger *slog.Logger

	// selection counter; loop-confined
	seq uint64

	mu    sync.Mutex
	token string
}

func NewAutocompleteAdapter(model *CoordinateModel, places ports.PlaceService, closeUpZoom int, spawn spawnFunc, logger *slog.Logger) *AutocompleteAdapter {
	return &AutocompleteAdapter{
		model:  model,
		places: places,
		zoom:   closeUpZoom,
		spawn:  spawn,
		logger: logger,
		token:  uuid.NewString(),
	}
}

// Suggest returns predictions for input. It never touches session state and
// may be called from any goroutine.
func (a *AutocompleteAdapter) Suggest(ctx context.Context, input string) ([]domain.Suggestion, error) {
	if a.places == nil || input == "" {
		return nil, nil
	}
	a.mu.Lock()
	token := a.token
	a.mu.Unlock()
	return a.places.Suggest(ctx, input, token)
}

// Select resolves placeID. Only the most recent selection is applied; an
// older one completing later is dropped, as is a place without geometry.
func (a *AutocompleteAdapter) Select(placeID string, done func(*domain.Coordinate)) {
	a.seq++
	mine := a.seq
	token := a.rotateToken()
	if a.places == nil {
		done(nil)
		return
	}

	a.spawn(func(ctx context.Context) func() {
		place, err := a.places.Resolve(ctx, placeID, token)
		return func() {
			if mine != a.seq {
				done(nil)
				return
			}
			if err != nil {
				a.logger.Warn("place resolve failed", "place_id", placeID, "error", err)
				done(nil)
				return
			}
			if place == nil || place.Geometry == nil || place.Geometry.Validate() != nil {
				done(nil)
				return
			}
			c := *place.Geometry
			a.model.Apply(Update{Coordinate: c, Source: domain.SourceAutocomplete, FlyZoom: a.zoom, ClearRoute: true})
			done(&c)
		}
	})
}

// rotateToken ends the current billing session and returns its token.
func (a *AutocompleteAdapter) rotateToken() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	t := a.token
	a.token = uuid.NewString()
	return t
}

// GeolocationAdapter asks the device for its position once per request.
type GeolocationAdapter struct {
	model     *CoordinateModel
	locator   ports.Geolocator
	zoom      int
	sessionID string
	spawn     spawnFunc
	notify    func(domain.Notification)
}

func NewGeolocationAdapter(model *CoordinateModel, locator ports.Geolocator, closeUpZoom int, sessionID string,
	spawn spawnFunc, notify func(domain.Notification)) *GeolocationAdapter {
	return &GeolocationAdapter{
		model:     model,
		locator:   locator,
		zoom:      closeUpZoom,
		sessionID: sessionID,
		spawn:     spawn,
		notify:    notify,
	}
}

// Locate starts a single position request. Failures are reported as a
// notification and leave the marker unchanged; nothing is retried.
func (a *GeolocationAdapter) Locate(done func(*domain.Coordinate, error)) {
	if a.locator == nil {
		err := &domain.GeolocationError{Code: domain.GeoPositionUnavailable, Message: "Location service unavailable"}
		a.fail(err)
		done(nil, err)
		return
	}

	a.spawn(func(ctx context.Context) func() {
		c, err := a.locator.CurrentPosition(ctx, a.sessionID)
		if err == nil {
			err = c.Validate()
		}
		return func() {
			if err != nil {
				gerr := asGeolocationError(err)
				a.fail(gerr)
				done(nil, gerr)
				return
			}
			a.model.Apply(Update{Coordinate: c, Source: domain.SourceGeolocation, FlyZoom: a.zoom, ClearRoute: true})
			done(&c, nil)
		}
	})
}

func (a *GeolocationAdapter) fail(err *domain.GeolocationError) {
	metrics.GeolocationFailures.WithLabelValues(err.Kind()).Inc()
	a.notify(domain.Notification{
		Level:       "error",
		Title:       "Unable to get your location",
		Description: err.Description(),
	})
}

// asGeolocationError folds every failure into one of the three device
// codes. Anything the device did not classify, an unusable fix included,
// counts as an unavailable position.
func asGeolocationError(err error) *domain.GeolocationError {
	var gerr *domain.GeolocationError
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case domain.GeoPermissionDenied, domain.GeoPositionUnavailable, domain.GeoTimeout:
			return gerr
		}
		return &domain.GeolocationError{Code: domain.GeoPositionUnavailable, Message: gerr.Message}
	}
	return &domain.GeolocationError{Code: domain.GeoPositionUnavailable, Message: "Position unavailable"}
}
