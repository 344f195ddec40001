package usecases_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
)

func TestDragAdapter_ClampsAndClearsRoute(t *testing.T) {
	model := usecases.NewCoordinateModel()
	var last *usecases.Update
	model.OnChange(func(u *usecases.Update) { last = u })

	bounds := domain.DefaultMapSettings().MaxBounds
	a := usecases.NewDragAdapter(model, bounds)

	got, err := a.DragEnd(domain.Coordinate{Lat: 2, Lng: 3.4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != (domain.Coordinate{Lat: bounds.MinLat, Lng: 3.4}) {
		t.Errorf("expected clamped coordinate, got %+v", got)
	}
	if last == nil || last.Source != domain.SourceDrag || !last.ClearRoute || last.FlyZoom != 0 {
		t.Errorf("unexpected update %+v", last)
	}
}

func TestDragAdapter_RejectsNonFinite(t *testing.T) {
	model := usecases.NewCoordinateModel()
	a := usecases.NewDragAdapter(model, domain.DefaultMapSettings().MaxBounds)

	_, err := a.DragEnd(domain.Coordinate{Lat: 6, Lng: nan()})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if model.Get() != nil {
		t.Error("marker should be unchanged")
	}
}

func TestSearchAdapter_LiteralSkipsPlaces(t *testing.T) {
	model := usecases.NewCoordinateModel()
	places := &mockPlaces{}
	a := usecases.NewSearchAdapter(model, places, 16, syncSpawn, slog.Default())

	var done *domain.Coordinate
	if err := a.Submit("6.45, 3.39", func(c *domain.Coordinate) { done = c }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if done == nil || *done != (domain.Coordinate{Lat: 6.45, Lng: 3.39}) {
		t.Fatalf("unexpected result %+v", done)
	}
	if places.FindCalls() != 0 {
		t.Error("literal coordinates must not hit the places service")
	}
	if model.Source() != domain.SourceSearch {
		t.Errorf("source = %q", model.Source())
	}
}

func TestSearchAdapter_OutOfRangeLiteral(t *testing.T) {
	model := usecases.NewCoordinateModel()
	places := &mockPlaces{}
	a := usecases.NewSearchAdapter(model, places, 16, syncSpawn, slog.Default())

	called := false
	err := a.Submit("91, 3", func(*domain.Coordinate) { called = true })
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if called || model.Get() != nil || places.FindCalls() != 0 {
		t.Error("invalid literal must not change state or fall through")
	}
}

func TestSearchAdapter_FallsThroughToPlaces(t *testing.T) {
	model := usecases.NewCoordinateModel()
	var last *usecases.Update
	model.OnChange(func(u *usecases.Update) { last = u })

	ikeja := domain.Coordinate{Lat: 6.6018, Lng: 3.3515}
	places := &mockPlaces{
		findPlaceFn: func(_ context.Context, text string) (*domain.Place, error) {
			if text != "Ikeja" {
				t.Errorf("unexpected query %q", text)
			}
			return &domain.Place{ID: "p1", Name: "Ikeja", Geometry: &ikeja}, nil
		},
	}
	a := usecases.NewSearchAdapter(model, places, 16, syncSpawn, slog.Default())

	var done *domain.Coordinate
	_ = a.Submit("Ikeja", func(c *domain.Coordinate) { done = c })

	if done == nil || *done != ikeja {
		t.Fatalf("expected %+v, got %+v", ikeja, done)
	}
	if last == nil || last.FlyZoom != 16 {
		t.Errorf("search should fly to the close-up zoom, got %+v", last)
	}
}

func TestSearchAdapter_NoMatchLeavesMarker(t *testing.T) {
	model := usecases.NewCoordinateModel()
	start := domain.Coordinate{Lat: 9, Lng: 7}
	model.Set(start)

	for name, fn := range map[string]func(context.Context, string) (*domain.Place, error){
		"nil place":   func(context.Context, string) (*domain.Place, error) { return nil, nil },
		"no geometry": func(context.Context, string) (*domain.Place, error) { return &domain.Place{ID: "x"}, nil },
		"error":       func(context.Context, string) (*domain.Place, error) { return nil, errors.New("boom") },
	} {
		t.Run(name, func(t *testing.T) {
			a := usecases.NewSearchAdapter(model, &mockPlaces{findPlaceFn: fn}, 16, syncSpawn, slog.Default())
			called := false
			var done *domain.Coordinate
			_ = a.Submit("Atlantis", func(c *domain.Coordinate) { called, done = true, c })
			if !called || done != nil {
				t.Errorf("expected done(nil), got called=%v %+v", called, done)
			}
			if *model.Get() != start {
				t.Errorf("marker moved to %+v", model.Get())
			}
		})
	}
}

func TestAutocompleteAdapter_LatestSelectionWins(t *testing.T) {
	model := usecases.NewCoordinateModel()
	first := domain.Coordinate{Lat: 6.5, Lng: 3.3}
	second := domain.Coordinate{Lat: 9.0, Lng: 7.4}
	places := &mockPlaces{
		resolveFn: func(_ context.Context, id, _ string) (*domain.Place, error) {
			if id == "first" {
				return &domain.Place{ID: id, Geometry: &first}, nil
			}
			return &domain.Place{ID: id, Geometry: &second}, nil
		},
	}
	q := &queuedSpawn{}
	a := usecases.NewAutocompleteAdapter(model, places, 16, q.spawn, slog.Default())

	var r1, r2 *domain.Coordinate
	a.Select("first", func(c *domain.Coordinate) { r1 = c })
	a.Select("second", func(c *domain.Coordinate) { r2 = c })

	// The newer request completes first, the older one afterwards.
	q.run(1)
	q.run(0)

	if r2 == nil || *r2 != second {
		t.Fatalf("latest selection not applied: %+v", r2)
	}
	if r1 != nil {
		t.Errorf("superseded selection should report nil, got %+v", r1)
	}
	if *model.Get() != second {
		t.Errorf("marker = %+v, want %+v", model.Get(), second)
	}
}

func TestAutocompleteAdapter_NoGeometry(t *testing.T) {
	model := usecases.NewCoordinateModel()
	places := &mockPlaces{
		resolveFn: func(_ context.Context, id, _ string) (*domain.Place, error) {
			return &domain.Place{ID: id, Name: "Nigeria"}, nil
		},
	}
	a := usecases.NewAutocompleteAdapter(model, places, 16, syncSpawn, slog.Default())

	called := false
	a.Select("country", func(c *domain.Coordinate) {
		called = true
		if c != nil {
			t.Errorf("expected nil, got %+v", c)
		}
	})
	if !called {
		t.Fatal("done was not called")
	}
	if model.Get() != nil {
		t.Error("a place without geometry must not set the marker")
	}
}

func TestAutocompleteAdapter_SessionTokenRotates(t *testing.T) {
	places := &mockPlaces{}
	a := usecases.NewAutocompleteAdapter(usecases.NewCoordinateModel(), places, 16, syncSpawn, slog.Default())

	_, _ = a.Suggest(context.Background(), "Ik")
	_, _ = a.Suggest(context.Background(), "Ikej")
	a.Select("p1", func(*domain.Coordinate) {})
	_, _ = a.Suggest(context.Background(), "Yaba")

	tokens := places.Tokens()
	if len(tokens) != 4 {
		t.Fatalf("expected 4 calls, got %d", len(tokens))
	}
	if tokens[0] != tokens[1] || tokens[1] != tokens[2] {
		t.Error("suggestions and their selection should share a token")
	}
	if tokens[3] == tokens[2] {
		t.Error("a selection should start a new token")
	}
}

func TestAutocompleteAdapter_EmptyInput(t *testing.T) {
	places := &mockPlaces{}
	a := usecases.NewAutocompleteAdapter(usecases.NewCoordinateModel(), places, 16, syncSpawn, slog.Default())
	got, err := a.Suggest(context.Background(), "")
	if err != nil || got != nil {
		t.Errorf("expected nil, nil; got %v, %v", got, err)
	}
	if len(places.Tokens()) != 0 {
		t.Error("empty input should not call the provider")
	}
}

func TestGeolocationAdapter_Success(t *testing.T) {
	model := usecases.NewCoordinateModel()
	var last *usecases.Update
	model.OnChange(func(u *usecases.Update) { last = u })

	here := domain.Coordinate{Lat: 9.06, Lng: 7.49}
	loc := &mockLocator{positionFn: func(_ context.Context, sid string) (domain.Coordinate, error) {
		if sid != "s-1" {
			t.Errorf("unexpected session %q", sid)
		}
		return here, nil
	}}
	a := usecases.NewGeolocationAdapter(model, loc, 16, "s-1", syncSpawn, func(domain.Notification) {
		t.Error("no notification expected on success")
	})

	var got *domain.Coordinate
	a.Locate(func(c *domain.Coordinate, err error) {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		got = c
	})
	if got == nil || *got != here {
		t.Fatalf("got %+v", got)
	}
	if last == nil || last.Source != domain.SourceGeolocation || last.FlyZoom != 16 || !last.ClearRoute {
		t.Errorf("unexpected update %+v", last)
	}
}

func TestGeolocationAdapter_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"permission", &domain.GeolocationError{Code: domain.GeoPermissionDenied, Message: "User denied Geolocation"}, "permission"},
		{"device", &domain.GeolocationError{Code: domain.GeoPositionUnavailable}, "device"},
		{"timeout", &domain.GeolocationError{Code: domain.GeoTimeout, Message: "Timeout expired"}, "timeout"},
		{"unclassified error", errors.New("socket closed"), "device"},
		{"unknown device code", &domain.GeolocationError{Code: 7, Message: "Weird failure"}, "device"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := usecases.NewCoordinateModel()
			start := domain.Coordinate{Lat: 6, Lng: 3}
			model.Set(start)

			loc := &mockLocator{positionFn: func(context.Context, string) (domain.Coordinate, error) {
				return domain.Coordinate{}, tt.err
			}}
			var notes []domain.Notification
			a := usecases.NewGeolocationAdapter(model, loc, 16, "s", syncSpawn, func(n domain.Notification) {
				notes = append(notes, n)
			})

			var gotErr error
			a.Locate(func(_ *domain.Coordinate, err error) { gotErr = err })

			var gerr *domain.GeolocationError
			if !errors.As(gotErr, &gerr) || gerr.Kind() != tt.kind {
				t.Fatalf("expected %s geolocation error, got %v", tt.kind, gotErr)
			}
			if len(notes) != 1 || notes[0].Level != "error" {
				t.Errorf("expected one error notification, got %+v", notes)
			}
			if *model.Get() != start {
				t.Error("marker should be unchanged after a failure")
			}
		})
	}
}

func TestGeolocationAdapter_OutOfRangeFix(t *testing.T) {
	model := usecases.NewCoordinateModel()
	loc := &mockLocator{positionFn: func(context.Context, string) (domain.Coordinate, error) {
		return domain.Coordinate{Lat: 123, Lng: 3}, nil
	}}
	var notes []domain.Notification
	a := usecases.NewGeolocationAdapter(model, loc, 16, "s", syncSpawn, func(n domain.Notification) {
		notes = append(notes, n)
	})

	var gotErr error
	a.Locate(func(_ *domain.Coordinate, err error) { gotErr = err })

	var gerr *domain.GeolocationError
	if !errors.As(gotErr, &gerr) || gerr.Code != domain.GeoPositionUnavailable {
		t.Fatalf("expected position unavailable, got %v", gotErr)
	}
	if len(notes) != 1 {
		t.Fatalf("expected one notification, got %d", len(notes))
	}
	if strings.Contains(notes[0].Description, "out of range") || strings.Contains(notes[0].Description, "invalid input") {
		t.Errorf("notification leaks validation text: %q", notes[0].Description)
	}
	if !strings.Contains(notes[0].Description, "GPS device") {
		t.Errorf("notification lacks the device hint: %q", notes[0].Description)
	}
	if model.Get() != nil {
		t.Error("marker should stay unset")
	}
}

func TestGeolocationAdapter_NoLocator(t *testing.T) {
	model := usecases.NewCoordinateModel()
	notified := false
	a := usecases.NewGeolocationAdapter(model, nil, 16, "s", syncSpawn, func(domain.Notification) { notified = true })

	var gotErr error
	a.Locate(func(_ *domain.Coordinate, err error) { gotErr = err })
	if gotErr == nil || !notified {
		t.Errorf("expected an error and a notification, got %v / %v", gotErr, notified)
	}
}
