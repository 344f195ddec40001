package usecases_test

import (
	"testing"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
)

func TestPrimaryMap_CommandsEmitAndFire(t *testing.T) {
	settings := domain.DefaultMapSettings()
	var emitted []domain.EventType
	pm := usecases.NewPrimaryMap(settings, settings.DefaultCenter, settings.DefaultZoom, func(kind domain.EventType, _ any) {
		emitted = append(emitted, kind)
	})

	moves := 0
	pm.OnMove(func() { moves++ })

	lagos := domain.Coordinate{Lat: 6.5, Lng: 3.4}
	pm.FlyTo(lagos, 16)
	pm.SetView(lagos, 40)

	if len(emitted) != 2 || emitted[0] != domain.EventFlyTo || emitted[1] != domain.EventSetView {
		t.Fatalf("unexpected events %v", emitted)
	}
	if moves != 2 {
		t.Errorf("expected 2 move notifications, got %d", moves)
	}
	if pm.Zoom() != settings.MaxZoom {
		t.Errorf("zoom should clamp to %d, got %d", settings.MaxZoom, pm.Zoom())
	}
}

func TestPrimaryMap_ReportClampsToBounds(t *testing.T) {
	settings := domain.DefaultMapSettings()
	pm := usecases.NewPrimaryMap(settings, settings.DefaultCenter, settings.DefaultZoom, nil)

	pm.Report(domain.Coordinate{Lat: 40, Lng: -20}, 3)

	want := domain.Coordinate{Lat: settings.MaxBounds.MaxLat, Lng: settings.MaxBounds.MinLng}
	if pm.Center() != want {
		t.Errorf("center = %+v, want %+v", pm.Center(), want)
	}
	if pm.Zoom() != settings.MinZoom {
		t.Errorf("zoom = %d, want %d", pm.Zoom(), settings.MinZoom)
	}
}

func TestPrimaryMap_ResizeAndHover(t *testing.T) {
	settings := domain.DefaultMapSettings()
	pm := usecases.NewPrimaryMap(settings, settings.DefaultCenter, settings.DefaultZoom, nil)

	resizes, moves := 0, 0
	pm.OnResize(func() { resizes++ })
	pm.OnMove(func() { moves++ })

	pm.Resize(domain.Size{W: 800, H: 600})
	pm.Hover(domain.Coordinate{Lat: 7, Lng: 5})

	if resizes != 1 || moves != 0 {
		t.Errorf("resizes=%d moves=%d, want 1 and 0", resizes, moves)
	}
	vp := pm.Viewport()
	if vp.Size != (domain.Size{W: 800, H: 600}) {
		t.Errorf("size = %+v", vp.Size)
	}
	if vp.Cursor != (domain.Coordinate{Lat: 7, Lng: 5}) {
		t.Errorf("cursor = %+v", vp.Cursor)
	}
	if vp.Center != settings.DefaultCenter {
		t.Error("hover must not move the center")
	}
}
