package geospatial_test

import (
	"math"
	"testing"

	"github.com/samirrijal/pinpoint/internal/pkg/geospatial"
)

func TestProjectUnprojectRoundTrip(t *testing.T) {
	points := []struct{ lat, lng float64 }{
		{0, 0},
		{6.5244, 3.3792},
		{-33.8688, 151.2093},
		{51.5074, -0.1278},
		{80, -179.5},
	}
	for _, p := range points {
		for _, z := range []int{0, 5, 17} {
			x, y := geospatial.Project(p.lat, p.lng, z)
			lat, lng := geospatial.Unproject(x, y, z)
			if math.Abs(lat-p.lat) > 1e-9 || math.Abs(lng-p.lng) > 1e-9 {
				t.Errorf("z%d (%v,%v) round-tripped to (%v,%v)", z, p.lat, p.lng, lat, lng)
			}
		}
	}
}

func TestProject_WorldOrigin(t *testing.T) {
	x, y := geospatial.Project(0, 0, 0)
	if x != 128 || math.Abs(y-128) > 1e-9 {
		t.Fatalf("expected world centre (128,128), got (%v,%v)", x, y)
	}
	// Latitudes beyond the mercator limit are clamped.
	_, top := geospatial.Project(90, 0, 0)
	if math.Abs(top) > 1e-3 {
		t.Fatalf("expected clamped latitude at top edge, got %v", top)
	}
}

func TestCoveringTiles(t *testing.T) {
	tests := []struct {
		name      string
		lat, lng  float64
		zoom      int
		w, h      int
		wantCount int
	}{
		{"empty viewport", 0, 0, 3, 0, 100, 0},
		{"single tile at z0", 0, 0, 0, 256, 256, 1},
		{"centre of z1 spans four", 0, 0, 1, 256, 256, 4},
		{"antimeridian wraps", 0, 180, 2, 256, 256, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := geospatial.CoveringTiles(tt.lat, tt.lng, tt.zoom, tt.w, tt.h)
			if len(got) != tt.wantCount {
				t.Fatalf("expected %d tiles, got %d: %+v", tt.wantCount, len(got), got)
			}
			n := 1 << uint(tt.zoom)
			for _, p := range got {
				if p.X < 0 || p.X >= n || p.Y < 0 || p.Y >= n {
					t.Errorf("tile out of range: %+v", p)
				}
				if p.Zoom != tt.zoom {
					t.Errorf("tile zoom = %d", p.Zoom)
				}
			}
		})
	}
}

func TestCoveringTiles_Offsets(t *testing.T) {
	got := geospatial.CoveringTiles(0, 0, 1, 256, 256)
	// The viewport is centred on the corner shared by all four tiles.
	for _, p := range got {
		wantLeft := -128 + p.X*256
		wantTop := -128 + p.Y*256
		if p.Left != wantLeft || p.Top != wantTop {
			t.Errorf("tile %d/%d offset (%d,%d), want (%d,%d)", p.X, p.Y, p.Left, p.Top, wantLeft, wantTop)
		}
	}
}

func TestCoveringTiles_SkipsRowsOutsideWorld(t *testing.T) {
	got := geospatial.CoveringTiles(85, 0, 0, 256, 512)
	if len(got) != 1 {
		t.Fatalf("expected only the single world tile, got %d", len(got))
	}
}

func TestCoveringTiles_ViewportWiderThanWorld(t *testing.T) {
	const zoom = 6
	n := 1 << zoom
	got := geospatial.CoveringTiles(9.17, 4.01, zoom, 1_000_000, 1_000_000)
	if len(got) != n*n {
		t.Fatalf("expected each of the %d world tiles once, got %d", n*n, len(got))
	}
	seen := make(map[geospatial.TileCoordinate]bool, len(got))
	for _, p := range got {
		if seen[p.TileCoordinate] {
			t.Fatalf("tile %d/%d emitted twice", p.X, p.Y)
		}
		seen[p.TileCoordinate] = true
	}
}

func TestHaversine(t *testing.T) {
	if d := geospatial.Haversine(6.5, 3.3, 6.5, 3.3); d != 0 {
		t.Fatalf("expected 0 for identical points, got %v", d)
	}
	// One degree of latitude is about 111.2 km.
	d := geospatial.Haversine(0, 0, 1, 0)
	if math.Abs(d-111195) > 50 {
		t.Fatalf("expected ~111195m, got %v", d)
	}
}

func TestMetersPerPixel(t *testing.T) {
	eq := geospatial.MetersPerPixel(0, 0)
	if want := 2 * math.Pi * 6371000 / 256; math.Abs(eq-want) > 1e-6 {
		t.Fatalf("expected %v m/px at z0, got %v", want, eq)
	}
	if half := geospatial.MetersPerPixel(0, 1); math.Abs(half-eq/2) > 1e-6 {
		t.Fatalf("expected resolution to halve per zoom, got %v", half)
	}
}
