package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/pinpoint/internal/core/domain"
	"github.com/samirrijal/pinpoint/internal/core/usecases"
)

func TestExtractAddress(t *testing.T) {
	got := usecases.ExtractAddress(lagosResponse().Results[0])
	want := domain.AddressComponents{
		HouseNumber: "12",
		StreetName:  "Awolowo Road",
		AreaName:    "Ikoyi",
		LGA:         "Eti-Osa",
		State:       "Lagos",
	}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestExtractAddress_MissingCategoriesStayEmpty(t *testing.T) {
	got := usecases.ExtractAddress(domain.GeocodeResult{
		AddressComponents: []domain.AddressComponent{
			{LongName: "Garki", Types: []string{"neighborhood", "political"}},
			{LongName: "Federal Capital Territory", Types: []string{"administrative_area_level_1"}},
		},
	})
	if got.HouseNumber != "" || got.StreetName != "" || got.LGA != "" {
		t.Errorf("unexpected fields set: %+v", got)
	}
	if got.AreaName != "Garki" || got.State != "Federal Capital Territory" {
		t.Errorf("got %+v", got)
	}
}

func TestGeocodeGateway_Resolve(t *testing.T) {
	geo := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinate) (*domain.GeocodeResponse, error) {
		return lagosResponse(), nil
	}}
	g := usecases.NewGeocodeGateway(geo, nil, 0)

	addr, err := g.Resolve(context.Background(), domain.Coordinate{Lat: 6.4474, Lng: 3.4278})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if addr.StreetName != "Awolowo Road" {
		t.Errorf("street = %q", addr.StreetName)
	}
}

func TestGeocodeGateway_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp *domain.GeocodeResponse
		err  error
		want error
	}{
		{"zero results", &domain.GeocodeResponse{Status: domain.GeocodeStatusZeroResults}, nil, domain.ErrGeocodeMiss},
		{"ok but empty", &domain.GeocodeResponse{Status: domain.GeocodeStatusOK}, nil, domain.ErrGeocodeMiss},
		{"denied", &domain.GeocodeResponse{Status: "REQUEST_DENIED", ErrorMessage: "API key invalid"}, nil, domain.ErrGeocodeFailed},
		{"over limit", &domain.GeocodeResponse{Status: "OVER_QUERY_LIMIT"}, nil, domain.ErrGeocodeFailed},
		{"transport", nil, errors.New("dial tcp: timeout"), domain.ErrGeocodeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinate) (*domain.GeocodeResponse, error) {
				return tt.resp, tt.err
			}}
			addr, err := usecases.NewGeocodeGateway(geo, nil, 0).Resolve(context.Background(), domain.Coordinate{Lat: 6, Lng: 3})
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if addr != (domain.AddressComponents{}) {
				t.Errorf("no partial address expected, got %+v", addr)
			}
		})
	}
}

func TestGeocodeGateway_CachesResults(t *testing.T) {
	geo := &mockGeocoder{reverseFn: func(context.Context, domain.Coordinate) (*domain.GeocodeResponse, error) {
		return lagosResponse(), nil
	}}
	cache := newMockCache()
	g := usecases.NewGeocodeGateway(geo, cache, 3600)
	pt := domain.Coordinate{Lat: 6.4474, Lng: 3.4278}

	first, err := g.Resolve(context.Background(), pt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := g.Resolve(context.Background(), pt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		t.Errorf("cached result differs: %+v vs %+v", first, second)
	}
	if geo.Calls() != 1 {
		t.Errorf("geocoder called %d times, want 1", geo.Calls())
	}
}

func TestGeocodeGateway_MissNotCached(t *testing.T) {
	geo := &mockGeocoder{}
	cache := newMockCache()
	g := usecases.NewGeocodeGateway(geo, cache, 3600)
	pt := domain.Coordinate{Lat: 4.5, Lng: 7}

	_, _ = g.Resolve(context.Background(), pt)
	_, _ = g.Resolve(context.Background(), pt)
	if geo.Calls() != 2 {
		t.Errorf("misses should not be cached, geocoder called %d times", geo.Calls())
	}
}

// One caller giving up must not fail the lookup another caller is sharing.
func TestGeocodeGateway_CallerCancelDoesNotFailOthers(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	providerCtxErr := make(chan error, 2)
	var once sync.Once
	geo := &mockGeocoder{reverseFn: func(ctx context.Context, _ domain.Coordinate) (*domain.GeocodeResponse, error) {
		once.Do(func() { close(started) })
		<-release
		providerCtxErr <- ctx.Err()
		return lagosResponse(), nil
	}}
	g := usecases.NewGeocodeGateway(geo, nil, 0)
	pt := domain.Coordinate{Lat: 6.4474, Lng: 3.4278}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := g.Resolve(ctxA, pt)
		errA <- err
	}()
	<-started

	type outcome struct {
		addr domain.AddressComponents
		err  error
	}
	resB := make(chan outcome, 1)
	go func() {
		addr, err := g.Resolve(context.Background(), pt)
		resB <- outcome{addr, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller: expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller kept waiting")
	}

	close(release)
	if err := <-providerCtxErr; err != nil {
		t.Fatalf("provider call was cancelled with the first caller: %v", err)
	}
	select {
	case o := <-resB:
		if o.err != nil {
			t.Fatalf("other caller failed: %v", o.err)
		}
		if o.addr.StreetName == "" {
			t.Errorf("expected an address, got %+v", o.addr)
		}
	case <-time.After(time.Second):
		t.Fatal("other caller never returned")
	}
	if geo.Calls() != 1 {
		t.Errorf("geocoder called %d times, want 1", geo.Calls())
	}
}
