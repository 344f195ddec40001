package config_test

import (
	"strings"
	"testing"

	"github.com/samirrijal/pinpoint/internal/pkg/config"
)

func TestLoad_DefaultsWithKey(t *testing.T) {
	t.Setenv("PINPOINT_GOOGLE_API_KEY", "k")

	cfg, err := config.Load("pinpoint-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "pinpoint-test" {
		t.Errorf("service name = %q", cfg.Telemetry.ServiceName)
	}
	if cfg.Map.DefaultZoom != 6 || cfg.Map.CloseUpZoom != 16 || len(cfg.Map.MaxBounds) != 4 {
		t.Errorf("unexpected map defaults: %+v", cfg.Map)
	}
	if cfg.Form.Path != "/form" {
		t.Errorf("form path = %q", cfg.Form.Path)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PINPOINT_GOOGLE_API_KEY", "k")
	t.Setenv("PINPOINT_SERVER_PORT", "9090")
	t.Setenv("PINPOINT_PLACES_PROVIDER", "nominatim")

	cfg, err := config.Load("pinpoint-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Places.Provider != "nominatim" {
		t.Errorf("places provider = %q", cfg.Places.Provider)
	}
}

func TestLoad_MissingKeyFails(t *testing.T) {
	t.Setenv("PINPOINT_GOOGLE_API_KEY", "")

	_, err := config.Load("pinpoint-test")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "google.api_key") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func validConfig() *config.Config {
	return &config.Config{
		Server:      config.ServerConfig{Port: 8080, ReadTimeout: 10, WriteTimeout: 10},
		Database:    config.DatabaseConfig{Host: "localhost", Port: 5432, User: "u", DBName: "d"},
		NATS:        config.NATSConfig{URL: "nats://x", Enabled: true},
		Valkey:      config.ValkeyConfig{Addr: "localhost:6379"},
		Google:      config.GoogleConfig{APIKey: "k"},
		Places:      config.PlacesConfig{Provider: "google"},
		Tiles:       config.TilesConfig{Provider: "google"},
		Geolocation: config.GeolocationConfig{Timeout: 15},
		Session:     config.SessionConfig{IdleTTL: 60},
		Map: config.MapConfig{
			DefaultLat:  9.17,
			DefaultLng:  4.01,
			DefaultZoom: 6,
			MinZoom:     6,
			MaxZoom:     18,
			MaxBounds:   []float64{4, 2.5, 14, 15},
		},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr string
	}{
		{"valid", func(c *config.Config) {}, ""},
		{"bad port", func(c *config.Config) { c.Server.Port = 0 }, "server.port"},
		{"unknown places provider", func(c *config.Config) { c.Places.Provider = "bing" }, "places.provider"},
		{"nominatim needs user agent", func(c *config.Config) {
			c.Places.Provider = "nominatim"
			c.Nominatim.RateLimit = 1
		}, "nominatim.user_agent"},
		{"template tiles need templates", func(c *config.Config) { c.Tiles.Provider = "template" }, "tiles.templates"},
		{"inverted zoom range", func(c *config.Config) { c.Map.MinZoom = 19 }, "zoom range"},
		{"default zoom outside range", func(c *config.Config) { c.Map.DefaultZoom = 3 }, "map.default_zoom"},
		{"short bounds", func(c *config.Config) { c.Map.MaxBounds = []float64{1, 2} }, "map.max_bounds"},
		{"inverted bounds", func(c *config.Config) { c.Map.MaxBounds = []float64{14, 2.5, 4, 15} }, "map.max_bounds"},
		{"temporal without host", func(c *config.Config) {
			c.Temporal.Enabled = true
		}, "temporal.host_port"},
		{"nats disabled needs no url", func(c *config.Config) {
			c.NATS = config.NATSConfig{}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDSN(t *testing.T) {
	d := config.DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "pin", SSLMode: "disable"}
	if got, want := d.DSN(), "postgres://u:p@db:5433/pin?sslmode=disable"; got != want {
		t.Fatalf("DSN() = %q, want %q", got, want)
	}
}
