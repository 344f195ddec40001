package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Google      GoogleConfig      `mapstructure:"google"`
	Places      PlacesConfig      `mapstructure:"places"`
	Nominatim   NominatimConfig   `mapstructure:"nominatim"`
	Tiles       TilesConfig       `mapstructure:"tiles"`
	Map         MapConfig         `mapstructure:"map"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Session     SessionConfig     `mapstructure:"session"`
	Form        FormConfig        `mapstructure:"form"`
	Temporal    TemporalConfig    `mapstructure:"temporal"`
}

type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	AllowOrigins string `mapstructure:"allow_origins"`
	RateLimit    int    `mapstructure:"rate_limit"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
	// Enabled=false runs the event bus in process (single node).
	Enabled bool `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string  `mapstructure:"service_name"`
	TempoAddr   string  `mapstructure:"tempo_addr"`
	Enabled     bool    `mapstructure:"enabled"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

type GoogleConfig struct {
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url"`
	Language string `mapstructure:"language"`
	Timeout  int    `mapstructure:"timeout"`
}

// PlacesConfig selects the places provider: "google" or "nominatim".
type PlacesConfig struct {
	Provider string `mapstructure:"provider"`
}

type NominatimConfig struct {
	BaseURL   string  `mapstructure:"base_url"`
	UserAgent string  `mapstructure:"user_agent"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second
	Timeout   int     `mapstructure:"timeout"`
}

// TilesConfig selects the basemap tile source: "google" (Map Tiles API
// sessions) or "template" (plain XYZ URL templates).
type TilesConfig struct {
	Provider    string            `mapstructure:"provider"`
	BaseURL     string            `mapstructure:"base_url"`
	Templates   map[string]string `mapstructure:"templates"`
	Attribution string            `mapstructure:"attribution"`
	Region      string            `mapstructure:"region"`
}

type MapConfig struct {
	DefaultLat  float64   `mapstructure:"default_lat"`
	DefaultLng  float64   `mapstructure:"default_lng"`
	DefaultZoom int       `mapstructure:"default_zoom"`
	MinZoom     int       `mapstructure:"min_zoom"`
	MaxZoom     int       `mapstructure:"max_zoom"`
	CloseUpZoom int       `mapstructure:"close_up_zoom"`
	MaxBounds   []float64 `mapstructure:"max_bounds"` // min_lat, min_lng, max_lat, max_lng
	Country     string    `mapstructure:"country"`
}

type GeolocationConfig struct {
	Timeout int `mapstructure:"timeout"` // seconds
}

type SessionConfig struct {
	IdleTTL       int `mapstructure:"idle_ttl"`       // seconds
	SweepInterval int `mapstructure:"sweep_interval"` // seconds
	MaxSessions   int `mapstructure:"max_sessions"`
	GeocodeTTL    int `mapstructure:"geocode_ttl"` // seconds
}

type FormConfig struct {
	Path string `mapstructure:"path"`
	TTL  int    `mapstructure:"ttl"` // seconds
}

type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("server.rate_limit", 300)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "pinpoint")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "pinpoint")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("google.api_key", "")
	v.SetDefault("google.base_url", "https://maps.googleapis.com")
	v.SetDefault("google.language", "en")
	v.SetDefault("google.timeout", 10)
	v.SetDefault("places.provider", "google")
	v.SetDefault("nominatim.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("nominatim.user_agent", "pinpoint/1.0")
	v.SetDefault("nominatim.rate_limit", 1.0)
	v.SetDefault("nominatim.timeout", 5)
	v.SetDefault("tiles.provider", "google")
	v.SetDefault("tiles.base_url", "https://tile.googleapis.com")
	v.SetDefault("tiles.region", "NG")
	v.SetDefault("tiles.attribution", "")
	v.SetDefault("map.default_lat", 9.1715156)
	v.SetDefault("map.default_lng", 4.0128317)
	v.SetDefault("map.default_zoom", 6)
	v.SetDefault("map.min_zoom", 6)
	v.SetDefault("map.max_zoom", 18)
	v.SetDefault("map.close_up_zoom", 16)
	v.SetDefault("map.max_bounds", []float64{4, 2.5, 14, 15})
	v.SetDefault("map.country", "ng")
	v.SetDefault("geolocation.timeout", 15)
	v.SetDefault("session.idle_ttl", 1800)
	v.SetDefault("session.sweep_interval", 60)
	v.SetDefault("session.max_sessions", 10000)
	v.SetDefault("session.geocode_ttl", 86400)
	v.SetDefault("form.path", "/form")
	v.SetDefault("form.ttl", 86400)
	v.SetDefault("temporal.enabled", false)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "confirmation-archive")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: PINPOINT_GOOGLE_API_KEY → google.api_key
	v.SetEnvPrefix("PINPOINT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats.enabled")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}

	switch c.Places.Provider {
	case "google":
		if c.Google.APIKey == "" {
			errs = append(errs, "google.api_key is required for places.provider=google")
		}
	case "nominatim":
		if c.Nominatim.UserAgent == "" {
			errs = append(errs, "nominatim.user_agent is required by the Nominatim usage policy")
		}
		if c.Nominatim.RateLimit <= 0 {
			errs = append(errs, "nominatim.rate_limit must be positive")
		}
	default:
		errs = append(errs, fmt.Sprintf("places.provider must be google or nominatim, got %q", c.Places.Provider))
	}

	switch c.Tiles.Provider {
	case "google":
		if c.Google.APIKey == "" {
			errs = append(errs, "google.api_key is required for tiles.provider=google")
		}
	case "template":
		if len(c.Tiles.Templates) == 0 {
			errs = append(errs, "tiles.templates is required for tiles.provider=template")
		}
	default:
		errs = append(errs, fmt.Sprintf("tiles.provider must be google or template, got %q", c.Tiles.Provider))
	}

	m := c.Map
	if m.MinZoom < 0 || m.MaxZoom > 22 || m.MinZoom > m.MaxZoom {
		errs = append(errs, fmt.Sprintf("map zoom range invalid: min %d, max %d", m.MinZoom, m.MaxZoom))
	}
	if m.DefaultZoom < m.MinZoom || m.DefaultZoom > m.MaxZoom {
		errs = append(errs, fmt.Sprintf("map.default_zoom %d outside [%d,%d]", m.DefaultZoom, m.MinZoom, m.MaxZoom))
	}
	if len(m.MaxBounds) != 4 || m.MaxBounds[0] >= m.MaxBounds[2] || m.MaxBounds[1] >= m.MaxBounds[3] {
		errs = append(errs, "map.max_bounds must be [min_lat, min_lng, max_lat, max_lng]")
	}
	if m.DefaultLat < -90 || m.DefaultLat > 90 || m.DefaultLng < -180 || m.DefaultLng > 180 {
		errs = append(errs, "map default center out of range")
	}
	if c.Geolocation.Timeout <= 0 {
		errs = append(errs, "geolocation.timeout must be positive")
	}
	if c.Session.IdleTTL <= 0 {
		errs = append(errs, "session.idle_ttl must be positive")
	}
	if c.Temporal.Enabled && c.Temporal.HostPort == "" {
		errs = append(errs, "temporal.host_port is required when temporal.enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
