package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Geocoder  GeocoderConfig  `mapstructure:"geocoder"`
	Search    SearchConfig    `mapstructure:"search"`
	Map       MapConfig       `mapstructure:"map"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	RateLimit    int `mapstructure:"rate_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

type GeocoderConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
	CacheTTL  int           `mapstructure:"cache_ttl"` // seconds
}

// SearchConfig tunes search sessions and the listing index.
type SearchConfig struct {
	Debounce         time.Duration `mapstructure:"debounce"`
	LocationTimeout  time.Duration `mapstructure:"location_timeout"`
	QueueSize        int           `mapstructure:"queue_size"`
	RefreshInterval  time.Duration `mapstructure:"refresh_interval"`
	SnapshotCacheTTL int           `mapstructure:"snapshot_cache_ttl"` // seconds
}

// MapConfig holds the presentation constants for map viewports.
type MapConfig struct {
	BaseHalfWidth    float64           `mapstructure:"base_half_width"`
	ZoomFactor       float64           `mapstructure:"zoom_factor"`
	BaselineZoom     int               `mapstructure:"baseline_zoom"`
	MinZoom          int               `mapstructure:"min_zoom"`
	MaxZoom          int               `mapstructure:"max_zoom"`
	DefaultZoom      int               `mapstructure:"default_zoom"`
	DefaultLat       float64           `mapstructure:"default_lat"`
	DefaultLng       float64           `mapstructure:"default_lng"`
	Width            float64           `mapstructure:"width"`
	Height           float64           `mapstructure:"height"`
	ClusterPrecision uint              `mapstructure:"cluster_precision"`
	CategoryColors   map[string]string `mapstructure:"category_colors"`
	FallbackColor    string            `mapstructure:"fallback_color"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: BARTERBAY_DATABASE_HOST → database.host
	v.SetEnvPrefix("BARTERBAY")
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

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "barterbay")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "barterbay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("geocoder.base_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("geocoder.user_agent", "barterbay/1.0")
	v.SetDefault("geocoder.timeout", "5s")
	v.SetDefault("geocoder.cache_ttl", 86400)
	v.SetDefault("search.debounce", "250ms")
	v.SetDefault("search.location_timeout", "8s")
	v.SetDefault("search.queue_size", 64)
	v.SetDefault("search.refresh_interval", "1m")
	v.SetDefault("search.snapshot_cache_ttl", 300)
	v.SetDefault("map.base_half_width", 0.02)
	v.SetDefault("map.zoom_factor", 0.8)
	v.SetDefault("map.baseline_zoom", 13)
	v.SetDefault("map.min_zoom", 8)
	v.SetDefault("map.max_zoom", 18)
	v.SetDefault("map.default_zoom", 13)
	v.SetDefault("map.default_lat", 40.7128)
	v.SetDefault("map.default_lng", -74.0060)
	v.SetDefault("map.width", 800)
	v.SetDefault("map.height", 600)
	v.SetDefault("map.cluster_precision", 6)
	v.SetDefault("map.fallback_color", "#6b7280")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
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
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Geocoder.BaseURL == "" {
		errs = append(errs, "geocoder.base_url is required")
	}
	if c.Search.Debounce < 0 {
		errs = append(errs, "search.debounce must not be negative")
	}
	if c.Search.LocationTimeout <= 0 {
		errs = append(errs, "search.location_timeout must be positive")
	}
	if c.Search.QueueSize <= 0 {
		errs = append(errs, "search.queue_size must be positive")
	}
	if c.Map.MinZoom > c.Map.MaxZoom {
		errs = append(errs, fmt.Sprintf("map.min_zoom (%d) must not exceed map.max_zoom (%d)", c.Map.MinZoom, c.Map.MaxZoom))
	}
	if c.Map.BaseHalfWidth <= 0 {
		errs = append(errs, "map.base_half_width must be positive")
	}
	if c.Map.ZoomFactor <= 0 || c.Map.ZoomFactor >= 1 {
		errs = append(errs, "map.zoom_factor must be in (0,1)")
	}
	if c.Map.Width <= 0 || c.Map.Height <= 0 {
		errs = append(errs, "map.width and map.height must be positive")
	}
	if c.Map.ClusterPrecision < 1 || c.Map.ClusterPrecision > 12 {
		errs = append(errs, "map.cluster_precision must be 1-12")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
