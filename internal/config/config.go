package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the attribution service.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	ClickHouse ClickHouseConfig
	Facebook   FacebookConfig
	Report     ReportConfig
	RateLimit  RateLimitConfig
	Log        LogConfig
	Metrics    MetricsConfig
	Geo        GeoConfig
}

type ServerConfig struct {
	Addr            string
	Env             string
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ClickHouseConfig configures the raw click-event store connection.
type ClickHouseConfig struct {
	Addr     string
	Database string
	User     string
	Password string
}

// FacebookConfig configures the remote ad-platform client.
type FacebookConfig struct {
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
}

// ReportConfig holds attribution run settings.
type ReportConfig struct {
	// Timezone the reporting date window is computed in.
	Timezone string
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

type LogConfig struct {
	Level  string
	Format string
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// GeoConfig configures the GeoIP diagnostics lookup.
type GeoConfig struct {
	Enabled      bool
	DatabasePath string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Addr:            getEnv("ROAS_ATTR_HTTP_ADDR", ":8080"),
			Env:             getEnv("ROAS_ATTR_ENV", "development"),
			ShutdownTimeout: getDurationEnv("ROAS_ATTR_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("ROAS_ATTR_DB_HOST", "localhost"),
			Port:     getIntEnv("ROAS_ATTR_DB_PORT", 5432),
			User:     getEnv("ROAS_ATTR_DB_USER", "roasattr"),
			Password: getEnv("ROAS_ATTR_DB_PASSWORD", "roasattr_secret"),
			DBName:   getEnv("ROAS_ATTR_DB_NAME", "roasattr"),
			SSLMode:  getEnv("ROAS_ATTR_DB_SSLMODE", "disable"),
			MaxConns: getIntEnv("ROAS_ATTR_DB_MAX_CONNS", 25),
			MinConns: getIntEnv("ROAS_ATTR_DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("ROAS_ATTR_REDIS_ADDR", "localhost:6379"),
			Password: getEnv("ROAS_ATTR_REDIS_PASSWORD", ""),
			DB:       getIntEnv("ROAS_ATTR_REDIS_DB", 0),
		},
		ClickHouse: ClickHouseConfig{
			Addr:     getEnv("ROAS_ATTR_CLICKHOUSE_ADDR", "localhost:9000"),
			Database: getEnv("ROAS_ATTR_CLICKHOUSE_DB", "events"),
			User:     getEnv("ROAS_ATTR_CLICKHOUSE_USER", "default"),
			Password: getEnv("ROAS_ATTR_CLICKHOUSE_PASSWORD", ""),
		},
		Facebook: FacebookConfig{
			BaseURL:    getEnv("ROAS_ATTR_FB_BASE_URL", "https://graph.facebook.com"),
			APIVersion: getEnv("ROAS_ATTR_FB_API_VERSION", "v18.0"),
			Timeout:    getDurationEnv("ROAS_ATTR_FB_TIMEOUT", 10*time.Second),
		},
		Report: ReportConfig{
			Timezone: getEnv("ROAS_ATTR_REPORT_TIMEZONE", "America/Los_Angeles"),
		},
		RateLimit: RateLimitConfig{
			Enabled: getBoolEnv("ROAS_ATTR_RATE_LIMIT_ENABLED", true),
			RPS:     getFloatEnv("ROAS_ATTR_RATE_LIMIT_RPS", 5),
			Burst:   getIntEnv("ROAS_ATTR_RATE_LIMIT_BURST", 10),
		},
		Log: LogConfig{
			Level:  getEnv("ROAS_ATTR_LOG_LEVEL", "info"),
			Format: getEnv("ROAS_ATTR_LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolEnv("ROAS_ATTR_METRICS_ENABLED", true),
			Path:    getEnv("ROAS_ATTR_METRICS_PATH", "/metrics"),
		},
		Geo: GeoConfig{
			Enabled:      getBoolEnv("ROAS_ATTR_GEO_ENABLED", false),
			DatabasePath: getEnv("ROAS_ATTR_GEO_DB_PATH", "/app/data/GeoLite2-City.mmdb"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Geo.Enabled && c.Geo.DatabasePath == "" {
		return fmt.Errorf("ROAS_ATTR_GEO_DB_PATH is required when geo is enabled")
	}
	if _, err := time.LoadLocation(c.Report.Timezone); err != nil {
		return fmt.Errorf("invalid ROAS_ATTR_REPORT_TIMEZONE: %w", err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions for reading environment variables

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getIntEnv(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getFloatEnv(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
