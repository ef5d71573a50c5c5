// Package config loads service configuration with koanf.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	// DefaultServerPort is the default HTTP server port.
	DefaultServerPort = 8080

	// DefaultMaxRequestSize is the default maximum request body size (1MB).
	DefaultMaxRequestSize = 1 << 20

	// DefaultClientRetryMaxAttempts is the default number of attempts per outbound request.
	DefaultClientRetryMaxAttempts = 2

	// DefaultClientRetryMultiplier is the default exponential backoff multiplier.
	DefaultClientRetryMultiplier = 2.0

	// DefaultClientRetryJitterFactor is the default jitter percentage (±25%).
	DefaultClientRetryJitterFactor = 0.25

	// DefaultClientCircuitMaxFailures is the default failures before circuit opens.
	DefaultClientCircuitMaxFailures = 5

	// DefaultClientCircuitHalfOpenLimit is the default successes to close circuit.
	DefaultClientCircuitHalfOpenLimit = 2

	// DefaultTransportMaxIdleConns is the default max idle connections.
	DefaultTransportMaxIdleConns = 50

	// DefaultTransportMaxIdleConnsPerHost is the default max idle connections per host.
	DefaultTransportMaxIdleConnsPerHost = 5

	// DefaultLogFileMaxSizeMB is the default max log file size in megabytes.
	DefaultLogFileMaxSizeMB = 100

	// DefaultLogFileMaxBackups is the default number of old log files to retain.
	DefaultLogFileMaxBackups = 3

	// DefaultLogFileMaxAgeDays is the default max days to retain old log files.
	DefaultLogFileMaxAgeDays = 28

	// DefaultMaxFetchAttempts bounds the external-source retry loop of one random quote request.
	DefaultMaxFetchAttempts = 10

	// DefaultMostLikedCount is the number of quotes returned by the most-liked endpoint.
	DefaultMostLikedCount = 10

	// DefaultMostLikedMax caps the count query parameter of the most-liked endpoint.
	DefaultMostLikedMax = 100

	// DefaultPostgresPort is the port used when only POSTGRES_HOST is set.
	DefaultPostgresPort = 5432
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// dotenvPath is the optional dotenv file read before the environment.
var dotenvPath = ".env"

// wellKnownEnv maps un-prefixed deployment variables onto config keys.
var wellKnownEnv = map[string]string{
	"APININJAS_API_KEY":      "sources.api_ninjas.api_key",
	"UNSPLASH_API_CLIENT_ID": "images.client_id",
	"POSTGRES_DB":            "database.name",
	"POSTGRES_USER":          "database.user",
	"POSTGRES_PASSWORD":      "database.password",
	"POSTGRES_HOST":          "database.host",
	"POSTGRES_PORT":          "database.port",
	"REDIS_URL":              "redis.url",
}

// Config is the root configuration structure.
type Config struct {
	App       AppConfig       `koanf:"app"       validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"       validate:"required"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Auth      AuthConfig      `koanf:"auth"`
	Client    ClientConfig    `koanf:"client"    validate:"required"`
	Database  DatabaseConfig  `koanf:"database"  validate:"required"`
	Redis     RedisConfig     `koanf:"redis"`
	Quotes    QuotesConfig    `koanf:"quotes"    validate:"required"`
	Sources   SourcesConfig   `koanf:"sources"`
	Images    ImagesConfig    `koanf:"images"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
	// Insecure disables TLS towards the collector, as for a local sidecar.
	Insecure bool `koanf:"insecure"`
}

// AuthConfig describes the identity headers set by the API gateway in front
// of the service. Only the management endpoints require them.
type AuthConfig struct {
	Enabled       bool   `koanf:"enabled"`
	AdminRole     string `koanf:"admin_role"     validate:"required_if=Enabled true"`
	RolesHeader   string `koanf:"roles_header"`
	SubjectHeader string `koanf:"subject_header"`
}

// ClientConfig contains outbound HTTP client settings shared by the quote and
// image API clients.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// DatabaseConfig selects and configures the quote store.
type DatabaseConfig struct {
	Driver          string        `koanf:"driver"            validate:"required,oneof=postgres sqlite"`
	DSN             string        `koanf:"dsn"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"              validate:"omitempty,min=1,max=65535"`
	Name            string        `koanf:"name"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	SSLMode         string        `koanf:"ssl_mode"          validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns    int           `koanf:"max_open_conns"    validate:"min=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns"    validate:"min=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	MigrateOnStart  bool          `koanf:"migrate_on_start"`
}

// DataSourceName returns the DSN handed to database/sql. An explicit dsn wins;
// otherwise a postgres URL is assembled from the individual settings.
func (d *DatabaseConfig) DataSourceName() (string, error) {
	if d.DSN != "" {
		return d.DSN, nil
	}

	if d.Driver != DriverPostgres {
		return "", errors.New("database.dsn is required for the sqlite driver")
	}

	if d.Host == "" || d.Name == "" {
		return "", errors.New("database.host and database.name are required when database.dsn is empty")
	}

	port := d.Port
	if port == 0 {
		port = DefaultPostgresPort
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(d.Host, strconv.Itoa(port)),
		Path:   "/" + d.Name,
	}

	if d.User != "" {
		u.User = url.UserPassword(d.User, d.Password)
	}

	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": []string{d.SSLMode}}.Encode()
	}

	return u.String(), nil
}

// RedisConfig configures the image lookup cache and the vote rate limiter.
type RedisConfig struct {
	Enabled       bool          `koanf:"enabled"`
	URL           string        `koanf:"url"             validate:"required_if=Enabled true"`
	ImageCacheTTL time.Duration `koanf:"image_cache_ttl" validate:"min=0"`
	VoteLimit     int           `koanf:"vote_limit"      validate:"min=0"`
	VoteWindow    time.Duration `koanf:"vote_window"     validate:"required_if=Enabled true"`
}

// QuotesConfig holds the orchestration and listing limits.
type QuotesConfig struct {
	MaxFetchAttempts int `koanf:"max_fetch_attempts" validate:"required,min=1,max=100"`
	MostLikedDefault int `koanf:"most_liked_default" validate:"required,min=1"`
	MostLikedMax     int `koanf:"most_liked_max"     validate:"required,gtefield=MostLikedDefault"`
}

// SourcesConfig lists the external quote APIs.
type SourcesConfig struct {
	APINinjas   SourceConfig `koanf:"api_ninjas"`
	Programming SourceConfig `koanf:"programming"`
	Zen         SourceConfig `koanf:"zen"`
}

// SourceConfig configures one external quote API.
type SourceConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url" validate:"required_if=Enabled true,omitempty,url"`
	APIKey  string `koanf:"api_key"`
}

// ImagesConfig configures the Unsplash image search.
type ImagesConfig struct {
	Enabled  bool   `koanf:"enabled"`
	BaseURL  string `koanf:"base_url"  validate:"required_if=Enabled true,omitempty,url"`
	ClientID string `koanf:"client_id" validate:"required_if=Enabled true"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "random-quote-generator",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "15s",
		"server.write_timeout":    "60s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "45s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quotes.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "random-quote-generator",
		"telemetry.sampling_rate": 1.0,
		"telemetry.insecure":      true,

		"auth.enabled":        true,
		"auth.admin_role":     "admin",
		"auth.roles_header":   "X-User-Roles",
		"auth.subject_header": "X-User-ID",

		"client.timeout":                           "10s",
		"client.retry.max_attempts":                DefaultClientRetryMaxAttempts,
		"client.retry.initial_interval":            "100ms",
		"client.retry.max_interval":                "2s",
		"client.retry.multiplier":                  DefaultClientRetryMultiplier,
		"client.retry.jitter_factor":               DefaultClientRetryJitterFactor,
		"client.circuit_breaker.max_failures":      DefaultClientCircuitMaxFailures,
		"client.circuit_breaker.timeout":           "30s",
		"client.circuit_breaker.half_open_limit":   DefaultClientCircuitHalfOpenLimit,
		"client.transport.max_idle_conns":          DefaultTransportMaxIdleConns,
		"client.transport.max_idle_conns_per_host": DefaultTransportMaxIdleConnsPerHost,
		"client.transport.idle_conn_timeout":       "90s",

		"database.driver":            DriverSQLite,
		"database.dsn":               "file:quotes.db",
		"database.host":              "",
		"database.port":              DefaultPostgresPort,
		"database.name":              "",
		"database.user":              "",
		"database.password":          "",
		"database.ssl_mode":          "",
		"database.max_open_conns":    10,
		"database.max_idle_conns":    5,
		"database.conn_max_lifetime": "30m",
		"database.migrate_on_start":  true,

		"redis.enabled":         false,
		"redis.url":             "redis://localhost:6379/0",
		"redis.image_cache_ttl": "10m",
		"redis.vote_limit":      30,
		"redis.vote_window":     "1m",

		"quotes.max_fetch_attempts": DefaultMaxFetchAttempts,
		"quotes.most_liked_default": DefaultMostLikedCount,
		"quotes.most_liked_max":     DefaultMostLikedMax,

		"sources.api_ninjas.enabled":   true,
		"sources.api_ninjas.base_url":  "https://api.api-ninjas.com/",
		"sources.api_ninjas.api_key":   "",
		"sources.programming.enabled":  true,
		"sources.programming.base_url": "https://programming-quotesapi.vercel.app/api/",
		"sources.zen.enabled":          true,
		"sources.zen.base_url":         "https://zenquotes.io/api/",

		"images.enabled":   true,
		"images.base_url":  "https://api.unsplash.com",
		"images.client_id": "",
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables with the APP_ prefix
//  2. Well-known deployment variables (POSTGRES_*, APININJAS_API_KEY, ...)
//  3. Profile config file (configs/{profile}.yaml)
//  4. Base config file (configs/base.yaml)
//  5. Default values
//
// A .env file in the working directory is loaded into the process
// environment first; variables that are already set are not overridden.
func Load(profile string) (*Config, error) {
	err := godotenv.Load(dotenvPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", dotenvPath, err)
	}

	k := koanf.New(".")

	err = k.Load(confmap.Provider(defaults(), "."), nil)
	if err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	err = loadFileIfExists(k, "configs/base.yaml")
	if err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		profilePath := fmt.Sprintf("configs/%s.yaml", profile)

		err := loadFileIfExists(k, profilePath)
		if err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	err = k.Load(env.Provider("", ".", func(s string) string {
		return wellKnownEnv[s]
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading deployment env vars: %w", err)
	}

	keys := envKeyIndex(k.Keys())

	err = k.Load(env.Provider("APP_", ".", func(s string) string {
		return keys.resolve(strings.TrimPrefix(s, "APP_"))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config

	err = k.Unmarshal("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKeyIndex maps the underscore form of every known key back to the key,
// so APP_CLIENT_RETRY_MAX_ATTEMPTS resolves to client.retry.max_attempts.
type envKeyIndex []string

func (idx envKeyIndex) resolve(name string) string {
	flat := strings.ToLower(name)

	for _, key := range idx {
		if strings.ReplaceAll(key, ".", "_") == flat {
			return key
		}
	}

	return strings.ReplaceAll(flat, "_", ".")
}

// loadFileIfExists loads a YAML config file if it exists.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
