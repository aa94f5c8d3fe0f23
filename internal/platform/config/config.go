// Package config loads quotesync configuration using koanf.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Default configuration values.
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	DefaultClientRetryMaxAttempts     = 3
	DefaultClientRetryMultiplier      = 2.0
	DefaultClientRetryJitterFactor    = 0.25
	DefaultClientCircuitMaxFailures   = 5
	DefaultClientCircuitHalfOpenLimit = 3

	DefaultTransportMaxIdleConns        = 100
	DefaultTransportMaxIdleConnsPerHost = 10

	DefaultLogFileMaxSizeMB  = 100
	DefaultLogFileMaxBackups = 3
	DefaultLogFileMaxAgeDays = 28

	// DefaultRemoteBaseURL is the public JSONPlaceholder API used as the remote collection.
	DefaultRemoteBaseURL = "https://jsonplaceholder.typicode.com"

	// DefaultSyncBatchSize bounds how many remote items one sync cycle considers.
	DefaultSyncBatchSize = 10

	// DefaultSyncInterval is the period between automatic sync cycles.
	DefaultSyncInterval = 30 * time.Second

	// DefaultNotificationDuration is how long a notification stays visible.
	DefaultNotificationDuration = 5 * time.Second

	DefaultSessionMaxEntries = 1024
	DefaultExportFilename    = "quotes.json"
)

// Config is the root configuration structure.
type Config struct {
	App           AppConfig          `koanf:"app"           validate:"required"`
	Server        ServerConfig       `koanf:"server"        validate:"required"`
	Log           LogConfig          `koanf:"log"           validate:"required"`
	Telemetry     TelemetryConfig    `koanf:"telemetry"`
	Client        ClientConfig       `koanf:"client"        validate:"required"`
	Remote        RemoteConfig       `koanf:"remote"        validate:"required"`
	Storage       StorageConfig      `koanf:"storage"       validate:"required"`
	Sync          SyncConfig         `koanf:"sync"          validate:"required"`
	Notifications NotificationConfig `koanf:"notifications" validate:"required"`
	Session       SessionConfig      `koanf:"session"       validate:"required"`
	Export        ExportConfig       `koanf:"export"        validate:"required"`
	Inbox         InboxConfig        `koanf:"inbox"`
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
}

// ClientConfig contains outbound HTTP client settings.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for outbound calls.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for outbound calls.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP connection pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// RemoteConfig describes the remote collection quotes are synced against.
type RemoteConfig struct {
	Name        string `koanf:"name"         validate:"required"`
	BaseURL     string `koanf:"base_url"     validate:"required,url"`
	ListPath    string `koanf:"list_path"    validate:"required,startswith=/"`
	PublishPath string `koanf:"publish_path" validate:"required,startswith=/"`
	BatchSize   int    `koanf:"batch_size"   validate:"required,min=1,max=100"`
}

// StorageConfig selects the persistent key-value driver.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=memory file badger"`
	Path   string `koanf:"path"   validate:"required_unless=Driver memory"`
}

// SyncConfig controls the periodic sync scheduler.
type SyncConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval" validate:"required,min=1s"`
}

// NotificationConfig controls transient user notifications.
type NotificationConfig struct {
	DisplayDuration time.Duration `koanf:"display_duration" validate:"required,min=100ms"`
}

// SessionConfig bounds the per-session store.
type SessionConfig struct {
	MaxEntries int           `koanf:"max_entries" validate:"required,min=1"`
	TTL        time.Duration `koanf:"ttl"         validate:"required,min=1s"`
}

// ExportConfig sets the export filename and the optional object storage destination.
type ExportConfig struct {
	Filename string            `koanf:"filename" validate:"required"`
	Dir      string            `koanf:"dir"      validate:"required"`
	Bucket   ObjectStoreConfig `koanf:"bucket"`
}

// ObjectStoreConfig describes an S3-compatible bucket.
type ObjectStoreConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Endpoint  string `koanf:"endpoint"   validate:"required_if=Enabled true"`
	Name      string `koanf:"name"       validate:"required_if=Enabled true"`
	Region    string `koanf:"region"`
	AccessKey string `koanf:"access_key" validate:"required_if=Enabled true"`
	SecretKey string `koanf:"secret_key" validate:"required_if=Enabled true"`
	UseSSL    bool   `koanf:"use_ssl"`
	Prefix    string `koanf:"prefix"`
}

// InboxConfig controls the watched import directory.
type InboxConfig struct {
	Enabled bool   `koanf:"enabled"`
	Dir     string `koanf:"dir" validate:"required_if=Enabled true"`
}

// defaults returns the default configuration values.
func defaults() map[string]any {
	return map[string]any{
		"app.name":        "quotesync",
		"app.version":     "dev",
		"app.environment": "local",

		"server.port":             DefaultServerPort,
		"server.host":             "0.0.0.0",
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "10s",
		"server.request_timeout":  "30s",
		"server.max_request_size": DefaultMaxRequestSize,

		"log.level":            "info",
		"log.format":           "json",
		"log.file.enabled":     false,
		"log.file.path":        "./logs/quotesync.log",
		"log.file.max_size":    DefaultLogFileMaxSizeMB,
		"log.file.max_backups": DefaultLogFileMaxBackups,
		"log.file.max_age":     DefaultLogFileMaxAgeDays,
		"log.file.compress":    true,

		"telemetry.enabled":       false,
		"telemetry.endpoint":      "",
		"telemetry.service_name":  "quotesync",
		"telemetry.sampling_rate": 1.0,

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

		"remote.name":         "jsonplaceholder",
		"remote.base_url":     DefaultRemoteBaseURL,
		"remote.list_path":    "/posts",
		"remote.publish_path": "/posts",
		"remote.batch_size":   DefaultSyncBatchSize,

		"storage.driver": "file",
		"storage.path":   "./data",

		"sync.enabled":  true,
		"sync.interval": DefaultSyncInterval.String(),

		"notifications.display_duration": DefaultNotificationDuration.String(),

		"session.max_entries": DefaultSessionMaxEntries,
		"session.ttl":         "30m",

		"export.filename":       DefaultExportFilename,
		"export.dir":            ".",
		"export.bucket.enabled": false,
		"export.bucket.region":  "us-east-1",
		"export.bucket.use_ssl": true,
		"export.bucket.prefix":  "exports/",

		"inbox.enabled": false,
		"inbox.dir":     "./inbox",
	}
}

// Load loads configuration with the following precedence (highest to lowest):
//  1. Environment variables (APP_ prefix)
//  2. Profile config file (configs/{profile}.yaml)
//  3. Base config file (configs/base.yaml)
//  4. Default values
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if err := loadFileIfExists(k, "configs/base.yaml"); err != nil {
		return nil, fmt.Errorf("loading base config: %w", err)
	}

	if profile != "" {
		if err := loadFileIfExists(k, fmt.Sprintf("configs/%s.yaml", profile)); err != nil {
			return nil, fmt.Errorf("loading profile config %q: %w", profile, err)
		}
	}

	known := envKeyIndex(k.Keys())

	err := k.Load(env.Provider("APP_", ".", func(s string) string {
		return envToKey(known, s)
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return &cfg, nil
}

// envKeyIndex maps the flattened env spelling of each known key to the key itself,
// so APP_SERVER_READ_TIMEOUT resolves to server.read_timeout and not server.read.timeout.
func envKeyIndex(keys []string) map[string]string {
	idx := make(map[string]string, len(keys))
	for _, key := range keys {
		idx[strings.ReplaceAll(key, ".", "_")] = key
	}

	return idx
}

func envToKey(known map[string]string, name string) string {
	flat := strings.ToLower(strings.TrimPrefix(name, "APP_"))
	if key, ok := known[flat]; ok {
		return key
	}

	return strings.ReplaceAll(flat, "_", ".")
}

// loadFileIfExists loads a YAML config file. A missing file is not an error.
func loadFileIfExists(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
