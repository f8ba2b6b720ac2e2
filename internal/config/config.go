// Package config loads the service configuration from an optional YAML file
// with SATVIEW_* environment overrides on top. Defaults are applied before
// the file and validation runs after the overrides, so a partial file or a
// bare environment both produce a complete configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Auth        AuthConfig        `yaml:"auth"`
	TLE         TLEConfig         `yaml:"tle"`
	Propagation PropagationConfig `yaml:"propagation"`
	Snapshot    SnapshotConfig    `yaml:"snapshot"`
	Stream      StreamConfig      `yaml:"stream"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig contains the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AuthConfig contains Bearer token settings. The token itself is only
// accepted from the environment so it never lands in a config file.
type AuthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Token   string `yaml:"-"`
}

// TLEConfig contains element-set supply settings.
type TLEConfig struct {
	SourceURL              string   `yaml:"source_url"`
	ExtraURLs              []string `yaml:"extra_urls"`
	CacheDir               string   `yaml:"cache_dir"`
	CacheMaxFiles          int      `yaml:"cache_max_files"`
	RefreshIntervalMinutes int      `yaml:"refresh_interval_minutes"`
	FetchEnabled           bool     `yaml:"fetch_enabled"`
}

// PropagationConfig contains batch propagation settings.
type PropagationConfig struct {
	Workers        int `yaml:"workers"`
	StepSeconds    int `yaml:"step_seconds"`
	HorizonSeconds int `yaml:"horizon_seconds"`
}

// SnapshotConfig contains the rolling snapshot cache settings.
type SnapshotConfig struct {
	StepSeconds        int `yaml:"step_seconds"`
	HorizonSeconds     int `yaml:"horizon_seconds"`
	GracePeriodSeconds int `yaml:"grace_period_seconds"`
	BufferSeconds      int `yaml:"buffer_seconds"`
}

// StreamConfig contains SSE stream settings.
type StreamConfig struct {
	MaxConcurrentPerIP       int  `yaml:"max_concurrent_per_ip"`
	MaxConcurrentTotal       int  `yaml:"max_concurrent_total"`
	KeepaliveIntervalSeconds int  `yaml:"keepalive_interval_seconds"`
	TrustProxy               bool `yaml:"trust_proxy"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		TLE: TLEConfig{
			CacheDir:               "data/tle",
			CacheMaxFiles:          5,
			RefreshIntervalMinutes: 360,
			FetchEnabled:           true,
		},
		Propagation: PropagationConfig{
			Workers:        runtime.NumCPU(),
			StepSeconds:    5,
			HorizonSeconds: 600,
		},
		Snapshot: SnapshotConfig{
			StepSeconds:        5,
			HorizonSeconds:     600,
			GracePeriodSeconds: 30,
			BufferSeconds:      60,
		},
		Stream: StreamConfig{
			MaxConcurrentPerIP:       3,
			MaxConcurrentTotal:       1000,
			KeepaliveIntervalSeconds: 15,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is non-empty), then SATVIEW_* environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("SATVIEW_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("SATVIEW_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv("SATVIEW_AUTH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SATVIEW_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		c.Auth.Enabled = enabled
	}
	c.Auth.Token = os.Getenv("SATVIEW_AUTH_TOKEN")

	if v := os.Getenv("SATVIEW_TLE_SOURCE_URL"); v != "" {
		c.TLE.SourceURL = v
	}
	if v := os.Getenv("SATVIEW_TLE_CACHE_DIR"); v != "" {
		c.TLE.CacheDir = v
	}
	if v := os.Getenv("SATVIEW_TLE_FETCH_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SATVIEW_TLE_FETCH_ENABLED must be a boolean value")
		}
		c.TLE.FetchEnabled = enabled
	}

	intVars := []struct {
		name string
		dst  *int
	}{
		{"SATVIEW_TLE_REFRESH_INTERVAL_MINUTES", &c.TLE.RefreshIntervalMinutes},
		{"SATVIEW_PROP_WORKERS", &c.Propagation.Workers},
		{"SATVIEW_SNAPSHOT_STEP", &c.Snapshot.StepSeconds},
		{"SATVIEW_SNAPSHOT_HORIZON", &c.Snapshot.HorizonSeconds},
		{"SATVIEW_STREAM_MAX_PER_IP", &c.Stream.MaxConcurrentPerIP},
		{"SATVIEW_STREAM_MAX_TOTAL", &c.Stream.MaxConcurrentTotal},
	}
	for _, iv := range intVars {
		v := os.Getenv(iv.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("%s must be a positive integer", iv.name)
		}
		*iv.dst = n
	}

	if v := os.Getenv("SATVIEW_STREAM_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("SATVIEW_STREAM_TRUST_PROXY must be a boolean value")
		}
		c.Stream.TrustProxy = trust
	}

	return nil
}

func (c *Config) validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Auth.Enabled && c.Auth.Token == "" {
		return fmt.Errorf("SATVIEW_AUTH_TOKEN is required when auth is enabled")
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error")
	}
	if c.Propagation.Workers < 1 {
		return fmt.Errorf("propagation.workers must be positive")
	}
	if c.Propagation.StepSeconds < 1 || c.Propagation.HorizonSeconds < c.Propagation.StepSeconds {
		return fmt.Errorf("propagation step/horizon out of range")
	}
	if c.Snapshot.StepSeconds < 1 || c.Snapshot.HorizonSeconds < c.Snapshot.StepSeconds {
		return fmt.Errorf("snapshot step/horizon out of range")
	}
	if c.Snapshot.GracePeriodSeconds < 1 || c.Snapshot.BufferSeconds < 0 {
		return fmt.Errorf("snapshot grace period/buffer out of range")
	}
	if c.TLE.CacheMaxFiles < 1 {
		return fmt.Errorf("tle.cache_max_files must be positive")
	}
	if c.TLE.RefreshIntervalMinutes < 1 {
		return fmt.Errorf("tle.refresh_interval_minutes must be positive")
	}
	if c.Stream.MaxConcurrentPerIP < 1 {
		return fmt.Errorf("stream.max_concurrent_per_ip must be positive")
	}
	if c.Stream.MaxConcurrentTotal < c.Stream.MaxConcurrentPerIP {
		return fmt.Errorf("stream.max_concurrent_total must be at least max_concurrent_per_ip")
	}
	if c.Stream.KeepaliveIntervalSeconds < 1 {
		return fmt.Errorf("stream.keepalive_interval_seconds must be positive")
	}
	return nil
}

// LogLevel maps the configured level name to a slog.Level. validate has
// already rejected unknown names.
func (c *Config) LogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// RefreshInterval returns the TLE refresh interval as a duration.
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.TLE.RefreshIntervalMinutes) * time.Minute
}
