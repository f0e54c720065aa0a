// Package config provides configuration loading and parsing for hotswap.
package config

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/mo"
)

// Log level constants.
const (
	LevelTrace = "trace"
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Log format constants.
const (
	FormatFull    = "full"
	FormatCompact = "compact"
	FormatJSON    = "json"
	FormatPretty  = "pretty"
)

// Dependency modes.
const (
	DependencySimulated = "simulated"
	DependencyHTTP      = "http"
)

// Config represents the complete hotswap configuration.
type Config struct {
	API        APIConfig        `yaml:"api" toml:"api"`
	Server     ServerConfig     `yaml:"server" toml:"server"`
	Dependency DependencyConfig `yaml:"dependency" toml:"dependency"`
	Control    ControlConfig    `yaml:"control" toml:"control"`
	Metrics    MetricsConfig    `yaml:"metrics" toml:"metrics"`
}

// APIConfig defines the listening side of the process.
type APIConfig struct {
	Log         LogConfig `yaml:"log" toml:"log"`
	Address     string    `yaml:"address" toml:"address"`
	Port        int       `yaml:"port" toml:"port"`
	EnableHTTP2 bool      `yaml:"enable_http2" toml:"enable_http2"` // h2c for non-TLS connections
}

// ListenAddress returns the host:port the listener binds to.
func (a *APIConfig) ListenAddress() string {
	return net.JoinHostPort(a.Address, strconv.Itoa(a.Port))
}

// ServerConfig describes the managed dependency the service talks to.
type ServerConfig struct {
	Log           LogConfig `yaml:"log" toml:"log"`
	LocalHostname string    `yaml:"local_hostname" toml:"local_hostname"`
}

// LogConfig defines logging behavior.
type LogConfig struct {
	Level  string `yaml:"level" toml:"level"`   // trace, debug, info, warn, error
	Format string `yaml:"format" toml:"format"` // full, compact, json, pretty
	Output string `yaml:"output" toml:"output"` // stdout, stderr, or file path
}

// ParseLevel converts a string log level to zerolog.Level.
// Returns zerolog.InfoLevel if the level string is invalid.
func (l *LogConfig) ParseLevel() zerolog.Level {
	switch strings.ToLower(l.Level) {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Dependency defaults.
const (
	DefaultRestartDelayMS        = 3000
	DefaultRestartFailureDelayMS = 1000
	DefaultRestartTimeoutMS      = 10000
	DefaultCacheTTLMS            = 5000
	DefaultFailureThreshold      = 5
	DefaultOpenDurationMS        = 30000
	DefaultHalfOpenProbes        = 3

	// MaxRestartTimeoutMS bounds restart_timeout_ms. The restart endpoint
	// answers only when the restart ends, so the HTTP server's write timeout
	// is derived from this bound.
	MaxRestartTimeoutMS = 50000
)

// DependencyConfig controls how the managed dependency is reached and restarted.
// Durations are in milliseconds; 0 or an omitted key selects the default.
// A negative cache_ttl_ms disables the response cache.
type DependencyConfig struct {
	Mode                  string               `yaml:"mode" toml:"mode"`     // simulated (default), http
	Scheme                string               `yaml:"scheme" toml:"scheme"` // http (default), https
	CircuitBreaker        CircuitBreakerConfig `yaml:"circuit_breaker" toml:"circuit_breaker"`
	RestartDelayMS        int                  `yaml:"restart_delay_ms" toml:"restart_delay_ms"`
	RestartFailureDelayMS int                  `yaml:"restart_failure_delay_ms" toml:"restart_failure_delay_ms"`
	RestartTimeoutMS      int                  `yaml:"restart_timeout_ms" toml:"restart_timeout_ms"`
	CacheTTLMS            int                  `yaml:"cache_ttl_ms" toml:"cache_ttl_ms"`
}

// GetMode returns the dependency mode with default fallback.
func (d *DependencyConfig) GetMode() string {
	if d.Mode == "" {
		return DependencySimulated
	}
	return d.Mode
}

// GetScheme returns the URL scheme used to reach the dependency.
func (d *DependencyConfig) GetScheme() string {
	if d.Scheme == "" {
		return "http"
	}
	return d.Scheme
}

// GetRestartDelay returns the simulated successful restart duration.
func (d *DependencyConfig) GetRestartDelay() time.Duration {
	return millisOrDefault(d.RestartDelayMS, DefaultRestartDelayMS)
}

// GetRestartFailureDelay returns the simulated failed restart duration.
func (d *DependencyConfig) GetRestartFailureDelay() time.Duration {
	return millisOrDefault(d.RestartFailureDelayMS, DefaultRestartFailureDelayMS)
}

// GetRestartTimeout returns the upper bound for a restart control operation.
func (d *DependencyConfig) GetRestartTimeout() time.Duration {
	return millisOrDefault(d.RestartTimeoutMS, DefaultRestartTimeoutMS)
}

// GetCacheTTLOption returns the response cache TTL, or None when caching is
// disabled by a negative value.
func (d *DependencyConfig) GetCacheTTLOption() mo.Option[time.Duration] {
	if d.CacheTTLMS < 0 {
		return mo.None[time.Duration]()
	}
	return mo.Some(millisOrDefault(d.CacheTTLMS, DefaultCacheTTLMS))
}

// CircuitBreakerConfig defines circuit breaker behavior for dependency calls.
type CircuitBreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" toml:"failure_threshold"`
	OpenDurationMS   int `yaml:"open_duration_ms" toml:"open_duration_ms"`
	HalfOpenProbes   int `yaml:"half_open_probes" toml:"half_open_probes"`
}

// GetFailureThreshold returns the configured failure threshold or default 5.
func (c *CircuitBreakerConfig) GetFailureThreshold() int {
	if c.FailureThreshold <= 0 {
		return DefaultFailureThreshold
	}
	return c.FailureThreshold
}

// GetOpenDuration returns the open duration as time.Duration.
func (c *CircuitBreakerConfig) GetOpenDuration() time.Duration {
	return millisOrDefault(c.OpenDurationMS, DefaultOpenDurationMS)
}

// GetHalfOpenProbes returns the configured half-open probes or default 3.
func (c *CircuitBreakerConfig) GetHalfOpenProbes() int {
	if c.HalfOpenProbes <= 0 {
		return DefaultHalfOpenProbes
	}
	return c.HalfOpenProbes
}

// ControlConfig defines how control operations may be triggered.
type ControlConfig struct {
	// Watch enables reloading when the config file changes on disk.
	// Defaults to true when unset.
	Watch *bool `yaml:"watch" toml:"watch"`

	// RequestsPerMinute limits POST /reload and POST /restart-dependency.
	// 0 means unlimited.
	RequestsPerMinute int `yaml:"requests_per_minute" toml:"requests_per_minute"`
}

// IsWatchEnabled returns whether file watching is enabled.
func (c *ControlConfig) IsWatchEnabled() bool {
	if c.Watch == nil {
		return true
	}
	return *c.Watch
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled *bool `yaml:"enabled" toml:"enabled"`
}

// IsEnabled returns whether /metrics is served. Defaults to true.
func (m *MetricsConfig) IsEnabled() bool {
	if m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

// millisOrDefault treats 0 like an omitted key.
func millisOrDefault(ms, def int) time.Duration {
	if ms <= 0 {
		ms = def
	}
	return time.Duration(ms) * time.Millisecond
}
