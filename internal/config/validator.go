package config

import (
	"net"
	"strings"

	"github.com/samber/lo"
)

var validLogLevels = []string{LevelTrace, LevelDebug, LevelInfo, LevelWarn, LevelError}

var validLogFormats = []string{FormatFull, FormatCompact, FormatJSON, FormatPretty}

var validDependencyModes = []string{"", DependencySimulated, DependencyHTTP}

var validSchemes = []string{"", "http", "https"}

// Validate checks the configuration for errors.
// It validates all required fields, valid values, and cross-field constraints.
// Returns a ValidationError containing all errors found, or nil if valid.
func (c *Config) Validate() error {
	errs := &ValidationError{}

	validateAPI(&c.API, errs)
	validateServer(&c.Server, errs)
	validateDependency(&c.Dependency, errs)
	validateControl(&c.Control, errs)

	return errs.ToError()
}

func validateAPI(a *APIConfig, errs *ValidationError) {
	switch {
	case a.Address == "":
		errs.Add("api.address is required")
	case net.ParseIP(a.Address) == nil:
		errs.Addf("api.address must be an IP address (got %q)", a.Address)
	}

	if a.Port <= 0 || a.Port > 65535 {
		errs.Addf("api.port must be between 1 and 65535 (got %d)", a.Port)
	}

	validateLog("api.log", &a.Log, errs)
}

func validateServer(s *ServerConfig, errs *ValidationError) {
	host := strings.TrimSpace(s.LocalHostname)
	switch {
	case host == "":
		errs.Add("server.local_hostname is required")
	case strings.ContainsAny(host, " \t\n/"):
		errs.Addf("server.local_hostname contains invalid characters (got %q)", s.LocalHostname)
	}

	validateLog("server.log", &s.Log, errs)
}

// validateLog requires both level and format.
func validateLog(prefix string, l *LogConfig, errs *ValidationError) {
	if l.Level == "" {
		errs.Addf("%s.level is required", prefix)
	} else if !lo.Contains(validLogLevels, strings.ToLower(l.Level)) {
		errs.Addf("%s.level is invalid (got %q, valid: %s)",
			prefix, l.Level, strings.Join(validLogLevels, ", "))
	}

	if l.Format == "" {
		errs.Addf("%s.format is required", prefix)
	} else if !lo.Contains(validLogFormats, l.Format) {
		errs.Addf("%s.format is invalid (got %q, valid: %s)",
			prefix, l.Format, strings.Join(validLogFormats, ", "))
	}
}

func validateDependency(d *DependencyConfig, errs *ValidationError) {
	if !lo.Contains(validDependencyModes, d.Mode) {
		errs.Addf("dependency.mode is invalid (got %q, valid: simulated, http)", d.Mode)
	}
	if !lo.Contains(validSchemes, d.Scheme) {
		errs.Addf("dependency.scheme is invalid (got %q, valid: http, https)", d.Scheme)
	}
	if d.RestartDelayMS < 0 {
		errs.Add("dependency.restart_delay_ms must be >= 0")
	}
	if d.RestartFailureDelayMS < 0 {
		errs.Add("dependency.restart_failure_delay_ms must be >= 0")
	}
	if d.RestartTimeoutMS < 0 {
		errs.Add("dependency.restart_timeout_ms must be >= 0")
	}
	if d.RestartTimeoutMS > MaxRestartTimeoutMS {
		errs.Addf("dependency.restart_timeout_ms must be <= %d (got %d)", MaxRestartTimeoutMS, d.RestartTimeoutMS)
	}
	if d.GetMode() == DependencySimulated && d.GetRestartDelay() >= d.GetRestartTimeout() {
		errs.Add("dependency.restart_delay_ms must be lower than dependency.restart_timeout_ms")
	}
	if d.CircuitBreaker.FailureThreshold < 0 {
		errs.Add("dependency.circuit_breaker.failure_threshold must be >= 0")
	}
	if d.CircuitBreaker.HalfOpenProbes < 0 {
		errs.Add("dependency.circuit_breaker.half_open_probes must be >= 0")
	}
}

func validateControl(c *ControlConfig, errs *ValidationError) {
	if c.RequestsPerMinute < 0 {
		errs.Add("control.requests_per_minute must be >= 0")
	}
}
