package config

// StartupOnlyChanges lists the settings that differ between the startup
// configuration and next but only take effect on a process restart:
// the listener, HTTP/2, logging, file watching and the metrics endpoint.
// Names use the file's dotted key syntax.
func StartupOnlyChanges(startup, next *Config) []string {
	if startup == nil || next == nil {
		return nil
	}

	var changed []string
	add := func(differs bool, key string) {
		if differs {
			changed = append(changed, key)
		}
	}

	add(startup.API.Address != next.API.Address, "api.address")
	add(startup.API.Port != next.API.Port, "api.port")
	add(startup.API.EnableHTTP2 != next.API.EnableHTTP2, "api.enable_http2")
	add(startup.API.Log != next.API.Log, "api.log")
	add(startup.Server.Log != next.Server.Log, "server.log")
	add(startup.Control.IsWatchEnabled() != next.Control.IsWatchEnabled(), "control.watch")
	add(startup.Metrics.IsEnabled() != next.Metrics.IsEnabled(), "metrics.enabled")

	return changed
}
