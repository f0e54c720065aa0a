package dependency_test

import (
	"net/http/httptest"
	"strings"

	"github.com/omarluq/hotswap/internal/config"
)

func simulatedConfig(host string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{LocalHostname: host},
		Dependency: config.DependencyConfig{
			RestartDelayMS:        30,
			RestartFailureDelayMS: 10,
			RestartTimeoutMS:      500,
		},
	}
}

func httpConfig(srv *httptest.Server) *config.Config {
	cfg := simulatedConfig(strings.TrimPrefix(srv.URL, "http://"))
	cfg.Dependency.Mode = config.DependencyHTTP
	return cfg
}
