// Package dependency models the external service hotswap relies on: the
// state derived from configuration, the client used by business endpoints and
// the restart procedure driven by the restart control operation.
package dependency

import (
	"net/url"

	"github.com/omarluq/hotswap/internal/config"
)

// State is derived from a validated configuration and embedded into the
// handler installed for the running state. It is rebuilt on every reload.
type State struct {
	Hostname string
	BaseURL  string
}

// StateFromConfig derives the dependency state from cfg.
func StateFromConfig(cfg *config.Config) State {
	u := url.URL{Scheme: cfg.Dependency.GetScheme(), Host: cfg.Server.LocalHostname}
	return State{
		Hostname: cfg.Server.LocalHostname,
		BaseURL:  u.String(),
	}
}

// Endpoint joins path onto the dependency base URL.
func (s State) Endpoint(path string) string {
	return s.BaseURL + path
}
