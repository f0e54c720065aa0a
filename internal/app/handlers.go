package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/omarluq/hotswap/internal/dependency"
	"github.com/omarluq/hotswap/internal/server"
	"github.com/omarluq/hotswap/internal/status"
)

// Fallback messages served by the degraded handlers.
const (
	MsgMisconfigured = "Invalid app config. Check your logs."
	MsgRestarting    = "Server restarting. Please wait."
	MsgUnavailable   = "Server unavailable. Check your logs."
	MsgBusy          = "Another control operation is in progress."
	MsgStale         = "Configuration changed during the request. Please retry."
	MsgBadFailing    = "Query parameter failing must be a boolean."
	MsgDependency    = "Dependency request failed."
	MsgInterrupted   = "Reload interrupted. Please retry."
)

// ControlResponse is the body of a successful control request.
type ControlResponse struct {
	State          status.Kind `json:"state"`
	HandlerVersion uint64      `json:"handler_version"`
}

// UsersResponse is the body of GET /users.
type UsersResponse struct {
	Source string            `json:"source"`
	Users  []dependency.User `json:"users"`
}

// StartingHandler is served before the first configuration is activated.
func StartingHandler() http.Handler {
	return server.NewRouter(server.Static(http.StatusTooEarly, "Server starting. Please wait."))
}

// normalHandler serves the business endpoints and both control operations.
func (a *App) normalHandler(g *generation) http.Handler {
	return server.NewRouter(server.NotFound(),
		server.Route{Pattern: "POST /reload", Handler: a.limited(a.reloadEndpoint())},
		server.Route{Pattern: "POST /restart-dependency", Handler: a.limited(a.restartEndpoint(g))},
		server.Route{Pattern: "GET /users", Handler: usersEndpoint(g)},
	)
}

// misconfiguredHandler only lets a reload through.
func (a *App) misconfiguredHandler() http.Handler {
	return server.NewRouter(server.Static(http.StatusInternalServerError, MsgMisconfigured),
		server.Route{Pattern: "POST /reload", Handler: a.limited(a.reloadEndpoint())},
	)
}

// restartingHandler answers every request with 503.
func restartingHandler() http.Handler {
	return server.NewRouter(server.Static(http.StatusServiceUnavailable, MsgRestarting))
}

// unavailableHandler keeps the restart endpoint so the restart can be retried.
func (a *App) unavailableHandler(g *generation) http.Handler {
	return server.NewRouter(server.Static(http.StatusServiceUnavailable, MsgUnavailable),
		server.Route{Pattern: "POST /restart-dependency", Handler: a.limited(a.restartEndpoint(g))},
	)
}

func (a *App) limited(h http.Handler) http.Handler {
	return server.RateLimitMiddleware(a.limiter)(h)
}

func (a *App) reloadEndpoint() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := a.Reload(r.Context(), false)
		switch {
		case err == nil:
			a.writeControlOK(w)
		case errors.Is(err, ErrBusy):
			server.WriteError(w, http.StatusConflict, MsgBusy)
		case isInterrupted(err):
			server.WriteError(w, http.StatusServiceUnavailable, MsgInterrupted)
		default:
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("reload failed")
			server.WriteError(w, http.StatusInternalServerError, MsgMisconfigured)
		}
	})
}

func (a *App) restartEndpoint(g *generation) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		failing := false
		if raw := r.URL.Query().Get("failing"); raw != "" {
			parsed, err := strconv.ParseBool(raw)
			if err != nil {
				server.WriteError(w, http.StatusBadRequest, MsgBadFailing)
				return
			}
			failing = parsed
		}

		err := a.restart(r.Context(), g, dependency.RestartOptions{ForceFailure: failing})
		switch {
		case err == nil:
			a.writeControlOK(w)
		case errors.Is(err, ErrBusy):
			server.WriteError(w, http.StatusConflict, MsgBusy)
		case errors.Is(err, ErrNotActive):
			server.WriteError(w, http.StatusConflict, MsgStale)
		default:
			server.WriteError(w, http.StatusServiceUnavailable, MsgUnavailable)
		}
	})
}

func (a *App) writeControlOK(w http.ResponseWriter) {
	server.WriteJSON(w, http.StatusOK, ControlResponse{
		State:          a.status.Get().Kind(),
		HandlerVersion: a.dispatcher.Version(),
	})
}

func usersEndpoint(g *generation) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users, err := g.client.Users(r.Context())
		if err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Str("dependency", g.dep.Hostname).Msg("users request failed")
			code := http.StatusBadGateway
			if errors.Is(err, dependency.ErrCircuitOpen) {
				code = http.StatusServiceUnavailable
			}
			server.WriteError(w, code, MsgDependency)
			return
		}
		server.WriteJSON(w, http.StatusOK, UsersResponse{Source: g.dep.Hostname, Users: users})
	})
}
