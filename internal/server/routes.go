package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/hotswap/internal/dispatch"
	"github.com/omarluq/hotswap/internal/status"
)

// StatusResponse is the body of GET /status. The misconfiguration reason is
// deliberately absent.
type StatusResponse struct {
	StartedAt      time.Time   `json:"started_at"`
	Since          time.Time   `json:"since"`
	State          status.Kind `json:"state"`
	HandlerVersion uint64      `json:"handler_version"`
	Ready          bool        `json:"ready"`
}

// BaseOptions holds what the base routes read.
type BaseOptions struct {
	Status     *status.Store
	Dispatcher *dispatch.Dispatcher
	// Metrics serves GET /metrics when non-nil.
	Metrics   http.Handler
	StartedAt time.Time
}

// NewBaseRouter builds the routing table that is never swapped:
//   - GET /health - status code derived from the operational state
//   - GET /status - JSON summary of the operational state
//   - GET /metrics - Prometheus metrics (optional)
//
// Every other request falls through to the dispatcher.
func NewBaseRouter(opts BaseOptions) *Router {
	routes := []Route{
		{Pattern: "GET /health", Handler: HealthHandler(opts.Status)},
		{Pattern: "GET /status", Handler: StatusHandler(opts.Status, opts.Dispatcher, opts.StartedAt)},
	}
	if opts.Metrics != nil {
		routes = append(routes, Route{Pattern: "GET /metrics", Handler: opts.Metrics})
	}
	return NewRouter(opts.Dispatcher, routes...)
}

// HealthHandler answers with the status code mapped from the current state.
// A misconfiguration reason is logged on every hit and never returned.
func HealthHandler(store *status.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state := store.Get()
		if reason, ok := state.Reason().Get(); ok {
			zerolog.Ctx(r.Context()).Error().Str("reason", reason).Msg("invalid app config")
		}
		w.WriteHeader(state.HTTPStatus())
	})
}

// StatusHandler reports the state, readiness and active handler version.
func StatusHandler(store *status.Store, d *dispatch.Dispatcher, startedAt time.Time) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		state := store.Get()
		WriteJSON(w, http.StatusOK, StatusResponse{
			State:          state.Kind(),
			Ready:          state.Ready(),
			HandlerVersion: d.Version(),
			StartedAt:      startedAt,
			Since:          store.Since(),
		})
	})
}

// Wrap applies the standard middleware stack around the base router.
// instrument may be nil.
func Wrap(h http.Handler, logger zerolog.Logger, instrument Middleware) http.Handler {
	mws := []Middleware{RequestIDMiddleware(logger), LoggingMiddleware(), RecoverMiddleware()}
	if instrument != nil {
		mws = append(mws, instrument)
	}
	return Chain(h, mws...)
}
