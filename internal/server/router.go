package server

import (
	"net/http"
	"slices"

	"github.com/samber/lo"
)

// Router is an immutable routing table with a fallback. Requests that match
// no registered pattern, including a known path with the wrong method, go to
// the fallback instead of the mux's own 404/405 responses.
type Router struct {
	mux      *http.ServeMux
	fallback http.Handler
	patterns []string
}

// Route is one entry of a routing table.
type Route struct {
	Handler http.Handler
	Pattern string
}

// NewRouter builds a Router from routes. A nil fallback answers 404 in the
// standard JSON error format.
func NewRouter(fallback http.Handler, routes ...Route) *Router {
	if fallback == nil {
		fallback = NotFound()
	}
	mux := http.NewServeMux()
	for _, route := range routes {
		mux.Handle(route.Pattern, route.Handler)
	}
	return &Router{
		mux:      mux,
		fallback: fallback,
		patterns: lo.Map(routes, func(r Route, _ int) string { return r.Pattern }),
	}
}

// Patterns lists the registered patterns in registration order.
func (r *Router) Patterns() []string {
	return slices.Clone(r.patterns)
}

// ServeHTTP routes the request.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" {
		r.fallback.ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

// NotFound answers 404 with a JSON error body.
func NotFound() http.Handler {
	return Static(http.StatusNotFound, "Not found.")
}

// Static answers every request with the same JSON error body.
func Static(statusCode int, message string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, statusCode, message)
	})
}
