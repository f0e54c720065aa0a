package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/hotswap/internal/app"
	"github.com/omarluq/hotswap/internal/dispatch"
	"github.com/omarluq/hotswap/internal/metrics"
	"github.com/omarluq/hotswap/internal/status"
)

func TestRegistryStartsInStarting(t *testing.T) {
	t.Parallel()

	r := metrics.NewRegistry()

	assert.InDelta(t, 1, testutil.ToFloat64(r.State.WithLabelValues("starting")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(r.State.WithLabelValues("running")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.HandlerVersion), 0)
}

func TestRegistryObservesDispatcherSwaps(t *testing.T) {
	t.Parallel()

	r := metrics.NewRegistry()
	d := dispatch.New(http.NotFoundHandler(), dispatch.WithObserver(r))

	d.Set(http.NotFoundHandler())
	d.Set(http.NotFoundHandler())

	assert.InDelta(t, 2, testutil.ToFloat64(r.HandlerSwaps), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(r.HandlerVersion), 0)
}

func TestRegistryTracksStateTransitions(t *testing.T) {
	t.Parallel()

	r := metrics.NewRegistry()
	store := status.NewStore(status.WithTransitionHook(r.StateChanged))

	store.Set(status.NewRunning())
	store.Set(status.NewMisconfigured("bad port"))

	assert.InDelta(t, 1, testutil.ToFloat64(r.StateTransitions.WithLabelValues("starting", "running")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.StateTransitions.WithLabelValues("running", "misconfigured")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.State.WithLabelValues("misconfigured")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(r.State.WithLabelValues("running")), 0)
}

func TestRegistryControlOperations(t *testing.T) {
	t.Parallel()

	r := metrics.NewRegistry()
	var rec app.Recorder = r
	rec.ControlOperation(app.OpReload, app.OutcomeOK)
	rec.ControlOperation(app.OpReload, app.OutcomeOK)
	rec.ControlOperation(app.OpRestart, app.OutcomeRejected)

	assert.InDelta(t, 2, testutil.ToFloat64(r.ControlOperations.WithLabelValues("reload", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.ControlOperations.WithLabelValues("restart", "rejected")), 0)
}

func TestRegistryHandlerExposesMetrics(t *testing.T) {
	t.Parallel()

	r := metrics.NewRegistry()
	instrumented := r.Instrument(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	instrumented.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/users", http.NoBody))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "hotswap_dispatch_swaps_total"))
	assert.True(t, strings.Contains(body, `hotswap_http_requests_total{code="418",method="get"} 1`))
}
