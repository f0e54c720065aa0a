package app_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/omarluq/hotswap/internal/app"
	"github.com/omarluq/hotswap/internal/config"
	"github.com/omarluq/hotswap/internal/dependency"
	"github.com/omarluq/hotswap/internal/dispatch"
	"github.com/omarluq/hotswap/internal/metrics"
	"github.com/omarluq/hotswap/internal/server"
	"github.com/omarluq/hotswap/internal/status"
)

func TestStartupThenActivate(t *testing.T) {
	t.Parallel()

	h := newHarness(t)

	assert.Equal(t, http.StatusTooEarly, h.health())
	assert.Equal(t, http.StatusTooEarly, h.do(http.MethodGet, "/users").Code)

	h.activate(t)

	assert.Equal(t, http.StatusOK, h.health())
	assert.Equal(t, status.Running, h.store.Get().Kind())
	assert.Equal(t, "server", h.app.Runtime().Get().Server.LocalHostname)

	rec := h.do(http.MethodGet, "/users")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "server", gjson.Get(rec.Body.String(), "source").String())
	assert.Equal(t, int64(3), gjson.Get(rec.Body.String(), "users.#").Int())
}

func TestStartupThenReload(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	assert.Equal(t, http.StatusTooEarly, h.health())

	require.NoError(t, h.app.Reload(context.Background(), true))
	assert.Equal(t, http.StatusOK, h.health())
}

func TestReloadInvalidConfig(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)

	h.source.setError(errMissingHostname)
	rec := h.do(http.MethodPost, "/reload")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":true,"message":"Invalid app config. Check your logs."}`, rec.Body.String())

	assert.Equal(t, http.StatusInternalServerError, h.health())
	state := h.store.Get()
	require.Equal(t, status.Misconfigured, state.Kind())
	reason, ok := state.Reason().Get()
	require.True(t, ok)
	assert.Contains(t, reason, "server.local_hostname is required")

	for _, path := range []string{"/users", "/restart-dependency", "/anything"} {
		rec := h.do(http.MethodGet, path)
		assert.Equal(t, http.StatusInternalServerError, rec.Code, path)
		assert.Equal(t, app.MsgMisconfigured, gjson.Get(rec.Body.String(), "message").String(), path)
	}
	assert.Equal(t, http.StatusInternalServerError, h.do(http.MethodPost, "/restart-dependency").Code)

	// The last good configuration stays readable.
	assert.Equal(t, "server", h.app.Runtime().Get().Server.LocalHostname)

	// /reload stays callable and recovers once the source is fixed.
	h.source.setConfig(testConfig("server-2"))
	rec = h.do(http.MethodPost, "/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "running", gjson.Get(rec.Body.String(), "state").String())
	assert.Equal(t, http.StatusOK, h.health())

	users := h.do(http.MethodGet, "/users")
	assert.Equal(t, "server-2", gjson.Get(users.Body.String(), "source").String())
}

func TestReloadSwapsDependencyState(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)
	before := h.disp.Version()

	h.source.setConfig(testConfig("replica"))
	require.NoError(t, h.app.Reload(context.Background(), false))

	assert.Greater(t, h.disp.Version(), before)
	assert.Equal(t, "replica", gjson.Get(h.do(http.MethodGet, "/users").Body.String(), "source").String())
}

func TestRestartDependencySucceeds(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)

	done := make(chan int, 1)
	go func() {
		done <- h.do(http.MethodPost, "/restart-dependency?failing=false").Code
	}()

	waitFor(t, func() bool { return h.health() == http.StatusServiceUnavailable })
	rec := h.do(http.MethodGet, "/users")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, app.MsgRestarting, gjson.Get(rec.Body.String(), "message").String())
	assert.Equal(t, status.Restarting, h.store.Get().Kind())

	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, http.StatusOK, h.health())
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/users").Code)
}

func TestRestartDependencyFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)

	rec := h.do(http.MethodPost, "/restart-dependency?failing=true")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	assert.Equal(t, http.StatusServiceUnavailable, h.health())
	assert.Equal(t, status.RestartFailed, h.store.Get().Kind())

	users := h.do(http.MethodGet, "/users")
	assert.Equal(t, http.StatusServiceUnavailable, users.Code)
	assert.Equal(t, app.MsgUnavailable, gjson.Get(users.Body.String(), "message").String())

	// /reload is not offered while degraded.
	assert.Equal(t, http.StatusServiceUnavailable, h.do(http.MethodPost, "/reload").Code)

	// The restart can be retried.
	rec = h.do(http.MethodPost, "/restart-dependency")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusOK, h.health())
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/users").Code)
}

func TestRestartDependencyBadQuery(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)

	rec := h.do(http.MethodPost, "/restart-dependency?failing=maybe")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, status.Running, h.store.Get().Kind())
}

func TestRestartTimeoutLeadsToRestartFailed(t *testing.T) {
	t.Parallel()

	blocking := newBlockingRestarter()
	h := newHarness(t, app.WithRestarterFactory(func(*config.Config) dependency.Restarter { return blocking }))

	cfg := testConfig("server")
	cfg.Dependency.RestartTimeoutMS = 30
	require.NoError(t, h.app.Activate(context.Background(), cfg))

	err := h.app.RestartDependency(context.Background(), dependency.RestartOptions{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, status.RestartFailed, h.store.Get().Kind())
	assert.Equal(t, http.StatusServiceUnavailable, h.health())
}

func TestRestartSurvivesCallerCancellation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, h.app.RestartDependency(ctx, dependency.RestartOptions{}))
	assert.Equal(t, status.Running, h.store.Get().Kind())
}

func TestRestartBeforeActivation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	require.ErrorIs(t, h.app.RestartDependency(context.Background(), dependency.RestartOptions{}), app.ErrNotActive)
	assert.Equal(t, status.Starting, h.store.Get().Kind())
}

func TestRestartAfterFailedReloadIsRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)
	h.source.setError(errMissingHostname)
	require.ErrorIs(t, h.app.Reload(context.Background(), false), app.ErrMisconfigured)

	require.ErrorIs(t, h.app.RestartDependency(context.Background(), dependency.RestartOptions{}), app.ErrNotActive)
	assert.Equal(t, status.Misconfigured, h.store.Get().Kind())
}

func TestConcurrentControlOperationsAreRejected(t *testing.T) {
	t.Parallel()

	blocking := newBlockingRestarter()
	rec := metrics.NewRegistry()
	h := newHarness(t,
		app.WithRecorder(rec),
		app.WithRestarterFactory(func(*config.Config) dependency.Restarter { return blocking }),
	)
	cfg := testConfig("server")
	cfg.Dependency.RestartTimeoutMS = 200
	require.NoError(t, h.app.Activate(context.Background(), cfg))

	// A request that started routing before the swap still holds the normal handler.
	normal := h.disp.Current()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = h.app.RestartDependency(context.Background(), dependency.RestartOptions{})
	}()
	<-blocking.started

	require.ErrorIs(t, h.app.Reload(context.Background(), false), app.ErrBusy)

	for _, path := range []string{"/reload", "/restart-dependency"} {
		w := newRecorder()
		normal.ServeHTTP(w, newRequest(http.MethodPost, path))
		assert.Equal(t, http.StatusConflict, w.Code, path)
		assert.Equal(t, app.MsgBusy, gjson.Get(w.Body.String(), "message").String(), path)
	}
	assert.Equal(t, status.Restarting, h.store.Get().Kind())

	// A waiting reload proceeds once the restart times out.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.app.Reload(ctx, true))
	wg.Wait()

	assert.Equal(t, status.Running, h.store.Get().Kind())
	assert.InDelta(t, 2, testutil.ToFloat64(rec.ControlOperations.WithLabelValues(app.OpReload, app.OutcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.ControlOperations.WithLabelValues(app.OpRestart, app.OutcomeRejected)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.ControlOperations.WithLabelValues(app.OpRestart, app.OutcomeFailed)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.ControlOperations.WithLabelValues(app.OpReload, app.OutcomeOK)), 0)
}

func TestWaitingReloadHonorsContext(t *testing.T) {
	t.Parallel()

	blocking := newBlockingRestarter()
	h := newHarness(t, app.WithRestarterFactory(func(*config.Config) dependency.Restarter { return blocking }))
	h.activate(t)

	go func() { _ = h.app.RestartDependency(context.Background(), dependency.RestartOptions{}) }()
	<-blocking.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, h.app.Reload(ctx, true), context.DeadlineExceeded)
}

func TestControlEndpointsRateLimited(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	cfg := testConfig("server")
	cfg.Control.RequestsPerMinute = 1
	h.source.setConfig(cfg)
	require.NoError(t, h.app.Activate(context.Background(), cfg))

	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/reload").Code)
	assert.Equal(t, http.StatusTooManyRequests, h.do(http.MethodPost, "/reload").Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/users").Code)
}

func TestNormalHandlerFallback(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)

	rec := h.do(http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":true,"message":"Not found."}`, rec.Body.String())
}

const validFileConfig = `
[api]
address = "127.0.0.1"
port = 8080
log = { level = "debug", format = "pretty" }

[server]
local_hostname = "server"
log = { level = "info", format = "pretty" }
`

func TestReloadWithCanceledCallerKeepsRunning(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(validFileConfig), 0o600))

	store := status.NewStore()
	d := dispatch.New(app.StartingHandler())
	a := app.New(config.NewFileSource(path), d, store)
	base := server.NewBaseRouter(server.BaseOptions{Status: store, Dispatcher: d})

	cfg, err := config.LoadValidated(path)
	require.NoError(t, err)
	require.NoError(t, a.Activate(context.Background(), cfg))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, a.Reload(ctx, false))

	assert.Equal(t, status.Running, store.Get().Kind())

	rec := httptest.NewRecorder()
	base.ServeHTTP(rec, newRequest(http.MethodGet, "/health"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	base.ServeHTTP(rec, newRequest(http.MethodGet, "/users"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReloadInterruptedSourceLeavesStateAlone(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.activate(t)
	version := h.disp.Version()

	h.source.setError(fmt.Errorf("read config: %w", context.DeadlineExceeded))
	err := h.app.Reload(context.Background(), false)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, app.ErrMisconfigured)

	assert.Equal(t, status.Running, h.store.Get().Kind())
	assert.Equal(t, version, h.disp.Version())
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/users").Code)

	rec := h.do(http.MethodPost, "/reload")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, app.MsgInterrupted, gjson.Get(rec.Body.String(), "message").String())
	assert.Equal(t, http.StatusOK, h.health())

	// Restart still works: the active configuration was kept.
	assert.Equal(t, http.StatusOK, h.do(http.MethodPost, "/restart-dependency").Code)
}

func TestReloadWarnsAboutStartupOnlyChanges(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	logger := zerolog.New(&logs)
	h := newHarness(t, app.WithLogger(&logger))
	h.activate(t)

	next := testConfig("server")
	next.API.Port = 9090
	h.source.setConfig(next)
	require.NoError(t, h.app.Reload(context.Background(), false))

	assert.Equal(t, status.Running, h.store.Get().Kind())
	assert.Contains(t, logs.String(), "process restart")
	assert.Contains(t, logs.String(), `"api.port"`)

	logs.Reset()
	h.source.setConfig(testConfig("elsewhere"))
	require.NoError(t, h.app.Reload(context.Background(), false))
	assert.NotContains(t, logs.String(), "process restart")
}
