package app_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/require"

	"github.com/omarluq/hotswap/internal/app"
	"github.com/omarluq/hotswap/internal/config"
	"github.com/omarluq/hotswap/internal/dependency"
	"github.com/omarluq/hotswap/internal/dispatch"
	"github.com/omarluq/hotswap/internal/server"
	"github.com/omarluq/hotswap/internal/status"
)

var errMissingHostname = &config.ValidationError{Errors: []string{"server.local_hostname is required"}}

// fakeSource hands out whatever configuration or error it currently holds.
type fakeSource struct {
	cfg *config.Config
	err error
	mu  sync.Mutex
}

func (f *fakeSource) Fetch(_ context.Context) mo.Result[*config.Config] {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return mo.Err[*config.Config](f.err)
	}
	return mo.Ok(f.cfg)
}

func (f *fakeSource) setConfig(cfg *config.Config) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg, f.err = cfg, nil
}

func (f *fakeSource) setError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cfg, f.err = nil, err
}

func testConfig(host string) *config.Config {
	return &config.Config{
		API: config.APIConfig{
			Address: "127.0.0.1",
			Port:    8080,
			Log:     config.LogConfig{Level: config.LevelDebug, Format: config.FormatPretty},
		},
		Server: config.ServerConfig{
			LocalHostname: host,
			Log:           config.LogConfig{Level: config.LevelInfo, Format: config.FormatPretty},
		},
		Dependency: config.DependencyConfig{
			RestartDelayMS:        60,
			RestartFailureDelayMS: 20,
			RestartTimeoutMS:      2000,
		},
	}
}

type harness struct {
	app    *app.App
	store  *status.Store
	disp   *dispatch.Dispatcher
	source *fakeSource
	base   http.Handler
}

func newHarness(t *testing.T, opts ...app.Option) *harness {
	t.Helper()

	store := status.NewStore()
	d := dispatch.New(app.StartingHandler())
	src := &fakeSource{cfg: testConfig("server")}

	h := &harness{
		app:    app.New(src, d, store, opts...),
		store:  store,
		disp:   d,
		source: src,
	}
	h.base = server.NewBaseRouter(server.BaseOptions{Status: store, Dispatcher: d})
	return h
}

func (h *harness) activate(t *testing.T) {
	t.Helper()
	require.NoError(t, h.app.Activate(context.Background(), testConfig("server")))
}

func (h *harness) do(method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.base.ServeHTTP(rec, httptest.NewRequest(method, path, http.NoBody))
	return rec
}

func (h *harness) health() int {
	return h.do(http.MethodGet, "/health").Code
}

// blockingRestarter never finishes on its own.
type blockingRestarter struct {
	started chan struct{}
	once    sync.Once
}

func newBlockingRestarter() *blockingRestarter {
	return &blockingRestarter{started: make(chan struct{})}
}

func (b *blockingRestarter) Restart(ctx context.Context, _ dependency.State, _ dependency.RestartOptions) error {
	b.once.Do(func() { close(b.started) })
	<-ctx.Done()
	return errors.Join(errRestartAborted, ctx.Err())
}

var errRestartAborted = errors.New("restart aborted")

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 2*time.Millisecond)
}

func newRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, http.NoBody)
}
