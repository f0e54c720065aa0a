// Package app implements the control operations of hotswap and the request
// handlers installed for each operational state.
//
// Every control operation runs while holding a single control slot, sets the
// new operational state and then installs the matching handler, so once an
// operation returns /health and the installed handler agree.
package app

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/hotswap/internal/config"
	"github.com/omarluq/hotswap/internal/dependency"
	"github.com/omarluq/hotswap/internal/dispatch"
	"github.com/omarluq/hotswap/internal/server"
	"github.com/omarluq/hotswap/internal/status"
)

// Control operation names, as reported to the Recorder.
const (
	OpActivate = "activate"
	OpReload   = "reload"
	OpRestart  = "restart"
)

// Control outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Recorder receives the outcome of every control operation.
type Recorder interface {
	ControlOperation(operation, outcome string)
}

// RestarterFactory builds the restarter for a configuration.
type RestarterFactory func(cfg *config.Config) dependency.Restarter

// generation is everything derived from one accepted configuration.
// It is immutable; a reload builds a new one.
type generation struct {
	cfg       *config.Config
	client    *dependency.Client
	restarter dependency.Restarter
	dep       dependency.State
}

// App owns the dispatcher, the operational state and the control slot.
type App struct {
	dispatcher   *dispatch.Dispatcher
	status       *status.Store
	source       config.Source
	runtime      *config.Runtime
	cache        *dependency.Cache
	limiter      *server.RateLimiter
	recorder     Recorder
	newRestarter RestarterFactory
	httpClient   *http.Client
	logger       *zerolog.Logger
	startup      *config.Config // first installed config; guarded by slot
	active       atomic.Pointer[generation]
	slot         chan struct{}
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger used for control operations.
func WithLogger(l *zerolog.Logger) Option {
	return func(a *App) {
		a.logger = l
	}
}

// WithCache enables the shared dependency response cache.
func WithCache(c *dependency.Cache) Option {
	return func(a *App) {
		a.cache = c
	}
}

// WithRecorder registers a control outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(a *App) {
		a.recorder = r
	}
}

// WithRuntime shares the runtime config with other components.
func WithRuntime(r *config.Runtime) Option {
	return func(a *App) {
		a.runtime = r
	}
}

// WithRateLimiter sets the limiter guarding control endpoints.
func WithRateLimiter(l *server.RateLimiter) Option {
	return func(a *App) {
		a.limiter = l
	}
}

// WithRestarterFactory overrides how restarters are built.
func WithRestarterFactory(f RestarterFactory) Option {
	return func(a *App) {
		a.newRestarter = f
	}
}

// WithHTTPClient sets the client used to reach the dependency.
func WithHTTPClient(c *http.Client) Option {
	return func(a *App) {
		a.httpClient = c
	}
}

// New creates an App. The dispatcher should be serving the Starting
// behavior; the store should be in Starting.
func New(source config.Source, d *dispatch.Dispatcher, store *status.Store, opts ...Option) *App {
	nop := zerolog.Nop()
	a := &App{
		dispatcher: d,
		status:     store,
		source:     source,
		logger:     &nop,
		slot:       make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.runtime == nil {
		a.runtime = config.NewRuntime(nil)
	}
	if a.limiter == nil {
		a.limiter = server.NewRateLimiter(0)
	}
	if a.httpClient == nil {
		a.httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	if a.newRestarter == nil {
		a.newRestarter = func(cfg *config.Config) dependency.Restarter {
			return dependency.NewRestarter(cfg, a.httpClient, a.logger)
		}
	}
	return a
}

// Dispatcher returns the dispatcher the App installs handlers on.
func (a *App) Dispatcher() *dispatch.Dispatcher {
	return a.dispatcher
}

// Status returns the operational state store.
func (a *App) Status() *status.Store {
	return a.status
}

// Runtime returns the last accepted configuration holder.
func (a *App) Runtime() *config.Runtime {
	return a.runtime
}

// acquire takes the control slot. Without wait it fails fast with ErrBusy.
func (a *App) acquire(ctx context.Context, wait bool) error {
	if !wait {
		select {
		case a.slot <- struct{}{}:
			return nil
		default:
			return ErrBusy
		}
	}
	select {
	case a.slot <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *App) release() {
	<-a.slot
}

// transition publishes a state and its handler, in that order.
func (a *App) transition(next status.State, handler http.Handler) {
	prev := a.status.Set(next)
	a.dispatcher.Set(handler)
	a.logger.Info().
		Str("from", prev.Kind().String()).
		Str("to", next.Kind().String()).
		Uint64("handler_version", a.dispatcher.Version()).
		Msg("state changed")
}

func (a *App) record(operation, outcome string) {
	if a.recorder != nil {
		a.recorder.ControlOperation(operation, outcome)
	}
}

func (a *App) newGeneration(cfg *config.Config) *generation {
	client := dependency.NewClient(cfg,
		dependency.WithHTTPClient(a.httpClient),
		dependency.WithCache(a.cache),
		dependency.WithLogger(a.logger),
	)
	return &generation{
		cfg:       cfg,
		dep:       client.State(),
		client:    client,
		restarter: a.newRestarter(cfg),
	}
}
