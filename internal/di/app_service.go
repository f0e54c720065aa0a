package di

import (
	"fmt"

	"github.com/samber/do/v2"

	"github.com/omarluq/hotswap/internal/app"
	"github.com/omarluq/hotswap/internal/dependency"
	"github.com/omarluq/hotswap/internal/dispatch"
	"github.com/omarluq/hotswap/internal/server"
	"github.com/omarluq/hotswap/internal/status"
)

// AppService wraps the control operations together with the dispatcher
// and state store they drive.
type AppService struct {
	App        *app.App
	Dispatcher *dispatch.Dispatcher
	Status     *status.Store
	cache      *dependency.Cache
}

// NewApp creates the App. The dispatcher starts with the Starting handler
// and the store in Starting; call App.Activate once the listener is bound.
func NewApp(i do.Injector) (*AppService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logSvc := do.MustInvoke[*LoggerService](i)
	metricsSvc := do.MustInvoke[*MetricsService](i)

	cache, err := dependency.NewCache()
	if err != nil {
		return nil, fmt.Errorf("failed to create dependency cache: %w", err)
	}

	reg := metricsSvc.Registry
	store := status.NewStore(status.WithTransitionHook(reg.StateChanged))
	d := dispatch.New(app.StartingHandler(), dispatch.WithObserver(reg))

	a := app.New(cfgSvc.Source, d, store,
		app.WithLogger(logSvc.Dependency),
		app.WithRuntime(cfgSvc.Runtime),
		app.WithCache(cache),
		app.WithRecorder(reg),
		app.WithRateLimiter(server.NewRateLimiter(cfgSvc.Initial.Control.RequestsPerMinute)),
	)

	return &AppService{App: a, Dispatcher: d, Status: store, cache: cache}, nil
}

// Shutdown implements do.Shutdowner.
func (s *AppService) Shutdown() error {
	s.cache.Close()
	return nil
}
