package di

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/omarluq/hotswap/internal/server"
)

// ServerService wraps the HTTP server.
type ServerService struct {
	Server *server.Server
}

// NewHTTPServer creates the HTTP server around the base router.
func NewHTTPServer(i do.Injector) (*ServerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)
	logSvc := do.MustInvoke[*LoggerService](i)
	metricsSvc := do.MustInvoke[*MetricsService](i)
	appSvc := do.MustInvoke[*AppService](i)

	opts := server.BaseOptions{
		Status:     appSvc.Status,
		Dispatcher: appSvc.Dispatcher,
		StartedAt:  time.Now().UTC(),
	}
	if metricsSvc.Enabled {
		opts.Metrics = metricsSvc.Registry.Handler()
	}

	handler := server.Wrap(server.NewBaseRouter(opts), *logSvc.Logger, metricsSvc.Registry.Instrument)

	cfg := cfgSvc.Initial
	return &ServerService{
		Server: server.NewServer(cfg.API.ListenAddress(), handler, cfg.API.EnableHTTP2),
	}, nil
}

// Shutdown implements do.Shutdowner for graceful server shutdown.
func (s *ServerService) Shutdown() error {
	if s.Server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return s.Server.Shutdown(ctx)
	}
	return nil
}
