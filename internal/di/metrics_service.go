package di

import (
	"github.com/samber/do/v2"

	"github.com/omarluq/hotswap/internal/metrics"
)

// MetricsService wraps the Prometheus registry.
type MetricsService struct {
	Registry *metrics.Registry
	// Enabled reports whether GET /metrics is served.
	Enabled bool
}

// NewMetrics creates the metrics registry.
func NewMetrics(i do.Injector) (*MetricsService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	return &MetricsService{
		Registry: metrics.NewRegistry(),
		Enabled:  cfgSvc.Initial.Metrics.IsEnabled(),
	}, nil
}
