package di

import "github.com/samber/do/v2"

// RegisterSingletons registers all service providers as singletons.
// Services are registered in dependency order:
// 1. Config (no dependencies)
// 2. Logger (depends on Config)
// 3. Metrics (depends on Config)
// 4. App (depends on Config, Logger, Metrics)
// 5. Server (depends on Config, Logger, Metrics, App).
func RegisterSingletons(i do.Injector) {
	do.Provide(i, NewConfig)
	do.Provide(i, NewLogger)
	do.Provide(i, NewMetrics)
	do.Provide(i, NewApp)
	do.Provide(i, NewHTTPServer)
}
