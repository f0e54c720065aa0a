package di

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do/v2"

	"github.com/omarluq/hotswap/internal/server"
)

// LoggerService wraps the zerolog loggers for DI.
type LoggerService struct {
	// Logger is the process logger built from [api.log].
	Logger *zerolog.Logger
	// Dependency logs calls to the managed dependency, built from [server.log].
	Dependency *zerolog.Logger
}

// NewLogger creates the zerolog loggers from configuration.
func NewLogger(i do.Injector) (*LoggerService, error) {
	cfgSvc := do.MustInvoke[*ConfigService](i)

	logger, err := server.NewLogger(cfgSvc.Initial.API.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	depLogger, err := server.NewLogger(cfgSvc.Initial.Server.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create dependency logger: %w", err)
	}
	depLogger = depLogger.With().Str("component", "dependency").Logger()

	return &LoggerService{Logger: &logger, Dependency: &depLogger}, nil
}
