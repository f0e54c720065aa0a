package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"

	"github.com/omarluq/hotswap/internal/config"
)

// ConfigService holds the startup configuration, the source later reloads
// read from and the optional file watcher.
type ConfigService struct {
	Initial *config.Config
	Source  *config.FileSource
	Runtime *config.Runtime
	watcher *config.Watcher
}

// Get returns the last accepted configuration.
func (c *ConfigService) Get() *config.Config {
	return c.Runtime.Get()
}

// Path returns the configuration file path.
func (c *ConfigService) Path() string {
	return c.Source.Path()
}

// StartWatching runs the watcher in the background and calls onChange for
// every change of the file. It does nothing when watching is disabled.
// Cancel ctx to stop watching.
func (c *ConfigService) StartWatching(ctx context.Context, onChange config.ChangeCallback) {
	if c.watcher == nil {
		return
	}

	c.watcher.OnChange(onChange)

	go func() {
		if err := c.watcher.Watch(ctx); err != nil {
			log.Error().Err(err).Msg("config watcher error")
		}
	}()

	log.Info().Str("path", c.Path()).Msg("config file watcher started")
}

// Shutdown implements do.Shutdowner for graceful watcher cleanup.
func (c *ConfigService) Shutdown() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// NewConfig loads and validates the startup configuration. An invalid
// startup configuration is an error: there is nothing to fall back to yet.
func NewConfig(i do.Injector) (*ConfigService, error) {
	path := do.MustInvokeNamed[string](i, ConfigPathKey)
	source := config.NewFileSource(path)

	cfg, err := source.Fetch(context.Background()).Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}

	svc := &ConfigService{
		Initial: cfg,
		Source:  source,
		Runtime: config.NewRuntime(cfg),
	}

	if cfg.Control.IsWatchEnabled() {
		// Watching is optional; a watcher failure only disables it.
		watcher, err := config.NewWatcher(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("config watcher creation failed, file reload disabled")
		} else {
			svc.watcher = watcher
		}
	}

	return svc, nil
}
