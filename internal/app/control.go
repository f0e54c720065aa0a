package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/omarluq/hotswap/internal/config"
	"github.com/omarluq/hotswap/internal/dependency"
	"github.com/omarluq/hotswap/internal/status"
)

// Activate installs the normal behavior for an already validated
// configuration and enters Running. It is used once at startup, after the
// listener is bound.
func (a *App) Activate(ctx context.Context, cfg *config.Config) error {
	if err := a.acquire(ctx, true); err != nil {
		return err
	}
	defer a.release()

	a.install(a.newGeneration(cfg))
	a.record(OpActivate, OutcomeOK)
	return nil
}

// Reload fetches a configuration from the source. On success the normal
// handler built from it is installed and the state becomes Running. On
// failure the state becomes Misconfigured and only the reload endpoint
// stays available.
//
// With wait false, Reload returns ErrBusy instead of waiting for a running
// control operation.
func (a *App) Reload(ctx context.Context, wait bool) error {
	if err := a.acquire(ctx, wait); err != nil {
		if errors.Is(err, ErrBusy) {
			a.record(OpReload, OutcomeRejected)
		}
		return err
	}
	defer a.release()

	// Detached from ctx: a caller that goes away must not turn a valid file
	// into Misconfigured.
	cfg, err := a.source.Fetch(context.WithoutCancel(ctx)).Get()
	if err != nil && isInterrupted(err) {
		a.logger.Warn().Err(err).Msg("reload interrupted, state unchanged")
		a.record(OpReload, OutcomeFailed)
		return err
	}
	if err != nil {
		reason := config.Reason(err)
		a.active.Store(nil)
		a.logger.Error().Str("reason", reason).Msg("reload rejected")
		a.transition(status.NewMisconfigured(reason), a.misconfiguredHandler())
		a.record(OpReload, OutcomeFailed)
		return fmt.Errorf("%w: %w", ErrMisconfigured, err)
	}

	if changed := config.StartupOnlyChanges(a.startup, cfg); len(changed) > 0 {
		a.logger.Warn().Strs("fields", changed).Msg("config changes need a process restart to take effect")
	}

	a.install(a.newGeneration(cfg))
	a.logger.Info().Str("dependency", cfg.Server.LocalHostname).Msg("config reloaded")
	a.record(OpReload, OutcomeOK)
	return nil
}

// install publishes g as the active generation and enters Running.
// The caller holds the control slot.
func (a *App) install(g *generation) {
	if a.startup == nil {
		a.startup = g.cfg
	}
	a.active.Store(g)
	a.runtime.Store(g.cfg)
	a.limiter.SetLimit(g.cfg.Control.RequestsPerMinute)
	a.transition(status.NewRunning(), a.normalHandler(g))
}

// RestartDependency restarts the dependency of the active configuration.
// It fails fast with ErrBusy when another control operation is running.
func (a *App) RestartDependency(ctx context.Context, opts dependency.RestartOptions) error {
	g := a.active.Load()
	if g == nil {
		return ErrNotActive
	}
	return a.restart(ctx, g, opts)
}

// restart runs the restart procedure against g's dependency:
// Restarting, then Running on success or RestartFailed on failure. The
// procedure is bounded by the configured restart timeout and is not
// cancelled when ctx is, so a disconnecting client cannot leave the process
// stuck in Restarting.
func (a *App) restart(ctx context.Context, g *generation, opts dependency.RestartOptions) error {
	if err := a.acquire(ctx, false); err != nil {
		a.record(OpRestart, OutcomeRejected)
		return err
	}
	defer a.release()

	// g may have been replaced while waiting for the slot.
	if a.active.Load() != g {
		a.record(OpRestart, OutcomeRejected)
		return ErrNotActive
	}

	a.transition(status.NewRestarting(), restartingHandler())
	a.logger.Info().Str("dependency", g.dep.Hostname).Bool("failing", opts.ForceFailure).Msg("restarting dependency")

	restartCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.Dependency.GetRestartTimeout())
	defer cancel()

	if err := g.restarter.Restart(restartCtx, g.dep, opts); err != nil {
		a.logger.Error().Err(err).Str("dependency", g.dep.Hostname).Msg("dependency restart failed")
		a.transition(status.NewRestartFailed(), a.unavailableHandler(g))
		a.record(OpRestart, OutcomeFailed)
		return err
	}

	a.cache.Clear()
	a.logger.Info().Str("dependency", g.dep.Hostname).Msg("dependency restarted")
	a.transition(status.NewRunning(), a.normalHandler(g))
	a.record(OpRestart, OutcomeOK)
	return nil
}

// isInterrupted reports errors that say nothing about the configuration.
func isInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
