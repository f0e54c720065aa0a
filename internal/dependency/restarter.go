package dependency

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/omarluq/hotswap/internal/config"
)

// RestartOptions tunes a single restart.
type RestartOptions struct {
	// ForceFailure makes the restart fail. It is a test knob exposed through
	// the failing query parameter of the restart endpoint.
	ForceFailure bool
}

// Restarter restarts the dependency. Restart blocks until the dependency is
// back or the attempt failed; it must return promptly once ctx is done.
type Restarter interface {
	Restart(ctx context.Context, state State, opts RestartOptions) error
}

// NewRestarter returns the restarter matching the configured mode.
func NewRestarter(cfg *config.Config, client *http.Client, logger *zerolog.Logger) Restarter {
	if cfg.Dependency.GetMode() == config.DependencyHTTP {
		return NewHTTPRestarter(client, logger)
	}
	return NewSimulatedRestarter(
		cfg.Dependency.GetRestartDelay(),
		cfg.Dependency.GetRestartFailureDelay(),
		logger,
	)
}

// SimulatedRestarter pretends to restart the dependency by sleeping.
type SimulatedRestarter struct {
	logger       *zerolog.Logger
	successDelay time.Duration
	failureDelay time.Duration
}

// NewSimulatedRestarter creates a SimulatedRestarter. A nil logger disables logging.
func NewSimulatedRestarter(successDelay, failureDelay time.Duration, logger *zerolog.Logger) *SimulatedRestarter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SimulatedRestarter{
		successDelay: successDelay,
		failureDelay: failureDelay,
		logger:       logger,
	}
}

// Restart waits for the configured delay, then succeeds or fails.
func (r *SimulatedRestarter) Restart(ctx context.Context, state State, opts RestartOptions) error {
	delay := r.successDelay
	if opts.ForceFailure {
		delay = r.failureDelay
	}

	r.logger.Info().
		Str("url", state.Endpoint("/restart")).
		Dur("delay", delay).
		Bool("failing", opts.ForceFailure).
		Msg("simulated PUT")

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &RestartError{Hostname: state.Hostname, Err: ctx.Err()}
	case <-timer.C:
	}

	if opts.ForceFailure {
		return &RestartError{Hostname: state.Hostname, Err: ErrRestartFailed}
	}
	return nil
}

// HTTPRestarter asks the dependency to restart with PUT /restart, then polls
// GET /health until it answers 2xx.
type HTTPRestarter struct {
	client       *http.Client
	logger       *zerolog.Logger
	pollInterval time.Duration
}

// NewHTTPRestarter creates an HTTPRestarter. A nil client uses a 5s-timeout client.
func NewHTTPRestarter(client *http.Client, logger *zerolog.Logger) *HTTPRestarter {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &HTTPRestarter{client: client, logger: logger, pollInterval: 250 * time.Millisecond}
}

// Restart performs the restart request and waits for readiness.
func (r *HTTPRestarter) Restart(ctx context.Context, state State, opts RestartOptions) error {
	if opts.ForceFailure {
		return &RestartError{Hostname: state.Hostname, Err: ErrRestartFailed}
	}

	if err := r.do(ctx, http.MethodPut, state.Endpoint("/restart")); err != nil {
		return &RestartError{Hostname: state.Hostname, Err: err}
	}

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		err := r.do(ctx, http.MethodGet, state.Endpoint("/health"))
		if err == nil {
			return nil
		}
		r.logger.Debug().Err(err).Str("dependency", state.Hostname).Msg("dependency not ready yet")

		select {
		case <-ctx.Done():
			return &RestartError{Hostname: state.Hostname, Err: ctx.Err()}
		case <-ticker.C:
		}
	}
}

func (r *HTTPRestarter) do(ctx context.Context, method, url string) error {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			r.logger.Warn().Err(closeErr).Msg("failed to close response body")
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedStatus, method, url, resp.StatusCode)
	}
	return nil
}

var (
	_ Restarter = (*SimulatedRestarter)(nil)
	_ Restarter = (*HTTPRestarter)(nil)
)
