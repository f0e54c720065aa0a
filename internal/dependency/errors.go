package dependency

import (
	"errors"
	"fmt"
)

// Sentinel errors for dependency calls.
var (
	// ErrCircuitOpen is returned when the circuit breaker rejects a call.
	ErrCircuitOpen = errors.New("dependency: circuit breaker is open")

	// ErrRestartFailed is returned when the dependency did not come back.
	ErrRestartFailed = errors.New("dependency: restart failed")

	// ErrUnexpectedStatus is returned for non-2xx responses from the dependency.
	ErrUnexpectedStatus = errors.New("dependency: unexpected status")
)

// RestartError describes a failed restart.
type RestartError struct {
	Err      error
	Hostname string
}

func (e *RestartError) Error() string {
	return fmt.Sprintf("dependency: restart of %s failed: %v", e.Hostname, e.Err)
}

// Unwrap returns the underlying cause.
func (e *RestartError) Unwrap() error {
	return e.Err
}

// Is reports ErrRestartFailed for every RestartError.
func (e *RestartError) Is(target error) bool {
	return target == ErrRestartFailed
}
