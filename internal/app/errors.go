package app

import "errors"

var (
	// ErrBusy is returned when another control operation holds the slot.
	ErrBusy = errors.New("app: another control operation is in progress")

	// ErrMisconfigured wraps the reason a reload was rejected.
	ErrMisconfigured = errors.New("app: invalid configuration")

	// ErrNotActive is returned when restarting before any configuration was accepted.
	ErrNotActive = errors.New("app: no active configuration")
)
