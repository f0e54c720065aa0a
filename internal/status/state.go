// Package status models the operational state of the process and maps it to
// health-check results.
//
// The state set is closed:
//
//	Starting -> Running <-> Misconfigured(reason)
//	Running  -> Restarting -> Running | RestartFailed
//	RestartFailed -> Restarting
//
// Transitions are only made by control operations; nothing reverts on a timer.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/samber/mo"
)

// Kind identifies one of the fixed operational states.
type Kind uint8

// Operational states.
const (
	Starting Kind = iota
	Running
	Restarting
	RestartFailed
	Misconfigured
)

var kindNames = [...]string{
	Starting:      "starting",
	Running:       "running",
	Restarting:    "restarting",
	RestartFailed: "restart_failed",
	Misconfigured: "misconfigured",
}

// Kinds lists every state in declaration order.
func Kinds() []Kind {
	return []Kind{Starting, Running, Restarting, RestartFailed, Misconfigured}
}

// String returns the snake_case name of the state.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// State is an immutable operational state value.
// The reason is only carried by Misconfigured.
type State struct {
	reason string
	kind   Kind
}

// NewStarting returns the initial state.
func NewStarting() State { return State{kind: Starting} }

// NewRunning returns the normal-operation state.
func NewRunning() State { return State{kind: Running} }

// NewRestarting returns the state used while a dependency restarts.
func NewRestarting() State { return State{kind: Restarting} }

// NewRestartFailed returns the degraded state after a failed restart.
func NewRestartFailed() State { return State{kind: RestartFailed} }

// NewMisconfigured returns the state after a failed configuration reload.
func NewMisconfigured(reason string) State {
	return State{kind: Misconfigured, reason: reason}
}

// Kind returns the state tag.
func (s State) Kind() Kind {
	return s.kind
}

// Reason returns the misconfiguration reason, or None for every other state.
func (s State) Reason() mo.Option[string] {
	if s.kind != Misconfigured {
		return mo.None[string]()
	}
	return mo.Some(s.reason)
}

// String returns the state name.
func (s State) String() string {
	return s.kind.String()
}

// HTTPStatus maps the state to the /health response code.
func (s State) HTTPStatus() int {
	switch s.kind {
	case Starting:
		return http.StatusTooEarly
	case Running:
		return http.StatusOK
	case Restarting, RestartFailed:
		return http.StatusServiceUnavailable
	case Misconfigured:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Ready reports whether the state serves normal traffic.
func (s State) Ready() bool {
	return s.kind == Running
}

// MarshalJSON exposes the state name only. The misconfiguration reason is
// deliberately left out of every external representation.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.kind.String())
}
