// Package suspense models the lifecycle of an asynchronous UI region: an
// operation is launched, a fallback is rendered once a grace period passes
// without a result, and the outcome selects the final render.
//
// The machine itself performs no I/O. It returns RENDER, RUN and START_TIMER
// commands for a driver to execute; see package driver.
package suspense

import "time"

// Control states.
const (
	StateInit     = "INIT"
	StateSuspense = "SUSPENSE"
	StatePending  = "PENDING"
	StateSpinning = "SPINNING"
	StateError    = "ERROR"
	StateDone     = "DONE"
)

// Events.
const (
	EventStart        = "START"
	EventTimerExpired = "TIMER_EXPIRED"
	EventSucceeded    = "SUCCEEDED"
	EventFailed       = "FAILED"
)

// Output commands.
const (
	CommandRender     = "RENDER"
	CommandRun        = "RUN"
	CommandStartTimer = "START_TIMER"
)

// DefaultTimeout is the fallback delay used when Settings.Timeout is not positive.
const DefaultTimeout = 200 * time.Millisecond

// Display selects what a RENDER command shows.
type Display string

const (
	DisplayFallback Display = "FALLBACK"
	DisplayMain     Display = "MAIN"
	DisplayError    Display = "ERR"
)

// RenderParams is the payload of a RENDER command.
type RenderParams struct {
	Display Display `json:"display"        yaml:"display"`
	Data    any     `json:"data,omitempty" yaml:"data,omitempty"`
}

// Settings is the read-only per-machine configuration.
type Settings struct {
	// Task is passed verbatim as the RUN payload. Nil means no task is run.
	Task any
	// Timeout is the fallback delay. Zero or negative means DefaultTimeout.
	Timeout time.Duration
}
