// Package actions provides composable building blocks for state machine actions.
// Every helper returns a pure statemachine.ActionFunc: it describes updates and
// output commands and performs no I/O.
package actions

import (
	"github.com/amp-labs/suspense/statemachine"
)

// Noop returns an action producing no updates and no outputs.
func Noop[S any]() statemachine.ActionFunc[S] {
	return func(_ statemachine.ExtendedState, _ any, _ S) statemachine.ActionResult {
		return statemachine.NoOutput
	}
}

// Emit returns an action that emits the given commands verbatim.
func Emit[S any](commands ...statemachine.Command) statemachine.ActionFunc[S] {
	return func(_ statemachine.ExtendedState, _ any, _ S) statemachine.ActionResult {
		return statemachine.ActionResult{
			Outputs: append([]statemachine.Command(nil), commands...),
		}
	}
}

// EmitFunc returns an action emitting one command whose params are computed
// from the event payload and settings.
func EmitFunc[S any](name string, params func(data any, settings S) any) statemachine.ActionFunc[S] {
	return func(_ statemachine.ExtendedState, data any, settings S) statemachine.ActionResult {
		return statemachine.ActionResult{
			Outputs: []statemachine.Command{{Name: name, Params: params(data, settings)}},
		}
	}
}

// Update returns an action that emits the given extended-state fragments.
func Update[S any](fragments ...statemachine.ExtendedState) statemachine.ActionFunc[S] {
	return func(_ statemachine.ExtendedState, _ any, _ S) statemachine.ActionResult {
		updates := make([]statemachine.ExtendedState, 0, len(fragments))
		for _, fragment := range fragments {
			updates = append(updates, fragment.Clone())
		}

		return statemachine.ActionResult{Updates: updates}
	}
}

// Store returns an action that records the event payload under key.
func Store[S any](key string) statemachine.ActionFunc[S] {
	return func(_ statemachine.ExtendedState, data any, _ S) statemachine.ActionResult {
		return statemachine.ActionResult{
			Updates: []statemachine.ExtendedState{{key: data}},
		}
	}
}
