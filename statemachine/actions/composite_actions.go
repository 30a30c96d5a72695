package actions

import (
	"github.com/amp-labs/suspense/statemachine"
)

// Sequence runs actions in order against the same inputs and concatenates
// their updates and outputs. Later actions do not see earlier updates; the
// machine folds all of them once the sequence returns.
func Sequence[S any](actions ...statemachine.ActionFunc[S]) statemachine.ActionFunc[S] {
	return func(ext statemachine.ExtendedState, data any, settings S) statemachine.ActionResult {
		var result statemachine.ActionResult

		for _, action := range actions {
			if action == nil {
				continue
			}

			next := action(ext, data, settings)
			result.Updates = append(result.Updates, next.Updates...)
			result.Outputs = append(result.Outputs, next.Outputs...)
		}

		return result
	}
}

// Predicate inspects the inputs of an action.
type Predicate[S any] func(ext statemachine.ExtendedState, data any, settings S) bool

// When runs then if cond holds, otherwise elseAction. Either action may be nil.
func When[S any](cond Predicate[S], then, elseAction statemachine.ActionFunc[S]) statemachine.ActionFunc[S] {
	return func(ext statemachine.ExtendedState, data any, settings S) statemachine.ActionResult {
		if cond(ext, data, settings) {
			if then != nil {
				return then(ext, data, settings)
			}

			return statemachine.NoOutput
		}

		if elseAction != nil {
			return elseAction(ext, data, settings)
		}

		return statemachine.NoOutput
	}
}
