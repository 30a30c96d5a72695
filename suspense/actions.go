package suspense

import (
	"github.com/amp-labs/suspense/statemachine"
)

// Action names referenced by suspense.yaml.
const (
	ActionRunOperation    = "runOperation"
	ActionStartTimer      = "startTimer"
	ActionRenderFallback  = "renderFallback"
	ActionRenderSucceeded = "renderSucceeded"
	ActionRenderError     = "renderError"
)

// Actions returns a factory holding the suspense actions.
func Actions() *statemachine.ActionFactory[Settings] {
	return statemachine.NewActionFactory[Settings]().
		Register(ActionRunOperation, runOperation).
		Register(ActionStartTimer, startTimer).
		Register(ActionRenderFallback, renderFallback).
		Register(ActionRenderSucceeded, renderSucceeded).
		Register(ActionRenderError, renderError)
}

// runOperation emits RUN with the task descriptor, or nothing when no task is set.
func runOperation(_ statemachine.ExtendedState, _ any, settings Settings) statemachine.ActionResult {
	if settings.Task == nil {
		return statemachine.NoOutput
	}

	return statemachine.ActionResult{
		Outputs: []statemachine.Command{{Name: CommandRun, Params: settings.Task}},
	}
}

func startTimer(_ statemachine.ExtendedState, _ any, settings Settings) statemachine.ActionResult {
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return statemachine.ActionResult{
		Outputs: []statemachine.Command{{Name: CommandStartTimer, Params: timeout}},
	}
}

func renderFallback(_ statemachine.ExtendedState, _ any, _ Settings) statemachine.ActionResult {
	return render(DisplayFallback, nil)
}

func renderSucceeded(_ statemachine.ExtendedState, data any, _ Settings) statemachine.ActionResult {
	return render(DisplayMain, data)
}

func renderError(_ statemachine.ExtendedState, data any, _ Settings) statemachine.ActionResult {
	return render(DisplayError, data)
}

func render(display Display, data any) statemachine.ActionResult {
	return statemachine.ActionResult{
		Outputs: []statemachine.Command{{
			Name:   CommandRender,
			Params: RenderParams{Display: display, Data: data},
		}},
	}
}
