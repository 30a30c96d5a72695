package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amp-labs/suspense/statemachine"
)

// ScenarioStep is one event of a scenario and what it must produce.
type ScenarioStep struct {
	Event string
	Data  any
	// Outputs is checked only when ExpectOutputs is set; nil then means no output.
	Outputs       []statemachine.Command
	ExpectOutputs bool
	// State is the expected leaf after the event, when non-empty.
	State string
}

// Scenario represents a complete test scenario for a state machine.
type Scenario[S any] struct {
	Name       string
	Definition *statemachine.Definition[S]
	Settings   S
	Steps      []ScenarioStep
	FinalState string
	Matchers   []Matcher
}

// RunScenario executes a scenario as a subtest and validates every step.
func RunScenario[S any](t *testing.T, scenario Scenario[S]) {
	t.Helper()

	t.Run(scenario.Name, func(t *testing.T) {
		t.Parallel()

		machine := NewTestMachine(t, scenario.Definition, scenario.Settings)

		for i, step := range scenario.Steps {
			outputs := machine.Send(step.Event, step.Data)

			if step.ExpectOutputs {
				if len(step.Outputs) == 0 {
					require.Empty(t, outputs, "step %d (%s) outputs", i, step.Event)
				} else {
					require.Equal(t, step.Outputs, outputs, "step %d (%s) outputs", i, step.Event)
				}
			}

			if step.State != "" {
				require.Equal(t, step.State, machine.State(), "step %d (%s) state", i, step.Event)
			}
		}

		if scenario.FinalState != "" {
			machine.AssertState(scenario.FinalState)
		}

		for _, matcher := range scenario.Matchers {
			machine.Assert(matcher)
		}
	})
}

// Expect builds a step that checks both outputs and the resulting state.
func Expect(event string, data any, state string, outputs ...statemachine.Command) ScenarioStep {
	return ScenarioStep{
		Event:         event,
		Data:          data,
		Outputs:       outputs,
		ExpectOutputs: true,
		State:         state,
	}
}
