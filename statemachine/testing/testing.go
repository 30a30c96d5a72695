// Package testing provides testing utilities for state machines.
//
//nolint:varnamelen // Short names idiomatic
package testing

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amp-labs/suspense/statemachine"
)

// TestMachine wraps Machine with a trace of every event sent and assertions over it.
type TestMachine[S any] struct {
	*statemachine.Machine[S]

	t          testing.TB
	trace      []TraceEntry
	assertions []Assertion
}

// TraceEntry records a single Send.
type TraceEntry struct {
	Event    string
	Data     any
	From     string
	To       string
	Handled  bool
	Outputs  []statemachine.Command
	Extended statemachine.ExtendedState // Snapshot after the event
}

// Assertion represents a test assertion.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// NewTestMachine creates a test machine for a definition, failing t if the definition is invalid.
func NewTestMachine[S any](
	t testing.TB, def *statemachine.Definition[S], settings S, opts ...statemachine.Option,
) *TestMachine[S] {
	t.Helper()

	m, err := statemachine.NewMachine(def, settings, opts...)
	require.NoError(t, err, "failed to create machine")

	return &TestMachine[S]{
		Machine:    m,
		t:          t,
		trace:      make([]TraceEntry, 0),
		assertions: make([]Assertion, 0),
	}
}

// NewTestMachineFromConfig compiles config with factory and wraps the resulting machine.
func NewTestMachineFromConfig[S any](
	t testing.TB, config *statemachine.Config, factory *statemachine.ActionFactory[S], settings S,
) *TestMachine[S] {
	t.Helper()

	def, err := statemachine.Compile(config, factory)
	require.NoError(t, err, "failed to compile config")

	return NewTestMachine(t, def, settings)
}

// Send delivers an event and records it in the trace.
func (tm *TestMachine[S]) Send(name string, data any) []statemachine.Command {
	tm.t.Helper()

	from := tm.Machine.State()
	before := len(tm.Machine.History())

	outputs := tm.Machine.Send(context.Background(), statemachine.NewEvent(name, data))

	tm.trace = append(tm.trace, TraceEntry{
		Event:    name,
		Data:     data,
		From:     from,
		To:       tm.Machine.State(),
		Handled:  len(tm.Machine.History()) > before,
		Outputs:  outputs,
		Extended: tm.Machine.ExtendedState(),
	})

	return outputs
}

// SendAll delivers events in order and returns all outputs concatenated.
func (tm *TestMachine[S]) SendAll(events ...statemachine.Event) []statemachine.Command {
	tm.t.Helper()

	var outputs []statemachine.Command
	for _, event := range events {
		outputs = append(outputs, tm.Send(event.Name, event.Data)...)
	}

	return outputs
}

func (tm *TestMachine[S]) record(name string, passed bool, err error) {
	tm.assertions = append(tm.assertions, Assertion{Name: name, Passed: passed, Error: err})
}

// AssertState checks the current control state.
func (tm *TestMachine[S]) AssertState(expected string) {
	tm.t.Helper()

	actual := tm.Machine.State()

	var err error
	if actual != expected {
		err = fmt.Errorf("%w: expected '%s', got '%s'", ErrStateMismatch, expected, actual)
	}

	tm.record(fmt.Sprintf("State is '%s'", expected), err == nil, err)
	require.Equal(tm.t, expected, actual, "state should be '%s'", expected)
}

// AssertStateVisited checks if a state was entered at any point.
func (tm *TestMachine[S]) AssertStateVisited(stateName string) {
	tm.t.Helper()

	tm.assertMatcher(StateWasVisited(stateName))
}

// AssertTransitionTaken checks if an event moved the machine from one leaf to another.
func (tm *TestMachine[S]) AssertTransitionTaken(from, to string) {
	tm.t.Helper()

	tm.assertMatcher(TransitionWasTaken(from, to))
}

// AssertExtendedValue checks an extended-state value after the last event.
func (tm *TestMachine[S]) AssertExtendedValue(key string, expected any) {
	tm.t.Helper()

	tm.assertMatcher(ExtendedStateContains(key, expected))
}

// AssertOutputs checks the outputs of the last event.
func (tm *TestMachine[S]) AssertOutputs(expected ...statemachine.Command) {
	tm.t.Helper()

	require.NotEmpty(tm.t, tm.trace, "no events sent")

	actual := tm.trace[len(tm.trace)-1].Outputs
	if len(expected) == 0 {
		tm.record("Last event produced no output", len(actual) == 0, nil)
		require.Empty(tm.t, actual, "last event should produce no output")

		return
	}

	tm.record("Last event outputs match", slices.EqualFunc(actual, expected, commandsEqual), nil)
	require.Equal(tm.t, expected, actual, "outputs of last event")
}

// AssertIgnored checks that the last event matched no transition.
func (tm *TestMachine[S]) AssertIgnored() {
	tm.t.Helper()

	require.NotEmpty(tm.t, tm.trace, "no events sent")

	last := tm.trace[len(tm.trace)-1]
	tm.record(fmt.Sprintf("Event '%s' was ignored", last.Event), !last.Handled, nil)
	require.False(tm.t, last.Handled, "event '%s' should have been ignored", last.Event)
}

// AssertAbsorbing checks that no event can move the machine anymore.
func (tm *TestMachine[S]) AssertAbsorbing() {
	tm.t.Helper()

	absorbing := tm.Machine.IsAbsorbing()
	tm.record("Machine is absorbing", absorbing, nil)
	require.True(tm.t, absorbing, "state '%s' should be absorbing", tm.Machine.State())
}

// Assert runs a matcher and fails the test if it does not match.
func (tm *TestMachine[S]) Assert(matcher Matcher) {
	tm.t.Helper()

	tm.assertMatcher(matcher)
}

func (tm *TestMachine[S]) assertMatcher(matcher Matcher) {
	tm.t.Helper()

	matched, err := matcher.Match(tm)
	tm.record(matcher.Description(), matched, err)
	require.True(tm.t, matched, "%s: %v", matcher.Description(), err)
}

// GetTrace returns the trace for inspection.
func (tm *TestMachine[S]) GetTrace() []TraceEntry {
	return slices.Clone(tm.trace)
}

// GetAssertions returns all assertions made.
func (tm *TestMachine[S]) GetAssertions() []Assertion {
	return slices.Clone(tm.assertions)
}

func commandsEqual(a, b statemachine.Command) bool {
	return a.Name == b.Name && fmt.Sprint(a.Params) == fmt.Sprint(b.Params)
}
