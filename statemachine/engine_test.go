package statemachine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSettings struct {
	Task string
}

func render(display string, data any) Command {
	return Command{Name: "RENDER", Params: map[string]any{"display": display, "data": data}}
}

// newLoaderDefinition builds a small loader machine: INIT -> SUSPENSE{PENDING, SPINNING}
// with ERROR and DONE as absorbing states.
func newLoaderDefinition(t *testing.T) *Definition[testSettings] {
	t.Helper()

	start := func(_ ExtendedState, _ any, s testSettings) ActionResult {
		return ActionResult{
			Outputs: []Command{{Name: "RUN", Params: s.Task}},
		}
	}

	startTimer := func(_ ExtendedState, _ any, _ testSettings) ActionResult {
		return ActionResult{
			Outputs: []Command{{Name: "START_TIMER", Params: 200}},
		}
	}

	fallback := func(_ ExtendedState, _ any, _ testSettings) ActionResult {
		return ActionResult{Outputs: []Command{render("FALLBACK", nil)}}
	}

	succeeded := func(_ ExtendedState, data any, _ testSettings) ActionResult {
		return ActionResult{
			Updates: []ExtendedState{{"result": data}},
			Outputs: []Command{render("MAIN", data)},
		}
	}

	failed := func(_ ExtendedState, data any, _ testSettings) ActionResult {
		return ActionResult{Outputs: []Command{render("ERR", data)}}
	}

	def, err := NewBuilder[testSettings]("loader").
		WithInitialState("INIT").
		AddState("INIT").
		AddCompoundState("SUSPENSE", "PENDING", "SPINNING").
		AddState("ERROR", "DONE").
		AddEvents("START", "TIMER_EXPIRED", "SUCCEEDED", "FAILED").
		AddTransition("INIT", "START", "SUSPENSE", "runOperation", start).
		AddInitialTransition("SUSPENSE", "PENDING", "startTimer", startTimer).
		AddTransition("PENDING", "TIMER_EXPIRED", "SPINNING", "renderFallback", fallback).
		AddTransition("SUSPENSE", "SUCCEEDED", "DONE", "renderSucceeded", succeeded).
		AddTransition("SUSPENSE", "FAILED", "ERROR", "renderError", failed).
		Build()
	require.NoError(t, err)

	return def
}

func newLoader(t *testing.T) *Machine[testSettings] {
	t.Helper()

	m, err := NewMachine(newLoaderDefinition(t), testSettings{Task: "fetch"})
	require.NoError(t, err)

	return m
}

func TestMachineStartsInInitialState(t *testing.T) {
	t.Parallel()

	m := newLoader(t)

	assert.Equal(t, "INIT", m.State())
	assert.Equal(t, "loader", m.Name())
	assert.NotEmpty(t, m.ID())
	assert.Empty(t, m.ExtendedState())
	assert.Empty(t, m.History())
	assert.Equal(t, "fetch", m.Settings().Task)
}

func TestMachineWithID(t *testing.T) {
	t.Parallel()

	m, err := NewMachine(newLoaderDefinition(t), testSettings{}, WithID("loader-1"))
	require.NoError(t, err)
	assert.Equal(t, "loader-1", m.ID())
}

func TestMachineRejectsInvalidDefinition(t *testing.T) {
	t.Parallel()

	_, err := NewMachine(&Definition[testSettings]{Name: "empty"}, testSettings{})
	require.ErrorIs(t, err, ErrInvalidDefinition)
	require.ErrorIs(t, err, ErrStateRequired)
}

func TestSendEntersCompoundState(t *testing.T) {
	t.Parallel()

	m := newLoader(t)
	ctx := context.Background()

	outputs := m.SendEvent(ctx, "START", nil)

	assert.Equal(t, []Command{
		{Name: "RUN", Params: "fetch"},
		{Name: "START_TIMER", Params: 200},
	}, outputs)
	assert.Equal(t, "PENDING", m.State())
	assert.True(t, m.IsIn("SUSPENSE"))
	assert.True(t, m.IsIn("PENDING"))
	assert.False(t, m.IsIn("SPINNING"))
	assert.Equal(t, []Step{{From: "INIT", Event: "START", To: "PENDING"}}, m.History())
}

func TestSendFastSuccess(t *testing.T) {
	t.Parallel()

	m := newLoader(t)
	ctx := context.Background()

	m.SendEvent(ctx, "START", nil)
	outputs := m.SendEvent(ctx, "SUCCEEDED", "payload")

	assert.Equal(t, []Command{render("MAIN", "payload")}, outputs)
	assert.Equal(t, "DONE", m.State())
	assert.True(t, m.IsAbsorbing())
	assert.Equal(t, "payload", m.ExtendedState()["result"])
}

func TestSendSlowSuccess(t *testing.T) {
	t.Parallel()

	m := newLoader(t)
	ctx := context.Background()

	m.SendEvent(ctx, "START", nil)
	assert.Equal(t, []Command{render("FALLBACK", nil)}, m.SendEvent(ctx, "TIMER_EXPIRED", nil))
	assert.Equal(t, "SPINNING", m.State())

	// Parent-level transition applies from SPINNING as well.
	assert.Equal(t, []Command{render("MAIN", 42)}, m.SendEvent(ctx, "SUCCEEDED", 42))
	assert.Equal(t, "DONE", m.State())

	assert.Equal(t, []Step{
		{From: "INIT", Event: "START", To: "PENDING"},
		{From: "PENDING", Event: "TIMER_EXPIRED", To: "SPINNING"},
		{From: "SPINNING", Event: "SUCCEEDED", To: "DONE"},
	}, m.History())
}

func TestSendFailure(t *testing.T) {
	t.Parallel()

	m := newLoader(t)
	ctx := context.Background()

	m.SendEvent(ctx, "START", nil)
	outputs := m.SendEvent(ctx, "FAILED", "boom")

	assert.Equal(t, []Command{render("ERR", "boom")}, outputs)
	assert.Equal(t, "ERROR", m.State())
	assert.True(t, m.IsAbsorbing())
}

func TestSendUnmatchedEventIsNoop(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		setup []string
		event string
		state string
	}{
		{"timer before start", nil, "TIMER_EXPIRED", "INIT"},
		{"success before start", nil, "SUCCEEDED", "INIT"},
		{"second start", []string{"START"}, "START", "PENDING"},
		{"timer while spinning", []string{"START", "TIMER_EXPIRED"}, "TIMER_EXPIRED", "SPINNING"},
		{"timer after done", []string{"START", "SUCCEEDED"}, "TIMER_EXPIRED", "DONE"},
		{"success after error", []string{"START", "FAILED"}, "SUCCEEDED", "ERROR"},
		{"undeclared event", []string{"START"}, "CANCEL", "PENDING"},
		{"external init", []string{"START"}, InitEvent, "PENDING"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := newLoader(t)
			ctx := context.Background()

			for _, event := range tt.setup {
				m.SendEvent(ctx, event, nil)
			}

			before := m.ExtendedState()
			history := m.History()

			outputs := m.SendEvent(ctx, tt.event, "ignored")

			assert.Nil(t, outputs)
			assert.Equal(t, tt.state, m.State())
			assert.Equal(t, before, m.ExtendedState())
			assert.Equal(t, history, m.History())
		})
	}
}

func TestLeafTransitionWinsOverParent(t *testing.T) {
	t.Parallel()

	def, err := NewBuilder[testSettings]("priority").
		WithInitialState("IDLE").
		AddState("IDLE").
		AddCompoundState("BUSY", "A", "B").
		AddEvents("GO", "NEXT").
		AddTransition("IDLE", "GO", "BUSY", "", nil).
		AddInitialTransition("BUSY", "A", "", nil).
		AddTransition("A", "NEXT", "B", "leaf", nil).
		AddTransition("BUSY", "NEXT", "IDLE", "parent", nil).
		Build()
	require.NoError(t, err)

	m, err := NewMachine(def, testSettings{})
	require.NoError(t, err)

	ctx := context.Background()

	m.SendEvent(ctx, "GO", nil)
	assert.Equal(t, "A", m.State())

	m.SendEvent(ctx, "NEXT", nil)
	assert.Equal(t, "B", m.State())

	m.SendEvent(ctx, "NEXT", nil)
	assert.Equal(t, "IDLE", m.State())
}

func TestTransitionWithoutAction(t *testing.T) {
	t.Parallel()

	def, err := NewBuilder[testSettings]("plain").
		WithInitialState("OFF").
		WithInitialExtendedState(ExtendedState{"count": 0}).
		AddState("OFF", "ON").
		AddEvents("TOGGLE").
		AddTransition("OFF", "TOGGLE", "ON", "", nil).
		AddTransition("ON", "TOGGLE", "OFF", "", nil).
		Build()
	require.NoError(t, err)

	m, err := NewMachine(def, testSettings{})
	require.NoError(t, err)

	outputs := m.SendEvent(context.Background(), "TOGGLE", nil)
	assert.Empty(t, outputs)
	assert.Equal(t, "ON", m.State())
	assert.Equal(t, ExtendedState{"count": 0}, m.ExtendedState())
}

func TestUpdatesAreFoldedInOrder(t *testing.T) {
	t.Parallel()

	write := func(_ ExtendedState, _ any, _ testSettings) ActionResult {
		return ActionResult{Updates: []ExtendedState{
			{"a": 1, "b": 1},
			{"b": 2},
		}}
	}

	def, err := NewBuilder[testSettings]("fold").
		WithInitialState("S").
		WithInitialExtendedState(ExtendedState{"a": 0, "keep": true}).
		AddState("S", "T").
		AddEvents("E").
		AddTransition("S", "E", "T", "write", write).
		Build()
	require.NoError(t, err)

	m, err := NewMachine(def, testSettings{})
	require.NoError(t, err)

	m.SendEvent(context.Background(), "E", nil)

	assert.Equal(t, ExtendedState{"a": 1, "b": 2, "keep": true}, m.ExtendedState())
	assert.Equal(t, ExtendedState{"a": 0, "keep": true}, def.InitialExtendedState)
}

func TestInitActionSeesParentUpdates(t *testing.T) {
	t.Parallel()

	var seen any

	enter := func(_ ExtendedState, _ any, _ testSettings) ActionResult {
		return ActionResult{Updates: []ExtendedState{{"entered": true}}}
	}

	initial := func(ext ExtendedState, data any, _ testSettings) ActionResult {
		seen = ext["entered"]

		return ActionResult{Outputs: []Command{{Name: "INIT_DATA", Params: data}}}
	}

	def, err := NewBuilder[testSettings]("nested").
		WithInitialState("IDLE").
		AddState("IDLE").
		AddCompoundState("WORK", "STEP").
		AddEvents("GO").
		AddTransition("IDLE", "GO", "WORK", "enter", enter).
		AddInitialTransition("WORK", "STEP", "initial", initial).
		Build()
	require.NoError(t, err)

	m, err := NewMachine(def, testSettings{})
	require.NoError(t, err)

	outputs := m.SendEvent(context.Background(), "GO", "trigger")

	assert.Equal(t, true, seen)
	assert.Equal(t, []Command{{Name: "INIT_DATA", Params: "trigger"}}, outputs)
}

func TestActionMutationDoesNotLeak(t *testing.T) {
	t.Parallel()

	mutate := func(ext ExtendedState, _ any, _ testSettings) ActionResult {
		ext["sneaky"] = true

		return NoOutput
	}

	def, err := NewBuilder[testSettings]("mutate").
		WithInitialState("S").
		AddState("S", "T").
		AddEvents("E").
		AddTransition("S", "E", "T", "mutate", mutate).
		Build()
	require.NoError(t, err)

	m, err := NewMachine(def, testSettings{})
	require.NoError(t, err)

	m.SendEvent(context.Background(), "E", nil)

	_, ok := m.ExtendedState()["sneaky"]
	assert.False(t, ok)
}

func TestMachinesAreDeterministic(t *testing.T) {
	t.Parallel()

	events := []Event{
		NewEvent("TIMER_EXPIRED", nil),
		NewEvent("START", nil),
		NewEvent("START", nil),
		NewEvent("TIMER_EXPIRED", nil),
		NewEvent("SUCCEEDED", map[string]any{"rows": 3}),
		NewEvent("FAILED", nil),
	}

	run := func() ([]Command, []Step, ExtendedState) {
		m := newLoader(t)

		var outputs []Command
		for _, event := range events {
			outputs = append(outputs, m.Send(context.Background(), event)...)
		}

		return outputs, m.History(), m.ExtendedState()
	}

	outputs1, history1, ext1 := run()
	outputs2, history2, ext2 := run()

	assert.Equal(t, outputs1, outputs2)
	assert.Equal(t, history1, history2)
	assert.Equal(t, ext1, ext2)
}

func TestSendIsSerialized(t *testing.T) {
	t.Parallel()

	counter := func(ext ExtendedState, _ any, _ testSettings) ActionResult {
		n, _ := ext.GetInt("n")

		return ActionResult{Updates: []ExtendedState{{"n": n + 1}}}
	}

	def, err := NewBuilder[testSettings]("counter").
		WithInitialState("S").
		AddState("S").
		AddEvents("INC").
		AddTransition("S", "INC", "S", "counter", counter).
		Build()
	require.NoError(t, err)

	m, err := NewMachine(def, testSettings{})
	require.NoError(t, err)

	const workers = 8

	const perWorker = 50

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range perWorker {
				m.SendEvent(context.Background(), "INC", nil)
			}
		}()
	}

	wg.Wait()

	n, ok := m.ExtendedState().GetInt("n")
	require.True(t, ok)
	assert.Equal(t, workers*perWorker, n)
	assert.Len(t, m.History(), workers*perWorker)
}

func TestCustomUpdateState(t *testing.T) {
	t.Parallel()

	replace := func(_ ExtendedState, updates []ExtendedState) ExtendedState {
		if len(updates) == 0 {
			return ExtendedState{}
		}

		return updates[len(updates)-1].Clone()
	}

	write := func(_ ExtendedState, _ any, _ testSettings) ActionResult {
		return ActionResult{Updates: []ExtendedState{{"a": 1}, {"b": 2}}}
	}

	def, err := NewBuilder[testSettings]("replace").
		WithInitialState("S").
		WithInitialExtendedState(ExtendedState{"old": true}).
		WithUpdateState(replace).
		AddState("S", "T").
		AddEvents("E").
		AddTransition("S", "E", "T", "write", write).
		Build()
	require.NoError(t, err)

	m, err := NewMachine(def, testSettings{})
	require.NoError(t, err)

	m.SendEvent(context.Background(), "E", nil)
	assert.Equal(t, ExtendedState{"b": 2}, m.ExtendedState())
}

type recordingLogger struct {
	mu          sync.Mutex
	ignored     []string
	transitions []Step
	actions     []string
}

func (l *recordingLogger) EventIgnored(_ context.Context, _, _, event string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ignored = append(l.ignored, event)
}

func (l *recordingLogger) TransitionExecuted(_ context.Context, _ string, step Step) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.transitions = append(l.transitions, step)
}

func (l *recordingLogger) ActionCompleted(_ context.Context, _, action string, _ ActionResult, _ time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.actions = append(l.actions, action)
}

func TestMachineLoggerHooks(t *testing.T) {
	t.Parallel()

	logger := &recordingLogger{}

	m, err := NewMachine(newLoaderDefinition(t), testSettings{}, WithLogger(logger))
	require.NoError(t, err)

	ctx := context.Background()

	m.SendEvent(ctx, "SUCCEEDED", nil)
	m.SendEvent(ctx, "START", nil)
	m.SendEvent(ctx, "SUCCEEDED", nil)

	assert.Equal(t, []string{"SUCCEEDED"}, logger.ignored)
	assert.Equal(t, []string{"runOperation", "startTimer", "renderSucceeded"}, logger.actions)
	assert.Equal(t, []Step{
		{From: "INIT", Event: "START", To: "PENDING"},
		{From: "PENDING", Event: "SUCCEEDED", To: "DONE"},
	}, logger.transitions)
}

func TestIsAbsorbing(t *testing.T) {
	t.Parallel()

	m := newLoader(t)
	ctx := context.Background()

	assert.False(t, m.IsAbsorbing())

	m.SendEvent(ctx, "START", nil)
	assert.False(t, m.IsAbsorbing())

	m.SendEvent(ctx, "TIMER_EXPIRED", nil)
	assert.False(t, m.IsAbsorbing(), "SPINNING inherits SUSPENSE transitions")

	m.SendEvent(ctx, "FAILED", nil)
	assert.True(t, m.IsAbsorbing())
}
