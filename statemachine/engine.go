package statemachine

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// defaultActionName labels transitions declared without an action name.
const defaultActionName = "anonymous"

// Option configures a Machine.
type Option func(*machineOptions)

type machineOptions struct {
	id     string
	logger Logger
}

// WithLogger attaches instrumentation callbacks to the machine.
func WithLogger(logger Logger) Option {
	return func(o *machineOptions) {
		o.logger = logger
	}
}

// WithID sets the machine instance identifier. A random UUID is used otherwise.
func WithID(id string) Option {
	return func(o *machineOptions) {
		o.id = id
	}
}

// Machine interprets a Definition. It holds the current control state (always
// a leaf) and the extended state, and processes one event at a time.
type Machine[S any] struct {
	mu          sync.Mutex
	id          string
	def         *Definition[S]
	topo        *topology[S]
	fingerprint string
	update      UpdateFunc
	settings    S
	current     string
	extended    ExtendedState
	history     []Step
	logger      Logger
}

// NewMachine validates def and returns a machine in its initial control state.
// settings is handed to every action and never modified by the machine.
func NewMachine[S any](def *Definition[S], settings S, opts ...Option) (*Machine[S], error) {
	topo, err := def.compile()
	if err != nil {
		return nil, err
	}

	options := machineOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.id == "" {
		options.id = uuid.New().String()
	}

	update := def.UpdateState
	if update == nil {
		update = ShallowMerge
	}

	return &Machine[S]{
		id:          options.id,
		def:         def,
		topo:        topo,
		fingerprint: def.Fingerprint(),
		update:      update,
		settings:    settings,
		current:     def.InitialControlState,
		extended:    def.InitialExtendedState.Clone(),
		history:     []Step{},
		logger:      options.logger,
	}, nil
}

// Send processes one event to completion and returns the output commands it
// produced, in order. An event with no matching transition is a no-op: the
// control and extended states are unchanged and nil is returned.
// Calls are serialized; an event is never processed while another is in flight.
func (m *Machine[S]) Send(ctx context.Context, event Event) []Command {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := time.Now()
	machine := sanitizeMachine(m.def.Name)

	ctx, span := startSendSpan(ctx, machine, m.id, m.fingerprint, m.current, event.Name)

	outputs, step, handled := m.process(ctx, event)

	outcome := outcomeIgnored
	if handled {
		outcome = outcomeHandled
	}

	eventLabel := "undeclared"
	if m.topo.events[event.Name] {
		eventLabel = sanitizeEvent(event.Name)
	}

	eventsTotal.WithLabelValues(machine, eventLabel, outcome).Inc()
	sendDuration.WithLabelValues(machine, outcome).Observe(time.Since(start).Seconds())

	if handled {
		transitionsTotal.WithLabelValues(machine, step.From, step.To).Inc()

		for _, output := range outputs {
			outputsTotal.WithLabelValues(machine, output.Name).Inc()
		}

		if m.logger != nil {
			m.logger.TransitionExecuted(ctx, machine, step)
		}
	} else if m.logger != nil {
		m.logger.EventIgnored(ctx, machine, m.current, event.Name)
	}

	endSendSpan(span, step, handled, outputs)

	return outputs
}

// SendEvent is shorthand for Send(ctx, NewEvent(name, data)).
func (m *Machine[S]) SendEvent(ctx context.Context, name string, data any) []Command {
	return m.Send(ctx, NewEvent(name, data))
}

// process runs lookup, action, merge and init-entry resolution. Callers hold m.mu.
func (m *Machine[S]) process(ctx context.Context, event Event) ([]Command, Step, bool) {
	if event.Name == InitEvent {
		return nil, Step{}, false
	}

	transition := m.topo.lookup(m.current, event.Name)
	if transition == nil {
		return nil, Step{}, false
	}

	var outputs []Command

	ext := m.extended
	outputs, ext = m.invoke(ctx, transition, ext, event.Data, outputs)

	target := transition.To
	for m.topo.compound[target] {
		initial := m.topo.initial[target]
		outputs, ext = m.invoke(ctx, initial, ext, event.Data, outputs)
		target = initial.To
	}

	step := Step{From: m.current, Event: event.Name, To: target}

	m.extended = ext
	m.current = target
	m.history = append(m.history, step)

	return outputs, step, true
}

// invoke runs one transition's action and folds its result into ext and outputs.
func (m *Machine[S]) invoke(
	ctx context.Context,
	transition *Transition[S],
	ext ExtendedState,
	data any,
	outputs []Command,
) ([]Command, ExtendedState) {
	if transition.Action == nil {
		return outputs, ext
	}

	name := transition.ActionName
	if name == "" {
		name = defaultActionName
	}

	ctx, span := startActionSpan(ctx, name, Step{From: transition.From, Event: transition.Event, To: transition.To})
	defer span.End()

	start := time.Now()

	// Actions get a copy so the held extended state only ever changes through the update rule.
	result := transition.Action(ext.Clone(), data, m.settings)

	span.SetAttributes(
		attribute.Int("updates", len(result.Updates)),
		attribute.Int("outputs", len(result.Outputs)),
	)

	if m.logger != nil {
		m.logger.ActionCompleted(ctx, sanitizeMachine(m.def.Name), name, result, time.Since(start))
	}

	return append(outputs, result.Outputs...), m.update(ext, result.Updates)
}

// ID returns the machine instance identifier.
func (m *Machine[S]) ID() string {
	return m.id
}

// Name returns the definition name.
func (m *Machine[S]) Name() string {
	return m.def.Name
}

// State returns the current control state. It is always a leaf.
func (m *Machine[S]) State() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current
}

// ExtendedState returns a copy of the current extended state.
func (m *Machine[S]) ExtendedState() ExtendedState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.extended.Clone()
}

// History returns the steps taken so far, oldest first.
func (m *Machine[S]) History() []Step {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.history)
}

// IsIn reports whether the machine is in state, either as the current leaf or
// as its compound parent.
func (m *Machine[S]) IsIn(state string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	for current := m.current; current != ""; current = m.topo.parent[current] {
		if current == state {
			return true
		}
	}

	return false
}

// IsAbsorbing reports whether no event can move the machine out of its current state.
func (m *Machine[S]) IsAbsorbing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.topo.absorbing(m.current)
}

// Settings returns the settings the machine was constructed with.
func (m *Machine[S]) Settings() S {
	return m.settings
}
