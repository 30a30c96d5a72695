package statemachine

import (
	"fmt"
	"strings"

	"github.com/zeebo/xxh3"
)

// Definition is a compiled, declarative machine: topology, events, transition
// table, initial state and the extended-state update rule. A Definition is
// immutable once handed to NewMachine and may back any number of machines.
type Definition[S any] struct {
	Name                 string
	InitialControlState  string
	InitialExtendedState ExtendedState
	States               []StateNode
	Events               []string
	Transitions          []Transition[S]
	// UpdateState folds action updates into the extended state. Nil means ShallowMerge.
	UpdateState UpdateFunc
}

// transitionKey indexes the transition table.
type transitionKey struct {
	state string
	event string
}

// topology is the lookup structure derived from a Definition.
type topology[S any] struct {
	parent   map[string]string
	compound map[string]bool
	table    map[transitionKey]*Transition[S]
	initial  map[string]*Transition[S]
	leaving  map[string]bool
	events   map[string]bool
}

// Validate checks that the definition is well formed and deterministic.
func (d *Definition[S]) Validate() error {
	_, err := d.compile()

	return err
}

// Fingerprint returns a stable hash of the topology and transition table.
// Two definitions with the same fingerprint dispatch identically, given the
// same action implementations.
func (d *Definition[S]) Fingerprint() string {
	var sb strings.Builder

	sb.WriteString(d.Name)
	sb.WriteString("\n")
	sb.WriteString(d.InitialControlState)
	sb.WriteString("\n")

	var writeNode func(node StateNode)

	writeNode = func(node StateNode) {
		sb.WriteString(node.Name)

		if node.IsCompound() {
			sb.WriteString("{")

			for _, child := range node.Children {
				writeNode(child)
				sb.WriteString(",")
			}

			sb.WriteString("}")
		}

		sb.WriteString(";")
	}

	for _, state := range d.States {
		writeNode(state)
	}

	sb.WriteString("\n")
	sb.WriteString(strings.Join(d.Events, ","))
	sb.WriteString("\n")

	for _, t := range d.Transitions {
		sb.WriteString(fmt.Sprintf("%s|%s|%s|%s\n", t.From, t.Event, t.To, t.ActionName))
	}

	return fmt.Sprintf("%016x", xxh3.HashString(sb.String()))
}

// compile validates the definition and builds its lookup structure.
//
//nolint:gocognit,cyclop,funlen // Validation is a flat list of checks
func (d *Definition[S]) compile() (*topology[S], error) {
	if d.Name == "" {
		return nil, invalid(ErrNameRequired)
	}

	if len(d.States) == 0 {
		return nil, invalid(ErrStateRequired)
	}

	topo := &topology[S]{
		parent:   make(map[string]string),
		compound: make(map[string]bool),
		table:    make(map[transitionKey]*Transition[S]),
		initial:  make(map[string]*Transition[S]),
		leaving:  make(map[string]bool),
	}

	// Register states, two levels at most.
	for _, state := range d.States {
		err := topo.addState(state, "")
		if err != nil {
			return nil, invalid(err)
		}

		for _, child := range state.Children {
			if child.IsCompound() {
				return nil, invalid(fmt.Errorf("%w: %s", ErrNestingTooDeep, child.Name))
			}

			err = topo.addState(child, state.Name)
			if err != nil {
				return nil, invalid(err)
			}
		}
	}

	if d.InitialControlState == "" {
		return nil, invalid(ErrInitialStateRequired)
	}

	if !topo.exists(d.InitialControlState) {
		return nil, invalid(fmt.Errorf("%w: %s", ErrInitialStateNotFound, d.InitialControlState))
	}

	if topo.compound[d.InitialControlState] {
		return nil, invalid(fmt.Errorf("%w: %s", ErrInitialStateCompound, d.InitialControlState))
	}

	events := make(map[string]bool, len(d.Events))

	for _, event := range d.Events {
		switch {
		case event == "":
			return nil, invalid(ErrEventNameRequired)
		case event == InitEvent:
			return nil, invalid(fmt.Errorf("%w: %s", ErrReservedEvent, event))
		case events[event]:
			return nil, invalid(fmt.Errorf("%w: %s", ErrDuplicateEvent, event))
		}

		events[event] = true
	}

	topo.events = events

	for i := range d.Transitions {
		transition := &d.Transitions[i]

		fail := func(err error) error {
			return invalid(wrapTransitionError(i, transition.From, transition.Event, err))
		}

		if !topo.exists(transition.From) {
			return nil, fail(fmt.Errorf("%w: %s", ErrTransitionFromNotFound, transition.From))
		}

		if !topo.exists(transition.To) {
			return nil, fail(fmt.Errorf("%w: %s", ErrTransitionToNotFound, transition.To))
		}

		if transition.Event == InitEvent {
			if !topo.compound[transition.From] {
				return nil, fail(ErrInitTransitionFromLeaf)
			}

			if topo.parent[transition.To] != transition.From {
				return nil, fail(fmt.Errorf("%w: %s", ErrInitTransitionTarget, transition.To))
			}

			if _, dup := topo.initial[transition.From]; dup {
				return nil, fail(ErrNondeterministicTransition)
			}

			topo.initial[transition.From] = transition

			continue
		}

		if !events[transition.Event] {
			return nil, fail(fmt.Errorf("%w: %s", ErrTransitionEventNotFound, transition.Event))
		}

		key := transitionKey{state: transition.From, event: transition.Event}
		if _, dup := topo.table[key]; dup {
			return nil, fail(ErrNondeterministicTransition)
		}

		topo.table[key] = transition
		topo.leaving[transition.From] = true
	}

	for name := range topo.compound {
		if _, ok := topo.initial[name]; !ok {
			return nil, invalid(fmt.Errorf("%w: %s", ErrInitTransitionMissing, name))
		}
	}

	return topo, nil
}

func (t *topology[S]) addState(node StateNode, parent string) error {
	if node.Name == "" {
		return ErrStateNameRequired
	}

	if t.exists(node.Name) {
		return fmt.Errorf("%w: %s", ErrDuplicateStateName, node.Name)
	}

	t.parent[node.Name] = parent

	if node.IsCompound() {
		t.compound[node.Name] = true
	}

	return nil
}

func (t *topology[S]) exists(name string) bool {
	_, ok := t.parent[name]

	return ok
}

// lookup finds the transition for event, trying the leaf first and then its
// compound parent. It returns nil when nothing matches.
func (t *topology[S]) lookup(state, event string) *Transition[S] {
	for current := state; current != ""; current = t.parent[current] {
		if transition, ok := t.table[transitionKey{state: current, event: event}]; ok {
			return transition
		}
	}

	return nil
}

// absorbing reports whether no transition leaves state or any of its ancestors.
func (t *topology[S]) absorbing(state string) bool {
	for current := state; current != ""; current = t.parent[current] {
		if t.leaving[current] {
			return false
		}
	}

	return true
}
