package statemachine

import "slices"

// Builder provides a fluent API for constructing definitions in code.
type Builder[S any] struct {
	def *Definition[S]
}

// NewBuilder creates a new definition builder.
func NewBuilder[S any](name string) *Builder[S] {
	return &Builder[S]{
		def: &Definition[S]{
			Name:                 name,
			InitialExtendedState: ExtendedState{},
			States:               []StateNode{},
			Events:               []string{},
			Transitions:          []Transition[S]{},
			UpdateState:          ShallowMerge,
		},
	}
}

// WithInitialState sets the initial control state.
func (b *Builder[S]) WithInitialState(state string) *Builder[S] {
	b.def.InitialControlState = state

	return b
}

// WithInitialExtendedState sets the extended state a new machine starts with.
func (b *Builder[S]) WithInitialExtendedState(ext ExtendedState) *Builder[S] {
	b.def.InitialExtendedState = ext.Clone()

	return b
}

// WithUpdateState replaces the extended-state update rule.
func (b *Builder[S]) WithUpdateState(update UpdateFunc) *Builder[S] {
	b.def.UpdateState = update

	return b
}

// AddState adds leaf states.
func (b *Builder[S]) AddState(names ...string) *Builder[S] {
	for _, name := range names {
		b.def.States = append(b.def.States, StateNode{Name: name})
	}

	return b
}

// AddCompoundState adds a compound state with the given leaf sub-states.
func (b *Builder[S]) AddCompoundState(name string, children ...string) *Builder[S] {
	node := StateNode{Name: name, Children: make([]StateNode, 0, len(children))}
	for _, child := range children {
		node.Children = append(node.Children, StateNode{Name: child})
	}

	b.def.States = append(b.def.States, node)

	return b
}

// AddEvents declares events.
func (b *Builder[S]) AddEvents(events ...string) *Builder[S] {
	b.def.Events = append(b.def.Events, events...)

	return b
}

// AddTransition adds a transition. action may be nil.
func (b *Builder[S]) AddTransition(from, event, to, actionName string, action ActionFunc[S]) *Builder[S] {
	b.def.Transitions = append(b.def.Transitions, Transition[S]{
		From:       from,
		Event:      event,
		To:         to,
		ActionName: actionName,
		Action:     action,
	})

	return b
}

// AddInitialTransition declares which sub-state a compound state enters first.
func (b *Builder[S]) AddInitialTransition(compound, to, actionName string, action ActionFunc[S]) *Builder[S] {
	return b.AddTransition(compound, InitEvent, to, actionName, action)
}

// Build validates and returns the definition. The builder can keep being used;
// later changes do not affect definitions already built.
func (b *Builder[S]) Build() (*Definition[S], error) {
	def := &Definition[S]{
		Name:                 b.def.Name,
		InitialControlState:  b.def.InitialControlState,
		InitialExtendedState: b.def.InitialExtendedState.Clone(),
		States:               slices.Clone(b.def.States),
		Events:               slices.Clone(b.def.Events),
		Transitions:          slices.Clone(b.def.Transitions),
		UpdateState:          b.def.UpdateState,
	}

	err := def.Validate()
	if err != nil {
		return nil, err
	}

	return def, nil
}
