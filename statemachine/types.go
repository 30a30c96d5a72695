package statemachine

// InitEvent is the reserved event dispatched internally when a transition lands
// on a compound state. Its transition picks the sub-state actually entered.
// Drivers never send it; if they do, it is ignored.
const InitEvent = "init"

// ExtendedState is the auxiliary data carried alongside the control state.
type ExtendedState map[string]any

// Event is an input to the machine, optionally carrying a payload.
type Event struct {
	Name string
	Data any
}

// NewEvent creates an event with the given name and payload.
func NewEvent(name string, data any) Event {
	return Event{Name: name, Data: data}
}

// Command is an effect description emitted by an action. The driver executes it.
type Command struct {
	Name   string
	Params any
}

// ActionResult is what an action produces: extended-state fragments to fold in,
// and commands for the driver. Both may be empty.
type ActionResult struct {
	Updates []ExtendedState
	Outputs []Command
}

// NoOutput is the empty action result.
var NoOutput = ActionResult{} //nolint:gochecknoglobals

// ActionFunc computes the result of a transition from the extended state, the
// triggering event payload and the read-only machine settings.
type ActionFunc[S any] func(ext ExtendedState, data any, settings S) ActionResult

// UpdateFunc folds update fragments onto the extended state.
type UpdateFunc func(ext ExtendedState, updates []ExtendedState) ExtendedState

// Transition maps (From, Event) to To, running Action on the way.
type Transition[S any] struct {
	From       string
	Event      string
	To         string
	ActionName string
	Action     ActionFunc[S]
}

// StateNode declares a control state. A node with children is compound.
type StateNode struct {
	Name     string      `json:"name"               yaml:"name"`
	Children []StateNode `json:"children,omitempty" yaml:"children,omitempty"`
}

// IsCompound reports whether the node has sub-states.
func (n StateNode) IsCompound() bool {
	return len(n.Children) > 0
}

// Step records one processed event in the control-state trajectory.
type Step struct {
	From  string
	Event string
	To    string
}
