package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrInvalidDefinition is the root of every definition validation failure.
	ErrInvalidDefinition = errors.New("invalid definition")
	// ErrNameRequired indicates that a definition name is required.
	ErrNameRequired = errors.New("definition name is required")
	// ErrStateRequired indicates that at least one state is required.
	ErrStateRequired = errors.New("at least one state is required")
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrDuplicateStateName indicates that a duplicate state name was found.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrNestingTooDeep indicates that a compound state contains another compound state.
	ErrNestingTooDeep = errors.New("compound states may only contain leaf states")
	// ErrInitialStateRequired indicates that an initial control state is required.
	ErrInitialStateRequired = errors.New("initial control state is required")
	// ErrInitialStateNotFound indicates that the initial control state does not exist.
	ErrInitialStateNotFound = errors.New("initial control state does not exist")
	// ErrInitialStateCompound indicates that the initial control state is compound.
	ErrInitialStateCompound = errors.New("initial control state must be a leaf state")
	// ErrEventNameRequired indicates that an event name is empty.
	ErrEventNameRequired = errors.New("event name is required")
	// ErrDuplicateEvent indicates that an event is declared twice.
	ErrDuplicateEvent = errors.New("duplicate event")
	// ErrReservedEvent indicates that the reserved init event was declared as a regular event.
	ErrReservedEvent = errors.New("event name is reserved")
	// ErrTransitionFromNotFound indicates that a transition source does not exist.
	ErrTransitionFromNotFound = errors.New("transition from state does not exist")
	// ErrTransitionToNotFound indicates that a transition target does not exist.
	ErrTransitionToNotFound = errors.New("transition to state does not exist")
	// ErrTransitionEventNotFound indicates that a transition is triggered by an undeclared event.
	ErrTransitionEventNotFound = errors.New("transition event is not declared")
	// ErrNondeterministicTransition indicates two transitions sharing source and event.
	ErrNondeterministicTransition = errors.New("more than one transition for the same state and event")
	// ErrInitTransitionFromLeaf indicates an init transition declared on a leaf state.
	ErrInitTransitionFromLeaf = errors.New("init transitions may only leave compound states")
	// ErrInitTransitionTarget indicates an init transition targeting a state outside its compound.
	ErrInitTransitionTarget = errors.New("init transition must target a direct sub-state")
	// ErrInitTransitionMissing indicates a compound state without an init transition.
	ErrInitTransitionMissing = errors.New("compound state has no init transition")

	// ErrConfigNil indicates that a nil config was compiled.
	ErrConfigNil = errors.New("config cannot be nil")
	// ErrUnknownAction indicates that a config names an action the factory does not know.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNoConfigLoader indicates that no config loader is registered.
	ErrNoConfigLoader = errors.New("no config loader registered; use SetConfigLoader() or provide a file path")
)

// TransitionError wraps an error with transition context.
type TransitionError struct {
	Index int
	From  string
	Event string
	Err   error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transition %d (%s on %s): %v", e.Index, e.From, e.Event, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// wrapTransitionError wraps an error with transition context.
func wrapTransitionError(index int, from, event string, err error) error {
	if err == nil {
		return nil
	}

	return &TransitionError{
		Index: index,
		From:  from,
		Event: event,
		Err:   err,
	}
}

// invalid marks err as a definition validation failure.
func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidDefinition, err)
}
