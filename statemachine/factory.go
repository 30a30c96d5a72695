package statemachine

import (
	"fmt"
	"slices"
	"sync"
)

// ActionFactory resolves action names used in configuration to action functions.
// Applications register their actions before compiling a Config.
type ActionFactory[S any] struct {
	mu      sync.RWMutex
	actions map[string]ActionFunc[S]
}

// NewActionFactory creates a new action factory with the built-in "noop" action.
func NewActionFactory[S any]() *ActionFactory[S] {
	factory := &ActionFactory[S]{
		actions: make(map[string]ActionFunc[S]),
	}

	factory.Register("noop", noopAction[S])

	return factory
}

// Register binds an action name to an action function, replacing any previous binding.
func (f *ActionFactory[S]) Register(name string, action ActionFunc[S]) *ActionFactory[S] {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.actions[name] = action

	return f
}

// Lookup returns the action registered under name.
func (f *ActionFactory[S]) Lookup(name string) (ActionFunc[S], error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	action, ok := f.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, name)
	}

	return action, nil
}

// Names returns the registered action names, sorted.
func (f *ActionFactory[S]) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	names := make([]string, 0, len(f.actions))
	for name := range f.actions {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// Wrap returns a new factory holding every action passed through wrap.
func (f *ActionFactory[S]) Wrap(wrap func(name string, action ActionFunc[S]) ActionFunc[S]) *ActionFactory[S] {
	f.mu.RLock()
	defer f.mu.RUnlock()

	wrapped := &ActionFactory[S]{
		actions: make(map[string]ActionFunc[S], len(f.actions)),
	}

	for name, action := range f.actions {
		wrapped.actions[name] = wrap(name, action)
	}

	return wrapped
}

// noopAction produces no updates and no outputs.
func noopAction[S any](_ ExtendedState, _ any, _ S) ActionResult {
	return NoOutput
}
