// Package validator provides validation and auto-fixing for state machine configurations.
package validator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/suspense/statemachine"
)

var (
	// ErrStateNotFound is returned when attempting to remove a state that doesn't exist.
	ErrStateNotFound = errors.New("state not found")
	// ErrStateAlreadyExists is returned when attempting to rename to an existing state name.
	ErrStateAlreadyExists = errors.New("state already exists")
	// ErrEventNotFound is returned when attempting to remove an event that doesn't exist.
	ErrEventNotFound = errors.New("event not found")
	// ErrEventAlreadyDeclared is returned when declaring an event twice.
	ErrEventAlreadyDeclared = errors.New("event already declared")
)

// Fix represents an automatic fix for a validation issue.
type Fix struct {
	Description string
	Apply       func(config *statemachine.Config) error
}

// RemoveUnreachableState creates a fix that removes a state, its sub-states
// and every transition touching them.
func RemoveUnreachableState(stateName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unreachable state '%s'", stateName),
		Apply: func(config *statemachine.Config) error {
			removed := map[string]bool{}
			states := make([]statemachine.StateNode, 0, len(config.States))

			for _, state := range config.States {
				if state.Name == stateName {
					removed[state.Name] = true

					for _, child := range state.Children {
						removed[child.Name] = true
					}

					continue
				}

				if i := slices.IndexFunc(state.Children, func(c statemachine.StateNode) bool {
					return c.Name == stateName
				}); i >= 0 {
					removed[stateName] = true
					state.Children = slices.Delete(slices.Clone(state.Children), i, i+1)
				}

				states = append(states, state)
			}

			if !removed[stateName] {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, stateName)
			}

			config.States = states
			config.Transitions = slices.DeleteFunc(config.Transitions, func(t statemachine.TransitionConfig) bool {
				return removed[t.From] || removed[t.To]
			})

			return nil
		},
	}
}

// RenameState creates a fix that renames a state everywhere it is referenced.
func RenameState(oldName, newName string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Rename state from '%s' to '%s'", oldName, newName),
		Apply: func(config *statemachine.Config) error {
			var target *statemachine.StateNode

			for i := range config.States {
				state := &config.States[i]

				for j := range state.Children {
					switch state.Children[j].Name {
					case newName:
						return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
					case oldName:
						target = &state.Children[j]
					}
				}

				switch state.Name {
				case newName:
					return fmt.Errorf("%w: '%s'", ErrStateAlreadyExists, newName)
				case oldName:
					target = state
				}
			}

			if target == nil {
				return fmt.Errorf("%w: '%s'", ErrStateNotFound, oldName)
			}

			target.Name = newName

			if config.InitialControlState == oldName {
				config.InitialControlState = newName
			}

			for i, t := range config.Transitions {
				if t.From == oldName {
					config.Transitions[i].From = newName
				}

				if t.To == oldName {
					config.Transitions[i].To = newName
				}
			}

			return nil
		},
	}
}

// DeclareEvent creates a fix that adds an event to the declared events.
func DeclareEvent(event string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Declare event '%s'", event),
		Apply: func(config *statemachine.Config) error {
			if slices.Contains(config.Events, event) {
				return fmt.Errorf("%w: '%s'", ErrEventAlreadyDeclared, event)
			}

			config.Events = append(config.Events, event)

			return nil
		},
	}
}

// RemoveEvent creates a fix that removes an unused event declaration.
func RemoveEvent(event string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove unused event '%s'", event),
		Apply: func(config *statemachine.Config) error {
			i := slices.Index(config.Events, event)
			if i < 0 {
				return fmt.Errorf("%w: '%s'", ErrEventNotFound, event)
			}

			config.Events = slices.Delete(config.Events, i, i+1)

			return nil
		},
	}
}

// ApplyFixes applies every available fix in result to config and returns how
// many succeeded. Fixes that fail are skipped and their errors joined.
func ApplyFixes(config *statemachine.Config, result ValidationResult) (int, error) {
	var (
		applied int
		errs    []error
	)

	fixes := make([]*Fix, 0, len(result.Errors)+len(result.Warnings))

	for _, issue := range result.Errors {
		fixes = append(fixes, issue.Fix)
	}

	for _, issue := range result.Warnings {
		fixes = append(fixes, issue.Fix)
	}

	for _, fix := range fixes {
		if fix == nil || fix.Apply == nil {
			continue
		}

		if err := fix.Apply(config); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", fix.Description, err))

			continue
		}

		applied++
	}

	return applied, errors.Join(errs...)
}
