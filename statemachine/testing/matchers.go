package testing

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
)

// Matcher errors.
var (
	ErrNoTrace               = errors.New("no events recorded")
	ErrNoMatchersPassed      = errors.New("no matchers passed")
	ErrStateMismatch         = errors.New("state mismatch")
	ErrStateNotVisited       = errors.New("state was not visited")
	ErrTransitionNotTaken    = errors.New("transition was not taken")
	ErrCommandNotEmitted     = errors.New("command was not emitted")
	ErrExtendedKeyNotExist   = errors.New("extended state key does not exist")
	ErrExtendedValueMismatch = errors.New("extended state value mismatch")
)

// Traced is anything that exposes a trace of sent events.
type Traced interface {
	GetTrace() []TraceEntry
}

// Matcher defines an assertion matcher interface.
type Matcher interface {
	Match(traced Traced) (bool, error)
	Description() string
}

// StateWasVisited creates a matcher that checks if a state was entered.
// Compound states are not entered directly, so name a leaf.
func StateWasVisited(name string) Matcher {
	return &stateVisitedMatcher{stateName: name}
}

type stateVisitedMatcher struct {
	stateName string
}

func (m *stateVisitedMatcher) Match(traced Traced) (bool, error) {
	trace := traced.GetTrace()
	if len(trace) > 0 && trace[0].From == m.stateName {
		return true, nil
	}

	for _, entry := range trace {
		if entry.Handled && entry.To == m.stateName {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrStateNotVisited, m.stateName)
}

func (m *stateVisitedMatcher) Description() string {
	return fmt.Sprintf("state '%s' should be visited", m.stateName)
}

// TransitionWasTaken creates a matcher that checks if an event moved the machine from one leaf to another.
func TransitionWasTaken(from, to string) Matcher {
	return &transitionTakenMatcher{from: from, to: to}
}

type transitionTakenMatcher struct {
	from string
	to   string
}

func (m *transitionTakenMatcher) Match(traced Traced) (bool, error) {
	for _, entry := range traced.GetTrace() {
		if entry.Handled && entry.From == m.from && entry.To == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%s' to '%s'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher) Description() string {
	return fmt.Sprintf("transition from '%s' to '%s' should be taken", m.from, m.to)
}

// CommandEmitted creates a matcher that checks a command with the given name was output.
func CommandEmitted(name string) Matcher {
	return &commandEmittedMatcher{name: name}
}

type commandEmittedMatcher struct {
	name string
}

func (m *commandEmittedMatcher) Match(traced Traced) (bool, error) {
	for _, entry := range traced.GetTrace() {
		for _, output := range entry.Outputs {
			if output.Name == m.name {
				return true, nil
			}
		}
	}

	return false, fmt.Errorf("%w: '%s'", ErrCommandNotEmitted, m.name)
}

func (m *commandEmittedMatcher) Description() string {
	return fmt.Sprintf("command '%s' should be emitted", m.name)
}

// ExtendedStateContains creates a matcher that checks an extended-state value after the last event.
func ExtendedStateContains(key string, value any) Matcher {
	return &extendedContainsMatcher{key: key, value: value}
}

type extendedContainsMatcher struct {
	key   string
	value any
}

func (m *extendedContainsMatcher) Match(traced Traced) (bool, error) {
	trace := traced.GetTrace()
	if len(trace) == 0 {
		return false, ErrNoTrace
	}

	actual, exists := trace[len(trace)-1].Extended[m.key]
	if !exists {
		return false, fmt.Errorf("%w: '%s'", ErrExtendedKeyNotExist, m.key)
	}

	if !reflect.DeepEqual(actual, m.value) {
		return false, fmt.Errorf("%w: %s = %v, expected %v", ErrExtendedValueMismatch, m.key, actual, m.value)
	}

	return true, nil
}

func (m *extendedContainsMatcher) Description() string {
	return fmt.Sprintf("extended state should contain %s = %v", m.key, m.value)
}

// StatesVisitedInOrder creates a matcher that checks the leaves entered, in order.
func StatesVisitedInOrder(states ...string) Matcher {
	return &orderMatcher{states: states}
}

type orderMatcher struct {
	states []string
}

func (m *orderMatcher) Match(traced Traced) (bool, error) {
	var visited []string

	for _, entry := range traced.GetTrace() {
		if len(visited) == 0 {
			visited = append(visited, entry.From)
		}

		if entry.Handled {
			visited = append(visited, entry.To)
		}
	}

	if !slices.Equal(visited, m.states) {
		return false, fmt.Errorf("%w: visited %v", ErrTransitionNotTaken, visited)
	}

	return true, nil
}

func (m *orderMatcher) Description() string {
	return fmt.Sprintf("states %v should be visited in order", m.states)
}

// All creates a matcher that requires all sub-matchers to pass.
func All(matchers ...Matcher) Matcher {
	return &allMatcher{matchers: matchers}
}

type allMatcher struct {
	matchers []Matcher
}

func (m *allMatcher) Match(traced Traced) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(traced)
		if !matched || err != nil {
			return false, err
		}
	}

	return true, nil
}

func (m *allMatcher) Description() string {
	return "all matchers should pass"
}

// Any creates a matcher that requires at least one sub-matcher to pass.
func Any(matchers ...Matcher) Matcher {
	return &anyMatcher{matchers: matchers}
}

type anyMatcher struct {
	matchers []Matcher
}

func (m *anyMatcher) Match(traced Traced) (bool, error) {
	for _, matcher := range m.matchers {
		matched, err := matcher.Match(traced)
		if matched && err == nil {
			return true, nil
		}
	}

	return false, ErrNoMatchersPassed
}

func (m *anyMatcher) Description() string {
	return "at least one matcher should pass"
}
