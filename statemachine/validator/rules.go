package validator

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"github.com/amp-labs/suspense/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a config for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(config *statemachine.Config) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&structureRule{},
		&unreachableStateRule{},
		&unusedEventRule{},
		&namingConventionRule{},
		&absorbingStateRule{},
	}
}

// WithActions returns the default rules plus a check that every action named
// by a transition is one of known.
func WithActions(known []string) []Rule {
	return append(DefaultRules(), &unknownActionRule{known: known})
}

// structureRule runs the definition checks a machine is constructed with.
type structureRule struct{}

func (r *structureRule) Name() string {
	return "Structure"
}

func (r *structureRule) Severity() Severity {
	return SeverityError
}

func (r *structureRule) Check(config *statemachine.Config) RuleResult {
	def := &statemachine.Definition[struct{}]{
		Name:                config.Name,
		InitialControlState: config.InitialControlState,
		States:              config.States,
		Events:              config.Events,
		Transitions:         make([]statemachine.Transition[struct{}], 0, len(config.Transitions)),
	}

	for _, tc := range config.Transitions {
		def.Transitions = append(def.Transitions, statemachine.Transition[struct{}]{
			From:       tc.From,
			Event:      tc.Event,
			To:         tc.To,
			ActionName: tc.Action,
		})
	}

	err := def.Validate()
	if err == nil {
		return RuleResult{}
	}

	issue := ValidationError{
		Code:    "INVALID_DEFINITION",
		Message: err.Error(),
	}

	var transitionErr *statemachine.TransitionError
	if errors.As(err, &transitionErr) {
		issue.Location = Location{
			State:      transitionErr.From,
			Event:      transitionErr.Event,
			Transition: transitionErr.Index + 1,
		}

		if errors.Is(err, statemachine.ErrTransitionEventNotFound) {
			issue.Fix = DeclareEvent(transitionErr.Event)
		}
	}

	return RuleResult{Errors: []ValidationError{issue}}
}

// unreachableStateRule checks for states that cannot be reached from the initial state.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityError
}

func (r *unreachableStateRule) Check(config *statemachine.Config) RuleResult {
	var errs []ValidationError

	g := newGraph(config)
	reachable := g.reachable(config.InitialControlState)

	g.eachState(func(name, _ string) {
		if reachable[name] {
			return
		}

		errs = append(errs, ValidationError{
			Code:     "UNREACHABLE_STATE",
			Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", name, config.InitialControlState),
			Location: Location{State: name},
			Fix:      RemoveUnreachableState(name),
		})
	})

	return RuleResult{Errors: errs}
}

// unusedEventRule warns about declared events no transition is triggered by.
type unusedEventRule struct{}

func (r *unusedEventRule) Name() string {
	return "UnusedEvent"
}

func (r *unusedEventRule) Severity() Severity {
	return SeverityWarning
}

func (r *unusedEventRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	used := make(map[string]bool)
	for _, transition := range config.Transitions {
		used[transition.Event] = true
	}

	for _, event := range config.Events {
		if used[event] {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "UNUSED_EVENT",
			Message:  fmt.Sprintf("Event '%s' is declared but never triggers a transition", event),
			Location: Location{Event: event},
			Fix:      RemoveEvent(event),
		})
	}

	return RuleResult{Warnings: warnings}
}

// namingConventionRule warns about state and event names that are not SCREAMING_SNAKE_CASE.
type namingConventionRule struct{}

func (r *namingConventionRule) Name() string {
	return "NamingConvention"
}

func (r *namingConventionRule) Severity() Severity {
	return SeverityWarning
}

func (r *namingConventionRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	newGraph(config).eachState(func(name, _ string) {
		if isScreamingSnakeCase(name) {
			return
		}

		suggested := toScreamingSnakeCase(name)

		warnings = append(warnings, ValidationWarning{
			Code:     "NAMING_CONVENTION",
			Message:  fmt.Sprintf("State '%s' should use SCREAMING_SNAKE_CASE naming (suggested: '%s')", name, suggested),
			Location: Location{State: name},
			Fix:      RenameState(name, suggested),
		})
	})

	for _, event := range config.Events {
		if isScreamingSnakeCase(event) {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code: "NAMING_CONVENTION",
			Message: fmt.Sprintf("Event '%s' should use SCREAMING_SNAKE_CASE naming (suggested: '%s')",
				event, toScreamingSnakeCase(event)),
			Location: Location{Event: event},
		})
	}

	return RuleResult{Warnings: warnings}
}

// absorbingStateRule warns when no reachable leaf is absorbing, so the machine never settles.
type absorbingStateRule struct{}

func (r *absorbingStateRule) Name() string {
	return "AbsorbingState"
}

func (r *absorbingStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *absorbingStateRule) Check(config *statemachine.Config) RuleResult {
	g := newGraph(config)
	reachable := g.reachable(config.InitialControlState)

	found := false

	g.eachState(func(name, _ string) {
		if reachable[name] && !g.compound[name] && g.absorbing(name) {
			found = true
		}
	})

	if found {
		return RuleResult{}
	}

	return RuleResult{Warnings: []ValidationWarning{{
		Code:    "NO_ABSORBING_STATE",
		Message: "No reachable state is absorbing; the machine never settles",
	}}}
}

// unknownActionRule checks that transitions only name registered actions.
type unknownActionRule struct {
	known []string
}

func (r *unknownActionRule) Name() string {
	return "UnknownAction"
}

func (r *unknownActionRule) Severity() Severity {
	return SeverityError
}

func (r *unknownActionRule) Check(config *statemachine.Config) RuleResult {
	var errs []ValidationError

	for i, transition := range config.Transitions {
		if transition.Action == "" || slices.Contains(r.known, transition.Action) {
			continue
		}

		errs = append(errs, ValidationError{
			Code:    "UNKNOWN_ACTION",
			Message: fmt.Sprintf("Transition %d names unknown action '%s'", i, transition.Action),
			Location: Location{
				State:      transition.From,
				Event:      transition.Event,
				Transition: i + 1,
			},
		})
	}

	return RuleResult{Errors: errs}
}

// graph is a lenient view of a config's topology that tolerates invalid input.
type graph struct {
	config   *statemachine.Config
	parent   map[string]string
	compound map[string]bool
	initial  map[string]string
	edges    map[string][]string
}

func newGraph(config *statemachine.Config) *graph {
	g := &graph{
		config:   config,
		parent:   make(map[string]string),
		compound: make(map[string]bool),
		initial:  make(map[string]string),
		edges:    make(map[string][]string),
	}

	for _, state := range config.States {
		if state.IsCompound() {
			g.compound[state.Name] = true
		}

		for _, child := range state.Children {
			g.parent[child.Name] = state.Name
		}
	}

	for _, transition := range config.Transitions {
		if transition.Event == statemachine.InitEvent {
			g.initial[transition.From] = transition.To

			continue
		}

		g.edges[transition.From] = append(g.edges[transition.From], transition.To)
	}

	return g
}

// eachState visits top-level states and their sub-states in declaration order.
func (g *graph) eachState(visit func(name, parent string)) {
	for _, state := range g.config.States {
		visit(state.Name, "")

		for _, child := range state.Children {
			visit(child.Name, state.Name)
		}
	}
}

// reachable returns every state the machine can occupy starting from initial.
// A compound state is reachable when one of its sub-states is.
func (g *graph) reachable(initial string) map[string]bool {
	reachable := make(map[string]bool)
	queue := []string{}

	enter := func(state string) {
		seen := make(map[string]bool)

		for g.compound[state] && !seen[state] {
			seen[state] = true
			reachable[state] = true

			next, ok := g.initial[state]
			if !ok {
				return
			}

			state = next
		}

		if !reachable[state] {
			reachable[state] = true
			queue = append(queue, state)
		}
	}

	if initial != "" {
		enter(initial)
	}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if p := g.parent[current]; p != "" {
			reachable[p] = true
		}

		for state := current; state != ""; state = g.parent[state] {
			for _, to := range g.edges[state] {
				enter(to)
			}
		}
	}

	return reachable
}

func (g *graph) absorbing(state string) bool {
	for current := state; current != ""; current = g.parent[current] {
		if len(g.edges[current]) > 0 {
			return false
		}
	}

	return true
}

// Helper functions

func isScreamingSnakeCase(s string) bool {
	if s == "" {
		return false
	}

	for _, r := range s {
		if !unicode.IsUpper(r) && !unicode.IsDigit(r) && r != '_' {
			return false
		}
	}

	return true
}

func toScreamingSnakeCase(s string) string {
	var sb strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ':
			sb.WriteRune('_')
		case unicode.IsUpper(r) && i > 0 && unicode.IsLower(runes[i-1]):
			sb.WriteRune('_')
			sb.WriteRune(r)
		default:
			sb.WriteRune(unicode.ToUpper(r))
		}
	}

	return sb.String()
}
