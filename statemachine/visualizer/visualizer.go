// Package visualizer generates Mermaid state diagrams from machine configurations.
package visualizer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/amp-labs/suspense/statemachine"
)

// Visualizer errors.
var (
	ErrConfigNil      = errors.New("config cannot be nil")
	ErrNoInitialState = errors.New("config must have an initial state")
)

// GenerateMermaid converts a Config to a Mermaid state diagram.
func GenerateMermaid(config *statemachine.Config) (string, error) {
	return GenerateMermaidWithOptions(config, DefaultOptions())
}

// GenerateMermaidFromFile loads a config from a file and generates a Mermaid diagram.
func GenerateMermaidFromFile(path string) (string, error) {
	config, err := statemachine.LoadConfig(path)
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}

	return GenerateMermaid(config)
}

// GenerateMermaidWithOptions generates a Mermaid diagram with custom options.
// Compound states are drawn as nested blocks whose [*] arrow is the init
// transition. Absorbing leaves get an arrow to the final pseudo-state.
//
//nolint:cyclop,funlen // Rendering is a flat sequence of sections
func GenerateMermaidWithOptions(config *statemachine.Config, opts Options) (string, error) {
	if config == nil {
		return "", ErrConfigNil
	}

	if config.InitialControlState == "" {
		return "", ErrNoInitialState
	}

	parent := make(map[string]string)
	leaving := make(map[string]bool)
	initial := make(map[string]statemachine.TransitionConfig)

	for _, state := range config.States {
		for _, child := range state.Children {
			parent[child.Name] = state.Name
		}
	}

	for _, transition := range config.Transitions {
		if transition.Event == statemachine.InitEvent {
			initial[transition.From] = transition

			continue
		}

		leaving[transition.From] = true
	}

	absorbing := func(name string) bool {
		for current := name; current != ""; current = parent[current] {
			if leaving[current] {
				return false
			}
		}

		return true
	}

	highlightMap := make(map[string]bool, len(opts.HighlightPath))
	for _, state := range opts.HighlightPath {
		highlightMap[state] = true
	}

	var sb strings.Builder

	if opts.Fenced {
		sb.WriteString("```mermaid\n")
	}

	sb.WriteString("stateDiagram-v2\n")

	if opts.Direction != "" {
		sb.WriteString(fmt.Sprintf("    direction %s\n", opts.Direction))
	}

	sb.WriteString(fmt.Sprintf("    [*] --> %s\n", config.InitialControlState))

	// Transitions between siblings of one compound are drawn inside its block.
	internal := func(t statemachine.TransitionConfig) string {
		if p := parent[t.From]; p != "" && p == parent[t.To] {
			return p
		}

		return ""
	}

	for _, state := range config.States {
		if !state.IsCompound() {
			continue
		}

		sb.WriteString(fmt.Sprintf("    state %s {\n", state.Name))

		if entry, ok := initial[state.Name]; ok {
			sb.WriteString(fmt.Sprintf("        [*] --> %s%s\n", entry.To, label(entry, opts)))
		}

		for _, transition := range config.Transitions {
			if transition.Event != statemachine.InitEvent && internal(transition) == state.Name {
				sb.WriteString(fmt.Sprintf("        %s --> %s%s\n", transition.From, transition.To, label(transition, opts)))
			}
		}

		sb.WriteString("    }\n")
	}

	for _, transition := range config.Transitions {
		if transition.Event == statemachine.InitEvent || internal(transition) != "" {
			continue
		}

		sb.WriteString(fmt.Sprintf("    %s --> %s%s\n", transition.From, transition.To, label(transition, opts)))
	}

	var finals, highlighted []string

	for _, state := range config.States {
		names := []string{state.Name}
		if state.IsCompound() {
			names = names[:0]
			for _, child := range state.Children {
				names = append(names, child.Name)
			}
		}

		for _, name := range names {
			if absorbing(name) {
				sb.WriteString(fmt.Sprintf("    %s --> [*]\n", name))

				finals = append(finals, name)
			}

			if highlightMap[name] {
				highlighted = append(highlighted, name)
			}
		}

		if state.IsCompound() && highlightMap[state.Name] {
			highlighted = append(highlighted, state.Name)
		}
	}

	sb.WriteString("\n")
	sb.WriteString("    classDef finalState fill:#c8e6c9,stroke:#2e7d32,stroke-width:2px\n")
	sb.WriteString("    classDef highlighted fill:#fff9c4,stroke:#f57f17,stroke-width:3px\n")

	if len(finals) > 0 {
		sb.WriteString(fmt.Sprintf("    class %s finalState\n", strings.Join(finals, ",")))
	}

	if len(highlighted) > 0 {
		sb.WriteString(fmt.Sprintf("    class %s highlighted\n", strings.Join(highlighted, ",")))
	}

	if opts.Fenced {
		sb.WriteString("```\n")
	}

	return sb.String(), nil
}

func label(transition statemachine.TransitionConfig, opts Options) string {
	text := transition.Event
	if transition.Event == statemachine.InitEvent {
		text = ""
	}

	if opts.ShowActions && transition.Action != "" {
		if text == "" {
			text = "/ " + transition.Action
		} else {
			text += " / " + transition.Action
		}
	}

	if text == "" {
		return ""
	}

	return ": " + text
}
