package testing

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/amp-labs/suspense/statemachine"
)

// LoadTestConfig loads a config from the testdata directory.
func LoadTestConfig(name string) (*statemachine.Config, error) {
	path := filepath.Join("testdata", name)

	return statemachine.LoadConfig(path)
}

// WriteTestConfig marshals config to YAML in a temporary directory and returns its path.
func WriteTestConfig(t testing.TB, config *statemachine.Config) string {
	t.Helper()

	data, err := yaml.Marshal(config)
	require.NoError(t, err, "failed to marshal config")

	path := filepath.Join(t.TempDir(), fmt.Sprintf("%s.yaml", config.Name))
	require.NoError(t, os.WriteFile(path, data, 0o600), "failed to write config")

	return path
}

// CommonTestConfigs provides frequently used test configurations.
var CommonTestConfigs = struct { //nolint:gochecknoglobals
	Toggle   func() *statemachine.Config
	Nested   func() *statemachine.Config
	Absorbed func() *statemachine.Config
}{
	// Toggle flips between two leaves forever.
	Toggle: func() *statemachine.Config {
		return &statemachine.Config{
			Name:                "toggle",
			InitialControlState: "OFF",
			States:              []statemachine.StateNode{{Name: "OFF"}, {Name: "ON"}},
			Events:              []string{"FLIP"},
			Transitions: []statemachine.TransitionConfig{
				{From: "OFF", Event: "FLIP", To: "ON"},
				{From: "ON", Event: "FLIP", To: "OFF"},
			},
		}
	},
	// Nested enters a compound state whose parent-level transition exits from any sub-state.
	Nested: func() *statemachine.Config {
		return &statemachine.Config{
			Name:                "nested",
			InitialControlState: "IDLE",
			States: []statemachine.StateNode{
				{Name: "IDLE"},
				{Name: "WORKING", Children: []statemachine.StateNode{{Name: "STEP_1"}, {Name: "STEP_2"}}},
			},
			Events: []string{"GO", "NEXT", "CANCEL"},
			Transitions: []statemachine.TransitionConfig{
				{From: "IDLE", Event: "GO", To: "WORKING"},
				{From: "WORKING", Event: statemachine.InitEvent, To: "STEP_1"},
				{From: "STEP_1", Event: "NEXT", To: "STEP_2"},
				{From: "WORKING", Event: "CANCEL", To: "IDLE"},
			},
		}
	},
	// Absorbed reaches a state nothing leaves.
	Absorbed: func() *statemachine.Config {
		return &statemachine.Config{
			Name:                "absorbed",
			InitialControlState: "OPEN",
			States:              []statemachine.StateNode{{Name: "OPEN"}, {Name: "CLOSED"}},
			Events:              []string{"CLOSE"},
			Transitions: []statemachine.TransitionConfig{
				{From: "OPEN", Event: "CLOSE", To: "CLOSED", Action: "noop"},
			},
		}
	},
}
