package statemachine

import (
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigLoader is an interface for loading configurations by name.
// Applications can implement this to provide embedded or custom config loading.
type ConfigLoader interface {
	LoadByName(name string) ([]byte, error)
	ListAvailable() []string
}

var (
	// defaultConfigLoader is the global config loader used by LoadConfig.
	// Applications can set this to provide embedded configs.
	defaultConfigLoader ConfigLoader //nolint:gochecknoglobals
)

// SetConfigLoader sets the default config loader for name-based loading.
func SetConfigLoader(loader ConfigLoader) {
	defaultConfigLoader = loader
}

// Config is the serialized form of a Definition. Actions are referenced by name
// and resolved through an ActionFactory when compiling.
type Config struct {
	Name                 string             `json:"name"                           yaml:"name"`
	InitialControlState  string             `json:"initialControlState"            yaml:"initialControlState"`
	InitialExtendedState map[string]any     `json:"initialExtendedState,omitempty" yaml:"initialExtendedState,omitempty"`
	States               []StateNode        `json:"states"                         yaml:"states"`
	Events               []string           `json:"events"                         yaml:"events"`
	Transitions          []TransitionConfig `json:"transitions"                    yaml:"transitions"`
}

// TransitionConfig defines the configuration for a transition.
// An empty Action means the transition runs no action.
type TransitionConfig struct {
	From   string `json:"from"             yaml:"from"`
	Event  string `json:"event"            yaml:"event"`
	To     string `json:"to"               yaml:"to"`
	Action string `json:"action,omitempty" yaml:"action,omitempty"`
}

// LoadConfig loads a machine configuration by path or name.
// Supports two modes:
//   - Path mode: Pass a file path (containing '/', '\', or ending in '.yaml'/'.yml')
//     Example: LoadConfig("testdata/suspense.yaml")
//   - Name mode: Pass a bare name to load via the registered ConfigLoader
//     Example: LoadConfig("suspense")
func LoadConfig(pathOrName string) (*Config, error) {
	lower := strings.ToLower(pathOrName)

	isPath := strings.Contains(pathOrName, "/") ||
		strings.Contains(pathOrName, `\`) ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml")

	if isPath {
		data, err := os.ReadFile(pathOrName) //nolint:gosec // Intentional path-based loading
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %q: %w", pathOrName, err)
		}

		return LoadConfigFromBytes(data)
	}

	if defaultConfigLoader == nil {
		return nil, ErrNoConfigLoader
	}

	data, err := defaultConfigLoader.LoadByName(pathOrName)
	if err != nil {
		available := defaultConfigLoader.ListAvailable()

		return nil, fmt.Errorf("failed to load config %q (available: %v): %w", pathOrName, available, err)
	}

	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses a machine configuration from YAML bytes.
// The topology is checked when the config is compiled.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var config Config

	err := yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if config.Name == "" {
		return nil, invalid(ErrNameRequired)
	}

	return &config, nil
}

// LoadConfigFromFS loads a configuration from an embedded filesystem.
func LoadConfigFromFS(fsys fs.FS, path string) (*Config, error) {
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config from FS: %w", err)
	}

	return LoadConfigFromBytes(data)
}

// Compile resolves the config's action names through factory and returns a
// validated Definition. The returned definition uses ShallowMerge.
func Compile[S any](config *Config, factory *ActionFactory[S]) (*Definition[S], error) {
	if config == nil {
		return nil, invalid(ErrConfigNil)
	}

	if factory == nil {
		factory = NewActionFactory[S]()
	}

	def := &Definition[S]{
		Name:                 config.Name,
		InitialControlState:  config.InitialControlState,
		InitialExtendedState: ExtendedState(config.InitialExtendedState),
		States:               config.States,
		Events:               config.Events,
		Transitions:          make([]Transition[S], 0, len(config.Transitions)),
		UpdateState:          ShallowMerge,
	}

	for i, tc := range config.Transitions {
		transition := Transition[S]{
			From:       tc.From,
			Event:      tc.Event,
			To:         tc.To,
			ActionName: tc.Action,
		}

		if tc.Action != "" {
			action, err := factory.Lookup(tc.Action)
			if err != nil {
				return nil, wrapTransitionError(i, tc.From, tc.Event, err)
			}

			transition.Action = action
		}

		def.Transitions = append(def.Transitions, transition)
	}

	err := def.Validate()
	if err != nil {
		return nil, err
	}

	return def, nil
}

// ToConfig converts a definition back to its serialized form.
func (d *Definition[S]) ToConfig() *Config {
	config := &Config{
		Name:                 d.Name,
		InitialControlState:  d.InitialControlState,
		InitialExtendedState: d.InitialExtendedState.Clone(),
		States:               d.States,
		Events:               d.Events,
		Transitions:          make([]TransitionConfig, 0, len(d.Transitions)),
	}

	if len(config.InitialExtendedState) == 0 {
		config.InitialExtendedState = nil
	}

	for _, t := range d.Transitions {
		config.Transitions = append(config.Transitions, TransitionConfig{
			From:   t.From,
			Event:  t.Event,
			To:     t.To,
			Action: t.ActionName,
		})
	}

	return config
}
