package suspense

import (
	_ "embed"
	"fmt"
	"log/slog"
	"sync"

	"github.com/amp-labs/suspense/statemachine"
	"github.com/amp-labs/suspense/statemachine/actions"
)

// Name is the definition name, also used as its config loader name.
const Name = "suspense"

//go:embed suspense.yaml
var definitionYAML []byte

// Machine is a suspense state machine instance.
type Machine = statemachine.Machine[Settings]

//nolint:gochecknoglobals
var compiled = sync.OnceValues(func() (*statemachine.Definition[Settings], error) {
	config, err := Config()
	if err != nil {
		return nil, err
	}

	return statemachine.Compile(config, Actions())
})

// YAML returns the embedded definition source.
func YAML() []byte {
	return append([]byte(nil), definitionYAML...)
}

// Config parses the embedded definition. Each call returns a fresh copy.
func Config() (*statemachine.Config, error) {
	config, err := statemachine.LoadConfigFromBytes(definitionYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded suspense definition: %w", err)
	}

	return config, nil
}

// Definition returns the compiled suspense definition. It is shared by all
// machines and must not be modified.
func Definition() (*statemachine.Definition[Settings], error) {
	return compiled()
}

// New returns a machine in INIT configured with settings.
func New(settings Settings, opts ...statemachine.Option) (*Machine, error) {
	def, err := Definition()
	if err != nil {
		return nil, err
	}

	return statemachine.NewMachine(def, settings, opts...)
}

// NewTraced returns a machine whose actions are recorded on tracer and logged
// at debug level to log. It compiles a private definition.
func NewTraced(
	settings Settings,
	tracer *actions.ActionTracer,
	log *slog.Logger,
	opts ...statemachine.Option,
) (*Machine, error) {
	config, err := Config()
	if err != nil {
		return nil, err
	}

	factory := Actions().Wrap(func(name string, action statemachine.ActionFunc[Settings]) statemachine.ActionFunc[Settings] {
		return actions.Trace(tracer, name, actions.Logged(log, name, action))
	})

	def, err := statemachine.Compile(config, factory)
	if err != nil {
		return nil, err
	}

	return statemachine.NewMachine(def, settings, opts...)
}

// Loader serves the embedded definition by name through statemachine.LoadConfig.
type Loader struct{}

var _ statemachine.ConfigLoader = Loader{}

// LoadByName returns the YAML for name.
func (Loader) LoadByName(name string) ([]byte, error) {
	if name != Name {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, name)
	}

	return YAML(), nil
}

// ListAvailable lists the definitions the loader serves.
func (Loader) ListAvailable() []string {
	return []string{Name}
}
