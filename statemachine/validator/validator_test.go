package validator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/suspense/statemachine"
)

func loaderConfig() *statemachine.Config {
	return &statemachine.Config{
		Name:                "loader",
		InitialControlState: "INIT",
		States: []statemachine.StateNode{
			{Name: "INIT"},
			{Name: "SUSPENSE", Children: []statemachine.StateNode{{Name: "PENDING"}, {Name: "SPINNING"}}},
			{Name: "ERROR"},
			{Name: "DONE"},
		},
		Events: []string{"START", "TIMER_EXPIRED", "SUCCEEDED", "FAILED"},
		Transitions: []statemachine.TransitionConfig{
			{From: "INIT", Event: "START", To: "SUSPENSE", Action: "runOperation"},
			{From: "SUSPENSE", Event: statemachine.InitEvent, To: "PENDING", Action: "startTimer"},
			{From: "PENDING", Event: "TIMER_EXPIRED", To: "SPINNING", Action: "renderFallback"},
			{From: "SUSPENSE", Event: "SUCCEEDED", To: "DONE", Action: "renderSucceeded"},
			{From: "SUSPENSE", Event: "FAILED", To: "ERROR", Action: "renderError"},
		},
	}
}

func codes[T ValidationError | ValidationWarning](issues []T) []string {
	out := make([]string, 0, len(issues))

	for _, issue := range issues {
		switch v := any(issue).(type) {
		case ValidationError:
			out = append(out, v.Code)
		case ValidationWarning:
			out = append(out, v.Code)
		}
	}

	return out
}

func TestValidateLoader(t *testing.T) {
	t.Parallel()

	result := Validate(loaderConfig())

	assert.True(t, result.Valid)
	assert.False(t, result.HasErrors())
	assert.False(t, result.HasWarnings())
	assert.Contains(t, result.String(), "Configuration is valid")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		mutate       func(c *statemachine.Config)
		wantValid    bool
		wantErrors   []string
		wantWarnings []string
	}{
		{
			name: "unreachable state",
			mutate: func(c *statemachine.Config) {
				c.States = append(c.States, statemachine.StateNode{Name: "ORPHAN"})
				c.Transitions = append(c.Transitions, statemachine.TransitionConfig{From: "ORPHAN", Event: "START", To: "DONE"})
			},
			wantErrors: []string{"UNREACHABLE_STATE"},
		},
		{
			name: "unreachable sub-state",
			mutate: func(c *statemachine.Config) {
				c.Transitions = c.Transitions[:2]
				c.Transitions = append(c.Transitions,
					statemachine.TransitionConfig{From: "SUSPENSE", Event: "SUCCEEDED", To: "DONE"},
					statemachine.TransitionConfig{From: "SUSPENSE", Event: "FAILED", To: "ERROR"},
				)
				c.Events = []string{"START", "SUCCEEDED", "FAILED"}
			},
			wantErrors: []string{"UNREACHABLE_STATE"},
		},
		{
			name: "structural error",
			mutate: func(c *statemachine.Config) {
				c.Transitions = append(c.Transitions, statemachine.TransitionConfig{From: "DONE", Event: "RESET", To: "INIT"})
			},
			wantErrors: []string{"INVALID_DEFINITION"},
		},
		{
			name: "unused event",
			mutate: func(c *statemachine.Config) {
				c.Events = append(c.Events, "CANCEL")
			},
			wantValid:    true,
			wantWarnings: []string{"UNUSED_EVENT"},
		},
		{
			name: "naming convention",
			mutate: func(c *statemachine.Config) {
				c.States[2].Name = "failed"
				c.Transitions[4].To = "failed"
			},
			wantValid:    true,
			wantWarnings: []string{"NAMING_CONVENTION"},
		},
		{
			name: "no absorbing state",
			mutate: func(c *statemachine.Config) {
				c.Events = append(c.Events, "RESET")
				c.Transitions = append(c.Transitions,
					statemachine.TransitionConfig{From: "DONE", Event: "RESET", To: "INIT"},
					statemachine.TransitionConfig{From: "ERROR", Event: "RESET", To: "INIT"},
				)
			},
			wantValid:    true,
			wantWarnings: []string{"NO_ABSORBING_STATE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			config := loaderConfig()
			tt.mutate(config)

			result := Validate(config)

			assert.Equal(t, tt.wantValid, result.Valid)

			if tt.wantErrors == nil {
				assert.Empty(t, result.Errors)
			} else {
				assert.Equal(t, tt.wantErrors, codes(result.Errors))
			}

			if tt.wantWarnings == nil {
				assert.Empty(t, result.Warnings)
			} else {
				assert.Equal(t, tt.wantWarnings, codes(result.Warnings))
			}
		})
	}
}

func TestValidateStrict(t *testing.T) {
	t.Parallel()

	config := loaderConfig()
	config.Events = append(config.Events, "CANCEL")

	result := ValidateWithRulesStrict(config, DefaultRules())

	assert.False(t, result.Valid)
	assert.Empty(t, result.Warnings)
	assert.Equal(t, []string{"UNUSED_EVENT"}, codes(result.Errors))
}

func TestWithActions(t *testing.T) {
	t.Parallel()

	known := []string{"runOperation", "startTimer", "renderFallback", "renderSucceeded"}

	result := ValidateWithRules(loaderConfig(), WithActions(known))

	require.False(t, result.Valid)
	assert.Equal(t, []string{"UNKNOWN_ACTION"}, codes(result.Errors))
	assert.Equal(t, 5, result.Errors[0].Location.Transition)
}

func TestValidateNil(t *testing.T) {
	t.Parallel()

	result := Validate(nil)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{"CONFIG_NIL"}, codes(result.Errors))
}

func TestIssuesAreNaturallySorted(t *testing.T) {
	t.Parallel()

	config := loaderConfig()
	for _, name := range []string{"ORPHAN10", "ORPHAN2", "ORPHAN1"} {
		config.States = append(config.States, statemachine.StateNode{Name: name})
	}

	result := Validate(config)

	require.Len(t, result.Errors, 3)
	assert.Equal(t, "ORPHAN1", result.Errors[0].Location.State)
	assert.Equal(t, "ORPHAN2", result.Errors[1].Location.State)
	assert.Equal(t, "ORPHAN10", result.Errors[2].Location.State)
}

func TestApplyFixes(t *testing.T) {
	t.Parallel()

	config := loaderConfig()
	config.States = append(config.States, statemachine.StateNode{Name: "orphan"})
	config.Events = append(config.Events, "CANCEL")
	config.Transitions = append(config.Transitions, statemachine.TransitionConfig{From: "orphan", Event: "START", To: "DONE"})

	result := Validate(config)
	require.False(t, result.Valid)

	// The rename fix for the orphan runs after the orphan is removed and fails.
	applied, err := ApplyFixes(config, result)
	require.ErrorIs(t, err, ErrStateNotFound)
	assert.Equal(t, 2, applied)

	again := Validate(config)
	assert.True(t, again.Valid)
	assert.Empty(t, again.Warnings)
}

func TestFixes(t *testing.T) {
	t.Parallel()

	t.Run("rename sub-state", func(t *testing.T) {
		t.Parallel()

		config := loaderConfig()
		require.NoError(t, RenameState("PENDING", "WAITING").Apply(config))

		assert.Equal(t, "WAITING", config.States[1].Children[0].Name)
		assert.Equal(t, "WAITING", config.Transitions[1].To)
		assert.Equal(t, "WAITING", config.Transitions[2].From)
		assert.True(t, Validate(config).Valid)
	})

	t.Run("rename initial state", func(t *testing.T) {
		t.Parallel()

		config := loaderConfig()
		require.NoError(t, RenameState("INIT", "IDLE").Apply(config))
		assert.Equal(t, "IDLE", config.InitialControlState)
	})

	t.Run("rename collision", func(t *testing.T) {
		t.Parallel()

		require.ErrorIs(t, RenameState("PENDING", "DONE").Apply(loaderConfig()), ErrStateAlreadyExists)
		require.ErrorIs(t, RenameState("MISSING", "OTHER").Apply(loaderConfig()), ErrStateNotFound)
	})

	t.Run("remove compound", func(t *testing.T) {
		t.Parallel()

		config := loaderConfig()
		require.NoError(t, RemoveUnreachableState("SUSPENSE").Apply(config))

		assert.Len(t, config.States, 3)
		assert.Empty(t, config.Transitions)
	})

	t.Run("remove sub-state", func(t *testing.T) {
		t.Parallel()

		config := loaderConfig()
		require.NoError(t, RemoveUnreachableState("SPINNING").Apply(config))

		assert.Equal(t, []statemachine.StateNode{{Name: "PENDING"}}, config.States[1].Children)
		assert.Len(t, config.Transitions, 4)
	})

	t.Run("declare and remove event", func(t *testing.T) {
		t.Parallel()

		config := loaderConfig()
		require.NoError(t, DeclareEvent("CANCEL").Apply(config))
		require.ErrorIs(t, DeclareEvent("CANCEL").Apply(config), ErrEventAlreadyDeclared)
		require.NoError(t, RemoveEvent("CANCEL").Apply(config))
		require.ErrorIs(t, RemoveEvent("CANCEL").Apply(config), ErrEventNotFound)
	})
}

func TestValidateFile(t *testing.T) {
	t.Parallel()

	yaml := `
name: toggle
initialControlState: "OFF"
states:
  - name: "OFF"
  - name: "ON"
events: [FLIP, UNUSED]
transitions:
  - {from: "OFF", event: FLIP, to: "ON"}
`

	path := filepath.Join(t.TempDir(), "toggle.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	result, err := ValidateFile(path)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, path, result.Warnings[0].Location.File)

	strict, err := ValidateFileStrict(path)
	require.NoError(t, err)
	assert.False(t, strict.Valid)

	_, err = ValidateFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
