// Package config reads suspense runtime settings from context overrides, the
// environment and an optional YAML file named by SUSPENSE_CONFIG_FILE.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amp-labs/suspense/stage"
)

// Keys.
const (
	KeyConfigFile   = "SUSPENSE_CONFIG_FILE"
	KeyRunningEnv   = "RUNNING_ENV"
	KeyTimeout      = "SUSPENSE_TIMEOUT"
	KeyTask         = "SUSPENSE_TASK"
	KeyTaskDelay    = "SUSPENSE_TASK_DELAY"
	KeyTaskOutcome  = "SUSPENSE_TASK_OUTCOME"
	KeyWorkers      = "SUSPENSE_WORKERS"
	KeyLogJSON      = "LOG_JSON"
	KeyLogLevel     = "LOG_LEVEL"
	KeyOTelEnabled  = "OTEL_ENABLED"
	KeyOTelService  = "OTEL_SERVICE_NAME"
	KeyOTelEndpoint = "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"
	KeyOTelTimeout  = "OTEL_EXPORTER_OTLP_TRACES_TIMEOUT"
)

// Task outcomes.
const (
	OutcomeSucceed = "succeed"
	OutcomeFail    = "fail"
)

const (
	defaultTimeout     = 200 * time.Millisecond
	defaultTask        = "demo"
	defaultTaskDelay   = 500 * time.Millisecond
	defaultWorkers     = 4
	defaultServiceName = "suspense"
	defaultOTelTimeout = 5 * time.Second
)

var (
	ErrInvalidLogLevel = errors.New("invalid log level")
	ErrInvalidOutcome  = errors.New("invalid task outcome")
	ErrInvalidWorkers  = errors.New("worker count must be positive")
)

// Settings is the resolved runtime configuration.
type Settings struct {
	Environment stage.Stage

	Timeout     time.Duration
	Task        string
	TaskDelay   time.Duration
	TaskOutcome string
	Workers     int

	LogJSON  bool
	LogLevel slog.Level

	OTelEnabled  bool
	OTelService  string
	OTelEndpoint string
	OTelTimeout  time.Duration
}

// Load resolves Settings. When SUSPENSE_CONFIG_FILE names a file its env
// section fills keys the environment leaves unset. Every invalid key is
// reported.
func Load(ctx context.Context) (Settings, error) {
	if path, err := String(ctx, KeyConfigFile).Value(); err == nil && path != "" {
		values, err := LoadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("%s: %w", KeyConfigFile, err)
		}

		ctx = WithFileValues(ctx, values)
	}

	var errs []error

	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	var (
		s   Settings
		err error
	)

	s.Environment, err = Map(String(ctx, KeyRunningEnv), stage.Parse).WithDefault(stage.Fallback()).Value()
	collect(err)

	s.Timeout, err = Duration(ctx, KeyTimeout, Default(defaultTimeout)).Value()
	collect(err)

	s.Task, err = String(ctx, KeyTask, Default(defaultTask)).Value()
	collect(err)

	s.TaskDelay, err = Duration(ctx, KeyTaskDelay, Default(defaultTaskDelay)).Value()
	collect(err)

	s.TaskOutcome, err = String(ctx, KeyTaskOutcome, Default(OutcomeSucceed), Validate(validOutcome)).Value()
	collect(err)

	s.Workers, err = Int(ctx, KeyWorkers, Default(defaultWorkers), Validate(positive)).Value()
	collect(err)

	s.LogJSON, err = Bool(ctx, KeyLogJSON, Default(false)).Value()
	collect(err)

	s.LogLevel, err = SlogLevel(ctx, KeyLogLevel, Default(slog.LevelInfo)).Value()
	collect(err)

	s.OTelEnabled, err = Bool(ctx, KeyOTelEnabled, Default(false)).Value()
	collect(err)

	s.OTelService, err = String(ctx, KeyOTelService, Default(defaultServiceName)).Value()
	collect(err)

	s.OTelEndpoint, err = String(ctx, KeyOTelEndpoint, Default("")).Value()
	collect(err)

	s.OTelTimeout, err = Duration(ctx, KeyOTelTimeout, Default(defaultOTelTimeout)).Value()
	collect(err)

	return s, errors.Join(errs...)
}

func validOutcome(outcome string) error {
	switch outcome {
	case OutcomeSucceed, OutcomeFail:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
	}
}

func positive(n int) error {
	if n <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, n)
	}

	return nil
}
