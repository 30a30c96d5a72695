// Package stage names the deployment environment a process runs in. Its
// value comes from RUNNING_ENV and is reported on telemetry resources.
package stage

import (
	"errors"
	"flag"
	"fmt"
	"strings"
)

// Stage represents a deployment environment.
type Stage string

// ErrUnrecognizedStage is returned for RUNNING_ENV values that are not a known stage.
var ErrUnrecognizedStage = errors.New("unrecognized stage")

const (
	Unknown Stage = "unknown"
	Local   Stage = "local"
	Test    Stage = "test"
	Dev     Stage = "dev"
	Staging Stage = "staging"
	Prod    Stage = "prod"
)

// Parse converts a RUNNING_ENV value into a Stage.
func Parse(value string) (Stage, error) {
	switch s := Stage(strings.ToLower(strings.TrimSpace(value))); s {
	case Local, Test, Dev, Staging, Prod:
		return s, nil
	default:
		return Unknown, fmt.Errorf("%w: %q", ErrUnrecognizedStage, value)
	}
}

// Fallback is the stage used when RUNNING_ENV is unset: Test inside a test
// binary, Unknown otherwise.
func Fallback() Stage {
	if flag.Lookup("test.v") != nil {
		return Test
	}

	return Unknown
}
