package actions

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/amp-labs/suspense/statemachine"
)

// ActionTracer records action invocations for debugging.
type ActionTracer struct {
	mu     sync.Mutex
	traces []ActionTrace
}

// ActionTrace represents a single action invocation.
type ActionTrace struct {
	Action     string
	StartState statemachine.ExtendedState
	Data       any
	Result     statemachine.ActionResult
}

// NewActionTracer creates a new action tracer.
func NewActionTracer() *ActionTracer {
	return &ActionTracer{
		traces: make([]ActionTrace, 0),
	}
}

// Trace wraps action so that each invocation is recorded on tracer.
func Trace[S any](tracer *ActionTracer, name string, action statemachine.ActionFunc[S]) statemachine.ActionFunc[S] {
	return func(ext statemachine.ExtendedState, data any, settings S) statemachine.ActionResult {
		start := ext.Clone()
		result := action(ext, data, settings)

		tracer.mu.Lock()
		defer tracer.mu.Unlock()

		tracer.traces = append(tracer.traces, ActionTrace{
			Action:     name,
			StartState: start,
			Data:       data,
			Result:     result,
		})

		return result
	}
}

// GetTraces returns all recorded traces.
func (t *ActionTracer) GetTraces() []ActionTrace {
	t.mu.Lock()
	defer t.mu.Unlock()

	return slices.Clone(t.traces)
}

// PrintTraces writes a human readable dump of all traces to w.
func (t *ActionTracer) PrintTraces(w io.Writer) error {
	var builder strings.Builder

	builder.WriteString("=== Action Traces ===\n")

	for i, trace := range t.GetTraces() {
		builder.WriteString(fmt.Sprintf("\n[%d] %s\n", i, trace.Action))

		if trace.Data != nil {
			builder.WriteString(fmt.Sprintf("  Data: %s\n", formatValue(trace.Data)))
		}

		for _, update := range trace.Result.Updates {
			for _, key := range sortedKeys(update) {
				before, had := trace.StartState[key]
				if !had {
					builder.WriteString(fmt.Sprintf("  + %s: %s\n", key, formatValue(update[key])))
				} else {
					builder.WriteString(fmt.Sprintf("  ~ %s: %s -> %s\n", key, formatValue(before), formatValue(update[key])))
				}
			}
		}

		for _, output := range trace.Result.Outputs {
			builder.WriteString(fmt.Sprintf("  > %s %s\n", output.Name, formatValue(output.Params)))
		}
	}

	builder.WriteString("\n=====================\n")

	_, err := io.WriteString(w, builder.String())

	return err
}

// Logged wraps action so that each invocation is logged at debug level.
func Logged[S any](logger *slog.Logger, name string, action statemachine.ActionFunc[S]) statemachine.ActionFunc[S] {
	if logger == nil {
		logger = slog.Default()
	}

	return func(ext statemachine.ExtendedState, data any, settings S) statemachine.ActionResult {
		result := action(ext, data, settings)

		commands := make([]string, 0, len(result.Outputs))
		for _, output := range result.Outputs {
			commands = append(commands, output.Name)
		}

		logger.Debug("Action invoked",
			"action", name,
			"updates", len(result.Updates),
			"commands", commands,
		)

		return result
	}
}

// DumpExtendedState renders an extended state for debugging, keys sorted.
func DumpExtendedState(ext statemachine.ExtendedState) string {
	var builder strings.Builder

	builder.WriteString("=== Extended State ===\n")

	for _, key := range sortedKeys(ext) {
		builder.WriteString(fmt.Sprintf("  %s: %s\n", key, formatValue(ext[key])))
	}

	builder.WriteString("======================\n")

	return builder.String()
}

func sortedKeys(ext statemachine.ExtendedState) []string {
	keys := make([]string, 0, len(ext))
	for key := range ext {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}

// formatValue prints simple values directly and everything else as JSON.
func formatValue(val any) string {
	switch v := val.(type) {
	case string:
		return v
	case int, int64, float64, bool, nil:
		return fmt.Sprintf("%v", v)
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	}

	jsonBytes, err := json.Marshal(val)
	if err != nil {
		return fmt.Sprintf("%v", val)
	}

	return string(jsonBytes)
}
