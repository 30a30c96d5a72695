package statemachine

import (
	"context"
	"log/slog"
	"time"
)

// Logger receives instrumentation callbacks from a Machine. The machine itself
// never logs; attach a Logger with WithLogger to observe it.
type Logger interface {
	EventIgnored(ctx context.Context, machine, state, event string)
	TransitionExecuted(ctx context.Context, machine string, step Step)
	ActionCompleted(ctx context.Context, machine, action string, result ActionResult, duration time.Duration)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger writing to l, or to slog.Default() when l is nil.
func NewDefaultLogger(l *slog.Logger) *DefaultLogger {
	if l == nil {
		l = slog.Default()
	}

	return &DefaultLogger{
		logger: l,
	}
}

func (l *DefaultLogger) EventIgnored(ctx context.Context, machine, state, event string) {
	l.logger.DebugContext(ctx, "Event ignored",
		"machine", machine,
		"state", state,
		"event", event,
	)
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, machine string, step Step) {
	l.logger.InfoContext(ctx, "Transition executed",
		"machine", machine,
		"from", step.From,
		"event", step.Event,
		"to", step.To,
	)
}

func (l *DefaultLogger) ActionCompleted(
	ctx context.Context,
	machine, action string,
	result ActionResult,
	duration time.Duration,
) {
	commands := make([]string, 0, len(result.Outputs))
	for _, output := range result.Outputs {
		commands = append(commands, output.Name)
	}

	l.logger.DebugContext(ctx, "Action completed",
		"machine", machine,
		"action", action,
		"updates", len(result.Updates),
		"commands", commands,
		"duration_ms", duration.Milliseconds(),
	)
}
