package statemachine

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "statemachine"

// startSendSpan creates the span covering the processing of one event.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startSendSpan(ctx context.Context, machine, machineID, fingerprint, state, event string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "statemachine.send")
	span.SetAttributes(
		attribute.String("machine", machine),
		attribute.String("machine_id", machineID),
		attribute.String("definition_hash", fingerprint),
		attribute.String("state", state),
		attribute.String("event", event),
	)

	return ctx, span
}

// startActionSpan creates a child span for one action invocation.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startActionSpan(ctx context.Context, action string, transition Step) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "action."+action)
	span.SetAttributes(
		attribute.String("action", action),
		attribute.String("from", transition.From),
		attribute.String("event", transition.Event),
		attribute.String("to", transition.To),
	)

	return ctx, span
}

// endSendSpan records the outcome and closes the span.
func endSendSpan(span trace.Span, step Step, handled bool, outputs []Command) {
	span.SetAttributes(
		attribute.Bool("handled", handled),
		attribute.Int("outputs", len(outputs)),
	)

	if handled {
		span.SetAttributes(attribute.String("to", step.To))
	}

	span.End()
}
