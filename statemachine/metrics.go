package statemachine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric outcome constants.
const (
	outcomeHandled = "handled"
	outcomeIgnored = "ignored"
)

// Metric definitions with appropriate labels.
var (
	// eventsTotal counts every event sent to a machine, by outcome (handled or ignored).
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "statemachine_events_total",
		Help: "Total number of events sent to state machines by machine, event, and outcome",
	}, []string{"machine", "event", "outcome"})

	// transitionsTotal tracks control-state changes, after init-entry resolution.
	transitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "statemachine_transitions_total",
		Help: "Total number of state transitions by machine, from_state, and to_state",
	}, []string{"machine", "from_state", "to_state"})

	// outputsTotal counts emitted output commands.
	outputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "statemachine_outputs_total",
		Help: "Total number of output commands emitted by machine and command",
	}, []string{"machine", "command"})

	// sendDuration tracks how long processing one event takes.
	sendDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{ //nolint:gochecknoglobals
		Name:    "statemachine_send_duration_seconds",
		Help:    "Duration of event processing by machine and outcome",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
	}, []string{"machine", "outcome"})
)

func sanitizeMachine(name string) string {
	if name == "" {
		return "unknown"
	}

	return name
}

func sanitizeEvent(event string) string {
	if event == "" {
		return "none"
	}

	return event
}
