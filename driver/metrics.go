package driver

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Command outcomes.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomePanic    = "panic"
	outcomeInvalid  = "invalid"
	outcomeRejected = "rejected"
	outcomeUnknown  = "unknown"
)

// Timer outcomes.
const (
	timerStarted   = "started"
	timerFired     = "fired"
	timerCancelled = "cancelled"
)

var (
	// commandsTotal counts executed output commands by name and outcome.
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "driver_commands_total",
		Help: "The total number of output commands executed by the driver",
	}, []string{"command", "outcome"})

	// tasksInFlight tracks RUN tasks submitted to the pool and not yet reported.
	tasksInFlight = promauto.NewGauge(prometheus.GaugeOpts{ //nolint:gochecknoglobals
		Name: "driver_tasks_in_flight",
		Help: "The number of tasks currently running",
	})

	// timersTotal counts fallback timers by outcome.
	timersTotal = promauto.NewCounterVec(prometheus.CounterOpts{ //nolint:gochecknoglobals
		Name: "driver_timers_total",
		Help: "The total number of timers started, fired and cancelled",
	}, []string{"outcome"})
)
