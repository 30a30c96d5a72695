// Package driver executes the commands a suspense machine emits: it renders,
// runs the task on a worker pool and arms the fallback timer. Results and
// timer expiries are fed back to the machine through a single inbox so the
// machine only ever sees one event at a time.
package driver

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/alitto/pond/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/atomic"

	"github.com/amp-labs/suspense/logger"
	"github.com/amp-labs/suspense/statemachine"
	"github.com/amp-labs/suspense/suspense"
)

const (
	defaultWorkers    = 4
	defaultInboxDepth = 16
	tracerName        = "github.com/amp-labs/suspense/driver"
)

var (
	// ErrStopped is returned when dispatching to a driver whose loop has ended.
	ErrStopped = errors.New("driver is stopped")
	// ErrAlreadyRunning is returned when Run is called more than once.
	ErrAlreadyRunning = errors.New("driver is already running")
)

// Machine is the part of a state machine the driver needs.
type Machine interface {
	ID() string
	State() string
	IsAbsorbing() bool
	Send(ctx context.Context, event statemachine.Event) []statemachine.Command
}

var _ Machine = (*suspense.Machine)(nil)

// Option configures a Driver.
type Option func(*options)

type options struct {
	renderer   Renderer
	runner     TaskRunner
	workers    int
	inboxDepth int
	logger     *slog.Logger
}

// WithRenderer sets the renderer for RENDER commands.
func WithRenderer(r Renderer) Option {
	return func(o *options) {
		o.renderer = r
	}
}

// WithTaskRunner sets the runner for RUN commands.
func WithTaskRunner(r TaskRunner) Option {
	return func(o *options) {
		o.runner = r
	}
}

// WithWorkers sets the task pool size.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithInboxDepth sets how many events may wait in the inbox.
func WithInboxDepth(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.inboxDepth = n
		}
	}
}

// WithLogger sets the logger. The default comes from logger.Get on the Run context.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// Driver owns one machine and executes its output commands.
type Driver struct {
	machine  Machine
	renderer Renderer
	runner   TaskRunner
	pool     pond.Pool
	log      *slog.Logger
	timers   *timerSet

	inbox   chan statemachine.Event
	done    chan struct{}
	running *atomic.Bool
	stopped *atomic.Bool
}

// New returns a driver for machine. Call Run to start processing.
func New(machine Machine, opts ...Option) *Driver {
	o := options{
		workers:    defaultWorkers,
		inboxDepth: defaultInboxDepth,
	}

	for _, opt := range opts {
		opt(&o)
	}

	if o.renderer == nil {
		o.renderer = LogRenderer{Logger: o.logger}
	}

	if o.runner == nil {
		o.runner = DefaultTaskRunner
	}

	return &Driver{
		machine:  machine,
		renderer: o.renderer,
		runner:   o.runner,
		pool:     pond.NewPool(o.workers),
		log:      o.logger,
		timers:   newTimerSet(),
		inbox:    make(chan statemachine.Event, o.inboxDepth),
		done:     make(chan struct{}),
		running:  atomic.NewBool(false),
		stopped:  atomic.NewBool(false),
	}
}

// Dispatch enqueues an event for the machine.
func (d *Driver) Dispatch(ctx context.Context, event statemachine.Event) error {
	if d.stopped.Load() {
		return ErrStopped
	}

	select {
	case d.inbox <- event:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start dispatches the START event.
func (d *Driver) Start(ctx context.Context) error {
	return d.Dispatch(ctx, statemachine.NewEvent(suspense.EventStart, nil))
}

// Run feeds inbox events to the machine one at a time and executes the
// commands each one produces. It returns nil once the machine is absorbing,
// or the context error if ctx ends first. Outstanding timers are cancelled
// and the task pool is drained before Run returns.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	defer d.stop()

	ctx = logger.WithSubsystem(logger.WithMachineID(ctx, d.machine.ID()), "driver")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log := d.logger(ctx)

	if d.machine.IsAbsorbing() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			log.Debug("driver context done", "state", d.machine.State(), "error", ctx.Err())

			return ctx.Err()
		case event := <-d.inbox:
			for _, cmd := range d.machine.Send(ctx, event) {
				d.execute(ctx, cmd)
			}

			if d.machine.IsAbsorbing() {
				cancelled := d.timers.cancelAll()

				log.Debug("machine settled", "state", d.machine.State(), "timersCancelled", cancelled)

				return nil
			}
		}
	}
}

func (d *Driver) stop() {
	d.stopped.Store(true)
	close(d.done)
	d.timers.cancelAll()
	d.pool.StopAndWait()
}

func (d *Driver) logger(ctx context.Context) *slog.Logger {
	if d.log != nil {
		return d.log.With("machine_id", d.machine.ID())
	}

	return logger.Get(ctx)
}

// execute runs one output command.
func (d *Driver) execute(ctx context.Context, cmd statemachine.Command) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "driver.execute")
	defer span.End()

	span.SetAttributes(attribute.String("command", cmd.Name))

	var outcome string

	switch cmd.Name {
	case suspense.CommandRender:
		outcome = d.render(ctx, cmd.Params)
	case suspense.CommandRun:
		outcome = d.submit(ctx, cmd.Params)
	case suspense.CommandStartTimer:
		outcome = d.arm(ctx, cmd.Params)
	default:
		d.logger(ctx).Warn("unknown command", "command", cmd.Name)

		outcome = outcomeUnknown
	}

	span.SetAttributes(attribute.String("outcome", outcome))

	if outcome != outcomeOK {
		span.SetStatus(codes.Error, outcome)
	}

	commandsTotal.WithLabelValues(cmd.Name, outcome).Inc()
}

func (d *Driver) render(ctx context.Context, params any) (outcome string) {
	log := d.logger(ctx)

	p, ok := params.(suspense.RenderParams)
	if !ok {
		log.Error("render command has unexpected params", "params", params)

		return outcomeInvalid
	}

	defer func() {
		if err := recover(); err != nil {
			log.Error("renderer recovered from panic",
				"display", string(p.Display),
				"error", panicErr(ErrRendererPanic, err),
				"stack", string(debug.Stack()))

			outcome = outcomePanic
		}
	}()

	if err := d.renderer.Render(ctx, p); err != nil {
		log.Error("render failed", "display", string(p.Display), "error", err)

		return outcomeError
	}

	return outcomeOK
}

// submit runs task on the pool and posts its result back as SUCCEEDED or FAILED.
func (d *Driver) submit(ctx context.Context, task any) string {
	tasksInFlight.Inc()

	err := d.pool.Go(func() {
		defer tasksInFlight.Dec()

		result, err := d.runTask(ctx, task)
		if err != nil {
			d.post(ctx, statemachine.NewEvent(suspense.EventFailed, err))

			return
		}

		d.post(ctx, statemachine.NewEvent(suspense.EventSucceeded, result))
	})
	if err != nil {
		tasksInFlight.Dec()
		d.logger(ctx).Error("task rejected by pool", "error", err)

		return outcomeRejected
	}

	return outcomeOK
}

func (d *Driver) runTask(ctx context.Context, task any) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicErr(ErrTaskPanic, r)

			d.logger(ctx).Error("task recovered from panic",
				"task", task,
				"error", err,
				"stack", string(debug.Stack()))
		}
	}()

	return d.runner.RunTask(ctx, task)
}

// arm starts the fallback timer.
func (d *Driver) arm(ctx context.Context, params any) string {
	timeout, ok := params.(time.Duration)
	if !ok {
		d.logger(ctx).Error("timer command has unexpected params", "params", params)

		return outcomeInvalid
	}

	d.timers.start(timeout, func() {
		d.post(ctx, statemachine.NewEvent(suspense.EventTimerExpired, nil))
	})

	return outcomeOK
}

// post delivers an event from a task or timer. Events arriving after the
// loop ended are dropped.
func (d *Driver) post(ctx context.Context, event statemachine.Event) {
	if err := d.Dispatch(ctx, event); err != nil {
		d.logger(ctx).Debug("dropped event", "event", event.Name, "error", err)
	}
}
