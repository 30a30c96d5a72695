package driver

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/suspense/statemachine"
	"github.com/amp-labs/suspense/suspense"
)

const waitFor = 5 * time.Second

type recorder struct {
	mu       sync.Mutex
	renders  []suspense.RenderParams
	onRender func(suspense.RenderParams)
}

func (r *recorder) Render(_ context.Context, params suspense.RenderParams) error {
	r.mu.Lock()
	r.renders = append(r.renders, params)
	hook := r.onRender
	r.mu.Unlock()

	if hook != nil {
		hook(params)
	}

	return nil
}

func (r *recorder) displays() []suspense.Display {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]suspense.Display, 0, len(r.renders))
	for _, p := range r.renders {
		out = append(out, p.Display)
	}

	return out
}

func (r *recorder) last() suspense.RenderParams {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.renders[len(r.renders)-1]
}

func newMachine(t *testing.T, settings suspense.Settings) *suspense.Machine {
	t.Helper()

	m, err := suspense.New(settings)
	require.NoError(t, err)

	return m
}

func start(t *testing.T, ctx context.Context, d *Driver) <-chan error {
	t.Helper()

	done := make(chan error, 1)

	go func() {
		done <- d.Run(ctx)
	}()

	require.NoError(t, d.Start(ctx))

	return done
}

func wait(t *testing.T, done <-chan error) error {
	t.Helper()

	select {
	case err := <-done:
		return err
	case <-time.After(waitFor):
		require.FailNow(t, "driver did not finish")

		return nil
	}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(waitFor):
		require.FailNow(t, "timed out waiting")
	}
}

func TestRunSucceedsBeforeTimeout(t *testing.T) {
	t.Parallel()

	task := TaskFunc(func(context.Context) (any, error) { return "payload", nil })
	m := newMachine(t, suspense.Settings{Task: task, Timeout: time.Hour})
	rec := &recorder{}
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	require.NoError(t, wait(t, start(t, t.Context(), d)))

	assert.Equal(t, suspense.StateDone, m.State())
	assert.Equal(t, []suspense.Display{suspense.DisplayMain}, rec.displays())
	assert.Equal(t, "payload", rec.last().Data)
	assert.Zero(t, d.timers.pending())
}

func TestRunFallbackThenSuccess(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	fallback := make(chan struct{})

	task := TaskFunc(func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return "late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	rec := &recorder{onRender: func(p suspense.RenderParams) {
		if p.Display == suspense.DisplayFallback {
			close(fallback)
		}
	}}

	m := newMachine(t, suspense.Settings{Task: task, Timeout: 5 * time.Millisecond})
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	done := start(t, t.Context(), d)

	waitClosed(t, fallback)
	assert.Equal(t, suspense.StateSpinning, m.State())
	close(release)

	require.NoError(t, wait(t, done))

	assert.Equal(t, suspense.StateDone, m.State())
	assert.Equal(t, []suspense.Display{suspense.DisplayFallback, suspense.DisplayMain}, rec.displays())
	assert.Equal(t, "late", rec.last().Data)
}

func TestRunTaskFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	task := TaskFunc(func(context.Context) (any, error) { return nil, boom })

	m := newMachine(t, suspense.Settings{Task: task, Timeout: time.Hour})
	rec := &recorder{}
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	require.NoError(t, wait(t, start(t, t.Context(), d)))

	assert.Equal(t, suspense.StateError, m.State())
	assert.Equal(t, []suspense.Display{suspense.DisplayError}, rec.displays())

	err, ok := rec.last().Data.(error)
	require.True(t, ok)
	require.ErrorIs(t, err, boom)
}

func TestRunTaskPanicBecomesFailure(t *testing.T) {
	t.Parallel()

	task := TaskFunc(func(context.Context) (any, error) { panic("kaboom") })

	m := newMachine(t, suspense.Settings{Task: task, Timeout: time.Hour})
	rec := &recorder{}
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	require.NoError(t, wait(t, start(t, t.Context(), d)))

	assert.Equal(t, suspense.StateError, m.State())

	err, ok := rec.last().Data.(error)
	require.True(t, ok)
	require.ErrorIs(t, err, ErrTaskPanic)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestRunUnsupportedTask(t *testing.T) {
	t.Parallel()

	m := newMachine(t, suspense.Settings{Task: "not runnable", Timeout: time.Hour})
	rec := &recorder{}
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	require.NoError(t, wait(t, start(t, t.Context(), d)))

	err, ok := rec.last().Data.(error)
	require.True(t, ok)
	require.ErrorIs(t, err, ErrUnsupportedTask)
}

func TestRunCustomTaskRunner(t *testing.T) {
	t.Parallel()

	runner := TaskRunnerFunc(func(_ context.Context, task any) (any, error) {
		return task.(string) + " done", nil //nolint:forcetypeassert
	})

	m := newMachine(t, suspense.Settings{Task: "fetch", Timeout: time.Hour})
	rec := &recorder{}
	d := New(m, WithRenderer(rec), WithTaskRunner(runner), WithWorkers(1), WithLogger(slogt.New(t)))

	require.NoError(t, wait(t, start(t, t.Context(), d)))

	assert.Equal(t, "fetch done", rec.last().Data)
}

func TestRendererPanicIsRecovered(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	fallback := make(chan struct{})

	task := TaskFunc(func(ctx context.Context) (any, error) {
		select {
		case <-release:
			return "ok", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	rec := &recorder{onRender: func(p suspense.RenderParams) {
		if p.Display == suspense.DisplayFallback {
			close(fallback)
			panic("render exploded")
		}
	}}

	m := newMachine(t, suspense.Settings{Task: task, Timeout: time.Millisecond})
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	done := start(t, t.Context(), d)

	waitClosed(t, fallback)
	close(release)

	require.NoError(t, wait(t, done))
	assert.Equal(t, []suspense.Display{suspense.DisplayFallback, suspense.DisplayMain}, rec.displays())
}

func TestRunWithoutTaskStopsWithContext(t *testing.T) {
	t.Parallel()

	fallback := make(chan struct{})
	rec := &recorder{onRender: func(p suspense.RenderParams) {
		if p.Display == suspense.DisplayFallback {
			close(fallback)
		}
	}}

	m := newMachine(t, suspense.Settings{Timeout: time.Millisecond})
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	done := start(t, ctx, d)

	waitClosed(t, fallback)
	assert.Equal(t, suspense.StateSpinning, m.State())

	cancel()
	require.ErrorIs(t, wait(t, done), context.Canceled)
	assert.False(t, m.IsAbsorbing())
}

func TestDispatchAfterStop(t *testing.T) {
	t.Parallel()

	task := TaskFunc(func(context.Context) (any, error) { return nil, nil })
	m := newMachine(t, suspense.Settings{Task: task, Timeout: time.Hour})
	d := New(m, WithRenderer(&recorder{}), WithLogger(slogt.New(t)))

	require.NoError(t, wait(t, start(t, t.Context(), d)))

	err := d.Dispatch(t.Context(), statemachine.NewEvent(suspense.EventTimerExpired, nil))
	require.ErrorIs(t, err, ErrStopped)
	require.ErrorIs(t, d.Run(t.Context()), ErrAlreadyRunning)
}

func TestRunOnAbsorbingMachineReturnsImmediately(t *testing.T) {
	t.Parallel()

	m := newMachine(t, suspense.Settings{Timeout: time.Hour})
	m.SendEvent(t.Context(), suspense.EventStart, nil)
	m.SendEvent(t.Context(), suspense.EventFailed, "early")
	require.True(t, m.IsAbsorbing())

	rec := &recorder{}
	d := New(m, WithRenderer(rec), WithLogger(slogt.New(t)))

	require.NoError(t, d.Run(t.Context()))
	assert.Empty(t, rec.displays())
	require.ErrorIs(t, d.Start(t.Context()), ErrStopped)
}

func TestDispatchHonorsContext(t *testing.T) {
	t.Parallel()

	m := newMachine(t, suspense.Settings{})
	d := New(m, WithInboxDepth(0), WithLogger(slogt.New(t)))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	require.ErrorIs(t, d.Start(ctx), context.Canceled)
}

func TestCommandMetrics(t *testing.T) { //nolint:paralleltest
	renderOK := commandsTotal.WithLabelValues(suspense.CommandRender, outcomeOK)
	runOK := commandsTotal.WithLabelValues(suspense.CommandRun, outcomeOK)
	timerOK := commandsTotal.WithLabelValues(suspense.CommandStartTimer, outcomeOK)
	cancelled := timersTotal.WithLabelValues(timerCancelled)

	beforeRender := testutil.ToFloat64(renderOK)
	beforeRun := testutil.ToFloat64(runOK)
	beforeTimer := testutil.ToFloat64(timerOK)
	beforeCancelled := testutil.ToFloat64(cancelled)

	task := TaskFunc(func(context.Context) (any, error) { return 1, nil })
	m := newMachine(t, suspense.Settings{Task: task, Timeout: time.Hour})
	d := New(m, WithRenderer(&recorder{}), WithLogger(slogt.New(t)))

	require.NoError(t, wait(t, start(t, t.Context(), d)))

	assert.InDelta(t, beforeRender+1, testutil.ToFloat64(renderOK), 0)
	assert.InDelta(t, beforeRun+1, testutil.ToFloat64(runOK), 0)
	assert.InDelta(t, beforeTimer+1, testutil.ToFloat64(timerOK), 0)
	assert.InDelta(t, beforeCancelled+1, testutil.ToFloat64(cancelled), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(tasksInFlight), 0)
}
