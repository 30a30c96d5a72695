package driver

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTaskPanic wraps a panic raised while running a task.
	ErrTaskPanic = errors.New("panic in task")
	// ErrUnsupportedTask is returned by DefaultTaskRunner for tasks it cannot run.
	ErrUnsupportedTask = errors.New("unsupported task")
)

// TaskRunner runs the descriptor carried by a RUN command. The returned value
// becomes the SUCCEEDED payload and a returned error the FAILED payload.
// Implementations should return once ctx is done.
type TaskRunner interface {
	RunTask(ctx context.Context, task any) (any, error)
}

// TaskRunnerFunc adapts a function to TaskRunner.
type TaskRunnerFunc func(ctx context.Context, task any) (any, error)

// RunTask calls f.
func (f TaskRunnerFunc) RunTask(ctx context.Context, task any) (any, error) {
	return f(ctx, task)
}

// Task is a descriptor DefaultTaskRunner knows how to run.
type Task interface {
	Run(ctx context.Context) (any, error)
}

// TaskFunc adapts a function to Task.
type TaskFunc func(ctx context.Context) (any, error)

// Run calls f.
func (f TaskFunc) Run(ctx context.Context) (any, error) {
	return f(ctx)
}

// DefaultTaskRunner runs descriptors that implement Task and rejects the rest.
var DefaultTaskRunner TaskRunner = TaskRunnerFunc(func(ctx context.Context, task any) (any, error) { //nolint:gochecknoglobals,lll
	switch t := task.(type) {
	case Task:
		return t.Run(ctx)
	case func(context.Context) (any, error):
		return t(ctx)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedTask, task)
	}
})

// panicErr wraps a recovered value, preserving it when it is an error.
func panicErr(kind error, recovered any) error {
	if e, ok := recovered.(error); ok {
		return fmt.Errorf("%w: %w", kind, e)
	}

	return fmt.Errorf("%w: %v", kind, recovered)
}
