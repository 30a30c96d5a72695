// Package shutdown turns SIGINT and SIGTERM into context cancellation and
// runs registered hooks first.
package shutdown

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

var (
	mut     sync.Mutex     //nolint:gochecknoglobals
	hooks   []func()       //nolint:gochecknoglobals
	channel chan os.Signal //nolint:gochecknoglobals
)

// BeforeShutdown registers a function to run when a shutdown signal arrives,
// before the context from SetupHandler is cancelled.
func BeforeShutdown(h func()) {
	mut.Lock()
	defer mut.Unlock()

	hooks = append(hooks, h)
}

// Shutdown triggers the shutdown process as if SIGINT had been received.
func Shutdown() {
	mut.Lock()
	ch := channel
	mut.Unlock()

	if ch == nil {
		return
	}

	select {
	case ch <- os.Interrupt:
	default:
	}
}

// SetupHandler returns a context derived from parent that is cancelled when
// SIGINT or SIGTERM is received, after the hooks have run. The returned
// cancel function releases the signal handler without running hooks.
func SetupHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	mut.Lock()
	channel = ch
	mut.Unlock()

	ctx, cancel := context.WithCancel(parent)

	go func() {
		defer func() {
			signal.Stop(ch)

			mut.Lock()
			if channel == ch {
				channel = nil
			}
			mut.Unlock()
		}()

		select {
		case sig := <-ch:
			slog.Warn("Received " + sig.String() + ", shutting down...")
			cleanup()
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func cleanup() {
	mut.Lock()
	pending := hooks
	hooks = nil
	mut.Unlock()

	for _, h := range pending {
		h()
	}
}
