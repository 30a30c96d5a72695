package driver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/amp-labs/suspense/suspense"
)

// Renderer shows what a RENDER command selects.
type Renderer interface {
	Render(ctx context.Context, params suspense.RenderParams) error
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, params suspense.RenderParams) error

// Render calls f.
func (f RendererFunc) Render(ctx context.Context, params suspense.RenderParams) error {
	return f(ctx, params)
}

// LogRenderer writes each render to a logger.
type LogRenderer struct {
	Logger *slog.Logger
}

// Render logs params at info level.
func (r LogRenderer) Render(ctx context.Context, params suspense.RenderParams) error {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}

	log.InfoContext(ctx, "render", "display", string(params.Display), "data", params.Data)

	return nil
}

// WriterRenderer prints one line per render.
type WriterRenderer struct {
	W io.Writer
}

// Render writes "DISPLAY" or "DISPLAY: data".
func (r WriterRenderer) Render(_ context.Context, params suspense.RenderParams) error {
	var err error

	if params.Data == nil {
		_, err = fmt.Fprintln(r.W, params.Display)
	} else {
		_, err = fmt.Fprintf(r.W, "%s: %v\n", params.Display, params.Data)
	}

	return err
}

// ErrRendererPanic wraps a panic raised by a Renderer.
var ErrRendererPanic = errors.New("panic in renderer")
