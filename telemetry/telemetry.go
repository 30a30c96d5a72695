// Package telemetry installs an OTLP/HTTP tracer provider for the spans the
// state machine and driver emit.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"github.com/amp-labs/suspense/build"
	"github.com/amp-labs/suspense/config"
)

var (
	mu             sync.Mutex               //nolint:gochecknoglobals
	tracerProvider *sdktrace.TracerProvider //nolint:gochecknoglobals
)

// ErrAlreadyInitialized is returned when Initialize is called twice without Shutdown.
var ErrAlreadyInitialized = errors.New("telemetry already initialized")

// Config holds the OpenTelemetry configuration.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Endpoint       string
	Enabled        bool
	Timeout        time.Duration
}

// ConfigFromSettings maps resolved settings onto a Config.
func ConfigFromSettings(s config.Settings) *Config {
	return &Config{
		ServiceName:    s.OTelService,
		ServiceVersion: build.Current().Version,
		Environment:    string(s.Environment),
		Endpoint:       s.OTelEndpoint,
		Enabled:        s.OTelEnabled,
		Timeout:        s.OTelTimeout,
	}
}

// Initialize sets up OpenTelemetry tracing. It is a no-op when tracing is
// disabled or no endpoint is configured.
func Initialize(ctx context.Context, cfg *Config) error {
	if !cfg.Enabled {
		slog.Debug("OpenTelemetry tracing is disabled")

		return nil
	}

	if cfg.Endpoint == "" {
		slog.Warn("OpenTelemetry endpoint not configured, tracing will be disabled")

		return nil
	}

	mu.Lock()
	defer mu.Unlock()

	if tracerProvider != nil {
		return ErrAlreadyInitialized
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
		otlptracehttp.WithTimeout(cfg.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	tracerProvider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	slog.Info("OpenTelemetry tracing initialized",
		"service", cfg.ServiceName,
		"version", cfg.ServiceVersion,
		"environment", cfg.Environment,
		"endpoint", cfg.Endpoint,
	)

	return nil
}

// Enabled reports whether Initialize installed a tracer provider.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()

	return tracerProvider != nil
}

// Shutdown flushes and stops the tracer provider installed by Initialize.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if tracerProvider == nil {
		return nil
	}

	slog.Info("Shutting down OpenTelemetry tracer provider")

	err := tracerProvider.Shutdown(ctx)
	tracerProvider = nil

	return err
}
