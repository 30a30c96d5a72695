package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type contextKey string

const fileValuesKey contextKey = "file-values"

// WithOverride returns a context in which key reads as value, ahead of the
// environment and any config file.
func WithOverride(ctx context.Context, key, value string) context.Context {
	return context.WithValue(ctx, contextKey("override:"+key), value)
}

// WithFileValues returns a context whose lookups fall back to values when a
// key is absent from the environment.
func WithFileValues(ctx context.Context, values map[string]string) context.Context {
	return context.WithValue(ctx, fileValuesKey, values)
}

// get resolves key from, in order, a context override, the environment and
// file values attached to the context.
func get(ctx context.Context, key string) Reader[string] {
	if val, ok := ctx.Value(contextKey("override:" + key)).(string); ok {
		return Reader[string]{key: key, present: true, value: val}
	}

	if val, ok := os.LookupEnv(key); ok {
		return Reader[string]{key: key, present: true, value: val}
	}

	if values, ok := ctx.Value(fileValuesKey).(map[string]string); ok {
		if val, ok := values[key]; ok {
			return Reader[string]{key: key, present: true, value: val}
		}
	}

	return Reader[string]{key: key}
}

func apply[T any](r Reader[T], opts []Option[T]) Reader[T] {
	for _, opt := range opts {
		r = opt(r)
	}

	return r
}

// String reads key as a string.
func String(ctx context.Context, key string, opts ...Option[string]) Reader[string] {
	return apply(get(ctx, key), opts)
}

// Bool reads key with strconv.ParseBool.
func Bool(ctx context.Context, key string, opts ...Option[bool]) Reader[bool] {
	return apply(Map(get(ctx, key), strconv.ParseBool), opts)
}

// Int reads key as a base-10 int.
func Int(ctx context.Context, key string, opts ...Option[int]) Reader[int] {
	return apply(Map(get(ctx, key), strconv.Atoi), opts)
}

// Duration reads key with time.ParseDuration.
func Duration(ctx context.Context, key string, opts ...Option[time.Duration]) Reader[time.Duration] {
	return apply(Map(get(ctx, key), time.ParseDuration), opts)
}

// SlogLevel reads key as one of debug, info, warn or error, ignoring case.
func SlogLevel(ctx context.Context, key string, opts ...Option[slog.Level]) Reader[slog.Level] {
	return apply(Map(get(ctx, key), parseLevel), opts)
}

func parseLevel(value string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, value)
	}
}
