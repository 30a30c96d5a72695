package config

import (
	"errors"
	"fmt"
	"log/slog"
)

var (
	ErrBadValue = errors.New("error parsing configuration value")
	ErrMissing  = errors.New("missing configuration value")
)

// Reader is a configuration value read from a context override, the
// environment or a config file. It carries whether the key was present
// and any parse error alongside the value.
type Reader[A any] struct {
	key     string
	present bool
	err     error

	value A
}

// NewReader returns a Reader with the given raw state.
func NewReader[A any](key string, present bool, err error, value A) Reader[A] {
	return Reader[A]{
		key:     key,
		present: present,
		err:     err,
		value:   value,
	}
}

// Key returns the configuration key.
func (r Reader[A]) Key() string {
	return r.key
}

// Value returns the value, or an error if it is missing or failed to parse.
func (r Reader[A]) Value() (A, error) { //nolint:ireturn
	if r.err != nil {
		return r.value, fmt.Errorf("%w %s: %w", ErrBadValue, r.key, r.err)
	}

	if !r.present {
		return r.value, fmt.Errorf("%w %s", ErrMissing, r.key)
	}

	return r.value, nil
}

// ValueOrElse returns the value, or v if it is missing or failed to parse.
// Parse errors are logged.
func (r Reader[A]) ValueOrElse(v A) A { //nolint:ireturn
	if r.present && r.err == nil {
		return r.value
	}

	if r.err != nil {
		slog.Warn("error reading configuration value, using fallback value",
			"key", r.key, "error", r.err, "fallback", v)
	}

	return v
}

// HasValue reports whether the key was set and parsed cleanly.
func (r Reader[A]) HasValue() bool {
	return r.present && r.err == nil
}

// Error returns the parse error, if any.
func (r Reader[A]) Error() error {
	return r.err
}

// WithDefault returns a Reader holding v when the key was not set.
func (r Reader[A]) WithDefault(v A) Reader[A] { //nolint:ireturn
	if r.present {
		return r
	}

	return Reader[A]{
		key:     r.key,
		present: true,
		err:     r.err,
		value:   v,
	}
}

// Map transforms the value with f, keeping the type.
func (r Reader[A]) Map(f func(A) (A, error)) Reader[A] { //nolint:ireturn
	return Map(r, f)
}

// String returns a printable form of the Reader.
func (r Reader[A]) String() string {
	switch {
	case r.err != nil:
		return fmt.Sprintf("%s=<error: %v>", r.key, r.err)
	case r.present:
		return fmt.Sprintf("%s=%v", r.key, r.value)
	default:
		return r.key + "=<not set>"
	}
}

// Map transforms a Reader's value with f. Missing values and earlier errors
// pass through without calling f.
func Map[A any, B any](r Reader[A], f func(A) (B, error)) Reader[B] {
	if !r.present || r.err != nil {
		return Reader[B]{
			key:     r.key,
			present: r.present,
			err:     r.err,
		}
	}

	val, err := f(r.value)

	return Reader[B]{
		key:     r.key,
		present: true,
		err:     err,
		value:   val,
	}
}

// Option modifies a Reader as it is built.
type Option[T any] func(Reader[T]) Reader[T]

// Default provides the value used when the key is not set.
func Default[T any](dfl T) Option[T] {
	return func(r Reader[T]) Reader[T] {
		return r.WithDefault(dfl)
	}
}

// Validate runs f against a present value and records its error.
func Validate[T any](f func(T) error) Option[T] {
	return func(r Reader[T]) Reader[T] {
		return r.Map(func(val T) (T, error) {
			return val, f(val)
		})
	}
}
