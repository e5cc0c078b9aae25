// Package logging is a small structured-logging shim: an env-gated
// verbosity switch and terse call sites, built on log/slog rather than
// raw Printf so concurrent HTTP requests don't interleave into unreadable
// output.
package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

var (
	once    sync.Once
	base    *slog.Logger
	verbose = os.Getenv("GRAPHD_DEBUG") != ""
)

func logger() *slog.Logger {
	once.Do(func() {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		base = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	})
	return base
}

// SetVerbose forces debug-level logging on, overriding GRAPHD_DEBUG.
func SetVerbose(v bool) {
	verbose = v
	once = sync.Once{}
}

// Debugf logs at debug level. Suppressed unless verbose/GRAPHD_DEBUG.
func Debugf(format string, args ...any) {
	logger().Debug(sprintf(format, args...))
}

// Infof logs at info level.
func Infof(format string, args ...any) {
	logger().Info(sprintf(format, args...))
}

// Warnf logs at warn level.
func Warnf(format string, args ...any) {
	logger().Warn(sprintf(format, args...))
}

// Errorf logs at error level.
func Errorf(format string, args ...any) {
	logger().Error(sprintf(format, args...))
}

// With returns a logger carrying the given structured fields, for call
// sites that want key/value pairs instead of a formatted message (e.g. the
// HTTP request middleware, which attaches a request id).
func With(args ...any) *slog.Logger {
	return logger().With(args...)
}

// FromContext returns a logger decorated with the request-scoped fields
// stashed by internal/httpapi's logging middleware, falling back to the
// base logger if none is attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok {
		return l
	}
	return logger()
}

type ctxKey struct{}

// WithContext attaches l to ctx for later retrieval via FromContext.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

func sprintf(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
