// Package logctx carries a zerolog logger on a context.Context.
//
// The CLI attaches a logger carrying the run ID, the runner narrows it per
// step, and transfer backends pick it up without taking a logger argument:
//
//	ctx = logctx.WithRunID(ctx, runID)
//	ctx = logctx.WithStep(ctx, "transfer")
//	log := logctx.FromContext(ctx)
//	log.Debug().Msg("dialing")
package logctx

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type loggerKey struct{}

var (
	defaultMu     sync.RWMutex
	defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger()
)

// DefaultLogger returns the logger used when a context carries none.
func DefaultLogger() zerolog.Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefaultLogger replaces the fallback logger.
func SetDefaultLogger(l zerolog.Logger) {
	defaultMu.Lock()
	defaultLogger = l
	defaultMu.Unlock()
}

// WithLogger returns a copy of ctx carrying logger.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger on ctx, or the default logger.
// It never returns a zero-value logger.
func FromContext(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return DefaultLogger()
	}
	if logger, ok := ctx.Value(loggerKey{}).(zerolog.Logger); ok {
		return logger
	}
	return DefaultLogger()
}

// WithStr adds a string field to the context logger.
func WithStr(ctx context.Context, key, value string) context.Context {
	logger := FromContext(ctx).With().Str(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithInt adds an int field to the context logger.
func WithInt(ctx context.Context, key string, value int) context.Context {
	logger := FromContext(ctx).With().Int(key, value).Logger()
	return WithLogger(ctx, logger)
}

// WithRunID tags the context logger with the run's identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return WithStr(ctx, "run_id", runID)
}

// WithStep tags the context logger with the step being executed.
func WithStep(ctx context.Context, step string) context.Context {
	return WithStr(ctx, "step", step)
}

// WithBackend tags the context logger with a transfer backend kind.
func WithBackend(ctx context.Context, kind string) context.Context {
	return WithStr(ctx, "backend", kind)
}

// NewConfiguredLogger builds a logger writing to w at debug or info level,
// using a console writer when human is set.
func NewConfiguredLogger(w io.Writer, debug, human bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
