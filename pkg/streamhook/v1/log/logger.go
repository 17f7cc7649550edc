// Package log defines the public logging interface used across streamhook packages.
package log

import (
	"context"
	"log/slog"
)

// Logger is the logging contract shared by the editor, the stores and the CLI.
// It mirrors the slog levels with printf-style helpers plus structured calls.
type Logger interface {
	// Debugf logs a formatted message at the DEBUG level.
	Debugf(format string, args ...interface{})
	// Infof logs a formatted message at the INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs a formatted message at the WARN level.
	Warnf(format string, args ...interface{})
	// Errorf logs a formatted message at the ERROR level. When the last argument
	// is an error, implementations should log it as a structured attribute.
	Errorf(format string, args ...interface{})

	// Log logs a message at the given level with key-value attributes.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx is Log with a context, so trace ids can be attached.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a Logger that adds the given attributes to every entry.
	With(args ...interface{}) Logger
	// IsEnabled reports whether entries at level would be emitted.
	IsEnabled(level slog.Level) bool
}
