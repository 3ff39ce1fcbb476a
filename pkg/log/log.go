// Package log configures the process-wide slog logger used by every binary.
package log

import (
	"log/slog"
	"os"
)

// Setup installs a text handler on the default logger at the given level.
// Unknown level names fall back to info.
func Setup(logLevel string) {
	var level slog.Level

	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}

// WithModule returns the default logger tagged with a module field, so log
// lines can be attributed to the subsystem that wrote them.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
