package logger

import (
	"io"
	"log"
	"log/slog"
	"os"
	"strings"
)

const (
	// EnvVarLogLevel is the environment variable name for setting the log level.
	EnvVarLogLevel = "LOG_LEVEL"

	// FormatJSON and FormatText select the handler.
	FormatJSON = "json"
	FormatText = "text"
)

// NewStructuredLogger creates a JSON logger at the given level writing to
// stderr. Module name and version are attached to every record; the source
// location only at debug level.
func NewStructuredLogger(module, version, level string) *slog.Logger {
	return NewLogger(os.Stderr, FormatJSON, module, version, level)
}

// NewLogger creates a logger writing to w in the given format ("json" or
// "text"; anything else is json).
func NewLogger(w io.Writer, format, module, version, level string) *slog.Logger {
	lev := ParseLogLevel(level)
	opts := &slog.HandlerOptions{
		Level:     lev,
		AddSource: lev <= slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), FormatText) {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler).With("module", module, "version", version)
}

// NewLogLogger creates a standard library log.Logger backed by slog, for
// http.Server.ErrorLog and similar sinks.
func NewLogLogger(level slog.Level, withSource bool) *log.Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: withSource,
	})

	return slog.NewLogLogger(handler, level)
}

// SetDefaultLoggerWithLevel sets the default logger at the given level.
// An empty level falls back to LOG_LEVEL.
func SetDefaultLoggerWithLevel(module, version, level string) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv(EnvVarLogLevel)
	}
	slog.SetDefault(NewStructuredLogger(module, version, level))
}

// SetDefaultLoggerWithFormat sets the default logger writing to stderr in
// the given format and level.
func SetDefaultLoggerWithFormat(module, version, format, level string) {
	if strings.TrimSpace(level) == "" {
		level = os.Getenv(EnvVarLogLevel)
	}
	slog.SetDefault(NewLogger(os.Stderr, format, module, version, level))
}

// ParseLogLevel converts a level name into a slog.Level. Unknown names are info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
