// Package logger provides structured logging for moviesync.
// It wraps log/slog behind package-level helpers so core services log
// without threading a logger through every constructor. When verbose mode
// is enabled via the --verbose flag, debug messages are emitted regardless
// of the configured level.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Output formats accepted by Setup.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = FormatText
	level             = new(slog.LevelVar)
	base              = newLogger()
)

// Setup configures the level, format and destination, and installs the
// result as the slog default.
func Setup(lvl, fmtName string, w io.Writer) error {
	parsed, err := ParseLevel(lvl)
	if err != nil {
		return err
	}
	switch fmtName {
	case "", FormatText, FormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", fmtName)
	}

	mu.Lock()
	defer mu.Unlock()
	if fmtName != "" {
		format = fmtName
	}
	if w != nil {
		output = w
	}
	level.Set(parsed)
	if verbose {
		level.Set(slog.LevelDebug)
	}
	base = newLogger()
	slog.SetDefault(base)
	return nil
}

// ParseLevel converts a level name into a slog.Level.
// An empty name means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	if v {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = newLogger()
}

// Logger returns the current logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// With returns a logger that adds args to every record.
func With(args ...any) *slog.Logger {
	return Logger().With(args...)
}

// Debug logs at debug level.
func Debug(msg string, args ...any) { Logger().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { Logger().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { Logger().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { Logger().Error(msg, args...) }
