// Package logger provides the process-wide leveled logger for slackpanel.
// Lines are structured through log/slog; debug output is only emitted when
// verbose mode is enabled via the --verbose flag.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Fields are structured key/values attached to a log line.
type Fields map[string]any

var (
	mu      sync.RWMutex
	verbose bool
	format            = FormatText
	output  io.Writer = os.Stderr
	base              = build()
)

// build creates the slog logger for the current settings. Callers hold mu.
func build() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
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
	base = build()
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
	base = build()
}

// SetFormat switches between "text" and "json" output.
// Unknown formats fall back to text.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if f != FormatJSON {
		f = FormatText
	}
	format = f
	base = build()
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Debug prints a message if verbose mode is enabled.
func Debug(msgFormat string, args ...any) {
	current().Debug(fmt.Sprintf(msgFormat, args...))
}

// Section prints a section header if verbose mode is enabled.
func Section(name string) {
	current().Debug(fmt.Sprintf("=== %s ===", name))
}

// Info prints an informational message.
func Info(msgFormat string, args ...any) {
	current().Info(fmt.Sprintf(msgFormat, args...))
}

// Warn prints a warning message.
func Warn(msgFormat string, args ...any) {
	current().Warn(fmt.Sprintf(msgFormat, args...))
}

// Error prints an error message.
func Error(msgFormat string, args ...any) {
	current().Error(fmt.Sprintf(msgFormat, args...))
}

// InfoFields prints msg with structured fields in stable key order.
func InfoFields(msg string, fields Fields) {
	current().Info(msg, attrs(fields)...)
}

// WarnFields prints a warning with structured fields in stable key order.
func WarnFields(msg string, fields Fields) {
	current().Warn(msg, attrs(fields)...)
}

func attrs(fields Fields) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
