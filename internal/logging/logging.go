// Package logging configures the process-wide slog logger and the plain
// console logger used for verbose command echo.
package logging

import (
	"io"
	"log"
	"log/slog"
	"os"
	"sync/atomic"

	"charm.land/lipgloss/v2"
	charmlog "github.com/charmbracelet/log"

	"github.com/yaklabco/stipple/internal/env"
	"github.com/yaklabco/stipple/internal/ui"
)

// VerboseEnv turns on verbose output when set to a truthy value.
const VerboseEnv = env.Prefix + "VERBOSE"

// DebugEnv turns on debug logging when set to a truthy value.
const DebugEnv = env.Prefix + "DEBUG"

var verbose atomic.Bool //nolint:gochecknoglobals // process-wide switch

// SetVerbose turns verbose console output on or off.
func SetVerbose(v bool) {
	verbose.Store(v)
}

// Verbose reports whether verbose console output is on.
func Verbose() bool {
	return verbose.Load() || env.FailsafeParseBoolEnv(VerboseEnv, false)
}

// SimpleConsoleLogger is an unstructured logger for short console messages
// in verbose mode.
//
//nolint:gochecknoglobals // unchanged for the lifetime of the process
var SimpleConsoleLogger = log.New(os.Stderr, lipgloss.NewStyle().Foreground(ui.GetFangScheme().Flag).Render("[STIPPLE] "), 0)

// SetupPrettyLogger installs a charmbracelet/log handler as the slog default
// and returns it so callers can change its level.
func SetupPrettyLogger(w io.Writer) *charmlog.Logger {
	handler := charmlog.NewWithOptions(
		w,
		charmlog.Options{
			Level:           charmlog.InfoLevel,
			ReportTimestamp: true,
			ReportCaller:    true,
		},
	)
	slog.SetDefault(slog.New(handler))

	return handler
}

// ApplyLevel sets the handler level from the debug and verbose switches.
func ApplyLevel(handler *charmlog.Logger, debug bool) {
	switch {
	case debug || env.FailsafeParseBoolEnv(DebugEnv, false):
		handler.SetLevel(charmlog.DebugLevel)
	default:
		handler.SetLevel(charmlog.InfoLevel)
	}
}
