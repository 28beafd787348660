package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// SetupLogger configures the process logger with timestamps on stderr.
func SetupLogger(debug bool) *log.Logger {
	return SetupLoggerTo(os.Stderr, debug)
}

// SetupLoggerTo is SetupLogger writing to w; the TUI client uses it to keep
// log lines off the alternate screen.
func SetupLoggerTo(w io.Writer, debug bool) *log.Logger {
	level := log.InfoLevel
	if debug {
		level = log.DebugLevel
	}
	return log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
	})
}
