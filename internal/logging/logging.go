// Package logging builds the logr.Logger used throughout hostprep, backed by
// zerolog console output.
package logging

import (
	"io"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zerologr"
	"github.com/rs/zerolog"
)

// MaxVerbosity is the highest useful verbosity; V(2) maps to zerolog trace.
const MaxVerbosity = 2

// New returns a logger writing human-readable lines to w. Verbosity 0 shows
// info and errors, 1 adds every remote command, 2 adds trace output.
func New(w io.Writer, verbosity int, color bool) logr.Logger {
	if verbosity < 0 {
		verbosity = 0
	}
	if verbosity > MaxVerbosity {
		verbosity = MaxVerbosity
	}

	writer := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !color}
	zl := zerolog.New(writer).Level(zerolog.Level(1 - verbosity)).With().Timestamp().Logger()
	return zerologr.New(&zl)
}
