// Package logging configures the global zerolog logger for the CLI.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var logWriter io.Writer = zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: time.RFC3339,
}

// SetWriter overrides the log destination, mainly for tests.
func SetWriter(w io.Writer) {
	logWriter = w
}

// Configure sets up the global logger at the given level. Caller
// information is attached at debug and below.
func Configure(level zerolog.Level) {
	zerolog.SetGlobalLevel(level)

	logCtx := zerolog.New(logWriter).With().Timestamp()
	if level <= zerolog.DebugLevel {
		logCtx = logCtx.Caller()
	}

	log.Logger = logCtx.Logger().Level(level)
	zerolog.DefaultContextLogger = &log.Logger
}

// LevelFromVerbosity maps a repeatable -v flag count to a zerolog level.
func LevelFromVerbosity(count int) zerolog.Level {
	switch {
	case count <= 0:
		return zerolog.WarnLevel
	case count == 1:
		return zerolog.InfoLevel
	case count == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// ParseLevel converts a config string into a zerolog level, defaulting to
// warn on empty or invalid input.
func ParseLevel(levelStr string) zerolog.Level {
	if levelStr == "" {
		return zerolog.WarnLevel
	}
	level, err := zerolog.ParseLevel(levelStr)
	if err != nil {
		log.Error().Err(err).Str("level", levelStr).Msg("invalid log level, defaulting to warn")
		return zerolog.WarnLevel
	}
	return level
}
