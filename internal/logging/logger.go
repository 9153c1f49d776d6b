// Package logging builds the structured zerolog logger used throughout
// cloudvar-server. Adapted from the teacher's monitoring.NewLogger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds a zerolog.Logger configured from level/format strings as parsed
// by internal/config.Config.
//
//   - level: "debug", "info", "warn", "error"
//   - format: "json" (default, Loki/Promtail-friendly) or "pretty" (human
//     console output for local development)
func New(level, format string) zerolog.Logger {
	var output io.Writer = os.Stdout

	var lvl zerolog.Level
	switch level {
	case "debug":
		lvl = zerolog.DebugLevel
	case "warn":
		lvl = zerolog.WarnLevel
	case "error":
		lvl = zerolog.ErrorLevel
	default:
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Str("service", "cloudvar-server").
		Logger()
}
