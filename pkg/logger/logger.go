// Package logger wraps zerolog's global logger behind package-level helpers
// so call sites stay one line. Payment reconciliation paths log structured
// fields (order ids, sources, statuses) through the fields map.
package logger

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global logger. Development gets the console writer,
// every other environment emits JSON for log aggregation.
func Init(env string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if env == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

func Info(msg string, fields map[string]interface{}) {
	log.Info().Fields(fields).Msg(msg)
}

func Debug(msg string) {
	log.Debug().Msg(msg)
}

// Warn carries anomalies that need an operator's eye but not a page:
// conflicting terminal statuses, unverified webhook deliveries in test mode.
func Warn(msg string, fields map[string]interface{}) {
	log.Warn().Fields(fields).Msg(msg)
}

func Error(msg string, err error) {
	log.Error().Err(err).Msg(msg)
}
