package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Setup initializes a zerolog.Logger based on the requested format.
// format can be "text" (human-friendly console) or "json" (structured).
func Setup(format string) zerolog.Logger {
	return SetupWriter(format, os.Stderr)
}

// SetupWriter is Setup with an explicit destination.
func SetupWriter(format string, w io.Writer) zerolog.Logger {
	if format == "text" {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}
