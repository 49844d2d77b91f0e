package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger.
func Setup(level string, pretty bool) {
	SetupWriter(os.Stdout, level, pretty)
}

// SetupWriter is Setup with an explicit output.
func SetupWriter(out io.Writer, level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// Room returns a logger tagged with a room code.
func Room(code string) zerolog.Logger {
	return log.With().Str("room", code).Logger()
}
