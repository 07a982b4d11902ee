package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the process logger. Development gets a human readable
// console writer, everything else emits JSON lines.
func Init(environment, level string) {
	var out io.Writer = os.Stdout
	if environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	base = zerolog.New(out).Level(lvl).With().Timestamp().Caller().Str("service", "woonruil").Logger()
}

// SetOutput redirects log output, used by tests.
func SetOutput(w io.Writer) {
	base = base.Output(w)
}

// L returns the structured logger for callers that want fields.
func L() *zerolog.Logger {
	return &base
}

func Info(format string, v ...interface{}) {
	base.Info().CallerSkipFrame(1).Msgf(format, v...)
}

func Error(format string, v ...interface{}) {
	base.Error().CallerSkipFrame(1).Msgf(format, v...)
}

func Debug(format string, v ...interface{}) {
	base.Debug().CallerSkipFrame(1).Msgf(format, v...)
}

func Warn(format string, v ...interface{}) {
	base.Warn().CallerSkipFrame(1).Msgf(format, v...)
}

// WithContext prefixes a message with a context value, e.g. a request id.
func WithContext(ctx interface{}, format string, v ...interface{}) string {
	if ctx == nil {
		return fmt.Sprintf(format, v...)
	}
	return fmt.Sprintf("[%v] %s", ctx, fmt.Sprintf(format, v...))
}
