package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger is the process-wide logger set by Init
var Logger = zerolog.Nop()

// New builds a logger writing to out. Format "json" emits one JSON object per
// line; anything else uses the human-readable console writer.
func New(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	lvl := parseLogLevel(level)
	if lvl == zerolog.Disabled {
		return zerolog.Nop()
	}

	if strings.ToLower(format) != "json" {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    !isTerminal(out),
		}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}

// Init configures the process-wide logger. CLI output goes to stdout, so logs
// go to stderr.
func Init(level, format string) zerolog.Logger {
	Logger = New(level, format, os.Stderr)
	log.Logger = Logger
	return Logger
}

// parseLogLevel parses string log level to zerolog level
func parseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// GetLogger returns the configured logger instance
func GetLogger() zerolog.Logger {
	return Logger
}
