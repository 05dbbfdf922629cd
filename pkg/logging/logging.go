package logging

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ParseLevel maps a level name to a zerolog level. Unknown names fall back to warn.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled":
		return zerolog.Disabled
	default:
		return zerolog.WarnLevel
	}
}

// New creates a logger writing to w. The interactive tool logs in console
// format; json switches to one JSON object per line for the server.
func New(level string, w io.Writer, json bool) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	lvl := ParseLevel(level)

	out := w
	if !json {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: true}
	}

	ctx := zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("service", "go-sqladvisor")

	if lvl == zerolog.DebugLevel {
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			short := file
			if i := strings.LastIndex(file, "/"); i >= 0 {
				short = file[i+1:]
			}
			return fmt.Sprintf("%s:%d", short, line)
		}
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}
