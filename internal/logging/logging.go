// Package logging wraps zerolog into the small call-site surface the
// rest of this module uses: Info/Debug/Warn/Error plus With for adding
// persistent fields to a scoped logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is a structured, leveled logger. The zero value is not usable;
// construct one with New.
type Logger struct {
	z zerolog.Logger
}

// New builds a Logger that writes JSON lines to w at the given level.
// Pass "" for level to default to info.
func New(w io.Writer, level string) Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	z := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
	return Logger{z: z}
}

// NewFromEnv builds a Logger writing to stdout, honoring LOG_LEVEL.
func NewFromEnv() Logger {
	return New(os.Stdout, os.Getenv("LOG_LEVEL"))
}

// With returns a child logger carrying the given key/value pairs on
// every subsequent record. fields must be an even-length list of
// alternating string keys and values.
func (l Logger) With(fields ...any) Logger {
	ctx := l.z.With()
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		ctx = ctx.Interface(key, fields[i+1])
	}
	return Logger{z: ctx.Logger()}
}

func (l Logger) Debug(msg string, fields ...any) { applyFields(l.z.Debug(), fields).Msg(msg) }
func (l Logger) Info(msg string, fields ...any)  { applyFields(l.z.Info(), fields).Msg(msg) }
func (l Logger) Warn(msg string, fields ...any)  { applyFields(l.z.Warn(), fields).Msg(msg) }

func (l Logger) Error(msg string, err error, fields ...any) {
	ev := l.z.Error()
	if err != nil {
		ev = ev.Err(err)
	}
	applyFields(ev, fields).Msg(msg)
}

func applyFields(e *zerolog.Event, fields []any) *zerolog.Event {
	for i := 0; i+1 < len(fields); i += 2 {
		key, _ := fields[i].(string)
		e = e.Interface(key, fields[i+1])
	}
	return e
}
