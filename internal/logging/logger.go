// Package logging defines the structured logger passed through every apitool pipeline.
// It is a thin adapter over zerolog so callers depend on an interface, not on zerolog itself.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the contract used by the parser, the generator and the mock server.
type Logger interface {
	Debug() LogEvent
	Info() LogEvent
	Warn() LogEvent
	Error() LogEvent
	WithFields(fields map[string]any) Logger
}

// LogEvent is a log entry under construction; it is emitted by Msg or Msgf.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Bool(key string, value bool) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
}

// ZeroLogger implements Logger on top of zerolog.
type ZeroLogger struct {
	zlog *zerolog.Logger
}

var _ Logger = (*ZeroLogger)(nil)

var callerMarshalOnce sync.Once

// New creates a logger writing to stderr. Unknown levels fall back to info.
func New(level string, pretty bool) *ZeroLogger {
	return NewWithWriter(os.Stderr, level, pretty)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(w io.Writer, level string, pretty bool) *ZeroLogger {
	callerMarshalOnce.Do(func() {
		zerolog.CallerMarshalFunc = func(_ uintptr, file string, line int) string {
			base := filepath.Base(file)
			parent := filepath.Base(filepath.Dir(file))
			if parent != "." && parent != "" {
				return parent + "/" + base + ":" + strconv.Itoa(line)
			}
			return base + ":" + strconv.Itoa(line)
		}
	})

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: w != os.Stderr && w != os.Stdout}
	}
	l := zerolog.New(w).With().Timestamp().Logger()

	zLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zLevel = zerolog.InfoLevel
	}
	l = l.Level(zLevel)

	return &ZeroLogger{zlog: &l}
}

// Nop returns a logger that discards everything.
func Nop() *ZeroLogger {
	l := zerolog.Nop()
	return &ZeroLogger{zlog: &l}
}

// Debug starts a debug-level event.
func (l *ZeroLogger) Debug() LogEvent { return &eventAdapter{event: l.zlog.Debug()} }

// Info starts an info-level event.
func (l *ZeroLogger) Info() LogEvent { return &eventAdapter{event: l.zlog.Info()} }

// Warn starts a warn-level event.
func (l *ZeroLogger) Warn() LogEvent { return &eventAdapter{event: l.zlog.Warn()} }

// Error starts an error-level event.
func (l *ZeroLogger) Error() LogEvent { return &eventAdapter{event: l.zlog.Error()} }

// WithFields returns a child logger carrying fields on every entry.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	child := l.zlog.With().Fields(fields).Logger()
	return &ZeroLogger{zlog: &child}
}

// eventAdapter adapts *zerolog.Event to LogEvent. A nil event (level disabled) is
// handled by zerolog itself.
type eventAdapter struct {
	event *zerolog.Event
}

func (e *eventAdapter) Msg(msg string) { e.event.Msg(msg) }

func (e *eventAdapter) Msgf(format string, args ...any) { e.event.Msgf(format, args...) }

func (e *eventAdapter) Err(err error) LogEvent { return &eventAdapter{event: e.event.Err(err)} }

func (e *eventAdapter) Str(key, value string) LogEvent {
	return &eventAdapter{event: e.event.Str(key, value)}
}

func (e *eventAdapter) Int(key string, value int) LogEvent {
	return &eventAdapter{event: e.event.Int(key, value)}
}

func (e *eventAdapter) Bool(key string, value bool) LogEvent {
	return &eventAdapter{event: e.event.Bool(key, value)}
}

func (e *eventAdapter) Dur(key string, d time.Duration) LogEvent {
	return &eventAdapter{event: e.event.Dur(key, d)}
}

func (e *eventAdapter) Interface(key string, i any) LogEvent {
	return &eventAdapter{event: e.event.Interface(key, i)}
}
