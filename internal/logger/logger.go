// Package logger provides leveled, structured event logging for citecheck.
//
// The pipeline reports what it is doing (pages located, lookups attempted,
// challenges encountered) through the Logger interface. Whether those events
// go to stderr, a log file, both, or nowhere is decided by the command that
// builds the logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log event.
type Level int

const (
	// LevelDebug is for detailed tracing (enabled with --verbose).
	LevelDebug Level = iota
	// LevelInfo is for progress messages.
	LevelInfo
	// LevelWarn is for recoverable per-reference failures.
	LevelWarn
	// LevelError is for failures that stop the run.
	LevelError
)

// String returns the string representation of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Field is a key-value pair attached to an event.
type Field struct {
	Key   string
	Value any
}

// String creates a string field.
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Int creates an integer field.
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a boolean field.
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field.
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value}
}

// Err creates an error field.
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Logger is the event sink used throughout the pipeline.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, err error, fields ...Field)
}

// WriterLogger writes events as single text lines to one or more writers.
type WriterLogger struct {
	mu         sync.Mutex
	writers    []io.Writer
	level      Level
	timeFormat string
	now        func() time.Time
}

// Option configures a WriterLogger.
type Option func(*WriterLogger)

// WithLevel sets the minimum level that is written.
func WithLevel(level Level) Option {
	return func(l *WriterLogger) {
		l.level = level
	}
}

// WithWriter adds an additional destination (e.g. a mirrored log file).
func WithWriter(w io.Writer) Option {
	return func(l *WriterLogger) {
		l.writers = append(l.writers, w)
	}
}

// WithClock overrides the time source (for testing).
func WithClock(now func() time.Time) Option {
	return func(l *WriterLogger) {
		l.now = now
	}
}

// New creates a WriterLogger writing to w at LevelInfo.
func New(w io.Writer, opts ...Option) *WriterLogger {
	l := &WriterLogger{
		writers:    []io.Writer{w},
		level:      LevelInfo,
		timeFormat: "15:04:05",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// NewStderr creates a WriterLogger on stderr.
func NewStderr(opts ...Option) *WriterLogger {
	return New(os.Stderr, opts...)
}

// SetLevel changes the minimum level.
func (l *WriterLogger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// Debug logs a debug event.
func (l *WriterLogger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

// Info logs an informational event.
func (l *WriterLogger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

// Warn logs a warning event.
func (l *WriterLogger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

// Error logs an error event. A nil err is omitted.
func (l *WriterLogger) Error(msg string, err error, fields ...Field) {
	if err != nil {
		fields = append(fields, Err(err))
	}
	l.log(LevelError, msg, fields)
}

func (l *WriterLogger) log(level Level, msg string, fields []Field) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	line := formatLine(l.now().Format(l.timeFormat), level, msg, fields)
	for _, w := range l.writers {
		// A failing destination must not take the others down with it.
		_, _ = io.WriteString(w, line)
	}
}

// formatLine renders "15:04:05 [LEVEL] msg key=value ...\n".
func formatLine(ts string, level Level, msg string, fields []Field) string {
	var b strings.Builder
	b.WriteString(ts)
	b.WriteString(" [")
	b.WriteString(level.String())
	b.WriteString("] ")
	b.WriteString(msg)
	for _, f := range fields {
		b.WriteByte(' ')
		b.WriteString(f.Key)
		b.WriteByte('=')
		b.WriteString(formatValue(f.Value))
	}
	b.WriteByte('\n')
	return b.String()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "<nil>"
	case string:
		if strings.ContainsAny(val, " \t\"=") {
			return fmt.Sprintf("%q", val)
		}
		return val
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Debug(string, ...Field)        {}
func (Nop) Info(string, ...Field)         {}
func (Nop) Warn(string, ...Field)         {}
func (Nop) Error(string, error, ...Field) {}

var (
	_ Logger = (*WriterLogger)(nil)
	_ Logger = Nop{}
)
