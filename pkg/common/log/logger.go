// Package log provides the leveled logger shared by aodkit components.
package log

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"sync"
	"time"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	// LevelFatal messages are followed by a call to the logger's exit function
	LevelFatal
)

var levelNames = [...]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

// String returns the upper case level name
func (l Level) String() string {
	if l < LevelDebug || l > LevelFatal {
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel converts a level name as used in config files and flags.
// Matching is case insensitive and an empty name means info.
func ParseLevel(name string) (Level, error) {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return LevelInfo, nil
	case strings.EqualFold(name, "warning"):
		return LevelWarn, nil
	}
	for l, n := range levelNames {
		if strings.EqualFold(name, n) {
			return Level(l), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// Logger writes leveled, printf style messages with attached fields
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	// Fatal logs the message and exits the process
	Fatal(msg string, args ...any)

	// WithFields returns a child logger carrying fields in addition to the
	// receiver's own
	WithFields(fields map[string]any) Logger
	WithField(key string, value any) Logger

	GetLevel() Level
	SetLevel(level Level)
}

// StandardLogger implements Logger with a line oriented format:
//
//	[2006-01-02 15:04:05.000] [INFO] component=task events=3 message
//
// Fields are written in key order. Children created by WithFields share the
// parent's writer and start at the parent's level.
type StandardLogger struct {
	mu     *sync.Mutex
	level  Level
	out    io.Writer
	fields map[string]any
	exit   func(int)
}

// LoggerOption configures a StandardLogger
type LoggerOption func(*StandardLogger)

// WithLevel sets the minimum level written
func WithLevel(level Level) LoggerOption {
	return func(l *StandardLogger) {
		l.level = level
	}
}

// WithOutput sets the writer, os.Stderr by default
func WithOutput(out io.Writer) LoggerOption {
	return func(l *StandardLogger) {
		l.out = out
	}
}

// WithExitFunc replaces os.Exit for fatal messages
func WithExitFunc(exit func(int)) LoggerOption {
	return func(l *StandardLogger) {
		l.exit = exit
	}
}

// NewStandardLogger creates an info level logger writing to stderr
func NewStandardLogger(options ...LoggerOption) *StandardLogger {
	logger := &StandardLogger{
		mu:     &sync.Mutex{},
		level:  LevelInfo,
		out:    os.Stderr,
		fields: map[string]any{},
		exit:   os.Exit,
	}
	for _, option := range options {
		option(logger)
	}
	return logger
}

func (l *StandardLogger) write(level Level, msg string, args []any) {
	if level < l.GetLevel() {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s]", time.Now().Format("2006-01-02 15:04:05.000"), level)
	for _, k := range slices.Sorted(maps.Keys(l.fields)) {
		fmt.Fprintf(&b, " %s=%v", k, l.fields[k])
	}
	b.WriteByte(' ')
	b.WriteString(msg)
	b.WriteByte('\n')

	l.mu.Lock()
	io.WriteString(l.out, b.String())
	l.mu.Unlock()

	if level == LevelFatal {
		l.exit(1)
	}
}

func (l *StandardLogger) Debug(msg string, args ...any) { l.write(LevelDebug, msg, args) }
func (l *StandardLogger) Info(msg string, args ...any)  { l.write(LevelInfo, msg, args) }
func (l *StandardLogger) Warn(msg string, args ...any)  { l.write(LevelWarn, msg, args) }
func (l *StandardLogger) Error(msg string, args ...any) { l.write(LevelError, msg, args) }
func (l *StandardLogger) Fatal(msg string, args ...any) { l.write(LevelFatal, msg, args) }

// WithFields implements Logger
func (l *StandardLogger) WithFields(fields map[string]any) Logger {
	child := &StandardLogger{
		mu:     l.mu,
		level:  l.GetLevel(),
		out:    l.out,
		fields: maps.Clone(l.fields),
		exit:   l.exit,
	}
	if child.fields == nil {
		child.fields = make(map[string]any, len(fields))
	}
	maps.Copy(child.fields, fields)
	return child
}

// WithField implements Logger
func (l *StandardLogger) WithField(key string, value any) Logger {
	return l.WithFields(map[string]any{key: value})
}

// GetLevel returns the current logging level
func (l *StandardLogger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// SetLevel changes the level of this logger only, not of its children
func (l *StandardLogger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

var defaultLogger = NewStandardLogger()

// SetDefaultLogger replaces the logger used when components get none
func SetDefaultLogger(logger *StandardLogger) {
	defaultLogger = logger
}

// GetDefaultLogger returns the default logger instance
func GetDefaultLogger() *StandardLogger {
	return defaultLogger
}

// WithComponent scopes logger to a named component. A nil logger falls back
// to the default logger.
func WithComponent(logger Logger, component string) Logger {
	if logger == nil {
		logger = defaultLogger
	}
	return logger.WithField("component", component)
}

// Discard returns a logger that drops everything below LevelFatal
func Discard() Logger {
	return NewStandardLogger(WithOutput(io.Discard), WithLevel(LevelFatal))
}
