package app

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Logger interface for app layer
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Level is the minimum severity a writerLogger prints
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelOff
)

// writerLogger writes prefixed lines to an io.Writer, dropping anything below min
type writerLogger struct {
	mu     sync.Mutex
	output io.Writer
	min    Level
}

// NewWriterLogger returns a Logger printing messages at or above min to w
func NewWriterLogger(w io.Writer, min Level) Logger {
	return &writerLogger{output: w, min: min}
}

// NopLogger returns a Logger that discards everything
func NopLogger() Logger {
	return &writerLogger{output: io.Discard, min: LevelOff}
}

func (l *writerLogger) log(level Level, prefix, format string, args ...interface{}) {
	if level < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.output, prefix+format+"\n", args...)
}

func (l *writerLogger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, "DEBUG: ", format, args...)
}

func (l *writerLogger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, "INFO: ", format, args...)
}

func (l *writerLogger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, "WARN: ", format, args...)
}

func (l *writerLogger) Error(format string, args ...interface{}) {
	l.log(LevelError, "ERROR: ", format, args...)
}

// globalLogger is the logger instance used by app layer until the CLI installs its own
var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewWriterLogger(os.Stderr, LevelWarn)
)

// SetLogger sets the global logger for app layer
func SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// GetLogger returns the current logger
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
