// Package logs is a small leveled-logging backend in the style of
// daglabs-btcd's logger/logs packages: a Backend fans formatted records
// out to a set of writers, and per-subsystem Loggers are obtained from
// it by tag.
package logs

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Level is a logging severity.
type Level uint8

// Severity levels, lowest to highest. A Logger configured at a given
// Level emits that level and everything above it.
const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
	LevelOff
)

var levelNames = map[Level]string{
	LevelTrace:    "TRC",
	LevelDebug:    "DBG",
	LevelInfo:     "INF",
	LevelWarn:     "WRN",
	LevelError:    "ERR",
	LevelCritical: "CRT",
}

// Backend is the logging backend used to create all subsystem loggers.
// A single Backend is shared so that every subsystem writes through the
// same rotation/output pipeline.
type Backend struct {
	mtx     sync.Mutex
	writers []io.Writer
}

// NewBackend constructs a Backend that writes to the given writers.
func NewBackend(writers ...io.Writer) *Backend {
	return &Backend{writers: writers}
}

// Logger returns a named Logger bound to this backend, at LevelInfo by
// default.
func (b *Backend) Logger(subsystemTag string) *Logger {
	return &Logger{backend: b, tag: subsystemTag, level: LevelInfo}
}

func (b *Backend) write(p []byte) {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	for _, w := range b.writers {
		_, _ = w.Write(p)
	}
}

// Close closes every writer in the backend that supports it.
func (b *Backend) Close() error {
	b.mtx.Lock()
	defer b.mtx.Unlock()
	var firstErr error
	for _, w := range b.writers {
		if closer, ok := w.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// Logger is a per-subsystem leveled logger.
type Logger struct {
	backend *Backend
	tag     string
	level   Level
}

// SetLevel changes the minimum level this logger emits.
func (l *Logger) SetLevel(level Level) { l.level = level }

// Backend returns the logger's backend, mirroring the teacher's
// log.Backend().Close() shutdown idiom.
func (l *Logger) Backend() *Backend { return l.backend }

func (l *Logger) log(level Level, format string, args ...interface{}) {
	if level < l.level {
		return
	}
	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("%s [%s] %s %s\n",
		time.Now().UTC().Format("2006-01-02 15:04:05.000"), levelNames[level], l.tag, msg)
	l.backend.write([]byte(line))
}

// Tracef logs at LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) { l.log(LevelTrace, format, args...) }

// Debugf logs at LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }

// Infof logs at LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) { l.log(LevelInfo, format, args...) }

// Warnf logs at LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) { l.log(LevelWarn, format, args...) }

// Errorf logs at LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Criticalf logs at LevelCritical. Callers use this level immediately
// before a fail-stop halt.
func (l *Logger) Criticalf(format string, args ...interface{}) { l.log(LevelCritical, format, args...) }
