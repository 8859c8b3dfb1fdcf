// Package logging provides the structured, leveled logger used
// throughout the server and client, wrapping go-kit's log package the
// way the teacher's common/logging package wraps its own backend.
package logging

import (
	"os"
	"sync"

	kitlog "github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Level selects the minimum severity that reaches the output.
type Level int

const (
	// LevelDebug logs everything.
	LevelDebug Level = iota
	// LevelInfo logs info, warn, and error.
	LevelInfo
	// LevelWarn logs warn and error.
	LevelWarn
	// LevelError logs only error.
	LevelError
)

var (
	mu        sync.Mutex
	baseLevel = LevelInfo
	base      = kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
)

// SetLevel sets the process-wide minimum log level. It affects all
// loggers returned by GetLogger, including ones already constructed.
func SetLevel(l Level) {
	mu.Lock()
	defer mu.Unlock()
	baseLevel = l
}

// Logger is a named, leveled logger.
type Logger struct {
	module string
	logger kitlog.Logger
}

// GetLogger returns a logger scoped to the given module name, following
// the logging.GetLogger("module/name") idiom used throughout the
// teacher repo.
func GetLogger(module string) *Logger {
	return &Logger{
		module: module,
		logger: kitlog.With(base, "module", module, "ts", kitlog.DefaultTimestampUTC),
	}
}

func (l *Logger) currentLevel() Level {
	mu.Lock()
	defer mu.Unlock()
	return baseLevel
}

func (l *Logger) log(lvl level.Value, msg string, keyvals ...interface{}) {
	args := append([]interface{}{"msg", msg}, keyvals...)
	_ = level.NewFilter(l.logger, toKitLevel(l.currentLevel())).Log(
		append([]interface{}{"level", lvl}, args...)...,
	)
}

func toKitLevel(l Level) level.Option {
	switch l {
	case LevelDebug:
		return level.AllowDebug()
	case LevelWarn:
		return level.AllowWarn()
	case LevelError:
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string, keyvals ...interface{}) {
	l.log(level.DebugValue(), msg, keyvals...)
}

// Info logs at info level.
func (l *Logger) Info(msg string, keyvals ...interface{}) {
	l.log(level.InfoValue(), msg, keyvals...)
}

// Warn logs at warn level.
func (l *Logger) Warn(msg string, keyvals ...interface{}) {
	l.log(level.WarnValue(), msg, keyvals...)
}

// Error logs at error level.
func (l *Logger) Error(msg string, keyvals ...interface{}) {
	l.log(level.ErrorValue(), msg, keyvals...)
}
