// Package-level structured logging, grounded on the teacher's logging.go:
// a small Logger interface so the scheduler's ambient log statements don't
// hard-depend on any particular backend, plus a zero-dependency default and
// a [github.com/joeycumines/logiface] adapter for callers who already use
// that ecosystem (zerolog/logrus/stumpy-backed loggers, via logiface.Logger).
package gosched

import (
	"fmt"
	"log"
	"os"
	"sync"

	"github.com/joeycumines/logiface"
)

// LogLevel mirrors the teacher's four-level scheme.
type LogLevel int32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
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

// LogField is a single structured key/value pair attached to a log entry.
type LogField struct {
	Key   string
	Value any
}

// LogEntry is the structured record passed to Logger.Log.
type LogEntry struct {
	Level   LogLevel
	Message string
	Fields  []LogField
	Err     error
}

// Logger is the structured logging interface the scheduler writes to. It
// is deliberately narrow — one method — so any backend (the homegrown
// DefaultLogger, a logiface adapter, or a caller's own type) can implement
// it without pulling in scheduler-specific types.
type Logger interface {
	Log(entry LogEntry)
}

// F is a convenience constructor for a LogField, used at call sites:
//
//	logger.Log(LogEntry{Level: LevelDebug, Message: "task started", Fields: []LogField{F("taskID", id)}})
func F(key string, value any) LogField { return LogField{Key: key, Value: value} }

// NoOpLogger discards every entry; it is the default when no [Logger] is
// configured via [WithLogger].
type NoOpLogger struct{}

// NewNoOpLogger returns a Logger that discards all entries.
func NewNoOpLogger() *NoOpLogger { return &NoOpLogger{} }

func (*NoOpLogger) Log(LogEntry) {}

// DefaultLogger is a minimal io.Writer-backed [Logger] with level
// filtering, used when a caller wants visible output without wiring in a
// full logiface backend.
type DefaultLogger struct {
	mu    sync.Mutex
	level LogLevel
	out   *log.Logger
}

// NewDefaultLogger returns a DefaultLogger writing to os.Stderr, filtering
// out entries below level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		level: level,
		out:   log.New(os.Stderr, "", log.LstdFlags),
	}
}

func (l *DefaultLogger) Log(entry LogEntry) {
	if entry.Level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := fmt.Sprintf("[%s] %s", entry.Level, entry.Message)
	for _, f := range entry.Fields {
		msg += fmt.Sprintf(" %s=%v", f.Key, f.Value)
	}
	if entry.Err != nil {
		msg += fmt.Sprintf(" err=%v", entry.Err)
	}
	l.out.Print(msg)
}

// logifaceEvent is a minimal logiface.Event implementation, following the
// same shape the teacher's own test suite uses to exercise the generic
// Logger[Event] surface (coverage_extra_test.go's testEvent).
type logifaceEvent struct {
	logiface.UnimplementedEvent
	level  logiface.Level
	fields []LogField
	msg    string
	err    error
}

func (e *logifaceEvent) Level() logiface.Level { return e.level }

func (e *logifaceEvent) AddField(key string, val any) {
	e.fields = append(e.fields, LogField{Key: key, Value: val})
}

func (e *logifaceEvent) AddMessage(msg string) bool {
	e.msg = msg
	return true
}

func (e *logifaceEvent) AddError(err error) bool {
	e.err = err
	return true
}

// logifaceLogger adapts a [logiface.Logger[logiface.Event]] (the
// type-erased form returned by (*logiface.Logger[E]).Logger()) to our
// [Logger] interface, so callers already using logiface for their
// application's logging can reuse the same sinks for scheduler events.
type logifaceLogger struct {
	logger *logiface.Logger[logiface.Event]
}

// NewLogifaceLogger adapts an existing logiface logger for use as a
// scheduler [Logger]. Pass the result of (*logiface.Logger[E]).Logger().
func NewLogifaceLogger(l *logiface.Logger[logiface.Event]) Logger {
	return &logifaceLogger{logger: l}
}

func (l *logifaceLogger) Log(entry LogEntry) {
	var b *logiface.Builder[logiface.Event]
	switch entry.Level {
	case LevelDebug:
		b = l.logger.Debug()
	case LevelInfo:
		b = l.logger.Info()
	case LevelWarn:
		b = l.logger.Warning()
	case LevelError:
		b = l.logger.Err()
	default:
		b = l.logger.Info()
	}
	if b == nil {
		return
	}
	for _, f := range entry.Fields {
		switch v := f.Value.(type) {
		case string:
			b = b.Str(f.Key, v)
		case int:
			b = b.Int(f.Key, v)
		case int64:
			b = b.Int64(f.Key, v)
		case uint64:
			b = b.Uint64(f.Key, v)
		default:
			b = b.Any(f.Key, v)
		}
	}
	if entry.Err != nil {
		b = b.Err(entry.Err)
	}
	b.Log(entry.Message)
}
