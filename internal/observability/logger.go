// Package observability provides the structured logging and metrics stack
// shared by every component of the file handler service. Loggers emit one
// JSON object per line to stdout so the surrounding pipeline can ship them
// as line-oriented text; metrics are Prometheus-compatible.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Level represents the severity of a log message
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// ParseLevel converts a string representation to a Level.
// Unrecognized levels default to InfoLevel.
func ParseLevel(level string) Level {
	switch level {
	case "debug":
		return DebugLevel
	case "info":
		return InfoLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

// Logger defines the contract for structured logging. Fields are passed as
// alternating key/value pairs, e.g. logger.Info("extracted", "path", p).
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})

	// WithFields returns a new Logger whose entries all carry the given fields
	WithFields(fields map[string]interface{}) Logger
}

// jsonLogger writes JSON-formatted log entries to a single writer
type jsonLogger struct {
	mu          *sync.Mutex
	output      io.Writer
	serviceName string
	minLevel    Level
	fields      map[string]interface{}
}

// NewLogger creates a leveled JSON logger. If output is nil it defaults to stdout.
func NewLogger(serviceName, level string, output io.Writer) Logger {
	if output == nil {
		output = os.Stdout
	}
	return &jsonLogger{
		mu:          &sync.Mutex{},
		output:      output,
		serviceName: serviceName,
		minLevel:    ParseLevel(level),
		fields:      make(map[string]interface{}),
	}
}

func (l *jsonLogger) Debug(msg string, fields ...interface{}) { l.log(DebugLevel, msg, fields...) }
func (l *jsonLogger) Info(msg string, fields ...interface{})  { l.log(InfoLevel, msg, fields...) }
func (l *jsonLogger) Warn(msg string, fields ...interface{})  { l.log(WarnLevel, msg, fields...) }
func (l *jsonLogger) Error(msg string, fields ...interface{}) { l.log(ErrorLevel, msg, fields...) }

// WithFields returns a new Logger with additional persistent fields
func (l *jsonLogger) WithFields(fields map[string]interface{}) Logger {
	combined := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		combined[k] = v
	}
	for k, v := range fields {
		combined[k] = v
	}
	return &jsonLogger{
		mu:          l.mu,
		output:      l.output,
		serviceName: l.serviceName,
		minLevel:    l.minLevel,
		fields:      combined,
	}
}

func (l *jsonLogger) log(level Level, msg string, fields ...interface{}) {
	if level < l.minLevel {
		return
	}

	entry := make(map[string]interface{}, len(l.fields)+len(fields)/2+4)
	entry["timestamp"] = time.Now().UTC().Format(time.RFC3339)
	entry["level"] = level.String()
	entry["service"] = l.serviceName
	entry["message"] = msg

	for k, v := range l.fields {
		entry[k] = v
	}

	// Parse variadic fields (key1, value1, key2, value2, ...)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		if err, ok := fields[i+1].(error); ok && err != nil {
			entry[key] = err.Error()
			continue
		}
		entry[key] = fields[i+1]
	}

	jsonBytes, err := json.Marshal(entry)
	if err != nil {
		// Fall back to a plain line rather than dropping the message
		jsonBytes = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, level.String(), msg))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.output.Write(append(jsonBytes, '\n'))
}

// NopLogger discards everything. Useful in tests.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}

func (n NopLogger) WithFields(map[string]interface{}) Logger { return n }
