// Package logger provides structured logging for the conductor service.
//
// It wraps logrus to provide:
//   - JSON or text output at a configurable level (debug, info, warn, error)
//   - Entry helpers for thermostat, group and API endpoint context
//   - Variadic key/value fields on the level methods
//
// Example usage:
//
//	log, err := logger.New("info", "json")
//	if err != nil {
//		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
//	}
//	log.Info("Conductor started", "port", 9100)
//	log.WithThermostat("1234567").WithError(err).Warn("Failed to refresh thermostat")
package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// missingValue is logged for a trailing key without a value
const missingValue = "(MISSING)"

var formatters = map[string]func() logrus.Formatter{
	"json": func() logrus.Formatter {
		return &logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"}
	},
	"text": func() logrus.Formatter {
		return &logrus.TextFormatter{TimestampFormat: "2006-01-02 15:04:05", FullTimestamp: true}
	},
}

// Logger wraps logrus.Logger with convenience methods
type Logger struct {
	*logrus.Logger
}

// New creates a logger writing to stderr
func New(level, format string) (*Logger, error) {
	return NewWithWriter(level, format, os.Stderr)
}

// NewWithWriter creates a logger writing to out
func NewWithWriter(level, format string, out io.Writer) (*Logger, error) {
	parsedLevel, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s", level)
	}
	newFormatter, ok := formatters[format]
	if !ok {
		return nil, fmt.Errorf("invalid log format: %s (must be 'json' or 'text')", format)
	}

	log := logrus.New()
	log.SetLevel(parsedLevel)
	log.SetOutput(out)
	log.SetFormatter(newFormatter())
	return &Logger{log}, nil
}

// Nop returns a logger that discards everything
func Nop() *Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return &Logger{log}
}

// WithError returns an entry carrying the error message
func (l *Logger) WithError(err error) *logrus.Entry {
	return l.WithField("error", err.Error())
}

// WithThermostat returns an entry scoped to one thermostat serial number
func (l *Logger) WithThermostat(serial string) *logrus.Entry {
	return l.WithField("thermostat_id", serial)
}

// WithGroup returns an entry scoped to one thermostat group
func (l *Logger) WithGroup(groupID string) *logrus.Entry {
	return l.WithField("group_id", groupID)
}

// WithEndpoint returns an entry scoped to one NuHeat or HTTP endpoint
func (l *Logger) WithEndpoint(method, path string) *logrus.Entry {
	return l.WithFields(logrus.Fields{"method": method, "endpoint": path})
}

// Info logs at info level with optional key/value pairs
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.entry(kv).Info(msg)
}

// Debug logs at debug level with optional key/value pairs
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.entry(kv).Debug(msg)
}

// Warn logs at warn level with optional key/value pairs
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.entry(kv).Warn(msg)
}

// Error logs at error level with optional key/value pairs
func (l *Logger) Error(msg string, kv ...interface{}) {
	l.entry(kv).Error(msg)
}

func (l *Logger) entry(kv []interface{}) *logrus.Entry {
	e := logrus.NewEntry(l.Logger)
	if len(kv) == 0 {
		return e
	}
	return e.WithFields(toFields(kv))
}

// toFields pairs up keys and values. A dangling key is kept with missingValue.
func toFields(kv []interface{}) logrus.Fields {
	fields := make(logrus.Fields, (len(kv)+1)/2)
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		if i+1 < len(kv) {
			fields[key] = kv[i+1]
		} else {
			fields[key] = missingValue
		}
	}
	return fields
}
