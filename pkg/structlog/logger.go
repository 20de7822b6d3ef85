// Package structlog provides JSON structured logging with a sensitive-field
// sanitizer and audit/security event helpers.
package structlog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

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

// Fields represents structured log fields.
type Fields map[string]interface{}

// Logger writes one JSON object per line.
type Logger struct {
	service   string
	level     Level
	output    io.Writer
	mu        sync.Mutex
	fields    Fields
	sanitizer *sanitizer
}

// sanitizer masks sensitive values before they reach the log sink.
type sanitizer struct {
	patterns []string
}

func newSanitizer() *sanitizer {
	return &sanitizer{patterns: []string{
		"password", "secret", "token", "apikey", "authorization",
		"aadhar", "account",
	}}
}

func (s *sanitizer) sanitize(fields Fields) Fields {
	cleaned := make(Fields, len(fields))
	for k, v := range fields {
		masked := false
		lower := strings.ToLower(k)
		for _, pattern := range s.patterns {
			if strings.Contains(lower, pattern) {
				cleaned[k] = "MASKED"
				masked = true
				break
			}
		}
		if !masked {
			cleaned[k] = v
		}
	}
	return cleaned
}

// NewLogger creates a logger for a service. A nil output defaults to stdout.
func NewLogger(serviceName string, level Level, output io.Writer) *Logger {
	if output == nil {
		output = os.Stdout
	}
	return &Logger{
		service:   serviceName,
		level:     level,
		output:    output,
		fields:    Fields{},
		sanitizer: newSanitizer(),
	}
}

// WithFields returns a logger carrying additional base fields.
func (l *Logger) WithFields(fields Fields) *Logger {
	next := &Logger{
		service:   l.service,
		level:     l.level,
		output:    l.output,
		sanitizer: l.sanitizer,
		fields:    make(Fields, len(l.fields)+len(fields)),
	}
	for k, v := range l.fields {
		next.fields[k] = v
	}
	for k, v := range fields {
		next.fields[k] = v
	}
	return next
}

func (l *Logger) Debug(message string, fields Fields) { l.log(LevelDebug, message, fields) }
func (l *Logger) Info(message string, fields Fields)  { l.log(LevelInfo, message, fields) }
func (l *Logger) Warn(message string, fields Fields)  { l.log(LevelWarn, message, fields) }
func (l *Logger) Error(message string, fields Fields) { l.log(LevelError, message, fields) }

// SecurityEvent logs a security event with a special marker.
func (l *Logger) SecurityEvent(event string, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["event_type"] = "security"
	l.log(LevelWarn, fmt.Sprintf("SECURITY: %s", event), fields)
}

// AuditLog logs an audit-trail action.
func (l *Logger) AuditLog(action string, fields Fields) {
	if fields == nil {
		fields = Fields{}
	}
	fields["event_type"] = "audit"
	l.log(LevelInfo, fmt.Sprintf("AUDIT: %s", action), fields)
}

func (l *Logger) log(level Level, message string, fields Fields) {
	if level < l.level {
		return
	}
	all := make(Fields, len(l.fields)+len(fields)+4)
	for k, v := range l.fields {
		all[k] = v
	}
	for k, v := range fields {
		all[k] = v
	}
	all["timestamp"] = time.Now().UTC().Format(time.RFC3339Nano)
	all["level"] = level.String()
	all["service"] = l.service
	all["message"] = message
	all = l.sanitizer.sanitize(all)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.output).Encode(all); err != nil {
		fmt.Fprintf(os.Stderr, "LOG_ERROR: failed to encode log: %v\n", err)
	}
}

var defaultLogger = NewLogger("riskgate", LevelInfo, os.Stdout)

// SetDefaultLogger replaces the package-level logger.
func SetDefaultLogger(logger *Logger) { defaultLogger = logger }

func Debug(message string, fields Fields)       { defaultLogger.Debug(message, fields) }
func Info(message string, fields Fields)        { defaultLogger.Info(message, fields) }
func Warn(message string, fields Fields)        { defaultLogger.Warn(message, fields) }
func Error(message string, fields Fields)       { defaultLogger.Error(message, fields) }
func SecurityEvent(event string, fields Fields) { defaultLogger.SecurityEvent(event, fields) }
func AuditLog(action string, fields Fields)     { defaultLogger.AuditLog(action, fields) }
