// Package logger is pagegraph's leveled structured logger. Output goes to
// stderr as pretty text or JSON lines so that command output on stdout stays
// machine readable.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// Level represents the severity level of log messages
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = map[Level]string{
	TraceLevel: "TRACE",
	DebugLevel: "DEBUG",
	InfoLevel:  "INFO",
	WarnLevel:  "WARN",
	ErrorLevel: "ERROR",
}

var levelColors = map[Level]string{
	TraceLevel: "\033[37m", // White
	DebugLevel: "\033[36m", // Cyan
	InfoLevel:  "\033[32m", // Green
	WarnLevel:  "\033[33m", // Yellow
	ErrorLevel: "\033[31m", // Red
}

const (
	colorReset  = "\033[0m"
	colorDryRun = "\033[35m" // Magenta
)

// String returns the string representation of the level
func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel maps a flag value to a Level, defaulting to InfoLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return TraceLevel
	case "debug":
		return DebugLevel
	case "warn", "warning":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Config holds the logger configuration
type Config struct {
	Level     Level
	UseColor  bool
	JSON      bool
	Component string
	// DryRun tags every line so previews are not mistaken for real writes.
	DryRun bool
	// Output defaults to stderr.
	Output io.Writer
}

// Logger writes entries at or above its configured level.
type Logger struct {
	config Config
	logger *log.Logger
}

// defaultLogger is swapped atomically; the rebuild watcher logs from its own
// goroutines while commands re-initialize.
var defaultLogger atomic.Pointer[Logger]

// New returns a logger for config, defaulting the component and output.
func New(config Config) *Logger {
	if config.Component == "" {
		config.Component = "pagegraph"
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	return &Logger{config: config, logger: log.New(out, "", 0)}
}

// Initialize sets up the default logger
func Initialize(config Config) error {
	defaultLogger.Store(New(config))
	return nil
}

// Log writes a log message
func (l *Logger) Log(level Level, message string, fields ...Field) {
	l.emit(level, "", message, fields, 2)
}

// emit builds and prints one entry. skip is the runtime.Caller depth of the
// user call site.
func (l *Logger) emit(level Level, scope, message string, fields []Field, skip int) {
	if level < l.config.Level {
		return
	}

	entry := LogEntry{
		Time:      time.Now(),
		Level:     level.String(),
		Message:   message,
		Component: l.config.Component,
	}
	if scope != "" {
		entry.Component += "." + scope
	}
	if level <= DebugLevel {
		if _, file, line, ok := runtime.Caller(skip); ok {
			entry.File = file
			entry.Line = line
		}
	}
	if len(fields) > 0 {
		entry.Fields = make(map[string]interface{}, len(fields))
		for _, f := range fields {
			entry.Fields[f.Key] = f.Value
		}
	}

	if l.config.JSON {
		data, err := json.Marshal(entry)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, entry.Level, entry.Message))
		}
		l.logger.Print(string(data))
		return
	}
	l.logger.Print(l.formatPretty(entry))
}

// formatPretty renders: time [LEVEL] component: [DRY-RUN] message {k=v, ...} (file:line)
func (l *Logger) formatPretty(entry LogEntry) string {
	var b strings.Builder

	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))
	b.WriteString(" [")
	b.WriteString(l.paint(entry.Level, levelColors[ParseLevel(entry.Level)]))
	b.WriteString("]")

	if entry.Component != "" {
		fmt.Fprintf(&b, " %s:", entry.Component)
	}
	if l.config.DryRun {
		b.WriteString(" " + l.paint("[DRY-RUN]", colorDryRun))
	}

	b.WriteString(" " + entry.Message)
	writeFields(&b, entry.Fields)

	if entry.File != "" {
		fmt.Fprintf(&b, " (%s:%d)", entry.File, entry.Line)
	}
	return b.String()
}

func (l *Logger) paint(s, color string) string {
	if !l.config.UseColor || color == "" {
		return s
	}
	return color + s + colorReset
}

// writeFields appends fields in sorted key order.
func writeFields(b *strings.Builder, fields map[string]interface{}) {
	if len(fields) == 0 {
		return
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.WriteString(" {")
	for i, k := range keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(b, "%s=%v", k, fields[k])
	}
	b.WriteString("}")
}

// Field represents a structured field in a log entry
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Strings creates a field holding a list of strings
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: values}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Duration creates a duration field
func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

// LogEntry represents a log entry
type LogEntry struct {
	Time      time.Time              `json:"time"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Scope logs through the default logger with a sub-component suffix,
// e.g. "pagegraph.rebuild". It resolves the default logger on every call.
type Scope string

// Named returns a Scope for component.
func Named(component string) Scope {
	return Scope(component)
}

func (s Scope) Trace(message string, fields ...Field) { s.log(TraceLevel, message, fields) }
func (s Scope) Debug(message string, fields ...Field) { s.log(DebugLevel, message, fields) }
func (s Scope) Info(message string, fields ...Field)  { s.log(InfoLevel, message, fields) }
func (s Scope) Warn(message string, fields ...Field)  { s.log(WarnLevel, message, fields) }
func (s Scope) Error(message string, fields ...Field) { s.log(ErrorLevel, message, fields) }

func (s Scope) log(level Level, message string, fields []Field) {
	if l := defaultLogger.Load(); l != nil {
		l.emit(level, string(s), message, fields, 3)
	}
}

// Convenience functions for default logger
func Trace(message string, fields ...Field) {
	if l := defaultLogger.Load(); l != nil {
		l.emit(TraceLevel, "", message, fields, 2)
	}
}

func Debug(message string, fields ...Field) {
	if l := defaultLogger.Load(); l != nil {
		l.emit(DebugLevel, "", message, fields, 2)
	}
}

func Info(message string, fields ...Field) {
	if l := defaultLogger.Load(); l != nil {
		l.emit(InfoLevel, "", message, fields, 2)
	} else {
		// Fallback to stderr if logger not initialized
		_, _ = fmt.Fprintf(os.Stderr, "[INFO] pagegraph: %s\n", message)
	}
}

func Warn(message string, fields ...Field) {
	if l := defaultLogger.Load(); l != nil {
		l.emit(WarnLevel, "", message, fields, 2)
	}
}

func Error(message string, fields ...Field) {
	if l := defaultLogger.Load(); l != nil {
		l.emit(ErrorLevel, "", message, fields, 2)
	}
}

// SetOutput sets the output writer for the logger
func SetOutput(w io.Writer) {
	if l := defaultLogger.Load(); l != nil {
		l.logger.SetOutput(w)
	}
}
