package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

type LogLevel string

const (
	LevelDebug LogLevel = "debug"
	LevelInfo  LogLevel = "info"
	LevelWarn  LogLevel = "warn"
	LevelError LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

type LogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     LogLevel               `json:"level"`
	Action    string                 `json:"action"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Error     string                 `json:"error,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// Logger writes one JSON object per line. Output goes to stderr by default so
// it never mixes with command output on stdout.
type Logger struct {
	mu     sync.Mutex
	output io.Writer
	min    LogLevel
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

func New(output io.Writer, min LogLevel) *Logger {
	if output == nil {
		output = os.Stderr
	}
	if _, ok := levelRank[min]; !ok {
		min = LevelWarn
	}
	return &Logger{output: output, min: min}
}

// Init installs the global logger used by the package-level helpers.
func Init(output io.Writer, min LogLevel) {
	globalMu.Lock()
	globalLogger = New(output, min)
	globalMu.Unlock()
}

func current() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Enabled reports whether level would be written by l.
func (l *Logger) Enabled(level LogLevel) bool {
	return levelRank[level] >= levelRank[l.min]
}

func (l *Logger) log(level LogLevel, action string, details map[string]interface{}, err error) {
	if !l.Enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Action:    action,
		Details:   details,
	}
	if id, ok := details["request_id"].(string); ok {
		entry.RequestID = id
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, mErr := json.Marshal(entry)
	if mErr != nil {
		data, _ = json.Marshal(LogEntry{Timestamp: entry.Timestamp, Level: level, Action: action, Error: mErr.Error()})
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.output == os.Stderr {
		var colorCode string
		switch level {
		case LevelError:
			colorCode = "\033[31m"
		case LevelWarn:
			colorCode = "\033[33m"
		default:
			colorCode = "\033[36m"
		}
		fmt.Fprintf(l.output, "%s%s\033[0m\n", colorCode, string(data))
		return
	}
	fmt.Fprintf(l.output, "%s\n", string(data))
}

func Debug(action string, details map[string]interface{}) {
	if l := current(); l != nil {
		l.log(LevelDebug, action, details, nil)
	}
}

func Info(action string, details map[string]interface{}) {
	if l := current(); l != nil {
		l.log(LevelInfo, action, details, nil)
	}
}

func Warn(action string, details map[string]interface{}) {
	if l := current(); l != nil {
		l.log(LevelWarn, action, details, nil)
	}
}

func Error(action string, err error, details map[string]interface{}) {
	if l := current(); l != nil {
		l.log(LevelError, action, details, err)
	}
}

// WarnErr logs a warning that carries an error, used for failures the user
// never sees (background refreshes).
func WarnErr(action string, err error, details map[string]interface{}) {
	if l := current(); l != nil {
		l.log(LevelWarn, action, details, err)
	}
}

var sensitiveFields = []string{"password", "token", "access_token", "secret", "apiKey"}

// Redact returns a copy of m with credential-bearing keys masked.
func Redact(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, field := range sensitiveFields {
		if _, exists := out[field]; exists {
			out[field] = "[REDACTED]"
		}
	}
	return out
}

func GenerateRequestID() string {
	return uuid.New().String()
}
