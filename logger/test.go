package logger

import (
	"fmt"
	"maps"
	"os"
	"sync"
)

type TestLogEntry struct {
	Severity  string
	Message   string
	Arguments []interface{}
	Metadata  map[string]interface{}
}

// Text returns the message with its arguments applied.
func (e TestLogEntry) Text() string {
	if len(e.Arguments) == 0 {
		return e.Message
	}
	return fmt.Sprintf(e.Message, e.Arguments...)
}

type testLogs struct {
	mu      sync.Mutex
	entries []TestLogEntry
}

// TestLogger records every entry, at every level, for later inspection.
// Loggers derived with With and WithPrefix record into the same list.
type TestLogger struct {
	metadata map[string]interface{}
	logs     *testLogs
}

var _ Logger = (*TestLogger)(nil)

func (c *TestLogger) WithPrefix(prefix string) Logger {
	return c
}

func (c *TestLogger) With(metadata map[string]interface{}) Logger {
	kv := maps.Clone(c.metadata)
	if kv == nil {
		kv = make(map[string]interface{}, len(metadata))
	}
	maps.Copy(kv, metadata)
	return &TestLogger{metadata: kv, logs: c.logs}
}

func (c *TestLogger) Log(severity string, msg string, args ...interface{}) {
	c.logs.mu.Lock()
	defer c.logs.mu.Unlock()
	c.logs.entries = append(c.logs.entries, TestLogEntry{severity, msg, args, c.metadata})
}

// Entries returns a copy of everything logged so far.
func (c *TestLogger) Entries() []TestLogEntry {
	c.logs.mu.Lock()
	defer c.logs.mu.Unlock()
	out := make([]TestLogEntry, len(c.logs.entries))
	copy(out, c.logs.entries)
	return out
}

// Messages returns the formatted messages logged with the given severity.
func (c *TestLogger) Messages(severity string) []string {
	var out []string
	for _, e := range c.Entries() {
		if e.Severity == severity {
			out = append(out, e.Text())
		}
	}
	return out
}

func (c *TestLogger) Trace(msg string, args ...interface{}) { c.Log("TRACE", msg, args...) }

func (c *TestLogger) Debug(msg string, args ...interface{}) { c.Log("DEBUG", msg, args...) }

func (c *TestLogger) Info(msg string, args ...interface{}) { c.Log("INFO", msg, args...) }

func (c *TestLogger) Warn(msg string, args ...interface{}) { c.Log("WARNING", msg, args...) }

func (c *TestLogger) Error(msg string, args ...interface{}) { c.Log("ERROR", msg, args...) }

func (c *TestLogger) Fatal(msg string, args ...interface{}) {
	c.Log("FATAL", msg, args...)
	os.Exit(1)
}

func (c *TestLogger) IsLevelEnabled(level LogLevel) bool { return level < LevelNone }

func (c *TestLogger) IsTraceEnabled() bool { return true }

func (c *TestLogger) IsDebugEnabled() bool { return true }

// NewTestLogger returns a new Logger instance useful for testing
func NewTestLogger() *TestLogger {
	return &TestLogger{logs: &testLogs{}}
}
