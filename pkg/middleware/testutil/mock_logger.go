// Package testutil provides test doubles shared by middleware and handler tests.
package testutil

import (
	"context"
	"sync"

	"github.com/nimburion/postsvc/pkg/observability/logger"
)

// MockLogger captures log entries for assertions.
type MockLogger struct {
	mu     sync.Mutex
	logs   []LogEntry
	fields map[string]interface{}
	parent *MockLogger
}

// LogEntry is one captured log call.
type LogEntry struct {
	Level  string
	Msg    string
	Fields map[string]interface{}
}

func (m *MockLogger) Debug(msg string, args ...any) { m.record("debug", msg, args) }
func (m *MockLogger) Info(msg string, args ...any)  { m.record("info", msg, args) }
func (m *MockLogger) Warn(msg string, args ...any)  { m.record("warn", msg, args) }
func (m *MockLogger) Error(msg string, args ...any) { m.record("error", msg, args) }

// With returns a child that writes into the same capture buffer.
func (m *MockLogger) With(args ...any) logger.Logger {
	fields := make(map[string]interface{}, len(m.fields))
	for k, v := range m.fields {
		fields[k] = v
	}
	for k, v := range argsToMap(args) {
		fields[k] = v
	}
	return &MockLogger{fields: fields, parent: m.root()}
}

// WithContext returns the same logger.
func (m *MockLogger) WithContext(context.Context) logger.Logger {
	return m
}

// Entries returns a copy of everything captured so far.
func (m *MockLogger) Entries() []LogEntry {
	root := m.root()
	root.mu.Lock()
	defer root.mu.Unlock()
	return append([]LogEntry(nil), root.logs...)
}

// EntriesAt returns the captured entries of one level.
func (m *MockLogger) EntriesAt(level string) []LogEntry {
	var out []LogEntry
	for _, e := range m.Entries() {
		if e.Level == level {
			out = append(out, e)
		}
	}
	return out
}

func (m *MockLogger) root() *MockLogger {
	if m.parent != nil {
		return m.parent
	}
	return m
}

func (m *MockLogger) record(level, msg string, args []any) {
	fields := argsToMap(args)
	for k, v := range m.fields {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	root := m.root()
	root.mu.Lock()
	root.logs = append(root.logs, LogEntry{Level: level, Msg: msg, Fields: fields})
	root.mu.Unlock()
}

func argsToMap(args []any) map[string]interface{} {
	fields := make(map[string]interface{})
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	return fields
}
