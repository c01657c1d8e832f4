package core

import (
	"context"
	"maps"
	"sync"
)

type logLine struct {
	level  string
	msg    string
	fields map[string]any
}

type logSink struct {
	mu    sync.Mutex
	lines []logLine
}

// captureLogger writes every call into a sink shared with the loggers
// derived from it through WithFields and WithContext.
type captureLogger struct {
	sink   *logSink
	fields map[string]any
}

func newCaptureLogger() *captureLogger {
	return &captureLogger{sink: &logSink{}, fields: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := maps.Clone(l.fields)
	maps.Copy(merged, fields)
	return &captureLogger{sink: l.sink, fields: merged}
}

func (l *captureLogger) WithContext(context.Context) Logger { return l }

func (l *captureLogger) Trace(msg string, args ...any) { l.write("trace", msg, args) }
func (l *captureLogger) Debug(msg string, args ...any) { l.write("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.write("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.write("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.write("error", msg, args) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.write("fatal", msg, args) }

func (l *captureLogger) write(level string, msg string, args []any) {
	fields := maps.Clone(l.fields)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			fields[key] = args[i+1]
		}
	}
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.lines = append(l.sink.lines, logLine{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) logs() []logLine {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return append([]logLine(nil), l.sink.lines...)
}

// mapRawLoader feeds cfgx a fixed raw map.
type mapRawLoader map[string]any

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	out := maps.Clone(map[string]any(l))
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
