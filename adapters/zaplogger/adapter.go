// Package zaplogger backs the module logging contract with zap.
package zaplogger

import (
	"context"
	"sort"
	"strings"

	glog "github.com/goliatone/go-logger/glog"
	"go.uber.org/zap"
)

type Logger struct {
	sugar *zap.SugaredLogger
}

// New wraps a zap logger. A nil logger falls back to zap.NewNop.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{sugar: logger.Sugar()}
}

// NewProduction builds a JSON logger with zap's production defaults.
func NewProduction() (*Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(logger), nil
}

func (l *Logger) Trace(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *Logger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.sugar.Infow(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.sugar.Warnw(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
func (l *Logger) Fatal(msg string, args ...any) { l.sugar.Fatalw(msg, args...) }

func (l *Logger) WithContext(context.Context) glog.Logger {
	return l
}

// WithFields returns a child logger carrying the fields, sorted by key.
func (l *Logger) WithFields(fields map[string]any) glog.Logger {
	if len(fields) == 0 {
		return l
	}
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return &Logger{sugar: l.sugar.With(args...)}
}

// Named returns a child logger with the name appended.
func (l *Logger) Named(name string) *Logger {
	name = strings.TrimSpace(name)
	if name == "" {
		return l
	}
	return &Logger{sugar: l.sugar.Named(name)}
}

// Sync flushes buffered entries.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}

type Provider struct {
	root *Logger
}

func NewProvider(logger *zap.Logger) *Provider {
	return &Provider{root: New(logger)}
}

func (p *Provider) GetLogger(name string) glog.Logger {
	return p.root.Named(name)
}

var (
	_ glog.Logger         = (*Logger)(nil)
	_ glog.FieldsLogger   = (*Logger)(nil)
	_ glog.LoggerProvider = (*Provider)(nil)
)
