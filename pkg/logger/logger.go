// Package logger wraps log/slog behind a small context-first interface
// shared by the scoring service, its workers and the CLI.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
)

// ErrUnknownLevel is returned for unparseable level names.
var ErrUnknownLevel = errors.New("unknown log level")

// frames between runtime.Caller and the code that called Info, Warn and so on.
const callerDepth = 3

// Logger is the logging surface handed to components.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	// Fatal logs at error level and exits the process.
	Fatal(ctx context.Context, msg string, fields ...Field)

	// Named groups every later field under name.
	Named(name string) Logger
	// With attaches fields to every later record.
	With(fields ...Field) Logger
}

type slogLogger struct {
	inner *slog.Logger
}

func (l *slogLogger) Named(name string) Logger {
	return &slogLogger{inner: l.inner.WithGroup(name)}
}

func (l *slogLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, len(fields))
	for i, f := range fields {
		args[i] = f.attr()
	}
	return &slogLogger{inner: l.inner.With(args...)}
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.emit(ctx, slog.LevelError, msg, fields)
	os.Exit(1)
}

// emit skips the source lookup for records the handler would drop anyway.
func (l *slogLogger) emit(ctx context.Context, level slog.Level, msg string, fields []Field) {
	if !l.inner.Enabled(ctx, level) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields)+1)
	for _, f := range fields {
		attrs = append(attrs, f.attr())
	}
	attrs = append(attrs, slog.String("source", callerAt(callerDepth)))
	l.inner.LogAttrs(ctx, level, msg, attrs...)
}

var (
	global   Logger
	levelVar slog.LevelVar
)

// Init writes text records to stderr, leaving stdout for command output.
func Init() error {
	return InitWithWriter(os.Stderr)
}

// InitWithWriter installs the global logger on w at info level.
func InitWithWriter(w io.Writer) error {
	if w == nil {
		return fmt.Errorf("logger: nil writer")
	}
	levelVar.Set(slog.LevelInfo)
	global = &slogLogger{inner: slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: &levelVar}))}
	return nil
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &slogLogger{inner: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// Get returns the global logger. It panics before Init.
func Get() Logger {
	if global == nil {
		panic("logger not initialized. Call logger.Init() first")
	}
	return global
}

// Named is Get().Named(name).
func Named(name string) Logger {
	return Get().Named(name)
}

// Sync is a no-op; slog handlers write through.
func Sync() error { return nil }

// SetLevel changes the global threshold.
func SetLevel(level slog.Level) { levelVar.Set(level) }

var levelNames = map[string]slog.Level{
	"":        slog.LevelInfo,
	"info":    slog.LevelInfo,
	"debug":   slog.LevelDebug,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// SetLevelString sets the threshold from a config value such as "debug" or
// "WARN". Unknown names leave the level unchanged.
func SetLevelString(level string) error {
	lv, ok := levelNames[strings.ToLower(strings.TrimSpace(level))]
	if !ok {
		return fmt.Errorf("%q: %w", level, ErrUnknownLevel)
	}
	SetLevel(lv)
	return nil
}

var workDir = sync.OnceValue(func() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return wd
})

// callerAt renders the frame skip levels up as path:line, relative to the
// working directory when possible.
func callerAt(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown:0"
	}
	if wd := workDir(); wd != "" {
		if rel, err := filepath.Rel(wd, file); err == nil {
			file = rel
		}
	} else {
		file = filepath.Base(file)
	}
	return fmt.Sprintf("%s:%d", file, line)
}
