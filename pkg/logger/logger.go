// Package logger provides the structured logger used across the service,
// an interface over log/slog so call sites depend on behavior rather than a
// concrete struct.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger is the structured logging interface every package in this service
// depends on.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
	With(args ...interface{}) Logger
	WithContext(ctx context.Context) Logger
}

type logger struct {
	slog *slog.Logger
	ctx  context.Context
}

// New creates a logger emitting structured JSON to stdout at the given level.
func New(level string) Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{Key: "timestamp", Value: slog.StringValue(time.Now().UTC().Format(time.RFC3339))}
			}
			return a
		},
	}

	return &logger{
		slog: slog.New(slog.NewJSONHandler(os.Stdout, opts)),
		ctx:  context.Background(),
	}
}

func (l *logger) Debug(msg string, args ...interface{}) {
	l.slog.DebugContext(l.ctx, msg, l.convertArgs(args...)...)
}

func (l *logger) Info(msg string, args ...interface{}) {
	l.slog.InfoContext(l.ctx, msg, l.convertArgs(args...)...)
}

func (l *logger) Warn(msg string, args ...interface{}) {
	l.slog.WarnContext(l.ctx, msg, l.convertArgs(args...)...)
}

func (l *logger) Error(msg string, args ...interface{}) {
	l.slog.ErrorContext(l.ctx, msg, l.convertArgs(args...)...)
}

func (l *logger) Fatal(msg string, args ...interface{}) {
	l.slog.ErrorContext(l.ctx, msg, l.convertArgs(args...)...)
	os.Exit(1)
}

func (l *logger) With(args ...interface{}) Logger {
	return &logger{slog: l.slog.With(l.convertArgs(args...)...), ctx: l.ctx}
}

func (l *logger) WithContext(ctx context.Context) Logger {
	return &logger{slog: l.slog, ctx: ctx}
}

func (l *logger) convertArgs(args ...interface{}) []any {
	if len(args) == 0 {
		return nil
	}
	if len(args)%2 != 0 {
		args = append(args, nil)
	}
	result := make([]any, 0, len(args))
	for i := 0; i < len(args); i += 2 {
		key := args[i]
		var keyStr string
		if k, ok := key.(string); ok {
			keyStr = k
		} else {
			keyStr = fmt.Sprintf("%v", key)
		}
		result = append(result, keyStr, args[i+1])
	}
	return result
}

// RequestLogger scopes a logger to one HTTP request.
func RequestLogger(base Logger, requestID, method, path string) Logger {
	return base.With("request_id", requestID, "method", method, "path", path)
}

// ComponentLogger scopes a logger to one of C1-C8.
func ComponentLogger(base Logger, component string) Logger {
	return base.With("component", component)
}

// Default logger instance, used where no request-scoped logger is threaded
// through yet (e.g. package init paths).
var defaultLogger Logger

func init() {
	defaultLogger = New("info")
}

func SetDefault(l Logger) { defaultLogger = l }
func Default() Logger     { return defaultLogger }

func Debug(msg string, args ...interface{}) { defaultLogger.Debug(msg, args...) }
func Info(msg string, args ...interface{})  { defaultLogger.Info(msg, args...) }
func Warn(msg string, args ...interface{})  { defaultLogger.Warn(msg, args...) }
func Error(msg string, args ...interface{}) { defaultLogger.Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { defaultLogger.Fatal(msg, args...) }
