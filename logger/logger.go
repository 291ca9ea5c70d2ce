// Package logger 提供结构化日志记录功能.
//
// 调度器及其外围组件只依赖 Logger 接口；默认实现基于 zap，
// 字段类型直接复用 zap.Field，避免在热路径上做额外转换.
package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Field 日志字段.
type Field = zap.Field

// Logger 日志记录器接口.
type Logger interface {
	Debug(args ...any)
	Debugf(format string, args ...any)
	Info(args ...any)
	Infof(format string, args ...any)
	Warn(args ...any)
	Warnf(format string, args ...any)
	Error(args ...any)
	Errorf(format string, args ...any)

	// With 返回附加了字段的新 logger，原 logger 不受影响.
	With(fields ...Field) Logger
	// WithContext 附加 context 中的 traceId/spanId.
	WithContext(ctx context.Context) Logger

	Sync() error
	Close() error
}

type contextKey string

// TraceIDKey 和 SpanIDKey 是 trace 信息在 context 中的键.
const (
	TraceIDKey contextKey = "logger:traceId"
	SpanIDKey  contextKey = "logger:spanId"
)

// ContextWithTraceID 将 traceId 注入到 context.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// ContextWithSpanID 将 spanId 注入到 context.
func ContextWithSpanID(ctx context.Context, spanID string) context.Context {
	return context.WithValue(ctx, SpanIDKey, spanID)
}

func traceFields(ctx context.Context) []Field {
	if ctx == nil {
		return nil
	}
	var fields []Field
	if id, _ := ctx.Value(TraceIDKey).(string); id != "" {
		fields = append(fields, zap.String("traceId", id))
	}
	if id, _ := ctx.Value(SpanIDKey).(string); id != "" {
		fields = append(fields, zap.String("spanId", id))
	}
	return fields
}

// NewLogger 按配置创建 logger，config 中的空字段会被填充默认值.
func NewLogger(config *Config) (Logger, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config.ApplyDefaults()
	if config.Type != TypeZap {
		return nil, &ConfigError{Field: "type", Message: "unsupported logger type: " + config.Type}
	}
	return newZapLogger(config)
}

// MustNewLogger 创建 logger，失败时 panic.
func MustNewLogger(config *Config) Logger {
	l, err := NewLogger(config)
	if err != nil {
		panic(err)
	}
	return l
}

// 字段构造函数.

func String(key, value string) Field { return zap.String(key, value) }
func Int(key string, value int) Field { return zap.Int(key, value) }
func Int64(key string, value int64) Field { return zap.Int64(key, value) }
func Bool(key string, value bool) Field { return zap.Bool(key, value) }
func Time(key string, value time.Time) Field { return zap.Time(key, value) }
func Duration(key string, value time.Duration) Field { return zap.Duration(key, value) }
func Any(key string, value any) Field { return zap.Any(key, value) }

// Err 创建 error 字段，err 为 nil 时字段被忽略.
func Err(err error) Field { return zap.Error(err) }
