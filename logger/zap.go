package logger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// zapLogger 基于 zap 的 Logger 实现.
//
// 格式化输出方法来自内嵌的 SugaredLogger，With/Sync 被覆盖为 Logger 语义.
type zapLogger struct {
	*zap.SugaredLogger
	base  *zap.Logger
	files []*os.File
}

func newZapLogger(config *Config) (Logger, error) {
	level := zap.NewAtomicLevelAt(config.zapLevel())

	var (
		cores []zapcore.Core
		files []*os.File
	)
	if config.writesConsole() {
		cores = append(cores, zapcore.NewCore(newEncoder(config.Format, true), zapcore.Lock(os.Stdout), level))
	}
	if config.writesFile() {
		file, err := openLogFile(config.LogDir, config.ServiceName)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
		// 文件始终不带颜色
		cores = append(cores, zapcore.NewCore(newEncoder(config.Format, false), zapcore.AddSync(file), level))
	}

	fields := []zap.Field{zap.String("service", config.ServiceName)}
	for k, v := range config.Fields {
		fields = append(fields, zap.String(k, v))
	}
	options := []zap.Option{zap.Fields(fields...)}
	if config.EnableCaller {
		options = append(options, zap.AddCaller())
	}
	if config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(zapcore.ErrorLevel))
	}

	l := wrap(zap.New(zapcore.NewTee(cores...), options...))
	l.files = files
	return l, nil
}

// NewWithCore 基于给定的 zapcore.Core 创建 logger.
//
// 主要用于测试，配合 zaptest/observer 断言日志输出.
func NewWithCore(core zapcore.Core) Logger {
	return wrap(zap.New(core))
}

// NewNop 创建丢弃所有输出的 logger.
func NewNop() Logger {
	return wrap(zap.NewNop())
}

func wrap(l *zap.Logger) *zapLogger {
	return &zapLogger{SugaredLogger: l.Sugar(), base: l}
}

func openLogFile(dir, name string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &ConfigError{Field: "log_dir", Message: err.Error()}
	}
	file, err := os.OpenFile(filepath.Join(dir, name+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &ConfigError{Field: "log_dir", Message: err.Error()}
	}
	return file, nil
}

func newEncoder(format string, color bool) zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05.000")
	cfg.EncodeDuration = zapcore.StringDurationEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder

	if strings.ToLower(format) != FormatConsole {
		return zapcore.NewJSONEncoder(cfg)
	}
	if color {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return zapcore.NewConsoleEncoder(cfg)
}

// With 返回带有附加字段的 logger，共享底层文件句柄.
func (z *zapLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return z
	}
	l := wrap(z.base.With(fields...))
	l.files = z.files
	return l
}

// WithContext 附加 context 中的 trace 信息，没有时返回自身.
func (z *zapLogger) WithContext(ctx context.Context) Logger {
	return z.With(traceFields(ctx)...)
}

func (z *zapLogger) Sync() error {
	return z.base.Sync()
}

// Close 刷新缓冲并关闭日志文件.
func (z *zapLogger) Close() error {
	// stdout 的 sync 错误可以忽略
	// https://github.com/uber-go/zap/issues/328
	_ = z.base.Sync()

	var errs []error
	for _, f := range z.files {
		errs = append(errs, f.Close())
	}
	z.files = nil
	return errors.Join(errs...)
}
