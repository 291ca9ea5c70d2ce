package logger

import (
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TypeZap 目前唯一支持的实现.
const TypeZap = "zap"

// 日志级别.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// 编码格式.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// 输出目标，OutputBoth 同时写 stdout 和文件.
const (
	OutputConsole = "console"
	OutputFile    = "file"
	OutputBoth    = "both"
)

var (
	levels  = []string{LevelDebug, LevelInfo, LevelWarn, LevelError}
	formats = []string{FormatJSON, FormatConsole}
	outputs = []string{OutputConsole, OutputFile, OutputBoth}
)

// Config 日志配置.
type Config struct {
	Type        string `json:"type" yaml:"type" mapstructure:"type"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
	Level       string `json:"level" yaml:"level" mapstructure:"level"`
	Format      string `json:"format" yaml:"format" mapstructure:"format"`
	Output      string `json:"output" yaml:"output" mapstructure:"output"`
	// LogDir 文件输出目录，日志写入 <LogDir>/<ServiceName>.log
	LogDir string `json:"log_dir" yaml:"log_dir" mapstructure:"log_dir"`

	// Fields 附加到每条日志的静态字段，例如 host、env.
	Fields map[string]string `json:"fields" yaml:"fields" mapstructure:"fields"`

	EnableCaller     bool `json:"enable_caller" yaml:"enable_caller" mapstructure:"enable_caller"`
	EnableStacktrace bool `json:"enable_stacktrace" yaml:"enable_stacktrace" mapstructure:"enable_stacktrace"`
}

// ConfigError 配置错误.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("logger config error [%s]: %s", e.Field, e.Message)
}

// Validate 校验取值，空字段视为使用默认值.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Field: "config", Message: "config cannot be nil"}
	}
	for _, check := range []struct {
		field, value string
		allowed      []string
	}{
		{"level", c.Level, levels},
		{"format", c.Format, formats},
		{"output", c.Output, outputs},
	} {
		if check.value != "" && !slices.Contains(check.allowed, strings.ToLower(check.value)) {
			return &ConfigError{
				Field:   check.field,
				Message: fmt.Sprintf("invalid %s %q, want one of %v", check.field, check.value, check.allowed),
			}
		}
	}
	if c.writesFile() && c.LogDir == "" {
		return &ConfigError{Field: "log_dir", Message: "log_dir is required when output is file or both"}
	}
	return nil
}

// ApplyDefaults 填充空字段.
func (c *Config) ApplyDefaults() {
	setDefault(&c.Type, TypeZap)
	setDefault(&c.Level, LevelInfo)
	setDefault(&c.Format, FormatJSON)
	setDefault(&c.Output, OutputConsole)
	setDefault(&c.ServiceName, "jobkit")
}

func setDefault(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func (c *Config) zapLevel() zapcore.Level {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (c *Config) writesFile() bool {
	out := strings.ToLower(c.Output)
	return out == OutputFile || out == OutputBoth
}

func (c *Config) writesConsole() bool {
	out := strings.ToLower(c.Output)
	return out == "" || out == OutputConsole || out == OutputBoth
}

// DefaultConfig 返回生产默认配置：info 级别 JSON 输出到 stdout.
func DefaultConfig() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// NewDevConfig 返回开发配置：debug 级别彩色控制台输出并记录调用位置.
func NewDevConfig() *Config {
	return &Config{
		Type:         TypeZap,
		Level:        LevelDebug,
		Format:       FormatConsole,
		Output:       OutputConsole,
		EnableCaller: true,
	}
}
