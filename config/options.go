package config

import (
	"maps"
	"strings"
)

// Option 配置加载选项.
type Option func(*options)

type options struct {
	envPrefix  string
	env        bool
	configType string
	defaults   map[string]any
}

func newOptions(opts []Option) *options {
	o := &options{env: true, defaults: map[string]any{}}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithEnvPrefix 设置环境变量前缀，例如 "JOBD" 会把 JOBD_ADMIN_ADDR 映射到 admin.addr.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = strings.ToUpper(prefix)
	}
}

// WithoutEnv 关闭环境变量覆盖.
func WithoutEnv() Option {
	return func(o *options) {
		o.env = false
	}
}

// WithDefaults 设置默认值，键使用 "a.b" 形式.
//
// 可多次调用，相同的键以后设置的为准.
// 只有设置了默认值或出现在配置文件中的键才能被环境变量覆盖.
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		maps.Copy(o.defaults, defaults)
	}
}

// WithConfigType 显式指定配置类型（yaml、json、toml），用于扩展名无法识别的文件.
func WithConfigType(configType string) Option {
	return func(o *options) {
		o.configType = configType
	}
}
