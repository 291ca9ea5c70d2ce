package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load 从文件加载配置.
//
// 文件类型按扩展名识别，可以用 WithConfigType 覆盖.
// T 实现 Validatable 时在解析后调用 Validate.
func Load[T any](path string, opts ...Option) (*T, error) {
	o := newOptions(opts)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	v := o.viper()
	v.SetConfigFile(path)
	if o.configType == "" {
		if t := GetConfigType(path); t != "" {
			v.SetConfigType(t)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}
	return decode[T](v)
}

// MustLoad 加载配置，失败时 panic.
func MustLoad[T any](path string, opts ...Option) *T {
	cfg, err := Load[T](path, opts...)
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadFromBytes 从内存数据加载配置.
func LoadFromBytes[T any](data []byte, configType string, opts ...Option) (*T, error) {
	o := newOptions(append(opts, WithConfigType(configType)))

	v := o.viper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}
	return decode[T](v)
}

// LoadWithSearch 依次在 dirs 中查找名为 name 的配置文件（不含扩展名）.
func LoadWithSearch[T any](name string, dirs []string, opts ...Option) (*T, error) {
	o := newOptions(opts)

	v := o.viper()
	v.SetConfigName(name)
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s in %v", ErrFileNotFound, name, dirs)
		}
		return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
	}
	return decode[T](v)
}

// viper 按选项创建 viper 实例.
func (o *options) viper() *viper.Viper {
	v := viper.New()
	if o.configType != "" {
		v.SetConfigType(o.configType)
	}
	for key, value := range o.defaults {
		v.SetDefault(key, value)
	}
	if o.env {
		v.SetEnvPrefix(o.envPrefix)
		v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		v.AutomaticEnv()
	}
	return v
}

// decode 解析到 T 并校验.
func decode[T any](v *viper.Viper) (*T, error) {
	cfg := new(T)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnmarshal, err)
	}

	if validator, ok := any(cfg).(Validatable); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	return cfg, nil
}
