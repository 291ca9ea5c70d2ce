package metrics

import "errors"

// 预定义错误.
var (
	// ErrNilConfig 配置为空.
	ErrNilConfig = errors.New("metrics: config is nil")

	// ErrRegisterMetric 指标注册失败.
	ErrRegisterMetric = errors.New("metrics: failed to register metric")
)

// Config 指标监控配置.
type Config struct {
	// Enabled 是否暴露指标端点
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	// Path 指标暴露路径，默认 /metrics
	Path string `json:"path" yaml:"path" mapstructure:"path"`
	// Namespace 指标命名空间
	Namespace string `json:"namespace" yaml:"namespace" mapstructure:"namespace"`
	// JobBuckets 任务耗时直方图的桶边界（秒），为空使用内置默认值
	JobBuckets []float64 `json:"job_buckets" yaml:"job_buckets" mapstructure:"job_buckets"`
	// Runtime 同时导出 Go 运行时和进程指标
	Runtime bool `json:"runtime" yaml:"runtime" mapstructure:"runtime"`
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	return &Config{
		Enabled:   true,
		Path:      "/metrics",
		Namespace: "jobkit",
	}
}
