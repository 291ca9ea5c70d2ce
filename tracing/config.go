// Package tracing 提供任务执行的链路追踪功能.
//
// 每次任务执行生成一个 span，traceId/spanId 同时注入 logger 使用的 context，
// 任务体内通过 log.WithContext(ctx) 输出的日志可以与链路关联.
package tracing

import (
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// TracingConfig 链路追踪配置.
type TracingConfig struct {
	Enabled bool        `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	OTLP    *OTLPConfig `json:"otlp" yaml:"otlp" mapstructure:"otlp"`
	// SamplingRate 根 span 采样率，(0,1] 之外的值按 1 处理；
	// 有父 span 时跟随父 span 的采样决定.
	SamplingRate float64 `json:"sampling_rate" yaml:"sampling_rate" mapstructure:"sampling_rate"`
}

// OTLPConfig OTLP/HTTP 导出配置.
type OTLPConfig struct {
	// Endpoint collector 地址，如 localhost:4318 或 https://otel.example.com/v1/traces
	Endpoint string            `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Headers  map[string]string `json:"headers" yaml:"headers" mapstructure:"headers"`
	// Timeout 单次导出超时，0 使用导出器默认值
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

func (c *TracingConfig) samplingRate() float64 {
	if c.SamplingRate <= 0 || c.SamplingRate > 1 {
		return 1
	}
	return c.SamplingRate
}

func (c *TracingConfig) sampler() sdktrace.Sampler {
	rate := c.samplingRate()
	if rate == 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}
