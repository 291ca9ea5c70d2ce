// Package metrics 提供 Prometheus 指标收集功能.
//
// 指标分两类：
//   - 任务指标：执行次数、耗时、跳过次数、panic 次数，通过调度器钩子采集
//   - 任务状态：按状态统计的任务数、执行中的任务数、下次执行时间，抓取时从调度器快照计算
//
// 示例：
//
//	collector := metrics.MustNewMetrics(metrics.DefaultConfig())
//	s := scheduler.MustNew(scheduler.WithHooks(collector.Hooks()))
//	collector.MustRegisterScheduler(s)
//
//	mux.Handle(collector.GetPath(), collector.GetHandler())
package metrics

import (
	"net/http"
	"time"
)

// Collector 指标收集器接口.
type Collector interface {
	// RecordHTTPRequest 记录管理接口请求，route 为路由模式而非原始路径.
	RecordHTTPRequest(method, route string, status int, duration time.Duration)

	// 任务指标
	RecordJobExecution(job, result string, duration time.Duration)
	RecordJobSkip(job string)
	RecordPanic(job string)

	// Handler
	GetHandler() http.Handler
	GetPath() string
}

// NewMetrics 创建指标收集器.
func NewMetrics(cfg *Config) (*PrometheusCollector, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	return NewPrometheus(cfg)
}

// MustNewMetrics 创建指标收集器，失败时 panic.
func MustNewMetrics(cfg *Config) *PrometheusCollector {
	c, err := NewMetrics(cfg)
	if err != nil {
		panic(err)
	}
	return c
}
