package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 任务执行结果标签值.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// defaultJobBuckets 覆盖从毫秒级探活到十几分钟的批处理.
var defaultJobBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300, 900}

// PrometheusCollector 基于独立注册表的 Collector 实现.
//
// 每个实例拥有自己的 prometheus.Registry，同一进程内可以创建多个而不会冲突.
type PrometheusCollector struct {
	config    *Config
	namespace string
	registry  *prometheus.Registry
	handler   http.Handler

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	jobExecutions *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobSkipped    *prometheus.CounterVec
	jobPanics     *prometheus.CounterVec
}

// NewPrometheus 创建 Prometheus 指标收集器.
func NewPrometheus(cfg *Config) (*PrometheusCollector, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "jobkit"
	}
	buckets := cfg.JobBuckets
	if len(buckets) == 0 {
		buckets = defaultJobBuckets
	}

	counter := func(sub, name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: name, Help: help,
		}, labels)
	}
	histogram := func(sub, name, help string, b []float64, labels ...string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: name, Help: help, Buckets: b,
		}, labels)
	}

	c := &PrometheusCollector{
		config:    cfg,
		namespace: ns,
		registry:  prometheus.NewRegistry(),

		httpRequests: counter("http", "requests_total", "Admin API requests by route and status", "method", "route", "status"),
		httpDuration: histogram("http", "request_duration_seconds", "Admin API request latency", prometheus.DefBuckets, "method", "route"),

		jobExecutions: counter("scheduler", "job_executions_total", "Job executions by result", "job", "result"),
		jobDuration:   histogram("scheduler", "job_duration_seconds", "Job execution duration", buckets, "job"),
		jobSkipped:    counter("scheduler", "job_skipped_total", "Activations skipped because the job was busy or vetoed", "job"),
		jobPanics:     counter("scheduler", "job_panics_total", "Panics recovered from job bodies", "job"),
	}

	collectors := []prometheus.Collector{
		c.httpRequests, c.httpDuration,
		c.jobExecutions, c.jobDuration, c.jobSkipped, c.jobPanics,
	}
	if cfg.Runtime {
		collectors = append(collectors,
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: ns}),
		)
	}
	for _, col := range collectors {
		if err := c.Register(col); err != nil {
			return nil, err
		}
	}

	c.handler = promhttp.InstrumentMetricHandler(c.registry,
		promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError}),
	)
	return c, nil
}

func (c *PrometheusCollector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordJobExecution(job, result string, duration time.Duration) {
	c.jobExecutions.WithLabelValues(job, result).Inc()
	c.jobDuration.WithLabelValues(job).Observe(duration.Seconds())
}

func (c *PrometheusCollector) RecordJobSkip(job string) {
	c.jobSkipped.WithLabelValues(job).Inc()
}

func (c *PrometheusCollector) RecordPanic(job string) {
	c.jobPanics.WithLabelValues(job).Inc()
}

// Register 注册额外的采集器到内部注册表.
func (c *PrometheusCollector) Register(collector prometheus.Collector) error {
	if err := c.registry.Register(collector); err != nil {
		return fmt.Errorf("%w: %v", ErrRegisterMetric, err)
	}
	return nil
}

// GetHandler 返回暴露内部注册表的 HTTP 处理器.
func (c *PrometheusCollector) GetHandler() http.Handler {
	return c.handler
}

// GetPath 返回 metrics 路径，默认 /metrics.
func (c *PrometheusCollector) GetPath() string {
	if c.config.Path == "" {
		return "/metrics"
	}
	return c.config.Path
}
