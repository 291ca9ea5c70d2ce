package admin

import (
	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/metrics"
)

// Option 管理接口配置选项.
type Option func(*options)

type options struct {
	logger    logger.Logger
	collector metrics.Collector
	prefix    string
}

// WithLogger 设置日志记录器.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithMetrics 采集管理接口的 HTTP 指标.
func WithMetrics(collector metrics.Collector) Option {
	return func(o *options) {
		o.collector = collector
	}
}

// WithPrefix 设置路由前缀，如 "/admin".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}
