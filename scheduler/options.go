package scheduler

import (
	"time"

	"github.com/Tsukikage7/jobkit/logger"
)

// Option 调度器配置选项.
type Option func(*options)

// Middleware 包装任务执行函数，例如链路追踪.
type Middleware func(next JobFunc) JobFunc

// options 调度器内部配置.
type options struct {
	logger         logger.Logger
	clock          Clock
	location       *time.Location
	hooks          *Hooks
	middlewares    []Middleware
	tickInterval   time.Duration
	defaultTimeout time.Duration
}

// defaultOptions 返回默认配置.
func defaultOptions() *options {
	return &options{
		clock:        SystemClock{},
		hooks:        &Hooks{},
		tickInterval: time.Second,
	}
}

// WithLogger 设置日志记录器.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithClock 设置时间来源.
//
// 默认: 系统时钟.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLocation 设置时区.
//
// DailyAt、WeeklyAt 和 Cron 按该时区计算.
// 默认: 时钟返回值自带的时区.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.location = loc
	}
}

// WithTickInterval 设置调度循环的扫描间隔.
//
// 默认: 1 秒.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithHooks 追加全局钩子.
//
// 可多次调用，钩子按追加顺序执行.
func WithHooks(hooks ...*Hooks) Option {
	return func(o *options) {
		for _, h := range hooks {
			o.hooks.merge(h)
		}
	}
}

// WithMiddleware 追加任务中间件.
//
// 第一个中间件位于最外层.
func WithMiddleware(mws ...Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// WithDefaultTimeout 设置默认任务超时时间.
//
// 如果任务未指定超时时间，将使用此值；0 表示不限制.
// 默认: 0.
func WithDefaultTimeout(d time.Duration) Option {
	return func(o *options) {
		o.defaultTimeout = d
	}
}
