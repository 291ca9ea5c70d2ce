package server

import (
	"os"
	"syscall"
	"time"

	"github.com/Tsukikage7/jobkit/logger"
)

// AppOption App 配置选项.
type AppOption func(*appOptions)

type appOptions struct {
	name            string
	version         string
	logger          logger.Logger
	hooks           *Hooks
	shutdownTimeout time.Duration
	signals         []os.Signal
}

func defaultAppOptions() *appOptions {
	return &appOptions{
		name:            "jobkit",
		version:         "dev",
		shutdownTimeout: 30 * time.Second,
		signals:         []os.Signal{syscall.SIGINT, syscall.SIGTERM},
	}
}

// WithName 设置应用名称.
func WithName(name string) AppOption {
	return func(o *appOptions) { o.name = name }
}

// WithVersion 设置应用版本.
func WithVersion(version string) AppOption {
	return func(o *appOptions) { o.version = version }
}

// WithLogger 设置日志记录器，默认不输出日志.
func WithLogger(log logger.Logger) AppOption {
	return func(o *appOptions) { o.logger = log }
}

// WithHooks 设置生命周期钩子，通常由 NewHooks().Build() 得到.
func WithHooks(hooks *Hooks) AppOption {
	return func(o *appOptions) { o.hooks = hooks }
}

// WithShutdownTimeout 设置关闭超时，包括停止服务器和 BeforeStop 钩子，默认 30 秒.
//
// 非正数保留默认值.
func WithShutdownTimeout(d time.Duration) AppOption {
	return func(o *appOptions) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}

// WithSignals 设置触发关闭的系统信号，默认 SIGINT、SIGTERM.
func WithSignals(signals ...os.Signal) AppOption {
	return func(o *appOptions) {
		if len(signals) > 0 {
			o.signals = signals
		}
	}
}

// HTTPOption HTTP 服务器配置选项.
type HTTPOption func(*HTTP)

// WithHTTPName 设置服务器名称，用于日志.
func WithHTTPName(name string) HTTPOption {
	return func(s *HTTP) { s.name = name }
}

// WithHTTPAddr 设置监听地址，默认 ":8080"；":0" 表示随机端口，实际地址通过 Addr 获取.
func WithHTTPAddr(addr string) HTTPOption {
	return func(s *HTTP) { s.addr = addr }
}

// WithHTTPTimeouts 设置读、写、空闲超时，0 表示保留默认值.
//
// 同步触发任务的请求会阻塞到任务结束，写超时应大于任务的最长执行时间.
func WithHTTPTimeouts(read, write, idle time.Duration) HTTPOption {
	return func(s *HTTP) {
		if read > 0 {
			s.server.ReadTimeout = read
		}
		if write > 0 {
			s.server.WriteTimeout = write
		}
		if idle > 0 {
			s.server.IdleTimeout = idle
		}
	}
}

// WithHTTPLogger 设置日志记录器.
func WithHTTPLogger(log logger.Logger) HTTPOption {
	return func(s *HTTP) {
		if log != nil {
			s.logger = log
		}
	}
}
