// Package server 提供应用服务器框架.
//
// App 统一启动多个 Server（管理接口、调度器等），任一启动失败或收到
// SIGINT/SIGTERM 时按超时优雅关闭，并在启停前后执行生命周期钩子.
//
//	httpSrv := server.NewHTTP(handler,
//	    server.WithHTTPAddr(":8080"),
//	)
//
//	app := server.NewApp(
//	    server.WithName("jobd"),
//	    server.WithLogger(log),
//	)
//	app.Use(httpSrv, scheduler.NewService(s, "scheduler"))
//	app.Run()
package server

import (
	"context"
	"fmt"
	"os/signal"
	"slices"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/Tsukikage7/jobkit/logger"
)

// Server 由 App 管理的长期运行组件.
//
// Start 阻塞到 ctx 结束或出错；Stop 在 ctx 截止前释放资源，
// 未启动时调用 Stop 应直接返回 nil.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Name() string
	// Addr 监听地址，非网络组件返回空字符串.
	Addr() string
}

// App 管理一组 Server 的生命周期.
//
// 同一时刻只允许一次 Run；Run 返回后可以再次调用.
type App struct {
	opts    *appOptions
	log     logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	running atomic.Bool

	mu      sync.Mutex
	servers []Server
}

// NewApp 创建应用程序.
func NewApp(opts ...AppOption) *App {
	o := defaultAppOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		opts:   o,
		log:    o.logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Use 注册服务器，支持链式调用.
func (a *App) Use(servers ...Server) *App {
	a.mu.Lock()
	a.servers = append(a.servers, servers...)
	a.mu.Unlock()
	return a
}

// Run 启动所有服务器并阻塞.
//
// 收到关闭信号、调用 Stop 或任一服务器启动失败时退出，
// 之后按 BeforeStop、停止服务器、AfterStop 的顺序关闭；返回服务器的启动错误.
func (a *App) Run() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrServerRunning
	}
	defer a.running.Store(false)

	a.mu.Lock()
	servers := slices.Clone(a.servers)
	a.mu.Unlock()

	if err := a.opts.hooks.beforeStart(a.ctx); err != nil {
		return err
	}

	a.log.With(
		logger.String("app", a.opts.name),
		logger.String("version", a.opts.version),
		logger.Int("servers", len(servers)),
	).Info("[App] 应用启动中")
	if len(servers) == 0 {
		a.log.Warn("[App] 没有注册任何服务器")
	}

	// 信号在服务器启动前订阅，启动期间到达的信号同样触发关闭.
	sigCtx, stopSignals := signal.NotifyContext(a.ctx, a.opts.signals...)
	defer stopSignals()

	g, runCtx := errgroup.WithContext(sigCtx)
	for _, srv := range servers {
		g.Go(func() error {
			a.log.Debugf("[App] 启动服务器 %s [addr:%s]", srv.Name(), srv.Addr())
			if err := srv.Start(runCtx); err != nil {
				a.log.With(logger.String("server", srv.Name()), logger.Err(err)).Error("[App] 服务器启动失败")
				return fmt.Errorf("%s: %w", srv.Name(), err)
			}
			return nil
		})
	}

	if err := a.opts.hooks.afterStart(a.ctx); err != nil {
		a.log.Errorf("[App] 启动后钩子执行失败: %v", err)
	}

	<-runCtx.Done()
	switch {
	case a.ctx.Err() != nil:
		a.log.Debug("[App] 应用被主动停止")
	case sigCtx.Err() != nil:
		a.log.Info("[App] 收到关闭信号")
	}

	a.shutdown(servers)
	return g.Wait()
}

// Stop 触发关闭，Run 在关闭完成后返回.
func (a *App) Stop() {
	a.cancel()
}

// Context 应用上下文，Stop 后被取消.
func (a *App) Context() context.Context {
	return a.ctx
}

func (a *App) Name() string    { return a.opts.name }
func (a *App) Version() string { return a.opts.version }

// shutdown 在超时内并发停止所有服务器.
func (a *App) shutdown(servers []Server) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.shutdownTimeout)
	defer cancel()

	a.log.Debugf("[App] 开始关闭 [timeout:%v]", a.opts.shutdownTimeout)
	if err := a.opts.hooks.beforeStop(ctx); err != nil {
		a.log.Errorf("[App] 停止前钩子执行失败: %v", err)
	}

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		var wg sync.WaitGroup
		for _, srv := range servers {
			wg.Go(func() {
				if err := srv.Stop(ctx); err != nil {
					a.log.With(logger.String("server", srv.Name()), logger.Err(err)).Error("[App] 服务器停止失败")
				}
			})
		}
		wg.Wait()
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		a.log.Warn("[App] 关闭超时，部分服务器未完全停止")
	}

	// AfterStop 通常用于刷新导出器，不受已耗尽的关闭超时影响
	if err := a.opts.hooks.afterStop(context.Background()); err != nil {
		a.log.Errorf("[App] 停止后钩子执行失败: %v", err)
	}
	a.log.With(logger.String("app", a.opts.name)).Info("[App] 应用已关闭")
}
