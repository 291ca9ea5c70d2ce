package main

import (
	"context"
	"fmt"
	"net/http"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Tsukikage7/jobkit/admin"
	"github.com/Tsukikage7/jobkit/config"
	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/metrics"
	"github.com/Tsukikage7/jobkit/scheduler"
	"github.com/Tsukikage7/jobkit/server"
	"github.com/Tsukikage7/jobkit/tracing"
)

// daemon 组装好的守护进程.
type daemon struct {
	cfg       *config.Config
	log       logger.Logger
	collector *metrics.PrometheusCollector
	tp        *sdktrace.TracerProvider
	scheduler scheduler.Scheduler
	admin     *server.HTTP
	app       *server.App
}

// newDaemon 按配置构建日志、指标、链路追踪、调度器和管理接口.
func newDaemon(cfg *config.Config, log logger.Logger) (*daemon, error) {
	d := &daemon{cfg: cfg, log: log}

	tp, err := tracing.NewTracer(&cfg.Tracing, cfg.App.Name, cfg.App.Version)
	if err != nil {
		return nil, fmt.Errorf("create tracer: %w", err)
	}
	d.tp = tp

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	opts := []scheduler.Option{
		scheduler.WithLogger(log),
		scheduler.WithLocation(loc),
		scheduler.WithTickInterval(cfg.Scheduler.TickInterval),
		scheduler.WithDefaultTimeout(cfg.Scheduler.DefaultTimeout),
		scheduler.WithMiddleware(tracing.JobMiddleware(tp.Tracer(tracing.TracerName))),
	}

	if cfg.Metrics.Enabled {
		collector, err := metrics.NewMetrics(&cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("create metrics: %w", err)
		}
		d.collector = collector
		opts = append(opts, scheduler.WithHooks(collector.Hooks()))
	}

	s, err := scheduler.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	d.scheduler = s

	if d.collector != nil {
		if err := d.collector.RegisterScheduler(s); err != nil {
			return nil, err
		}
	}

	if err := d.registerJobs(); err != nil {
		return nil, err
	}

	servers := []server.Server{scheduler.NewService(s, "scheduler")}
	if cfg.Admin.Enabled {
		d.admin = server.NewHTTP(d.adminHandler(),
			server.WithHTTPName("admin"),
			server.WithHTTPAddr(cfg.Admin.Addr),
			server.WithHTTPLogger(log),
		)
		servers = append(servers, d.admin)
	}

	d.app = server.NewApp(
		server.WithName(cfg.App.Name),
		server.WithVersion(cfg.App.Version),
		server.WithLogger(log),
		server.WithShutdownTimeout(cfg.App.ShutdownTimeout),
		server.WithHooks(server.NewHooks().
			AfterStop(func(ctx context.Context) error {
				return d.tp.Shutdown(ctx)
			}).
			Build()),
	).Use(servers...)

	return d, nil
}

// registerJobs 注册配置中的任务，paused 的任务注册后立即暂停.
func (d *daemon) registerJobs() error {
	for i, jc := range d.cfg.Jobs {
		trigger, err := jc.Trigger()
		if err != nil {
			return &config.JobConfigError{Index: i, Name: jc.Name, Err: err}
		}

		id, err := d.scheduler.Register(jc.Name, trigger, commandJob(jc, d.log), jc.JobOptions()...)
		if err != nil {
			return &config.JobConfigError{Index: i, Name: jc.Name, Err: err}
		}
		if jc.Paused {
			d.scheduler.Pause(id)
		}
	}
	return nil
}

func (d *daemon) adminHandler() http.Handler {
	opts := []admin.Option{admin.WithLogger(d.log)}
	if d.collector != nil {
		opts = append(opts, admin.WithMetrics(d.collector))
	}

	h := admin.New(d.scheduler, opts...)
	if d.collector != nil {
		h.Handle("GET "+d.collector.GetPath(), d.collector.GetHandler())
	}
	return h
}

// Run 运行直到收到退出信号.
func (d *daemon) Run() error {
	return d.app.Run()
}
