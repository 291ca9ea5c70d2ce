package scheduler

import (
	"context"
)

// Service 把调度器适配为 server.Server，交由 server.App 管理生命周期.
//
// Start 启动调度循环并阻塞到 ctx 结束，Stop 调用 Shutdown 等待执行中的任务.
type Service struct {
	scheduler Scheduler
	name      string
}

// NewService 创建调度器服务.
func NewService(s Scheduler, name string) *Service {
	if name == "" {
		name = "scheduler"
	}
	return &Service{scheduler: s, name: name}
}

// Start 启动调度器（阻塞）.
func (s *Service) Start(ctx context.Context) error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// Stop 停止调度器并等待执行中的任务结束.
func (s *Service) Stop(ctx context.Context) error {
	return s.scheduler.Shutdown(ctx)
}

// Name 服务名称.
func (s *Service) Name() string {
	return s.name
}

// Addr 调度器不监听地址.
func (s *Service) Addr() string {
	return ""
}

// Scheduler 返回被适配的调度器.
func (s *Service) Scheduler() Scheduler {
	return s.scheduler
}
