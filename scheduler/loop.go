package scheduler

import (
	"context"
	"time"

	"github.com/Tsukikage7/jobkit/logger"
)

// Start 启动调度器.
func (s *tickScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSchedulerClosed
	}
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.runCtx = ctx
	s.cancel = cancel
	s.loopDone = done
	s.running = true

	go s.loop(ctx, done)

	s.log.With(logger.Duration("tick", s.opts.tickInterval)).Info("[Scheduler] 调度器已启动")
	return nil
}

// Stop 停止调度器.
//
// 取消执行中任务的 context，但不等待它们结束；需要等待时使用 Shutdown.
func (s *tickScheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.loopDone
	s.running = false
	s.runCtx = nil
	s.cancel = nil
	s.loopDone = nil
	s.mu.Unlock()

	cancel()
	<-done

	s.log.Info("[Scheduler] 调度器已停止")
}

// Shutdown 优雅关闭.
func (s *tickScheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.Stop()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("[Scheduler] 调度器优雅关闭完成")
		return nil
	case <-ctx.Done():
		s.log.Warn("[Scheduler] 等待任务完成超时")
		return ctx.Err()
	}
}

// loop 调度循环，同一时刻只有一次扫描.
func (s *tickScheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.opts.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.dispatchDue(ctx)
		}
	}
}

// dispatchDue 扫描到期任务并逐个派发，不等待执行结束.
//
// 执行守卫在派发前获取，返回实际派发的任务数.
func (s *tickScheduler) dispatchDue(ctx context.Context) int {
	now := s.clock.Now()
	dispatched := 0

	for _, j := range s.reg.due(now) {
		if ctx.Err() != nil {
			break
		}
		if !j.tryStart() {
			j.skipSlot(now)
			s.skip(ctx, j, false, "previous execution still running")
			continue
		}

		dispatched++
		s.wg.Add(1)
		go func(j *job) {
			defer s.wg.Done()
			_ = s.run(ctx, j, false)
		}(j)
	}

	return dispatched
}
