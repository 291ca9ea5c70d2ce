package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/recovery"
)

// RunNow 同步执行任务.
func (s *tickScheduler) RunNow(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSchedulerClosed
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	j, ok := s.reg.get(id)
	if !ok {
		return ErrJobNotFound
	}

	j.mu.RLock()
	cancelled := j.status == StatusCancelled
	j.mu.RUnlock()
	if cancelled {
		return ErrJobCancelled
	}

	if !j.tryStart() {
		s.skip(ctx, j, true, "previous execution still running")
		return ErrJobRunning
	}
	return s.run(ctx, j, true)
}

// TriggerNow 同步执行任务，成功返回 true.
func (s *tickScheduler) TriggerNow(ctx context.Context, id string) bool {
	return s.RunNow(ctx, id) == nil
}

// run 执行一次任务，调用方必须已持有执行守卫.
//
// 任务体的错误和 panic 都被收敛在这里，不会传播到调度循环.
func (s *tickScheduler) run(parent context.Context, j *job, manual bool) error {
	defer j.finish()

	now := s.clock.Now()

	j.mu.Lock()
	prev := j.status
	switch {
	case prev == StatusCancelled:
		j.mu.Unlock()
		return ErrJobCancelled
	case prev == StatusPaused && !manual:
		// 扫描与派发之间被暂停
		j.mu.Unlock()
		return nil
	}
	j.status = StatusRunning
	j.runFrom = prev
	j.runCount++
	if schedulable(prev) && !j.nextRun.After(now) {
		// 当前触发点已被本次执行消费，执行期间再到期的才是错过的触发点
		if next := j.trigger.Next(now); !next.IsZero() {
			j.nextRun = next
		}
	}
	j.mu.Unlock()

	ctx, cancel := s.jobContext(parent, j)
	defer cancel()

	jc := &JobContext{
		Job:       j.snapshot(),
		StartTime: now,
		Manual:    manual,
	}
	ctx = contextWithJob(ctx, jc.Job)
	log := s.log.With(
		logger.String("job", j.name),
		logger.String("job_id", j.id),
		logger.Bool("manual", manual),
	)

	if err := s.opts.hooks.before(ctx, jc); err != nil {
		s.restore(j, prev, now)
		j.recordSkip()
		jc.Skipped = true
		jc.SkipReason = err.Error()
		log.With(logger.Err(err)).Info("[Scheduler] 任务被前置钩子跳过")
		notify(ctx, log, "on_skip", s.opts.hooks.OnSkip, jc)
		return &SkipError{JobID: j.id, JobName: j.name, Err: err}
	}

	handler := s.chain(j.handler)
	started := time.Now()
	err := recovery.Do(func() error {
		return handler(ctx)
	})
	duration := time.Since(started)
	end := s.clock.Now()
	next := j.trigger.Next(end)

	j.mu.Lock()
	j.lastDuration = duration
	if err == nil {
		j.lastRun = end
		j.executionCount++
		j.lastError = ""
	} else {
		j.failCount++
		j.lastError = err.Error()
	}
	j.nextRun = next
	if j.status == StatusRunning {
		switch {
		case prev == StatusPaused:
			j.status = StatusPaused
		case next.IsZero():
			j.status = StatusFaulted
		case err != nil:
			j.status = StatusFaulted
		default:
			j.status = StatusScheduled
		}
	}
	if next.IsZero() && j.lastError == "" {
		j.lastError = ErrInvariant.Error()
	}
	j.mu.Unlock()

	if next.IsZero() {
		log.With(
			logger.String("severity", "critical"),
			logger.String("trigger", j.trigger.String()),
			logger.Err(ErrInvariant),
		).Error("[Scheduler] 触发规则没有下一次执行时间，任务不再调度")
	}

	jc.Duration = duration
	if err != nil {
		jc.Error = &ExecutionError{JobID: j.id, JobName: j.name, Err: err}
		log.With(logger.Duration("duration", duration), logger.Err(err)).Error("[Scheduler] 任务执行失败")
		notify(ctx, log, "on_error", s.opts.hooks.OnError, jc)
	} else {
		log.With(logger.Duration("duration", duration), logger.Time("next_run", next)).Debug("[Scheduler] 任务执行完成")
	}
	notify(ctx, log, "after_job", s.opts.hooks.AfterJob, jc)

	return jc.Error
}

// restore 前置钩子拒绝执行时恢复状态，并按节奏顺延.
func (s *tickScheduler) restore(j *job, prev JobStatus, now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status == StatusRunning {
		j.status = prev
	}
	if next := j.trigger.Next(now); !next.IsZero() {
		j.nextRun = next
	}
}

// skip 记录一次跳过并通知钩子.
func (s *tickScheduler) skip(ctx context.Context, j *job, manual bool, reason string) {
	j.recordSkip()
	jc := &JobContext{
		Job:        j.snapshot(),
		StartTime:  s.clock.Now(),
		Manual:     manual,
		Skipped:    true,
		SkipReason: reason,
	}
	log := s.log.With(
		logger.String("job", j.name),
		logger.String("job_id", j.id),
	)
	log.With(logger.String("reason", reason)).Debug("[Scheduler] 任务跳过")
	notify(ctx, log, "on_skip", s.opts.hooks.OnSkip, jc)
}

// chain 按注册顺序包装中间件，第一个位于最外层.
func (s *tickScheduler) chain(fn JobFunc) JobFunc {
	for i := len(s.opts.middlewares) - 1; i >= 0; i-- {
		fn = s.opts.middlewares[i](fn)
	}
	return fn
}

// jobContext 构建单次执行的 context.
//
// 调度器停止时取消，超时时间取任务配置，未配置时取调度器默认值.
func (s *tickScheduler) jobContext(parent context.Context, j *job) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	life := s.runCtx
	s.mu.Unlock()

	stop := func() bool { return false }
	if life != nil && life != parent {
		stop = context.AfterFunc(life, cancel)
	}

	timeout := j.timeout
	if timeout <= 0 {
		timeout = s.opts.defaultTimeout
	}
	if timeout <= 0 {
		return ctx, func() {
			stop()
			cancel()
		}
	}

	tctx, tcancel := context.WithTimeout(ctx, timeout)
	return tctx, func() {
		stop()
		tcancel()
		cancel()
	}
}

// IsExecutionError 判断 err 是否为任务体执行失败.
func IsExecutionError(err error) bool {
	var execErr *ExecutionError
	return errors.As(err, &execErr)
}
