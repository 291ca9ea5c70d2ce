package scheduler

import (
	"context"
	"time"

	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/recovery"
)

// JobContext 任务执行上下文.
type JobContext struct {
	// Job 执行开始时的任务快照.
	Job JobInfo

	// StartTime 开始执行时间.
	StartTime time.Time

	// Manual 是否由 RunNow 手动触发.
	Manual bool

	// Error 执行错误（仅在 AfterJob/OnError 中有值）.
	Error error

	// Duration 执行耗时（仅在 AfterJob/OnError 中有值）.
	Duration time.Duration

	// Skipped 是否被跳过.
	Skipped bool

	// SkipReason 跳过原因.
	SkipReason string
}

// BeforeJobHook 任务执行前回调.
//
// 返回 error 或 panic 时本次触发记为跳过，任务按正常节奏顺延.
type BeforeJobHook func(ctx context.Context, jc *JobContext) error

// JobHook 任务事件回调，用于 AfterJob、OnError 和 OnSkip.
//
// 回调中的 panic 会被恢复并记录日志，不影响任务状态和其他回调.
type JobHook func(ctx context.Context, jc *JobContext)

// Hooks 任务钩子集合.
//
// 钩子在执行任务的 goroutine 中按注册顺序同步调用，应尽量轻量.
type Hooks struct {
	BeforeJob []BeforeJobHook
	// AfterJob 每次实际执行后调用，无论成功失败
	AfterJob []JobHook
	// OnError 执行失败时在 AfterJob 之前调用
	OnError []JobHook
	// OnSkip 触发被跳过时调用（正在执行或被 BeforeJob 拒绝）
	OnSkip []JobHook
}

// merge 把 other 中的钩子追加到 h.
func (h *Hooks) merge(other *Hooks) {
	if other == nil {
		return
	}
	h.BeforeJob = append(h.BeforeJob, other.BeforeJob...)
	h.AfterJob = append(h.AfterJob, other.AfterJob...)
	h.OnError = append(h.OnError, other.OnError...)
	h.OnSkip = append(h.OnSkip, other.OnSkip...)
}

// before 依次执行前置钩子，第一个错误即返回.
func (h *Hooks) before(ctx context.Context, jc *JobContext) error {
	for _, hook := range h.BeforeJob {
		if err := recovery.Do(func() error { return hook(ctx, jc) }); err != nil {
			return err
		}
	}
	return nil
}

// notify 依次执行事件钩子，panic 只记录日志.
func notify(ctx context.Context, log logger.Logger, event string, hooks []JobHook, jc *JobContext) {
	for i, hook := range hooks {
		if err := recovery.Run(func() { hook(ctx, jc) }); err != nil {
			log.With(
				logger.String("hook", event),
				logger.Int("index", i),
				logger.Err(err),
			).Error("[Scheduler] 钩子 panic")
		}
	}
}

// HooksBuilder 钩子构建器.
//
//	hooks := scheduler.NewHooks().
//	    AfterJob(func(ctx context.Context, jc *scheduler.JobContext) {
//	        log.Infof("%s 耗时 %v", jc.Job.Name, jc.Duration)
//	    }).
//	    Build()
type HooksBuilder struct {
	hooks Hooks
}

// NewHooks 创建钩子构建器.
func NewHooks() *HooksBuilder {
	return &HooksBuilder{}
}

// BeforeJob 添加前置钩子.
func (b *HooksBuilder) BeforeJob(hook BeforeJobHook) *HooksBuilder {
	b.hooks.BeforeJob = append(b.hooks.BeforeJob, hook)
	return b
}

// AfterJob 添加后置钩子.
func (b *HooksBuilder) AfterJob(hook JobHook) *HooksBuilder {
	b.hooks.AfterJob = append(b.hooks.AfterJob, hook)
	return b
}

// OnError 添加错误钩子.
func (b *HooksBuilder) OnError(hook JobHook) *HooksBuilder {
	b.hooks.OnError = append(b.hooks.OnError, hook)
	return b
}

// OnSkip 添加跳过钩子.
func (b *HooksBuilder) OnSkip(hook JobHook) *HooksBuilder {
	b.hooks.OnSkip = append(b.hooks.OnSkip, hook)
	return b
}

// Build 返回钩子集合的副本，builder 可以继续复用.
func (b *HooksBuilder) Build() *Hooks {
	h := &Hooks{}
	h.merge(&b.hooks)
	return h
}
