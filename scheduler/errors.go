package scheduler

import (
	"errors"
	"fmt"
)

// 预定义错误.
var (
	// ErrJobNameEmpty 任务名称为空.
	ErrJobNameEmpty = errors.New("scheduler: job name is required")

	// ErrHandlerNil 任务处理函数为空.
	ErrHandlerNil = errors.New("scheduler: job handler is required")

	// ErrInvalidTrigger 无效的触发规则.
	ErrInvalidTrigger = errors.New("scheduler: invalid trigger")

	// ErrSchedulerClosed 调度器已关闭.
	ErrSchedulerClosed = errors.New("scheduler: scheduler is closed")

	// ErrJobNotFound 任务未找到.
	ErrJobNotFound = errors.New("scheduler: job not found")

	// ErrJobCancelled 任务已取消.
	ErrJobCancelled = errors.New("scheduler: job is cancelled")

	// ErrJobRunning 任务正在执行中.
	ErrJobRunning = errors.New("scheduler: job is already running")

	// ErrJobSkipped 本次执行被前置钩子拒绝.
	ErrJobSkipped = errors.New("scheduler: job execution skipped")

	// ErrInvariant 内部不变量被破坏，正常情况下不可达.
	ErrInvariant = errors.New("scheduler: internal invariant violated")
)

// ValidationError 注册参数校验错误.
//
// 触发规则相关的校验错误同时满足 errors.Is(err, ErrInvalidTrigger).
type ValidationError struct {
	Field  string
	Reason string
	err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("scheduler: invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.err
}

// invalidTrigger 构造触发规则校验错误.
func invalidTrigger(field, format string, args ...any) error {
	return &ValidationError{
		Field:  field,
		Reason: fmt.Sprintf(format, args...),
		err:    ErrInvalidTrigger,
	}
}

// ExecutionError 任务体执行失败.
//
// 只会出现在 RunNow 的返回值和 OnError 钩子中，不会传播到调度循环.
type ExecutionError struct {
	JobID   string
	JobName string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("scheduler: job %s (%s) failed: %v", e.JobName, e.JobID, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// SkipError 前置钩子拒绝了本次执行，满足 errors.Is(err, ErrJobSkipped).
//
// Err 为钩子返回的原始错误（或钩子 panic 转换成的 *recovery.PanicError）.
type SkipError struct {
	JobID   string
	JobName string
	Err     error
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("scheduler: job %s (%s) skipped: %v", e.JobName, e.JobID, e.Err)
}

func (e *SkipError) Is(target error) bool {
	return target == ErrJobSkipped
}

func (e *SkipError) Unwrap() error {
	return e.Err
}
