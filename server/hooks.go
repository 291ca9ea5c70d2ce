package server

import (
	"context"
	"errors"

	"github.com/Tsukikage7/jobkit/recovery"
)

// Hook 生命周期钩子函数，panic 会被转换为错误.
type Hook func(ctx context.Context) error

// Hooks 生命周期钩子集合.
//
// 启动阶段的钩子遇到第一个错误即停止；停止阶段的钩子全部执行，
// 错误合并返回，保证每个资源都有机会释放.
type Hooks struct {
	BeforeStart []Hook
	AfterStart  []Hook
	BeforeStop  []Hook
	AfterStop   []Hook
}

func callHook(ctx context.Context, hook Hook) error {
	return recovery.Do(func() error { return hook(ctx) })
}

func firstError(ctx context.Context, hooks []Hook) error {
	for _, hook := range hooks {
		if err := callHook(ctx, hook); err != nil {
			return err
		}
	}
	return nil
}

func allErrors(ctx context.Context, hooks []Hook) error {
	var errs []error
	for _, hook := range hooks {
		errs = append(errs, callHook(ctx, hook))
	}
	return errors.Join(errs...)
}

func (h *Hooks) beforeStart(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return firstError(ctx, h.BeforeStart)
}

func (h *Hooks) afterStart(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return firstError(ctx, h.AfterStart)
}

func (h *Hooks) beforeStop(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return allErrors(ctx, h.BeforeStop)
}

func (h *Hooks) afterStop(ctx context.Context) error {
	if h == nil {
		return nil
	}
	return allErrors(ctx, h.AfterStop)
}

// HooksBuilder 钩子构建器.
//
//	hooks := server.NewHooks().
//	    AfterStop(func(ctx context.Context) error { return tp.Shutdown(ctx) }).
//	    Build()
type HooksBuilder struct {
	hooks Hooks
}

// NewHooks 创建钩子构建器.
func NewHooks() *HooksBuilder {
	return &HooksBuilder{}
}

// BeforeStart 添加启动前钩子，返回错误将中止启动.
func (b *HooksBuilder) BeforeStart(hook Hook) *HooksBuilder {
	b.hooks.BeforeStart = append(b.hooks.BeforeStart, hook)
	return b
}

func (b *HooksBuilder) AfterStart(hook Hook) *HooksBuilder {
	b.hooks.AfterStart = append(b.hooks.AfterStart, hook)
	return b
}

func (b *HooksBuilder) BeforeStop(hook Hook) *HooksBuilder {
	b.hooks.BeforeStop = append(b.hooks.BeforeStop, hook)
	return b
}

// AfterStop 添加停止后钩子，例如刷新日志、关闭 TracerProvider.
func (b *HooksBuilder) AfterStop(hook Hook) *HooksBuilder {
	b.hooks.AfterStop = append(b.hooks.AfterStop, hook)
	return b
}

// Build 构建钩子集合.
func (b *HooksBuilder) Build() *Hooks {
	return &b.hooks
}
