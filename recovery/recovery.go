// Package recovery 把 panic 转换为普通错误.
//
// 调度器用它隔离任务体和钩子，管理接口用它保护 HTTP 处理器，
// 任何一处 panic 都不会逃逸到调度循环或服务器 goroutine.
package recovery

import (
	"errors"
	"fmt"
	"runtime"
)

const defaultStackSize = 64 << 10

// Handler 自定义 panic 处理，返回值作为调用结果.
type Handler func(p any, stack []byte) error

type config struct {
	handler   Handler
	stackSize int
	stackAll  bool
}

// Option 配置函数.
type Option func(*config)

// WithHandler 设置自定义 panic 处理函数，默认返回 *PanicError.
func WithHandler(h Handler) Option {
	return func(c *config) { c.handler = h }
}

// WithStackSize 设置堆栈缓冲区大小，非正数使用默认值 64KB.
func WithStackSize(size int) Option {
	return func(c *config) { c.stackSize = size }
}

// WithStackAll 捕获所有 goroutine 的堆栈.
func WithStackAll(all bool) Option {
	return func(c *config) { c.stackAll = all }
}

// Do 执行 fn，发生 panic 时返回 *PanicError（或自定义 Handler 的结果）.
//
//	err := recovery.Do(func() error {
//	    return handler(ctx)
//	})
//	if pe, ok := recovery.AsPanic(err); ok {
//	    log.Error(string(pe.Stack))
//	}
func Do(fn func() error, opts ...Option) (err error) {
	defer func() {
		p := recover()
		if p == nil {
			return
		}
		c := config{stackSize: defaultStackSize}
		for _, opt := range opts {
			opt(&c)
		}
		if c.stackSize <= 0 {
			c.stackSize = defaultStackSize
		}
		buf := make([]byte, c.stackSize)
		stack := buf[:runtime.Stack(buf, c.stackAll)]
		if c.handler != nil {
			err = c.handler(p, stack)
			return
		}
		err = &PanicError{Value: p, Stack: stack}
	}()
	return fn()
}

// Run 执行无返回值的 fn，只在 panic 时返回错误.
func Run(fn func(), opts ...Option) error {
	return Do(func() error {
		fn()
		return nil
	}, opts...)
}

// AsPanic 判断 err 链中是否有 *PanicError.
func AsPanic(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// PanicError 被恢复的 panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap 在 panic 值本身是 error 时返回它.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
