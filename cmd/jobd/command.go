package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Tsukikage7/jobkit/config"
	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/scheduler"
)

const (
	// outputLimit 错误信息中保留的输出尾部长度.
	outputLimit = 4 * 1024

	// killDelay 发送 SIGTERM 后等待进程退出的时间，超时后强制结束.
	killDelay = 5 * time.Second
)

// commandJob 通过 sh -c 执行配置中的命令.
//
// ctx 取消时先发送 SIGTERM，killDelay 后仍未退出则 SIGKILL.
// 任务 ID 和名称通过 JOBD_JOB_ID、JOBD_JOB_NAME 环境变量传入子进程.
func commandJob(cfg config.JobConfig, log logger.Logger) scheduler.JobFunc {
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "sh", "-c", cfg.Command)
		cmd.Dir = cfg.Dir
		cmd.Env = append(os.Environ(), cfg.Env...)
		if info, ok := scheduler.JobFromContext(ctx); ok {
			cmd.Env = append(cmd.Env, "JOBD_JOB_ID="+info.ID, "JOBD_JOB_NAME="+info.Name)
		}
		cmd.Cancel = func() error {
			return cmd.Process.Signal(syscall.SIGTERM)
		}
		cmd.WaitDelay = killDelay

		out := &tailBuffer{limit: outputLimit}
		cmd.Stdout = out
		cmd.Stderr = out

		started := time.Now()
		err := cmd.Run()

		log := log.WithContext(ctx).With(
			logger.String("job", cfg.Name),
			logger.Duration("duration", time.Since(started)),
		)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				err = fmt.Errorf("%w: %w", ctxErr, err)
			}
			if tail := out.String(); tail != "" {
				return fmt.Errorf("%w: %s", err, tail)
			}
			return err
		}

		log.With(logger.Int("exit_code", cmd.ProcessState.ExitCode())).Debugf("[Command] 命令执行完成: %s", out.String())
		return nil
	}
}

// tailBuffer 只保留最后 limit 字节的输出.
type tailBuffer struct {
	mu    sync.Mutex
	buf   bytes.Buffer
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(p)
	if n >= b.limit {
		b.buf.Reset()
		b.buf.Write(p[n-b.limit:])
		return n, nil
	}
	if over := b.buf.Len() + n - b.limit; over > 0 {
		b.buf.Next(over)
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
