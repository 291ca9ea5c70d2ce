package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// JobFunc 任务执行函数.
//
// ctx 在调度器 Stop/Shutdown 或任务超时时被取消.
type JobFunc func(ctx context.Context) error

// JobStatus 任务状态.
type JobStatus int32

const (
	// StatusScheduled 等待下一次触发.
	StatusScheduled JobStatus = iota
	// StatusRunning 执行中.
	StatusRunning
	// StatusPaused 已暂停，不会被调度循环选中.
	StatusPaused
	// StatusFaulted 上一次执行失败，仍按原节奏继续调度.
	StatusFaulted
	// StatusCancelled 已取消，终态.
	StatusCancelled
)

// String 返回状态字符串.
func (s JobStatus) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusFaulted:
		return "faulted"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal 判断是否为终态.
func (s JobStatus) Terminal() bool {
	return s == StatusCancelled
}

// MarshalText 以字符串形式序列化状态.
func (s JobStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText 从字符串解析状态，供管理接口的客户端使用.
func (s *JobStatus) UnmarshalText(text []byte) error {
	status, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// ParseStatus 解析状态字符串.
func ParseStatus(name string) (JobStatus, error) {
	for st := StatusScheduled; st <= StatusCancelled; st++ {
		if st.String() == name {
			return st, nil
		}
	}
	return 0, fmt.Errorf("scheduler: unknown job status %q", name)
}

// JobInfo 任务状态快照.
//
// 由 GetInfo/ListAll 返回的值拷贝，修改它不会影响调度器.
type JobInfo struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Trigger        string        `json:"trigger"`
	Status         JobStatus     `json:"status"`
	Running        bool          `json:"running"`
	NextRun        time.Time     `json:"next_run"`
	LastRun        *time.Time    `json:"last_run,omitempty"`
	ExecutionCount int64         `json:"execution_count"`
	LastError      string        `json:"last_error,omitempty"`
	RunCount       int64         `json:"run_count"`
	FailCount      int64         `json:"fail_count"`
	SkipCount      int64         `json:"skip_count"`
	LastDuration   time.Duration `json:"last_duration"`
	Timeout        time.Duration `json:"timeout,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

type jobInfoKey struct{}

// JobFromContext 获取当前执行任务的快照，仅在任务体、钩子和中间件中可用.
func JobFromContext(ctx context.Context) (JobInfo, bool) {
	info, ok := ctx.Value(jobInfoKey{}).(JobInfo)
	return info, ok
}

func contextWithJob(ctx context.Context, info JobInfo) context.Context {
	return context.WithValue(ctx, jobInfoKey{}, info)
}

// JobOption 任务注册选项.
type JobOption func(*job)

// WithTimeout 设置单次执行的超时时间（0 表示使用调度器默认值）.
func WithTimeout(d time.Duration) JobOption {
	return func(j *job) {
		j.timeout = d
	}
}

// WithTags 设置任务标签，仅用于展示和筛选.
func WithTags(tags ...string) JobOption {
	return func(j *job) {
		j.tags = append([]string(nil), tags...)
	}
}

// job 调度任务记录，只由 registry 持有.
type job struct {
	id        string
	name      string
	trigger   Trigger
	handler   JobFunc
	timeout   time.Duration
	tags      []string
	createdAt time.Time
	seq       uint64

	// running 执行守卫，只能通过 tryStart/finish 修改.
	running atomic.Bool

	mu     sync.RWMutex
	status JobStatus
	// runFrom 进入 Running 之前的状态，用于判断执行中错过的触发点是否计为跳过.
	runFrom        JobStatus
	nextRun        time.Time
	lastRun        time.Time
	executionCount int64
	lastError      string
	runCount       int64
	failCount      int64
	skipCount      int64
	lastDuration   time.Duration
}

// tryStart 尝试获取执行守卫（CAS 操作，保证单例）.
func (j *job) tryStart() bool {
	return j.running.CompareAndSwap(false, true)
}

// finish 释放执行守卫.
func (j *job) finish() {
	j.running.Store(false)
}

// isDue 判断任务在 now 时刻是否应被调度循环选中.
//
// 执行中的任务在触发点到期时同样被选中，派发时守卫获取失败，记为一次跳过；
// 手动执行的暂停任务不参与调度，不计跳过.
func (j *job) isDue(now time.Time) bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.nextRun.IsZero() || j.nextRun.After(now) {
		return false
	}
	if j.running.Load() {
		return j.status == StatusRunning && schedulable(j.runFrom)
	}
	return schedulable(j.status)
}

func schedulable(st JobStatus) bool {
	return st == StatusScheduled || st == StatusFaulted
}

// skipSlot 把执行中错过的触发点顺延到 now 之后，同一个触发点只记一次跳过.
func (j *job) skipSlot(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.nextRun.After(now) {
		return
	}
	if next := j.trigger.Next(now); !next.IsZero() {
		j.nextRun = next
	}
}

func (j *job) recordSkip() {
	j.mu.Lock()
	j.skipCount++
	j.mu.Unlock()
}

// snapshot 返回当前状态的值拷贝.
func (j *job) snapshot() JobInfo {
	j.mu.RLock()
	defer j.mu.RUnlock()

	info := JobInfo{
		ID:             j.id,
		Name:           j.name,
		Trigger:        j.trigger.String(),
		Status:         j.status,
		Running:        j.running.Load(),
		NextRun:        j.nextRun,
		ExecutionCount: j.executionCount,
		LastError:      j.lastError,
		RunCount:       j.runCount,
		FailCount:      j.failCount,
		SkipCount:      j.skipCount,
		LastDuration:   j.lastDuration,
		Timeout:        j.timeout,
		CreatedAt:      j.createdAt,
	}
	if !j.lastRun.IsZero() {
		lastRun := j.lastRun
		info.LastRun = &lastRun
	}
	if len(j.tags) > 0 {
		info.Tags = append([]string(nil), j.tags...)
	}
	return info
}
