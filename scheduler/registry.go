package scheduler

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// registry 任务目录.
//
// mu 只保护 map 本身；单个任务的状态由任务自己的锁和执行守卫保护，
// 因此不同任务的执行互不串行.
type registry struct {
	mu   sync.RWMutex
	jobs map[string]*job
	seq  uint64
}

func newRegistry() *registry {
	return &registry{
		jobs: make(map[string]*job),
	}
}

// add 校验并登记任务，返回新生成的任务 ID.
func (r *registry) add(now time.Time, name string, trigger Trigger, handler JobFunc, opts ...JobOption) (*job, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Reason: "is required", err: ErrJobNameEmpty}
	}
	if handler == nil {
		return nil, &ValidationError{Field: "handler", Reason: "is required", err: ErrHandlerNil}
	}
	switch t := trigger.(type) {
	case nil:
		return nil, invalidTrigger("trigger", "is required")
	case *Interval:
		if t == nil {
			return nil, invalidTrigger("trigger", "is required")
		}
		// 保存值拷贝并固定锚点，调用方之后修改指针不影响已注册的任务
		trigger = t.pinned(now)
	case Interval:
		trigger = t.pinned(now)
	}
	if err := trigger.Validate(); err != nil {
		return nil, err
	}

	next := trigger.Next(now)
	if next.IsZero() {
		return nil, invalidTrigger("trigger", "%s never fires after %s", trigger, now.Format(time.RFC3339))
	}

	j := &job{
		id:        uuid.NewString(),
		name:      name,
		trigger:   trigger,
		handler:   handler,
		createdAt: now,
		status:    StatusScheduled,
		nextRun:   next,
	}
	for _, opt := range opts {
		opt(j)
	}

	r.mu.Lock()
	r.seq++
	j.seq = r.seq
	r.jobs[j.id] = j
	r.mu.Unlock()

	return j, nil
}

func (r *registry) get(id string) (*job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	return j, ok
}

// remove 注销任务，正在执行的实例会继续跑完.
func (r *registry) remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

// list 按注册顺序返回所有任务.
func (r *registry) list() []*job {
	r.mu.RLock()
	jobs := make([]*job, 0, len(r.jobs))
	for _, j := range r.jobs {
		jobs = append(jobs, j)
	}
	r.mu.RUnlock()

	sort.Slice(jobs, func(a, b int) bool {
		return jobs[a].seq < jobs[b].seq
	})
	return jobs
}

// due 返回 now 时刻到期的任务，按注册顺序排列.
func (r *registry) due(now time.Time) []*job {
	var due []*job
	for _, j := range r.list() {
		if j.isDue(now) {
			due = append(due, j)
		}
	}
	return due
}

// pause 仅允许从 Scheduled 或 Faulted 暂停.
func (r *registry) pause(id string) bool {
	j, ok := r.get(id)
	if !ok {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusScheduled && j.status != StatusFaulted {
		return false
	}
	j.status = StatusPaused
	return true
}

// resume 仅允许从 Paused 恢复，恢复后立即可被调度.
func (r *registry) resume(id string, now time.Time) bool {
	j, ok := r.get(id)
	if !ok {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status != StatusPaused {
		return false
	}
	j.status = StatusScheduled
	j.nextRun = now
	return true
}

// cancel 从任意非终态进入 Cancelled.
//
// 正在执行的实例不会被打断，但执行结束后不再被调度.
func (r *registry) cancel(id string) bool {
	j, ok := r.get(id)
	if !ok {
		return false
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.status.Terminal() {
		return false
	}
	j.status = StatusCancelled
	return true
}
