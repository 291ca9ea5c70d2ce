// Package scheduler 提供周期任务调度功能.
//
// 特性：
//   - 三种内置触发规则：Interval（固定间隔，网格对齐）、DailyAt、WeeklyAt，另支持 Cron 表达式
//   - 单例执行：同一任务同一时刻最多只有一个实例在执行，重叠的触发直接跳过
//   - 错过的触发点按网格跳过，不会补跑
//   - 失败的任务记录错误后按原节奏继续调度
//   - 暂停/恢复/取消/立即执行
//   - Hook 机制：BeforeJob/AfterJob/OnError/OnSkip，以及任务中间件
//   - 可注入时钟，便于测试
//
// 示例：
//
//	s := scheduler.MustNew(
//	    scheduler.WithLogger(log),
//	    scheduler.WithTickInterval(time.Second),
//	)
//
//	every, _ := scheduler.Every(10 * time.Minute)
//	id, err := s.Register("sync-data", every, syncHandler)
//
//	nightly, _ := scheduler.NewDailyAt(3, 0, 0)
//	s.Register("cleanup", nightly, cleanupHandler, scheduler.WithTimeout(time.Hour))
//
//	s.Start()
//	defer s.Shutdown(context.Background())
package scheduler

import (
	"context"
	"sync"

	"github.com/Tsukikage7/jobkit/logger"
)

// Scheduler 调度器接口.
type Scheduler interface {
	// Register 注册任务，返回生成的任务 ID.
	// 触发规则非法时返回 *ValidationError；名称允许重复.
	Register(name string, trigger Trigger, fn JobFunc, opts ...JobOption) (string, error)

	// Pause 暂停任务，仅对 Scheduled/Faulted 状态生效.
	Pause(id string) bool

	// Resume 恢复已暂停的任务，并使其立即到期.
	Resume(id string) bool

	// Cancel 取消任务，终态且不可恢复.
	Cancel(id string) bool

	// Remove 注销任务.
	Remove(id string) bool

	// RunNow 同步执行任务，返回任务体的错误.
	// 未知、已取消或正在执行的任务分别返回 ErrJobNotFound、ErrJobCancelled、ErrJobRunning.
	RunNow(ctx context.Context, id string) error

	// TriggerNow 同步执行任务，成功返回 true.
	TriggerNow(ctx context.Context, id string) bool

	// GetInfo 获取任务快照.
	GetInfo(id string) (JobInfo, bool)

	// ListAll 按注册顺序列出所有任务快照.
	ListAll() []JobInfo

	// Start 启动调度循环，重复调用无副作用.
	Start() error

	// Stop 停止调度循环并取消执行中任务的 context，不等待其结束.
	Stop()

	// Shutdown 停止调度循环并等待执行中的任务结束，之后调度器不可再用.
	Shutdown(ctx context.Context) error

	// Running 检查调度循环是否运行中.
	Running() bool
}

// New 创建调度器.
func New(opts ...Option) (Scheduler, error) {
	return newTickScheduler(opts...), nil
}

// MustNew 创建调度器，失败时 panic.
func MustNew(opts ...Option) Scheduler {
	s, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// tickScheduler 基于固定节拍扫描的调度器实现.
type tickScheduler struct {
	opts  *options
	clock Clock
	reg   *registry
	log   logger.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	runCtx   context.Context
	cancel   context.CancelFunc
	loopDone chan struct{}

	wg sync.WaitGroup // 跟踪正在执行的任务
}

func newTickScheduler(opts ...Option) *tickScheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logger.NewNop()
	}

	clock := o.clock
	if o.location != nil {
		clock = locationClock{base: clock, loc: o.location}
	}

	return &tickScheduler{
		opts:  o,
		clock: clock,
		reg:   newRegistry(),
		log:   o.logger.With(logger.String("component", "scheduler")),
	}
}

// Register 注册任务.
func (s *tickScheduler) Register(name string, trigger Trigger, fn JobFunc, opts ...JobOption) (string, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return "", ErrSchedulerClosed
	}

	j, err := s.reg.add(s.clock.Now(), name, trigger, fn, opts...)
	if err != nil {
		s.log.With(logger.String("job", name), logger.Err(err)).Warn("[Scheduler] 任务注册失败")
		return "", err
	}

	info := j.snapshot()
	s.log.With(
		logger.String("job", info.Name),
		logger.String("job_id", info.ID),
		logger.String("trigger", info.Trigger),
		logger.Time("next_run", info.NextRun),
	).Info("[Scheduler] 任务已注册")

	return j.id, nil
}

// Pause 暂停任务.
func (s *tickScheduler) Pause(id string) bool {
	ok := s.reg.pause(id)
	if ok {
		s.log.With(logger.String("job_id", id)).Info("[Scheduler] 任务已暂停")
	}
	return ok
}

// Resume 恢复任务.
func (s *tickScheduler) Resume(id string) bool {
	ok := s.reg.resume(id, s.clock.Now())
	if ok {
		s.log.With(logger.String("job_id", id)).Info("[Scheduler] 任务已恢复")
	}
	return ok
}

// Cancel 取消任务.
func (s *tickScheduler) Cancel(id string) bool {
	ok := s.reg.cancel(id)
	if ok {
		s.log.With(logger.String("job_id", id)).Info("[Scheduler] 任务已取消")
	}
	return ok
}

// Remove 注销任务.
func (s *tickScheduler) Remove(id string) bool {
	ok := s.reg.remove(id)
	if ok {
		s.log.With(logger.String("job_id", id)).Info("[Scheduler] 任务已移除")
	}
	return ok
}

// GetInfo 获取任务快照.
func (s *tickScheduler) GetInfo(id string) (JobInfo, bool) {
	j, ok := s.reg.get(id)
	if !ok {
		return JobInfo{}, false
	}
	return j.snapshot(), true
}

// ListAll 列出所有任务快照.
func (s *tickScheduler) ListAll() []JobInfo {
	jobs := s.reg.list()
	infos := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		infos = append(infos, j.snapshot())
	}
	return infos
}

// Running 检查是否运行中.
func (s *tickScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
