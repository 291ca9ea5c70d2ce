package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tsukikage7/jobkit/recovery"
	"github.com/Tsukikage7/jobkit/scheduler"
)

// JobLister 任务快照来源，scheduler.Scheduler 满足该接口.
type JobLister interface {
	ListAll() []scheduler.JobInfo
}

// Hooks 返回采集任务指标的调度器钩子.
func (c *PrometheusCollector) Hooks() *scheduler.Hooks {
	return scheduler.NewHooks().
		AfterJob(func(_ context.Context, jc *scheduler.JobContext) {
			result := ResultSuccess
			if jc.Error != nil {
				result = ResultFailure
			}
			c.RecordJobExecution(jc.Job.Name, result, jc.Duration)

			if _, ok := recovery.AsPanic(jc.Error); ok {
				c.RecordPanic(jc.Job.Name)
			}
		}).
		OnSkip(func(_ context.Context, jc *scheduler.JobContext) {
			c.RecordJobSkip(jc.Job.Name)
		}).
		Build()
}

// RegisterScheduler 注册任务状态采集器，抓取时从快照计算.
func (c *PrometheusCollector) RegisterScheduler(s JobLister) error {
	return c.Register(newJobsCollector(c.namespace, s))
}

// MustRegisterScheduler 注册任务状态采集器，失败时 panic.
func (c *PrometheusCollector) MustRegisterScheduler(s JobLister) {
	if err := c.RegisterScheduler(s); err != nil {
		panic(err)
	}
}

var allStatuses = []scheduler.JobStatus{
	scheduler.StatusScheduled,
	scheduler.StatusRunning,
	scheduler.StatusPaused,
	scheduler.StatusFaulted,
	scheduler.StatusCancelled,
}

// jobsCollector 任务状态采集器.
type jobsCollector struct {
	source JobLister

	jobs    *prometheus.Desc
	running *prometheus.Desc
	nextRun *prometheus.Desc
}

func newJobsCollector(namespace string, source JobLister) *jobsCollector {
	return &jobsCollector{
		source: source,
		jobs: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "jobs"),
			"Number of registered jobs by status",
			[]string{"status"}, nil,
		),
		running: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "jobs_running"),
			"Number of jobs currently executing",
			nil, nil,
		),
		nextRun: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "scheduler", "job_next_run_timestamp_seconds"),
			"Unix time of the next scheduled activation",
			[]string{"job", "id"}, nil,
		),
	}
}

// Describe 实现 prometheus.Collector.
func (c *jobsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.jobs
	ch <- c.running
	ch <- c.nextRun
}

// Collect 实现 prometheus.Collector.
func (c *jobsCollector) Collect(ch chan<- prometheus.Metric) {
	infos := c.source.ListAll()

	counts := make(map[scheduler.JobStatus]int, len(allStatuses))
	running := 0
	for _, info := range infos {
		counts[info.Status]++
		if info.Running {
			running++
		}
		if !info.NextRun.IsZero() && !info.Status.Terminal() {
			ch <- prometheus.MustNewConstMetric(
				c.nextRun, prometheus.GaugeValue,
				float64(info.NextRun.Unix()), info.Name, info.ID,
			)
		}
	}

	for _, st := range allStatuses {
		ch <- prometheus.MustNewConstMetric(c.jobs, prometheus.GaugeValue, float64(counts[st]), st.String())
	}
	ch <- prometheus.MustNewConstMetric(c.running, prometheus.GaugeValue, float64(running))
}
