package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Tsukikage7/jobkit/logger"
	"github.com/Tsukikage7/jobkit/metrics"
	"github.com/Tsukikage7/jobkit/scheduler"
	"github.com/Tsukikage7/jobkit/tracing"
)

// 任务触发类型.
const (
	JobTypeInterval = "interval"
	JobTypeDaily    = "daily"
	JobTypeWeekly   = "weekly"
	JobTypeCron     = "cron"
)

// Config 守护进程配置.
type Config struct {
	App       AppConfig             `json:"app" yaml:"app" mapstructure:"app"`
	Scheduler SchedulerConfig       `json:"scheduler" yaml:"scheduler" mapstructure:"scheduler"`
	Logger    logger.Config         `json:"logger" yaml:"logger" mapstructure:"logger"`
	Metrics   metrics.Config        `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
	Tracing   tracing.TracingConfig `json:"tracing" yaml:"tracing" mapstructure:"tracing"`
	Admin     AdminConfig           `json:"admin" yaml:"admin" mapstructure:"admin"`
	Jobs      []JobConfig           `json:"jobs" yaml:"jobs" mapstructure:"jobs"`
}

// AppConfig 应用配置.
type AppConfig struct {
	Name            string        `json:"name" yaml:"name" mapstructure:"name"`
	Version         string        `json:"version" yaml:"version" mapstructure:"version"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// SchedulerConfig 调度器配置.
type SchedulerConfig struct {
	// TickInterval 扫描间隔
	TickInterval time.Duration `json:"tick_interval" yaml:"tick_interval" mapstructure:"tick_interval"`
	// Timezone IANA 时区名，DailyAt/WeeklyAt/Cron 按该时区计算，空表示本地时区
	Timezone string `json:"timezone" yaml:"timezone" mapstructure:"timezone"`
	// DefaultTimeout 任务默认超时，0 表示不限制
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout" mapstructure:"default_timeout"`
}

// AdminConfig 管理接口配置.
type AdminConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// JobConfig 单个任务配置.
//
// 任务体为一条 shell 命令.
type JobConfig struct {
	Name string `json:"name" yaml:"name" mapstructure:"name"`
	// Type 触发类型：interval、daily、weekly、cron
	Type string `json:"type" yaml:"type" mapstructure:"type"`
	// Every interval 的间隔
	Every time.Duration `json:"every" yaml:"every" mapstructure:"every"`
	// Anchor interval 的锚点（RFC3339），空表示注册时刻
	Anchor string `json:"anchor" yaml:"anchor" mapstructure:"anchor"`
	// At daily/weekly 的时刻 "HH:MM[:SS]"
	At string `json:"at" yaml:"at" mapstructure:"at"`
	// Days weekly 的星期，如 [mon, fri]
	Days []string `json:"days" yaml:"days" mapstructure:"days"`
	// Cron cron 表达式或 @daily 等描述符
	Cron string `json:"cron" yaml:"cron" mapstructure:"cron"`

	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	Command string        `json:"command" yaml:"command" mapstructure:"command"`
	Dir     string        `json:"dir" yaml:"dir" mapstructure:"dir"`
	Env     []string      `json:"env" yaml:"env" mapstructure:"env"`
	Tags    []string      `json:"tags" yaml:"tags" mapstructure:"tags"`
	// Paused 注册后立即暂停
	Paused bool `json:"paused" yaml:"paused" mapstructure:"paused"`
}

// JobConfigError 任务配置错误.
type JobConfigError struct {
	Index int
	Name  string
	Err   error
}

func (e *JobConfigError) Error() string {
	return fmt.Sprintf("jobs[%d] %q: %v", e.Index, e.Name, e.Err)
}

func (e *JobConfigError) Unwrap() error {
	return e.Err
}

// DefaultValues 返回守护进程配置的默认值，用于 WithDefaults.
//
// 默认值同时让对应的键可以被环境变量覆盖.
func DefaultValues() map[string]any {
	return map[string]any{
		"app.name":                  "jobd",
		"app.version":               "dev",
		"app.shutdown_timeout":      "30s",
		"scheduler.tick_interval":   "1s",
		"scheduler.timezone":        "",
		"scheduler.default_timeout": "0s",
		"logger.type":               logger.TypeZap,
		"logger.level":              logger.LevelInfo,
		"logger.format":             logger.FormatJSON,
		"logger.output":             logger.OutputConsole,
		"metrics.enabled":           true,
		"metrics.path":              "/metrics",
		"metrics.namespace":         "jobkit",
		"metrics.runtime":           true,
		"tracing.enabled":           false,
		"tracing.sampling_rate":     1.0,
		"admin.enabled":             true,
		"admin.addr":                ":8080",
	}
}

// LoadDaemon 加载守护进程配置，带默认值和 JOBD_ 前缀的环境变量覆盖.
func LoadDaemon(path string, opts ...Option) (*Config, error) {
	opts = append([]Option{WithDefaults(DefaultValues()), WithEnvPrefix("JOBD")}, opts...)
	return Load[Config](path, opts...)
}

// Validate 实现 Validatable.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return errors.New("app.name is required")
	}
	if c.Scheduler.TickInterval < 0 {
		return errors.New("scheduler.tick_interval must not be negative")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Logger.ServiceName == "" {
		c.Logger.ServiceName = c.App.Name
	}
	if err := c.Logger.Validate(); err != nil {
		return err
	}
	if c.Admin.Enabled && c.Admin.Addr == "" {
		return errors.New("admin.addr is required when admin is enabled")
	}

	for i := range c.Jobs {
		job := &c.Jobs[i]
		if err := job.Validate(); err != nil {
			return &JobConfigError{Index: i, Name: job.Name, Err: err}
		}
	}
	return nil
}

// Location 解析调度时区.
func (c *Config) Location() (*time.Location, error) {
	if c.Scheduler.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("scheduler.timezone: %w", err)
	}
	return loc, nil
}

// Validate 校验任务配置.
func (j *JobConfig) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return scheduler.ErrJobNameEmpty
	}
	if strings.TrimSpace(j.Command) == "" {
		return errors.New("command is required")
	}
	if j.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	_, err := j.Trigger()
	return err
}

// Trigger 根据配置构建触发规则.
func (j *JobConfig) Trigger() (scheduler.Trigger, error) {
	switch strings.ToLower(strings.TrimSpace(j.Type)) {
	case JobTypeInterval:
		var anchor time.Time
		if j.Anchor != "" {
			t, err := time.Parse(time.RFC3339, j.Anchor)
			if err != nil {
				return nil, fmt.Errorf("anchor: %w", err)
			}
			anchor = t
		}
		return scheduler.NewInterval(j.Every, anchor)

	case JobTypeDaily:
		h, m, s, err := scheduler.ParseClock(j.At)
		if err != nil {
			return nil, err
		}
		return scheduler.NewDailyAt(h, m, s)

	case JobTypeWeekly:
		h, m, s, err := scheduler.ParseClock(j.At)
		if err != nil {
			return nil, err
		}
		days := make([]time.Weekday, 0, len(j.Days))
		for _, name := range j.Days {
			d, err := scheduler.ParseWeekday(name)
			if err != nil {
				return nil, err
			}
			days = append(days, d)
		}
		return scheduler.NewWeeklyAt(days, h, m, s)

	case JobTypeCron:
		return scheduler.NewCron(j.Cron)

	default:
		return nil, fmt.Errorf("%w: unknown job type %q", scheduler.ErrInvalidTrigger, j.Type)
	}
}

// JobOptions 返回注册任务时使用的选项.
func (j *JobConfig) JobOptions() []scheduler.JobOption {
	opts := make([]scheduler.JobOption, 0, 2)
	if j.Timeout > 0 {
		opts = append(opts, scheduler.WithTimeout(j.Timeout))
	}
	if len(j.Tags) > 0 {
		opts = append(opts, scheduler.WithTags(j.Tags...))
	}
	return opts
}
