package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Trigger 触发规则.
//
// Next 返回严格晚于 t 的下一次触发时间，与 cron.Schedule 的约定一致；
// 返回零值表示不会再触发。内置规则在通过 Validate 后不应返回零值.
type Trigger interface {
	Next(t time.Time) time.Time
	Validate() error
	String() string
}

// Interval 固定间隔触发，触发点为 Anchor + k·Period.
//
// Anchor 为零值时，注册时会被固定为注册时刻，
// 保证之后无论调度器停顿多久都不会偏离网格.
type Interval struct {
	Period time.Duration
	Anchor time.Time
}

// Every 创建以注册时刻为锚点的间隔触发规则.
func Every(period time.Duration) (Interval, error) {
	return NewInterval(period, time.Time{})
}

// NewInterval 创建指定锚点的间隔触发规则.
func NewInterval(period time.Duration, anchor time.Time) (Interval, error) {
	iv := Interval{Period: period, Anchor: anchor}
	if err := iv.Validate(); err != nil {
		return Interval{}, err
	}
	return iv, nil
}

// Validate 校验间隔必须为正.
func (iv Interval) Validate() error {
	if iv.Period <= 0 {
		return invalidTrigger("period", "must be positive, got %s", iv.Period)
	}
	return nil
}

// Next 返回网格上严格晚于 t 的第一个点.
//
// 错过的触发点直接跳过，而不是逐个补跑.
func (iv Interval) Next(t time.Time) time.Time {
	if iv.Period <= 0 {
		return time.Time{}
	}
	if iv.Anchor.IsZero() {
		return t.Add(iv.Period)
	}
	if t.Before(iv.Anchor) {
		return iv.Anchor.In(t.Location())
	}
	k := t.Sub(iv.Anchor)/iv.Period + 1
	return iv.Anchor.Add(k * iv.Period).In(t.Location())
}

func (iv Interval) String() string {
	return "every " + iv.Period.String()
}

// pinned 返回锚点已固定的副本.
func (iv Interval) pinned(now time.Time) Interval {
	if iv.Anchor.IsZero() {
		iv.Anchor = now
	}
	return iv
}

// DailyAt 每天在指定时刻触发.
type DailyAt struct {
	Hour   int
	Minute int
	Second int
}

// NewDailyAt 创建每日触发规则.
func NewDailyAt(hour, minute, second int) (DailyAt, error) {
	d := DailyAt{Hour: hour, Minute: minute, Second: second}
	if err := d.Validate(); err != nil {
		return DailyAt{}, err
	}
	return d, nil
}

// Validate 校验时分秒范围.
func (d DailyAt) Validate() error {
	return validateClock(d.Hour, d.Minute, d.Second)
}

// Next 当天时刻未过则返回当天，否则返回次日同一时刻.
func (d DailyAt) Next(t time.Time) time.Time {
	y, m, day := t.Date()
	candidate := time.Date(y, m, day, d.Hour, d.Minute, d.Second, 0, t.Location())
	if candidate.After(t) {
		return candidate
	}
	return time.Date(y, m, day+1, d.Hour, d.Minute, d.Second, 0, t.Location())
}

func (d DailyAt) String() string {
	return "daily at " + formatClock(d.Hour, d.Minute, d.Second)
}

// Weekdays 星期集合，不可变.
type Weekdays uint8

// NewWeekdays 创建星期集合，超出 Sunday..Saturday 的值被忽略.
func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		if d >= time.Sunday && d <= time.Saturday {
			w |= 1 << uint(d)
		}
	}
	return w
}

// Has 判断是否包含指定星期.
func (w Weekdays) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return w&(1<<uint(d)) != 0
}

// Len 返回集合大小.
func (w Weekdays) Len() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			n++
		}
	}
	return n
}

// Days 按 Sunday..Saturday 顺序返回集合中的星期.
func (w Weekdays) Days() []time.Weekday {
	days := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			days = append(days, d)
		}
	}
	return days
}

func (w Weekdays) String() string {
	names := make([]string, 0, 7)
	for _, d := range w.Days() {
		names = append(names, d.String()[:3])
	}
	return strings.Join(names, ",")
}

// WeeklyAt 每周指定星期的指定时刻触发.
type WeeklyAt struct {
	Days   Weekdays
	Hour   int
	Minute int
	Second int
}

// NewWeeklyAt 创建每周触发规则.
func NewWeeklyAt(days []time.Weekday, hour, minute, second int) (WeeklyAt, error) {
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday {
			return WeeklyAt{}, invalidTrigger("weekdays", "unknown weekday %d", int(d))
		}
	}
	w := WeeklyAt{Days: NewWeekdays(days...), Hour: hour, Minute: minute, Second: second}
	if err := w.Validate(); err != nil {
		return WeeklyAt{}, err
	}
	return w, nil
}

// Validate 校验星期集合非空以及时分秒范围.
func (w WeeklyAt) Validate() error {
	if w.Days.Len() == 0 {
		return invalidTrigger("weekdays", "at least one weekday is required")
	}
	return validateClock(w.Hour, w.Minute, w.Second)
}

// Next 从当天起最多向后扫描 7 天，返回第一个匹配的星期.
//
// 找不到时返回零值，只会在星期集合为空时发生.
func (w WeeklyAt) Next(t time.Time) time.Time {
	y, m, day := t.Date()
	for offset := 0; offset <= 7; offset++ {
		candidate := time.Date(y, m, day+offset, w.Hour, w.Minute, w.Second, 0, t.Location())
		if w.Days.Has(candidate.Weekday()) && candidate.After(t) {
			return candidate
		}
	}
	return time.Time{}
}

func (w WeeklyAt) String() string {
	return fmt.Sprintf("weekly on %s at %s", w.Days, formatClock(w.Hour, w.Minute, w.Second))
}

// cronParser 支持可选秒字段和 @daily、@every 等描述符.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Cron 基于 cron 表达式的触发规则.
type Cron struct {
	expr     string
	schedule cron.Schedule
}

// NewCron 解析 cron 表达式.
//
// 支持 5 段、6 段（带秒）表达式以及 @hourly、@every 1h 等描述符.
func NewCron(expr string) (Cron, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Cron{}, invalidTrigger("cron", "expression is required")
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return Cron{}, invalidTrigger("cron", "%v", err)
	}
	return Cron{expr: expr, schedule: sched}, nil
}

// Validate 校验表达式已成功解析.
func (c Cron) Validate() error {
	if c.schedule == nil {
		return invalidTrigger("cron", "expression is not parsed, use NewCron")
	}
	return nil
}

// Next 委托给 cron.Schedule.
func (c Cron) Next(t time.Time) time.Time {
	if c.schedule == nil {
		return time.Time{}
	}
	return c.schedule.Next(t)
}

func (c Cron) String() string {
	return "cron(" + c.expr + ")"
}

func validateClock(hour, minute, second int) error {
	if hour < 0 || hour > 23 {
		return invalidTrigger("hour", "must be in [0,23], got %d", hour)
	}
	if minute < 0 || minute > 59 {
		return invalidTrigger("minute", "must be in [0,59], got %d", minute)
	}
	if second < 0 || second > 59 {
		return invalidTrigger("second", "must be in [0,59], got %d", second)
	}
	return nil
}

func formatClock(hour, minute, second int) string {
	return fmt.Sprintf("%02d:%02d:%02d", hour, minute, second)
}

// ParseWeekday 解析星期名称，支持 "mon"、"Monday" 以及 0-6 的数字.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) == 1 && s[0] >= '0' && s[0] <= '6' {
		return time.Weekday(s[0] - '0'), nil
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return 0, invalidTrigger("weekdays", "unknown weekday %q", s)
}

// ParseClock 解析 "HH:MM" 或 "HH:MM:SS".
func ParseClock(s string) (hour, minute, second int, err error) {
	s = strings.TrimSpace(s)
	var n int
	switch strings.Count(s, ":") {
	case 1:
		n, err = fmt.Sscanf(s, "%d:%d", &hour, &minute)
		if err == nil && n != 2 {
			err = fmt.Errorf("expected HH:MM")
		}
	case 2:
		n, err = fmt.Sscanf(s, "%d:%d:%d", &hour, &minute, &second)
		if err == nil && n != 3 {
			err = fmt.Errorf("expected HH:MM:SS")
		}
	default:
		err = fmt.Errorf("expected HH:MM or HH:MM:SS")
	}
	if err != nil {
		return 0, 0, 0, invalidTrigger("time", "%q: %v", s, err)
	}
	if err := validateClock(hour, minute, second); err != nil {
		return 0, 0, 0, err
	}
	return hour, minute, second, nil
}
