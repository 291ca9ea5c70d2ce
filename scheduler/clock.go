package scheduler

import "time"

// Clock 时间来源，便于测试时注入.
type Clock interface {
	Now() time.Time
}

// ClockFunc 函数适配器.
type ClockFunc func() time.Time

// Now 实现 Clock 接口.
func (f ClockFunc) Now() time.Time {
	return f()
}

// SystemClock 系统时钟.
type SystemClock struct{}

// Now 返回当前系统时间.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// locationClock 把时间转换到指定时区，保证 DailyAt/WeeklyAt 按该时区计算.
type locationClock struct {
	base Clock
	loc  *time.Location
}

func (c locationClock) Now() time.Time {
	return c.base.Now().In(c.loc)
}
