package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noop(context.Context) error { return nil }

func mustEvery(t *testing.T, d time.Duration) Interval {
	t.Helper()
	iv, err := Every(d)
	require.NoError(t, err)
	return iv
}

func TestRegistry_AddValidates(t *testing.T) {
	r := newRegistry()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	iv := mustEvery(t, time.Second)

	_, err := r.add(now, "  ", iv, noop)
	assert.ErrorIs(t, err, ErrJobNameEmpty)

	_, err = r.add(now, "job", iv, nil)
	assert.ErrorIs(t, err, ErrHandlerNil)

	_, err = r.add(now, "job", nil, noop)
	assert.ErrorIs(t, err, ErrInvalidTrigger)

	_, err = r.add(now, "job", DailyAt{Hour: 25}, noop)
	assert.ErrorIs(t, err, ErrInvalidTrigger)

	_, err = r.add(now, "job", WeeklyAt{Hour: 1}, noop)
	assert.ErrorIs(t, err, ErrInvalidTrigger)

	assert.Empty(t, r.list())
}

func TestRegistry_AddPinsIntervalAnchor(t *testing.T) {
	r := newRegistry()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	j, err := r.add(now, "tick", mustEvery(t, 10*time.Second), noop)
	require.NoError(t, err)

	iv, ok := j.trigger.(Interval)
	require.True(t, ok)
	assert.Equal(t, now, iv.Anchor)

	info := j.snapshot()
	assert.Equal(t, StatusScheduled, info.Status)
	assert.Equal(t, now.Add(10*time.Second), info.NextRun)
	assert.Equal(t, now, info.CreatedAt)
	assert.Nil(t, info.LastRun)
	assert.NotEmpty(t, info.ID)
}

func TestRegistry_AddPinsIntervalPointer(t *testing.T) {
	r := newRegistry()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	src := &Interval{Period: 10 * time.Second}
	j, err := r.add(now, "tick", src, noop)
	require.NoError(t, err)

	// 保存的是固定了锚点的值拷贝
	iv, ok := j.trigger.(Interval)
	require.True(t, ok)
	assert.Equal(t, now, iv.Anchor)
	assert.Equal(t, now.Add(10*time.Second), j.snapshot().NextRun)

	src.Period = time.Hour
	assert.Equal(t, 10*time.Second, j.trigger.(Interval).Period)

	_, err = r.add(now, "nil", (*Interval)(nil), noop)
	assert.ErrorIs(t, err, ErrInvalidTrigger)
	_, err = r.add(now, "zero", &Interval{}, noop)
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestJob_SkipSlot(t *testing.T) {
	r := newRegistry()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j, err := r.add(now, "job", mustEvery(t, 10*time.Second), noop)
	require.NoError(t, err)

	// 触发点未到不移动
	j.skipSlot(now.Add(5 * time.Second))
	assert.Equal(t, now.Add(10*time.Second), j.snapshot().NextRun)

	// 错过的触发点顺延到网格上的下一个点
	j.skipSlot(now.Add(23 * time.Second))
	assert.Equal(t, now.Add(30*time.Second), j.snapshot().NextRun)
}

func TestRegistry_DuplicateNamesGetDistinctIDs(t *testing.T) {
	r := newRegistry()
	now := time.Now()

	a, err := r.add(now, "same", mustEvery(t, time.Minute), noop)
	require.NoError(t, err)
	b, err := r.add(now, "same", mustEvery(t, time.Minute), noop)
	require.NoError(t, err)

	assert.NotEqual(t, a.id, b.id)
	assert.Len(t, r.list(), 2)
}

func TestRegistry_ListKeepsRegistrationOrder(t *testing.T) {
	r := newRegistry()
	now := time.Now()

	var ids []string
	for _, name := range []string{"c", "a", "b", "d"} {
		j, err := r.add(now, name, mustEvery(t, time.Minute), noop)
		require.NoError(t, err)
		ids = append(ids, j.id)
	}

	var got []string
	for _, j := range r.list() {
		got = append(got, j.id)
	}
	assert.Equal(t, ids, got)
}

func TestRegistry_StatusTransitions(t *testing.T) {
	r := newRegistry()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	j, err := r.add(now, "job", mustEvery(t, time.Minute), noop)
	require.NoError(t, err)

	assert.False(t, r.resume(j.id, now), "resume requires paused")
	assert.True(t, r.pause(j.id))
	assert.False(t, r.pause(j.id), "already paused")

	later := now.Add(5 * time.Second)
	assert.True(t, r.resume(j.id, later))
	info := j.snapshot()
	assert.Equal(t, StatusScheduled, info.Status)
	assert.Equal(t, later, info.NextRun)

	assert.True(t, r.cancel(j.id))
	assert.False(t, r.cancel(j.id), "cancel is terminal")
	assert.False(t, r.pause(j.id))
	assert.False(t, r.resume(j.id, later))
	assert.Equal(t, StatusCancelled, j.snapshot().Status)

	assert.False(t, r.pause("missing"))
	assert.False(t, r.resume("missing", now))
	assert.False(t, r.cancel("missing"))
}

func TestRegistry_PauseFromFaulted(t *testing.T) {
	r := newRegistry()
	j, err := r.add(time.Now(), "job", mustEvery(t, time.Minute), noop)
	require.NoError(t, err)

	j.mu.Lock()
	j.status = StatusFaulted
	j.mu.Unlock()
	assert.True(t, r.pause(j.id))

	j.mu.Lock()
	j.status = StatusRunning
	j.mu.Unlock()
	assert.False(t, r.pause(j.id), "running jobs cannot be paused")
	assert.True(t, r.cancel(j.id), "running jobs can be cancelled")
}

func TestRegistry_Due(t *testing.T) {
	r := newRegistry()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	scheduled, _ := r.add(now, "scheduled", mustEvery(t, time.Second), noop)
	faulted, _ := r.add(now, "faulted", mustEvery(t, time.Second), noop)
	paused, _ := r.add(now, "paused", mustEvery(t, time.Second), noop)
	cancelled, _ := r.add(now, "cancelled", mustEvery(t, time.Second), noop)
	running, _ := r.add(now, "running", mustEvery(t, time.Second), noop)
	notYet, _ := r.add(now, "later", mustEvery(t, time.Hour), noop)
	broken, _ := r.add(now, "broken", mustEvery(t, time.Second), noop)
	overlapping, _ := r.add(now, "overlapping", mustEvery(t, time.Second), noop)
	manual, _ := r.add(now, "manual", mustEvery(t, time.Second), noop)

	faulted.status = StatusFaulted
	r.pause(paused.id)
	r.cancel(cancelled.id)
	// 守卫已获取但状态尚未切换，不参与本轮扫描
	require.True(t, running.tryStart())
	broken.nextRun = time.Time{}
	// 调度中的任务执行期间触发点到期，交给派发侧记跳过
	require.True(t, overlapping.tryStart())
	overlapping.status, overlapping.runFrom = StatusRunning, StatusScheduled
	// 暂停任务的手动执行不产生跳过
	require.True(t, manual.tryStart())
	manual.status, manual.runFrom = StatusRunning, StatusPaused

	due := r.due(now.Add(2 * time.Second))
	var names []string
	for _, j := range due {
		names = append(names, j.name)
	}
	assert.Equal(t, []string{scheduled.name, faulted.name, overlapping.name}, names)
	assert.NotContains(t, names, notYet.name)

	assert.Empty(t, r.due(now.Add(500*time.Millisecond)))
}

func TestRegistry_Remove(t *testing.T) {
	r := newRegistry()
	j, err := r.add(time.Now(), "job", mustEvery(t, time.Minute), noop)
	require.NoError(t, err)

	assert.True(t, r.remove(j.id))
	assert.False(t, r.remove(j.id))
	_, ok := r.get(j.id)
	assert.False(t, ok)
}

func TestJob_GuardIsExclusive(t *testing.T) {
	j := &job{}
	require.True(t, j.tryStart())
	assert.False(t, j.tryStart())
	j.finish()
	assert.True(t, j.tryStart())
}

func TestJob_SnapshotIsCopy(t *testing.T) {
	r := newRegistry()
	j, err := r.add(time.Now(), "job", mustEvery(t, time.Minute), noop, WithTags("a", "b"))
	require.NoError(t, err)

	info := j.snapshot()
	info.Tags[0] = "mutated"
	info.Status = StatusCancelled

	again := j.snapshot()
	assert.Equal(t, []string{"a", "b"}, again.Tags)
	assert.Equal(t, StatusScheduled, again.Status)
}

func TestJobStatus_String(t *testing.T) {
	assert.Equal(t, "scheduled", StatusScheduled.String())
	assert.Equal(t, "running", StatusRunning.String())
	assert.Equal(t, "paused", StatusPaused.String())
	assert.Equal(t, "faulted", StatusFaulted.String())
	assert.Equal(t, "cancelled", StatusCancelled.String())
	assert.Equal(t, "unknown", JobStatus(42).String())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusFaulted.Terminal())

	text, err := StatusPaused.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "paused", string(text))

	var st JobStatus
	require.NoError(t, st.UnmarshalText([]byte("faulted")))
	assert.Equal(t, StatusFaulted, st)
	assert.Error(t, st.UnmarshalText([]byte("sleeping")))

	_, err = ParseStatus("unknown")
	assert.Error(t, err)
}

func TestValidationError_Message(t *testing.T) {
	_, err := NewDailyAt(30, 0, 0)
	require.Error(t, err)
	assert.Equal(t, "scheduler: invalid hour: must be in [0,23], got 30", err.Error())

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "hour", ve.Field)
}
