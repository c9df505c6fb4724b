package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testTask() *AutomationTask {
	return &AutomationTask{
		ID:              "task-1",
		Name:            "Like golang posts",
		ActionType:      ActionTypeLike,
		Enabled:         true,
		AccountIDs:      []string{"acc-1", "acc-2"},
		Target:          Target{Type: TargetTypeKeyword, Value: "golang"},
		IntervalMinutes: 30,
		DailyLimit:      5,
	}
}

func TestAutomationTask_IsDue(t *testing.T) {
	now := time.Now()

	task := testTask()
	assert.True(t, task.IsDue(now), "nil NextRunAt on an enabled task is due")

	past := now.Add(-time.Minute)
	task.NextRunAt = &past
	assert.True(t, task.IsDue(now))

	future := now.Add(time.Minute)
	task.NextRunAt = &future
	assert.False(t, task.IsDue(now))

	task.NextRunAt = &past
	task.Enabled = false
	assert.False(t, task.IsDue(now))
}

func TestAutomationTask_IsDue_QuotaExhausted(t *testing.T) {
	now := time.Now()

	task := testTask()
	task.TodayCount = 5
	assert.True(t, task.QuotaExhausted())
	assert.False(t, task.IsDue(now))

	task.TodayCount = 4
	assert.False(t, task.QuotaExhausted())
	assert.True(t, task.IsDue(now))
}

func TestAutomationTask_ZeroDailyLimitIsUnlimited(t *testing.T) {
	task := testTask()
	task.DailyLimit = 0
	task.TodayCount = 1000

	assert.False(t, task.QuotaExhausted())
	assert.True(t, task.IsDue(time.Now()))
}

func TestAutomationTask_MarkRun(t *testing.T) {
	now := time.Now()

	task := testTask()
	task.MarkRun(now, true)

	assert.Equal(t, 1, task.TodayCount)
	assert.Equal(t, now, *task.LastRunAt)
	assert.Equal(t, now.Add(30*time.Minute), *task.NextRunAt)

	task.MarkRun(now, false)
	assert.Equal(t, 1, task.TodayCount, "failed runs do not consume quota")
	assert.Equal(t, now.Add(30*time.Minute), *task.NextRunAt, "failed runs still reschedule")
}

func TestAutomationTask_SetEnabled(t *testing.T) {
	now := time.Now()

	task := testTask()
	task.SetEnabled(true, now)
	assert.Equal(t, now.Add(30*time.Minute), *task.NextRunAt)

	task.SetEnabled(false, now)
	assert.Nil(t, task.NextRunAt, "disabled tasks carry no next run time")

	task.SetEnabled(true, now)
	assert.NotNil(t, task.NextRunAt)
}

func TestAutomationTask_ResetDailyCount(t *testing.T) {
	task := testTask()
	task.TodayCount = 5

	task.ResetDailyCount(time.Now())

	assert.Zero(t, task.TodayCount)
}
