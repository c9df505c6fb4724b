package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWorkflow() *Workflow {
	return &Workflow{
		ID:      "wf-1",
		Name:    "Morning engagement",
		Enabled: true,
		Trigger: TriggerTypeSchedule,
		Config:  TriggerConfig{IntervalMinutes: 60},
	}
}

func TestWorkflow_NextRun_Interval(t *testing.T) {
	now := time.Now()

	wf := testWorkflow()

	next, err := wf.NextRun(now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), next)
}

func TestWorkflow_NextRun_CronWinsOverInterval(t *testing.T) {
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	wf := testWorkflow()
	wf.Config.CronExpression = "0 12 * * *"

	next, err := wf.NextRun(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC), next)
}

func TestWorkflow_NextRun_InvalidConfig(t *testing.T) {
	wf := testWorkflow()
	wf.Config = TriggerConfig{}

	_, err := wf.NextRun(time.Now())
	assert.ErrorIs(t, err, ErrInvalidTrigger)
}

func TestWorkflow_IsDue(t *testing.T) {
	now := time.Now()

	wf := testWorkflow()
	assert.True(t, wf.IsDue(now), "nil NextRunAt on an enabled schedule workflow is due")

	wf.Trigger = TriggerTypeManual
	assert.False(t, wf.IsDue(now), "manual workflows never tick")

	wf.Trigger = TriggerTypeSchedule
	wf.Enabled = false
	assert.False(t, wf.IsDue(now))
}

func TestWorkflow_MarkRun(t *testing.T) {
	now := time.Now()

	wf := testWorkflow()
	wf.MarkRun(now)

	assert.Equal(t, 1, wf.RunCount)
	assert.Equal(t, now, *wf.LastRunAt)
	require.NotNil(t, wf.NextRunAt)
	assert.Equal(t, now.Add(time.Hour), *wf.NextRunAt)
}

func TestWorkflow_MarkRun_ManualTriggerHasNoNextRun(t *testing.T) {
	wf := testWorkflow()
	wf.Trigger = TriggerTypeManual
	wf.Config = TriggerConfig{}

	wf.MarkRun(time.Now())

	assert.Nil(t, wf.NextRunAt)
	assert.Equal(t, 1, wf.RunCount)
}

func TestWorkflow_SetEnabled(t *testing.T) {
	now := time.Now()

	wf := testWorkflow()
	wf.SetEnabled(false, now)
	assert.Nil(t, wf.NextRunAt)

	wf.SetEnabled(true, now)
	require.NotNil(t, wf.NextRunAt)
	assert.Equal(t, now.Add(time.Hour), *wf.NextRunAt)
}

func TestWorkflow_Validate(t *testing.T) {
	wf := testWorkflow()
	assert.NoError(t, wf.Validate())

	wf.Config = TriggerConfig{}
	assert.ErrorIs(t, wf.Validate(), ErrInvalidTrigger)

	wf.Config = TriggerConfig{CronExpression: "not a cron"}
	assert.Error(t, wf.Validate())

	wf.Trigger = TriggerTypeEvent
	wf.Config = TriggerConfig{}
	assert.ErrorIs(t, wf.Validate(), ErrInvalidTrigger)

	wf.Config = TriggerConfig{Stream: "orders"}
	assert.NoError(t, wf.Validate())

	wf.Trigger = TriggerTypeManual
	wf.Config = TriggerConfig{}
	assert.NoError(t, wf.Validate())
}
