package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowStep_ActionConfig(t *testing.T) {
	step := &WorkflowStep{
		Type: StepTypeAction,
		Config: map[string]any{
			"action_type": "like",
			"keyword":     "golang",
			"count":       float64(3),
			"account_ids": []any{"acc-1", "acc-2"},
		},
	}

	cfg := step.ActionConfig()

	assert.Equal(t, ActionTypeLike, cfg.ActionType)
	assert.Equal(t, "golang", cfg.Keyword)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, []string{"acc-1", "acc-2"}, cfg.AccountIDs)
}

func TestWorkflowStep_ActionConfig_Defaults(t *testing.T) {
	step := &WorkflowStep{Type: StepTypeAction, Config: map[string]any{}}

	cfg := step.ActionConfig()

	assert.Equal(t, 1, cfg.Count)
	assert.Empty(t, cfg.AccountIDs)
}

func TestWorkflowStep_ConditionConfig(t *testing.T) {
	step := &WorkflowStep{
		Type: StepTypeCondition,
		Config: map[string]any{
			"condition_type": "time_range",
			"start_hour":     float64(9),
			"end_hour":       float64(21),
			"weekdays":       []any{"monday", "friday"},
		},
	}

	cfg := step.ConditionConfig()

	assert.Equal(t, ConditionTimeRange, cfg.ConditionType)
	assert.Equal(t, 9, cfg.StartHour)
	assert.Equal(t, 21, cfg.EndHour)
	assert.Equal(t, []int{1, 5}, cfg.Weekdays)
}

func TestWorkflowStep_ConditionConfig_Defaults(t *testing.T) {
	step := &WorkflowStep{Type: StepTypeCondition, Config: map[string]any{}}

	cfg := step.ConditionConfig()

	assert.Equal(t, 0, cfg.StartHour)
	assert.Equal(t, 23, cfg.EndHour)
	assert.Equal(t, -1, cfg.MaxActions, "no upper action bound by default")
}

func TestWorkflowStep_DelayConfig(t *testing.T) {
	step := &WorkflowStep{
		Type: StepTypeDelay,
		Config: map[string]any{
			"delay_minutes": float64(2),
			"delay_seconds": float64(30),
		},
	}

	cfg := step.DelayConfig()

	assert.Equal(t, 2, cfg.Minutes)
	assert.Equal(t, 30, cfg.Seconds)
}

func TestWorkflowStep_LoopConfig(t *testing.T) {
	step := &WorkflowStep{
		Type:   StepTypeLoop,
		Config: map[string]any{"account_ids": []any{"acc-1"}},
	}

	assert.Equal(t, []string{"acc-1"}, step.LoopConfig().AccountIDs)
}
