package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStepConfig_ValidAction(t *testing.T) {
	step := &WorkflowStep{
		Type: StepTypeAction,
		Config: map[string]any{
			"action_type": "like",
			"keyword":     "golang",
			"count":       2,
		},
	}

	assert.NoError(t, ValidateStepConfig(step))
}

func TestValidateStepConfig_MissingActionType(t *testing.T) {
	step := &WorkflowStep{Type: StepTypeAction, Config: map[string]any{"keyword": "golang"}}

	assert.Error(t, ValidateStepConfig(step))
}

func TestValidateStepConfig_UnknownActionType(t *testing.T) {
	step := &WorkflowStep{Type: StepTypeAction, Config: map[string]any{"action_type": "teleport"}}

	assert.Error(t, ValidateStepConfig(step))
}

func TestValidateStepConfig_ConditionBounds(t *testing.T) {
	step := &WorkflowStep{
		Type: StepTypeCondition,
		Config: map[string]any{
			"condition_type": "time_range",
			"start_hour":     25,
		},
	}

	assert.Error(t, ValidateStepConfig(step))

	step.Config["start_hour"] = 9
	assert.NoError(t, ValidateStepConfig(step))
}

func TestValidateStepConfig_UnknownStepType(t *testing.T) {
	step := &WorkflowStep{Type: StepType("teleport")}

	assert.Error(t, ValidateStepConfig(step))
}

func TestValidateStepConfig_EmptyConfigAllowedForDelay(t *testing.T) {
	step := &WorkflowStep{Type: StepTypeDelay}

	assert.NoError(t, ValidateStepConfig(step))
}
