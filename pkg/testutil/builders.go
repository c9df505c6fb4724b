// Package testutil provides test data builders for the domain models.
package testutil

import (
	"time"

	"github.com/google/uuid"

	"github.com/aviary-sh/aviary/pkg/models"
)

// CreateTestAccount creates an active account with default values that
// can be overridden.
func CreateTestAccount(overrides ...func(*models.Account)) *models.Account {
	account := &models.Account{
		ID:        uuid.New().String(),
		Handle:    "test_account",
		Status:    models.AccountStatusActive,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(account)
	}

	return account
}

// WithAccountStatus sets the account status.
func WithAccountStatus(status models.AccountStatus) func(*models.Account) {
	return func(a *models.Account) {
		a.Status = status
	}
}

// WithProxy assigns a proxy id to the account.
func WithProxy(proxyID string) func(*models.Account) {
	return func(a *models.Account) {
		a.ProxyID = &proxyID
	}
}

// CreateTestTask creates an enabled automation task with default values.
func CreateTestTask(overrides ...func(*models.AutomationTask)) *models.AutomationTask {
	task := &models.AutomationTask{
		ID:              uuid.New().String(),
		Name:            "Test Task",
		ActionType:      models.ActionTypeLike,
		Enabled:         true,
		AccountIDs:      []string{uuid.New().String()},
		Target:          models.Target{Type: models.TargetTypeKeyword, Value: "golang"},
		IntervalMinutes: 30,
		DailyLimit:      10,
		CreatedAt:       time.Now().UTC(),
	}

	for _, override := range overrides {
		override(task)
	}

	return task
}

// WithAccounts sets the task's candidate accounts.
func WithAccounts(ids ...string) func(*models.AutomationTask) {
	return func(t *models.AutomationTask) {
		t.AccountIDs = ids
	}
}

// WithDailyLimit sets the task's daily quota.
func WithDailyLimit(limit int) func(*models.AutomationTask) {
	return func(t *models.AutomationTask) {
		t.DailyLimit = limit
	}
}

// WithTodayCount sets the task's executed-today counter.
func WithTodayCount(count int) func(*models.AutomationTask) {
	return func(t *models.AutomationTask) {
		t.TodayCount = count
	}
}

// CreateTestWorkflow creates an enabled schedule-triggered workflow.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:        uuid.New().String(),
		Name:      "Test Workflow",
		Enabled:   true,
		Trigger:   models.TriggerTypeSchedule,
		Config:    models.TriggerConfig{IntervalMinutes: 60},
		CreatedAt: time.Now().UTC(),
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithTrigger sets the workflow trigger type and configuration.
func WithTrigger(trigger models.TriggerType, config models.TriggerConfig) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Trigger = trigger
		w.Config = config
	}
}

// CreateTestStep creates an action step with default values.
func CreateTestStep(workflowID string, order int, overrides ...func(*models.WorkflowStep)) *models.WorkflowStep {
	step := &models.WorkflowStep{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		Order:      order,
		Type:       models.StepTypeAction,
		Config:     map[string]any{"action_type": "like", "keyword": "golang"},
	}

	for _, override := range overrides {
		override(step)
	}

	return step
}

// WithStepType sets the step type and config.
func WithStepType(stepType models.StepType, config map[string]any) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.Type = stepType
		s.Config = config
	}
}

// WithBranches sets the step's branch pointers.
func WithBranches(onSuccess, onFailure *string) func(*models.WorkflowStep) {
	return func(s *models.WorkflowStep) {
		s.OnSuccess = onSuccess
		s.OnFailure = onFailure
	}
}
