// Package repository mediates all scheduler and interpreter access to the
// persistence layer: due-selection queries, after-run mutators, and run-log
// lifecycle helpers.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence"
)

type Repository struct {
	persistence persistence.Persistence
	validate    *validator.Validate
}

func NewRepository(p persistence.Persistence) *Repository {
	return &Repository{
		persistence: p,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// HealthCheck reports the persistence layer's health as a message + ok pair.
func (r *Repository) HealthCheck(ctx context.Context) (string, bool) {
	if r.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := r.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Accounts returns all managed accounts.
func (r *Repository) Accounts(ctx context.Context) ([]*models.Account, error) {
	return r.persistence.Accounts(ctx)
}

// AccountByID returns one account.
func (r *Repository) AccountByID(ctx context.Context, id string) (*models.Account, error) {
	return r.persistence.AccountByID(ctx, id)
}

// SaveAccount persists monitoring updates to an account.
func (r *Repository) SaveAccount(ctx context.Context, account *models.Account) error {
	return r.persistence.SaveAccount(ctx, account)
}

// ProxyByID returns one proxy.
func (r *Repository) ProxyByID(ctx context.Context, id string) (*models.Proxy, error) {
	return r.persistence.ProxyByID(ctx, id)
}

// CreateAutomationTask validates and persists a new task. Disabled tasks
// carry no next-run time.
func (r *Repository) CreateAutomationTask(ctx context.Context, task *models.AutomationTask) (*models.AutomationTask, error) {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	if err := r.validate.Struct(task); err != nil {
		return nil, fmt.Errorf("invalid automation task: %w", err)
	}

	now := time.Now()
	task.CreatedAt = now
	task.SetEnabled(task.Enabled, now)

	if err := r.persistence.SaveAutomationTask(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// AutomationTasks returns all automation tasks.
func (r *Repository) AutomationTasks(ctx context.Context) ([]*models.AutomationTask, error) {
	return r.persistence.AutomationTasks(ctx)
}

// DueAutomationTasks returns tasks eligible to run now.
func (r *Repository) DueAutomationTasks(ctx context.Context, now time.Time) ([]*models.AutomationTask, error) {
	return r.persistence.DueAutomationTasks(ctx, now)
}

// UpdateTaskAfterRun records one execution on the task row.
func (r *Repository) UpdateTaskAfterRun(ctx context.Context, task *models.AutomationTask, now time.Time, success bool) error {
	task.MarkRun(now, success)

	return r.persistence.SaveAutomationTask(ctx, task)
}

// ResetDailyCounters zeroes every task's daily counter.
func (r *Repository) ResetDailyCounters(ctx context.Context, now time.Time) error {
	return r.persistence.ResetDailyCounters(ctx, now)
}

// CreateWorkflow validates and persists a new workflow.
func (r *Repository) CreateWorkflow(ctx context.Context, workflow *models.Workflow) (*models.Workflow, error) {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
	}

	if err := r.validate.Struct(workflow); err != nil {
		return nil, fmt.Errorf("invalid workflow: %w", err)
	}

	if err := workflow.Validate(); err != nil {
		return nil, fmt.Errorf("invalid workflow trigger: %w", err)
	}

	now := time.Now()
	workflow.CreatedAt = now
	workflow.SetEnabled(workflow.Enabled, now)

	if err := r.persistence.SaveWorkflow(ctx, workflow); err != nil {
		return nil, err
	}

	return workflow, nil
}

// Workflows returns all workflows.
func (r *Repository) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	return r.persistence.Workflows(ctx)
}

// WorkflowByID returns one workflow.
func (r *Repository) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	return r.persistence.WorkflowByID(ctx, id)
}

// DueWorkflows returns schedule-triggered workflows eligible to run now.
func (r *Repository) DueWorkflows(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	return r.persistence.DueWorkflows(ctx, now)
}

// UpdateWorkflowAfterRun records one run on the workflow row and recomputes
// its next fire time while still schedule-triggered.
func (r *Repository) UpdateWorkflowAfterRun(ctx context.Context, workflow *models.Workflow, now time.Time) error {
	workflow.MarkRun(now)

	return r.persistence.SaveWorkflow(ctx, workflow)
}

// CreateWorkflowStep validates and persists a new step.
func (r *Repository) CreateWorkflowStep(ctx context.Context, step *models.WorkflowStep) (*models.WorkflowStep, error) {
	if step.ID == "" {
		step.ID = uuid.New().String()
	}

	if err := r.validate.Struct(step); err != nil {
		return nil, fmt.Errorf("invalid workflow step: %w", err)
	}

	if err := r.persistence.SaveWorkflowStep(ctx, step); err != nil {
		return nil, err
	}

	return step, nil
}

// WorkflowSteps returns a workflow's steps ordered by their Order field.
func (r *Repository) WorkflowSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	return r.persistence.WorkflowSteps(ctx, workflowID)
}
