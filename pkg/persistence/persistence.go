// Package persistence provides the data storage abstraction for accounts,
// automation tasks, workflows, and their run history.
package persistence

import (
	"context"
	"time"

	"github.com/aviary-sh/aviary/pkg/models"
)

// Persistence is the storage contract shared by all backends.
type Persistence interface {
	// Accounts and proxies are owned by the surrounding application;
	// this subsystem reads them and updates monitoring fields only.
	Accounts(ctx context.Context) ([]*models.Account, error)
	AccountByID(ctx context.Context, id string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error
	ProxyByID(ctx context.Context, id string) (*models.Proxy, error)
	SaveProxy(ctx context.Context, proxy *models.Proxy) error

	AutomationTasks(ctx context.Context) ([]*models.AutomationTask, error)
	AutomationTaskByID(ctx context.Context, id string) (*models.AutomationTask, error)
	DueAutomationTasks(ctx context.Context, now time.Time) ([]*models.AutomationTask, error)
	SaveAutomationTask(ctx context.Context, task *models.AutomationTask) error
	DeleteAutomationTask(ctx context.Context, id string) error
	ResetDailyCounters(ctx context.Context, now time.Time) error

	Workflows(ctx context.Context) ([]*models.Workflow, error)
	WorkflowByID(ctx context.Context, id string) (*models.Workflow, error)
	DueWorkflows(ctx context.Context, now time.Time) ([]*models.Workflow, error)
	SaveWorkflow(ctx context.Context, workflow *models.Workflow) error
	DeleteWorkflow(ctx context.Context, id string) error

	// WorkflowSteps returns a workflow's steps ordered by their Order field.
	WorkflowSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error)
	SaveWorkflowStep(ctx context.Context, step *models.WorkflowStep) error
	DeleteWorkflowStep(ctx context.Context, id string) error

	CreateTaskRunLog(ctx context.Context, log *models.TaskRunLog) error
	UpdateTaskRunLog(ctx context.Context, log *models.TaskRunLog) error
	TaskRunLogs(ctx context.Context, taskID string) ([]*models.TaskRunLog, error)

	CreateWorkflowRunLog(ctx context.Context, log *models.WorkflowRunLog) error
	UpdateWorkflowRunLog(ctx context.Context, log *models.WorkflowRunLog) error
	WorkflowRunLogs(ctx context.Context, workflowID string) ([]*models.WorkflowRunLog, error)
	WorkflowRunLogsByRun(ctx context.Context, runID string) ([]*models.WorkflowRunLog, error)

	CreateAlert(ctx context.Context, alert *models.Alert) error
	Alerts(ctx context.Context) ([]*models.Alert, error)

	// Retention pruning deletes rows older than the cutoff and returns
	// the number removed.
	PruneTaskRunLogs(ctx context.Context, cutoff time.Time) (int, error)
	PruneWorkflowRunLogs(ctx context.Context, cutoff time.Time) (int, error)
	PruneAlerts(ctx context.Context, cutoff time.Time) (int, error)

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
