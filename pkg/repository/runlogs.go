package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aviary-sh/aviary/pkg/models"
)

// StartTaskRunLog appends a running task-run row and returns it.
func (r *Repository) StartTaskRunLog(ctx context.Context, task *models.AutomationTask, accountID, target string, now time.Time) (*models.TaskRunLog, error) {
	log := &models.TaskRunLog{
		ID:         uuid.New().String(),
		TaskID:     task.ID,
		AccountID:  accountID,
		ActionType: task.ActionType,
		Target:     target,
		Status:     models.RunStatusRunning,
		StartedAt:  now,
	}

	if err := r.persistence.CreateTaskRunLog(ctx, log); err != nil {
		return nil, err
	}

	return log, nil
}

// FinishTaskRunLog transitions a task-run row to its terminal state.
func (r *Repository) FinishTaskRunLog(ctx context.Context, log *models.TaskRunLog, status models.RunStatus, errMessage string, now time.Time) error {
	log.Status = status
	log.CompletedAt = &now
	log.Error = errMessage

	return r.persistence.UpdateTaskRunLog(ctx, log)
}

// TaskRunLogs returns a task's run history.
func (r *Repository) TaskRunLogs(ctx context.Context, taskID string) ([]*models.TaskRunLog, error) {
	return r.persistence.TaskRunLogs(ctx, taskID)
}

// StartWorkflowRunLog appends a running row for a run or a step visit.
// A nil stepID marks the run-level row.
func (r *Repository) StartWorkflowRunLog(ctx context.Context, workflowID, runID string, stepID *string, now time.Time) (*models.WorkflowRunLog, error) {
	log := &models.WorkflowRunLog{
		ID:         uuid.New().String(),
		WorkflowID: workflowID,
		RunID:      runID,
		StepID:     stepID,
		Status:     models.RunStatusRunning,
		StartedAt:  now,
	}

	if err := r.persistence.CreateWorkflowRunLog(ctx, log); err != nil {
		return nil, err
	}

	return log, nil
}

// FinishWorkflowRunLog transitions a row exactly once to completed or
// failed, attaching the error message and result counters when present.
func (r *Repository) FinishWorkflowRunLog(ctx context.Context, log *models.WorkflowRunLog, status models.RunStatus, errMessage string, result *models.RunResult, now time.Time) error {
	log.Status = status
	log.CompletedAt = &now
	log.Error = errMessage
	log.Result = result

	return r.persistence.UpdateWorkflowRunLog(ctx, log)
}

// WorkflowRunLogs returns a workflow's run history.
func (r *Repository) WorkflowRunLogs(ctx context.Context, workflowID string) ([]*models.WorkflowRunLog, error) {
	return r.persistence.WorkflowRunLogs(ctx, workflowID)
}

// WorkflowRunLogsByRun returns all rows of one execution.
func (r *Repository) WorkflowRunLogsByRun(ctx context.Context, runID string) ([]*models.WorkflowRunLog, error) {
	return r.persistence.WorkflowRunLogsByRun(ctx, runID)
}

// CreateAlert appends a monitoring alert.
func (r *Repository) CreateAlert(ctx context.Context, accountID string, kind models.AlertKind, severity models.AlertSeverity, message string) (*models.Alert, error) {
	alert := &models.Alert{
		ID:        uuid.New().String(),
		AccountID: accountID,
		Kind:      kind,
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now(),
	}

	if err := r.persistence.CreateAlert(ctx, alert); err != nil {
		return nil, err
	}

	return alert, nil
}

// Alerts returns all monitoring alerts.
func (r *Repository) Alerts(ctx context.Context) ([]*models.Alert, error) {
	return r.persistence.Alerts(ctx)
}

// PruneHistory applies the retention cutoff to all three append-oriented
// tables and returns the total rows removed.
func (r *Repository) PruneHistory(ctx context.Context, retention time.Duration, now time.Time) (int, error) {
	cutoff := now.Add(-retention)
	total := 0

	pruned, err := r.persistence.PruneTaskRunLogs(ctx, cutoff)
	total += pruned

	if err != nil {
		return total, err
	}

	pruned, err = r.persistence.PruneWorkflowRunLogs(ctx, cutoff)
	total += pruned

	if err != nil {
		return total, err
	}

	pruned, err = r.persistence.PruneAlerts(ctx, cutoff)
	total += pruned

	return total, err
}
