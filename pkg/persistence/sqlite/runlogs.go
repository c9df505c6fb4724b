package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence"
)

// CreateTaskRunLog appends one task-run history row.
func (p *Persistence) CreateTaskRunLog(ctx context.Context, log *models.TaskRunLog) error {
	query := `
		INSERT INTO task_run_logs (id, task_id, account_id, action_type, target, status, started_at, completed_at, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := p.db.ExecContext(ctx, query,
		log.ID, log.TaskID, log.AccountID, log.ActionType, log.Target,
		log.Status, log.StartedAt, log.CompletedAt, log.Error)
	if err != nil {
		return persistence.NewStoreError("CreateTaskRunLog", log.ID, err)
	}

	return nil
}

// UpdateTaskRunLog updates the terminal fields of a task-run row.
func (p *Persistence) UpdateTaskRunLog(ctx context.Context, log *models.TaskRunLog) error {
	query := `UPDATE task_run_logs SET status = ?, completed_at = ?, error = ? WHERE id = ?`

	result, err := p.db.ExecContext(ctx, query, log.Status, log.CompletedAt, log.Error, log.ID)
	if err != nil {
		return persistence.NewStoreError("UpdateTaskRunLog", log.ID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("UpdateTaskRunLog", log.ID, persistence.ErrRunLogNotFound)
	}

	return nil
}

// TaskRunLogs returns a task's run history, most recent first.
func (p *Persistence) TaskRunLogs(ctx context.Context, taskID string) ([]*models.TaskRunLog, error) {
	query := `
		SELECT id, task_id, account_id, action_type, target, status, started_at, completed_at, error
		FROM task_run_logs
		WHERE task_id = ?
		ORDER BY started_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task run logs: %w", err)
	}
	defer p.closeRows(ctx, rows)

	logs := make([]*models.TaskRunLog, 0)

	for rows.Next() {
		log := &models.TaskRunLog{}

		err = rows.Scan(&log.ID, &log.TaskID, &log.AccountID, &log.ActionType,
			&log.Target, &log.Status, &log.StartedAt, &log.CompletedAt, &log.Error)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task run log: %w", err)
		}

		logs = append(logs, log)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating task run logs: %w", err)
	}

	return logs, nil
}

// CreateWorkflowRunLog appends one workflow-run history row.
func (p *Persistence) CreateWorkflowRunLog(ctx context.Context, log *models.WorkflowRunLog) error {
	result, err := marshalRunResult(log.Result)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_run_logs (id, workflow_id, run_id, step_id, status, started_at, completed_at, error, result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = p.db.ExecContext(ctx, query,
		log.ID, log.WorkflowID, log.RunID, log.StepID, log.Status,
		log.StartedAt, log.CompletedAt, log.Error, result)
	if err != nil {
		return persistence.NewStoreError("CreateWorkflowRunLog", log.ID, err)
	}

	return nil
}

// UpdateWorkflowRunLog transitions a row to its terminal state.
func (p *Persistence) UpdateWorkflowRunLog(ctx context.Context, log *models.WorkflowRunLog) error {
	result, err := marshalRunResult(log.Result)
	if err != nil {
		return err
	}

	query := `UPDATE workflow_run_logs SET status = ?, completed_at = ?, error = ?, result = ? WHERE id = ?`

	execResult, err := p.db.ExecContext(ctx, query, log.Status, log.CompletedAt, log.Error, result, log.ID)
	if err != nil {
		return persistence.NewStoreError("UpdateWorkflowRunLog", log.ID, err)
	}

	affected, err := execResult.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("UpdateWorkflowRunLog", log.ID, persistence.ErrRunLogNotFound)
	}

	return nil
}

// WorkflowRunLogs returns a workflow's run history, most recent first.
func (p *Persistence) WorkflowRunLogs(ctx context.Context, workflowID string) ([]*models.WorkflowRunLog, error) {
	query := runLogSelect + ` WHERE workflow_id = ? ORDER BY started_at DESC`

	return p.queryRunLogs(ctx, query, workflowID)
}

// WorkflowRunLogsByRun returns all rows of one execution, oldest first.
func (p *Persistence) WorkflowRunLogsByRun(ctx context.Context, runID string) ([]*models.WorkflowRunLog, error) {
	query := runLogSelect + ` WHERE run_id = ? ORDER BY started_at`

	return p.queryRunLogs(ctx, query, runID)
}

// CreateAlert appends one alert row.
func (p *Persistence) CreateAlert(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (id, account_id, kind, severity, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := p.db.ExecContext(ctx, query,
		alert.ID, alert.AccountID, alert.Kind, alert.Severity, alert.Message, alert.CreatedAt)
	if err != nil {
		return persistence.NewStoreError("CreateAlert", alert.ID, err)
	}

	return nil
}

// Alerts returns all alerts, most recent first.
func (p *Persistence) Alerts(ctx context.Context) ([]*models.Alert, error) {
	query := `
		SELECT id, account_id, kind, severity, message, created_at
		FROM alerts
		ORDER BY created_at DESC
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer p.closeRows(ctx, rows)

	alerts := make([]*models.Alert, 0)

	for rows.Next() {
		alert := &models.Alert{}

		err = rows.Scan(&alert.ID, &alert.AccountID, &alert.Kind,
			&alert.Severity, &alert.Message, &alert.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		alerts = append(alerts, alert)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// PruneTaskRunLogs deletes task-run rows older than the cutoff.
func (p *Persistence) PruneTaskRunLogs(ctx context.Context, cutoff time.Time) (int, error) {
	return p.prune(ctx, `DELETE FROM task_run_logs WHERE started_at < ?`, cutoff)
}

// PruneWorkflowRunLogs deletes workflow-run rows older than the cutoff.
func (p *Persistence) PruneWorkflowRunLogs(ctx context.Context, cutoff time.Time) (int, error) {
	return p.prune(ctx, `DELETE FROM workflow_run_logs WHERE started_at < ?`, cutoff)
}

// PruneAlerts deletes alert rows older than the cutoff.
func (p *Persistence) PruneAlerts(ctx context.Context, cutoff time.Time) (int, error) {
	return p.prune(ctx, `DELETE FROM alerts WHERE created_at < ?`, cutoff)
}

const runLogSelect = `
	SELECT id, workflow_id, run_id, step_id, status, started_at, completed_at, error, result
	FROM workflow_run_logs
`

func (p *Persistence) queryRunLogs(ctx context.Context, query string, args ...any) ([]*models.WorkflowRunLog, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow run logs: %w", err)
	}
	defer p.closeRows(ctx, rows)

	logs := make([]*models.WorkflowRunLog, 0)

	for rows.Next() {
		log := &models.WorkflowRunLog{}

		var result sql.NullString

		err = rows.Scan(&log.ID, &log.WorkflowID, &log.RunID, &log.StepID,
			&log.Status, &log.StartedAt, &log.CompletedAt, &log.Error, &result)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow run log: %w", err)
		}

		if result.Valid && result.String != "" {
			log.Result = &models.RunResult{}

			err = json.Unmarshal([]byte(result.String), log.Result)
			if err != nil {
				return nil, fmt.Errorf("failed to unmarshal run result: %w", err)
			}
		}

		logs = append(logs, log)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow run logs: %w", err)
	}

	return logs, nil
}

func (p *Persistence) prune(ctx context.Context, query string, cutoff time.Time) (int, error) {
	result, err := p.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune rows: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}

	return int(affected), nil
}

func marshalRunResult(result *models.RunResult) (any, error) {
	if result == nil {
		return nil, nil
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run result: %w", err)
	}

	return string(payload), nil
}
