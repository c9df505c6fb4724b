package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence"
)

const taskColumns = `
	id
  , name
  , action_type
  , enabled
  , account_ids
  , target_type
  , target_value
  , interval_minutes
  , daily_limit
  , today_count
  , last_run_at
  , next_run_at
  , created_at
  , updated_at
`

// AutomationTasks returns all automation tasks.
func (p *Persistence) AutomationTasks(ctx context.Context) ([]*models.AutomationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM automation_tasks ORDER BY created_at`

	return p.queryTasks(ctx, query)
}

// AutomationTaskByID returns one task or ErrTaskNotFound.
func (p *Persistence) AutomationTaskByID(ctx context.Context, id string) (*models.AutomationTask, error) {
	query := `SELECT ` + taskColumns + ` FROM automation_tasks WHERE id = ?`

	task, err := scanTask(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("AutomationTaskByID", id, persistence.ErrTaskNotFound)
		}

		return nil, fmt.Errorf("failed to scan automation task: %w", err)
	}

	return task, nil
}

// DueAutomationTasks returns enabled tasks whose next run is unset or in
// the past and whose daily quota is not exhausted.
func (p *Persistence) DueAutomationTasks(ctx context.Context, now time.Time) ([]*models.AutomationTask, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM automation_tasks
		WHERE enabled = 1
		  AND (next_run_at IS NULL OR next_run_at <= ?)
		  AND (daily_limit = 0 OR today_count < daily_limit)
		ORDER BY next_run_at
	`

	return p.queryTasks(ctx, query, now)
}

// SaveAutomationTask inserts or replaces a task row.
func (p *Persistence) SaveAutomationTask(ctx context.Context, task *models.AutomationTask) error {
	accountIDs, err := json.Marshal(task.AccountIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal account ids: %w", err)
	}

	query := `
		INSERT INTO automation_tasks (
			id, name, action_type, enabled, account_ids, target_type, target_value,
			interval_minutes, daily_limit, today_count, last_run_at, next_run_at,
			created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
		  , action_type = excluded.action_type
		  , enabled = excluded.enabled
		  , account_ids = excluded.account_ids
		  , target_type = excluded.target_type
		  , target_value = excluded.target_value
		  , interval_minutes = excluded.interval_minutes
		  , daily_limit = excluded.daily_limit
		  , today_count = excluded.today_count
		  , last_run_at = excluded.last_run_at
		  , next_run_at = excluded.next_run_at
		  , updated_at = excluded.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		task.ID, task.Name, task.ActionType, task.Enabled, string(accountIDs),
		task.Target.Type, task.Target.Value, task.IntervalMinutes, task.DailyLimit,
		task.TodayCount, task.LastRunAt, task.NextRunAt, task.CreatedAt, task.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveAutomationTask", task.ID, err)
	}

	return nil
}

// DeleteAutomationTask removes a task row.
func (p *Persistence) DeleteAutomationTask(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM automation_tasks WHERE id = ?`, id)
	if err != nil {
		return persistence.NewStoreError("DeleteAutomationTask", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("DeleteAutomationTask", id, persistence.ErrTaskNotFound)
	}

	return nil
}

// ResetDailyCounters zeroes every task's today_count at the local-midnight
// boundary, independent of task identity.
func (p *Persistence) ResetDailyCounters(ctx context.Context, now time.Time) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE automation_tasks SET today_count = 0, updated_at = ?`, now)
	if err != nil {
		return persistence.NewStoreError("ResetDailyCounters", "", err)
	}

	return nil
}

func (p *Persistence) queryTasks(ctx context.Context, query string, args ...any) ([]*models.AutomationTask, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation tasks: %w", err)
	}
	defer p.closeRows(ctx, rows)

	tasks := make([]*models.AutomationTask, 0)

	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation task: %w", err)
		}

		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating automation tasks: %w", err)
	}

	return tasks, nil
}

func scanTask(row rowScanner) (*models.AutomationTask, error) {
	task := &models.AutomationTask{}

	var accountIDs string

	err := row.Scan(
		&task.ID, &task.Name, &task.ActionType, &task.Enabled, &accountIDs,
		&task.Target.Type, &task.Target.Value, &task.IntervalMinutes,
		&task.DailyLimit, &task.TodayCount, &task.LastRunAt, &task.NextRunAt,
		&task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal([]byte(accountIDs), &task.AccountIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal account ids: %w", err)
	}

	return task, nil
}
