package file

import (
	"context"
	"sort"
	"time"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence"
)

// CreateTaskRunLog appends one task-run history row.
func (p *Persistence) CreateTaskRunLog(_ context.Context, log *models.TaskRunLog) error {
	return write(p, dirTaskRunLogs, log.ID, log)
}

// UpdateTaskRunLog rewrites a task-run row in place.
func (p *Persistence) UpdateTaskRunLog(ctx context.Context, log *models.TaskRunLog) error {
	_, err := read[models.TaskRunLog](p, dirTaskRunLogs, log.ID, persistence.ErrRunLogNotFound)
	if err != nil {
		return err
	}

	return write(p, dirTaskRunLogs, log.ID, log)
}

// TaskRunLogs returns a task's run history, most recent first.
func (p *Persistence) TaskRunLogs(_ context.Context, taskID string) ([]*models.TaskRunLog, error) {
	all, err := readAll[models.TaskRunLog](p, dirTaskRunLogs)
	if err != nil {
		return nil, err
	}

	logs := make([]*models.TaskRunLog, 0)

	for _, log := range all {
		if log.TaskID == taskID {
			logs = append(logs, log)
		}
	}

	sort.Slice(logs, func(i, j int) bool {
		return logs[i].StartedAt.After(logs[j].StartedAt)
	})

	return logs, nil
}

// CreateWorkflowRunLog appends one workflow-run history row.
func (p *Persistence) CreateWorkflowRunLog(_ context.Context, log *models.WorkflowRunLog) error {
	return write(p, dirWorkflowRunLogs, log.ID, log)
}

// UpdateWorkflowRunLog rewrites a workflow-run row in place.
func (p *Persistence) UpdateWorkflowRunLog(ctx context.Context, log *models.WorkflowRunLog) error {
	_, err := read[models.WorkflowRunLog](p, dirWorkflowRunLogs, log.ID, persistence.ErrRunLogNotFound)
	if err != nil {
		return err
	}

	return write(p, dirWorkflowRunLogs, log.ID, log)
}

// WorkflowRunLogs returns a workflow's run history, most recent first.
func (p *Persistence) WorkflowRunLogs(_ context.Context, workflowID string) ([]*models.WorkflowRunLog, error) {
	return p.filterRunLogs(func(log *models.WorkflowRunLog) bool {
		return log.WorkflowID == workflowID
	}, true)
}

// WorkflowRunLogsByRun returns all rows of one execution, oldest first.
func (p *Persistence) WorkflowRunLogsByRun(_ context.Context, runID string) ([]*models.WorkflowRunLog, error) {
	return p.filterRunLogs(func(log *models.WorkflowRunLog) bool {
		return log.RunID == runID
	}, false)
}

// CreateAlert appends one alert row.
func (p *Persistence) CreateAlert(_ context.Context, alert *models.Alert) error {
	return write(p, dirAlerts, alert.ID, alert)
}

// Alerts returns all alerts, most recent first.
func (p *Persistence) Alerts(_ context.Context) ([]*models.Alert, error) {
	alerts, err := readAll[models.Alert](p, dirAlerts)
	if err != nil {
		return nil, err
	}

	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})

	return alerts, nil
}

// PruneTaskRunLogs deletes task-run rows older than the cutoff.
func (p *Persistence) PruneTaskRunLogs(ctx context.Context, cutoff time.Time) (int, error) {
	all, err := readAll[models.TaskRunLog](p, dirTaskRunLogs)
	if err != nil {
		return 0, err
	}

	pruned := 0

	for _, log := range all {
		if log.StartedAt.Before(cutoff) {
			if err := remove(p, dirTaskRunLogs, log.ID, persistence.ErrRunLogNotFound); err != nil {
				return pruned, err
			}

			pruned++
		}
	}

	return pruned, nil
}

// PruneWorkflowRunLogs deletes workflow-run rows older than the cutoff.
func (p *Persistence) PruneWorkflowRunLogs(ctx context.Context, cutoff time.Time) (int, error) {
	all, err := readAll[models.WorkflowRunLog](p, dirWorkflowRunLogs)
	if err != nil {
		return 0, err
	}

	pruned := 0

	for _, log := range all {
		if log.StartedAt.Before(cutoff) {
			if err := remove(p, dirWorkflowRunLogs, log.ID, persistence.ErrRunLogNotFound); err != nil {
				return pruned, err
			}

			pruned++
		}
	}

	return pruned, nil
}

// PruneAlerts deletes alert rows older than the cutoff.
func (p *Persistence) PruneAlerts(ctx context.Context, cutoff time.Time) (int, error) {
	all, err := readAll[models.Alert](p, dirAlerts)
	if err != nil {
		return 0, err
	}

	pruned := 0

	for _, alert := range all {
		if alert.CreatedAt.Before(cutoff) {
			if err := remove(p, dirAlerts, alert.ID, persistence.ErrRunLogNotFound); err != nil {
				return pruned, err
			}

			pruned++
		}
	}

	return pruned, nil
}

func (p *Persistence) filterRunLogs(keep func(*models.WorkflowRunLog) bool, newestFirst bool) ([]*models.WorkflowRunLog, error) {
	all, err := readAll[models.WorkflowRunLog](p, dirWorkflowRunLogs)
	if err != nil {
		return nil, err
	}

	logs := make([]*models.WorkflowRunLog, 0)

	for _, log := range all {
		if keep(log) {
			logs = append(logs, log)
		}
	}

	sort.Slice(logs, func(i, j int) bool {
		if newestFirst {
			return logs[i].StartedAt.After(logs[j].StartedAt)
		}

		return logs[i].StartedAt.Before(logs[j].StartedAt)
	})

	return logs, nil
}
