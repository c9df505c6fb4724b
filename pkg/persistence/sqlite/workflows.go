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

const workflowColumns = `
	id
  , name
  , description
  , enabled
  , trigger_type
  , trigger_config
  , last_run_at
  , next_run_at
  , run_count
  , created_at
  , updated_at
`

// Workflows returns all workflows.
func (p *Persistence) Workflows(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows ORDER BY created_at`

	return p.queryWorkflows(ctx, query)
}

// WorkflowByID returns one workflow or ErrWorkflowNotFound.
func (p *Persistence) WorkflowByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = ?`

	workflow, err := scanWorkflow(p.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewStoreError("WorkflowByID", id, persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// DueWorkflows returns enabled, schedule-triggered workflows whose next
// run is unset or in the past.
func (p *Persistence) DueWorkflows(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE enabled = 1
		  AND trigger_type = ?
		  AND (next_run_at IS NULL OR next_run_at <= ?)
		ORDER BY next_run_at
	`

	return p.queryWorkflows(ctx, query, models.TriggerTypeSchedule, now)
}

// SaveWorkflow inserts or replaces a workflow row.
func (p *Persistence) SaveWorkflow(ctx context.Context, workflow *models.Workflow) error {
	config, err := json.Marshal(workflow.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal trigger config: %w", err)
	}

	query := `
		INSERT INTO workflows (
			id, name, description, enabled, trigger_type, trigger_config,
			last_run_at, next_run_at, run_count, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name
		  , description = excluded.description
		  , enabled = excluded.enabled
		  , trigger_type = excluded.trigger_type
		  , trigger_config = excluded.trigger_config
		  , last_run_at = excluded.last_run_at
		  , next_run_at = excluded.next_run_at
		  , run_count = excluded.run_count
		  , updated_at = excluded.updated_at
	`

	_, err = p.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, workflow.Enabled,
		workflow.Trigger, string(config), workflow.LastRunAt, workflow.NextRunAt,
		workflow.RunCount, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflow", workflow.ID, err)
	}

	return nil
}

// DeleteWorkflow removes a workflow and, through the foreign key, its steps.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return persistence.NewStoreError("DeleteWorkflow", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("DeleteWorkflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

// WorkflowSteps returns a workflow's steps ordered by step_order.
func (p *Persistence) WorkflowSteps(ctx context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	query := `
		SELECT id, workflow_id, step_order, step_type, config, on_success, on_failure
		FROM workflow_steps
		WHERE workflow_id = ?
		ORDER BY step_order
	`

	rows, err := p.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow steps: %w", err)
	}
	defer p.closeRows(ctx, rows)

	steps := make([]*models.WorkflowStep, 0)

	for rows.Next() {
		step := &models.WorkflowStep{}

		var config string

		err = rows.Scan(&step.ID, &step.WorkflowID, &step.Order, &step.Type,
			&config, &step.OnSuccess, &step.OnFailure)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow step: %w", err)
		}

		err = json.Unmarshal([]byte(config), &step.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal step config: %w", err)
		}

		steps = append(steps, step)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow steps: %w", err)
	}

	return steps, nil
}

// SaveWorkflowStep validates the step's config against its type schema and
// inserts or replaces the row.
func (p *Persistence) SaveWorkflowStep(ctx context.Context, step *models.WorkflowStep) error {
	if err := models.ValidateStepConfig(step); err != nil {
		return persistence.NewStoreError("SaveWorkflowStep", step.ID, err)
	}

	config, err := json.Marshal(step.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal step config: %w", err)
	}

	query := `
		INSERT INTO workflow_steps (id, workflow_id, step_order, step_type, config, on_success, on_failure)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			workflow_id = excluded.workflow_id
		  , step_order = excluded.step_order
		  , step_type = excluded.step_type
		  , config = excluded.config
		  , on_success = excluded.on_success
		  , on_failure = excluded.on_failure
	`

	_, err = p.db.ExecContext(ctx, query,
		step.ID, step.WorkflowID, step.Order, step.Type, string(config),
		step.OnSuccess, step.OnFailure)
	if err != nil {
		return persistence.NewStoreError("SaveWorkflowStep", step.ID, err)
	}

	return nil
}

// DeleteWorkflowStep removes a step row.
func (p *Persistence) DeleteWorkflowStep(ctx context.Context, id string) error {
	result, err := p.db.ExecContext(ctx, `DELETE FROM workflow_steps WHERE id = ?`, id)
	if err != nil {
		return persistence.NewStoreError("DeleteWorkflowStep", id, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return persistence.NewStoreError("DeleteWorkflowStep", id, persistence.ErrStepNotFound)
	}

	return nil
}

func (p *Persistence) queryWorkflows(ctx context.Context, query string, args ...any) ([]*models.Workflow, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}
	defer p.closeRows(ctx, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	workflow := &models.Workflow{}

	var config string

	err := row.Scan(
		&workflow.ID, &workflow.Name, &workflow.Description, &workflow.Enabled,
		&workflow.Trigger, &config, &workflow.LastRunAt, &workflow.NextRunAt,
		&workflow.RunCount, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal([]byte(config), &workflow.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal trigger config: %w", err)
	}

	return workflow, nil
}
