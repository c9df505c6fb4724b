// Package workflow runs workflows: the Runner owns the run lifecycle
// (run id, run-level log row, workflow bookkeeping, events) and delegates
// step-by-step execution to the interpreter.
package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aviary-sh/aviary/pkg/eventbus"
	"github.com/aviary-sh/aviary/pkg/events"
	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/otelhelper"
	"github.com/aviary-sh/aviary/pkg/protocol"
	"github.com/aviary-sh/aviary/pkg/repository"
)

type Runner struct {
	repository *repository.Repository
	executor   protocol.ActionExecutor
	notifier   protocol.Notifier
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	logger     *slog.Logger

	// sleep and randFloat are replaced in tests to avoid real waits and
	// to pin random draws.
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
	now       func() time.Time
}

func NewRunner(
	repo *repository.Repository,
	executor protocol.ActionExecutor,
	notifier protocol.Notifier,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		repository: repo,
		executor:   executor,
		notifier:   notifier,
		publisher:  publisher,
		tracer:     tracer,
		logger:     logger.With("module", "workflow_runner"),
		sleep:      sleepContext,
		randFloat:  randomFloat,
		now:        time.Now,
	}
}

// Run executes one workflow synchronously and returns its run id. The
// returned error covers only failures to load the workflow or to write
// its run-level log row; step failures are recorded in the run's log
// rows and counters instead.
func (r *Runner) Run(ctx context.Context, workflowID string) (string, error) {
	workflow, err := r.repository.WorkflowByID(ctx, workflowID)
	if err != nil {
		return "", err
	}

	runID := generateRunID()
	logger := r.logger.With("workflow_id", workflow.ID, "run_id", runID)
	startedAt := r.now()

	ctx, span := otelhelper.StartSpan(ctx, r.tracer, "workflow.run",
		attribute.String(otelhelper.WorkflowIDKey, workflow.ID),
		attribute.String(otelhelper.RunIDKey, runID),
	)
	defer span.End()

	runLog, err := r.repository.StartWorkflowRunLog(ctx, workflow.ID, runID, nil, startedAt)
	if err != nil {
		otelhelper.SetError(span, err)

		return "", err
	}

	logger.Info("Starting workflow run")
	r.publish(ctx, workflow.ID, events.WorkflowRunStarted{
		BaseEvent:  events.NewBaseEvent(events.WorkflowRunStartedEvent),
		WorkflowID: workflow.ID,
		RunID:      runID,
	})

	steps, err := r.repository.WorkflowSteps(ctx, workflow.ID)
	if err != nil {
		r.finishRun(ctx, logger, workflow, runLog, models.RunStatusFailed, err.Error(), &models.RunResult{}, startedAt)
		otelhelper.SetError(span, err)

		return runID, nil
	}

	execCtx := models.NewExecutionContext(runID, workflow.ID)

	if len(steps) == 0 {
		logger.Info("Workflow has no steps to execute")
		r.finishRun(ctx, logger, workflow, runLog, models.RunStatusCompleted, "", &execCtx.Result, startedAt)

		return runID, nil
	}

	interp := newInterpreter(r, workflow, steps, execCtx, logger)

	if err := interp.run(ctx); err != nil {
		r.finishRun(ctx, logger, workflow, runLog, models.RunStatusFailed, err.Error(), &execCtx.Result, startedAt)
		otelhelper.SetError(span, err)

		return runID, nil
	}

	r.finishRun(ctx, logger, workflow, runLog, models.RunStatusCompleted, "", &execCtx.Result, startedAt)

	return runID, nil
}

func (r *Runner) finishRun(
	ctx context.Context,
	logger *slog.Logger,
	workflow *models.Workflow,
	runLog *models.WorkflowRunLog,
	status models.RunStatus,
	errMessage string,
	result *models.RunResult,
	startedAt time.Time,
) {
	now := r.now()

	if err := r.repository.FinishWorkflowRunLog(ctx, runLog, status, errMessage, result, now); err != nil {
		logger.Error("Failed to finalize run log", "error", err)
	}

	if err := r.repository.UpdateWorkflowAfterRun(ctx, workflow, now); err != nil {
		logger.Error("Failed to update workflow after run", "error", err)
	}

	duration := now.Sub(startedAt)

	if status == models.RunStatusFailed {
		logger.Error("Workflow run failed", "error", errMessage, "duration", duration)
		r.publish(ctx, workflow.ID, events.WorkflowRunFailed{
			BaseEvent:  events.NewBaseEvent(events.WorkflowRunFailedEvent),
			WorkflowID: workflow.ID,
			RunID:      runLog.RunID,
			Error:      errMessage,
			Duration:   duration,
		})

		return
	}

	logger.Info("Workflow run completed",
		"accounts_processed", result.AccountsProcessed,
		"actions_executed", result.ActionsExecuted,
		"success_count", result.SuccessCount,
		"failure_count", result.FailureCount,
		"duration", duration,
	)
	r.publish(ctx, workflow.ID, events.WorkflowRunFinished{
		BaseEvent:  events.NewBaseEvent(events.WorkflowRunFinishedEvent),
		WorkflowID: workflow.ID,
		RunID:      runLog.RunID,
		Result:     *result,
		Duration:   duration,
	})
}

func (r *Runner) publish(ctx context.Context, key string, event eventbus.Event) {
	if r.publisher == nil {
		return
	}

	if err := r.publisher.Publish(ctx, key, event); err != nil {
		r.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func generateRunID() string {
	return "run-" + uuid.New().String()[:8]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
