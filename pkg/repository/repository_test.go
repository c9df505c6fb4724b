package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence/file"
	"github.com/aviary-sh/aviary/pkg/testutil"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	return NewRepository(file.NewPersistence(t.TempDir()))
}

func TestRepository_HealthCheck(t *testing.T) {
	repo := newTestRepository(t)

	message, ok := repo.HealthCheck(context.Background())
	assert.True(t, ok)
	assert.Contains(t, message, "healthy")
}

func TestRepository_CreateAutomationTask(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.CreateAutomationTask(ctx, testutil.CreateTestTask())
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	require.NotNil(t, created.NextRunAt, "enabled tasks get a next run time")
	assert.True(t, created.NextRunAt.After(time.Now()))
}

func TestRepository_CreateAutomationTask_AssignsID(t *testing.T) {
	repo := newTestRepository(t)

	task := testutil.CreateTestTask()
	task.ID = ""

	created, err := repo.CreateAutomationTask(context.Background(), task)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}

func TestRepository_CreateAutomationTask_Invalid(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	noName := testutil.CreateTestTask()
	noName.Name = ""

	_, err := repo.CreateAutomationTask(ctx, noName)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid automation task")

	noAccounts := testutil.CreateTestTask(testutil.WithAccounts())

	_, err = repo.CreateAutomationTask(ctx, noAccounts)
	assert.Error(t, err)

	badInterval := testutil.CreateTestTask()
	badInterval.IntervalMinutes = 0

	_, err = repo.CreateAutomationTask(ctx, badInterval)
	assert.Error(t, err)
}

func TestRepository_CreateDisabledTaskHasNoNextRun(t *testing.T) {
	repo := newTestRepository(t)

	task := testutil.CreateTestTask()
	task.Enabled = false

	created, err := repo.CreateAutomationTask(context.Background(), task)
	require.NoError(t, err)
	assert.Nil(t, created.NextRunAt)
}

func TestRepository_CreateWorkflow_InvalidTrigger(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	noSchedule := testutil.CreateTestWorkflow(
		testutil.WithTrigger(models.TriggerTypeSchedule, models.TriggerConfig{}))

	_, err := repo.CreateWorkflow(ctx, noSchedule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid workflow trigger")

	noStream := testutil.CreateTestWorkflow(
		testutil.WithTrigger(models.TriggerTypeEvent, models.TriggerConfig{}))

	_, err = repo.CreateWorkflow(ctx, noStream)
	assert.Error(t, err)
}

func TestRepository_CreateWorkflowStep_InvalidConfig(t *testing.T) {
	repo := newTestRepository(t)

	wf, err := repo.CreateWorkflow(context.Background(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	step := testutil.CreateTestStep(wf.ID, 0,
		testutil.WithStepType(models.StepTypeAction, map[string]any{"action_type": "teleport"}))

	_, err = repo.CreateWorkflowStep(context.Background(), step)
	assert.Error(t, err)
}

func TestRepository_TaskRunLogLifecycle(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	task, err := repo.CreateAutomationTask(ctx, testutil.CreateTestTask())
	require.NoError(t, err)

	started := time.Now()

	log, err := repo.StartTaskRunLog(ctx, task, task.AccountIDs[0], "https://x.com/home", started)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, log.Status)
	assert.Equal(t, task.ActionType, log.ActionType)

	finished := started.Add(2 * time.Second)
	require.NoError(t, repo.FinishTaskRunLog(ctx, log, models.RunStatusFailed, "session lost", finished))

	logs, err := repo.TaskRunLogs(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RunStatusFailed, logs[0].Status)
	assert.Equal(t, "session lost", logs[0].Error)
	require.NotNil(t, logs[0].CompletedAt)
}

func TestRepository_WorkflowRunLogLevels(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	workflowID := uuid.New().String()
	runID := "run-feed0001"
	now := time.Now()

	runRow, err := repo.StartWorkflowRunLog(ctx, workflowID, runID, nil, now)
	require.NoError(t, err)
	assert.Nil(t, runRow.StepID)

	stepID := uuid.New().String()

	stepRow, err := repo.StartWorkflowRunLog(ctx, workflowID, runID, &stepID, now.Add(time.Second))
	require.NoError(t, err)
	require.NotNil(t, stepRow.StepID)
	assert.Equal(t, stepID, *stepRow.StepID)

	result := &models.RunResult{AccountsProcessed: 2, ActionsExecuted: 3, SuccessCount: 2, FailureCount: 1}
	require.NoError(t, repo.FinishWorkflowRunLog(ctx, runRow, models.RunStatusCompleted, "", result, now.Add(3*time.Second)))

	logs, err := repo.WorkflowRunLogsByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Nil(t, logs[0].StepID, "the run-level row comes first")
	require.NotNil(t, logs[0].Result)
	assert.Equal(t, 2, logs[0].Result.SuccessCount)
}

func TestRepository_PruneHistory(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Now()
	old := now.Add(-40 * 24 * time.Hour)

	task, err := repo.CreateAutomationTask(ctx, testutil.CreateTestTask())
	require.NoError(t, err)

	oldTaskLog, err := repo.StartTaskRunLog(ctx, task, task.AccountIDs[0], "", old)
	require.NoError(t, err)
	require.NoError(t, repo.FinishTaskRunLog(ctx, oldTaskLog, models.RunStatusCompleted, "", old))

	_, err = repo.StartTaskRunLog(ctx, task, task.AccountIDs[0], "", now)
	require.NoError(t, err)

	_, err = repo.StartWorkflowRunLog(ctx, uuid.New().String(), "run-aged0001", nil, old)
	require.NoError(t, err)

	_, err = repo.CreateAlert(ctx, uuid.New().String(), models.AlertLocked, models.SeverityWarning, "locked out")
	require.NoError(t, err)

	pruned, err := repo.PruneHistory(ctx, 30*24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 2, pruned, "one task row and one workflow row age out")

	logs, err := repo.TaskRunLogs(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	alerts, err := repo.Alerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1, "fresh alerts survive the cutoff")
}
