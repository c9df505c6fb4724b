package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence"
	"github.com/aviary-sh/aviary/pkg/testutil"
)

func newTestPersistence(t *testing.T) *Persistence {
	t.Helper()

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := NewPersistence(ctx, logger, "sqlite://"+filepath.Join(t.TempDir(), "aviary.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = p.Close(context.Background())
	})

	return p
}

func TestMigrations(t *testing.T) {
	m := migrations()

	schema, exists := m[1]
	require.True(t, exists, "migration version 1 should exist")

	tables := []string{
		"accounts", "proxies", "automation_tasks", "workflows",
		"workflow_steps", "task_run_logs", "workflow_run_logs", "alerts",
	}
	for _, table := range tables {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}

	assert.Contains(t, schema, "idx_tasks_due")
	assert.Contains(t, schema, "idx_workflows_due")
	assert.Contains(t, schema, "ON DELETE CASCADE")
}

func TestSQLitePersistence_HealthCheck(t *testing.T) {
	p := newTestPersistence(t)

	assert.NoError(t, p.HealthCheck(context.Background()))
}

func TestSQLitePersistence_AccountRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	account := testutil.CreateTestAccount()
	require.NoError(t, p.SaveAccount(ctx, account))

	stored, err := p.AccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Handle, stored.Handle)
	assert.Equal(t, models.AccountStatusActive, stored.Status)

	_, err = p.AccountByID(ctx, "missing")
	assert.ErrorIs(t, err, persistence.ErrAccountNotFound)
}

func TestSQLitePersistence_DueAutomationTasks(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	due := testutil.CreateTestTask()
	due.NextRunAt = &past
	require.NoError(t, p.SaveAutomationTask(ctx, due))

	exhausted := testutil.CreateTestTask(
		testutil.WithDailyLimit(1), testutil.WithTodayCount(1))
	exhausted.NextRunAt = &past
	require.NoError(t, p.SaveAutomationTask(ctx, exhausted))

	disabled := testutil.CreateTestTask()
	disabled.Enabled = false
	disabled.NextRunAt = &past
	require.NoError(t, p.SaveAutomationTask(ctx, disabled))

	notYet := testutil.CreateTestTask()
	notYet.NextRunAt = &future
	require.NoError(t, p.SaveAutomationTask(ctx, notYet))

	tasks, err := p.DueAutomationTasks(ctx, now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, due.ID, tasks[0].ID)
}

func TestSQLitePersistence_DueAutomationTasksZeroLimitIsUnlimited(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	task := testutil.CreateTestTask(
		testutil.WithDailyLimit(0), testutil.WithTodayCount(100))
	task.NextRunAt = &past
	require.NoError(t, p.SaveAutomationTask(ctx, task))

	tasks, err := p.DueAutomationTasks(ctx, now)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
}

func TestSQLitePersistence_DueAutomationTasksNullNextRun(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	task := testutil.CreateTestTask()
	require.NoError(t, p.SaveAutomationTask(ctx, task))

	tasks, err := p.DueAutomationTasks(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.ID, tasks[0].ID)
}

func TestSQLitePersistence_ResetDailyCounters(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	task := testutil.CreateTestTask(testutil.WithTodayCount(7))
	require.NoError(t, p.SaveAutomationTask(ctx, task))

	require.NoError(t, p.ResetDailyCounters(ctx, time.Now().UTC()))

	stored, err := p.AutomationTaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.TodayCount)
}

func TestSQLitePersistence_DueWorkflowsSkipsManual(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)

	scheduled := testutil.CreateTestWorkflow()
	scheduled.NextRunAt = &past
	require.NoError(t, p.SaveWorkflow(ctx, scheduled))

	manual := testutil.CreateTestWorkflow(
		testutil.WithTrigger(models.TriggerTypeManual, models.TriggerConfig{}))
	manual.NextRunAt = &past
	require.NoError(t, p.SaveWorkflow(ctx, manual))

	notYet := testutil.CreateTestWorkflow()
	notYet.NextRunAt = &future
	require.NoError(t, p.SaveWorkflow(ctx, notYet))

	due, err := p.DueWorkflows(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, scheduled.ID, due[0].ID)
}

func TestSQLitePersistence_DeleteWorkflowCascadesSteps(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()

	wf := testutil.CreateTestWorkflow()
	require.NoError(t, p.SaveWorkflow(ctx, wf))
	require.NoError(t, p.SaveWorkflowStep(ctx, testutil.CreateTestStep(wf.ID, 0)))
	require.NoError(t, p.SaveWorkflowStep(ctx, testutil.CreateTestStep(wf.ID, 1)))

	require.NoError(t, p.DeleteWorkflow(ctx, wf.ID))

	steps, err := p.WorkflowSteps(ctx, wf.ID)
	require.NoError(t, err)
	assert.Empty(t, steps)
}

func TestSQLitePersistence_TaskRunLogRoundTrip(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	now := time.Now().UTC()

	task := testutil.CreateTestTask()
	require.NoError(t, p.SaveAutomationTask(ctx, task))

	older := &models.TaskRunLog{
		ID:         uuid.New().String(),
		TaskID:     task.ID,
		AccountID:  uuid.New().String(),
		ActionType: models.ActionTypeLike,
		Target:     "keyword:golang",
		Status:     models.RunStatusRunning,
		StartedAt:  now.Add(-time.Hour),
	}
	require.NoError(t, p.CreateTaskRunLog(ctx, older))

	newer := &models.TaskRunLog{
		ID:         uuid.New().String(),
		TaskID:     task.ID,
		AccountID:  uuid.New().String(),
		ActionType: models.ActionTypeLike,
		Target:     "keyword:golang",
		Status:     models.RunStatusRunning,
		StartedAt:  now,
	}
	require.NoError(t, p.CreateTaskRunLog(ctx, newer))

	completed := now.Add(time.Second)
	older.Status = models.RunStatusFailed
	older.CompletedAt = &completed
	older.Error = "session lost"
	require.NoError(t, p.UpdateTaskRunLog(ctx, older))

	logs, err := p.TaskRunLogs(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, newer.ID, logs[0].ID, "most recent first")
	assert.Equal(t, models.RunStatusFailed, logs[1].Status)
	assert.Equal(t, "session lost", logs[1].Error)
	require.NotNil(t, logs[1].CompletedAt)
}

func TestSQLitePersistence_UpdateTaskRunLogRequiresExisting(t *testing.T) {
	p := newTestPersistence(t)

	log := &models.TaskRunLog{ID: "missing", Status: models.RunStatusCompleted}
	err := p.UpdateTaskRunLog(context.Background(), log)
	assert.ErrorIs(t, err, persistence.ErrRunLogNotFound)
}

func TestSQLitePersistence_WorkflowRunLogsByRunOldestFirst(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	now := time.Now().UTC()

	wf := testutil.CreateTestWorkflow()
	require.NoError(t, p.SaveWorkflow(ctx, wf))

	runID := uuid.New().String()
	runRow := &models.WorkflowRunLog{
		ID:         uuid.New().String(),
		WorkflowID: wf.ID,
		RunID:      runID,
		Status:     models.RunStatusRunning,
		StartedAt:  now.Add(-time.Minute),
	}
	require.NoError(t, p.CreateWorkflowRunLog(ctx, runRow))

	stepID := uuid.New().String()
	stepRow := &models.WorkflowRunLog{
		ID:         uuid.New().String(),
		WorkflowID: wf.ID,
		RunID:      runID,
		StepID:     &stepID,
		Status:     models.RunStatusRunning,
		StartedAt:  now,
	}
	require.NoError(t, p.CreateWorkflowRunLog(ctx, stepRow))

	completed := now.Add(time.Second)
	runRow.Status = models.RunStatusCompleted
	runRow.CompletedAt = &completed
	runRow.Result = &models.RunResult{
		AccountsProcessed: 2,
		ActionsExecuted:   3,
		SuccessCount:      2,
		FailureCount:      1,
	}
	require.NoError(t, p.UpdateWorkflowRunLog(ctx, runRow))

	logs, err := p.WorkflowRunLogsByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.True(t, logs[0].IsRunLevel())
	assert.Equal(t, stepID, *logs[1].StepID)
	require.NotNil(t, logs[0].Result)
	assert.Equal(t, 3, logs[0].Result.ActionsExecuted)
	assert.Equal(t, 1, logs[0].Result.FailureCount)
}

func TestSQLitePersistence_PruneHistory(t *testing.T) {
	p := newTestPersistence(t)
	ctx := context.Background()
	now := time.Now().UTC()
	cutoff := now.AddDate(0, 0, -30)
	old := now.AddDate(0, 0, -40)

	require.NoError(t, p.CreateTaskRunLog(ctx, &models.TaskRunLog{
		ID: uuid.New().String(), TaskID: "t1", AccountID: "a1",
		ActionType: models.ActionTypeLike, Status: models.RunStatusCompleted,
		StartedAt: old,
	}))
	require.NoError(t, p.CreateTaskRunLog(ctx, &models.TaskRunLog{
		ID: uuid.New().String(), TaskID: "t1", AccountID: "a1",
		ActionType: models.ActionTypeLike, Status: models.RunStatusCompleted,
		StartedAt: now,
	}))

	require.NoError(t, p.CreateWorkflowRunLog(ctx, &models.WorkflowRunLog{
		ID: uuid.New().String(), WorkflowID: "w1", RunID: uuid.New().String(),
		Status: models.RunStatusCompleted, StartedAt: old,
	}))

	require.NoError(t, p.CreateAlert(ctx, &models.Alert{
		ID: uuid.New().String(), AccountID: "a1", Kind: models.AlertLocked,
		Severity: models.SeverityWarning, CreatedAt: now,
	}))

	prunedTasks, err := p.PruneTaskRunLogs(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, prunedTasks)

	prunedRuns, err := p.PruneWorkflowRunLogs(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, prunedRuns)

	prunedAlerts, err := p.PruneAlerts(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 0, prunedAlerts)

	logs, err := p.TaskRunLogs(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, logs, 1)

	alerts, err := p.Alerts(ctx)
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}
