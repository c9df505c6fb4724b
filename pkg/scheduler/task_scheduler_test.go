package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/aviary-sh/aviary/pkg/mocks"
	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence/file"
	"github.com/aviary-sh/aviary/pkg/protocol"
	"github.com/aviary-sh/aviary/pkg/repository"
	"github.com/aviary-sh/aviary/pkg/testutil"
)

func newTestTaskScheduler(t *testing.T) (*TaskScheduler, *repository.Repository, *file.Persistence, *mocks.MockActionExecutor) {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	repo := repository.NewRepository(store)
	executor := &mocks.MockActionExecutor{}

	s := NewTaskScheduler(
		repo,
		executor,
		nil,
		noop.NewTracerProvider().Tracer("test"),
		slog.New(slog.NewTextHandler(os.Stdout, nil)),
	)
	s.pickIdx = func(int) int { return 0 }

	return s, repo, store, executor
}

// saveDueTask persists a task whose next run time is already in the past.
func saveDueTask(t *testing.T, repo *repository.Repository, store *file.Persistence, task *models.AutomationTask) {
	t.Helper()

	ctx := context.Background()

	_, err := repo.CreateAutomationTask(ctx, task)
	require.NoError(t, err)

	past := time.Now().Add(-time.Minute)
	task.NextRunAt = &past
	require.NoError(t, store.SaveAutomationTask(ctx, task))
}

func saveAccount(t *testing.T, repo *repository.Repository) *models.Account {
	t.Helper()

	account := testutil.CreateTestAccount()
	require.NoError(t, repo.SaveAccount(context.Background(), account))

	return account
}

func TestTaskScheduler_RunsDueTask(t *testing.T) {
	s, repo, store, executor := newTestTaskScheduler(t)
	ctx := context.Background()

	account := saveAccount(t, repo)
	task := testutil.CreateTestTask(testutil.WithAccounts(account.ID))
	saveDueTask(t, repo, store, task)

	executor.On("Perform", mock.Anything, mock.Anything, models.ActionTypeLike, mock.Anything).
		Return(protocol.Result{Success: true}, nil)

	s.tick(ctx)

	executor.AssertNumberOfCalls(t, "Perform", 1)

	tasks, err := repo.AutomationTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 1, tasks[0].TodayCount)
	assert.NotNil(t, tasks[0].NextRunAt)

	logs, err := repo.TaskRunLogs(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RunStatusCompleted, logs[0].Status)
	assert.Equal(t, account.ID, logs[0].AccountID)
	assert.Contains(t, logs[0].Target, "f=live", "keyword targets derive a live-search URL")
}

func TestTaskScheduler_QuotaExhaustedTaskNeverRuns(t *testing.T) {
	s, repo, store, executor := newTestTaskScheduler(t)
	ctx := context.Background()

	account := saveAccount(t, repo)
	task := testutil.CreateTestTask(
		testutil.WithAccounts(account.ID),
		testutil.WithDailyLimit(1),
		testutil.WithTodayCount(1),
	)
	saveDueTask(t, repo, store, task)

	// The task never reaches the executor: the due query already
	// excludes quota-exhausted tasks.
	s.tick(ctx)

	executor.AssertNotCalled(t, "Perform")
}

func TestTaskScheduler_ExecutorFailureDoesNotConsumeQuota(t *testing.T) {
	s, repo, store, executor := newTestTaskScheduler(t)
	ctx := context.Background()

	account := saveAccount(t, repo)
	task := testutil.CreateTestTask(testutil.WithAccounts(account.ID))
	saveDueTask(t, repo, store, task)

	executor.On("Perform", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(protocol.Result{}, errors.New("session lost"))

	s.tick(ctx)

	tasks, err := repo.AutomationTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Zero(t, tasks[0].TodayCount, "failures do not consume quota")
	assert.NotNil(t, tasks[0].NextRunAt, "failures still reschedule")

	logs, err := repo.TaskRunLogs(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.RunStatusFailed, logs[0].Status)
	assert.Contains(t, logs[0].Error, "session lost")
}

func TestTaskScheduler_OverlappingTickIsSkipped(t *testing.T) {
	s, repo, store, executor := newTestTaskScheduler(t)
	ctx := context.Background()

	account := saveAccount(t, repo)
	task := testutil.CreateTestTask(testutil.WithAccounts(account.ID))
	saveDueTask(t, repo, store, task)

	require.True(t, s.guard.begin())
	defer s.guard.end()

	s.tick(ctx)

	executor.AssertNotCalled(t, "Perform")
}

func TestTaskScheduler_ResetCounters(t *testing.T) {
	s, repo, _, _ := newTestTaskScheduler(t)
	ctx := context.Background()

	task := testutil.CreateTestTask(testutil.WithTodayCount(7))
	_, err := repo.CreateAutomationTask(ctx, task)
	require.NoError(t, err)

	s.resetCounters(ctx)

	tasks, err := repo.AutomationTasks(ctx)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Zero(t, tasks[0].TodayCount)
}

func TestUntilNextMidnight(t *testing.T) {
	now := time.Date(2026, 1, 5, 23, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Hour, untilNextMidnight(now))
}
