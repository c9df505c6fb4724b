package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/aviary-sh/aviary/pkg/mocks"
	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence/file"
	"github.com/aviary-sh/aviary/pkg/protocol"
	"github.com/aviary-sh/aviary/pkg/repository"
	"github.com/aviary-sh/aviary/pkg/scheduler"
	"github.com/aviary-sh/aviary/pkg/testutil"
	"github.com/aviary-sh/aviary/pkg/workflow"
)

type apiHarness struct {
	app      *fiber.App
	repo     *repository.Repository
	executor *mocks.MockActionExecutor
}

func setupTestApp(t *testing.T) *apiHarness {
	t.Helper()

	store := file.NewPersistence(t.TempDir())
	repo := repository.NewRepository(store)
	executor := &mocks.MockActionExecutor{}
	notifier := &mocks.MockNotifier{}
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	runner := workflow.NewRunner(repo, executor, notifier, nil,
		noop.NewTracerProvider().Tracer("test"), logger)
	workflows := scheduler.NewWorkflowScheduler(repo, runner, logger)
	monitor := scheduler.NewMonitor(repo, executor, notifier, nil, logger,
		scheduler.DefaultMonitorConfig())

	app := fiber.New()
	NewAPIHandlers(repo, workflows, monitor).Register(app)

	return &apiHarness{app: app, repo: repo, executor: executor}
}

func doRequest(t *testing.T, app *fiber.App, method, target string) *http.Response {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Accept", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := resp.Body.Close(); err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	})

	return resp
}

func TestAPI_HealthCheck(t *testing.T) {
	h := setupTestApp(t)

	resp := doRequest(t, h.app, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health HealthResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
}

func TestAPI_GetTasks_Empty(t *testing.T) {
	h := setupTestApp(t)

	resp := doRequest(t, h.app, http.MethodGet, "/tasks")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var tasks []models.AutomationTask

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tasks))
	assert.Empty(t, tasks)
}

func TestAPI_GetTasks(t *testing.T) {
	h := setupTestApp(t)

	_, err := h.repo.CreateAutomationTask(context.Background(), testutil.CreateTestTask())
	require.NoError(t, err)

	resp := doRequest(t, h.app, http.MethodGet, "/tasks")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var tasks []models.AutomationTask

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, models.ActionTypeLike, tasks[0].ActionType)
}

func TestAPI_GetWorkflows(t *testing.T) {
	h := setupTestApp(t)

	wf, err := h.repo.CreateWorkflow(context.Background(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	resp := doRequest(t, h.app, http.MethodGet, "/workflows")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var workflows []models.Workflow

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&workflows))
	require.Len(t, workflows, 1)
	assert.Equal(t, wf.ID, workflows[0].ID)
}

func TestAPI_RunWorkflow(t *testing.T) {
	h := setupTestApp(t)

	wf, err := h.repo.CreateWorkflow(context.Background(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	resp := doRequest(t, h.app, http.MethodPost, "/workflows/"+wf.ID+"/run")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var run RunWorkflowResponse

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.True(t, run.Success)
	assert.NotEmpty(t, run.RunID)
}

func TestAPI_RunWorkflow_NotFound(t *testing.T) {
	h := setupTestApp(t)

	resp := doRequest(t, h.app, http.MethodPost, "/workflows/no-such-id/run")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetWorkflowRuns(t *testing.T) {
	h := setupTestApp(t)
	ctx := context.Background()

	wf, err := h.repo.CreateWorkflow(ctx, testutil.CreateTestWorkflow())
	require.NoError(t, err)

	runResp := doRequest(t, h.app, http.MethodPost, "/workflows/"+wf.ID+"/run")
	require.Equal(t, http.StatusOK, runResp.StatusCode)

	resp := doRequest(t, h.app, http.MethodGet, "/workflows/"+wf.ID+"/runs")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var logs []models.WorkflowRunLog

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, models.RunStatusCompleted, logs[0].Status)
}

func TestAPI_GetWorkflowRuns_UnknownWorkflow(t *testing.T) {
	h := setupTestApp(t)

	resp := doRequest(t, h.app, http.MethodGet, "/workflows/no-such-id/runs")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_GetRun(t *testing.T) {
	h := setupTestApp(t)

	wf, err := h.repo.CreateWorkflow(context.Background(), testutil.CreateTestWorkflow())
	require.NoError(t, err)

	runResp := doRequest(t, h.app, http.MethodPost, "/workflows/"+wf.ID+"/run")
	require.Equal(t, http.StatusOK, runResp.StatusCode)

	var run RunWorkflowResponse

	require.NoError(t, json.NewDecoder(runResp.Body).Decode(&run))

	resp := doRequest(t, h.app, http.MethodGet, "/runs/"+run.RunID)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var logs []models.WorkflowRunLog

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logs))
	require.Len(t, logs, 1)
	assert.Equal(t, run.RunID, logs[0].RunID)
}

func TestAPI_GetRun_NotFound(t *testing.T) {
	h := setupTestApp(t)

	resp := doRequest(t, h.app, http.MethodGet, "/runs/run-missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_MonitoringCheck(t *testing.T) {
	h := setupTestApp(t)

	account := testutil.CreateTestAccount()
	require.NoError(t, h.repo.SaveAccount(context.Background(), account))

	h.executor.On("Perform", mock.Anything, mock.Anything, models.ActionTypeCheckStatus, mock.Anything).
		Return(protocol.Result{Success: true, Status: models.AccountStatusActive}, nil)

	resp := doRequest(t, h.app, http.MethodPost, "/monitoring/check")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var results []scheduler.CheckResult

	require.NoError(t, json.NewDecoder(resp.Body).Decode(&results))
	require.Len(t, results, 1)
	assert.Equal(t, account.ID, results[0].AccountID)
	assert.False(t, results[0].Changed)
}

func TestAPI_MonitoringCheck_EmptyAccounts(t *testing.T) {
	h := setupTestApp(t)

	resp := doRequest(t, h.app, http.MethodPost, "/monitoring/check")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
