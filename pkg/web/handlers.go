// Package web provides HTTP handlers and REST API endpoints for the
// automation subsystem.
package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/aviary-sh/aviary/pkg/persistence"
	"github.com/aviary-sh/aviary/pkg/repository"
	"github.com/aviary-sh/aviary/pkg/scheduler"
)

type APIHandlers struct {
	repository *repository.Repository
	workflows  *scheduler.WorkflowScheduler
	monitor    *scheduler.Monitor
}

func NewAPIHandlers(
	repo *repository.Repository,
	workflows *scheduler.WorkflowScheduler,
	monitor *scheduler.Monitor,
) *APIHandlers {
	return &APIHandlers{
		repository: repo,
		workflows:  workflows,
		monitor:    monitor,
	}
}

// Register mounts all routes on the app.
func (h *APIHandlers) Register(app *fiber.App) {
	app.Get("/health", h.GetHealth)
	app.Get("/tasks", h.GetTasks)
	app.Get("/workflows", h.GetWorkflows)
	app.Post("/workflows/:id/run", h.RunWorkflow)
	app.Get("/workflows/:id/runs", h.GetWorkflowRuns)
	app.Get("/runs/:runId", h.GetRun)
	app.Post("/monitoring/check", h.MonitoringCheck)
}

func (h *APIHandlers) GetHealth(c fiber.Ctx) error {
	message, ok := h.repository.HealthCheck(c.Context())
	if !ok {
		return c.Status(fiber.StatusServiceUnavailable).JSON(HealthResponse{
			Status:  "unhealthy",
			Message: message,
		})
	}

	return c.JSON(HealthResponse{Status: "healthy", Message: message})
}

func (h *APIHandlers) GetTasks(c fiber.Ctx) error {
	tasks, err := h.repository.AutomationTasks(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(tasks)
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.repository.Workflows(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(workflows)
}

func (h *APIHandlers) RunWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	runID, err := h.workflows.RunNow(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return c.Status(fiber.StatusInternalServerError).JSON(RunWorkflowResponse{
			Success: false,
			Error:   err.Error(),
		})
	}

	return c.JSON(RunWorkflowResponse{Success: true, RunID: runID})
}

func (h *APIHandlers) GetWorkflowRuns(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if _, err := h.repository.WorkflowByID(c.Context(), id); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	logs, err := h.repository.WorkflowRunLogs(c.Context(), id)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(logs)
}

func (h *APIHandlers) GetRun(c fiber.Ctx) error {
	runID := c.Params("runId")
	if runID == "" {
		return badRequest(c, "Run ID is required")
	}

	logs, err := h.repository.WorkflowRunLogsByRun(c.Context(), runID)
	if err != nil {
		return internalError(c, err)
	}

	if len(logs) == 0 {
		return notFound(c, "Run not found")
	}

	return c.JSON(logs)
}

func (h *APIHandlers) MonitoringCheck(c fiber.Ctx) error {
	results, err := h.monitor.CheckNow(c.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrCheckInProgress) {
			return conflict(c, "A monitoring check is already running")
		}

		return internalError(c, err)
	}

	return c.JSON(results)
}
