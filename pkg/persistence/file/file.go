// Package file provides file-based persistence, used for local
// development and tests.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/persistence"
)

const (
	dirAccounts        = "accounts"
	dirProxies         = "proxies"
	dirTasks           = "tasks"
	dirWorkflows       = "workflows"
	dirSteps           = "steps"
	dirTaskRunLogs     = "task_run_logs"
	dirWorkflowRunLogs = "workflow_run_logs"
	dirAlerts          = "alerts"
)

// Persistence implements the persistence interface on a directory of JSON
// files, one file per entity. Writes are serialized with a mutex; the
// backend is meant for a single process.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a file persistence rooted at the given URL
// (file://./data).
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. Nothing to do for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists or can be created.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(p.root, 0o755)
}

func (p *Persistence) dir(collection string) string {
	return filepath.Join(p.root, collection)
}

func (p *Persistence) path(collection, id string) string {
	return filepath.Join(p.root, collection, id+".json")
}

func write[T any](p *Persistence, collection, id string, entity T) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := os.MkdirAll(p.dir(collection), 0o755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	payload, err := json.MarshalIndent(entity, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %s: %w", collection, id, err)
	}

	err = os.WriteFile(p.path(collection, id), payload, 0o644)
	if err != nil {
		return fmt.Errorf("failed to write %s %s: %w", collection, id, err)
	}

	return nil
}

func read[T any](p *Persistence, collection, id string, notFound error) (*T, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	payload, err := os.ReadFile(p.path(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewStoreError("Get", id, notFound)
		}

		return nil, fmt.Errorf("failed to read %s %s: %w", collection, id, err)
	}

	entity := new(T)

	err = json.Unmarshal(payload, entity)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s %s: %w", collection, id, err)
	}

	return entity, nil
}

func readAll[T any](p *Persistence, collection string) ([]*T, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	root := os.DirFS(p.dir(collection))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s files: %w", collection, err)
	}

	entities := make([]*T, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		payload, err := os.ReadFile(filepath.Join(p.dir(collection), file))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}

		entity := new(T)

		err = json.Unmarshal(payload, entity)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", file, err)
		}

		entities = append(entities, entity)
	}

	return entities, nil
}

func remove(p *Persistence, collection, id string, notFound error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := os.Remove(p.path(collection, id))
	if err != nil {
		if os.IsNotExist(err) {
			return persistence.NewStoreError("Delete", id, notFound)
		}

		return fmt.Errorf("failed to delete %s %s: %w", collection, id, err)
	}

	return nil
}

// Accounts returns all managed accounts.
func (p *Persistence) Accounts(_ context.Context) ([]*models.Account, error) {
	return readAll[models.Account](p, dirAccounts)
}

// AccountByID returns one account or ErrAccountNotFound.
func (p *Persistence) AccountByID(_ context.Context, id string) (*models.Account, error) {
	return read[models.Account](p, dirAccounts, id, persistence.ErrAccountNotFound)
}

// SaveAccount writes an account file.
func (p *Persistence) SaveAccount(_ context.Context, account *models.Account) error {
	return write(p, dirAccounts, account.ID, account)
}

// ProxyByID returns one proxy or ErrProxyNotFound.
func (p *Persistence) ProxyByID(_ context.Context, id string) (*models.Proxy, error) {
	return read[models.Proxy](p, dirProxies, id, persistence.ErrProxyNotFound)
}

// SaveProxy writes a proxy file.
func (p *Persistence) SaveProxy(_ context.Context, proxy *models.Proxy) error {
	return write(p, dirProxies, proxy.ID, proxy)
}

// AutomationTasks returns all automation tasks.
func (p *Persistence) AutomationTasks(_ context.Context) ([]*models.AutomationTask, error) {
	return readAll[models.AutomationTask](p, dirTasks)
}

// AutomationTaskByID returns one task or ErrTaskNotFound.
func (p *Persistence) AutomationTaskByID(_ context.Context, id string) (*models.AutomationTask, error) {
	return read[models.AutomationTask](p, dirTasks, id, persistence.ErrTaskNotFound)
}

// DueAutomationTasks filters tasks due at the given time.
func (p *Persistence) DueAutomationTasks(ctx context.Context, now time.Time) ([]*models.AutomationTask, error) {
	tasks, err := p.AutomationTasks(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.AutomationTask, 0)

	for _, task := range tasks {
		if task.IsDue(now) {
			due = append(due, task)
		}
	}

	return due, nil
}

// SaveAutomationTask writes a task file.
func (p *Persistence) SaveAutomationTask(_ context.Context, task *models.AutomationTask) error {
	return write(p, dirTasks, task.ID, task)
}

// DeleteAutomationTask removes a task file.
func (p *Persistence) DeleteAutomationTask(_ context.Context, id string) error {
	return remove(p, dirTasks, id, persistence.ErrTaskNotFound)
}

// ResetDailyCounters zeroes every task's today_count.
func (p *Persistence) ResetDailyCounters(ctx context.Context, now time.Time) error {
	tasks, err := p.AutomationTasks(ctx)
	if err != nil {
		return err
	}

	for _, task := range tasks {
		task.ResetDailyCount(now)

		if err := p.SaveAutomationTask(ctx, task); err != nil {
			return err
		}
	}

	return nil
}

// Workflows returns all workflows.
func (p *Persistence) Workflows(_ context.Context) ([]*models.Workflow, error) {
	return readAll[models.Workflow](p, dirWorkflows)
}

// WorkflowByID returns one workflow or ErrWorkflowNotFound.
func (p *Persistence) WorkflowByID(_ context.Context, id string) (*models.Workflow, error) {
	return read[models.Workflow](p, dirWorkflows, id, persistence.ErrWorkflowNotFound)
}

// DueWorkflows filters schedule-triggered workflows due at the given time.
func (p *Persistence) DueWorkflows(ctx context.Context, now time.Time) ([]*models.Workflow, error) {
	workflows, err := p.Workflows(ctx)
	if err != nil {
		return nil, err
	}

	due := make([]*models.Workflow, 0)

	for _, workflow := range workflows {
		if workflow.IsDue(now) {
			due = append(due, workflow)
		}
	}

	return due, nil
}

// SaveWorkflow writes a workflow file.
func (p *Persistence) SaveWorkflow(_ context.Context, workflow *models.Workflow) error {
	return write(p, dirWorkflows, workflow.ID, workflow)
}

// DeleteWorkflow removes a workflow file and its step files.
func (p *Persistence) DeleteWorkflow(ctx context.Context, id string) error {
	steps, err := p.WorkflowSteps(ctx, id)
	if err != nil {
		return err
	}

	for _, step := range steps {
		if err := p.DeleteWorkflowStep(ctx, step.ID); err != nil {
			return err
		}
	}

	return remove(p, dirWorkflows, id, persistence.ErrWorkflowNotFound)
}

// WorkflowSteps returns a workflow's steps ordered by Order.
func (p *Persistence) WorkflowSteps(_ context.Context, workflowID string) ([]*models.WorkflowStep, error) {
	all, err := readAll[models.WorkflowStep](p, dirSteps)
	if err != nil {
		return nil, err
	}

	steps := make([]*models.WorkflowStep, 0)

	for _, step := range all {
		if step.WorkflowID == workflowID {
			steps = append(steps, step)
		}
	}

	sortSteps(steps)

	return steps, nil
}

// SaveWorkflowStep validates the config against its type schema and writes
// the step file.
func (p *Persistence) SaveWorkflowStep(_ context.Context, step *models.WorkflowStep) error {
	if err := models.ValidateStepConfig(step); err != nil {
		return persistence.NewStoreError("SaveWorkflowStep", step.ID, err)
	}

	return write(p, dirSteps, step.ID, step)
}

// DeleteWorkflowStep removes a step file.
func (p *Persistence) DeleteWorkflowStep(_ context.Context, id string) error {
	return remove(p, dirSteps, id, persistence.ErrStepNotFound)
}

func sortSteps(steps []*models.WorkflowStep) {
	sort.Slice(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
}
