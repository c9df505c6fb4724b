package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aviary-sh/aviary/pkg/repository"
	"github.com/aviary-sh/aviary/pkg/workflow"
)

// WorkflowScheduler ticks over schedule-triggered workflows and runs the
// due ones synchronously. Manual runs go through RunNow and bypass the
// tick guard entirely, so a manual run may overlap a scheduled one.
type WorkflowScheduler struct {
	repository *repository.Repository
	runner     *workflow.Runner
	logger     *slog.Logger

	tickInterval time.Duration

	guard   tickGuard
	ticker  *time.Ticker
	done    chan bool
	started bool
	mu      sync.Mutex

	now func() time.Time
}

func NewWorkflowScheduler(repo *repository.Repository, runner *workflow.Runner, logger *slog.Logger) *WorkflowScheduler {
	return &WorkflowScheduler{
		repository:   repo,
		runner:       runner,
		logger:       logger.With("module", "workflow_scheduler"),
		tickInterval: DefaultTickInterval,
		done:         make(chan bool),
		now:          time.Now,
	}
}

// SetTickInterval overrides the tick period. Call before Start.
func (s *WorkflowScheduler) SetTickInterval(d time.Duration) {
	s.tickInterval = d
}

func (s *WorkflowScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info("Starting workflow scheduler", "tick_interval", s.tickInterval)

	s.ticker = time.NewTicker(s.tickInterval)
	s.started = true

	go s.pollWorkflows(ctx)

	return nil
}

func (s *WorkflowScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info("Stopping workflow scheduler")

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.done)
	s.started = false

	return nil
}

// State reports whether a tick is currently in flight.
func (s *WorkflowScheduler) State() TickState {
	return s.guard.current()
}

// RunNow runs one workflow immediately, independent of the tick guard.
func (s *WorkflowScheduler) RunNow(ctx context.Context, workflowID string) (string, error) {
	return s.runner.Run(ctx, workflowID)
}

func (s *WorkflowScheduler) pollWorkflows(ctx context.Context) {
	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-s.ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *WorkflowScheduler) tick(ctx context.Context) {
	if !s.guard.begin() {
		s.logger.Info("Previous tick still running, skipping")

		return
	}
	defer s.guard.end()

	due, err := s.repository.DueWorkflows(ctx, s.now())
	if err != nil {
		s.logger.Error("Failed to fetch due workflows", "error", err)

		return
	}

	if len(due) > 0 {
		s.logger.Info("Processing due workflows", "count", len(due))
	}

	for _, wf := range due {
		runID, err := s.runner.Run(ctx, wf.ID)
		if err != nil {
			s.logger.Error("Failed to run workflow", "workflow_id", wf.ID, "error", err)

			continue
		}

		s.logger.Info("Workflow run finished", "workflow_id", wf.ID, "run_id", runID)
	}
}
