package scheduler

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/aviary-sh/aviary/pkg/eventbus"
	"github.com/aviary-sh/aviary/pkg/events"
	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/otelhelper"
	"github.com/aviary-sh/aviary/pkg/protocol"
	"github.com/aviary-sh/aviary/pkg/repository"
	"github.com/aviary-sh/aviary/pkg/workflow"
)

const (
	DefaultTickInterval = time.Minute
	DefaultRetention    = 30 * 24 * time.Hour
)

// TaskScheduler drives automation tasks: every tick it runs each due
// task against one randomly picked account, and a daily timer resets
// quota counters and prunes aged history at local midnight.
type TaskScheduler struct {
	repository *repository.Repository
	executor   protocol.ActionExecutor
	publisher  eventbus.EventPublisher
	tracer     trace.Tracer
	logger     *slog.Logger

	tickInterval time.Duration
	retention    time.Duration

	guard   tickGuard
	ticker  *time.Ticker
	done    chan bool
	started bool
	mu      sync.Mutex

	now     func() time.Time
	pickIdx func(n int) int
}

func NewTaskScheduler(
	repo *repository.Repository,
	executor protocol.ActionExecutor,
	publisher eventbus.EventPublisher,
	tracer trace.Tracer,
	logger *slog.Logger,
) *TaskScheduler {
	return &TaskScheduler{
		repository:   repo,
		executor:     executor,
		publisher:    publisher,
		tracer:       tracer,
		logger:       logger.With("module", "task_scheduler"),
		tickInterval: DefaultTickInterval,
		retention:    DefaultRetention,
		done:         make(chan bool),
		now:          time.Now,
		pickIdx:      rand.IntN,
	}
}

// SetTickInterval overrides the tick period. Call before Start.
func (s *TaskScheduler) SetTickInterval(d time.Duration) {
	s.tickInterval = d
}

// SetRetention overrides how long run logs and alerts are kept.
func (s *TaskScheduler) SetRetention(d time.Duration) {
	s.retention = d
}

// Start launches the tick loop and the daily reset timer.
func (s *TaskScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info("Starting task scheduler", "tick_interval", s.tickInterval)

	s.ticker = time.NewTicker(s.tickInterval)
	s.started = true

	go s.pollTasks(ctx)
	go s.dailyReset(ctx)

	return nil
}

// Stop halts the tick loop. An in-flight tick completes naturally.
func (s *TaskScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info("Stopping task scheduler")

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.done)
	s.started = false

	return nil
}

// State reports whether a tick is currently in flight.
func (s *TaskScheduler) State() TickState {
	return s.guard.current()
}

func (s *TaskScheduler) pollTasks(ctx context.Context) {
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

// tick runs one batch of due tasks under the single-flight guard.
func (s *TaskScheduler) tick(ctx context.Context) {
	if !s.guard.begin() {
		s.logger.Info("Previous tick still running, skipping")

		return
	}
	defer s.guard.end()

	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "task_scheduler.tick",
		attribute.String(otelhelper.SchedulerKey, "tasks"),
	)
	defer span.End()

	now := s.now()

	due, err := s.repository.DueAutomationTasks(ctx, now)
	if err != nil {
		s.logger.Error("Failed to fetch due tasks", "error", err)
		otelhelper.SetError(span, err)

		return
	}

	if len(due) > 0 {
		s.logger.Info("Processing due tasks", "count", len(due))
	}

	for _, task := range due {
		s.runTask(ctx, task)
	}
}

// runTask executes one due task against one randomly picked account.
// Executor failures are recorded on the log row and never abort the tick.
func (s *TaskScheduler) runTask(ctx context.Context, task *models.AutomationTask) {
	logger := s.logger.With("task_id", task.ID, "action_type", task.ActionType)

	if task.QuotaExhausted() {
		logger.Info("Daily limit reached, skipping", "today_count", task.TodayCount, "daily_limit", task.DailyLimit)

		return
	}

	accountID := task.AccountIDs[s.pickIdx(len(task.AccountIDs))]
	target := workflow.TargetURL(task.Target)
	now := s.now()

	runLog, err := s.repository.StartTaskRunLog(ctx, task, accountID, target, now)
	if err != nil {
		logger.Error("Failed to create run log", "error", err)

		return
	}

	success := false
	errMessage := ""

	account, err := s.repository.AccountByID(ctx, accountID)
	if err != nil {
		errMessage = err.Error()
		logger.Error("Account not found", "account_id", accountID, "error", err)
	} else {
		result, err := s.executor.Perform(ctx, account, task.ActionType, target)
		if err != nil {
			errMessage = err.Error()
			logger.Error("Action failed", "account_id", accountID, "error", err)
		} else if !result.Success {
			errMessage = result.Message
			logger.Error("Action failed", "account_id", accountID, "message", result.Message)
		} else {
			success = true
		}
	}

	status := models.RunStatusCompleted
	if !success {
		status = models.RunStatusFailed
	}

	if err := s.repository.FinishTaskRunLog(ctx, runLog, status, errMessage, s.now()); err != nil {
		logger.Error("Failed to finalize run log", "error", err)
	}

	if err := s.repository.UpdateTaskAfterRun(ctx, task, s.now(), success); err != nil {
		logger.Error("Failed to update task after run", "error", err)
	}

	s.publish(ctx, task.ID, events.TaskRunFinished{
		BaseEvent:  events.NewBaseEvent(events.TaskRunFinishedEvent),
		TaskID:     task.ID,
		AccountID:  accountID,
		ActionType: task.ActionType,
		Success:    success,
		Error:      errMessage,
	})
}

// dailyReset fires once at the next local midnight, then every 24 hours,
// zeroing quota counters and pruning aged history.
func (s *TaskScheduler) dailyReset(ctx context.Context) {
	timer := time.NewTimer(untilNextMidnight(s.now()))
	defer timer.Stop()

	select {
	case <-s.done:
		return
	case <-ctx.Done():
		return
	case <-timer.C:
		s.resetCounters(ctx)
	}

	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.resetCounters(ctx)
		}
	}
}

func (s *TaskScheduler) resetCounters(ctx context.Context) {
	now := s.now()

	if err := s.repository.ResetDailyCounters(ctx, now); err != nil {
		s.logger.Error("Failed to reset daily counters", "error", err)
	} else {
		s.logger.Info("Daily counters reset")
	}

	pruned, err := s.repository.PruneHistory(ctx, s.retention, now)
	if err != nil {
		s.logger.Error("Failed to prune history", "error", err)
	} else if pruned > 0 {
		s.logger.Info("Pruned aged history", "rows", pruned, "retention", s.retention)
	}
}

func (s *TaskScheduler) publish(ctx context.Context, key string, event eventbus.Event) {
	if s.publisher == nil {
		return
	}

	if err := s.publisher.Publish(ctx, key, event); err != nil {
		s.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func untilNextMidnight(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)

	return next.Sub(now)
}
