package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aviary-sh/aviary/pkg/eventbus"
	"github.com/aviary-sh/aviary/pkg/events"
	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/protocol"
	"github.com/aviary-sh/aviary/pkg/repository"
)

// ErrCheckInProgress is returned by CheckNow while a monitoring pass is
// already running.
var ErrCheckInProgress = errors.New("monitoring check already in progress")

// MonitorConfig gates which account transitions raise alerts.
type MonitorConfig struct {
	TickInterval   time.Duration
	AlertLoginLost bool
	AlertLocked    bool
	AlertSuspended bool
	AlertShadowBan bool
}

func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		TickInterval:   15 * time.Minute,
		AlertLoginLost: true,
		AlertLocked:    true,
		AlertSuspended: true,
		AlertShadowBan: true,
	}
}

// CheckResult is the outcome of one account's status check.
type CheckResult struct {
	AccountID string               `json:"account_id"`
	Handle    string               `json:"handle"`
	Previous  models.AccountStatus `json:"previous"`
	Current   models.AccountStatus `json:"current"`
	Changed   bool                 `json:"changed"`
	Error     string               `json:"error,omitempty"`
}

// Monitor periodically checks every account's status through the
// executor, persists changes, and raises alerts on watched transitions.
type Monitor struct {
	repository *repository.Repository
	executor   protocol.ActionExecutor
	notifier   protocol.Notifier
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	config     MonitorConfig

	guard   tickGuard
	ticker  *time.Ticker
	done    chan bool
	started bool
	mu      sync.Mutex

	now func() time.Time
}

func NewMonitor(
	repo *repository.Repository,
	executor protocol.ActionExecutor,
	notifier protocol.Notifier,
	publisher eventbus.EventPublisher,
	logger *slog.Logger,
	config MonitorConfig,
) *Monitor {
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultMonitorConfig().TickInterval
	}

	return &Monitor{
		repository: repo,
		executor:   executor,
		notifier:   notifier,
		publisher:  publisher,
		logger:     logger.With("module", "monitor"),
		config:     config,
		done:       make(chan bool),
		now:        time.Now,
	}
}

func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return nil
	}

	m.logger.Info("Starting account monitor", "tick_interval", m.config.TickInterval)

	m.ticker = time.NewTicker(m.config.TickInterval)
	m.started = true

	go m.poll(ctx)

	return nil
}

func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Info("Stopping account monitor")

	if m.ticker != nil {
		m.ticker.Stop()
	}

	close(m.done)
	m.started = false

	return nil
}

// State reports whether a monitoring pass is currently in flight.
func (m *Monitor) State() TickState {
	return m.guard.current()
}

// CheckNow runs one monitoring pass synchronously and returns the
// per-account results. It shares the tick's single-flight guard.
func (m *Monitor) CheckNow(ctx context.Context) ([]CheckResult, error) {
	if !m.guard.begin() {
		return nil, ErrCheckInProgress
	}
	defer m.guard.end()

	return m.checkAccounts(ctx)
}

func (m *Monitor) poll(ctx context.Context) {
	for {
		select {
		case <-m.done:
			return
		case <-ctx.Done():
			return
		case <-m.ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	if !m.guard.begin() {
		m.logger.Info("Previous check still running, skipping")

		return
	}
	defer m.guard.end()

	if _, err := m.checkAccounts(ctx); err != nil {
		m.logger.Error("Monitoring pass failed", "error", err)
	}
}

// checkAccounts checks every account once. Per-account executor failures
// land in the result rows and never abort the pass.
func (m *Monitor) checkAccounts(ctx context.Context) ([]CheckResult, error) {
	accounts, err := m.repository.Accounts(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]CheckResult, 0, len(accounts))

	for _, account := range accounts {
		results = append(results, m.checkAccount(ctx, account))
	}

	return results, nil
}

func (m *Monitor) checkAccount(ctx context.Context, account *models.Account) CheckResult {
	previous := account.Status
	check := CheckResult{
		AccountID: account.ID,
		Handle:    account.Handle,
		Previous:  previous,
		Current:   previous,
	}

	result, err := m.executor.Perform(ctx, account, models.ActionTypeCheckStatus, "")
	if err != nil {
		check.Error = err.Error()
		m.logger.Error("Status check failed", "account_id", account.ID, "error", err)

		return check
	}

	current := result.Status
	if current == "" {
		current = models.AccountStatusUnknown
	}

	check.Current = current
	check.Changed = current != previous

	now := m.now()
	account.Status = current
	account.LastCheckedAt = &now

	if err := m.repository.SaveAccount(ctx, account); err != nil {
		m.logger.Error("Failed to save account after check", "account_id", account.ID, "error", err)
	}

	if check.Changed {
		m.logger.Info("Account status changed", "account_id", account.ID, "previous", previous, "current", current)
		m.publish(ctx, account.ID, events.AccountStatusChanged{
			BaseEvent: events.NewBaseEvent(events.AccountStatusChangedEvent),
			AccountID: account.ID,
			Previous:  previous,
			Current:   current,
		})
		m.raiseAlerts(ctx, account, previous, current)
	}

	return check
}

// raiseAlerts maps watched transitions to alert records, each gated by
// its config toggle.
func (m *Monitor) raiseAlerts(ctx context.Context, account *models.Account, previous, current models.AccountStatus) {
	kind, severity, watched := transitionAlert(previous, current)
	if !watched || !m.alertEnabled(kind) {
		return
	}

	message := fmt.Sprintf("Account %s transitioned from %s to %s", account.Handle, previous, current)

	alert, err := m.repository.CreateAlert(ctx, account.ID, kind, severity, message)
	if err != nil {
		m.logger.Error("Failed to create alert", "account_id", account.ID, "error", err)

		return
	}

	m.publish(ctx, account.ID, events.AlertRaised{
		BaseEvent: events.NewBaseEvent(events.AlertRaisedEvent),
		AlertID:   alert.ID,
		AccountID: account.ID,
		Kind:      kind,
		Severity:  severity,
		Message:   message,
	})

	if m.notifier != nil {
		m.notifier.Notify(ctx, "Account alert: "+account.Handle, message)
	}
}

func (m *Monitor) alertEnabled(kind models.AlertKind) bool {
	switch kind {
	case models.AlertLoginLost:
		return m.config.AlertLoginLost
	case models.AlertLocked:
		return m.config.AlertLocked
	case models.AlertSuspended:
		return m.config.AlertSuspended
	case models.AlertShadowBanned:
		return m.config.AlertShadowBan
	default:
		return false
	}
}

func (m *Monitor) publish(ctx context.Context, key string, event eventbus.Event) {
	if m.publisher == nil {
		return
	}

	if err := m.publisher.Publish(ctx, key, event); err != nil {
		m.logger.Error("Failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

// transitionAlert classifies a status change. Only entries into a bad
// state are watched; recovery transitions are not alerted.
func transitionAlert(previous, current models.AccountStatus) (models.AlertKind, models.AlertSeverity, bool) {
	if previous == current {
		return "", "", false
	}

	switch current {
	case models.AccountStatusLoginFailed:
		return models.AlertLoginLost, models.SeverityCritical, true
	case models.AccountStatusLocked:
		return models.AlertLocked, models.SeverityWarning, true
	case models.AccountStatusSuspended:
		return models.AlertSuspended, models.SeverityCritical, true
	case models.AccountStatusShadowBanned:
		return models.AlertShadowBanned, models.SeverityWarning, true
	default:
		return "", "", false
	}
}
