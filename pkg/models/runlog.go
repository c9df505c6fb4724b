package models

import "time"

// RunStatus is the lifecycle state of a run or step log row. A row is
// created running and transitions exactly once to completed or failed.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult aggregates the counters of one workflow run.
type RunResult struct {
	AccountsProcessed int `json:"accounts_processed"`
	ActionsExecuted   int `json:"actions_executed"`
	SuccessCount      int `json:"success_count"`
	FailureCount      int `json:"failure_count"`
}

// WorkflowRunLog is one row of a workflow run's history: one row per step
// visit plus one run-level row with a nil StepID, all sharing a RunID.
type WorkflowRunLog struct {
	ID          string     `json:"id"`
	WorkflowID  string     `json:"workflow_id"`
	RunID       string     `json:"run_id"`
	StepID      *string    `json:"step_id,omitempty"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
	Result      *RunResult `json:"result,omitempty"`
}

// IsRunLevel reports whether the row represents the overall run.
func (l *WorkflowRunLog) IsRunLevel() bool {
	return l.StepID == nil
}

// TaskRunLog records one automation-task execution against one account.
type TaskRunLog struct {
	ID          string     `json:"id"`
	TaskID      string     `json:"task_id"`
	AccountID   string     `json:"account_id"`
	ActionType  ActionType `json:"action_type"`
	Target      string     `json:"target"`
	Status      RunStatus  `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// AlertSeverity grades a monitoring alert.
type AlertSeverity string

const (
	SeverityInfo     AlertSeverity = "info"
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// AlertKind names the account transition that raised an alert.
type AlertKind string

const (
	AlertLoginLost    AlertKind = "login_lost"
	AlertLocked       AlertKind = "locked"
	AlertSuspended    AlertKind = "suspended"
	AlertShadowBanned AlertKind = "shadow_banned"
)

// Alert is one monitoring-detected account transition.
type Alert struct {
	ID        string        `json:"id"`
	AccountID string        `json:"account_id"`
	Kind      AlertKind     `json:"kind"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"created_at"`
}
