// Package events defines event types and structures for run lifecycle
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/aviary-sh/aviary/pkg/models"
)

type EventType string

const Topic = "aviary.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Automation task events.
	TaskRunFinishedEvent EventType = "task.run.finished"

	// Workflow run lifecycle events.
	WorkflowRunStartedEvent  EventType = "workflow.run.started"
	WorkflowRunFinishedEvent EventType = "workflow.run.finished"
	WorkflowRunFailedEvent   EventType = "workflow.run.failed"

	// Monitoring events.
	AccountStatusChangedEvent EventType = "account.status.changed"
	AlertRaisedEvent          EventType = "alert.raised"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBaseEvent(eventType EventType) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
	}
}

type TaskRunFinished struct {
	BaseEvent

	TaskID     string            `json:"task_id"`
	AccountID  string            `json:"account_id"`
	ActionType models.ActionType `json:"action_type"`
	Success    bool              `json:"success"`
	Error      string            `json:"error,omitempty"`
}

func (e TaskRunFinished) GetType() EventType {
	return TaskRunFinishedEvent
}

type WorkflowRunStarted struct {
	BaseEvent

	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
}

func (e WorkflowRunStarted) GetType() EventType {
	return WorkflowRunStartedEvent
}

type WorkflowRunFinished struct {
	BaseEvent

	WorkflowID string           `json:"workflow_id"`
	RunID      string           `json:"run_id"`
	Result     models.RunResult `json:"result"`
	Duration   time.Duration    `json:"duration"`
}

func (e WorkflowRunFinished) GetType() EventType {
	return WorkflowRunFinishedEvent
}

type WorkflowRunFailed struct {
	BaseEvent

	WorkflowID string        `json:"workflow_id"`
	RunID      string        `json:"run_id"`
	Error      string        `json:"error"`
	Duration   time.Duration `json:"duration"`
}

func (e WorkflowRunFailed) GetType() EventType {
	return WorkflowRunFailedEvent
}

type AccountStatusChanged struct {
	BaseEvent

	AccountID string               `json:"account_id"`
	Previous  models.AccountStatus `json:"previous"`
	Current   models.AccountStatus `json:"current"`
}

func (e AccountStatusChanged) GetType() EventType {
	return AccountStatusChangedEvent
}

type AlertRaised struct {
	BaseEvent

	AlertID   string               `json:"alert_id"`
	AccountID string               `json:"account_id"`
	Kind      models.AlertKind     `json:"kind"`
	Severity  models.AlertSeverity `json:"severity"`
	Message   string               `json:"message"`
}

func (e AlertRaised) GetType() EventType {
	return AlertRaisedEvent
}
