package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerType determines how a workflow starts.
type TriggerType string

const (
	TriggerTypeManual   TriggerType = "manual"
	TriggerTypeSchedule TriggerType = "schedule"
	TriggerTypeEvent    TriggerType = "event"
)

// ErrInvalidTrigger is returned when a trigger configuration cannot produce
// a next run time.
var ErrInvalidTrigger = errors.New("invalid trigger configuration")

// TriggerConfig carries the type-specific trigger settings. Schedule
// triggers use either IntervalMinutes or a 5-field cron expression; when
// both are set the cron expression wins. Event triggers name the stream
// they listen on.
type TriggerConfig struct {
	IntervalMinutes int    `json:"interval_minutes,omitempty"`
	CronExpression  string `json:"cron_expression,omitempty"`
	Stream          string `json:"stream,omitempty"`
}

// Workflow is a named, versionless automation graph executed step by step.
type Workflow struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"        validate:"required,min=3"`
	Description string        `json:"description"`
	Enabled     bool          `json:"enabled"`
	Trigger     TriggerType   `json:"trigger"     validate:"required"`
	Config      TriggerConfig `json:"config"`
	LastRunAt   *time.Time    `json:"last_run_at,omitempty"`
	NextRunAt   *time.Time    `json:"next_run_at,omitempty"`
	RunCount    int           `json:"run_count"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// IsDue reports whether a schedule-triggered workflow should run now.
func (w *Workflow) IsDue(now time.Time) bool {
	if !w.Enabled || w.Trigger != TriggerTypeSchedule {
		return false
	}

	return w.NextRunAt == nil || !w.NextRunAt.After(now)
}

// NextRun computes the next fire time from the trigger configuration.
func (w *Workflow) NextRun(now time.Time) (time.Time, error) {
	if w.Config.CronExpression != "" {
		parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

		schedule, err := parser.Parse(w.Config.CronExpression)
		if err != nil {
			return time.Time{}, err
		}

		return schedule.Next(now), nil
	}

	if w.Config.IntervalMinutes > 0 {
		return now.Add(time.Duration(w.Config.IntervalMinutes) * time.Minute), nil
	}

	return time.Time{}, ErrInvalidTrigger
}

// MarkRun records one completed run and recomputes NextRunAt while the
// workflow is still schedule-triggered and enabled.
func (w *Workflow) MarkRun(now time.Time) {
	w.LastRunAt = &now
	w.RunCount++
	w.UpdatedAt = now
	w.NextRunAt = nil

	if w.Enabled && w.Trigger == TriggerTypeSchedule {
		if next, err := w.NextRun(now); err == nil {
			w.NextRunAt = &next
		}
	}
}

// SetEnabled toggles the workflow. NextRunAt is non-nil only while enabled
// with a schedule trigger.
func (w *Workflow) SetEnabled(enabled bool, now time.Time) {
	w.Enabled = enabled
	w.UpdatedAt = now
	w.NextRunAt = nil

	if enabled && w.Trigger == TriggerTypeSchedule {
		if next, err := w.NextRun(now); err == nil {
			w.NextRunAt = &next
		}
	}
}

// Validate checks the trigger configuration is executable.
func (w *Workflow) Validate() error {
	switch w.Trigger {
	case TriggerTypeManual:
		return nil
	case TriggerTypeSchedule:
		if w.Config.CronExpression == "" && w.Config.IntervalMinutes <= 0 {
			return ErrInvalidTrigger
		}

		if w.Config.CronExpression != "" {
			parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
			if _, err := parser.Parse(w.Config.CronExpression); err != nil {
				return err
			}
		}

		return nil
	case TriggerTypeEvent:
		if w.Config.Stream == "" {
			return ErrInvalidTrigger
		}

		return nil
	default:
		return ErrInvalidTrigger
	}
}
