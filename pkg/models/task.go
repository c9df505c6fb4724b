package models

import "time"

// ActionType identifies a concrete action performed against a live session.
type ActionType string

const (
	ActionTypeLike             ActionType = "like"
	ActionTypeRepost           ActionType = "repost"
	ActionTypeFollow           ActionType = "follow"
	ActionTypeUnfollow         ActionType = "unfollow"
	ActionTypePost             ActionType = "post"
	ActionTypeCheckStatus      ActionType = "check_status"
	ActionTypeSendNotification ActionType = "send_notification"
)

// TargetType describes what an automation task acts against.
type TargetType string

const (
	TargetTypeKeyword  TargetType = "keyword"
	TargetTypeHashtag  TargetType = "hashtag"
	TargetTypeTimeline TargetType = "timeline"
	TargetTypeUserList TargetType = "user_list"
)

// Target is an automation task's target descriptor.
type Target struct {
	Type  TargetType `json:"type"  validate:"required"`
	Value string     `json:"value"`
}

// AutomationTask is a recurring single-action job: on every interval, one
// account from the set performs one action against the target.
type AutomationTask struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"             validate:"required,min=3"`
	ActionType      ActionType `json:"action_type"      validate:"required"`
	Enabled         bool       `json:"enabled"`
	AccountIDs      []string   `json:"account_ids"      validate:"required,min=1"`
	Target          Target     `json:"target"`
	IntervalMinutes int        `json:"interval_minutes" validate:"required,min=1"`
	DailyLimit      int        `json:"daily_limit"      validate:"min=0"`
	TodayCount      int        `json:"today_count"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	NextRunAt       *time.Time `json:"next_run_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsDue reports whether the task is eligible to execute at the given time.
// A nil NextRunAt on an enabled task means "run on the next tick".
func (t *AutomationTask) IsDue(now time.Time) bool {
	if !t.Enabled {
		return false
	}

	if t.QuotaExhausted() {
		return false
	}

	return t.NextRunAt == nil || !t.NextRunAt.After(now)
}

// QuotaExhausted reports whether the task hit its daily limit. A zero
// DailyLimit means unlimited.
func (t *AutomationTask) QuotaExhausted() bool {
	return t.DailyLimit > 0 && t.TodayCount >= t.DailyLimit
}

// MarkRun records one execution: LastRunAt and the next due time move
// forward unconditionally, TodayCount advances on success only.
func (t *AutomationTask) MarkRun(now time.Time, success bool) {
	t.LastRunAt = &now
	next := now.Add(time.Duration(t.IntervalMinutes) * time.Minute)
	t.NextRunAt = &next

	if success {
		t.TodayCount++
	}

	t.UpdatedAt = now
}

// SetEnabled toggles the task. NextRunAt is non-nil only while enabled.
func (t *AutomationTask) SetEnabled(enabled bool, now time.Time) {
	t.Enabled = enabled
	t.UpdatedAt = now

	if !enabled {
		t.NextRunAt = nil

		return
	}

	next := now.Add(time.Duration(t.IntervalMinutes) * time.Minute)
	t.NextRunAt = &next
}

// ResetDailyCount zeroes the quota counter at the local-midnight boundary.
func (t *AutomationTask) ResetDailyCount(now time.Time) {
	t.TodayCount = 0
	t.UpdatedAt = now
}
