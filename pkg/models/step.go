package models

// StepType identifies the kind of node a workflow step is.
type StepType string

const (
	StepTypeAction    StepType = "action"
	StepTypeCondition StepType = "condition"
	StepTypeDelay     StepType = "delay"
	StepTypeLoop      StepType = "loop"
	StepTypeParallel  StepType = "parallel"
)

// ConditionType identifies the predicate a condition step evaluates.
type ConditionType string

const (
	ConditionTimeRange     ConditionType = "time_range"
	ConditionRandomChance  ConditionType = "random_chance"
	ConditionAccountStatus ConditionType = "account_status"
	ConditionActionCount   ConditionType = "action_count"
	ConditionHasProxy      ConditionType = "has_proxy"
)

// WorkflowStep is one node in a workflow's graph. Order defines the
// default linear sequence; OnSuccess/OnFailure override it when a branch
// fires. Branch pointers referencing steps outside the workflow degrade
// to sequential advance rather than failing the run.
type WorkflowStep struct {
	ID         string         `json:"id"`
	WorkflowID string         `json:"workflow_id" validate:"required"`
	Order      int            `json:"order"`
	Type       StepType       `json:"type"        validate:"required"`
	Config     map[string]any `json:"config"`
	OnSuccess  *string        `json:"on_success,omitempty"`
	OnFailure  *string        `json:"on_failure,omitempty"`
}

// ActionStepConfig is the decoded configuration of an action step.
type ActionStepConfig struct {
	ActionType ActionType
	Keyword    string
	Hashtag    string
	URL        string
	Count      int
	AccountIDs []string
	Message    string
}

// ConditionStepConfig is the decoded configuration of a condition step.
type ConditionStepConfig struct {
	ConditionType ConditionType
	StartHour     int
	EndHour       int
	Weekdays      []int
	Probability   float64
	Status        AccountStatus
	MinActions    int
	MaxActions    int
}

// DelayStepConfig is the decoded configuration of a delay step.
type DelayStepConfig struct {
	Minutes int
	Seconds int
}

// LoopStepConfig is the decoded configuration of a loop step.
type LoopStepConfig struct {
	AccountIDs []string
}

// ActionConfig decodes the step's config map for an action step.
func (s *WorkflowStep) ActionConfig() ActionStepConfig {
	cfg := ActionStepConfig{Count: 1}

	if v, ok := s.Config["action_type"].(string); ok {
		cfg.ActionType = ActionType(v)
	}

	cfg.Keyword, _ = s.Config["keyword"].(string)
	cfg.Hashtag, _ = s.Config["hashtag"].(string)
	cfg.URL, _ = s.Config["url"].(string)
	cfg.Message, _ = s.Config["message"].(string)

	if v, ok := configInt(s.Config["count"]); ok && v > 0 {
		cfg.Count = v
	}

	cfg.AccountIDs = configStrings(s.Config["account_ids"])

	return cfg
}

// ConditionConfig decodes the step's config map for a condition step.
func (s *WorkflowStep) ConditionConfig() ConditionStepConfig {
	cfg := ConditionStepConfig{EndHour: 23, MaxActions: -1}

	if v, ok := s.Config["condition_type"].(string); ok {
		cfg.ConditionType = ConditionType(v)
	}

	if v, ok := configInt(s.Config["start_hour"]); ok {
		cfg.StartHour = v
	}

	if v, ok := configInt(s.Config["end_hour"]); ok {
		cfg.EndHour = v
	}

	for _, d := range configStrings(s.Config["weekdays"]) {
		if day, ok := weekdayNumber(d); ok {
			cfg.Weekdays = append(cfg.Weekdays, day)
		}
	}

	if raw, ok := s.Config["weekdays"].([]any); ok {
		for _, d := range raw {
			if day, ok := configInt(d); ok {
				cfg.Weekdays = append(cfg.Weekdays, day)
			}
		}
	}

	if v, ok := s.Config["probability"].(float64); ok {
		cfg.Probability = v
	}

	if v, ok := s.Config["status"].(string); ok {
		cfg.Status = AccountStatus(v)
	}

	if v, ok := configInt(s.Config["min_actions"]); ok {
		cfg.MinActions = v
	}

	if v, ok := configInt(s.Config["max_actions"]); ok {
		cfg.MaxActions = v
	}

	return cfg
}

// DelayConfig decodes the step's config map for a delay step.
func (s *WorkflowStep) DelayConfig() DelayStepConfig {
	cfg := DelayStepConfig{}

	if v, ok := configInt(s.Config["delay_minutes"]); ok {
		cfg.Minutes = v
	}

	if v, ok := configInt(s.Config["delay_seconds"]); ok {
		cfg.Seconds = v
	}

	return cfg
}

// LoopConfig decodes the step's config map for a loop step.
func (s *WorkflowStep) LoopConfig() LoopStepConfig {
	return LoopStepConfig{AccountIDs: configStrings(s.Config["account_ids"])}
}

// configInt reads an integer from a decoded-JSON config value, where
// numbers arrive as float64.
func configInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

func configStrings(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]string); ok {
			return typed
		}

		return nil
	}

	out := make([]string, 0, len(raw))

	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}

	return out
}

func weekdayNumber(name string) (int, bool) {
	days := map[string]int{
		"sunday": 0, "monday": 1, "tuesday": 2, "wednesday": 3,
		"thursday": 4, "friday": 5, "saturday": 6,
	}
	day, ok := days[name]

	return day, ok
}
