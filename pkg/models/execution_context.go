package models

// LoopState tracks one active loop inside a run: the materialized account
// list being iterated and the cursor into it.
type LoopState struct {
	StepID     string
	AccountIDs []string
	Cursor     int
	Active     bool
}

// CurrentAccountID returns the account the loop currently points at.
func (l *LoopState) CurrentAccountID() (string, bool) {
	if !l.Active || l.Cursor < 0 || l.Cursor >= len(l.AccountIDs) {
		return "", false
	}

	return l.AccountIDs[l.Cursor], true
}

// Exhausted reports whether the cursor ran past the materialized list.
func (l *LoopState) Exhausted() bool {
	return l.Cursor >= len(l.AccountIDs)
}

// ExecutionContext is the ephemeral state of one workflow run. It is owned
// by the run that created it and discarded at run end; nothing here is
// persisted beyond the log rows the run produces.
type ExecutionContext struct {
	RunID      string
	WorkflowID string

	Result RunResult
	Loop   LoopState

	// CheckedAccounts holds the statuses a check_status action observed,
	// keyed by account id, for later condition steps to read.
	CheckedAccounts map[string]AccountStatus
}

// NewExecutionContext creates a fresh context for one run.
func NewExecutionContext(runID, workflowID string) *ExecutionContext {
	return &ExecutionContext{
		RunID:           runID,
		WorkflowID:      workflowID,
		CheckedAccounts: make(map[string]AccountStatus),
	}
}

// RecordCheck stores a check_status finding for condition steps.
func (c *ExecutionContext) RecordCheck(accountID string, status AccountStatus) {
	c.CheckedAccounts[accountID] = status
}

// AnyCheckedWithStatus reports whether any context-tracked account
// currently has the expected status.
func (c *ExecutionContext) AnyCheckedWithStatus(status AccountStatus) bool {
	for _, s := range c.CheckedAccounts {
		if s == status {
			return true
		}
	}

	return false
}
