package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aviary-sh/aviary/pkg/models"
)

// actionPause is the rate-limiting pause between consecutive executor
// calls when an action step targets more than one account.
const actionPause = 2 * time.Second

// interpreter walks one workflow's step graph for a single run. Steps
// live in an arena ordered by their Order field, with an index map from
// step id to arena position; branch targets resolve through the map and
// a dangling pointer degrades to sequential advance.
type interpreter struct {
	runner   *Runner
	workflow *models.Workflow
	arena    []*models.WorkflowStep
	index    map[string]int
	execCtx  *models.ExecutionContext
	logger   *slog.Logger
}

func newInterpreter(
	runner *Runner,
	workflow *models.Workflow,
	steps []*models.WorkflowStep,
	execCtx *models.ExecutionContext,
	logger *slog.Logger,
) *interpreter {
	index := make(map[string]int, len(steps))
	for pos, step := range steps {
		index[step.ID] = pos
	}

	return &interpreter{
		runner:   runner,
		workflow: workflow,
		arena:    steps,
		index:    index,
		execCtx:  execCtx,
		logger:   logger,
	}
}

// run executes steps from position 0 until the cursor runs past the end.
// The returned error covers log-row persistence failures only; a step's
// own failure is recorded and execution continues.
func (i *interpreter) run(ctx context.Context) error {
	pos := 0

	for pos >= 0 && pos < len(i.arena) {
		next, err := i.visit(ctx, pos)
		if err != nil {
			return err
		}

		pos = next
	}

	return nil
}

// visit executes the step at pos and returns the next arena position.
func (i *interpreter) visit(ctx context.Context, pos int) (int, error) {
	step := i.arena[pos]
	logger := i.logger.With("step_id", step.ID, "step_type", step.Type)
	now := i.runner.now()

	stepLog, err := i.runner.repository.StartWorkflowRunLog(ctx, i.workflow.ID, i.execCtx.RunID, &step.ID, now)
	if err != nil {
		return pos, err
	}

	logger.Info("Executing step")

	var (
		success bool
		next    int
		stepErr error
	)

	switch step.Type {
	case models.StepTypeAction:
		success, stepErr = i.executeAction(ctx, step, logger)
		next = i.branch(pos, step, success)
	case models.StepTypeCondition:
		success = i.evaluateCondition(ctx, step, logger)
		next = i.branch(pos, step, success)
	case models.StepTypeDelay:
		stepErr = i.executeDelay(ctx, step, logger)
		success = stepErr == nil
		next = pos + 1
	case models.StepTypeLoop:
		success, next = i.executeLoop(ctx, pos, step, logger)
	case models.StepTypeParallel:
		// Reserved for fan-out. Executes nothing and always succeeds.
		success = true
		next = pos + 1
	default:
		stepErr = fmt.Errorf("unknown step type %q", step.Type)
		success = false
		next = i.branch(pos, step, false)
	}

	status := models.RunStatusCompleted
	errMessage := ""

	if stepErr != nil {
		status = models.RunStatusFailed
		errMessage = stepErr.Error()

		// Action steps count their failures per account.
		if step.Type != models.StepTypeAction {
			i.execCtx.Result.FailureCount++
		}

		logger.Error("Step failed", "error", stepErr)
	}

	if err := i.runner.repository.FinishWorkflowRunLog(ctx, stepLog, status, errMessage, nil, i.runner.now()); err != nil {
		return pos, err
	}

	return next, nil
}

// branch resolves the step's OnSuccess/OnFailure pointer for the given
// outcome. A nil or dangling pointer falls through to pos+1.
func (i *interpreter) branch(pos int, step *models.WorkflowStep, success bool) int {
	var target *string
	if success {
		target = step.OnSuccess
	} else {
		target = step.OnFailure
	}

	if target == nil {
		return pos + 1
	}

	next, ok := i.index[*target]
	if !ok {
		i.logger.Warn("Branch target not found, continuing sequentially", "step_id", step.ID, "target", *target)

		return pos + 1
	}

	return next
}

// executeAction runs the step's action against each resolved account,
// repeating it Count times per account. Executor failures are counted,
// never fatal; the step as a whole fails only when every call failed.
func (i *interpreter) executeAction(ctx context.Context, step *models.WorkflowStep, logger *slog.Logger) (bool, error) {
	cfg := step.ActionConfig()

	if cfg.ActionType == models.ActionTypeSendNotification {
		if i.runner.notifier != nil {
			i.runner.notifier.Notify(ctx, i.workflow.Name, cfg.Message)
		}

		i.execCtx.Result.ActionsExecuted++
		i.execCtx.Result.SuccessCount++

		return true, nil
	}

	accounts, err := i.resolveAccounts(ctx, cfg)
	if err != nil {
		return false, err
	}

	if len(accounts) == 0 {
		logger.Warn("Action step resolved no accounts")

		return true, nil
	}

	target := actionTarget(cfg)
	succeeded := 0
	calls := 0

	var firstErr error

	for _, account := range accounts {
		i.execCtx.Result.AccountsProcessed++

		for rep := 0; rep < cfg.Count; rep++ {
			if calls > 0 {
				if err := i.runner.sleep(ctx, actionPause); err != nil {
					return false, err
				}
			}

			calls++

			result, err := i.runner.executor.Perform(ctx, account, cfg.ActionType, target)
			i.execCtx.Result.ActionsExecuted++

			if err != nil || !result.Success {
				i.execCtx.Result.FailureCount++

				if err != nil {
					if firstErr == nil {
						firstErr = err
					}

					logger.Error("Action failed", "account_id", account.ID, "error", err)
				} else {
					logger.Error("Action failed", "account_id", account.ID, "message", result.Message)
				}

				continue
			}

			i.execCtx.Result.SuccessCount++
			succeeded++

			if cfg.ActionType == models.ActionTypeCheckStatus {
				i.execCtx.RecordCheck(account.ID, result.Status)
			}
		}
	}

	if succeeded == 0 && firstErr != nil {
		return false, firstErr
	}

	return succeeded > 0, nil
}

// resolveAccounts picks the accounts an action step applies to: the
// current loop account while inside an active loop, else the configured
// allow-list, else every known account.
func (i *interpreter) resolveAccounts(ctx context.Context, cfg models.ActionStepConfig) ([]*models.Account, error) {
	if id, ok := i.execCtx.Loop.CurrentAccountID(); ok {
		account, err := i.runner.repository.AccountByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("loop account %s: %w", id, err)
		}

		return []*models.Account{account}, nil
	}

	if len(cfg.AccountIDs) > 0 {
		accounts := make([]*models.Account, 0, len(cfg.AccountIDs))

		for _, id := range cfg.AccountIDs {
			account, err := i.runner.repository.AccountByID(ctx, id)
			if err != nil {
				i.logger.Warn("Configured account not found, skipping", "account_id", id)

				continue
			}

			accounts = append(accounts, account)
		}

		return accounts, nil
	}

	return i.runner.repository.Accounts(ctx)
}

func (i *interpreter) executeDelay(ctx context.Context, step *models.WorkflowStep, logger *slog.Logger) error {
	cfg := step.DelayConfig()
	d := time.Duration(cfg.Minutes)*time.Minute + time.Duration(cfg.Seconds)*time.Second

	if d <= 0 {
		return nil
	}

	logger.Info("Delaying run", "duration", d)

	return i.runner.sleep(ctx, d)
}

// executeLoop materializes the iteration set on first visit and advances
// the cursor on every visit thereafter. While the set still has accounts
// the interpreter continues sequentially into the loop body; once the
// cursor runs off the end the loop state clears and control branches via
// OnSuccess.
func (i *interpreter) executeLoop(ctx context.Context, pos int, step *models.WorkflowStep, logger *slog.Logger) (bool, int) {
	loop := &i.execCtx.Loop

	if !loop.Active || loop.StepID != step.ID {
		accountIDs := step.LoopConfig().AccountIDs
		if len(accountIDs) == 0 {
			accountIDs = i.allAccountIDs(ctx)
		}

		*loop = models.LoopState{
			StepID:     step.ID,
			AccountIDs: accountIDs,
			Active:     true,
		}

		logger.Info("Loop started", "accounts", len(accountIDs))
	} else {
		loop.Cursor++
	}

	if loop.Exhausted() {
		logger.Info("Loop finished")

		*loop = models.LoopState{}

		return true, i.branch(pos, step, true)
	}

	return true, pos + 1
}

func (i *interpreter) allAccountIDs(ctx context.Context) []string {
	accounts, err := i.runner.repository.Accounts(ctx)
	if err != nil {
		i.logger.Error("Failed to list accounts for loop", "error", err)

		return nil
	}

	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.ID)
	}

	return ids
}
