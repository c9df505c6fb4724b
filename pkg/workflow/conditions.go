package workflow

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/aviary-sh/aviary/pkg/models"
)

// evaluateCondition runs a condition step's predicate. The result picks
// the branch to follow; an unknown predicate evaluates to false.
func (i *interpreter) evaluateCondition(ctx context.Context, step *models.WorkflowStep, logger *slog.Logger) bool {
	cfg := step.ConditionConfig()

	switch cfg.ConditionType {
	case models.ConditionTimeRange:
		return inTimeRange(cfg, i.runner.now())
	case models.ConditionRandomChance:
		return i.runner.randFloat() < cfg.Probability
	case models.ConditionAccountStatus:
		return i.execCtx.AnyCheckedWithStatus(cfg.Status)
	case models.ConditionActionCount:
		executed := i.execCtx.Result.ActionsExecuted
		if executed < cfg.MinActions {
			return false
		}

		return cfg.MaxActions < 0 || executed <= cfg.MaxActions
	case models.ConditionHasProxy:
		id, ok := i.execCtx.Loop.CurrentAccountID()
		if !ok {
			return false
		}

		account, err := i.runner.repository.AccountByID(ctx, id)
		if err != nil {
			logger.Warn("Loop account not found for has_proxy condition", "account_id", id)

			return false
		}

		return account.HasProxy()
	default:
		logger.Warn("Unknown condition type, evaluating to false", "condition_type", cfg.ConditionType)

		return false
	}
}

// inTimeRange checks the current local hour against [StartHour, EndHour]
// and, when a weekday list is configured, the current weekday against it.
func inTimeRange(cfg models.ConditionStepConfig, now time.Time) bool {
	hour := now.Hour()
	if hour < cfg.StartHour || hour > cfg.EndHour {
		return false
	}

	if len(cfg.Weekdays) == 0 {
		return true
	}

	return slices.Contains(cfg.Weekdays, int(now.Weekday()))
}

func randomFloat() float64 {
	return rand.Float64()
}
