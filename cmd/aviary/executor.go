package main

import (
	"context"
	"log/slog"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/protocol"
)

// logExecutor stands in until the embedding application supplies a real
// session-backed executor. It logs each action and reports success, with
// status checks echoing the account's stored status.
type logExecutor struct {
	logger *slog.Logger
}

func newLogExecutor(logger *slog.Logger) *logExecutor {
	return &logExecutor{logger: logger.With("module", "log_executor")}
}

func (e *logExecutor) Perform(ctx context.Context, account *models.Account, actionType models.ActionType, target string) (protocol.Result, error) {
	e.logger.InfoContext(ctx, "Performing action",
		"account_id", account.ID,
		"handle", account.Handle,
		"action_type", actionType,
		"target", target,
	)

	result := protocol.Result{Success: true}

	if actionType == models.ActionTypeCheckStatus {
		result.Status = account.Status
		if result.Status == "" {
			result.Status = models.AccountStatusUnknown
		}
	}

	return result, nil
}

// logNotifier logs notifications instead of delivering them.
type logNotifier struct {
	logger *slog.Logger
}

func newLogNotifier(logger *slog.Logger) *logNotifier {
	return &logNotifier{logger: logger.With("module", "log_notifier")}
}

func (n *logNotifier) Notify(ctx context.Context, title, message string) {
	n.logger.InfoContext(ctx, "Notification", "title", title, "message", message)
}
