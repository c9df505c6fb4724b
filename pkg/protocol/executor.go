// Package protocol defines the interfaces this subsystem consumes from the
// surrounding application.
package protocol

import (
	"context"

	"github.com/aviary-sh/aviary/pkg/models"
)

// Result is the outcome of one executor invocation. For check_status the
// observed status is carried alongside success.
type Result struct {
	Success bool
	Message string
	Status  models.AccountStatus
}

// ActionExecutor performs a concrete action against a live account
// session. Implementations own all session lifecycle; this subsystem
// never touches a browser.
type ActionExecutor interface {
	Perform(ctx context.Context, account *models.Account, actionType models.ActionType, target string) (Result, error)
}

// Notifier delivers a desktop or external notification. Fire-and-forget:
// it never fails the calling step.
type Notifier interface {
	Notify(ctx context.Context, title, message string)
}
