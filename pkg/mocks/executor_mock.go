// Package mocks provides testify mocks for the protocol interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/aviary-sh/aviary/pkg/models"
	"github.com/aviary-sh/aviary/pkg/protocol"
)

// MockActionExecutor is a mock implementation of protocol.ActionExecutor.
type MockActionExecutor struct {
	mock.Mock
}

func (m *MockActionExecutor) Perform(ctx context.Context, account *models.Account, actionType models.ActionType, target string) (protocol.Result, error) {
	args := m.Called(ctx, account, actionType, target)

	result, _ := args.Get(0).(protocol.Result)

	return result, args.Error(1)
}

// MockNotifier is a mock implementation of protocol.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, title, message string) {
	m.Called(ctx, title, message)
}
