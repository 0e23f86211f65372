package api

import (
	"context"
	"errors"
	"time"

	domain "github.com/example/taskcycle/domain/task"
	userdomain "github.com/example/taskcycle/domain/user"
	"github.com/example/taskcycle/modules/activity"
	"github.com/example/taskcycle/modules/auth"
	"github.com/example/taskcycle/modules/task"
	"github.com/go-monolith/mono/pkg/types"
)

var errNotImplemented = errors.New("not implemented")

// mockAuthPort implements auth.AuthPort for testing
type mockAuthPort struct {
	validateTokenFunc func(ctx context.Context, token string) (*userdomain.Claims, error)
	getUserFunc       func(ctx context.Context, userID string) (*userdomain.User, error)
	listUsersFunc     func(ctx context.Context) ([]userdomain.User, error)
	updateUserFunc    func(ctx context.Context, req auth.UpdateUserRequest) (*userdomain.User, error)
	deleteUserFunc    func(ctx context.Context, userID string) error
}

func (m *mockAuthPort) ValidateToken(ctx context.Context, token string) (*userdomain.Claims, error) {
	if m.validateTokenFunc != nil {
		return m.validateTokenFunc(ctx, token)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) GetUser(ctx context.Context, userID string) (*userdomain.User, error) {
	if m.getUserFunc != nil {
		return m.getUserFunc(ctx, userID)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) ListUsers(ctx context.Context) ([]userdomain.User, error) {
	if m.listUsersFunc != nil {
		return m.listUsersFunc(ctx)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) UpdateUser(ctx context.Context, req auth.UpdateUserRequest) (*userdomain.User, error) {
	if m.updateUserFunc != nil {
		return m.updateUserFunc(ctx, req)
	}
	return nil, errNotImplemented
}

func (m *mockAuthPort) DeleteUser(ctx context.Context, userID string) error {
	if m.deleteUserFunc != nil {
		return m.deleteUserFunc(ctx, userID)
	}
	return errNotImplemented
}

// mockTaskPort implements task.TaskPort for testing
type mockTaskPort struct {
	createFunc  func(ctx context.Context, userID string, in task.TaskInput) (*domain.Task, error)
	getFunc     func(ctx context.Context, userID, taskID string) (*domain.Task, error)
	listFunc    func(ctx context.Context, userID string) ([]domain.Task, string, error)
	updateFunc  func(ctx context.Context, userID, taskID string, in task.TaskInput) (*domain.Task, error)
	deleteFunc  func(ctx context.Context, userID, taskID string) error
	nextFunc    func(ctx context.Context, userID string, after time.Time) (*domain.Task, error)
	advanceFunc func(ctx context.Context, userID, taskID string, at *time.Time) (*domain.Task, bool, error)
}

func (m *mockTaskPort) CreateTask(ctx context.Context, userID string, in task.TaskInput) (*domain.Task, error) {
	if m.createFunc != nil {
		return m.createFunc(ctx, userID, in)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, userID, taskID)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) ListTasks(ctx context.Context, userID string) ([]domain.Task, string, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID)
	}
	return nil, "", errNotImplemented
}

func (m *mockTaskPort) UpdateTask(ctx context.Context, userID, taskID string, in task.TaskInput) (*domain.Task, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, userID, taskID, in)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) DeleteTask(ctx context.Context, userID, taskID string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, userID, taskID)
	}
	return errNotImplemented
}

func (m *mockTaskPort) NextTask(ctx context.Context, userID string, after time.Time) (*domain.Task, error) {
	if m.nextFunc != nil {
		return m.nextFunc(ctx, userID, after)
	}
	return nil, errNotImplemented
}

func (m *mockTaskPort) AdvanceTask(ctx context.Context, userID, taskID string, at *time.Time) (*domain.Task, bool, error) {
	if m.advanceFunc != nil {
		return m.advanceFunc(ctx, userID, taskID, at)
	}
	return nil, false, errNotImplemented
}

// mockActivityPort implements activity.ActivityPort for testing
type mockActivityPort struct {
	listFunc func(ctx context.Context, userID string, limit int) ([]activity.Entry, error)
}

func (m *mockActivityPort) ListActivity(ctx context.Context, userID string, limit int) ([]activity.Entry, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, userID, limit)
	}
	return nil, errNotImplemented
}

// mockLogger implements types.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any) {}
func (m *mockLogger) Info(_ string, _ ...any)  {}
func (m *mockLogger) Warn(_ string, _ ...any)  {}
func (m *mockLogger) Error(_ string, _ ...any) {}
func (m *mockLogger) With(_ ...any) types.Logger {
	return m
}
func (m *mockLogger) WithModule(_ string) types.Logger {
	return m
}
func (m *mockLogger) WithError(_ error) types.Logger {
	return m
}
