package task

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/taskcycle/database"
	domain "github.com/example/taskcycle/domain/task"
	userdomain "github.com/example/taskcycle/domain/user"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

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

// fakeUsers resolves a fixed set of user IDs.
type fakeUsers map[string]bool

func (f fakeUsers) GetUser(_ context.Context, userID string) (*userdomain.User, error) {
	if !f[userID] {
		return nil, errors.New("user not found")
	}
	return &userdomain.User{ID: userID, Username: userID}, nil
}

// clock is a settable time source.
type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(":memory:", false, &domain.Task{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// setupFileDB opens a database file with a real connection pool, so
// concurrent callers do not share a single connection.
func setupFileDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "tasks.db"), false, &domain.Task{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newTestService(t *testing.T) (*TaskService, *TaskRepository, *clock) {
	t.Helper()
	repo := NewTaskRepository(setupTestDB(t))
	clk := &clock{now: base}
	svc := NewTaskService(repo, nil, fakeUsers{"alice": true, "bob": true}, &mockLogger{}, ServiceConfig{
		MaxCatchUpSteps: 64,
		Now:             clk.Now,
	})
	return svc, repo, clk
}

func sleepingInput(title string, start time.Time) domain.Task {
	return domain.Task{
		Title:         title,
		StartTime:     start,
		EndTime:       start.Add(2 * time.Minute),
		WorkInterval:  domain.Seconds(60),
		SleepInterval: domain.Seconds(30),
		Active:        true,
		Sleep:         true,
	}
}
