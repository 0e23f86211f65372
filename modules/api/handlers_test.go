package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/example/taskcycle/domain/task"
	userdomain "github.com/example/taskcycle/domain/user"
	"github.com/example/taskcycle/modules/activity"
	"github.com/example/taskcycle/modules/auth"
	"github.com/example/taskcycle/modules/task"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	app      *fiber.App
	auth     *mockAuthPort
	tasks    *mockTaskPort
	activity *mockActivityPort
}

func newTestServer(t *testing.T, perms ...userdomain.Permission) *testServer {
	t.Helper()
	if len(perms) == 0 {
		perms = userdomain.DefaultPermissions()
	}

	s := &testServer{
		auth: &mockAuthPort{
			validateTokenFunc: func(_ context.Context, token string) (*userdomain.Claims, error) {
				if token != "good" {
					return nil, errors.New("invalid token")
				}
				return &userdomain.Claims{UserID: "alice", Username: "alice_01", Permissions: perms}, nil
			},
		},
		tasks:    &mockTaskPort{},
		activity: &mockActivityPort{},
	}
	handlers := NewHandlers(nil, s.auth, s.tasks, s.activity, &mockLogger{})
	handlers.now = func() time.Time { return base }

	s.app = newApp()
	registerProtected(s.app.Group("/api/v1"), s.auth, handlers)
	return s
}

func (s *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer good")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func sampleTask(id string) *domain.Task {
	next := base.Add(time.Minute)
	return &domain.Task{
		ID:           id,
		UserID:       "alice",
		Title:        "Stretch",
		StartTime:    base,
		EndTime:      base.Add(time.Hour),
		WorkInterval: domain.Seconds(60),
		Active:       true,
		Time:         &next,
		State:        domain.StateWork,
	}
}

func TestHandlers_CreateTask(t *testing.T) {
	s := newTestServer(t)
	var got task.TaskInput
	s.tasks.createFunc = func(_ context.Context, userID string, in task.TaskInput) (*domain.Task, error) {
		assert.Equal(t, "alice", userID)
		got = in
		return sampleTask("t1"), nil
	}

	resp, body := s.do(t, "POST", "/api/v1/tasks", map[string]any{
		"title":         "Stretch",
		"start_time":    base.Format(time.RFC3339),
		"end_time":      base.Add(time.Hour).Format(time.RFC3339),
		"work_interval": 60,
		"active":        true,
	})

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/api/v1/tasks/t1", resp.Header.Get("Location"))
	assert.Equal(t, "Stretch", got.Title)
	assert.True(t, got.StartTime.Equal(base))
	require.NotNil(t, got.WorkInterval)
	assert.Equal(t, 60, *got.WorkInterval)

	var out TaskResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "WORK", out.State)
	assert.Equal(t, 60, out.WorkInterval)
}

func TestHandlers_CreateTaskInvalid(t *testing.T) {
	s := newTestServer(t)
	s.tasks.createFunc = func(context.Context, string, task.TaskInput) (*domain.Task, error) {
		return nil, fmt.Errorf("create-task request failed: %w", fmt.Errorf("%w: title is required", domain.ErrInvalidTask))
	}

	resp, body := s.do(t, "POST", "/api/v1/tasks", map[string]any{"title": ""})

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var out ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "invalid task: title is required", out.Message)
}

func TestHandlers_CreateTaskForbiddenWithoutWrite(t *testing.T) {
	s := newTestServer(t, userdomain.PermissionTasksRead)

	resp, _ := s.do(t, "POST", "/api/v1/tasks", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	s.tasks.listFunc = func(context.Context, string) ([]domain.Task, string, error) {
		return nil, "", nil
	}
	resp, _ = s.do(t, "GET", "/api/v1/tasks", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandlers_Unauthenticated(t *testing.T) {
	s := newTestServer(t)
	resp, err := s.app.Test(httptest.NewRequest("GET", "/api/v1/tasks", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandlers_ListTasks(t *testing.T) {
	s := newTestServer(t)
	s.tasks.listFunc = func(_ context.Context, userID string) ([]domain.Task, string, error) {
		return []domain.Task{*sampleTask("t1"), *sampleTask("t2")}, "t2", nil
	}

	resp, body := s.do(t, "GET", "/api/v1/tasks", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var out TaskListResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Tasks, 2)
	assert.Equal(t, "t2", out.NextTaskID)
}

func TestHandlers_GetTaskErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errors.New("get-task request failed: task not found"), http.StatusNotFound},
		{"internal", errors.New("get-task request failed: database is locked"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			s.tasks.getFunc = func(context.Context, string, string) (*domain.Task, error) {
				return nil, tt.err
			}

			resp, body := s.do(t, "GET", "/api/v1/tasks/t1", nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.NotContains(t, string(body), "database is locked")
		})
	}
}

func TestHandlers_NextTask(t *testing.T) {
	s := newTestServer(t)
	var gotAfter time.Time
	s.tasks.nextFunc = func(_ context.Context, _ string, after time.Time) (*domain.Task, error) {
		gotAfter = after
		if after.After(base) {
			return nil, errors.New("next-task request failed: no upcoming task for user 'alice'")
		}
		return sampleTask("t1"), nil
	}

	resp, _ := s.do(t, "GET", "/api/v1/tasks/next", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, gotAfter.Equal(base), "after defaults to now")

	resp, body := s.do(t, "GET", fmt.Sprintf("/api/v1/tasks/next?after=%d", base.Add(time.Hour).Unix()), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "no upcoming task for user 'alice'")
	assert.True(t, gotAfter.Equal(base.Add(time.Hour)))

	resp, _ = s.do(t, "GET", "/api/v1/tasks/next?after=soon", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandlers_AdvanceTask(t *testing.T) {
	s := newTestServer(t)
	var gotAt *time.Time
	s.tasks.advanceFunc = func(_ context.Context, _, taskID string, at *time.Time) (*domain.Task, bool, error) {
		gotAt = at
		return sampleTask(taskID), true, nil
	}

	resp, body := s.do(t, "POST", fmt.Sprintf("/api/v1/tasks/t9/advance?at=%d", base.Unix()), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, gotAt)
	assert.True(t, gotAt.Equal(base))

	var out AdvanceResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Changed)
	assert.Equal(t, "t9", out.Task.ID)
}

func TestHandlers_UpdateAndDeleteTask(t *testing.T) {
	s := newTestServer(t)
	s.tasks.updateFunc = func(_ context.Context, _, taskID string, in task.TaskInput) (*domain.Task, error) {
		out := sampleTask(taskID)
		out.Title = in.Title
		return out, nil
	}
	s.tasks.deleteFunc = func(_ context.Context, _, taskID string) error {
		if taskID != "t1" {
			return errors.New("delete-task request failed: task not found")
		}
		return nil
	}

	resp, body := s.do(t, "PUT", "/api/v1/tasks/t1", map[string]any{"title": "Walk"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"Walk"`)

	resp, _ = s.do(t, "DELETE", "/api/v1/tasks/t1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = s.do(t, "DELETE", "/api/v1/tasks/t2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlers_Me(t *testing.T) {
	s := newTestServer(t)
	user := &userdomain.User{ID: "alice", Username: "alice_01", FullName: "Alice", PasswordHash: "secret-hash"}
	s.auth.getUserFunc = func(context.Context, string) (*userdomain.User, error) {
		return user, nil
	}
	var gotUpdate auth.UpdateUserRequest
	s.auth.updateUserFunc = func(_ context.Context, req auth.UpdateUserRequest) (*userdomain.User, error) {
		gotUpdate = req
		return user, nil
	}
	deleted := ""
	s.auth.deleteUserFunc = func(_ context.Context, userID string) error {
		deleted = userID
		return nil
	}

	resp, body := s.do(t, "GET", "/api/v1/me", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "alice_01")
	assert.NotContains(t, string(body), "secret-hash")

	resp, _ = s.do(t, "PUT", "/api/v1/me", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = s.do(t, "PUT", "/api/v1/me", map[string]any{"full_name": "Alice L"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "alice", gotUpdate.UserID)
	require.NotNil(t, gotUpdate.FullName)
	assert.Equal(t, "Alice L", *gotUpdate.FullName)
	assert.Nil(t, gotUpdate.Password)

	resp, _ = s.do(t, "DELETE", "/api/v1/me", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "alice", deleted)
}

func TestHandlers_UpdateMeValidation(t *testing.T) {
	s := newTestServer(t)
	s.auth.updateUserFunc = func(context.Context, auth.UpdateUserRequest) (*userdomain.User, error) {
		return nil, errors.New("update-user request failed: password must be 7 to 27 characters")
	}

	resp, body := s.do(t, "PUT", "/api/v1/me", map[string]any{"password": "short"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "password must be 7 to 27 characters")
}

func TestHandlers_Users(t *testing.T) {
	s := newTestServer(t)
	s.auth.listUsersFunc = func(context.Context) ([]userdomain.User, error) {
		return []userdomain.User{
			{ID: "alice", Username: "alice_01", PasswordHash: "h1"},
			{ID: "bob", Username: "bob_smith", PasswordHash: "h2"},
		}, nil
	}
	s.auth.getUserFunc = func(_ context.Context, userID string) (*userdomain.User, error) {
		return nil, errors.New("get-user request failed: user not found")
	}

	resp, body := s.do(t, "GET", "/api/v1/users", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out UserListResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Users, 2)
	assert.NotContains(t, string(body), "h1")

	resp, _ = s.do(t, "GET", "/api/v1/users/nobody", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandlers_Activity(t *testing.T) {
	s := newTestServer(t)
	var gotLimit int
	s.activity.listFunc = func(_ context.Context, userID string, limit int) ([]activity.Entry, error) {
		gotLimit = limit
		return []activity.Entry{{Kind: "task_created", TaskID: "t1", At: base}}, nil
	}

	resp, body := s.do(t, "GET", "/api/v1/activity", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, defaultActivityLimit, gotLimit)
	assert.Contains(t, string(body), "task_created")

	resp, _ = s.do(t, "GET", "/api/v1/activity?limit=5", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 5, gotLimit)

	resp, _ = s.do(t, "GET", "/api/v1/activity?limit=0", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNewModule(t *testing.T) {
	m := NewModule(Config{Port: 3000, RequestsPerSecond: 5, Burst: 10}, &mockLogger{})

	assert.Equal(t, "api", m.Name())
	assert.Equal(t, []string{"auth", "task", "activity"}, m.Dependencies())
	assert.Error(t, m.Start(context.Background()), "dependencies must be set")
	assert.False(t, m.Health(context.Background()).Healthy)
	assert.NoError(t, m.Stop(context.Background()))
}
