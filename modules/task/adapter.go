package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domain "github.com/example/taskcycle/domain/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// TaskPort is how the HTTP layer reaches the task module.
type TaskPort interface {
	CreateTask(ctx context.Context, userID string, in TaskInput) (*domain.Task, error)
	GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error)
	ListTasks(ctx context.Context, userID string) ([]domain.Task, string, error)
	UpdateTask(ctx context.Context, userID, taskID string, in TaskInput) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
	NextTask(ctx context.Context, userID string, after time.Time) (*domain.Task, error)
	AdvanceTask(ctx context.Context, userID, taskID string, at *time.Time) (*domain.Task, bool, error)
}

// TaskAdapter implements TaskPort using the service container.
type TaskAdapter struct {
	container mono.ServiceContainer
}

var _ TaskPort = (*TaskAdapter)(nil)

// NewTaskAdapter creates a new TaskAdapter.
func NewTaskAdapter(container mono.ServiceContainer) *TaskAdapter {
	return &TaskAdapter{container: container}
}

func call[Req, Resp any](ctx context.Context, container mono.ServiceContainer, service string, req *Req, resp *Resp) error {
	if err := helper.CallRequestReplyService(
		ctx,
		container,
		service,
		json.Marshal,
		json.Unmarshal,
		req,
		resp,
	); err != nil {
		return fmt.Errorf("%s request failed: %w", service, err)
	}
	return nil
}

func (a *TaskAdapter) CreateTask(ctx context.Context, userID string, in TaskInput) (*domain.Task, error) {
	req := CreateTaskRequest{UserID: userID, Task: in}
	var resp TaskResponse
	if err := call(ctx, a.container, "create-task", &req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(resp), nil
}

func (a *TaskAdapter) GetTask(ctx context.Context, userID, taskID string) (*domain.Task, error) {
	req := GetTaskRequest{UserID: userID, TaskID: taskID}
	var resp TaskResponse
	if err := call(ctx, a.container, "get-task", &req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(resp), nil
}

func (a *TaskAdapter) ListTasks(ctx context.Context, userID string) ([]domain.Task, string, error) {
	req := ListTasksRequest{UserID: userID}
	var resp ListTasksResponse
	if err := call(ctx, a.container, "list-tasks", &req, &resp); err != nil {
		return nil, "", err
	}
	tasks := make([]domain.Task, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		tasks = append(tasks, *fromTaskResponse(t))
	}
	return tasks, resp.NextTaskID, nil
}

func (a *TaskAdapter) UpdateTask(ctx context.Context, userID, taskID string, in TaskInput) (*domain.Task, error) {
	req := UpdateTaskRequest{UserID: userID, TaskID: taskID, Task: in}
	var resp TaskResponse
	if err := call(ctx, a.container, "update-task", &req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(resp), nil
}

func (a *TaskAdapter) DeleteTask(ctx context.Context, userID, taskID string) error {
	req := DeleteTaskRequest{UserID: userID, TaskID: taskID}
	var resp DeleteTaskResponse
	return call(ctx, a.container, "delete-task", &req, &resp)
}

func (a *TaskAdapter) NextTask(ctx context.Context, userID string, after time.Time) (*domain.Task, error) {
	req := NextTaskRequest{UserID: userID, After: after}
	var resp TaskResponse
	if err := call(ctx, a.container, "next-task", &req, &resp); err != nil {
		return nil, err
	}
	return fromTaskResponse(resp), nil
}

func (a *TaskAdapter) AdvanceTask(ctx context.Context, userID, taskID string, at *time.Time) (*domain.Task, bool, error) {
	req := AdvanceTaskRequest{UserID: userID, TaskID: taskID, At: at}
	var resp AdvanceTaskResponse
	if err := call(ctx, a.container, "advance-task", &req, &resp); err != nil {
		return nil, false, err
	}
	return fromTaskResponse(resp.Task), resp.Changed, nil
}
