package task

import (
	"context"
	"time"

	domain "github.com/example/taskcycle/domain/task"
	"github.com/example/taskcycle/events"
	"github.com/go-monolith/mono"
)

func (m *TaskModule) createTask(ctx context.Context, req CreateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Create(ctx, req.UserID, req.Task.toDomain())
	if err != nil {
		return TaskResponse{}, err
	}

	m.publish("TaskCreated", func() error {
		return events.TaskCreatedV1.Publish(m.eventBus, events.TaskCreatedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			Title:     t.Title,
			StartTime: t.StartTime,
			CreatedAt: t.CreatedAt,
		}, nil)
	})
	return toTaskResponse(t), nil
}

func (m *TaskModule) getTask(ctx context.Context, req GetTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, tr, err := m.service.Get(ctx, req.UserID, req.TaskID)
	if err != nil {
		return TaskResponse{}, err
	}
	m.publishTransition(t, tr)
	return toTaskResponse(t), nil
}

func (m *TaskModule) listTasks(ctx context.Context, req ListTasksRequest, _ *mono.Msg) (ListTasksResponse, error) {
	tasks, nextID, err := m.service.List(ctx, req.UserID)
	if err != nil {
		return ListTasksResponse{}, err
	}

	resp := ListTasksResponse{
		Tasks:      make([]TaskResponse, 0, len(tasks)),
		NextTaskID: nextID,
	}
	for i := range tasks {
		resp.Tasks = append(resp.Tasks, toTaskResponse(&tasks[i]))
	}
	return resp, nil
}

func (m *TaskModule) updateTask(ctx context.Context, req UpdateTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Update(ctx, req.UserID, req.TaskID, req.Task.toDomain())
	if err != nil {
		return TaskResponse{}, err
	}

	m.publish("TaskUpdated", func() error {
		return events.TaskUpdatedV1.Publish(m.eventBus, events.TaskUpdatedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			Title:     t.Title,
			Active:    t.Active,
			UpdatedAt: t.UpdatedAt,
		}, nil)
	})
	return toTaskResponse(t), nil
}

func (m *TaskModule) deleteTask(ctx context.Context, req DeleteTaskRequest, _ *mono.Msg) (DeleteTaskResponse, error) {
	t, err := m.service.Delete(ctx, req.UserID, req.TaskID)
	if err != nil {
		return DeleteTaskResponse{}, err
	}

	m.publish("TaskDeleted", func() error {
		return events.TaskDeletedV1.Publish(m.eventBus, events.TaskDeletedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			DeletedAt: time.Now().UTC(),
		}, nil)
	})
	return DeleteTaskResponse{Deleted: true}, nil
}

func (m *TaskModule) nextTask(ctx context.Context, req NextTaskRequest, _ *mono.Msg) (TaskResponse, error) {
	t, err := m.service.Next(ctx, req.UserID, req.After)
	if err != nil {
		return TaskResponse{}, err
	}
	return toTaskResponse(t), nil
}

func (m *TaskModule) advanceTask(ctx context.Context, req AdvanceTaskRequest, _ *mono.Msg) (AdvanceTaskResponse, error) {
	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	t, tr, err := m.service.Advance(ctx, req.UserID, req.TaskID, at)
	if err != nil {
		return AdvanceTaskResponse{}, err
	}
	m.publishTransition(t, tr)
	return AdvanceTaskResponse{Task: toTaskResponse(t), Changed: tr != nil}, nil
}

func (m *TaskModule) handleUserDeleted(ctx context.Context, event events.UserDeletedEvent, _ *mono.Msg) error {
	n, err := m.service.DeleteByUser(ctx, event.UserID)
	if err != nil {
		m.logger.WithError(err).Error("Failed to remove tasks of deleted user", "user_id", event.UserID)
		return err
	}
	m.logger.Info("Removed tasks of deleted user", "user_id", event.UserID, "count", n)
	return nil
}

func (m *TaskModule) publishTransition(t *domain.Task, tr *Transition) {
	if tr == nil {
		return
	}
	m.logger.Debug("Task state changed",
		"task_id", t.ID, "from", tr.From, "to", tr.To, "steps", tr.Steps)

	m.publish("TaskStateChanged", func() error {
		return events.TaskStateChangedV1.Publish(m.eventBus, events.TaskStateChangedEvent{
			TaskID:    t.ID,
			UserID:    t.UserID,
			From:      string(tr.From),
			To:        string(tr.To),
			NextTime:  tr.NextTime,
			Steps:     tr.Steps,
			ChangedAt: time.Now().UTC(),
		}, nil)
	})
}

// publish is best-effort: the write it reports has already committed.
func (m *TaskModule) publish(name string, fn func() error) {
	if m.eventBus == nil {
		return
	}
	if err := fn(); err != nil {
		m.logger.WithError(err).Warn("Failed to publish event", "event", name)
	}
}
