package activity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/taskcycle/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// ActivityModule records task events per user and serves them back.
type ActivityModule struct {
	log    *Log
	logger types.Logger
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.ServiceProviderModule = (*ActivityModule)(nil)
var _ mono.HealthCheckableModule = (*ActivityModule)(nil)

// NewModule creates an ActivityModule keeping capacity entries per user.
func NewModule(capacity int, logger types.Logger) *ActivityModule {
	return &ActivityModule{
		log:    NewLog(capacity),
		logger: logger.WithModule("activity"),
	}
}

func (m *ActivityModule) Name() string {
	return "activity"
}

func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("Module started", "capacity", m.log.capacity)
	return nil
}

func (m *ActivityModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped")
	return nil
}

func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"users": m.log.Users()},
	}
}

func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskStateChangedV1, m.handleTaskStateChanged, m); err != nil {
		return fmt.Errorf("failed to register TaskStateChanged consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.UserDeletedV1, m.handleUserDeleted, m); err != nil {
		return fmt.Errorf("failed to register UserDeleted consumer: %w", err)
	}

	m.logger.Info("Registered event consumers",
		"events", "TaskCreated, TaskUpdated, TaskDeleted, TaskStateChanged, UserDeleted")
	return nil
}

func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "list-activity", json.Unmarshal, json.Marshal, m.listActivity,
	); err != nil {
		return fmt.Errorf("failed to register list-activity service: %w", err)
	}
	m.logger.Info("Registered services", "services", "list-activity")
	return nil
}

func (m *ActivityModule) listActivity(_ context.Context, req ListActivityRequest, _ *mono.Msg) (ListActivityResponse, error) {
	return ListActivityResponse{Entries: m.log.List(req.UserID, req.Limit)}, nil
}

func (m *ActivityModule) handleTaskCreated(_ context.Context, event events.TaskCreatedEvent, _ *mono.Msg) error {
	m.log.Record(event.UserID, Entry{
		Kind:    "task_created",
		TaskID:  event.TaskID,
		Message: fmt.Sprintf("Task '%s' created, first transition at %s", event.Title, event.StartTime.Format("2006-01-02 15:04:05")),
		At:      event.CreatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskUpdated(_ context.Context, event events.TaskUpdatedEvent, _ *mono.Msg) error {
	status := "active"
	if !event.Active {
		status = "inactive"
	}
	m.log.Record(event.UserID, Entry{
		Kind:    "task_updated",
		TaskID:  event.TaskID,
		Message: fmt.Sprintf("Task '%s' updated (%s)", event.Title, status),
		At:      event.UpdatedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, event events.TaskDeletedEvent, _ *mono.Msg) error {
	m.log.Record(event.UserID, Entry{
		Kind:    "task_deleted",
		TaskID:  event.TaskID,
		Message: fmt.Sprintf("Task %s deleted", event.TaskID),
		At:      event.DeletedAt,
	})
	return nil
}

func (m *ActivityModule) handleTaskStateChanged(_ context.Context, event events.TaskStateChangedEvent, _ *mono.Msg) error {
	m.log.Record(event.UserID, Entry{
		Kind:    "task_state_changed",
		TaskID:  event.TaskID,
		Message: fmt.Sprintf("%s -> %s, next transition at %s", event.From, event.To, event.NextTime.Format("2006-01-02 15:04:05")),
		At:      event.ChangedAt,
	})
	return nil
}

func (m *ActivityModule) handleUserDeleted(_ context.Context, event events.UserDeletedEvent, _ *mono.Msg) error {
	m.log.Forget(event.UserID)
	m.logger.Debug("Dropped activity of deleted user", "user_id", event.UserID)
	return nil
}
