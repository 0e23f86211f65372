package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/taskcycle/database"
	domain "github.com/example/taskcycle/domain/task"
	"github.com/example/taskcycle/events"
	"github.com/example/taskcycle/modules/auth"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// RedisConfig enables the task cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
	TTL      time.Duration
}

// Config configures the task module.
type Config struct {
	DBPath          string
	DBDebug         bool
	MaxCatchUpSteps int
	Redis           RedisConfig
}

// TaskModule owns task storage and the cycle use cases.
type TaskModule struct {
	cfg      Config
	logger   types.Logger
	db       *gorm.DB
	redis    *redis.Client
	cache    *TaskCache
	service  *TaskService
	users    UserLookup
	eventBus mono.EventBus
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.DependentModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.EventConsumerModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a new TaskModule.
func NewModule(cfg Config, logger types.Logger) *TaskModule {
	return &TaskModule{
		cfg:    cfg,
		logger: logger.WithModule("task"),
	}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) Dependencies() []string {
	return []string{"auth"}
}

func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.users = auth.NewAuthAdapter(container)
	}
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.TaskStateChangedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.UserDeletedV1, m.handleUserDeleted, m); err != nil {
		return fmt.Errorf("failed to register UserDeleted consumer: %w", err)
	}
	m.logger.Info("Registered event consumers", "events", "UserDeleted")
	return nil
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "next-task", json.Unmarshal, json.Marshal, m.nextTask,
	); err != nil {
		return fmt.Errorf("failed to register next-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "advance-task", json.Unmarshal, json.Marshal, m.advanceTask,
	); err != nil {
		return fmt.Errorf("failed to register advance-task service: %w", err)
	}

	m.logger.Info("Registered services",
		"services", "create-task, get-task, list-tasks, update-task, delete-task, next-task, advance-task")
	return nil
}

func (m *TaskModule) Start(ctx context.Context) error {
	if m.users == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.eventBus == nil {
		m.logger.Warn("Event bus not set, events will not be published")
	}

	db, err := database.Open(m.cfg.DBPath, m.cfg.DBDebug, &domain.Task{})
	if err != nil {
		return err
	}
	m.db = db

	if m.cfg.Redis.Addr != "" {
		m.redis = redis.NewClient(&redis.Options{
			Addr:     m.cfg.Redis.Addr,
			Password: m.cfg.Redis.Password,
			DB:       m.cfg.Redis.DB,
		})
		cache := NewTaskCache(m.redis, m.cfg.Redis.Prefix, m.cfg.Redis.TTL)
		if err := cache.Ping(ctx); err != nil {
			// reads fall through to SQLite
			m.logger.WithError(err).Warn("Redis unavailable, task cache disabled", "addr", m.cfg.Redis.Addr)
			_ = m.redis.Close()
			m.redis = nil
		} else {
			m.cache = cache
		}
	}

	m.service = NewTaskService(NewTaskRepository(db), m.cache, m.users, m.logger, ServiceConfig{
		MaxCatchUpSteps: m.cfg.MaxCatchUpSteps,
	})

	m.logger.Info("Module started",
		"database", m.cfg.DBPath,
		"cache", m.cache != nil,
		"max_catch_up_steps", m.cfg.MaxCatchUpSteps)
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.WithError(err).Warn("Failed to close Redis client")
		}
	}
	if err := database.Close(m.db); err != nil {
		m.logger.WithError(err).Warn("Failed to close database")
	}
	m.logger.Info("Module stopped")
	return nil
}

func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{Healthy: false, Message: "database not initialized"}
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("failed to get database connection: %v", err)}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{Healthy: false, Message: fmt.Sprintf("database ping failed: %v", err)}
	}

	details := map[string]any{
		"database": m.cfg.DBPath,
		"cache":    m.cache != nil,
	}
	if m.cache != nil {
		details["cache_stats"] = m.service.CacheStats()
		if err := m.cache.Ping(ctx); err != nil {
			// degraded, not down: reads still work without the cache
			details["cache_error"] = err.Error()
		}
	}
	return mono.HealthStatus{Healthy: true, Message: "operational", Details: details}
}
