package api

import (
	"context"
	"fmt"
	"time"

	userdomain "github.com/example/taskcycle/domain/user"
	"github.com/example/taskcycle/modules/activity"
	"github.com/example/taskcycle/modules/auth"
	"github.com/example/taskcycle/modules/task"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Config configures the HTTP server.
type Config struct {
	Port              int
	RequestsPerSecond float64
	Burst             int
}

// APIModule is the HTTP API module.
type APIModule struct {
	cfg             Config
	logger          types.Logger
	app             *fiber.App
	authContainer   mono.ServiceContainer
	authAdapter     auth.AuthPort
	taskAdapter     task.TaskPort
	activityAdapter activity.ActivityPort
	limiter         *IPRateLimiter
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule(cfg Config, logger types.Logger) *APIModule {
	return &APIModule{
		cfg:     cfg,
		logger:  logger.WithModule("api"),
		limiter: NewIPRateLimiter(cfg.RequestsPerSecond, cfg.Burst, 10*time.Minute),
	}
}

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Dependencies returns the list of module dependencies.
func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task", "activity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.authContainer = container
		m.authAdapter = auth.NewAuthAdapter(container)
	case "task":
		m.taskAdapter = task.NewTaskAdapter(container)
	case "activity":
		m.activityAdapter = activity.NewActivityAdapter(container)
	}
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authContainer == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.taskAdapter == nil {
		return fmt.Errorf("task dependency not set")
	}
	if m.activityAdapter == nil {
		return fmt.Errorf("activity dependency not set")
	}

	m.app = newApp()
	m.setupRoutes(NewHandlers(m.authContainer, m.authAdapter, m.taskAdapter, m.activityAdapter, m.logger))

	addr := fmt.Sprintf(":%d", m.cfg.Port)
	go func() {
		if err := m.app.Listen(addr); err != nil {
			m.logger.WithError(err).Error("HTTP server error")
		}
	}()

	m.logger.Info("HTTP server started", "addr", addr)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	m.logger.Info("Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status of the module.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":         m.cfg.Port,
			"rate_clients": m.limiter.Size(),
			"rate_per_sec": m.cfg.RequestsPerSecond,
			"rate_burst":   m.cfg.Burst,
		},
	}
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())
	return app
}

// setupRoutes configures all API routes.
func (m *APIModule) setupRoutes(handlers *Handlers) {
	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"module": "api",
		})
	})

	v1 := m.app.Group("/api/v1")

	// Public auth routes
	authRoutes := v1.Group("/auth", m.limiter.Middleware())
	authRoutes.Post("/register", handlers.Register)
	authRoutes.Post("/login", handlers.Login)
	authRoutes.Post("/refresh", handlers.Refresh)

	registerProtected(v1, m.authAdapter, handlers)
}

// registerProtected mounts the routes that need a valid access token.
func registerProtected(router fiber.Router, authAdapter auth.AuthPort, handlers *Handlers) {
	read := RequirePermission(userdomain.PermissionTasksRead)
	write := RequirePermission(userdomain.PermissionTasksWrite)

	protected := router.Group("", AuthMiddleware(authAdapter))

	protected.Get("/me", handlers.Me)
	protected.Put("/me", handlers.UpdateMe)
	protected.Delete("/me", handlers.DeleteMe)

	protected.Get("/users", read, handlers.ListUsers)
	protected.Get("/users/:id", read, handlers.GetUser)

	protected.Get("/tasks", read, handlers.ListTasks)
	protected.Post("/tasks", write, handlers.CreateTask)
	protected.Get("/tasks/next", read, handlers.NextTask)
	protected.Get("/tasks/:id", read, handlers.GetTask)
	protected.Put("/tasks/:id", write, handlers.UpdateTask)
	protected.Delete("/tasks/:id", write, handlers.DeleteTask)
	protected.Post("/tasks/:id/advance", write, handlers.AdvanceTask)

	protected.Get("/activity", read, handlers.Activity)
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}
