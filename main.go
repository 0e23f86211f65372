package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/example/taskcycle/config"
	"github.com/example/taskcycle/modules/activity"
	"github.com/example/taskcycle/modules/api"
	"github.com/example/taskcycle/modules/auth"
	"github.com/example/taskcycle/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := mono.LogLevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		logLevel = mono.LogLevelDebug
	case "warn":
		logLevel = mono.LogLevelWarn
	case "error":
		logLevel = mono.LogLevelError
	}
	logFormat := mono.LogFormatText
	if strings.ToLower(cfg.Log.Format) == "json" {
		logFormat = mono.LogFormatJSON
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(logFormat),
	)
	if err != nil {
		log.Fatalf("Failed to create mono application: %v", err)
	}

	logger := app.Logger()

	if cfg.JWT.SecretKey == config.Default().JWT.SecretKey {
		logger.Warn("Using the default JWT secret key, set JWT_SECRET_KEY in production")
	}

	authModule := auth.NewModule(auth.Config{
		DBPath:  cfg.Database.Path,
		DBDebug: cfg.Database.Debug,
		JWT: auth.JWTConfig{
			SecretKey:            cfg.JWT.SecretKey,
			Issuer:               cfg.JWT.Issuer,
			AccessTokenDuration:  cfg.JWT.AccessTokenDuration(),
			RefreshTokenDuration: cfg.JWT.RefreshTokenDuration(),
		},
	}, logger)

	taskModule := task.NewModule(task.Config{
		DBPath:          cfg.Database.Path,
		DBDebug:         cfg.Database.Debug,
		MaxCatchUpSteps: cfg.Cycle.MaxCatchUpSteps,
		Redis: task.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTLDuration(),
		},
	}, logger)

	activityModule := activity.NewModule(cfg.Activity.Capacity, logger)

	apiModule := api.NewModule(api.Config{
		Port:              cfg.HTTP.Port,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
	}, logger)

	app.Register(authModule)
	app.Register(taskModule)
	app.Register(activityModule)
	app.Register(apiModule)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start app: %v", err)
	}

	logger.Info("Task cycle service started",
		"port", cfg.HTTP.Port,
		"database", cfg.Database.Path,
		"cache", cfg.Redis.Enabled(),
		"max_catch_up_steps", cfg.Cycle.MaxCatchUpSteps)
	logger.Info("Endpoints",
		"public", []string{
			"GET /health",
			"POST /api/v1/auth/register",
			"POST /api/v1/auth/login",
			"POST /api/v1/auth/refresh",
		},
		"protected", []string{
			"GET|PUT|DELETE /api/v1/me",
			"GET /api/v1/users[/:id]",
			"GET|POST /api/v1/tasks",
			"GET /api/v1/tasks/next?after=<epoch>",
			"GET|PUT|DELETE /api/v1/tasks/:id",
			"POST /api/v1/tasks/:id/advance?at=<epoch>",
			"GET /api/v1/activity?limit=<n>",
		})
	logger.Info("Press Ctrl+C to shutdown")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				logger.Info("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	logger.Info("Application exited", "code", exitCode)
	os.Exit(exitCode)
}
