package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/memberkit/credential-service/internal/config"
	"github.com/memberkit/credential-service/internal/health"
	"github.com/memberkit/credential-service/internal/observability"
)

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	Server        *http.Server
	Observability *observability.Runtime
	DB            *gorm.DB
	Redis         redis.UniversalClient
	Readiness     *health.ProbeRunner

	ShutdownTimeout              time.Duration
	ShutdownHTTPDrainTimeout     time.Duration
	ShutdownObservabilityTimeout time.Duration
}

func New(
	cfg *config.Config,
	logger *slog.Logger,
	server *http.Server,
	runtime *observability.Runtime,
	db *gorm.DB,
	redisClient redis.UniversalClient,
	readiness *health.ProbeRunner,
) *App {
	return &App{
		Config:                       cfg,
		Logger:                       logger,
		Server:                       server,
		Observability:                runtime,
		DB:                           db,
		Redis:                        redisClient,
		Readiness:                    readiness,
		ShutdownTimeout:              cfg.ShutdownTimeout,
		ShutdownHTTPDrainTimeout:     cfg.ShutdownHTTPDrainTimeout,
		ShutdownObservabilityTimeout: cfg.ShutdownObservabilityWait,
	}
}

// Run serves HTTP until ctx is cancelled or the listener fails, then shuts
// down. A listener failure wins over shutdown errors.
func (a *App) Run(ctx context.Context) error {
	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info("credential service listening", "addr", a.Server.Addr, "env", a.Config.Env, "hash_algorithm", a.Config.HashAlgorithm)
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info("shutdown signal received")
	case runErr = <-serveErr:
		if runErr != nil {
			a.Logger.Error("http server failed", "error", runErr)
		}
	}
	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

type shutdownStage struct {
	name    string
	timeout time.Duration
	stop    func(context.Context) error
}

// stages lists the shutdown steps in order. Stages without a timeout share the
// overall deadline.
func (a *App) stages() []shutdownStage {
	stages := []shutdownStage{{
		name:    "http server",
		timeout: orDefault(a.ShutdownHTTPDrainTimeout, 10*time.Second),
		stop:    a.Server.Shutdown,
	}}
	if a.Observability != nil {
		stages = append(stages, shutdownStage{
			name:    "observability",
			timeout: orDefault(a.ShutdownObservabilityTimeout, 8*time.Second),
			stop:    a.Observability.Shutdown,
		})
	}
	if a.Redis != nil {
		stages = append(stages, shutdownStage{name: "redis client", stop: func(context.Context) error { return a.Redis.Close() }})
	}
	if a.DB != nil {
		stages = append(stages, shutdownStage{name: "database", stop: func(context.Context) error {
			sqlDB, err := a.DB.DB()
			if err != nil {
				return nil
			}
			return sqlDB.Close()
		}})
	}
	return stages
}

// Shutdown runs every stage even when an earlier one fails and returns the
// joined errors.
func (a *App) Shutdown() error {
	total, cancel := context.WithTimeout(context.Background(), orDefault(a.ShutdownTimeout, 20*time.Second))
	defer cancel()

	var errs []error
	for _, stage := range a.stages() {
		ctx, stageCancel := total, context.CancelFunc(func() {})
		if stage.timeout > 0 {
			ctx, stageCancel = context.WithTimeout(total, stage.timeout)
		}
		err := stage.stop(ctx)
		stageCancel()
		if err != nil {
			a.Logger.Error("shutdown stage failed", "stage", stage.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", stage.name, err))
		}
	}
	return errors.Join(errs...)
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
