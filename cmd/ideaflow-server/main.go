package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ideaflow/internal/api"
	"ideaflow/internal/common/auth"
	"ideaflow/internal/common/config"
	"ideaflow/internal/common/database"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/common/observability"
	"ideaflow/internal/store"
	"ideaflow/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	log.Info("starting ideaflow server", map[string]interface{}{
		"version":        cfg.App.Version,
		"environment":    cfg.App.Environment,
		"transitionMode": cfg.Workflow.TransitionMode,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs, err := observability.New(ctx, cfg.Observability, cfg.App, log, observability.Options{})
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}
	defer func() {
		if err := obs.Shutdown(context.Background()); err != nil {
			log.Warn("observability shutdown failed", map[string]interface{}{"error": err})
		}
	}()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres pool init failed", zap.Error(err))
	}
	if err := connectPostgres(ctx, pg, 15, 2*time.Second, log); err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	log.Info("PostgreSQL connected", nil)

	pgStore := store.NewPostgres(pg.DB, log)

	var transitions workflow.TransitionStore = pgStore
	if cfg.Database.Redis.Enabled {
		redisClient := database.NewRedis(cfg.Database.Redis)
		err = retryWithBackoff(ctx, func() error {
			return redisClient.Ping(ctx)
		}, 10, 2*time.Second, log, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redisClient.Close()
		transitions = store.NewCachedHistory(pgStore, redisClient.Client,
			time.Duration(cfg.Database.Redis.HistoryTTL)*time.Second, log)
		log.Info("Redis history cache enabled", map[string]interface{}{"ttlSeconds": cfg.Database.Redis.HistoryTTL})
	}

	policy, err := workflow.PolicyForMode(cfg.Workflow.TransitionMode)
	if err != nil {
		zapLog.Fatal("invalid transition mode", zap.Error(err))
	}

	notifier, err := buildNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	evaluator := workflow.NewEvaluator(pgStore, log,
		workflow.WithEvaluationTimeout(config.GetDuration(cfg.Workflow.EvaluationTimeout)))
	executor := workflow.NewExecutor(transitions, policy, notifier, log)
	verifier := auth.NewVerifier(cfg.Auth)

	workers, err := startWorkers(ctx, cfg, evaluator, executor, verifier, obs, log)
	if err != nil {
		zapLog.Fatal("zeebe workers failed to start", zap.Error(err))
	}

	router := api.NewRouter(api.RouterConfig{
		ServiceName:    cfg.Observability.ServiceName,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Ideas:          pgStore,
		Evaluator:      evaluator,
		Executor:       executor,
		Verifier:       verifier,
		Ready:          pg.Ping,
		Logger:         log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.HTTP.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.HTTP.WriteTimeout),
	}

	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.HTTP.Address})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", map[string]interface{}{"error": err})
	}
	workers.Stop()

	log.Info("ideaflow server stopped gracefully", nil)
}
