package main

import (
	"context"
	"fmt"
	"time"

	"ideaflow/internal/common/auth"
	"ideaflow/internal/common/aws"
	"ideaflow/internal/common/camunda"
	"ideaflow/internal/common/config"
	"ideaflow/internal/common/database"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/notify"
	"ideaflow/internal/workflow"
	applystatuschange "ideaflow/internal/workers/ideaflow/apply-status-change"
	evaluateprogression "ideaflow/internal/workers/ideaflow/evaluate-progression"
	"ideaflow/pkg/registry"
)

// retryWithBackoff retries operation with exponential backoff until it succeeds,
// maxRetries is reached or ctx is cancelled.
func retryWithBackoff(ctx context.Context, operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		if err = operation(); err == nil {
			return nil
		}
		if i == maxRetries-1 {
			break
		}

		log.Warn(fmt.Sprintf("%s failed, retrying", operationName), map[string]interface{}{
			"error":       err,
			"attempt":     i + 1,
			"maxRetries":  maxRetries,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operationName, ctx.Err())
		}
		delay *= 2
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// connectPostgres waits for the pool to reach the database. The pool is
// closed when every attempt fails.
func connectPostgres(ctx context.Context, pg *database.PostgresClient, maxRetries int, delay time.Duration, log logger.Logger) error {
	err := retryWithBackoff(ctx, func() error {
		return pg.Ping(ctx)
	}, maxRetries, delay, log, "PostgreSQL connection")
	if err != nil {
		if closeErr := pg.Close(); closeErr != nil {
			log.Warn("closing postgres pool failed", map[string]interface{}{"error": closeErr})
		}
		return err
	}
	return nil
}

func buildNotifier(ctx context.Context, cfg config.NotificationConfig, log logger.Logger) (workflow.Notifier, error) {
	if !cfg.SNS.Enabled {
		log.Info("status change notifications disabled", nil)
		return notify.NopNotifier{}, nil
	}
	client, err := aws.NewSNSClient(ctx, cfg.SNS.Region)
	if err != nil {
		return nil, err
	}
	log.Info("status change notifications enabled", map[string]interface{}{"topicArn": cfg.SNS.TopicARN})
	return notify.NewSNSNotifier(client, cfg.SNS.TopicARN, log), nil
}

// workerSet owns the Zeebe client and the workers opened on it.
type workerSet struct {
	client  *camunda.Client
	workers []*camunda.Worker
	logger  logger.Logger
}

func (s *workerSet) Stop() {
	if s == nil || s.client == nil {
		return
	}
	for _, w := range s.workers {
		w.Stop()
	}
	if err := s.client.Close(); err != nil {
		s.logger.Error("error closing zeebe client", map[string]interface{}{"error": err})
	}
}

func startWorkers(
	ctx context.Context,
	cfg *config.Config,
	evaluator *workflow.Evaluator,
	executor *workflow.Executor,
	verifier *auth.Verifier,
	recorder camunda.JobRecorder,
	log logger.Logger,
) (*workerSet, error) {
	set := &workerSet{logger: log}
	if !cfg.Camunda.Enabled {
		log.Info("zeebe workers disabled", nil)
		return set, nil
	}

	checkRegistry(cfg.RegistryPath, log)

	client, err := camunda.NewClient(ctx, camunda.ConfigFrom(cfg.Camunda), log)
	if err != nil {
		return nil, err
	}
	set.client = client

	handlers := map[string]camunda.JobHandler{}
	if wc := config.GetWorkerConfig(cfg, evaluateprogression.TaskType); wc.Enabled {
		handlers[evaluateprogression.TaskType] = evaluateprogression.NewHandler(
			evaluateprogression.NewConfig(wc), evaluator, log)
	}
	if wc := config.GetWorkerConfig(cfg, applystatuschange.TaskType); wc.Enabled {
		handlers[applystatuschange.TaskType] = applystatuschange.NewHandler(
			applystatuschange.NewConfig(wc), verifier, executor, log)
	}

	for taskType, handler := range handlers {
		wc := config.GetWorkerConfig(cfg, taskType)
		set.workers = append(set.workers, camunda.NewWorker(client.GetClient(), camunda.WorkerOptions{
			TaskType:      taskType,
			MaxJobsActive: wc.MaxJobsActive,
			Timeout:       config.GetDuration(wc.Timeout),
			Recorder:      recorder,
		}, handler, log))
	}
	return set, nil
}

// checkRegistry warns when a worker's task type is missing from the activity registry.
func checkRegistry(path string, log logger.Logger) {
	if path == "" {
		return
	}
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		log.Warn("activity registry not loaded", map[string]interface{}{"path": path, "error": err})
		return
	}
	if err := reg.Validate(); err != nil {
		log.Warn("activity registry invalid", map[string]interface{}{"path": path, "error": err})
	}
	for _, a := range registry.IdeaFlowActivities() {
		if _, ok := reg.Find(a.TaskType); !ok {
			log.Warn("worker not listed in activity registry", map[string]interface{}{"taskType": a.TaskType})
		}
	}
}
