package camunda

import (
	"context"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"ideaflow/internal/common/logger"
)

// JobHandler is implemented by every IdeaFlow worker handler.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
}

// JobRecorder receives per-job telemetry.
type JobRecorder interface {
	RecordJobProcessed(ctx context.Context, taskType, status string)
	RecordJobDuration(ctx context.Context, taskType string, duration time.Duration, status string)
}

type WorkerOptions struct {
	TaskType      string
	MaxJobsActive int
	Timeout       time.Duration
	// Recorder is optional.
	Recorder JobRecorder
}

// Worker is an open job subscription for one task type.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// NewWorker opens a job worker. The caller owns the client and closes it after
// every worker has stopped.
func NewWorker(client zbc.Client, opts WorkerOptions, handler JobHandler, log logger.Logger) *Worker {
	log = log.WithFields(map[string]interface{}{"taskType": opts.TaskType})

	step := client.NewJobWorker().
		JobType(opts.TaskType).
		Handler(instrument(opts.TaskType, handler, opts.Recorder)).
		MaxJobsActive(opts.MaxJobsActive).
		Name("ideaflow-" + opts.TaskType)
	if opts.Timeout > 0 {
		step = step.Timeout(opts.Timeout)
	}

	log.Info("worker started", map[string]interface{}{
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return &Worker{
		worker:   step.Open(),
		logger:   log,
		taskType: opts.TaskType,
	}
}

func (w *Worker) TaskType() string { return w.taskType }

// Stop closes the subscription and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.logger.Info("stopping worker", nil)
	w.worker.Close()
	w.worker.AwaitClose()
}

func instrument(taskType string, handler JobHandler, rec JobRecorder) worker.JobHandler {
	if rec == nil {
		return handler.Handle
	}
	return func(client worker.JobClient, job entities.Job) {
		start := time.Now()
		handler.Handle(client, job)
		ctx := context.Background()
		rec.RecordJobProcessed(ctx, taskType, "handled")
		rec.RecordJobDuration(ctx, taskType, time.Since(start), "handled")
	}
}
