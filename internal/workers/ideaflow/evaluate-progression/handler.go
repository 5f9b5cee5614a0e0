package evaluateprogression

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	apperrors "ideaflow/internal/common/errors"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/common/metrics"
	"ideaflow/internal/common/validation"
	"ideaflow/internal/models"
	"ideaflow/internal/workflow"
)

const (
	TaskType = "evaluate-progression"
)

var inputSchema = validation.MustCompile(validation.EvaluateProgressionInputSchema)

// Evaluator is the part of the progression evaluator this worker drives.
type Evaluator interface {
	EvaluateProgression(ctx context.Context, ideaID string, from, to models.Status) workflow.CriteriaReport
	EvaluateNext(ctx context.Context, ideaID string, current models.Status) workflow.CriteriaReport
}

type Handler struct {
	config       *Config
	evaluator    Evaluator
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, evaluator Evaluator, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		evaluator:    evaluator,
		errorHandler: apperrors.NewErrorHandler(log, apperrors.WithMaxRetries(config.MaxRetries)),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer func() {
		metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	input, err := h.parseInput(job.Variables)
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	output, err := h.execute(ctx, input)
	cancel()
	if err != nil {
		h.failJob(client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

// reportContext bounds the command that reports the job outcome, independent
// of the execution deadline.
func (h *Handler) reportContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), h.config.ReportTimeout)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}
	if result := inputSchema.Validate(doc); !result.Valid {
		return nil, apperrors.NewValidationFailedError(result.Error())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, apperrors.NewValidationFailedError(fmt.Sprintf("parse input: %v", err))
	}
	return &input, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	from, err := workflow.ParseStatus(input.FromStatus)
	if err != nil {
		return nil, apperrors.NewInvalidStatusError(input.FromStatus, err)
	}

	var report workflow.CriteriaReport
	if input.ToStatus == "" {
		report = h.evaluator.EvaluateNext(ctx, input.IdeaID, from)
	} else {
		to, err := workflow.ParseStatus(input.ToStatus)
		if err != nil {
			return nil, apperrors.NewInvalidStatusError(input.ToStatus, err)
		}
		report = h.evaluator.EvaluateProgression(ctx, input.IdeaID, from, to)
	}

	h.logger.Info("progression evaluated", map[string]interface{}{
		"ideaId":      input.IdeaID,
		"fromStatus":  string(report.From),
		"toStatus":    string(report.To),
		"canProgress": report.CanProgress,
	})

	return &Output{
		IdeaID:        report.IdeaID,
		FromStatus:    string(report.From),
		ToStatus:      string(report.To),
		CanProgress:   report.CanProgress,
		MetCriteria:   report.MetCriteria,
		UnmetCriteria: report.UnmetCriteria,
		EvaluatedAt:   report.EvaluatedAt,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	ctx, cancel := h.reportContext()
	defer cancel()
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) failJob(client worker.JobClient, job entities.Job, err error) {
	ctx, cancel := h.reportContext()
	defer cancel()
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// ParseInput validates raw job variables against the worker contract.
func (h *Handler) ParseInput(variables string) (*Input, error) {
	return h.parseInput(variables)
}
