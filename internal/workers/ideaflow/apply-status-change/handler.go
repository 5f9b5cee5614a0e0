package applystatuschange

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"ideaflow/internal/common/auth"
	apperrors "ideaflow/internal/common/errors"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/common/metrics"
	"ideaflow/internal/common/validation"
	"ideaflow/internal/models"
	"ideaflow/internal/workflow"
)

const (
	TaskType = "apply-status-change"
)

var inputSchema = validation.MustCompile(validation.ApplyStatusChangeInputSchema)

type AdminVerifier interface {
	VerifyAdmin(token string) (auth.AdminGrant, error)
}

// Executor applies status changes. Jobs are delivered at least once, so a
// change that already took effect must come back as success.
type Executor interface {
	ApplyStatusChangeIdempotent(ctx context.Context, grant auth.AdminGrant, change workflow.StatusChange) (*models.WorkflowTransition, error)
}

type Handler struct {
	config       *Config
	verifier     AdminVerifier
	executor     Executor
	errorHandler *apperrors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, verifier AdminVerifier, executor Executor, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		verifier:     verifier,
		executor:     executor,
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
	grant, err := h.verifier.VerifyAdmin(input.AdminToken)
	if err != nil {
		if errors.Is(err, auth.ErrNotAdmin) {
			return nil, apperrors.NewAdminRequiredError("token does not carry the administrator role", err)
		}
		return nil, apperrors.NewAuthenticationError("admin token rejected", err)
	}

	change := workflow.StatusChange{
		IdeaID:    input.IdeaID,
		NewStatus: models.Status(input.NewStatus),
	}
	if input.Reason != nil {
		change.Reason = *input.Reason
	}
	if input.ExpectedFromStatus != nil && *input.ExpectedFromStatus != "" {
		expected, err := workflow.ParseStatus(*input.ExpectedFromStatus)
		if err != nil {
			return nil, apperrors.NewInvalidStatusError(*input.ExpectedFromStatus, err)
		}
		change.ExpectedFrom = &expected
	}

	transition, err := h.executor.ApplyStatusChangeIdempotent(ctx, grant, change)
	if err != nil {
		return nil, workflow.ToStandardError(err)
	}

	out := &Output{
		TransitionID: transition.ID,
		IdeaID:       transition.IdeaID,
		ToStatus:     string(transition.ToStatus),
		ChangedBy:    transition.ChangedBy,
		ChangedAt:    transition.CreatedAt,
	}
	if transition.FromStatus != nil {
		from := string(*transition.FromStatus)
		out.FromStatus = &from
	}
	return out, nil
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
