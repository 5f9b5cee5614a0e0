// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// ErrorHandler reports job failures back to Zeebe.
type ErrorHandler struct {
	logger     Logger
	maxRetries int
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

type ErrorHandlerOption func(*ErrorHandler)

// WithMaxRetries caps the retries any error is given. n <= 0 means no cap.
func WithMaxRetries(n int) ErrorHandlerOption {
	return func(h *ErrorHandler) { h.maxRetries = n }
}

func NewErrorHandler(logger Logger, opts ...ErrorHandlerOption) *ErrorHandler {
	h := &ErrorHandler{logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleJobError fails the job with retries for technical errors and throws a
// BPMN error for business errors so the process can route on the code.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := Normalize(err)
	bpmnErr := ConvertToBPMNError(stdErr)
	bpmnErr.Retries = h.retriesLeft(bpmnErr.Retries, job.Retries)

	h.logError(job, stdErr, bpmnErr)

	if bpmnErr.Retries > 0 {
		h.failJobWithRetries(ctx, client, job, bpmnErr)
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

// retriesLeft is the error's retry budget limited by the handler cap and by
// what Zeebe has left on the job. Zero means the job is not retried.
func (h *ErrorHandler) retriesLeft(errorRetries int, jobRetries int32) int {
	retries := errorRetries
	if h.maxRetries > 0 && retries > h.maxRetries {
		retries = h.maxRetries
	}
	// never raise what Zeebe has left
	if int(jobRetries) < retries {
		retries = int(jobRetries)
	}
	if retries < 0 {
		return 0
	}
	return retries
}

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if stdErr, ok := AsStandardError(err); ok {
		return stdErr
	}
	return NewInternalError(err)
}

func (h *ErrorHandler) failJobWithRetries(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(int32(bpmnErr.Retries - 1)).
		ErrorMessage(bpmnErr.Message)

	if varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	if varsJSON, err := json.Marshal(bpmnErr.ToErrorVariables()); err == nil {
		if withVars, err := cmd.VariablesFromString(string(varsJSON)); err == nil {
			_, _ = withVars.Send(ctx)
			return
		}
	}
	_, _ = cmd.Send(ctx)
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":           job.Key,
		"jobType":          job.Type,
		"errorCode":        string(stdErr.Code),
		"message":          bpmnErr.Message,
		"details":          stdErr.Details,
		"retryable":        stdErr.Retryable,
		"retries":          bpmnErr.Retries,
		"errorCategory":    GetErrorCategory(stdErr.Code),
		"workflowInstance": job.ProcessInstanceKey,
	})
}
