// Package errors provides standardized error handling for the IdeaFlow API and
// its BPMN job workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeIdeaNotFound           ErrorCode = "IDEA_NOT_FOUND"
	ErrCodeInvalidStatus          ErrorCode = "INVALID_STATUS"
	ErrCodeStatusUnchanged        ErrorCode = "STATUS_UNCHANGED"
	ErrCodeTransitionNotAllowed   ErrorCode = "TRANSITION_NOT_ALLOWED"
	ErrCodeConcurrentModification ErrorCode = "CONCURRENT_MODIFICATION"
	ErrCodeAdminRequired          ErrorCode = "ADMIN_REQUIRED"

	ErrCodeStatusUpdateFailed  ErrorCode = "STATUS_UPDATE_FAILED"
	ErrCodeCriteriaFetchFailed ErrorCode = "CRITERIA_FETCH_FAILED"
	ErrCodeHistoryFetchFailed  ErrorCode = "HISTORY_FETCH_FAILED"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeAuthentication   ErrorCode = "AUTHENTICATION_ERROR"

	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeEngineUnavailable      ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodeInternal               ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	cause     error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

func NewIdeaNotFoundError(ideaID string, cause error) *StandardError {
	return newError(ErrCodeIdeaNotFound, "Idea not found", fmt.Sprintf("ideaId: %s", ideaID), false, cause)
}

func NewInvalidStatusError(status string, cause error) *StandardError {
	return newError(ErrCodeInvalidStatus, "Unknown workflow status", fmt.Sprintf("status: %s", status), false, cause)
}

func NewStatusUnchangedError(status string, cause error) *StandardError {
	return newError(ErrCodeStatusUnchanged, "Idea already has the requested status", fmt.Sprintf("status: %s", status), false, cause)
}

func NewTransitionNotAllowedError(details string, cause error) *StandardError {
	return newError(ErrCodeTransitionNotAllowed, "Status transition not allowed", details, false, cause)
}

func NewConcurrentModificationError(details string, cause error) *StandardError {
	return newError(ErrCodeConcurrentModification, "Idea status was changed concurrently", details, false, cause)
}

func NewAdminRequiredError(details string, cause error) *StandardError {
	return newError(ErrCodeAdminRequired, "Administrator privilege required", details, false, cause)
}

func NewStatusUpdateFailedError(err error) *StandardError {
	return newError(ErrCodeStatusUpdateFailed, "Status update failed", err.Error(), true, err)
}

func NewCriteriaFetchFailedError(err error) *StandardError {
	return newError(ErrCodeCriteriaFetchFailed, "Error checking criteria", err.Error(), true, err)
}

func NewHistoryFetchFailedError(err error) *StandardError {
	return newError(ErrCodeHistoryFetchFailed, "Transition history unavailable", err.Error(), true, err)
}

func NewValidationFailedError(details string) *StandardError {
	return newError(ErrCodeValidationFailed, "Input validation failed", details, false, nil)
}

func NewAuthenticationError(details string, cause error) *StandardError {
	return newError(ErrCodeAuthentication, "Authentication failed", details, false, cause)
}

func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed",
		fmt.Sprintf("channel: %s, error: %s", channel, err.Error()), true, err)
}

func NewEngineUnavailableError(operation string, err error) *StandardError {
	return newError(ErrCodeEngineUnavailable, "Workflow engine unavailable",
		fmt.Sprintf("operation: %s, error: %s", operation, err.Error()), true, err)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false, err)
}

// ==========================
// 4. Retry / Mapping Helpers
// ==========================

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeStatusUpdateFailed,
		ErrCodeCriteriaFetchFailed,
		ErrCodeHistoryFetchFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeEngineUnavailable:
		return 3
	default:
		return 0 // business errors: no retry
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "ADMIN") || strings.Contains(codeStr, "AUTHENTICATION"):
		return "AUTH"
	case strings.Contains(codeStr, "STATUS") || strings.Contains(codeStr, "TRANSITION") || strings.Contains(codeStr, "CONCURRENT"):
		return "WORKFLOW"
	case strings.Contains(codeStr, "FETCH") || strings.Contains(codeStr, "NOT_FOUND"):
		return "DATABASE"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "ENGINE"):
		return "ENGINE"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}

// HTTPStatus maps an error code to the response status used by the API.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeIdeaNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidStatus, ErrCodeValidationFailed:
		return http.StatusBadRequest
	case ErrCodeStatusUnchanged, ErrCodeTransitionNotAllowed:
		return http.StatusUnprocessableEntity
	case ErrCodeConcurrentModification:
		return http.StatusConflict
	case ErrCodeAdminRequired:
		return http.StatusForbidden
	case ErrCodeAuthentication:
		return http.StatusUnauthorized
	case ErrCodeStatusUpdateFailed, ErrCodeCriteriaFetchFailed, ErrCodeHistoryFetchFailed, ErrCodeEngineUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// AsStandardError extracts a *StandardError from err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}
