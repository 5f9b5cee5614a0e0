package workflow

import (
	"errors"

	apperrors "ideaflow/internal/common/errors"
)

var (
	ErrIdeaNotFound           = errors.New("idea not found")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrStatusUnchanged        = errors.New("idea already has this status")
	ErrTransitionNotAllowed   = errors.New("transition not allowed")
	ErrConcurrentModification = errors.New("idea status changed concurrently")
	ErrAdminRequired          = errors.New("administrator grant required")
)

// ToStandardError translates workflow and store failures into application
// error codes. Unrecognized errors become STATUS_UPDATE_FAILED.
func ToStandardError(err error) *apperrors.StandardError {
	if stdErr, ok := apperrors.AsStandardError(err); ok {
		return stdErr
	}

	switch {
	case errors.Is(err, ErrIdeaNotFound):
		return apperrors.NewIdeaNotFoundError("", err)
	case errors.Is(err, ErrInvalidStatus):
		return apperrors.NewInvalidStatusError(err.Error(), err)
	case errors.Is(err, ErrStatusUnchanged):
		return apperrors.NewStatusUnchangedError(err.Error(), err)
	case errors.Is(err, ErrTransitionNotAllowed):
		return apperrors.NewTransitionNotAllowedError(err.Error(), err)
	case errors.Is(err, ErrConcurrentModification):
		return apperrors.NewConcurrentModificationError(err.Error(), err)
	case errors.Is(err, ErrAdminRequired):
		return apperrors.NewAdminRequiredError(err.Error(), err)
	default:
		return apperrors.NewStatusUpdateFailedError(err)
	}
}

// isRejection reports whether err is a business rejection rather than a store failure.
func isRejection(err error) bool {
	return errors.Is(err, ErrIdeaNotFound) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrStatusUnchanged) ||
		errors.Is(err, ErrTransitionNotAllowed) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrAdminRequired)
}
