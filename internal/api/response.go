package api

import (
	"github.com/gin-gonic/gin"

	apperrors "ideaflow/internal/common/errors"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func respondError(c *gin.Context, stdErr *apperrors.StandardError) {
	c.AbortWithStatusJSON(apperrors.HTTPStatus(stdErr.Code), ErrorEnvelope{
		Error: APIError{
			Message: stdErr.Message,
			Code:    string(stdErr.Code),
			Details: stdErr.Details,
		},
	})
}
