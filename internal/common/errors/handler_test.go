package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type nopLogger struct{}

func (nopLogger) Error(string, map[string]interface{}) {}

func TestErrorHandler_RetriesLeft(t *testing.T) {
	tests := []struct {
		name         string
		maxRetries   int
		errorRetries int
		jobRetries   int32
		want         int
	}{
		{"error budget", 0, 3, 5, 3},
		{"capped by worker config", 2, 3, 5, 2},
		{"cap above budget", 10, 3, 5, 3},
		{"zeebe has fewer left", 0, 3, 1, 1},
		{"business error", 2, 0, 5, 0},
		{"exhausted job", 2, 3, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewErrorHandler(nopLogger{}, WithMaxRetries(tt.maxRetries))
			assert.Equal(t, tt.want, h.retriesLeft(tt.errorRetries, tt.jobRetries))
		})
	}
}

func TestErrorHandler_WorkerRetryCapOnEngineErrors(t *testing.T) {
	stdErr := NewEngineUnavailableError("complete job", assert.AnError)
	h := NewErrorHandler(nopLogger{}, WithMaxRetries(1))

	assert.Equal(t, 1, h.retriesLeft(ConvertToBPMNError(stdErr).Retries, 3))
}
