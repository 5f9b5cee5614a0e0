package applystatuschange

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ideaflow/internal/common/auth"
	"ideaflow/internal/common/config"
	apperrors "ideaflow/internal/common/errors"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/models"
	"ideaflow/internal/workflow"
)

// ==========================
// Test Helper Functions
// ==========================

const (
	secret = "worker-test-secret"
	ideaID = "7d9f4c1e-8d0a-4b59-9a3e-1f2b3c4d5e6f"
)

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) ApplyStatusChangeIdempotent(ctx context.Context, grant auth.AdminGrant, change workflow.StatusChange) (*models.WorkflowTransition, error) {
	args := m.Called(ctx, grant, change)
	if t := args.Get(0); t != nil {
		return t.(*models.WorkflowTransition), args.Error(1)
	}
	return nil, args.Error(1)
}

func newTestHandler(t *testing.T, exec Executor) *Handler {
	verifier := auth.NewVerifier(config.AuthConfig{
		JWTSecret: secret,
		AdminRole: "admin",
		RoleClaim: "app_metadata.role",
	})
	return NewHandler(NewConfig(config.WorkerConfig{Timeout: 5000, MaxRetries: 2}), verifier, exec, logger.NewTestLogger(t))
}

func signToken(t *testing.T, sub, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":          sub,
		"exp":          time.Now().Add(time.Hour).Unix(),
		"app_metadata": map[string]interface{}{"role": role},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func strPtr(s string) *string { return &s }

// ==========================
// Execute
// ==========================

func TestExecute_AppliesChange(t *testing.T) {
	exec := new(mockExecutor)
	changedAt := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	exec.On("ApplyStatusChangeIdempotent", mock.Anything, mock.MatchedBy(func(g auth.AdminGrant) bool {
		return g.Valid() && g.UserID() == "admin-7"
	}), workflow.StatusChange{
		IdeaID:       ideaID,
		NewStatus:    models.StatusInvestmentReady,
		Reason:       "board approval",
		ExpectedFrom: models.StatusValidated.Ptr(),
	}).Return(&models.WorkflowTransition{
		ID:         "tr-1",
		IdeaID:     ideaID,
		FromStatus: models.StatusValidated.Ptr(),
		ToStatus:   models.StatusInvestmentReady,
		ChangedBy:  "admin-7",
		CreatedAt:  changedAt,
	}, nil)

	out, err := newTestHandler(t, exec).Execute(context.Background(), &Input{
		IdeaID:             ideaID,
		NewStatus:          "investment_ready",
		Reason:             strPtr("board approval"),
		ExpectedFromStatus: strPtr("validated"),
		AdminToken:         signToken(t, "admin-7", "admin"),
	})
	require.NoError(t, err)

	assert.Equal(t, "tr-1", out.TransitionID)
	require.NotNil(t, out.FromStatus)
	assert.Equal(t, "validated", *out.FromStatus)
	assert.Equal(t, "investment_ready", out.ToStatus)
	assert.Equal(t, changedAt, out.ChangedAt)
	exec.AssertExpectations(t)
}

func TestExecute_TokenRejected(t *testing.T) {
	tests := []struct {
		name     string
		token    string
		wantCode apperrors.ErrorCode
	}{
		{"member token", "", apperrors.ErrCodeAdminRequired},
		{"garbage token", "not-a-jwt", apperrors.ErrCodeAuthentication},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := tt.token
			if token == "" {
				token = signToken(t, "member-1", "member")
			}
			exec := new(mockExecutor)

			_, err := newTestHandler(t, exec).Execute(context.Background(), &Input{
				IdeaID:     ideaID,
				NewStatus:  "validated",
				AdminToken: token,
			})
			require.Error(t, err)
			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			exec.AssertNotCalled(t, "ApplyStatusChangeIdempotent", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExecute_MapsExecutorErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  apperrors.ErrorCode
		retryable bool
	}{
		{"not found", workflow.ErrIdeaNotFound, apperrors.ErrCodeIdeaNotFound, false},
		{"unchanged", workflow.ErrStatusUnchanged, apperrors.ErrCodeStatusUnchanged, false},
		{"concurrent", workflow.ErrConcurrentModification, apperrors.ErrCodeConcurrentModification, false},
		{"store down", errors.New("connection reset by peer"), apperrors.ErrCodeStatusUpdateFailed, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := new(mockExecutor)
			exec.On("ApplyStatusChangeIdempotent", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)

			_, err := newTestHandler(t, exec).Execute(context.Background(), &Input{
				IdeaID:     ideaID,
				NewStatus:  "validated",
				AdminToken: signToken(t, "admin-1", "admin"),
			})
			require.Error(t, err)
			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.Equal(t, tt.retryable, stdErr.Retryable)
		})
	}
}

func TestExecute_InvalidExpectedStatus(t *testing.T) {
	exec := new(mockExecutor)
	_, err := newTestHandler(t, exec).Execute(context.Background(), &Input{
		IdeaID:             ideaID,
		NewStatus:          "validated",
		ExpectedFromStatus: strPtr("draft"),
		AdminToken:         signToken(t, "admin-1", "admin"),
	})
	require.Error(t, err)
	stdErr, _ := apperrors.AsStandardError(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidStatus, stdErr.Code)
}

// ==========================
// Input contract
// ==========================

func TestParseInput(t *testing.T) {
	h := newTestHandler(t, new(mockExecutor))

	in, err := h.ParseInput(`{"ideaId":"` + ideaID + `","newStatus":"validated","reason":null,"adminToken":"t"}`)
	require.NoError(t, err)
	assert.Nil(t, in.Reason)
	assert.Equal(t, "t", in.AdminToken)

	for _, raw := range []string{
		`{"ideaId":"` + ideaID + `","newStatus":"validated"}`,
		`{"ideaId":"` + ideaID + `","newStatus":"archived","adminToken":"t"}`,
		`[]`,
	} {
		_, err := h.ParseInput(raw)
		require.Error(t, err, raw)
	}
}

// ==========================
// Redelivery
// ==========================

func TestExecute_RedeliveredJobSucceeds(t *testing.T) {
	ideas := newFakeIdeas(models.StatusValidated)
	executor := workflow.NewExecutor(ideas, workflow.OverridePolicy{}, nil, logger.NewTestLogger(t))
	h := newTestHandler(t, executor)
	input := &Input{
		IdeaID:             ideaID,
		NewStatus:          "investment_ready",
		Reason:             strPtr("board approval"),
		ExpectedFromStatus: strPtr("validated"),
		AdminToken:         signToken(t, "admin-7", "admin"),
	}

	first, err := h.Execute(context.Background(), input)
	require.NoError(t, err)

	again, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, first.TransitionID, again.TransitionID)
	assert.Len(t, ideas.history, 1)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(config.WorkerConfig{MaxRetries: 4})
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 4, cfg.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.ReportTimeout)
}

// fakeIdeas is a single-idea transition store.
type fakeIdeas struct {
	status  models.Status
	history []models.WorkflowTransition
}

func newFakeIdeas(status models.Status) *fakeIdeas {
	return &fakeIdeas{status: status}
}

func (f *fakeIdeas) UpdateIdeaStatusAndLogTransition(_ context.Context, u workflow.StatusUpdate, guard workflow.Guard) (*models.WorkflowTransition, error) {
	if err := guard(f.status); err != nil {
		return nil, err
	}
	t := models.WorkflowTransition{
		ID:         fmt.Sprintf("tr-%d", len(f.history)+1),
		IdeaID:     u.IdeaID,
		FromStatus: f.status.Ptr(),
		ToStatus:   u.NewStatus,
		Reason:     u.Reason,
		ChangedBy:  u.ChangedBy,
		CreatedAt:  time.Now().UTC(),
	}
	f.status = u.NewStatus
	f.history = append([]models.WorkflowTransition{t}, f.history...)
	return &t, nil
}

func (f *fakeIdeas) FetchTransitionHistory(context.Context, string) ([]models.WorkflowTransition, error) {
	return f.history, nil
}
