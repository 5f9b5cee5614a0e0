package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ideaflow/internal/common/auth"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/common/metrics"
	"ideaflow/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Notifier is told about every committed status change.
type Notifier interface {
	StatusChanged(ctx context.Context, transition models.WorkflowTransition) error
}

// StatusChange is an administrator's request to move an idea.
type StatusChange struct {
	IdeaID    string
	NewStatus models.Status
	Reason    string
	// ExpectedFrom, when set, makes the change a compare-and-swap on the current status.
	ExpectedFrom *models.Status
}

const (
	resultApplied  = "applied"
	resultRejected = "rejected"
	resultFailed   = "failed"
)

type Executor struct {
	store    TransitionStore
	policy   TransitionPolicy
	notifier Notifier
	logger   logger.Logger
	tracer   trace.Tracer
}

// NewExecutor builds an executor. notifier may be nil.
func NewExecutor(store TransitionStore, policy TransitionPolicy, notifier Notifier, log logger.Logger) *Executor {
	if policy == nil {
		policy = OverridePolicy{}
	}
	return &Executor{
		store:    store,
		policy:   policy,
		notifier: notifier,
		logger: log.WithFields(map[string]interface{}{
			"component": "status-executor",
			"policy":    policy.Name(),
		}),
		tracer: otel.Tracer(tracerName),
	}
}

// ApplyStatusChange sets the idea's status and appends its transition record
// atomically. The grant is the proof that the caller is an administrator.
func (x *Executor) ApplyStatusChange(ctx context.Context, grant auth.AdminGrant, change StatusChange) (*models.WorkflowTransition, error) {
	if !grant.Valid() {
		metrics.StatusChanges.WithLabelValues("", string(change.NewStatus), resultRejected).Inc()
		return nil, ErrAdminRequired
	}
	if !change.NewStatus.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, change.NewStatus)
	}
	if change.ExpectedFrom != nil && !change.ExpectedFrom.Valid() {
		return nil, fmt.Errorf("%w: expected status %q", ErrInvalidStatus, *change.ExpectedFrom)
	}

	ctx, span := x.tracer.Start(ctx, "workflow.ApplyStatusChange", trace.WithAttributes(
		attribute.String("idea.id", change.IdeaID),
		attribute.String("workflow.to_status", string(change.NewStatus)),
	))
	defer span.End()

	var reason *string
	if r := strings.TrimSpace(change.Reason); r != "" {
		reason = &r
	}

	var observed models.Status
	guard := func(current models.Status) error {
		observed = current
		if change.ExpectedFrom != nil && current != *change.ExpectedFrom {
			return fmt.Errorf("%w: expected %s, found %s", ErrConcurrentModification, *change.ExpectedFrom, current)
		}
		if current == change.NewStatus {
			return fmt.Errorf("%w: %s", ErrStatusUnchanged, current)
		}
		return x.policy.Check(current, change.NewStatus)
	}

	transition, err := x.store.UpdateIdeaStatusAndLogTransition(ctx, StatusUpdate{
		IdeaID:    change.IdeaID,
		NewStatus: change.NewStatus,
		Reason:    reason,
		ChangedBy: grant.UserID(),
	}, guard)
	if err != nil {
		result := resultFailed
		if isRejection(err) {
			result = resultRejected
		}
		metrics.StatusChanges.WithLabelValues(string(observed), string(change.NewStatus), result).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, result)

		fields := map[string]interface{}{
			"ideaId":     change.IdeaID,
			"fromStatus": string(observed),
			"toStatus":   string(change.NewStatus),
			"changedBy":  grant.UserID(),
			"error":      err,
		}
		if result == resultFailed {
			x.logger.Error("status change failed", fields)
		} else {
			x.logger.Info("status change rejected", fields)
		}
		return nil, err
	}

	metrics.StatusChanges.WithLabelValues(string(observed), string(transition.ToStatus), resultApplied).Inc()
	x.logger.Info("status change applied", map[string]interface{}{
		"ideaId":       transition.IdeaID,
		"transitionId": transition.ID,
		"fromStatus":   string(observed),
		"toStatus":     string(transition.ToStatus),
		"changedBy":    transition.ChangedBy,
		"grantedAt":    grant.GrantedAt(),
	})

	if x.notifier != nil {
		if err := x.notifier.StatusChanged(ctx, *transition); err != nil {
			x.logger.Warn("status change notification failed", map[string]interface{}{
				"ideaId":       transition.IdeaID,
				"transitionId": transition.ID,
				"error":        err,
			})
		}
	}

	return transition, nil
}

// ApplyStatusChangeIdempotent is ApplyStatusChange for callers that may deliver
// the same change twice. A change refused as unchanged or concurrently modified
// succeeds with the idea's newest transition when that transition is the same
// change: same target, actor and reason, and the expected origin if one was set.
func (x *Executor) ApplyStatusChangeIdempotent(ctx context.Context, grant auth.AdminGrant, change StatusChange) (*models.WorkflowTransition, error) {
	transition, err := x.ApplyStatusChange(ctx, grant, change)
	if err == nil || !(errors.Is(err, ErrStatusUnchanged) || errors.Is(err, ErrConcurrentModification)) {
		return transition, err
	}

	history, herr := x.store.FetchTransitionHistory(ctx, change.IdeaID)
	if herr != nil {
		x.logger.Warn("could not check for an applied status change", map[string]interface{}{
			"ideaId": change.IdeaID,
			"error":  herr,
		})
		return nil, err
	}
	if len(history) == 0 || !isSameChange(history[0], grant.UserID(), change) {
		return nil, err
	}

	x.logger.Info("status change already applied", map[string]interface{}{
		"ideaId":       change.IdeaID,
		"transitionId": history[0].ID,
		"toStatus":     string(change.NewStatus),
		"changedBy":    grant.UserID(),
	})
	return &history[0], nil
}

func isSameChange(t models.WorkflowTransition, actor string, change StatusChange) bool {
	if t.ToStatus != change.NewStatus || t.ChangedBy != actor {
		return false
	}
	var reason string
	if t.Reason != nil {
		reason = *t.Reason
	}
	if reason != strings.TrimSpace(change.Reason) {
		return false
	}
	if change.ExpectedFrom != nil {
		return t.FromStatus != nil && *t.FromStatus == *change.ExpectedFrom
	}
	return true
}

// History returns the idea's transitions newest-first.
func (x *Executor) History(ctx context.Context, ideaID string) ([]models.WorkflowTransition, error) {
	history, err := x.store.FetchTransitionHistory(ctx, ideaID)
	if err != nil {
		return nil, err
	}
	if history == nil {
		history = []models.WorkflowTransition{}
	}
	return history, nil
}
