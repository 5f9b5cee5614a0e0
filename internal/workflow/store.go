package workflow

import (
	"context"

	"ideaflow/internal/models"
)

// Store is the read side consumed by the criteria evaluator.
type Store interface {
	CountVotesAndComments(ctx context.Context, ideaID string) (models.InteractionCounts, error)
	CountEvaluations(ctx context.Context, ideaID string) (int, error)
	FetchEvaluationScores(ctx context.Context, ideaID string) ([]models.EvaluationScores, error)
	CountComments(ctx context.Context, ideaID string) (int, error)
	CountInvestorInterest(ctx context.Context, ideaID string) (int, error)
	CountDocuments(ctx context.Context, ideaID string) (int, error)
}

// StatusUpdate is one status mutation plus its audit row.
type StatusUpdate struct {
	IdeaID    string
	NewStatus models.Status
	Reason    *string
	ChangedBy string
}

// Guard runs inside the status update, after the idea's current status has been
// read under lock and before anything is written. A non-nil error aborts the update.
type Guard func(current models.Status) error

// TransitionStore applies status changes atomically and serves the audit history.
type TransitionStore interface {
	// UpdateIdeaStatusAndLogTransition updates the status and appends the
	// transition row in one atomic step, or does neither.
	UpdateIdeaStatusAndLogTransition(ctx context.Context, update StatusUpdate, guard Guard) (*models.WorkflowTransition, error)
	// FetchTransitionHistory returns transitions newest-first.
	FetchTransitionHistory(ctx context.Context, ideaID string) ([]models.WorkflowTransition, error)
}

type IdeaReader interface {
	GetIdea(ctx context.Context, ideaID string) (*models.Idea, error)
}
