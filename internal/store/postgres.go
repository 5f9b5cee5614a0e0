// Package store implements the workflow data-access interfaces over PostgreSQL
// and a Redis read-through cache for transition history.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ideaflow/internal/common/logger"
	"ideaflow/internal/models"
	"ideaflow/internal/workflow"

	"github.com/lib/pq"
)

const (
	pqInvalidTextRepresentation = "22P02"
	pqForeignKeyViolation       = "23503"
)

// Postgres reads community signals and applies status changes.
type Postgres struct {
	db     *sql.DB
	logger logger.Logger
}

var (
	_ workflow.Store           = (*Postgres)(nil)
	_ workflow.TransitionStore = (*Postgres)(nil)
	_ workflow.IdeaReader      = (*Postgres)(nil)
)

func NewPostgres(db *sql.DB, log logger.Logger) *Postgres {
	return &Postgres{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "postgres-store"}),
	}
}

func (p *Postgres) GetIdea(ctx context.Context, ideaID string) (*models.Idea, error) {
	query := `
		SELECT id, group_id, submitted_by, title, status, created_at, updated_at
		FROM ideas
		WHERE id = $1`

	var idea models.Idea
	err := p.db.QueryRowContext(ctx, query, ideaID).Scan(
		&idea.ID, &idea.GroupID, &idea.SubmittedBy, &idea.Title, &idea.Status, &idea.CreatedAt, &idea.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err, ideaID, "get idea")
	}
	return &idea, nil
}

func (p *Postgres) CountVotesAndComments(ctx context.Context, ideaID string) (models.InteractionCounts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM votes WHERE idea_id = $1),
			(SELECT COUNT(*) FROM comments WHERE idea_id = $1)`

	var c models.InteractionCounts
	if err := p.db.QueryRowContext(ctx, query, ideaID).Scan(&c.Votes, &c.Comments); err != nil {
		return models.InteractionCounts{}, mapError(err, ideaID, "count votes and comments")
	}
	return c, nil
}

func (p *Postgres) CountEvaluations(ctx context.Context, ideaID string) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM evaluations WHERE idea_id = $1`, ideaID, "count evaluations")
}

func (p *Postgres) FetchEvaluationScores(ctx context.Context, ideaID string) ([]models.EvaluationScores, error) {
	query := `
		SELECT market_size, feasibility, strategic_fit, novelty
		FROM evaluations
		WHERE idea_id = $1`

	rows, err := p.db.QueryContext(ctx, query, ideaID)
	if err != nil {
		return nil, mapError(err, ideaID, "fetch evaluation scores")
	}
	defer rows.Close()

	var scores []models.EvaluationScores
	for rows.Next() {
		var s models.EvaluationScores
		if err := rows.Scan(&s.MarketSize, &s.Feasibility, &s.StrategicFit, &s.Novelty); err != nil {
			return nil, fmt.Errorf("scan evaluation scores: %w", err)
		}
		scores = append(scores, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate evaluation scores: %w", err)
	}
	return scores, nil
}

func (p *Postgres) CountComments(ctx context.Context, ideaID string) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM comments WHERE idea_id = $1`, ideaID, "count comments")
}

func (p *Postgres) CountInvestorInterest(ctx context.Context, ideaID string) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM investor_interest WHERE idea_id = $1`, ideaID, "count investor interest")
}

func (p *Postgres) CountDocuments(ctx context.Context, ideaID string) (int, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM documents WHERE idea_id = $1`, ideaID, "count documents")
}

func (p *Postgres) count(ctx context.Context, query, ideaID, op string) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx, query, ideaID).Scan(&n); err != nil {
		return 0, mapError(err, ideaID, op)
	}
	return n, nil
}

// UpdateIdeaStatusAndLogTransition locks the idea row, runs guard against the
// locked status, then updates the status and appends the transition in the
// same transaction.
func (p *Postgres) UpdateIdeaStatusAndLogTransition(ctx context.Context, u workflow.StatusUpdate, guard workflow.Guard) (*models.WorkflowTransition, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin status update: %w", err)
	}
	defer func() {
		// no-op after a successful commit
		_ = tx.Rollback()
	}()

	var current models.Status
	err = tx.QueryRowContext(ctx, `SELECT status FROM ideas WHERE id = $1 FOR UPDATE`, u.IdeaID).Scan(&current)
	if err != nil {
		return nil, mapError(err, u.IdeaID, "lock idea")
	}

	if guard != nil {
		if err := guard(current); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE ideas SET status = $2, updated_at = NOW() WHERE id = $1`,
		u.IdeaID, string(u.NewStatus),
	); err != nil {
		return nil, fmt.Errorf("update idea status: %w", err)
	}

	t := models.WorkflowTransition{
		IdeaID:     u.IdeaID,
		FromStatus: current.Ptr(),
		ToStatus:   u.NewStatus,
		Reason:     u.Reason,
		ChangedBy:  u.ChangedBy,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO workflow_transitions (idea_id, from_status, to_status, reason, changed_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		u.IdeaID, string(current), string(u.NewStatus), nullString(u.Reason), u.ChangedBy,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert workflow transition: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit status update: %w", err)
	}

	p.logger.Debug("status update committed", map[string]interface{}{
		"ideaId":       u.IdeaID,
		"transitionId": t.ID,
	})
	return &t, nil
}

func (p *Postgres) FetchTransitionHistory(ctx context.Context, ideaID string) ([]models.WorkflowTransition, error) {
	query := `
		SELECT id, idea_id, from_status, to_status, reason, changed_by, created_at
		FROM workflow_transitions
		WHERE idea_id = $1
		ORDER BY created_at DESC`

	rows, err := p.db.QueryContext(ctx, query, ideaID)
	if err != nil {
		return nil, mapError(err, ideaID, "fetch transition history")
	}
	defer rows.Close()

	history := []models.WorkflowTransition{}
	for rows.Next() {
		var (
			t      models.WorkflowTransition
			from   sql.NullString
			reason sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.IdeaID, &from, &t.ToStatus, &reason, &t.ChangedBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan workflow transition: %w", err)
		}
		if from.Valid {
			t.FromStatus = models.Status(from.String).Ptr()
		}
		if reason.Valid {
			r := reason.String
			t.Reason = &r
		}
		history = append(history, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate workflow transitions: %w", err)
	}
	return history, nil
}

// mapError turns "no such idea" conditions into workflow.ErrIdeaNotFound. Use it
// only for statements whose sole parameter is the idea id; writes after the row
// lock wrap their errors as store failures.
func mapError(err error, ideaID, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", op, ideaID, workflow.ErrIdeaNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqInvalidTextRepresentation, pqForeignKeyViolation:
			return fmt.Errorf("%s %s: %w", op, ideaID, workflow.ErrIdeaNotFound)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
