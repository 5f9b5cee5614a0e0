// Package workflow holds the idea lifecycle: the stage model, the progression
// criteria evaluator and the administrator-gated status transition executor.
package workflow

import (
	"fmt"

	"ideaflow/internal/models"
)

// Progression thresholds for the canonical forward edges.
const (
	MinInteractionsForReview = 3
	MinEvaluationsForReview  = 1

	MinEvaluationsForValidation  = 5
	MinAverageScoreForValidation = 12
	MinCommentsForValidation     = 3

	MinInvestorInterestForInvestment = 3
	MinDocumentsForInvestment        = 1

	// MaxCompositeScore is the highest per-evaluation sum of the four 1-5 sub-scores.
	MaxCompositeScore = 20
)

var stages = []models.Status{
	models.StatusProposed,
	models.StatusUnderReview,
	models.StatusValidated,
	models.StatusInvestmentReady,
}

// Stages returns the statuses in canonical forward order.
func Stages() []models.Status {
	out := make([]models.Status, len(stages))
	copy(out, stages)
	return out
}

// Rank is the position of s in the canonical order, or -1 for an unknown status.
func Rank(s models.Status) int {
	for i, st := range stages {
		if st == s {
			return i
		}
	}
	return -1
}

func IsValidStatus(s models.Status) bool {
	return s.Valid()
}

func ParseStatus(raw string) (models.Status, error) {
	s := models.Status(raw)
	if !IsValidStatus(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// NextStage returns the canonical successor of s. investment_ready has none.
func NextStage(s models.Status) (models.Status, bool) {
	r := Rank(s)
	if r < 0 || r == len(stages)-1 {
		return "", false
	}
	return stages[r+1], true
}

// Edge is a (from, to) status pair under consideration.
type Edge struct {
	From models.Status `json:"from"`
	To   models.Status `json:"to"`
}

func (e Edge) String() string {
	return string(e.From) + "->" + string(e.To)
}

// IsCanonical reports whether e is one of the three forward edges that carry criteria.
func (e Edge) IsCanonical() bool {
	next, ok := NextStage(e.From)
	return ok && next == e.To
}

func IsCanonicalEdge(from, to models.Status) bool {
	return Edge{From: from, To: to}.IsCanonical()
}

// CanonicalEdges lists the forward edges in order.
func CanonicalEdges() []Edge {
	edges := make([]Edge, 0, len(stages)-1)
	for i := 0; i < len(stages)-1; i++ {
		edges = append(edges, Edge{From: stages[i], To: stages[i+1]})
	}
	return edges
}

// Threshold describes one criterion of an edge for display.
type Threshold struct {
	Name    string  `json:"name"`
	Minimum float64 `json:"minimum"`
}

// Thresholds returns the criteria configured for a canonical edge; nil otherwise.
func Thresholds(e Edge) []Threshold {
	switch e {
	case Edge{From: models.StatusProposed, To: models.StatusUnderReview}:
		return []Threshold{
			{Name: "interactions", Minimum: MinInteractionsForReview},
			{Name: "evaluations", Minimum: MinEvaluationsForReview},
		}
	case Edge{From: models.StatusUnderReview, To: models.StatusValidated}:
		return []Threshold{
			{Name: "evaluations", Minimum: MinEvaluationsForValidation},
			{Name: "averageScore", Minimum: MinAverageScoreForValidation},
			{Name: "comments", Minimum: MinCommentsForValidation},
		}
	case Edge{From: models.StatusValidated, To: models.StatusInvestmentReady}:
		return []Threshold{
			{Name: "investorInterest", Minimum: MinInvestorInterestForInvestment},
			{Name: "documents", Minimum: MinDocumentsForInvestment},
		}
	default:
		return nil
	}
}
