// internal/models/idea.go
package models

import "time"

// Status is an idea's workflow stage.
type Status string

const (
	StatusProposed        Status = "proposed"
	StatusUnderReview     Status = "under_review"
	StatusValidated       Status = "validated"
	StatusInvestmentReady Status = "investment_ready"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProposed, StatusUnderReview, StatusValidated, StatusInvestmentReady:
		return true
	}
	return false
}

// Ptr returns a pointer to a copy of s.
func (s Status) Ptr() *Status { return &s }

type Idea struct {
	ID          string    `json:"id"`
	GroupID     string    `json:"groupId"`
	SubmittedBy string    `json:"submittedBy"`
	Title       string    `json:"title"`
	Status      Status    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Vote struct {
	IdeaID string `json:"ideaId"`
	UserID string `json:"userId"`
	Vote   bool   `json:"vote"`
}

type Comment struct {
	ID       string `json:"id"`
	IdeaID   string `json:"ideaId"`
	AuthorID string `json:"authorId"`
	Content  string `json:"content"`
}

// EvaluationScores holds the four 1-5 sub-scores of one evaluation.
type EvaluationScores struct {
	MarketSize   int `json:"marketSize"`
	Feasibility  int `json:"feasibility"`
	StrategicFit int `json:"strategicFit"`
	Novelty      int `json:"novelty"`
}

// Total is the composite score of the evaluation, 4 to 20.
func (s EvaluationScores) Total() int {
	return s.MarketSize + s.Feasibility + s.StrategicFit + s.Novelty
}

type Evaluation struct {
	ID          string `json:"id"`
	IdeaID      string `json:"ideaId"`
	EvaluatorID string `json:"evaluatorId"`
	EvaluationScores
}

type InvestorInterest struct {
	IdeaID string `json:"ideaId"`
	UserID string `json:"userId"`
}

type Document struct {
	ID     string `json:"id"`
	IdeaID string `json:"ideaId"`
	Name   string `json:"name"`
}

// InteractionCounts is the community activity on an idea.
type InteractionCounts struct {
	Votes    int `json:"votes"`
	Comments int `json:"comments"`
}

func (c InteractionCounts) Total() int { return c.Votes + c.Comments }

// WorkflowTransition is an immutable audit row written once per status change.
type WorkflowTransition struct {
	ID         string    `json:"id"`
	IdeaID     string    `json:"ideaId"`
	FromStatus *Status   `json:"fromStatus"`
	ToStatus   Status    `json:"toStatus"`
	Reason     *string   `json:"reason,omitempty"`
	ChangedBy  string    `json:"changedBy"`
	CreatedAt  time.Time `json:"createdAt"`
}
