package applystatuschange

import "time"

type Input struct {
	IdeaID             string  `json:"ideaId"`
	NewStatus          string  `json:"newStatus"`
	Reason             *string `json:"reason,omitempty"`
	ExpectedFromStatus *string `json:"expectedFromStatus,omitempty"`
	// AdminToken is the bearer token of the administrator who approved the change.
	AdminToken string `json:"adminToken"`
}

type Output struct {
	TransitionID string    `json:"transitionId"`
	IdeaID       string    `json:"ideaId"`
	FromStatus   *string   `json:"fromStatus"`
	ToStatus     string    `json:"toStatus"`
	ChangedBy    string    `json:"changedBy"`
	ChangedAt    time.Time `json:"changedAt"`
}
