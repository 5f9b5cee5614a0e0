package evaluateprogression

import "time"

type Input struct {
	IdeaID     string `json:"ideaId"`
	FromStatus string `json:"fromStatus"`
	// ToStatus is optional; empty evaluates the next canonical stage.
	ToStatus string `json:"toStatus,omitempty"`
}

type Output struct {
	IdeaID        string    `json:"ideaId"`
	FromStatus    string    `json:"fromStatus"`
	ToStatus      string    `json:"toStatus"`
	CanProgress   bool      `json:"canProgress"`
	MetCriteria   []string  `json:"metCriteria"`
	UnmetCriteria []string  `json:"unmetCriteria"`
	EvaluatedAt   time.Time `json:"evaluatedAt"`
}
