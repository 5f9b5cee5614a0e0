package workflow

import (
	"fmt"

	"ideaflow/internal/common/config"
	"ideaflow/internal/models"
)

// TransitionPolicy decides which status changes an administrator may apply.
// Criteria reports are never consulted here.
type TransitionPolicy interface {
	Name() string
	Check(from, to models.Status) error
}

// OverridePolicy lets an administrator move an idea to any other status.
type OverridePolicy struct{}

func (OverridePolicy) Name() string { return config.TransitionModeOverride }

func (OverridePolicy) Check(from, to models.Status) error { return nil }

// StrictPolicy only allows the canonical forward step.
type StrictPolicy struct{}

func (StrictPolicy) Name() string { return config.TransitionModeStrict }

func (StrictPolicy) Check(from, to models.Status) error {
	if IsCanonicalEdge(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s is not the next stage", ErrTransitionNotAllowed, from, to)
}

// PolicyForMode maps workflow.transition_mode to a policy.
func PolicyForMode(mode string) (TransitionPolicy, error) {
	switch mode {
	case "", config.TransitionModeOverride:
		return OverridePolicy{}, nil
	case config.TransitionModeStrict:
		return StrictPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown transition mode %q", mode)
	}
}
