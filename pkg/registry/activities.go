package registry

import (
	"encoding/json"
	"time"

	"ideaflow/internal/common/validation"
)

const (
	evaluateProgressionOutputSchema = `{
		"type": "object",
		"properties": {
			"ideaId": {"type": "string"},
			"fromStatus": {"type": "string"},
			"toStatus": {"type": "string"},
			"canProgress": {"type": "boolean"},
			"metCriteria": {"type": "array", "items": {"type": "string"}},
			"unmetCriteria": {"type": "array", "items": {"type": "string"}},
			"evaluatedAt": {"type": "string", "format": "date-time"}
		}
	}`

	applyStatusChangeOutputSchema = `{
		"type": "object",
		"properties": {
			"transitionId": {"type": "string"},
			"ideaId": {"type": "string"},
			"fromStatus": {"type": ["string", "null"]},
			"toStatus": {"type": "string"},
			"changedBy": {"type": "string"},
			"changedAt": {"type": "string", "format": "date-time"}
		}
	}`
)

// IdeaFlowActivities returns the activities implemented by this service's job workers.
func IdeaFlowActivities() []Activity {
	return []Activity{
		{
			ID:                   "idea.progression.evaluate",
			DisplayName:          "Evaluate Idea Progression",
			Description:          "Checks the criteria of a stage transition and reports which are met. Advisory only.",
			Category:             "ideaflow",
			Version:              "1.0.0",
			TaskType:             "evaluate-progression",
			ImplementationStatus: StatusCompleted,
			InputSchema:          mustSchemaMap(validation.EvaluateProgressionInputSchema),
			OutputSchema:         mustSchemaMap(evaluateProgressionOutputSchema),
			ErrorCodes:           []string{"VALIDATION_FAILED", "INVALID_STATUS"},
			Timeout:              "10s",
			Retries:              0,
			Workflows:            []string{"idea-lifecycle"},
			Tags:                 []string{"workflow", "criteria"},
		},
		{
			ID:                   "idea.status.apply",
			DisplayName:          "Apply Idea Status Change",
			Description:          "Sets an idea's status on behalf of an administrator and records the transition.",
			Category:             "ideaflow",
			Version:              "1.0.0",
			TaskType:             "apply-status-change",
			ImplementationStatus: StatusCompleted,
			InputSchema:          mustSchemaMap(validation.ApplyStatusChangeInputSchema),
			OutputSchema:         mustSchemaMap(applyStatusChangeOutputSchema),
			ErrorCodes: []string{
				"VALIDATION_FAILED", "INVALID_STATUS", "IDEA_NOT_FOUND", "STATUS_UNCHANGED",
				"TRANSITION_NOT_ALLOWED", "CONCURRENT_MODIFICATION", "ADMIN_REQUIRED",
				"AUTHENTICATION_ERROR", "STATUS_UPDATE_FAILED",
			},
			Timeout:   "10s",
			Retries:   3,
			Workflows: []string{"idea-lifecycle"},
			Tags:      []string{"workflow", "admin"},
		},
	}
}

// Default builds a fresh registry holding IdeaFlowActivities.
func Default(now time.Time) *ActivityRegistry {
	return &ActivityRegistry{
		Version:     "1.0.0",
		LastUpdated: now.UTC().Format(time.RFC3339),
		Activities:  IdeaFlowActivities(),
	}
}

func mustSchemaMap(schemaJSON string) map[string]interface{} {
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(schemaJSON), &m); err != nil {
		panic(err)
	}
	return m
}
