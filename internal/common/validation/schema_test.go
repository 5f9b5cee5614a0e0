package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusChangeRequestSchema(t *testing.T) {
	schema := MustCompile(StatusChangeRequestSchema)

	tests := []struct {
		name      string
		doc       map[string]interface{}
		wantValid bool
		wantInMsg string
	}{
		{"minimal", map[string]interface{}{"newStatus": "validated"}, true, ""},
		{"with reason and expected", map[string]interface{}{
			"newStatus": "under_review", "reason": "enough traction", "expectedFromStatus": "proposed",
		}, true, ""},
		{"null reason", map[string]interface{}{"newStatus": "proposed", "reason": nil}, true, ""},
		{"missing status", map[string]interface{}{"reason": "x"}, false, "newStatus"},
		{"unknown status", map[string]interface{}{"newStatus": "archived"}, false, "newStatus"},
		{"extra field", map[string]interface{}{"newStatus": "validated", "force": true}, false, "force"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := schema.Validate(tt.doc)
			assert.Equal(t, tt.wantValid, result.Valid, result.Error())
			if tt.wantInMsg != "" {
				assert.Contains(t, result.Error(), tt.wantInMsg)
			}
		})
	}
}

func TestApplyStatusChangeInputSchema_RequiresToken(t *testing.T) {
	schema := MustCompile(ApplyStatusChangeInputSchema)

	result := schema.Validate(map[string]interface{}{
		"ideaId":    "7d9f4c1e-8d0a-4b59-9a3e-1f2b3c4d5e6f",
		"newStatus": "validated",
	})
	require.False(t, result.Valid)
	assert.Contains(t, result.Error(), "adminToken")

	result = schema.Validate(map[string]interface{}{
		"ideaId":     "7d9f4c1e-8d0a-4b59-9a3e-1f2b3c4d5e6f",
		"newStatus":  "archived",
		"adminToken": "t",
	})
	require.False(t, result.Valid)
	assert.Contains(t, result.Error(), "newStatus")
}

func TestCompile_InvalidSchema(t *testing.T) {
	_, err := Compile(`{"type": 12}`)
	assert.Error(t, err)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("ideaId", "7d9f4c1e-8d0a-4b59-9a3e-1f2b3c4d5e6f"))
	assert.EqualError(t, ValidateID("ideaId", "idea-1"), "ideaId must be a UUID")
}

func TestValidateActivityNaming(t *testing.T) {
	assert.NoError(t, ValidateActivityNaming("idea.progression.evaluate"))
	assert.Error(t, ValidateActivityNaming("evaluate-progression"))
}
