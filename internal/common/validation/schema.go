// Package validation checks API requests and worker variables against JSON schemas.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const statusEnum = `["proposed", "under_review", "validated", "investment_ready"]`

// StatusChangeRequestSchema is the body of POST /api/ideas/:id/status.
const StatusChangeRequestSchema = `{
	"type": "object",
	"properties": {
		"newStatus": {"type": "string", "enum": ` + statusEnum + `},
		"reason": {"type": ["string", "null"], "maxLength": 2000},
		"expectedFromStatus": {"type": ["string", "null"], "enum": ["proposed", "under_review", "validated", "investment_ready", null]}
	},
	"required": ["newStatus"],
	"additionalProperties": false
}`

// EvaluateProgressionInputSchema is the variable contract of the evaluate-progression job.
const EvaluateProgressionInputSchema = `{
	"type": "object",
	"properties": {
		"ideaId": {"type": "string", "minLength": 1},
		"fromStatus": {"type": "string", "minLength": 1},
		"toStatus": {"type": "string"}
	},
	"required": ["ideaId", "fromStatus"]
}`

// ApplyStatusChangeInputSchema is the variable contract of the apply-status-change job.
const ApplyStatusChangeInputSchema = `{
	"type": "object",
	"properties": {
		"ideaId": {"type": "string", "minLength": 1},
		"newStatus": {"type": "string", "enum": ` + statusEnum + `},
		"reason": {"type": ["string", "null"], "maxLength": 2000},
		"expectedFromStatus": {"type": ["string", "null"]},
		"adminToken": {"type": "string", "minLength": 1}
	},
	"required": ["ideaId", "newStatus", "adminToken"]
}`

// Schema is a compiled JSON schema.
type Schema struct {
	schema *gojsonschema.Schema
}

// Compile parses a JSON schema document.
func Compile(schemaJSON string) (*Schema, error) {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Schema{schema: s}, nil
}

// MustCompile is Compile for package-level schemas.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validate checks a Go value (map or struct with json tags) against the schema.
func (s *Schema) Validate(document interface{}) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return &ValidationResult{
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_DOCUMENT"}},
		}
	}

	vr := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		vr.Errors = append(vr.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return vr
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// Error joins all messages; empty when valid.
func (vr *ValidationResult) Error() string {
	return strings.Join(vr.GetErrorMessages(), "; ")
}

// ValidateID checks that an identifier is a UUID, the key format of the idea store.
func ValidateID(field, value string) error {
	if _, err := uuid.Parse(value); err != nil {
		return fmt.Errorf("%s must be a UUID", field)
	}
	return nil
}

var activityNamingPattern = regexp.MustCompile(`^[a-z]+\.[a-z]+\.[a-z]+$`)

// ValidateActivityNaming validates activity ID follows naming convention
func ValidateActivityNaming(activityID string) error {
	if !activityNamingPattern.MatchString(activityID) {
		return fmt.Errorf("activity ID must follow format: domain.subdomain.action (e.g., idea.progression.evaluate)")
	}
	return nil
}
