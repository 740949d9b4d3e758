package storage

import (
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const issuesSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["code", "severity", "message"],
    "properties": {
      "code": { "type": "string", "minLength": 1 },
      "severity": { "enum": ["info", "warn", "error"] },
      "message": { "type": "string" },
      "hint": { "type": "string" }
    }
  }
}`

var issuesSchema = jsonschema.MustCompileString("issues.schema.json", issuesSchemaJSON)

// validateIssues checks that raw is a JSON encoded issue list.
func validateIssues(raw json.RawMessage) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("issues are not valid JSON: %w", err)
	}
	if err := issuesSchema.Validate(v); err != nil {
		return fmt.Errorf("issues schema validation failed: %w", err)
	}
	return nil
}
