package feedback

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed report.schema.json
var reportSchemaJSON string

var loadReportSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("report.schema.json", reportSchemaJSON)
})

// ValidateReport checks the JSON form of report against the report schema.
func ValidateReport(report Report) error {
	schema, err := loadReportSchema()
	if err != nil {
		return fmt.Errorf("failed to compile report schema: %w", err)
	}

	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report for schema validation: %w", err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to normalize report for schema validation: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("report schema validation failed: %w", err)
	}
	return nil
}
