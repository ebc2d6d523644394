package judge

import (
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed assessment.schema.json
var schemaText string

var (
	schemaOnce     sync.Once
	compiledSchema *gojsonschema.Schema
	schemaErr      error
)

// SchemaError lists every field of a model response that broke the assessment contract.
type SchemaError struct {
	Fields []FieldError
}

// FieldError is one violation at a JSON field path.
type FieldError struct {
	Field   string
	Message string
}

func (e *SchemaError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "schema violation: " + strings.Join(parts, "; ")
}

func assessmentSchema() (*gojsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaText))
	})
	return compiledSchema, schemaErr
}

// validateDocument checks raw JSON text against the assessment schema.
func validateDocument(doc string) error {
	schema, err := assessmentSchema()
	if err != nil {
		return fmt.Errorf("load assessment schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("decode response json: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &SchemaError{}
	for _, desc := range result.Errors() {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return verr
}
