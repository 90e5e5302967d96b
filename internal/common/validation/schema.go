// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"wholesale-crm/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Schema is a compiled JSON schema for job variables or imported records.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// MustCompile panics when src is not a valid schema; use it for
// package-level schemas only.
func MustCompile(name, src string) *Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("schema %s: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Validate checks a JSON document. A document that is not JSON yields a
// single INVALID_JSON error.
func (s *Schema) Validate(document []byte) *ValidationResult {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(document))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "(root)", Message: err.Error(), Code: "INVALID_JSON"}},
		}
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldOf(desc),
			Message: desc.Description(),
			Code:    strings.ToUpper(desc.Type()),
		})
	}
	return out
}

// Check returns a VALIDATION_FAILED error naming the first offending field.
func (s *Schema) Check(document []byte) error {
	res := s.Validate(document)
	if res.Valid {
		return nil
	}

	msgs := make([]string, len(res.Errors))
	for i, e := range res.Errors {
		msgs[i] = e.Field + ": " + e.Message
	}
	return errors.NewValidationError(res.Errors[0].Field, strings.Join(msgs, "; "))
}

func fieldOf(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			if field == "(root)" {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}
