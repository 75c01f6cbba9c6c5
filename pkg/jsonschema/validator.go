package jsonschema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationErrors collects the individual failures produced by a schema
// validation pass.
type ValidationErrors []error

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	parts := make([]string, len(ve))
	for i, err := range ve {
		parts[i] = err.Error()
	}
	return strings.Join(parts, "; ")
}

// Validate reports whether a JSON document conforms to a JSON Schema.
// A malformed schema or malformed document is an error; a document that
// merely fails validation returns (false, nil).
func Validate(jsonStr, schemaStr string) (bool, error) {
	schema, doc, err := compile(jsonStr, schemaStr)
	if err != nil {
		return false, err
	}
	if err := schema.Validate(doc); err != nil {
		return false, nil
	}
	return true, nil
}

// ValidateWithErrors validates a JSON document against a JSON Schema and,
// on failure, returns every violation found rather than just the first.
func ValidateWithErrors(jsonStr, schemaStr string) (bool, ValidationErrors) {
	schema, doc, err := compile(jsonStr, schemaStr)
	if err != nil {
		return false, ValidationErrors{err}
	}

	err = schema.Validate(doc)
	if err == nil {
		return true, nil
	}
	var verr *jsonschema.ValidationError
	if errors.As(err, &verr) {
		return false, flatten(verr)
	}
	return false, ValidationErrors{err}
}

func compile(jsonStr, schemaStr string) (*jsonschema.Schema, interface{}, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(schemaStr)); err != nil {
		return nil, nil, fmt.Errorf("invalid schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, nil, fmt.Errorf("invalid schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal([]byte(jsonStr), &doc); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return schema, doc, nil
}

// flatten walks the cause tree of a validation error and returns one entry
// per located failure.
func flatten(err *jsonschema.ValidationError) ValidationErrors {
	var errs ValidationErrors
	if err.Message != "" {
		loc := err.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		errs = append(errs, fmt.Errorf("validation error at %s: %s", loc, err.Message))
	}
	for _, cause := range err.Causes {
		errs = append(errs, flatten(cause)...)
	}
	return errs
}
