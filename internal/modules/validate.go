package modules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-faster/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Validator checks tool arguments against one InputSchema. The schema is
// compiled once and reused for every call.
type Validator struct {
	schema   InputSchema
	compiled *gojsonschema.Schema
}

// NewValidator compiles schema. It fails when the schema itself is invalid,
// for example a malformed pattern.
func NewValidator(schema InputSchema) (*Validator, error) {
	if schema.Type == "" {
		schema.Type = "object"
	}
	if schema.Properties == nil {
		schema.Properties = map[string]Property{}
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schema))
	if err != nil {
		return nil, errors.Wrap(err, "compile input schema")
	}
	return &Validator{schema: schema, compiled: compiled}, nil
}

// ValidateParams checks params against InputSchema.
// - Required fields: returns error if missing
// - Type check: verifies value matches declared property type
// - Constraints: enum, minimum, maximum and pattern
// Returns validated params (shallow copy) or error.
func ValidateParams(schema InputSchema, params map[string]any) (map[string]any, error) {
	v, err := NewValidator(schema)
	if err != nil {
		return nil, err
	}
	return v.Validate(params)
}

// Validate runs the checks described on ValidateParams.
func (v *Validator) Validate(params map[string]any) (map[string]any, error) {
	if params == nil {
		params = make(map[string]any)
	}

	// Check required fields
	var missing []string
	for _, key := range v.schema.Required {
		val, exists := params[key]
		if !exists || val == nil {
			missing = append(missing, key)
			continue
		}
		// Check for zero-value strings on required fields
		if s, ok := val.(string); ok && s == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, errors.Errorf("missing required parameter(s): %s", strings.Join(missing, ", "))
	}

	// Type check provided params against schema properties. Nulls mean
	// "not given" and are dropped before the constraint pass.
	validated := make(map[string]any, len(params))
	for key, val := range params {
		if val == nil {
			continue
		}
		validated[key] = val
		prop, declared := v.schema.Properties[key]
		if !declared {
			// Extra params not in schema are passed through (lenient)
			continue
		}
		if err := checkType(key, val, prop.Type); err != nil {
			return nil, err
		}
	}

	result, err := v.compiled.Validate(gojsonschema.NewGoLoader(validated))
	if err != nil {
		return nil, errors.Wrap(err, "validate parameters")
	}
	if !result.Valid() {
		return nil, constraintError(result.Errors())
	}

	return validated, nil
}

func constraintError(errs []gojsonschema.ResultError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, fmt.Sprintf("parameter %q: %s", e.Field(), e.Description()))
	}
	sort.Strings(msgs)
	return errors.New(strings.Join(msgs, "; "))
}

// checkType verifies that val matches the expected JSON Schema type.
func checkType(key string, val any, expectedType string) error {
	switch expectedType {
	case "string":
		if _, ok := val.(string); !ok {
			return errors.Errorf("parameter %q: expected string, got %T", key, val)
		}
	case "number", "integer":
		// JSON numbers arrive as float64
		if _, ok := val.(float64); !ok {
			return errors.Errorf("parameter %q: expected number, got %T", key, val)
		}
	case "boolean":
		if _, ok := val.(bool); !ok {
			return errors.Errorf("parameter %q: expected boolean, got %T", key, val)
		}
	case "array":
		if _, ok := val.([]any); !ok {
			return errors.Errorf("parameter %q: expected array, got %T", key, val)
		}
	case "object":
		if _, ok := val.(map[string]any); !ok {
			return errors.Errorf("parameter %q: expected object, got %T", key, val)
		}
		// "" or unknown types: skip check (lenient)
	}
	return nil
}
