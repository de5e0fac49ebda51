package schema

import (
	"sort"

	"github.com/hashicorp/go-multierror"
)

// Schema is a map of field names to their expected types.
type Schema map[string]Type

func (s Schema) fields() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Validate checks that data has every field of schema with a conforming
// value. Extra fields are allowed. The result is nil or a *multierror.Error
// of *FieldError, in field name order.
func Validate(schema Schema, data map[string]any) error {
	return ValidateFields(schema, data, schema.fields()...)
}

// ValidateFields validates only the named fields. A field missing from the
// schema is reported as an error too.
func ValidateFields(schema Schema, data map[string]any, fields ...string) error {
	var result *multierror.Error
	for _, name := range fields {
		fieldType, ok := schema[name]
		if !ok {
			result = multierror.Append(result, &FieldError{Key: name, Reason: "not defined in schema"})
			continue
		}
		value, ok := data[name]
		if !ok {
			result = multierror.Append(result, &FieldError{Key: name, Reason: "required"})
			continue
		}
		if err := fieldType.Validate(value); err != nil {
			result = multierror.Append(result, &FieldError{Key: name, Reason: err.Error(), Value: value})
		}
	}
	return result.ErrorOrNil()
}
