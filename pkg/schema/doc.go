// Package schema describes the types a node's value is expected to have.
//
// It defines a small type system with built-in scalar types (string, int,
// float, bool, any), containers (slices and string-keyed maps), nested
// objects and custom validators. Types can be built programmatically or
// parsed from their names, which is how graph documents declare them:
//
//	t, err := schema.ParseType("{[int]}") // map of string to slice of int
//
// A Schema maps field names to types and validates map values:
//
//	s := schema.Schema{
//	    "api_key": schema.String(),
//	    "retries": schema.Int(),
//	    "tags":    schema.Slice(schema.String()),
//	}
//	if err := schema.Validate(s, data); err != nil {
//	    for _, fe := range schema.FieldErrors(err) { ... }
//	}
//
// All failures of a Validate call are collected into a single
// *multierror.Error, in field name order.
package schema
