// Package schema provides the data types that context definitions and
// execution-state variables are tagged with.
//
// It defines a small type system with built-in types (string, int, float,
// bool, map), a refinable wildcard ("any"), slices and custom validators.
// Types are addressed by tag so they can be read from configuration:
//
//	typ, err := schema.ParseType("[int]")   // also "list<int>"
//	if err := typ.Validate([]any{1, 2}); err != nil {
//	    // Handle mismatch
//	}
//
// A Schema maps variable names to types. It is what the evaluator hands down
// the expression tree during context refinement, and it can validate a whole
// set of values at once:
//
//	s := schema.Schema{"user": schema.String(), "age": schema.Int()}
//	err := schema.Validate(s, map[string]any{"user": "ada", "age": 36})
//
// Decoders lose Go types (JSON numbers become float64); Normalize restores
// them according to the declared type.
package schema
