/*
Package dsl provides a fluent Go builder for rule configurations.

It produces the same nested mappings the loader reads from YAML or JSON, so
trees can be defined in code with type checking and IDE completion.

Example usage:

	rule := dsl.Rule("Adult discount").
		If(
			dsl.Condition("data_comparison").
				Map("data", "age").
				Value("value", 18).
				With("operator", ">="),
		).
		Then(
			dsl.Action("variable_set").
				With("name", "discount").
				With("type", "float").
				Value("value", 0.1).
				AutoSave("discount"),
		)

	e, err := dsl.Compile(reg, rule)
*/
package dsl
