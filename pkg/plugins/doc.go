// Package plugins provides the built-in conditions and actions.
//
// Conditions: data_comparison, data_is_empty, expression (expr-lang) and
// boolean. Every condition honours the "negate" option.
//
// Actions: variable_set, variable_add, data_transform (jq) and log_message.
package plugins
