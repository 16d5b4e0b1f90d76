package dsl

import (
	"fmt"

	"github.com/aretw0/rules/pkg/expression"
)

const (
	nestedNone = ""
	nestedSet  = "set"
	nestedRule = "rule"
)

// Condition starts a leaf condition of the given plugin.
func Condition(pluginID string) *NodeBuilder {
	return newNode(pluginID, nestedNone)
}

// Action starts a leaf action of the given plugin.
func Action(pluginID string) *NodeBuilder {
	return newNode(pluginID, nestedNone)
}

// And starts a condition set that passes when every child passes.
func And(children ...Buildable) *NodeBuilder {
	return newNode(expression.AndID, nestedSet).Add(children...)
}

// Or starts a condition set that passes when any child passes.
func Or(children ...Buildable) *NodeBuilder {
	return newNode(expression.OrID, nestedSet).Add(children...)
}

// Actions starts an action set.
func Actions(children ...Buildable) *NodeBuilder {
	return newNode(expression.ActionSetID, nestedSet).Add(children...)
}

// Rule starts a rule; add conditions with If and actions with Then.
func Rule(label string) *NodeBuilder {
	n := newNode(expression.RuleID, nestedRule)
	if label != "" {
		n.Label(label)
	}
	return n
}

// Def is a context definition mapping of the given type. Options are
// applied in pairs: Def("int", "required", false).
func Def(dataType string, pairs ...any) map[string]any {
	def := map[string]any{"type": dataType}
	for i := 0; i+1 < len(pairs); i += 2 {
		if key, ok := pairs[i].(string); ok {
			def[key] = pairs[i+1]
		}
	}
	return def
}

// Compile builds the expression tree described by b.
func Compile(reg *expression.Registry, b Buildable) (expression.Expression, error) {
	e, err := reg.Create(b.Build())
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression: %w", err)
	}
	return e, nil
}
