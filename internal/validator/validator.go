// Package validator checks that an expression tree can be evaluated with a
// given set of input variables.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/schema"
)

// Issue is one problem found in a tree.
type Issue struct {
	Plugin   string
	UUID     string
	Label    string
	Context  string
	Variable string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s [%s] %s <- %s: %s", i.Label, i.Plugin, i.Context, i.Variable, i.Message)
}

type slots interface {
	ContextVariableName(name string) string
	ProvidedVariableName(name string) string
	ContextLiteral(name string) (any, bool)
}

// ValidateTree walks the tree in evaluation order, tracking which variables
// exist at each node: the available inputs plus everything provided by the
// nodes before it. It reports required context definitions that nothing sets
// and explicitly typed definitions whose variable has another type.
//
// Variables provided inside an or-set or a rule's actions are assumed to be
// set; the check is optimistic about branches.
func ValidateTree(root expression.Expression, available map[string]schema.Type) []Issue {
	scope := make(map[string]schema.Type, len(available))
	for k, v := range available {
		scope[k] = v
	}

	var issues []Issue
	expression.Walk(root, func(e expression.Expression, _ int) bool {
		s, ok := e.(slots)
		if !ok {
			return true
		}
		defs := e.ContextDefinitions()
		for _, name := range sortedKeys(defs) {
			def := defs[name]
			if _, literal := s.ContextLiteral(name); literal {
				continue
			}
			variable := s.ContextVariableName(name)
			issue := Issue{Plugin: e.PluginID(), UUID: e.UUID(), Label: e.Label(), Context: name, Variable: variable}

			t, set := scope[variable]
			switch {
			case set:
				if def.Explicit() && !compatible(def.DataType(), t) {
					issue.Message = fmt.Sprintf("wants %s, variable is %s", def.DataType().Name(), t.Name())
					issues = append(issues, issue)
				}
			case def.Required():
				if _, ok := def.DefaultValue(); !ok {
					issue.Message = "variable is never set"
					issues = append(issues, issue)
				}
			}
		}
		for name, def := range e.ProvidedDefinitions() {
			scope[s.ProvidedVariableName(name)] = def.DataType()
		}
		return true
	})
	return issues
}

// Validate is ValidateTree reported as a single error.
func Validate(root expression.Expression, available map[string]schema.Type) error {
	issues := ValidateTree(root, available)
	if len(issues) == 0 {
		return nil
	}
	lines := make([]string, len(issues))
	for i, issue := range issues {
		lines[i] = issue.String()
	}
	return fmt.Errorf("found %d errors:\n- %s", len(issues), strings.Join(lines, "\n- "))
}

// compatible reports whether a variable of type have can feed a slot of type want.
func compatible(want, have schema.Type) bool {
	if schema.IsAny(want) || schema.IsAny(have) {
		return true
	}
	if schema.Equal(want, have) {
		return true
	}
	_, wantFloat := want.(*schema.FloatType)
	_, haveInt := have.(*schema.IntType)
	return wantFloat && haveInt
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
