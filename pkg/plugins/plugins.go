package plugins

import (
	"errors"
	"fmt"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
)

// Plugin ids.
const (
	DataComparisonID = "data_comparison"
	DataIsEmptyID    = "data_is_empty"
	ExpressionID     = "expression"
	BooleanID        = "boolean"
	VariableSetID    = "variable_set"
	VariableAddID    = "variable_add"
	DataTransformID  = "data_transform"
	LogMessageID     = "log_message"
)

// Register adds every built-in condition and action to reg.
func Register(reg *expression.Registry) error {
	exprs := newExprCache()
	plugins := []struct {
		def  domain.PluginDefinition
		ctor expression.Constructor
	}{
		{dataComparisonDefinition(), newDataComparison},
		{dataIsEmptyDefinition(), newDataIsEmpty},
		{expressionDefinition(), exprs.constructor()},
		{booleanDefinition(), newBoolean},
		{variableSetDefinition(), newVariableSet},
		{variableAddDefinition(), newVariableAdd},
		{dataTransformDefinition(), newDataTransform},
		{logMessageDefinition(), newLogMessage},
	}

	var errs []error
	for _, p := range plugins {
		if err := reg.Register(p.def, p.ctor); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// leaf is the base of every built-in plugin. A leaf depends on its own plugin.
type leaf struct {
	expression.Base
}

func (l *leaf) CalculateDependencies() domain.DependencySet {
	return domain.NewDependencySet(domain.DependencyRef{Type: domain.DependencyPlugin, Name: l.PluginID()})
}

type initializer interface {
	expression.Expression
	Init(self expression.Expression, def domain.PluginDefinition, config map[string]any) error
}

func build(e initializer, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	if err := e.Init(e, def, config); err != nil {
		return nil, err
	}
	return e, nil
}

func definitions(defs ...*domain.ContextDefinition) map[string]*domain.ContextDefinition {
	out := make(map[string]*domain.ContextDefinition, len(defs))
	for _, d := range defs {
		out[d.Name()] = d
	}
	return out
}

func optionError(plugin, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", domain.ErrInvalidConfiguration, plugin, fmt.Sprintf(format, args...))
}
