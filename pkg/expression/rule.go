package expression

import (
	"context"
	"fmt"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/state"
)

// Configuration keys of a rule.
const (
	ConditionsKey = "conditions"
	ActionsKey    = "actions"
)

// Rule runs its actions when all of its conditions pass. A rule without
// conditions always runs its actions. Its two children are an AndSet and an
// ActionSet.
type Rule struct {
	Composite
	conditions Expression
	actions    Expression
}

func newRule(f Factory, def domain.PluginDefinition, config map[string]any) (Expression, error) {
	r := &Rule{}
	if err := r.InitComposite(r, f, def, config); err != nil {
		return nil, err
	}
	return r, nil
}

// ApplyConfiguration builds the condition and action sets. A set whose key
// is absent is kept as it is; a new rule starts with empty sets.
func (r *Rule) ApplyConfiguration(config map[string]any) error {
	if r.factory == nil {
		return fmt.Errorf("%w: rule has no factory for nested expressions", domain.ErrInvalidConfiguration)
	}
	conds, err := ChildConfigs(config, ConditionsKey)
	if err != nil {
		return err
	}
	acts, err := ChildConfigs(config, ActionsKey)
	if err != nil {
		return err
	}
	delete(config, ConditionsKey)
	delete(config, ActionsKey)
	delete(config, ExpressionsKey)

	conditions, actions := r.conditions, r.actions
	if conds != nil || conditions == nil {
		if conditions, err = r.factory.Create(map[string]any{"id": AndID, ExpressionsKey: toAnySlice(conds)}); err != nil {
			return fmt.Errorf("conditions: %w", err)
		}
	}
	if acts != nil || actions == nil {
		if actions, err = r.factory.Create(map[string]any{"id": ActionSetID, ExpressionsKey: toAnySlice(acts)}); err != nil {
			return fmt.Errorf("actions: %w", err)
		}
	}
	if conditions == r.conditions && actions == r.actions {
		return nil
	}
	if conditions != r.conditions && actions != r.actions {
		if err := distinctUUIDs([]Expression{conditions, actions}); err != nil {
			return err
		}
	}

	if conditions != r.conditions && r.conditions != nil {
		r.conditions.base().release()
	}
	if actions != r.actions && r.actions != nil {
		r.actions.base().release()
	}
	r.children = nil
	for _, child := range []Expression{conditions, actions} {
		if child.base().IsRoot() {
			if err := r.AddExpression(child); err != nil {
				return err
			}
			continue
		}
		r.children = append(r.children, child)
	}
	r.conditions, r.actions = conditions, actions
	return nil
}

// Conditions returns the condition set.
func (r *Rule) Conditions() *AndSet { return r.conditions.(*AndSet) }

// Actions returns the action set.
func (r *Rule) Actions() *ActionSet { return r.actions.(*ActionSet) }

// Configuration lists the conditions and actions instead of raw children.
func (r *Rule) Configuration() map[string]any {
	out := r.Base.Configuration()
	out[ConditionsKey] = childConfigurations(r.conditions)
	out[ActionsKey] = childConfigurations(r.actions)
	return out
}

func (r *Rule) ExecuteWithState(ctx context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	if len(r.Conditions().children) > 0 {
		passed, err := Evaluate(ctx, r.conditions, st)
		if err != nil {
			return domain.Outcome{}, err
		}
		if !passed.Passed {
			return domain.Outcome{Kind: domain.KindRuleSet, Passed: false}, nil
		}
	}
	if _, err := Evaluate(ctx, r.actions, st); err != nil {
		return domain.Outcome{}, err
	}
	return domain.Outcome{Kind: domain.KindRuleSet, Passed: true}, nil
}

func childConfigurations(e Expression) []any {
	c, ok := e.(interface{ Expressions() []Expression })
	if !ok {
		return nil
	}
	out := []any{}
	for _, child := range c.Expressions() {
		out = append(out, child.Configuration())
	}
	return out
}

func toAnySlice(configs []map[string]any) []any {
	out := make([]any, len(configs))
	for i, c := range configs {
		out[i] = c
	}
	return out
}
