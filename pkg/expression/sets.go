package expression

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/state"
)

// Plugin ids of the built-in composites.
const (
	AndID       = "rules_and"
	OrID        = "rules_or"
	ActionSetID = "rules_action_set"
	RuleID      = "rules_rule"
)

// AndSet passes when every child passes. Children run in order and
// evaluation stops at the first failing one. An empty set fails.
type AndSet struct {
	Composite
}

func newAndSet(f Factory, def domain.PluginDefinition, config map[string]any) (Expression, error) {
	a := &AndSet{}
	if err := a.InitComposite(a, f, def, config); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *AndSet) ExecuteWithState(ctx context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	if len(a.children) == 0 {
		return a.ConditionResult(false), nil
	}
	for _, child := range a.children {
		out, err := Evaluate(ctx, child, st)
		if err != nil {
			return domain.Outcome{}, err
		}
		if !out.Passed {
			return a.ConditionResult(false), nil
		}
	}
	return a.ConditionResult(true), nil
}

// OrSet passes when any child passes. Children run in order and evaluation
// stops at the first passing one. A child error counts as not passing. An
// empty set passes.
type OrSet struct {
	Composite
}

func newOrSet(f Factory, def domain.PluginDefinition, config map[string]any) (Expression, error) {
	o := &OrSet{}
	if err := o.InitComposite(o, f, def, config); err != nil {
		return nil, err
	}
	return o, nil
}

func (o *OrSet) ExecuteWithState(ctx context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	if len(o.children) == 0 {
		return o.ConditionResult(true), nil
	}
	for _, child := range o.children {
		out, err := Evaluate(ctx, child, st)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return domain.Outcome{}, err
			}
			st.Logger().Debug("or-set child failed, trying next", "plugin", child.PluginID(), "uuid", child.UUID(), "error", err)
			continue
		}
		if out.Passed {
			return o.ConditionResult(true), nil
		}
	}
	return o.ConditionResult(false), nil
}

// ActionSet runs every child in order. The first failing child aborts the set.
type ActionSet struct {
	Composite
}

func newActionSet(f Factory, def domain.PluginDefinition, config map[string]any) (Expression, error) {
	s := &ActionSet{}
	if err := s.InitComposite(s, f, def, config); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ActionSet) ExecuteWithState(ctx context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	for i, child := range s.children {
		if _, err := Evaluate(ctx, child, st); err != nil {
			return domain.Outcome{}, fmt.Errorf("action %d (%s): %w", i, child.PluginID(), err)
		}
	}
	return domain.ActionDone(), nil
}
