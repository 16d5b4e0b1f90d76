package expression_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

// fixedCondition returns its "value" option and counts its calls.
type fixedCondition struct {
	expression.Base
	calls *int
	value bool
}

func (f *fixedCondition) ApplyConfiguration(cfg map[string]any) error {
	var opts struct {
		Value bool `mapstructure:"value"`
	}
	if err := expression.Decode(cfg, &opts); err != nil {
		return err
	}
	f.value = opts.Value
	return nil
}

func (f *fixedCondition) ExecuteWithState(context.Context, *state.ExecutionState) (domain.Outcome, error) {
	*f.calls++
	return f.ConditionResult(f.value), nil
}

// failing always returns errBoom.
type failing struct {
	expression.Base
}

func (f *failing) ExecuteWithState(context.Context, *state.ExecutionState) (domain.Outcome, error) {
	return domain.Outcome{}, errBoom
}

// copyInput provides its "input" context value as "output".
type copyInput struct {
	expression.Base
}

func (c *copyInput) ExecuteWithState(_ context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	values, err := c.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	if err := c.Provide(st, "output", values["input"]); err != nil {
		return domain.Outcome{}, err
	}
	return domain.ActionDone(), nil
}

// testRegistry returns a registry with the fixture plugins and a pointer to
// the shared call counter of "fixed".
func testRegistry(t *testing.T) (*expression.Registry, *int) {
	t.Helper()
	calls := new(int)
	reg := expression.NewRegistry()

	require.NoError(t, reg.Register(
		domain.PluginDefinition{ID: "fixed", Label: "Fixed", Kind: domain.KindCondition, FormClass: expression.ConfigurationForm},
		func(_ expression.Factory, def domain.PluginDefinition, cfg map[string]any) (expression.Expression, error) {
			f := &fixedCondition{calls: calls}
			if err := f.Init(f, def, cfg); err != nil {
				return nil, err
			}
			return f, nil
		},
	))
	require.NoError(t, reg.Register(
		domain.PluginDefinition{ID: "failing", Kind: domain.KindCondition, FormClass: "missing_form"},
		func(_ expression.Factory, def domain.PluginDefinition, cfg map[string]any) (expression.Expression, error) {
			f := &failing{}
			if err := f.Init(f, def, cfg); err != nil {
				return nil, err
			}
			return f, nil
		},
	))
	require.NoError(t, reg.Register(
		domain.PluginDefinition{
			ID:    "copy",
			Label: "Copy",
			Kind:  domain.KindAction,
			Context: map[string]*domain.ContextDefinition{
				"input": domain.NewContextDefinition("input", schema.Any()),
			},
			Provides: map[string]*domain.ContextDefinition{
				"output": domain.NewContextDefinition("output", schema.Any()),
			},
		},
		func(_ expression.Factory, def domain.PluginDefinition, cfg map[string]any) (expression.Expression, error) {
			c := &copyInput{}
			if err := c.Init(c, def, cfg); err != nil {
				return nil, err
			}
			return c, nil
		},
	))
	return reg, calls
}

func fixed(v bool) map[string]any {
	return map[string]any{"id": "fixed", "value": v}
}

type memorySaver struct {
	saved []domain.Variable
}

func (m *memorySaver) Save(_ context.Context, v domain.Variable) error {
	m.saved = append(m.saved, v)
	return nil
}
