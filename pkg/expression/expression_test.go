package expression_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_EmptyDefinitions(t *testing.T) {
	reg, _ := testRegistry(t)

	e, err := reg.Create(fixed(true))
	require.NoError(t, err)

	assert.NotNil(t, e.ContextDefinitions())
	assert.Empty(t, e.ContextDefinitions())
	assert.NotNil(t, e.ProvidedDefinitions())
	assert.Empty(t, e.ProvidedDefinitions())
	assert.Equal(t, domain.StatusConfigured, e.Status())
	assert.NotEmpty(t, e.UUID())
}

func TestBase_ConfiguredDefinitions(t *testing.T) {
	reg, _ := testRegistry(t)

	e, err := reg.Create(map[string]any{
		"id": "copy",
		"context_definitions": map[string]any{
			"input": map[string]any{"type": "int", "label": "Input"},
			"extra": map[string]any{"type": "string", "required": false},
		},
		"provided_definitions": map[string]any{
			"output": map[string]any{"type": "int"},
		},
	})
	require.NoError(t, err)

	defs := e.ContextDefinitions()
	require.Len(t, defs, 2)
	assert.Equal(t, "int", defs["input"].DataType().Name(), "caller definitions replace static ones")
	assert.Equal(t, "Input", defs["input"].Label())
	assert.False(t, defs["extra"].Required())
	assert.Equal(t, "int", e.ProvidedDefinitions()["output"].DataType().Name())
}

func TestBase_InvalidDefinition(t *testing.T) {
	reg, _ := testRegistry(t)

	_, err := reg.Create(map[string]any{
		"id": "fixed",
		"context_definitions": map[string]any{
			"x": map[string]any{"label": "no type"},
		},
	})
	require.Error(t, err)

	var invalid *domain.InvalidDefinitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "x", invalid.Name)
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)

	_, err = reg.Create(map[string]any{"id": "fixed", "context_definitions": "nope"})
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
}

func TestBase_ConfigureKeepsPreviousOnError(t *testing.T) {
	reg, _ := testRegistry(t)
	e, err := reg.Create(map[string]any{"id": "fixed", "value": true, "label": "Before"})
	require.NoError(t, err)

	err = e.Configure(map[string]any{"label": "After", "context_definitions": map[string]any{"x": map[string]any{"type": "nope"}}})
	require.Error(t, err)
	assert.Equal(t, "Before", e.Label())
}

func TestBase_Configuration(t *testing.T) {
	reg, _ := testRegistry(t)
	e, err := reg.Create(map[string]any{
		"id":             "copy",
		"context_values": map[string]any{"input": []any{1, 2}},
	})
	require.NoError(t, err)

	cfg := e.Configuration()
	assert.Equal(t, "copy", cfg["id"])

	cfg["context_values"].(map[string]any)["input"] = "mutated"
	again := e.Configuration()
	assert.Equal(t, []any{1, 2}, again["context_values"].(map[string]any)["input"], "configuration is a deep copy")
}

func TestBase_Label(t *testing.T) {
	reg, _ := testRegistry(t)

	labelled, err := reg.Create(fixed(true))
	require.NoError(t, err)
	assert.Equal(t, "Fixed", labelled.Label())

	unlabelled, err := reg.Create(map[string]any{"id": "failing"})
	require.NoError(t, err)
	assert.Equal(t, "<failing>", unlabelled.Label())

	custom, err := reg.Create(map[string]any{"id": "fixed", "label": "Custom"})
	require.NoError(t, err)
	assert.Equal(t, "Custom", custom.Label())
}

func TestBase_Root(t *testing.T) {
	reg, _ := testRegistry(t)

	leaf, err := reg.Create(fixed(true))
	require.NoError(t, err)
	assert.Same(t, leaf, leaf.Root(), "an unadopted node is its own root")

	inner, err := reg.Create(map[string]any{"id": expression.AndID})
	require.NoError(t, err)
	require.NoError(t, inner.(*expression.AndSet).AddExpression(leaf))
	assert.Same(t, inner, leaf.Root())

	middle, err := reg.Create(map[string]any{"id": expression.OrID})
	require.NoError(t, err)
	require.NoError(t, middle.(*expression.OrSet).AddExpression(inner))

	top, err := reg.Create(map[string]any{"id": expression.AndID})
	require.NoError(t, err)
	require.NoError(t, top.(*expression.AndSet).AddExpression(middle))

	assert.Same(t, top, leaf.Root(), "root is the top-most ancestor at any depth")
	assert.Same(t, top, inner.Root())
	assert.Same(t, top, top.Root())
}

func TestBase_SetRootErrors(t *testing.T) {
	reg, _ := testRegistry(t)

	parent, err := reg.Create(map[string]any{"id": expression.AndID})
	require.NoError(t, err)
	other, err := reg.Create(map[string]any{"id": expression.AndID})
	require.NoError(t, err)
	leaf, err := reg.Create(fixed(true))
	require.NoError(t, err)

	require.NoError(t, leaf.SetRoot(parent))
	assert.ErrorIs(t, leaf.SetRoot(other), domain.ErrAlreadyAdopted)

	assert.ErrorIs(t, parent.SetRoot(leaf), domain.ErrCycle)
	assert.ErrorIs(t, parent.SetRoot(parent), domain.ErrCycle)
}

func TestBase_DuplicateUUID(t *testing.T) {
	reg, _ := testRegistry(t)
	pinned := func(id string) map[string]any {
		cfg := fixed(true)
		cfg["uuid"] = id
		return cfg
	}

	_, err := reg.Create(map[string]any{
		"id":          expression.AndID,
		"expressions": []any{pinned("a"), pinned("a")},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	set, err := reg.Create(map[string]any{
		"id":          expression.AndID,
		"expressions": []any{pinned("a"), pinned("b")},
	})
	require.NoError(t, err)

	twin, err := reg.Create(pinned("a"))
	require.NoError(t, err)
	assert.ErrorIs(t, set.(*expression.AndSet).AddExpression(twin), domain.ErrInvalidConfiguration)
	assert.Same(t, twin, twin.Root())

	second := set.(*expression.AndSet).Expressions()[1]
	assert.ErrorIs(t, second.Configure(pinned("a")), domain.ErrInvalidConfiguration)
	assert.Equal(t, "b", second.UUID())
	require.NoError(t, second.Configure(pinned("c")))
	assert.Equal(t, "c", second.UUID())
}

func TestBase_ConfigEntityID(t *testing.T) {
	reg, _ := testRegistry(t)
	e, err := reg.Create(fixed(true))
	require.NoError(t, err)

	assert.Empty(t, e.ConfigEntityID())
	e.SetConfigEntityID("checkout_rules")
	assert.Equal(t, "checkout_rules", e.ConfigEntityID())
}

func TestBase_ContextValues(t *testing.T) {
	reg, _ := testRegistry(t)

	t.Run("Mapped Variable", func(t *testing.T) {
		e, err := reg.Create(map[string]any{
			"id":               "copy",
			"context_mapping":  map[string]any{"input": "source"},
			"provides_mapping": map[string]any{"output": "target"},
		})
		require.NoError(t, err)

		st := state.New()
		require.NoError(t, st.Set("source", "hello", schema.String()))

		_, err = e.ExecuteWithState(context.Background(), st)
		require.NoError(t, err)

		got, err := st.Get("target")
		require.NoError(t, err)
		assert.Equal(t, "hello", got)
	})

	t.Run("Literal Value", func(t *testing.T) {
		e, err := reg.Create(map[string]any{
			"id":             "copy",
			"context_values": map[string]any{"input": 42},
		})
		require.NoError(t, err)

		st := state.New()
		_, err = e.ExecuteWithState(context.Background(), st)
		require.NoError(t, err)
		got, _ := st.Get("output")
		assert.Equal(t, 42, got)
	})

	t.Run("Default Value", func(t *testing.T) {
		e, err := reg.Create(map[string]any{
			"id": "copy",
			"context_definitions": map[string]any{
				"input": map[string]any{"type": "string", "default": "fallback"},
			},
		})
		require.NoError(t, err)

		st := state.New()
		_, err = e.ExecuteWithState(context.Background(), st)
		require.NoError(t, err)
		got, _ := st.Get("output")
		assert.Equal(t, "fallback", got)
	})

	t.Run("Type Mismatch", func(t *testing.T) {
		e, err := reg.Create(map[string]any{
			"id": "copy",
			"context_definitions": map[string]any{
				"input": map[string]any{"type": "int"},
			},
		})
		require.NoError(t, err)

		st := state.New()
		require.NoError(t, st.Set("input", "not a number", nil))
		_, err = e.ExecuteWithState(context.Background(), st)
		assert.ErrorIs(t, err, domain.ErrTypeMismatch)
	})

	t.Run("Every Mismatch Reported", func(t *testing.T) {
		e, err := reg.Create(map[string]any{
			"id": "copy",
			"context_definitions": map[string]any{
				"input": map[string]any{"type": "int"},
				"extra": map[string]any{"type": "bool"},
			},
			"context_values": map[string]any{"input": "x", "extra": "y"},
		})
		require.NoError(t, err)

		_, err = e.ExecuteWithState(context.Background(), state.New())
		require.ErrorIs(t, err, domain.ErrTypeMismatch)

		errs := schema.ValidationErrors(err)
		require.Len(t, errs, 2)
		var first *schema.ValidationError
		require.True(t, errors.As(errs[0], &first))
		assert.Equal(t, "extra", first.Key)
	})
}

func TestBase_UndefinedVariable(t *testing.T) {
	reg, _ := testRegistry(t)
	e, err := reg.Create(map[string]any{"id": "copy", "context_mapping": map[string]any{"input": "missing"}})
	require.NoError(t, err)

	_, err = expression.Execute(context.Background(), e)
	require.Error(t, err)

	var undefined *domain.UndefinedVariableError
	require.True(t, errors.As(err, &undefined))
	assert.Equal(t, "missing", undefined.Name)
	assert.Equal(t, "copy", undefined.Plugin)
}

func TestExecute_MatchesExecuteWithStateAndAutoSave(t *testing.T) {
	reg, _ := testRegistry(t)
	cfg := map[string]any{
		"id":             "copy",
		"context_values": map[string]any{"input": "v"},
		"auto_save":      []any{"output"},
	}

	e, err := reg.Create(cfg)
	require.NoError(t, err)
	viaExecute := &memorySaver{}
	out, err := expression.Execute(context.Background(), e, expression.WithSaver(viaExecute))
	require.NoError(t, err)

	manual := &memorySaver{}
	st := state.New(state.WithSaver(manual))
	manualOut, err := e.ExecuteWithState(context.Background(), st)
	require.NoError(t, err)
	require.NoError(t, st.AutoSave(context.Background()))

	assert.Equal(t, manualOut, out)
	require.Len(t, viaExecute.saved, 1)
	assert.Equal(t, manual.saved, viaExecute.saved)
	assert.Equal(t, "output", viaExecute.saved[0].Name)
}

func TestExecute_NoAutoSaveOnFailure(t *testing.T) {
	reg, _ := testRegistry(t)
	set, err := reg.Create(map[string]any{
		"id": expression.ActionSetID,
		"expressions": []any{
			map[string]any{"id": "copy", "context_values": map[string]any{"input": 1}, "auto_save": []any{"output"}},
			map[string]any{"id": "failing"},
		},
	})
	require.NoError(t, err)

	saver := &memorySaver{}
	_, err = expression.Execute(context.Background(), set, expression.WithSaver(saver))
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, saver.saved)
}

func TestExecute_Hooks(t *testing.T) {
	reg, _ := testRegistry(t)
	root, err := reg.Create(map[string]any{
		"id":          expression.AndID,
		"expressions": []any{fixed(true)},
	})
	require.NoError(t, err)

	var entered, left []string
	hooks := domain.LifecycleHooks{
		OnEnter: func(_ context.Context, e *domain.ExpressionEvent) { entered = append(entered, e.PluginID) },
		OnLeave: func(_ context.Context, e *domain.ExpressionEvent) { left = append(left, e.PluginID) },
	}
	out, err := expression.Execute(context.Background(), root, expression.WithHooks(hooks))
	require.NoError(t, err)
	assert.True(t, out.Passed)
	assert.Equal(t, []string{expression.AndID, "fixed"}, entered)
	assert.Equal(t, []string{"fixed", expression.AndID}, left)
}

func TestEvaluate_Status(t *testing.T) {
	reg, _ := testRegistry(t)
	ok, err := reg.Create(fixed(true))
	require.NoError(t, err)
	bad, err := reg.Create(map[string]any{"id": "failing"})
	require.NoError(t, err)

	st := state.New()
	_, err = expression.Evaluate(context.Background(), ok, st)
	require.NoError(t, err)
	_, err = expression.Evaluate(context.Background(), bad, st)
	require.Error(t, err)

	status, _ := st.Status(ok.UUID())
	assert.Equal(t, domain.StatusCompleted, status)
	status, _ = st.Status(bad.UUID())
	assert.Equal(t, domain.StatusFailed, status)
	assert.Equal(t, domain.StatusConfigured, ok.Status(), "node status is not touched by evaluation")
}

func TestEvaluate_CancelledContext(t *testing.T) {
	reg, calls := testRegistry(t)
	e, err := reg.Create(fixed(true))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = expression.Evaluate(ctx, e, state.New())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, *calls)
}

func TestRefine_Idempotent(t *testing.T) {
	reg, _ := testRegistry(t)
	e, err := reg.Create(map[string]any{
		"id": "copy",
		"context_definitions": map[string]any{
			"input": map[string]any{"type": "any"},
			"fixed": map[string]any{"type": "string"},
		},
	})
	require.NoError(t, err)

	available := map[string]schema.Type{"input": schema.Int(), "fixed": schema.Int()}
	e.RefineContextDefinitions(available)
	first := e.ContextDefinitions()
	e.RefineContextDefinitions(available)
	second := e.ContextDefinitions()

	assert.Equal(t, domain.StatusRefined, e.Status())
	assert.Equal(t, "int", first["input"].DataType().Name())
	assert.Equal(t, "string", first["fixed"].DataType().Name(), "explicit types are not refined")
	for name := range first {
		assert.Equal(t, first[name].ToArray(), second[name].ToArray())
	}

	e.RefineContextDefinitions(map[string]schema.Type{})
	assert.Equal(t, "any", e.ContextDefinitions()["input"].DataType().Name(), "refinement restarts from declared definitions")
}

func TestNegate(t *testing.T) {
	reg, _ := testRegistry(t)
	e, err := reg.Create(map[string]any{"id": "fixed", "value": true, "negate": true})
	require.NoError(t, err)

	out, err := expression.Execute(context.Background(), e)
	require.NoError(t, err)
	assert.False(t, out.Passed)
	assert.True(t, e.(interface{ Negated() bool }).Negated())
}
