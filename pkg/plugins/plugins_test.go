package plugins_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/aretw0/rules/internal/logging"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/plugins"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *expression.Registry {
	t.Helper()
	reg := expression.NewRegistry()
	require.NoError(t, plugins.Register(reg))
	return reg
}

func evaluate(t *testing.T, reg *expression.Registry, config map[string]any, vars ...domain.Variable) (domain.Outcome, *state.ExecutionState, error) {
	t.Helper()
	e, err := reg.Create(config)
	require.NoError(t, err)
	st := state.New(state.WithVariables(vars...))
	out, err := expression.Evaluate(context.Background(), e, st)
	return out, st, err
}

func TestRegister_Twice(t *testing.T) {
	reg := newRegistry(t)
	err := plugins.Register(reg)
	assert.ErrorIs(t, err, domain.ErrDuplicatePlugin)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name  string
		data  any
		op    string
		value any
		want  bool
	}{
		{"Int Equals Float", 3, plugins.OpEqual, 3.0, true},
		{"Int64 Equals Int", int64(3), plugins.OpEqual, 3, true},
		{"Strings Differ", "a", plugins.OpNotEqual, "b", true},
		{"Less", 1, plugins.OpLess, 2, true},
		{"Less Equal", 2, plugins.OpLessEqual, 2, true},
		{"Greater", 2.5, plugins.OpGreater, 2, true},
		{"Greater Equal False", 1, plugins.OpGreaterEqual, 2, false},
		{"String Order", "apple", plugins.OpLess, "banana", true},
		{"Substring", "hello world", plugins.OpContains, "world", true},
		{"List Element", []any{1, 2, 3}, plugins.OpContains, 2.0, true},
		{"Map Key", map[string]any{"a": 1}, plugins.OpContains, "a", true},
		{"In List", "b", plugins.OpIn, []string{"a", "b"}, true},
		{"Not In List", "z", plugins.OpIn, []string{"a", "b"}, false},
		{"Deep Equal", []any{"x"}, plugins.OpEqual, []any{"x"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := plugins.Compare(tt.data, tt.op, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := plugins.Compare(true, plugins.OpLess, 1)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = plugins.Compare(5, plugins.OpContains, 1)
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestDataComparison(t *testing.T) {
	reg := newRegistry(t)

	out, _, err := evaluate(t, reg, map[string]any{
		"id":             plugins.DataComparisonID,
		"operator":       ">=",
		"context_values": map[string]any{"value": 18},
	}, domain.Variable{Name: "data", Value: 21, Type: schema.Int()})
	require.NoError(t, err)
	assert.True(t, out.Passed)

	out, _, err = evaluate(t, reg, map[string]any{
		"id":              plugins.DataComparisonID,
		"negate":          true,
		"context_mapping": map[string]any{"data": "age"},
		"context_values":  map[string]any{"value": 18},
	}, domain.Variable{Name: "age", Value: 18, Type: schema.Int()})
	require.NoError(t, err)
	assert.False(t, out.Passed, "negated equality")

	_, err = reg.Create(map[string]any{"id": plugins.DataComparisonID, "operator": "~="})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, _, err = evaluate(t, reg, map[string]any{"id": plugins.DataComparisonID})
	var undefined *domain.UndefinedVariableError
	assert.True(t, errors.As(err, &undefined))
}

func TestDataIsEmpty(t *testing.T) {
	reg := newRegistry(t)

	for _, tt := range []struct {
		value any
		want  bool
	}{
		{"", true},
		{"x", false},
		{[]any{}, true},
		{[]any{1}, false},
		{map[string]any{}, true},
		{0, true},
		{1.5, false},
		{false, true},
		{nil, true},
	} {
		out, _, err := evaluate(t, reg, map[string]any{
			"id": plugins.DataIsEmptyID,
		}, domain.Variable{Name: "data", Value: tt.value})
		require.NoError(t, err)
		assert.Equal(t, tt.want, out.Passed, "value %#v", tt.value)
	}
}

func TestExpression(t *testing.T) {
	reg := newRegistry(t)

	out, _, err := evaluate(t, reg, map[string]any{
		"id":         plugins.ExpressionID,
		"expression": `user.age >= 18 && "admin" in roles`,
	},
		domain.Variable{Name: "user", Value: map[string]any{"age": 30}},
		domain.Variable{Name: "roles", Value: []any{"admin", "dev"}},
	)
	require.NoError(t, err)
	assert.True(t, out.Passed)

	out, _, err = evaluate(t, reg, map[string]any{"id": plugins.ExpressionID, "expression": "missing == nil"})
	require.NoError(t, err)
	assert.True(t, out.Passed, "undefined variables evaluate to nil")

	_, err = reg.Create(map[string]any{"id": plugins.ExpressionID, "expression": "1 +"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	_, err = reg.Create(map[string]any{"id": plugins.ExpressionID, "expression": `"not bool"`})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestBoolean(t *testing.T) {
	reg := newRegistry(t)

	out, _, err := evaluate(t, reg, map[string]any{"id": plugins.BooleanID})
	require.NoError(t, err)
	assert.True(t, out.Passed)

	out, _, err = evaluate(t, reg, map[string]any{"id": plugins.BooleanID, "value": true, "negate": true})
	require.NoError(t, err)
	assert.False(t, out.Passed)

	e, err := reg.Create(map[string]any{"id": plugins.BooleanID})
	require.NoError(t, err)
	assert.True(t, e.CalculateDependencies().Contains(domain.DependencyRef{Type: domain.DependencyPlugin, Name: plugins.BooleanID}))
}

func TestVariableSet(t *testing.T) {
	reg := newRegistry(t)

	_, st, err := evaluate(t, reg, map[string]any{
		"id":             plugins.VariableSetID,
		"name":           "greeting",
		"type":           "string",
		"context_values": map[string]any{"value": "hi"},
		"auto_save":      []any{"greeting"},
	})
	require.NoError(t, err)

	v, err := st.Variable("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hi", v.Value)
	assert.Equal(t, "string", v.TypeName())
	assert.Equal(t, []string{"greeting"}, st.AutoSaveNames())

	_, _, err = evaluate(t, reg, map[string]any{
		"id":             plugins.VariableSetID,
		"name":           "count",
		"type":           "int",
		"context_values": map[string]any{"value": "three"},
	})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = reg.Create(map[string]any{"id": plugins.VariableSetID})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	e, err := reg.Create(map[string]any{"id": plugins.VariableSetID, "name": "n", "type": "int"})
	require.NoError(t, err)
	assert.Equal(t, "int", e.ProvidedDefinitions()["n"].DataType().Name())
}

func TestVariableAdd(t *testing.T) {
	reg := newRegistry(t)

	_, st, err := evaluate(t, reg, map[string]any{
		"id":               plugins.VariableAddID,
		"amount":           5,
		"provides_mapping": map[string]any{"result": "total"},
	}, domain.Variable{Name: "data", Value: int64(10), Type: schema.Int()})
	require.NoError(t, err)

	got, err := st.Get("total")
	require.NoError(t, err)
	assert.Equal(t, int64(15), got)

	_, _, err = evaluate(t, reg, map[string]any{"id": plugins.VariableAddID},
		domain.Variable{Name: "data", Value: "ten"})
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestDataTransform(t *testing.T) {
	reg := newRegistry(t)
	data := map[string]any{"items": []any{map[string]any{"n": 1}, map[string]any{"n": 2}}}

	_, st, err := evaluate(t, reg, map[string]any{
		"id":    plugins.DataTransformID,
		"query": "[.items[].n] | add",
	}, domain.Variable{Name: "data", Value: data})
	require.NoError(t, err)
	got, _ := st.Get("result")
	assert.EqualValues(t, 3, got)

	_, st, err = evaluate(t, reg, map[string]any{
		"id":    plugins.DataTransformID,
		"query": ".items[].n",
	}, domain.Variable{Name: "data", Value: data})
	require.NoError(t, err)
	got, _ = st.Get("result")
	assert.Len(t, got, 2, "several results become a list")

	_, _, err = evaluate(t, reg, map[string]any{
		"id":    plugins.DataTransformID,
		"query": "error(\"bad\")",
	}, domain.Variable{Name: "data", Value: data})
	assert.Error(t, err)

	_, err = reg.Create(map[string]any{"id": plugins.DataTransformID, "query": ".[["})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestLogMessage(t *testing.T) {
	reg := newRegistry(t)
	var buf bytes.Buffer
	logger := logging.NewWithWriter(&buf, slog.LevelDebug, logging.FormatJSON)

	e, err := reg.Create(map[string]any{
		"id":             plugins.LogMessageID,
		"level":          "warn",
		"context_values": map[string]any{"message": "order flagged"},
	})
	require.NoError(t, err)

	st := state.New(state.WithLogger(logger))
	_, err = expression.Evaluate(context.Background(), e, st)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"order flagged"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)

	_, err = reg.Create(map[string]any{"id": plugins.LogMessageID, "level": "loud"})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}

func TestBuiltins_OverriddenDefinitions(t *testing.T) {
	reg := newRegistry(t)
	optional := func(typ string) map[string]any {
		return map[string]any{"type": typ, "required": false}
	}

	tests := []struct {
		name    string
		config  map[string]any
		vars    []domain.Variable
		wantErr error
	}{
		{
			name: "Log Message Optional",
			config: map[string]any{"id": plugins.LogMessageID,
				"context_definitions": map[string]any{"message": optional("string")}},
		},
		{
			name: "Log Message Untyped",
			config: map[string]any{"id": plugins.LogMessageID,
				"context_definitions": map[string]any{"message": map[string]any{"type": "any"}}},
			vars:    []domain.Variable{{Name: "message", Value: int64(5)}},
			wantErr: domain.ErrTypeMismatch,
		},
		{
			name: "Log Message Required",
			config: map[string]any{"id": plugins.LogMessageID,
				"context_definitions": map[string]any{"message": map[string]any{"type": "string", "required": true}}},
			wantErr: domain.ErrUndefinedVariable,
		},
		{
			name: "Variable Add Optional",
			config: map[string]any{"id": plugins.VariableAddID,
				"context_definitions": map[string]any{"data": optional("int")}},
			wantErr: domain.ErrTypeMismatch,
		},
		{
			name: "Variable Add Retyped",
			config: map[string]any{"id": plugins.VariableAddID,
				"context_definitions": map[string]any{"data": map[string]any{"type": "string"}}},
			vars:    []domain.Variable{{Name: "data", Value: "ten", Type: schema.String()}},
			wantErr: domain.ErrTypeMismatch,
		},
		{
			name: "Variable Add Unsigned Overflow",
			config: map[string]any{"id": plugins.VariableAddID,
				"context_definitions": map[string]any{"data": map[string]any{"type": "any"}}},
			vars:    []domain.Variable{{Name: "data", Value: uint64(math.MaxUint64)}},
			wantErr: domain.ErrTypeMismatch,
		},
		{
			name: "Variable Set Optional",
			config: map[string]any{"id": plugins.VariableSetID, "name": "n", "type": "int",
				"context_definitions": map[string]any{"value": optional("any")}},
			wantErr: domain.ErrTypeMismatch,
		},
		{
			name: "Data Comparison Optional",
			config: map[string]any{"id": plugins.DataComparisonID, "operator": ">",
				"context_definitions": map[string]any{"data": optional("any")},
				"context_values":      map[string]any{"value": 1}},
			wantErr: domain.ErrTypeMismatch,
		},
		{
			name: "Data Comparison Retyped",
			config: map[string]any{"id": plugins.DataComparisonID, "operator": ">",
				"context_definitions": map[string]any{"data": map[string]any{"type": "string"}},
				"context_values":      map[string]any{"value": 1}},
			vars:    []domain.Variable{{Name: "data", Value: "abc", Type: schema.String()}},
			wantErr: domain.ErrTypeMismatch,
		},
		{
			name: "Data Is Empty Optional",
			config: map[string]any{"id": plugins.DataIsEmptyID,
				"context_definitions": map[string]any{"data": optional("any")}},
		},
		{
			name: "Data Transform Optional",
			config: map[string]any{"id": plugins.DataTransformID,
				"context_definitions": map[string]any{"data": optional("any")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			assert.NotPanics(t, func() {
				_, _, err = evaluate(t, reg, tt.config, tt.vars...)
			})
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRuleWithPlugins(t *testing.T) {
	reg := newRegistry(t)
	rule, err := reg.Create(map[string]any{
		"id": expression.RuleID,
		"conditions": []any{
			map[string]any{"id": plugins.ExpressionID, "expression": "score > 10"},
		},
		"actions": []any{
			map[string]any{"id": plugins.VariableAddID, "context_mapping": map[string]any{"data": "score"}, "amount": 100, "auto_save": []any{"result"}},
		},
	})
	require.NoError(t, err)

	rule.RefineContextDefinitions(map[string]schema.Type{"score": schema.Int()})

	var saved []domain.Variable
	saver := saverFunc(func(v domain.Variable) { saved = append(saved, v) })
	st := state.New(
		state.WithSaver(saver),
		state.WithVariables(domain.Variable{Name: "score", Value: 42, Type: schema.Int()}),
	)
	out, err := expression.Evaluate(context.Background(), rule, st)
	require.NoError(t, err)
	require.NoError(t, st.AutoSave(context.Background()))

	assert.True(t, out.Passed)
	require.Len(t, saved, 1)
	assert.Equal(t, int64(142), saved[0].Value)

	deps := rule.CalculateDependencies().Sorted()
	assert.Equal(t, []domain.DependencyRef{
		{Type: domain.DependencyPlugin, Name: plugins.ExpressionID},
		{Type: domain.DependencyPlugin, Name: plugins.VariableAddID},
	}, deps)
}

type saverFunc func(domain.Variable)

func (f saverFunc) Save(_ context.Context, v domain.Variable) error {
	f(v)
	return nil
}
