package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFromArray_RoundTrip(t *testing.T) {
	def, err := domain.CreateFromArray("user", map[string]any{"type": "string", "required": true})
	require.NoError(t, err)

	assert.Equal(t, "user", def.Name())
	assert.True(t, def.Required())
	assert.Equal(t, "string", def.DataType().Name())
	assert.True(t, def.Explicit())

	again, err := domain.CreateFromArray("user", def.ToArray())
	require.NoError(t, err)
	assert.Equal(t, def.ToArray(), again.ToArray())
}

func TestCreateFromArray_Defaults(t *testing.T) {
	def, err := domain.CreateFromArray("data", map[string]any{"type": "any"})
	require.NoError(t, err)

	assert.True(t, def.Required(), "required defaults to true")
	assert.False(t, def.Multiple())
	assert.False(t, def.Explicit(), "any is refinable")
	_, hasDefault := def.DefaultValue()
	assert.False(t, hasDefault)
}

func TestCreateFromArray_Options(t *testing.T) {
	def, err := domain.CreateFromArray("ids", map[string]any{
		"type":        "int",
		"label":       "Identifiers",
		"description": "Numeric ids",
		"required":    "false", // weakly typed input from YAML/forms
		"multiple":    true,
		"default":     []any{1.0, 2.0},
	})
	require.NoError(t, err)

	assert.False(t, def.Required())
	assert.True(t, def.Multiple())
	assert.Equal(t, "[int]", def.DataType().Name())
	assert.Equal(t, "Identifiers", def.Label())
	assert.Equal(t, "Numeric ids", def.Description())

	value, ok := def.DefaultValue()
	require.True(t, ok)
	assert.Equal(t, []any{int64(1), int64(2)}, value)

	arr := def.ToArray()
	assert.Equal(t, "int", arr["type"])
	assert.Equal(t, true, arr["multiple"])
}

func TestCreateFromArray_DefaultValueAlias(t *testing.T) {
	def, err := domain.CreateFromArray("n", map[string]any{"type": "integer", "default_value": 5})
	require.NoError(t, err)

	value, ok := def.DefaultValue()
	require.True(t, ok)
	assert.Equal(t, 5, value)
}

func TestCreateFromArray_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing type", map[string]any{"required": true}},
		{"unknown type", map[string]any{"type": "entity:node"}},
		{"unknown key", map[string]any{"type": "string", "colour": "red"}},
		{"bad default", map[string]any{"type": "int", "default": "seven"}},
		{"bad multiple default", map[string]any{"type": "int", "multiple": true, "default": 3}},
		{"non-bool required", map[string]any{"type": "string", "required": map[string]any{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.CreateFromArray("x", tt.config)
			require.Error(t, err)

			var defErr *domain.InvalidDefinitionError
			require.True(t, errors.As(err, &defErr), "got %T", err)
			assert.Equal(t, "x", defErr.Name)
			assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
		})
	}
}

func TestCreateDefinitions(t *testing.T) {
	defs, err := domain.CreateDefinitions(map[string]any{
		"a": map[string]any{"type": "string"},
		"b": map[any]any{"type": "bool", "required": false},
	})
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.False(t, defs["b"].Required())

	empty, err := domain.CreateDefinitions(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = domain.CreateDefinitions(map[string]any{"a": "string"})
	assert.ErrorIs(t, err, domain.ErrInvalidDefinition)
}

func TestContextDefinition_Copies(t *testing.T) {
	def := domain.NewContextDefinition("data", nil)
	assert.Equal(t, "any", def.DataType().Name())
	assert.False(t, def.Explicit())

	refined := def.WithDataType(schema.Int())
	assert.Equal(t, "int", refined.DataType().Name())
	assert.Equal(t, "any", def.DataType().Name(), "receiver is not mutated")
	assert.False(t, refined.Explicit(), "refinement keeps the declaration flag")

	optional := def.Optional().WithDefault("x").WithLabel("Data")
	assert.False(t, optional.Required())
	assert.True(t, def.Required())
	assert.Equal(t, "Data", optional.Label())
}

func TestContextDefinition_JSON(t *testing.T) {
	def := domain.NewContextDefinition("tags", schema.Slice(schema.String())).Optional()

	data, err := json.Marshal(def)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"tags","type":"[string]","required":false}`, string(data))
}
