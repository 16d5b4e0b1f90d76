package main

import (
	"testing"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVar(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		want     any
	}{
		{"Int", "count=int:3", "int", int64(3)},
		{"Float", "ratio=float:0.5", "float", 0.5},
		{"Bool", "ok=bool:true", "bool", true},
		{"String Keeps Raw Text", "name=string:007", "string", "007"},
		{"Untyped", "name=hello", "any", "hello"},
		{"Colon In Untyped Value", "url=http://example.com", "any", "http://example.com"},
		{"List", "tags=[string]:[a, b]", "[string]", []any{"a", "b"}},
		{"Map", "user=map:{name: ada}", "map", map[string]any{"name": "ada"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := parseVar(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, v.TypeName())
			assert.Equal(t, tt.want, v.Value)
		})
	}
}

func TestParseVar_Errors(t *testing.T) {
	_, err := parseVar("=int:1")
	assert.Error(t, err)

	_, err = parseVar("novalue")
	assert.Error(t, err)

	_, err = parseVar("count=int:abc")
	assert.ErrorIs(t, err, domain.ErrTypeMismatch)

	_, err = parseVars([]string{"a=1", "a=2"})
	assert.Error(t, err)
}
