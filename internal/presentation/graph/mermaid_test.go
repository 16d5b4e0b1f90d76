package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/rules/internal/presentation/graph"
	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/plugins"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTree(t *testing.T) expression.Expression {
	t.Helper()
	reg := expression.NewRegistry()
	require.NoError(t, plugins.Register(reg))
	tree, err := reg.Create(map[string]any{
		"id":    expression.RuleID,
		"label": "Greeting",
		"conditions": []any{
			map[string]any{"id": plugins.BooleanID, "label": `Is "ready"`, "negate": true},
		},
		"actions": []any{
			map[string]any{"id": plugins.LogMessageID, "context_values": map[string]any{"message": "hi"}},
		},
	})
	require.NoError(t, err)
	return tree
}

func TestGenerateMermaid(t *testing.T) {
	tree := buildTree(t)
	got := graph.GenerateMermaid(tree, nil)

	tests := []struct {
		name string
		want string
	}{
		{"Header", "graph TD\n"},
		{"Rule Shape", `n0[["Greeting"]]`},
		{"Condition Set Shape", `n1[["And"]]`},
		{"Negated Condition", `n2{"NOT Is 'ready'"}`},
		{"Action Shape", `n4["Log a message"]`},
		{"Rule To Conditions", "n0 --> n1"},
		{"Conditions To Child", "n1 --> n2"},
		{"Rule To Actions", "n0 --> n3"},
		{"Actions To Child", "n3 --> n4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !strings.Contains(got, tt.want) {
				t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, tt.want)
			}
		})
	}
	assert.NotContains(t, got, "classDef")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	tree := buildTree(t)
	rule := tree.(*expression.Rule)

	got := graph.GenerateMermaid(tree, &graph.GraphOverlay{
		Statuses: map[string]domain.Status{
			tree.UUID():              domain.StatusFailed,
			rule.Conditions().UUID(): domain.StatusCompleted,
		},
	})

	assert.Contains(t, got, "classDef completed")
	assert.Contains(t, got, "class n0 failed;")
	assert.Contains(t, got, "class n1 completed;")
	assert.NotContains(t, got, "class n2")
}
