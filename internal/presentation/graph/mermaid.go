package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
)

// GraphOverlay contains per-evaluation state to visualize on the graph,
// keyed by node UUID.
type GraphOverlay struct {
	Statuses map[string]domain.Status
}

// GenerateMermaid produces a Mermaid flowchart of an expression tree.
// It applies semantic styling:
// - Rule set: [[Subroutine]]
// - Condition: {Rhombus}
// - Action: [Rectangle]
// Negated conditions are prefixed with NOT. Overlay statuses are applied as
// completed/failed classes.
func GenerateMermaid(root expression.Expression, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make(map[string]string)
	var stack []string
	expression.Walk(root, func(e expression.Expression, depth int) bool {
		id := fmt.Sprintf("n%d", len(ids))
		ids[e.UUID()] = id

		opener, closer := "[", "]"
		switch e.Kind() {
		case domain.KindRuleSet:
			opener, closer = "[[", "]]"
		case domain.KindCondition:
			opener, closer = "{", "}"
		}

		label := escape(e.Label())
		if negated(e) {
			label = "NOT " + label
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))

		stack = stack[:depth]
		if depth > 0 {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", stack[depth-1], id))
		}
		stack = append(stack, id)
		return true
	})

	if overlay != nil && len(overlay.Statuses) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef completed fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		expression.Walk(root, func(e expression.Expression, _ int) bool {
			switch overlay.Statuses[e.UUID()] {
			case domain.StatusCompleted:
				sb.WriteString(fmt.Sprintf("    class %s completed;\n", ids[e.UUID()]))
			case domain.StatusFailed:
				sb.WriteString(fmt.Sprintf("    class %s failed;\n", ids[e.UUID()]))
			}
			return true
		})
	}

	return sb.String()
}

func negated(e expression.Expression) bool {
	n, ok := e.(interface{ Negated() bool })
	return ok && n.Negated()
}

func escape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "<", "&lt;")
	return strings.ReplaceAll(s, ">", "&gt;")
}
