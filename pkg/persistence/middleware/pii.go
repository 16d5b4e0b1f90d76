package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/ports"
	"github.com/aretw0/rules/pkg/schema"
)

// Mask replaces every masked value.
const Mask = "***"

type piiMiddleware struct {
	next     ports.VariableStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks variables whose name
// matches one of the patterns, and map entries whose key does, at any depth.
// A masked variable is stored as the string Mask.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pii pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.VariableStore) ports.VariableStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, v domain.Variable) error {
	if matches(v.Name, m.patterns) {
		return m.next.Save(ctx, domain.Variable{Name: v.Name, Type: schema.String(), Value: Mask})
	}
	// Deep clone so the execution state keeps the clear values.
	if sub, ok := v.Value.(map[string]any); ok {
		cloned := deepCopyMap(sub)
		maskMap(cloned, m.patterns)
		v.Value = cloned
	}
	return m.next.Save(ctx, v)
}

func (m *piiMiddleware) Load(ctx context.Context, name string) (domain.Variable, error) {
	return m.next.Load(ctx, name)
}

func (m *piiMiddleware) Delete(ctx context.Context, name string) error {
	return m.next.Delete(ctx, name)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

// Helpers

func matches(key string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		if matches(k, patterns) {
			m[k] = Mask
			continue
		}
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
