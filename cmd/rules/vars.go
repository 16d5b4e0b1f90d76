package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/schema"
	"gopkg.in/yaml.v3"
)

// parseVars converts repeated --var flags.
func parseVars(flags []string) ([]domain.Variable, error) {
	vars := make([]domain.Variable, 0, len(flags))
	seen := make(map[string]bool, len(flags))
	for _, f := range flags {
		v, err := parseVar(f)
		if err != nil {
			return nil, err
		}
		if seen[v.Name] {
			return nil, fmt.Errorf("variable %q given twice", v.Name)
		}
		seen[v.Name] = true
		vars = append(vars, v)
	}
	return vars, nil
}

// parseVar reads "name=type:value". The type is optional ("name=value" is an
// untyped string). Values of non-string types are read as YAML, so lists and
// maps can be written inline: tags=[string]:[a, b].
func parseVar(s string) (domain.Variable, error) {
	name, rest, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return domain.Variable{}, fmt.Errorf("invalid variable %q: want name=type:value", s)
	}

	typeName, raw, typed := strings.Cut(rest, ":")
	if !typed {
		return domain.Variable{Name: name, Type: schema.Any(), Value: rest}, nil
	}
	t, err := schema.ParseType(typeName)
	if err != nil {
		// Not a type tag: the colon belongs to the value.
		return domain.Variable{Name: name, Type: schema.Any(), Value: rest}, nil
	}

	var value any = raw
	if _, isString := t.(*schema.StringType); !isString {
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil {
			return domain.Variable{}, fmt.Errorf("variable %s: %w", name, err)
		}
		if n, isInt := value.(int); isInt {
			value = int64(n)
		}
		value = schema.Normalize(t, value)
	}
	if err := t.Validate(value); err != nil {
		return domain.Variable{}, fmt.Errorf("variable %s: %w: %w", name, domain.ErrTypeMismatch, err)
	}
	return domain.Variable{Name: name, Type: t, Value: value}, nil
}
