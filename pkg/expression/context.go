package expression

import (
	"fmt"
	"slices"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
)

// ContextVariableName returns the state variable a context definition reads,
// following "context_mapping".
func (b *Base) ContextVariableName(name string) string {
	if v, ok := b.options.ContextMapping[name]; ok && v != "" {
		return v
	}
	return name
}

// ProvidedVariableName returns the state variable a provided definition
// writes, following "provides_mapping".
func (b *Base) ProvidedVariableName(name string) string {
	if v, ok := b.options.ProvidesMapping[name]; ok && v != "" {
		return v
	}
	return name
}

// ContextValues resolves every context definition against the state.
// A literal in "context_values" wins, then the mapped variable, then the
// definition default. Required definitions that resolve to nothing fail with
// an *domain.UndefinedVariableError; optional ones are omitted. Values that
// do not satisfy their type are collected into a *schema.AggregateError
// wrapped with domain.ErrTypeMismatch.
func (b *Base) ContextValues(st *state.ExecutionState) (map[string]any, error) {
	defs := b.self.ContextDefinitions()
	out := make(map[string]any, len(defs))
	var invalid []error
	for _, name := range sortedNames(defs) {
		def := defs[name]
		value, found, err := b.resolve(st, def)
		if err != nil {
			return nil, err
		}
		if !found {
			if def.Required() {
				return nil, &domain.UndefinedVariableError{Name: b.ContextVariableName(name), Plugin: b.def.ID}
			}
			continue
		}
		value = schema.Normalize(def.DataType(), value)
		if err := def.DataType().Validate(value); err != nil {
			invalid = append(invalid, &schema.ValidationError{Key: name, Reason: err.Error(), Value: value})
			continue
		}
		out[name] = value
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrTypeMismatch, b.def.ID, &schema.AggregateError{Errors: invalid})
	}
	return out, nil
}

func (b *Base) resolve(st *state.ExecutionState, def *domain.ContextDefinition) (any, bool, error) {
	name := def.Name()
	if v, ok := b.options.ContextValues[name]; ok {
		return v, true, nil
	}
	varName := b.ContextVariableName(name)
	if st.Has(varName) {
		v, err := st.Get(varName)
		return v, err == nil, err
	}
	if v, ok := def.DefaultValue(); ok {
		return v, true, nil
	}
	return nil, false, nil
}

// Provide writes the value of a provided definition into the state under
// its mapped variable name, and registers it for auto-save when the
// definition or variable is listed in "auto_save".
func (b *Base) Provide(st *state.ExecutionState, name string, value any) error {
	def, ok := b.self.ProvidedDefinitions()[name]
	if !ok {
		return fmt.Errorf("%s: %q is not a provided definition", b.def.ID, name)
	}
	varName := b.ProvidedVariableName(name)
	if err := st.Set(varName, value, def.DataType()); err != nil {
		return fmt.Errorf("%s: %w", b.def.ID, err)
	}
	if slices.Contains(b.options.AutoSave, name) || slices.Contains(b.options.AutoSave, varName) {
		st.RegisterAutoSave(varName)
	}
	return nil
}

// providedVariables maps the variables a node writes to their types.
func (b *Base) providedVariables() map[string]schema.Type {
	defs := b.self.ProvidedDefinitions()
	out := make(map[string]schema.Type, len(defs))
	for name, def := range defs {
		out[b.ProvidedVariableName(name)] = def.DataType()
	}
	return out
}

// ProvidedVariables returns the state variables e writes, with their types,
// including those of every descendant.
func ProvidedVariables(e Expression) map[string]schema.Type {
	if c, ok := e.(interface{ composite() *Composite }); ok {
		return c.composite().providedVariables()
	}
	return e.base().providedVariables()
}

func sortedNames(defs map[string]*domain.ContextDefinition) []string {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ContextLiteral returns the "context_values" literal of a context definition.
func (b *Base) ContextLiteral(name string) (any, bool) {
	v, ok := b.options.ContextValues[name]
	return v, ok
}
