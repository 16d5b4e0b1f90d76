package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aretw0/rules/pkg/schema"
	"github.com/mitchellh/mapstructure"
)

// ContextDefinition describes one named input or output slot of an expression.
// It is immutable; the With* methods return modified copies.
type ContextDefinition struct {
	name         string
	dataType     schema.Type
	label        string
	description  string
	required     bool
	multiple     bool
	explicit     bool
	hasDefault   bool
	defaultValue any
}

// definitionConfig is the array form accepted by CreateFromArray.
type definitionConfig struct {
	Type         string `mapstructure:"type"`
	Label        string `mapstructure:"label"`
	Description  string `mapstructure:"description"`
	Required     *bool  `mapstructure:"required"`
	Multiple     bool   `mapstructure:"multiple"`
	Default      any    `mapstructure:"default"`
	DefaultValue any    `mapstructure:"default_value"`
}

// NewContextDefinition creates a required definition of the given type.
// A nil type means "any".
func NewContextDefinition(name string, dataType schema.Type) *ContextDefinition {
	if dataType == nil {
		dataType = schema.Any()
	}
	return &ContextDefinition{
		name:     name,
		dataType: dataType,
		required: true,
		explicit: !schema.IsAny(dataType),
	}
}

// CreateFromArray builds a definition from its configuration mapping:
//
//	{type: "string", label?: ..., description?: ..., required?: true,
//	 multiple?: false, default?: <value>}
//
// "type" is mandatory and must be a known tag; "required" defaults to true.
// Unknown keys and defaults that do not satisfy the type are rejected.
func CreateFromArray(name string, config map[string]any) (*ContextDefinition, error) {
	var cfg definitionConfig
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, &InvalidDefinitionError{Name: name, Reason: "decoder setup", Err: err}
	}
	if err := dec.Decode(config); err != nil {
		return nil, &InvalidDefinitionError{Name: name, Reason: "malformed definition", Err: err}
	}

	if cfg.Type == "" {
		return nil, &InvalidDefinitionError{Name: name, Reason: "missing required key \"type\""}
	}
	base, err := schema.ParseType(cfg.Type)
	if err != nil {
		return nil, &InvalidDefinitionError{Name: name, Reason: "unrecognized type", Err: err}
	}

	def := &ContextDefinition{
		name:        name,
		dataType:    base,
		label:       cfg.Label,
		description: cfg.Description,
		required:    true,
		multiple:    cfg.Multiple,
		explicit:    !schema.IsAny(base),
	}
	if cfg.Required != nil {
		def.required = *cfg.Required
	}
	if cfg.Multiple {
		def.dataType = schema.Slice(base)
	}

	_, hasDefault := config["default"]
	defaultValue := cfg.Default
	if _, ok := config["default_value"]; ok {
		hasDefault = true
		defaultValue = cfg.DefaultValue
	}
	if hasDefault && defaultValue != nil {
		defaultValue = schema.Normalize(def.dataType, defaultValue)
		if err := def.dataType.Validate(defaultValue); err != nil {
			return nil, &InvalidDefinitionError{Name: name, Reason: "default does not match type", Err: err}
		}
		def.hasDefault = true
		def.defaultValue = defaultValue
	}

	return def, nil
}

// CreateDefinitions converts a whole "context_definitions" or
// "provided_definitions" mapping. Every entry must itself be a mapping.
func CreateDefinitions(config map[string]any) (map[string]*ContextDefinition, error) {
	defs := make(map[string]*ContextDefinition, len(config))
	for _, name := range sortedKeys(config) {
		raw, ok := AsMap(config[name])
		if !ok {
			return nil, &InvalidDefinitionError{
				Name:   name,
				Reason: fmt.Sprintf("expected a mapping, got %T", config[name]),
			}
		}
		def, err := CreateFromArray(name, raw)
		if err != nil {
			return nil, err
		}
		defs[name] = def
	}
	return defs, nil
}

func (d *ContextDefinition) Name() string { return d.name }
func (d *ContextDefinition) DataType() schema.Type { return d.dataType }
func (d *ContextDefinition) Label() string { return d.label }
func (d *ContextDefinition) Description() string { return d.description }
func (d *ContextDefinition) Required() bool { return d.required }
func (d *ContextDefinition) Multiple() bool { return d.multiple }
func (d *ContextDefinition) DefaultValue() (any, bool) { return d.defaultValue, d.hasDefault }

// Explicit reports whether the type was declared concretely. Only definitions
// declared as "any" are refined from upstream type information.
func (d *ContextDefinition) Explicit() bool { return d.explicit }

// WithDataType returns a copy carrying a refined type. The explicit flag of
// the original declaration is kept so refinement stays repeatable.
func (d *ContextDefinition) WithDataType(t schema.Type) *ContextDefinition {
	c := *d
	c.dataType = t
	return &c
}

// WithLabel returns a labelled copy.
func (d *ContextDefinition) WithLabel(label string) *ContextDefinition {
	c := *d
	c.label = label
	return &c
}

// Optional returns a copy that is not required.
func (d *ContextDefinition) Optional() *ContextDefinition {
	c := *d
	c.required = false
	return &c
}

// WithDefault returns a copy with a default value. The value is not validated;
// static plugin definitions are trusted.
func (d *ContextDefinition) WithDefault(v any) *ContextDefinition {
	c := *d
	c.hasDefault = true
	c.defaultValue = v
	return &c
}

// ToArray is the inverse of CreateFromArray.
func (d *ContextDefinition) ToArray() map[string]any {
	typeName := d.dataType.Name()
	if st, ok := d.dataType.(*schema.SliceType); ok && d.multiple {
		typeName = st.Elem().Name()
	}
	out := map[string]any{
		"type":     typeName,
		"required": d.required,
	}
	if d.multiple {
		out["multiple"] = true
	}
	if d.label != "" {
		out["label"] = d.label
	}
	if d.description != "" {
		out["description"] = d.description
	}
	if d.hasDefault {
		out["default"] = d.defaultValue
	}
	return out
}

func (d *ContextDefinition) MarshalJSON() ([]byte, error) {
	out := d.ToArray()
	out["name"] = d.name
	out["type"] = d.dataType.Name()
	return json.Marshal(out)
}

// CloneDefinitions returns a shallow copy of a definition map; definitions are immutable.
func CloneDefinitions(defs map[string]*ContextDefinition) map[string]*ContextDefinition {
	out := make(map[string]*ContextDefinition, len(defs))
	for k, v := range defs {
		out[k] = v
	}
	return out
}

// AsMap converts decoded configuration values (map[string]any or the
// map[any]any some YAML decoders produce) into a string-keyed map.
func AsMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			key, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[key] = val
		}
		return out, true
	}
	return nil, false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
