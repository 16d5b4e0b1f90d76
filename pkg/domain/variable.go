package domain

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/rules/pkg/schema"
)

// Variable is one typed value held by an execution state.
type Variable struct {
	Name  string
	Value any
	Type  schema.Type
}

// TypeName returns the tag of the variable type, "any" when unset.
func (v Variable) TypeName() string {
	if v.Type == nil {
		return "any"
	}
	return v.Type.Name()
}

type variableJSON struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

func (v Variable) MarshalJSON() ([]byte, error) {
	return json.Marshal(variableJSON{Name: v.Name, Type: v.TypeName(), Value: v.Value})
}

// UnmarshalJSON restores the type from its tag and normalizes the value so
// integers come back as int64 rather than float64.
func (v *Variable) UnmarshalJSON(data []byte) error {
	var raw variableJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Type == "" {
		raw.Type = "any"
	}
	typ, err := schema.ParseType(raw.Type)
	if err != nil {
		return fmt.Errorf("variable %s: %w", raw.Name, err)
	}
	v.Name = raw.Name
	v.Type = typ
	v.Value = schema.Normalize(typ, raw.Value)
	return nil
}
