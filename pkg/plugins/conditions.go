package plugins

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
)

// Comparison operators of data_comparison.
const (
	OpEqual        = "=="
	OpNotEqual     = "!="
	OpLess         = "<"
	OpLessEqual    = "<="
	OpGreater      = ">"
	OpGreaterEqual = ">="
	OpContains     = "contains"
	OpIn           = "in"
)

var operators = map[string]bool{
	OpEqual: true, OpNotEqual: true, OpLess: true, OpLessEqual: true,
	OpGreater: true, OpGreaterEqual: true, OpContains: true, OpIn: true,
}

func dataComparisonDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          DataComparisonID,
		Label:       "Data comparison",
		Description: "Compares a value against another with an operator.",
		Kind:        domain.KindCondition,
		FormClass:   expression.ConfigurationForm,
		Context: definitions(
			domain.NewContextDefinition("data", schema.Any()).WithLabel("Data to compare"),
			domain.NewContextDefinition("value", schema.Any()).WithLabel("Data value"),
		),
	}
}

type dataComparison struct {
	leaf
	operator string
}

func newDataComparison(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	return build(&dataComparison{}, def, config)
}

func (c *dataComparison) DefaultConfiguration() map[string]any {
	return map[string]any{"operator": OpEqual}
}

func (c *dataComparison) ApplyConfiguration(config map[string]any) error {
	var opts struct {
		Operator string `mapstructure:"operator"`
	}
	if err := expression.Decode(config, &opts); err != nil {
		return err
	}
	op := strings.ToLower(strings.TrimSpace(opts.Operator))
	if !operators[op] {
		return optionError(DataComparisonID, "unknown operator %q", opts.Operator)
	}
	c.operator = op
	return nil
}

func (c *dataComparison) ExecuteWithState(_ context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	values, err := c.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	passed, err := Compare(values["data"], c.operator, values["value"])
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s: %w", DataComparisonID, err)
	}
	return c.ConditionResult(passed), nil
}

// Compare applies a comparison operator. Numbers of any Go numeric type
// compare by value; ordering operators also accept two strings.
func Compare(data any, op string, value any) (bool, error) {
	switch op {
	case OpEqual:
		return equal(data, value), nil
	case OpNotEqual:
		return !equal(data, value), nil
	case OpLess, OpLessEqual, OpGreater, OpGreaterEqual:
		cmp, err := order(data, value)
		if err != nil {
			return false, err
		}
		switch op {
		case OpLess:
			return cmp < 0, nil
		case OpLessEqual:
			return cmp <= 0, nil
		case OpGreater:
			return cmp > 0, nil
		default:
			return cmp >= 0, nil
		}
	case OpContains:
		return contains(data, value)
	case OpIn:
		return contains(value, data)
	}
	return false, fmt.Errorf("unknown operator %q", op)
}

func equal(a, b any) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		return fa == fb
	}
	return reflect.DeepEqual(a, b)
}

func order(a, b any) (int, error) {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if okA && okB {
		switch {
		case fa < fb:
			return -1, nil
		case fa > fb:
			return 1, nil
		}
		return 0, nil
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), nil
	}
	return 0, fmt.Errorf("%w: cannot order %T and %T", domain.ErrTypeMismatch, a, b)
}

// contains reports whether haystack holds needle: a substring for strings,
// an element for slices, a key for maps.
func contains(haystack, needle any) (bool, error) {
	if s, ok := haystack.(string); ok {
		n, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("%w: cannot search a string for %T", domain.ErrTypeMismatch, needle)
		}
		return strings.Contains(s, n), nil
	}

	rv := reflect.ValueOf(haystack)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if equal(rv.Index(i).Interface(), needle) {
				return true, nil
			}
		}
		return false, nil
	case reflect.Map:
		key := reflect.ValueOf(needle)
		if !key.IsValid() || !key.Type().AssignableTo(rv.Type().Key()) {
			return false, nil
		}
		return rv.MapIndex(key).IsValid(), nil
	}
	return false, fmt.Errorf("%w: %T is not a string, list or map", domain.ErrTypeMismatch, haystack)
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func dataIsEmptyDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          DataIsEmptyID,
		Label:       "Data value is empty",
		Description: "Passes when the value is nil, zero, false, or an empty string, list or map.",
		Kind:        domain.KindCondition,
		FormClass:   expression.ConfigurationForm,
		Context: definitions(
			domain.NewContextDefinition("data", schema.Any()).WithLabel("Data to check"),
		),
	}
}

type dataIsEmpty struct {
	leaf
}

func newDataIsEmpty(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	return build(&dataIsEmpty{}, def, config)
}

func (c *dataIsEmpty) ExecuteWithState(_ context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	values, err := c.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	return c.ConditionResult(isEmpty(values["data"])), nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Bool:
		return !rv.Bool()
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	if f, ok := toFloat(v); ok {
		return f == 0
	}
	return false
}

func booleanDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          BooleanID,
		Label:       "Constant",
		Description: "Always evaluates to the configured value.",
		Kind:        domain.KindCondition,
		FormClass:   expression.ConfigurationForm,
	}
}

type boolean struct {
	leaf
	value bool
}

func newBoolean(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	return build(&boolean{}, def, config)
}

func (c *boolean) DefaultConfiguration() map[string]any {
	return map[string]any{"value": true}
}

func (c *boolean) ApplyConfiguration(config map[string]any) error {
	var opts struct {
		Value bool `mapstructure:"value"`
	}
	if err := expression.Decode(config, &opts); err != nil {
		return err
	}
	c.value = opts.Value
	return nil
}

func (c *boolean) ExecuteWithState(context.Context, *state.ExecutionState) (domain.Outcome, error) {
	return c.ConditionResult(c.value), nil
}
