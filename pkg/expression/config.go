package expression

import (
	"fmt"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Decode decodes a configuration mapping into a typed struct using
// mapstructure tags. Keys the struct does not declare are ignored.
func Decode(config map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	return dec.Decode(config)
}

// ChildConfigs reads a list of nested expression configurations.
func ChildConfigs(config map[string]any, key string) ([]map[string]any, error) {
	raw, ok := config[key]
	if !ok || raw == nil {
		return nil, nil
	}
	items, ok := raw.([]any)
	if !ok {
		if typed, ok := raw.([]map[string]any); ok {
			return typed, nil
		}
		return nil, fmt.Errorf("%w: %q must be a list, got %T", domain.ErrInvalidConfiguration, key, raw)
	}
	out := make([]map[string]any, 0, len(items))
	for i, item := range items {
		m, ok := domain.AsMap(item)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a mapping, got %T", domain.ErrInvalidConfiguration, key, i, item)
		}
		out = append(out, m)
	}
	return out, nil
}

func copyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case map[any]any:
		if m, ok := domain.AsMap(t); ok {
			return copyMap(m)
		}
		return t
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyValue(item)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = copyMap(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case map[string]string:
		out := make(map[string]string, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
