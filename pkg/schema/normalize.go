package schema

import (
	"encoding/json"
	"math"
)

// Normalize repairs values that lost their Go type on a round trip through a
// decoder. Whole float64 and json.Number values declared as int become int64;
// json.Number declared as float becomes float64; decoded []any slices are
// normalized element-wise. Anything else is returned unchanged.
func Normalize(t Type, value any) any {
	switch typ := t.(type) {
	case *IntType:
		switch v := value.(type) {
		case float64:
			if v == math.Trunc(v) {
				return int64(v)
			}
		case json.Number:
			if n, err := v.Int64(); err == nil {
				return n
			}
		}
	case *FloatType:
		if v, ok := value.(json.Number); ok {
			if f, err := v.Float64(); err == nil {
				return f
			}
		}
	case *SliceType:
		items, ok := value.([]any)
		if !ok {
			return value
		}
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = Normalize(typ.elemType, item)
		}
		return out
	}
	return value
}
