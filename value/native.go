package value

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FromNative converts a decoded-JSON Go value (nil, bool, float64, int64,
// string, []byte, []any, map[string]any) into a Value. Whole floats decoded
// from JSON stay floats; use Int explicitly for integer semantics.
func FromNative(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Value{}, fmt.Errorf("non-finite number %v", t)
		}
		return Float(t), nil
	case string:
		return String(t), nil
	case []byte:
		return Bytes(t), nil
	case []any:
		elems := make([]Value, len(t))
		for i, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			elems[i] = ev
		}
		return Array(elems...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			ev, err := FromNative(e)
			if err != nil {
				return Value{}, err
			}
			fields[k] = ev
		}
		return Object(fields), nil
	case Value:
		return t, nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", v)
	}
}

// ToNative converts a Value into the corresponding Go representation
// (nil, bool, int64, float64, string, []byte, []any, map[string]any).
func (v Value) ToNative() any {
	switch v.Kind {
	case KindBool:
		return v.B
	case KindInt:
		return v.I64
	case KindFloat:
		return v.F64
	case KindString:
		return v.S
	case KindBytes:
		return v.Y
	case KindArray:
		out := make([]any, len(v.A))
		for i := range v.A {
			out[i] = v.A[i].ToNative()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.O))
		for k, e := range v.O {
			out[k] = e.ToNative()
		}
		return out
	default:
		return nil
	}
}

// Text renders the value as plain text for keyword indexing and snippets.
// Strings render bare, scalars via strconv, bytes as base64, and composites
// as their space-joined element texts.
func (v Value) Text() string {
	var sb strings.Builder
	v.appendText(&sb)
	return sb.String()
}

func (v Value) appendText(sb *strings.Builder) {
	switch v.Kind {
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.B))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.I64, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.F64, 'g', -1, 64))
	case KindString:
		sb.WriteString(v.S)
	case KindBytes:
		sb.WriteString(base64.StdEncoding.EncodeToString(v.Y))
	case KindArray:
		for i := range v.A {
			if i > 0 {
				sb.WriteByte(' ')
			}
			v.A[i].appendText(sb)
		}
	case KindObject:
		first := true
		for k, e := range v.O {
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sb.WriteString(k)
			sb.WriteByte(' ')
			e.appendText(sb)
		}
	}
}
