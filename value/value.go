// Package value provides the closed tagged-union value type used by every
// Strata primitive.
//
// The representation is designed to make comparisons and filtering fast and
// predictable: no reflection and no fmt-based stringification.
package value

import (
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindNull represents a null value.
	KindNull
	// KindBool represents a boolean value.
	KindBool
	// KindInt represents an integer value.
	KindInt
	// KindFloat represents a float value.
	KindFloat
	// KindString represents a string value.
	KindString
	// KindBytes represents a binary value.
	KindBytes
	// KindArray represents an array value.
	KindArray
	// KindObject represents an object value.
	KindObject
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "invalid"
	}
}

// Value is the typed JSON-like value stored in Strata primitives.
//
// NOTE: This is also used for persistence; keep the field layout stable.
type Value struct {
	Kind Kind             `json:"k"`
	B    bool             `json:"b,omitempty"`
	I64  int64            `json:"i,omitempty"`
	F64  float64          `json:"f,omitempty"`
	S    string           `json:"s,omitempty"`
	Y    []byte           `json:"y,omitempty"`
	A    []Value          `json:"a,omitempty"`
	O    map[string]Value `json:"o,omitempty"`
}

// Null returns a null Value.
func Null() Value { return Value{Kind: KindNull} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{Kind: KindBool, B: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{Kind: KindInt, I64: i} }

// Float returns a float Value.
func Float(f float64) Value { return Value{Kind: KindFloat, F64: f} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, S: s} }

// Bytes returns a binary Value. The slice is not copied.
func Bytes(b []byte) Value { return Value{Kind: KindBytes, Y: b} }

// Array returns an array Value containing the given elements.
func Array(elems ...Value) Value { return Value{Kind: KindArray, A: elems} }

// Object returns an object Value backed by the given map.
func Object(fields map[string]Value) Value { return Value{Kind: KindObject, O: fields} }

// IsNull reports whether the value is null (or invalid).
func (v Value) IsNull() bool { return v.Kind == KindNull || v.Kind == KindInvalid }

// AsBool returns the boolean value if Kind is KindBool.
func (v Value) AsBool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	return v.B, true
}

// AsInt64 returns the int64 value if Kind is KindInt.
func (v Value) AsInt64() (int64, bool) {
	if v.Kind != KindInt {
		return 0, false
	}
	return v.I64, true
}

// AsFloat64 returns the numeric value as float64 if Kind is KindInt or KindFloat.
func (v Value) AsFloat64() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.I64), true
	case KindFloat:
		return v.F64, true
	default:
		return 0, false
	}
}

// AsString returns the string value if Kind is KindString.
func (v Value) AsString() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return v.S, true
}

// AsArray returns the array value if Kind is KindArray.
func (v Value) AsArray() ([]Value, bool) {
	if v.Kind != KindArray {
		return nil, false
	}
	return v.A, true
}

// AsObject returns the object value if Kind is KindObject.
func (v Value) AsObject() (map[string]Value, bool) {
	if v.Kind != KindObject {
		return nil, false
	}
	return v.O, true
}

// IsNumber reports whether the value is an int or float.
func (v Value) IsNumber() bool { return v.Kind == KindInt || v.Kind == KindFloat }

// Clone returns a deep copy of the value.
func (v Value) Clone() Value {
	switch v.Kind {
	case KindBytes:
		if v.Y == nil {
			return v
		}
		y := make([]byte, len(v.Y))
		copy(y, v.Y)
		v.Y = y
	case KindArray:
		if v.A == nil {
			return v
		}
		a := make([]Value, len(v.A))
		for i := range v.A {
			a[i] = v.A[i].Clone()
		}
		v.A = a
	case KindObject:
		if v.O == nil {
			return v
		}
		o := make(map[string]Value, len(v.O))
		for k, e := range v.O {
			o[k] = e.Clone()
		}
		v.O = o
	}
	return v
}

// Equal reports deep equality. Int and float values compare numerically,
// so Int(1) equals Float(1.0).
func Equal(a, b Value) bool {
	if a.IsNumber() && b.IsNumber() {
		if a.Kind == KindInt && b.Kind == KindInt {
			return a.I64 == b.I64
		}
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return af == bf
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull, KindInvalid:
		return true
	case KindBool:
		return a.B == b.B
	case KindString:
		return a.S == b.S
	case KindBytes:
		if len(a.Y) != len(b.Y) {
			return false
		}
		for i := range a.Y {
			if a.Y[i] != b.Y[i] {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.A) != len(b.A) {
			return false
		}
		for i := range a.A {
			if !Equal(a.A[i], b.A[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.O) != len(b.O) {
			return false
		}
		for k, av := range a.O {
			bv, ok := b.O[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Key returns a stable string representation for use in maps.
//
// It is intended for internal indexing (inverted indexes, conflict detection)
// and must remain stable across versions.
func (v Value) Key() string {
	var sb strings.Builder
	v.appendKey(&sb)
	return sb.String()
}

func (v Value) appendKey(sb *strings.Builder) {
	switch v.Kind {
	case KindNull, KindInvalid:
		sb.WriteString("null")
	case KindBool:
		if v.B {
			sb.WriteString("b:1")
		} else {
			sb.WriteString("b:0")
		}
	case KindInt:
		sb.WriteString("i:")
		sb.WriteString(strconv.FormatInt(v.I64, 10))
	case KindFloat:
		sb.WriteString("f:")
		sb.WriteString(strconv.FormatUint(math.Float64bits(v.F64), 16))
	case KindString:
		sb.WriteString("s:")
		sb.WriteString(v.S)
	case KindBytes:
		sb.WriteString("y:")
		sb.Write(v.Y)
	case KindArray:
		sb.WriteString("a:")
		for i := range v.A {
			if i > 0 {
				sb.WriteByte('\x1f')
			}
			v.A[i].appendKey(sb)
		}
	case KindObject:
		sb.WriteString("o:")
		keys := make([]string, 0, len(v.O))
		for k := range v.O {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte('\x1f')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			e := v.O[k]
			e.appendKey(sb)
		}
	}
}
