package value

import (
	"fmt"
	"strconv"
	"strings"
)

// RootPath addresses a whole document.
const RootPath = "$"

type segment struct {
	field string
	index int
	isIdx bool
}

// parsePath parses a JSONPath-style address. Supported forms: "$",
// "$.a.b", "$.items[2].name". Returns the parsed segments (empty for root).
func parsePath(path string) ([]segment, error) {
	if path == "" || path == RootPath {
		if path == "" {
			return nil, fmt.Errorf("empty path")
		}
		return nil, nil
	}
	if !strings.HasPrefix(path, RootPath) {
		return nil, fmt.Errorf("path %q must start with %q", path, RootPath)
	}
	rest := path[len(RootPath):]
	var segs []segment
	for len(rest) > 0 {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			end := strings.IndexAny(rest, ".[")
			if end == -1 {
				end = len(rest)
			}
			if end == 0 {
				return nil, fmt.Errorf("path %q has an empty field segment", path)
			}
			segs = append(segs, segment{field: rest[:end]})
			rest = rest[end:]
		case '[':
			end := strings.IndexByte(rest, ']')
			if end == -1 {
				return nil, fmt.Errorf("path %q has an unterminated index", path)
			}
			idx, err := strconv.Atoi(rest[1:end])
			if err != nil || idx < 0 {
				return nil, fmt.Errorf("path %q has an invalid index %q", path, rest[1:end])
			}
			segs = append(segs, segment{index: idx, isIdx: true})
			rest = rest[end+1:]
		default:
			return nil, fmt.Errorf("unexpected character %q in path %q", rest[0], path)
		}
	}
	return segs, nil
}

// GetPath resolves path within doc. The second return is false when any
// segment is missing or of the wrong shape.
func GetPath(doc Value, path string) (Value, bool, error) {
	segs, err := parsePath(path)
	if err != nil {
		return Value{}, false, err
	}
	cur := doc
	for _, s := range segs {
		if s.isIdx {
			arr, ok := cur.AsArray()
			if !ok || s.index >= len(arr) {
				return Value{}, false, nil
			}
			cur = arr[s.index]
			continue
		}
		obj, ok := cur.AsObject()
		if !ok {
			return Value{}, false, nil
		}
		cur, ok = obj[s.field]
		if !ok {
			return Value{}, false, nil
		}
	}
	return cur, true, nil
}

// SetPath returns a copy of doc with the value at path replaced by v.
// Missing intermediate objects are created; setting an array index past the
// current length is an error. The input document is never mutated.
func SetPath(doc Value, path string, v Value) (Value, error) {
	segs, err := parsePath(path)
	if err != nil {
		return Value{}, err
	}
	if len(segs) == 0 {
		return v, nil
	}
	return setSegments(doc, segs, v)
}

func setSegments(cur Value, segs []segment, v Value) (Value, error) {
	if len(segs) == 0 {
		return v, nil
	}
	s := segs[0]
	if s.isIdx {
		arr, ok := cur.AsArray()
		if !ok {
			return Value{}, fmt.Errorf("cannot index into %s value", cur.Kind)
		}
		if s.index >= len(arr) {
			return Value{}, fmt.Errorf("index %d out of range (len %d)", s.index, len(arr))
		}
		out := make([]Value, len(arr))
		for i := range arr {
			out[i] = arr[i].Clone()
		}
		child, err := setSegments(out[s.index], segs[1:], v)
		if err != nil {
			return Value{}, err
		}
		out[s.index] = child
		return Array(out...), nil
	}

	var obj map[string]Value
	switch cur.Kind {
	case KindObject:
		obj = cur.O
	case KindNull, KindInvalid:
		// Missing intermediates materialize as objects.
		obj = nil
	default:
		return Value{}, fmt.Errorf("cannot set field %q on %s value", s.field, cur.Kind)
	}
	out := make(map[string]Value, len(obj)+1)
	for k, e := range obj {
		out[k] = e.Clone()
	}
	child, err := setSegments(out[s.field], segs[1:], v)
	if err != nil {
		return Value{}, err
	}
	out[s.field] = child
	return Object(out), nil
}

// DeletePath returns a copy of doc with the value at path removed, and
// whether anything was removed. Deleting the root yields a null value.
func DeletePath(doc Value, path string) (Value, bool, error) {
	segs, err := parsePath(path)
	if err != nil {
		return Value{}, false, err
	}
	if len(segs) == 0 {
		return Null(), !doc.IsNull(), nil
	}
	return deleteSegments(doc, segs)
}

func deleteSegments(cur Value, segs []segment) (Value, bool, error) {
	s := segs[0]
	if s.isIdx {
		arr, ok := cur.AsArray()
		if !ok || s.index >= len(arr) {
			return cur, false, nil
		}
		out := make([]Value, 0, len(arr))
		for i := range arr {
			out = append(out, arr[i].Clone())
		}
		if len(segs) == 1 {
			out = append(out[:s.index], out[s.index+1:]...)
			return Array(out...), true, nil
		}
		child, removed, err := deleteSegments(out[s.index], segs[1:])
		if err != nil || !removed {
			return cur, removed, err
		}
		out[s.index] = child
		return Array(out...), true, nil
	}

	obj, ok := cur.AsObject()
	if !ok {
		return cur, false, nil
	}
	if _, exists := obj[s.field]; !exists {
		return cur, false, nil
	}
	out := make(map[string]Value, len(obj))
	for k, e := range obj {
		out[k] = e.Clone()
	}
	if len(segs) == 1 {
		delete(out, s.field)
		return Object(out), true, nil
	}
	child, removed, err := deleteSegments(out[s.field], segs[1:])
	if err != nil || !removed {
		return cur, removed, err
	}
	out[s.field] = child
	return Object(out), true, nil
}
