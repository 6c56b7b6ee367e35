package metadata

import (
	"strings"

	"github.com/stratadb/strata/value"
)

// Matches checks if the provided metadata object matches this filter.
// A missing field never matches, including under OpNotEqual.
func (f Filter) Matches(doc value.Value) bool {
	obj, ok := doc.AsObject()
	if !ok {
		return false
	}
	v, exists := obj[f.Field]
	if !exists {
		return false
	}

	switch f.Operator {
	case OpEqual:
		return value.Equal(v, f.Value)
	case OpNotEqual:
		return !value.Equal(v, f.Value)
	case OpGreaterThan:
		return compareGreater(v, f.Value)
	case OpGreaterEqual:
		return compareGreater(v, f.Value) || value.Equal(v, f.Value)
	case OpLessThan:
		return compareLess(v, f.Value)
	case OpLessEqual:
		return compareLess(v, f.Value) || value.Equal(v, f.Value)
	case OpIn:
		return compareIn(v, f.Value)
	case OpContains:
		return compareContains(v, f.Value)
	default:
		return false
	}
}

// Matches checks if the metadata object matches all filters in the set.
func (fs *FilterSet) Matches(doc value.Value) bool {
	if fs == nil {
		return true
	}
	for _, filter := range fs.Filters {
		if !filter.Matches(doc) {
			return false
		}
	}
	return true
}

func compareGreater(a, b value.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return af > bf
	}
	if a.Kind == value.KindString && b.Kind == value.KindString {
		return a.S > b.S
	}
	return false
}

func compareLess(a, b value.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		af, _ := a.AsFloat64()
		bf, _ := b.AsFloat64()
		return af < bf
	}
	if a.Kind == value.KindString && b.Kind == value.KindString {
		return a.S < b.S
	}
	return false
}

func compareIn(a, b value.Value) bool {
	items, ok := b.AsArray()
	if !ok {
		return false
	}
	for _, item := range items {
		if value.Equal(a, item) {
			return true
		}
	}
	return false
}

func compareContains(a, b value.Value) bool {
	if elems, ok := a.AsArray(); ok {
		for _, e := range elems {
			if value.Equal(e, b) {
				return true
			}
		}
		return false
	}
	as, aok := a.AsString()
	bs, bok := b.AsString()
	if !aok || !bok {
		return false
	}
	return strings.Contains(as, bs)
}
