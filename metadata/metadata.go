// Package metadata provides predicate filtering over vector metadata.
//
// A filter is a conjunction of per-field predicates evaluated against a
// candidate's metadata object before ranking, so filtering never truncates
// an already-selected top-k.
package metadata

import (
	"fmt"

	"github.com/stratadb/strata/value"
)

// Operator identifies a filter predicate.
type Operator string

const (
	// OpEqual matches values that compare equal.
	OpEqual Operator = "eq"
	// OpNotEqual matches values that do not compare equal.
	OpNotEqual Operator = "ne"
	// OpGreaterThan matches numeric values strictly greater than the operand.
	OpGreaterThan Operator = "gt"
	// OpGreaterEqual matches numeric values greater than or equal to the operand.
	OpGreaterEqual Operator = "gte"
	// OpLessThan matches numeric values strictly less than the operand.
	OpLessThan Operator = "lt"
	// OpLessEqual matches numeric values less than or equal to the operand.
	OpLessEqual Operator = "lte"
	// OpIn matches values equal to any element of the operand array.
	OpIn Operator = "in"
	// OpContains matches string fields containing the operand substring, or
	// array fields containing an equal element.
	OpContains Operator = "contains"
)

// ParseOperator validates a wire-level operator name.
func ParseOperator(s string) (Operator, error) {
	switch op := Operator(s); op {
	case OpEqual, OpNotEqual, OpGreaterThan, OpGreaterEqual, OpLessThan, OpLessEqual, OpIn, OpContains:
		return op, nil
	default:
		return "", fmt.Errorf("unknown filter operator %q", s)
	}
}

// Filter is a single per-field predicate.
type Filter struct {
	Field    string
	Operator Operator
	Value    value.Value
}

// FilterSet is a conjunction of filters (AND logic).
type FilterSet struct {
	Filters []Filter
}

// NewFilterSet creates a FilterSet from the given filters.
func NewFilterSet(filters ...Filter) *FilterSet {
	return &FilterSet{Filters: filters}
}

// Eq builds an equality filter.
func Eq(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpEqual, Value: v}
}

// Ne builds an inequality filter.
func Ne(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpNotEqual, Value: v}
}

// Gt builds a greater-than filter.
func Gt(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpGreaterThan, Value: v}
}

// Gte builds a greater-or-equal filter.
func Gte(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpGreaterEqual, Value: v}
}

// Lt builds a less-than filter.
func Lt(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpLessThan, Value: v}
}

// Lte builds a less-or-equal filter.
func Lte(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpLessEqual, Value: v}
}

// In builds a set-membership filter; v should be an array value.
func In(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpIn, Value: v}
}

// Contains builds a containment filter.
func Contains(field string, v value.Value) Filter {
	return Filter{Field: field, Operator: OpContains, Value: v}
}
