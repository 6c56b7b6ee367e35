package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stratadb/strata/value"
)

func doc(fields map[string]value.Value) value.Value {
	return value.Object(fields)
}

func TestFilterOperators(t *testing.T) {
	d := doc(map[string]value.Value{
		"category": value.String("book"),
		"price":    value.Float(12.5),
		"stock":    value.Int(3),
		"tags":     value.Array(value.String("new"), value.String("sale")),
	})

	tests := []struct {
		name   string
		filter Filter
		want   bool
	}{
		{"eq match", Eq("category", value.String("book")), true},
		{"eq miss", Eq("category", value.String("toy")), false},
		{"ne", Ne("category", value.String("toy")), true},
		{"gt", Gt("price", value.Float(10)), true},
		{"gt equal is false", Gt("price", value.Float(12.5)), false},
		{"gte equal", Gte("price", value.Float(12.5)), true},
		{"lt", Lt("stock", value.Int(5)), true},
		{"lte", Lte("stock", value.Int(3)), true},
		{"numeric cross-kind", Gt("stock", value.Float(2.5)), true},
		{"in", In("category", value.Array(value.String("toy"), value.String("book"))), true},
		{"in miss", In("category", value.Array(value.String("toy"))), false},
		{"contains array element", Contains("tags", value.String("sale")), true},
		{"contains substring", Contains("category", value.String("oo")), true},
		{"contains miss", Contains("tags", value.String("used")), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.filter.Matches(d))
		})
	}
}

func TestMissingFieldNeverMatches(t *testing.T) {
	d := doc(map[string]value.Value{"a": value.Int(1)})

	assert.False(t, Eq("missing", value.Int(1)).Matches(d))
	// ne on a missing field is still false.
	assert.False(t, Ne("missing", value.Int(1)).Matches(d))
}

func TestStringOrdering(t *testing.T) {
	d := doc(map[string]value.Value{"name": value.String("m")})
	assert.True(t, Gt("name", value.String("a")).Matches(d))
	assert.True(t, Lt("name", value.String("z")).Matches(d))
	// Mixed kinds never order.
	assert.False(t, Gt("name", value.Int(1)).Matches(d))
}

func TestFilterSetConjunction(t *testing.T) {
	d := doc(map[string]value.Value{
		"category": value.String("book"),
		"price":    value.Int(20),
	})

	fs := NewFilterSet(
		Eq("category", value.String("book")),
		Gt("price", value.Int(10)),
	)
	assert.True(t, fs.Matches(d))

	fs = NewFilterSet(
		Eq("category", value.String("book")),
		Gt("price", value.Int(100)),
	)
	assert.False(t, fs.Matches(d))

	// A nil set matches everything.
	var nilSet *FilterSet
	assert.True(t, nilSet.Matches(d))
}

func TestParseOperator(t *testing.T) {
	for _, s := range []string{"eq", "ne", "gt", "gte", "lt", "lte", "in", "contains"} {
		op, err := ParseOperator(s)
		require.NoError(t, err, s)
		assert.Equal(t, Operator(s), op)
	}
	_, err := ParseOperator("between")
	assert.Error(t, err)
}
