package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

const testSchemaDoc = `{
	"definitions": {
		"products": {
			"required": [],
			"properties": {
				"id": {"type": "integer", "description": "Primary Key"},
				"name": {"type": "string"},
				"price": {"type": "number"},
				"quantity": {"type": "integer"},
				"in_stock": {"type": "boolean"},
				"kind": {"type": "string", "enum": ["physical", "digital"]},
				"released_on": {"type": "string", "format": "date"},
				"created_at": {"type": "string", "format": "timestamp without time zone"}
			}
		}
	}
}`

func productsDef(t *testing.T) *schema.TableDefinition {
	t.Helper()
	s, err := schema.Decode([]byte(testSchemaDoc), schema.Overrides{})
	require.NoError(t, err)
	def, ok := s.Table("products")
	require.True(t, ok)
	return def
}

func filterOn(t *testing.T, column string) Filter {
	t.Helper()
	col, ok := productsDef(t).Column(column)
	require.True(t, ok)
	return FromColumn(column, col)
}

func TestFromColumn_Defaults(t *testing.T) {
	tests := []struct {
		column string
		kind   value.Kind
		op     Op
	}{
		{"name", value.KindText, OpEquals},
		{"price", value.KindFloat, OpEquals},
		{"in_stock", value.KindBool, OpTrue},
		{"kind", value.KindEnum, OpOneOf},
		{"released_on", value.KindDate, OpInDate},
		{"created_at", value.KindTime, OpInDate},
		{"id", value.KindPrimaryKey, OpBlank},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			f := filterOn(t, tt.column)
			assert.Equal(t, tt.kind, f.Kind)
			assert.Equal(t, tt.op, f.Op)
			assert.True(t, f.A.IsNothing())
		})
	}

	f := filterOn(t, "kind")
	assert.Equal(t, []string{"physical", "digital"}, f.Choices)
}

func TestFragment_Inactive(t *testing.T) {
	// Blank columns and operand-requiring operators without an operand
	// render nothing.
	for _, column := range []string{"id", "name", "price", "kind", "created_at"} {
		f := filterOn(t, column)
		_, ok := f.Fragment()
		assert.False(t, ok, column)
	}

	// A two-sided operator with no bounds is inactive; with either bound
	// alone it is active.
	between := filterOn(t, "price").WithOp(OpBetween)
	_, ok := between.Fragment()
	assert.False(t, ok)
	frag, ok := between.UpdateOperand("10").Fragment()
	require.True(t, ok)
	assert.Equal(t, "price=gte.10", frag)
	frag, ok = between.UpdateSecondOperand("20").Fragment()
	require.True(t, ok)
	assert.Equal(t, "price=lte.20", frag)
}

func TestFragment_Rendering(t *testing.T) {
	tests := []struct {
		name string
		f    Filter
		want string
	}{
		{"equals", filterOn(t, "name").UpdateOperand("Widget"), "name=eq.Widget"},
		{"contains", filterOn(t, "name").WithOp(OpContains).UpdateOperand("wid"), "name=ilike.*wid*"},
		{"starts_with", filterOn(t, "name").WithOp(OpStartsWith).UpdateOperand("wid"), "name=ilike.wid*"},
		{"ends_with", filterOn(t, "name").WithOp(OpEndsWith).UpdateOperand("get"), "name=ilike.*get"},
		{"is_null", filterOn(t, "name").WithOp(OpIsNull), "name=is.null"},
		{"is_true", filterOn(t, "in_stock"), "in_stock=is.true"},
		{"is_false", filterOn(t, "in_stock").WithOp(OpFalse), "in_stock=is.false"},
		{"lesser", filterOn(t, "price").WithOp(OpLesserThan).UpdateOperand("10"), "price=lt.10"},
		{"greater", filterOn(t, "price").WithOp(OpGreaterThan).UpdateOperand("10"), "price=gt.10"},
		{
			"between_both",
			filterOn(t, "price").WithOp(OpBetween).UpdateOperand("10").UpdateSecondOperand("20"),
			"and=(price.gte.10,price.lte.20)",
		},
		{
			"space_is_percent_encoded",
			filterOn(t, "name").UpdateOperand("two words"),
			"name=eq.two%20words",
		},
		{
			"separator_chars_are_quoted",
			filterOn(t, "name").UpdateOperand("v1.2"),
			"name=eq.%22v1.2%22",
		},
		{
			"decimal_operand_is_quoted",
			filterOn(t, "price").WithOp(OpLesserThan).UpdateOperand("10.5"),
			"price=lt.%2210.5%22",
		},
		{
			"date_in_date",
			filterOn(t, "released_on").UpdateOperand("2024-01-15"),
			"released_on=eq.2024-01-15",
		},
		{
			"timestamp_in_date_lowers_to_half_open_range",
			filterOn(t, "created_at").UpdateOperand("2024-01-15"),
			"and=(created_at.gte.2024-01-15T00%3A00%3A00,created_at.lt.2024-01-16T00%3A00%3A00)",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.f.Fragment()
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFragment_EnumLists(t *testing.T) {
	f := filterOn(t, "kind")
	f.Chosen = []string{"physical", "digital"}
	frag, ok := f.Fragment()
	require.True(t, ok)
	assert.Equal(t, "kind=in.(physical,digital)", frag)

	f = f.WithOp(OpNoneOf)
	f.Chosen = []string{"digital"}
	frag, ok = f.Fragment()
	require.True(t, ok)
	assert.Equal(t, "kind=not.in.(digital)", frag)
}

func TestWithOp(t *testing.T) {
	// Operators outside the family are rejected without change.
	f := filterOn(t, "price")
	assert.Equal(t, f, f.WithOp(OpContains))

	// Switching within the family keeps same-domain operands.
	f = f.UpdateOperand("10")
	g := f.WithOp(OpLesserThan)
	assert.Equal(t, OpLesserThan, g.Op)
	require.NotNil(t, g.A.Float)
	assert.Equal(t, 10.0, *g.A.Float)

	// On a timestamp column InDate operands are dates; leaving InDate for a
	// range operator swaps the operand domain and resets it.
	ts := filterOn(t, "created_at").UpdateOperand("2024-01-15")
	require.NotNil(t, ts.A.Time)
	ranged := ts.WithOp(OpLesserThan)
	assert.Equal(t, value.KindTime, ranged.A.Kind)
	assert.True(t, ranged.A.IsNothing())
}

func TestReassign(t *testing.T) {
	def := productsDef(t)
	price, _ := def.Column("price")
	quantity, _ := def.Column("quantity")
	name, _ := def.Column("name")
	kind, _ := def.Column("kind")

	// Same kind: operator and operands survive.
	f := FromColumn("price", price).WithOp(OpGreaterThan).UpdateOperand("10")
	g := Reassign("price", price, f)
	assert.Equal(t, OpGreaterThan, g.Op)
	require.NotNil(t, g.A.Float)
	assert.Equal(t, 10.0, *g.A.Float)

	// Same family, different kind: operator survives, operands reset to the
	// new kind.
	g = Reassign("quantity", quantity, f)
	assert.Equal(t, "quantity", g.Column)
	assert.Equal(t, OpGreaterThan, g.Op)
	assert.Equal(t, value.KindInt, g.A.Kind)
	assert.True(t, g.A.IsNothing())

	// Different family: full reset to the new column's default.
	h := FromColumn("name", name).WithOp(OpContains).UpdateOperand("wid")
	g = Reassign("price", price, h)
	assert.Equal(t, OpEquals, g.Op)
	assert.True(t, g.A.IsNothing())

	// Enum selections never carry over.
	e := FromColumn("kind", kind)
	e.Chosen = []string{"physical"}
	g = Reassign("kind", kind, e)
	assert.Empty(t, g.Chosen)
	assert.Equal(t, []string{"physical", "digital"}, g.Choices)
}

func TestParseFragment(t *testing.T) {
	def := productsDef(t)

	f, ok := ParseFragment(def, "name=ilike.*wid*")
	require.True(t, ok)
	assert.Equal(t, OpContains, f.Op)
	require.NotNil(t, f.A.Text)
	assert.Equal(t, "wid", *f.A.Text)

	// eq on a date column reads back as the day predicate.
	f, ok = ParseFragment(def, "released_on=eq.2024-01-15")
	require.True(t, ok)
	assert.Equal(t, OpInDate, f.Op)

	// One-sided bounds come back as a half-filled Between.
	f, ok = ParseFragment(def, "price=gte.10")
	require.True(t, ok)
	assert.Equal(t, OpBetween, f.Op)
	require.NotNil(t, f.A.Float)
	assert.True(t, f.B.IsNothing())

	f, ok = ParseFragment(def, "price=lte.20")
	require.True(t, ok)
	assert.Equal(t, OpBetween, f.Op)
	assert.True(t, f.A.IsNothing())
	require.NotNil(t, f.B.Float)

	// The grouped half-open day range reads back as InDate.
	f, ok = ParseFragment(def, "and=(created_at.gte.2024-01-15T00%3A00%3A00,created_at.lt.2024-01-16T00%3A00%3A00)")
	require.True(t, ok)
	assert.Equal(t, OpInDate, f.Op)
	require.NotNil(t, f.A.Time)
	assert.Equal(t, "2024-01-15", f.A.Time.Format(value.DateLayout))

	// A grouped gte/lt pair that does not span exactly one midnight-aligned
	// day is a plain Between.
	f, ok = ParseFragment(def, "and=(created_at.gte.2024-01-15T08%3A00%3A00,created_at.lt.2024-01-16T00%3A00%3A00)")
	require.True(t, ok)
	assert.Equal(t, OpBetween, f.Op)
}

func TestParseFragment_Rejects(t *testing.T) {
	def := productsDef(t)
	for _, fragment := range []string{
		"ghost=eq.1",              // unknown column
		"name=lt.5",               // operator outside the text family
		"in_stock=eq.true",        // booleans have no eq
		"select=*,users(id,name)", // projection, not a filter
		"order=name.asc",
		"limit=25",
		"name",
		"kind=in.()",
		"and=(price.gte.1,quantity.lte.2)", // mixed columns
	} {
		_, ok := ParseFragment(def, fragment)
		assert.False(t, ok, fragment)
	}
}

func TestRoundTrip_RenderedQueriesAreStable(t *testing.T) {
	def := productsDef(t)

	queries := []string{
		"name=eq.Widget",
		"name=eq.%22v1.2%22",
		"name=eq.two%20words",
		"name=ilike.*wid*",
		"name=ilike.wid*",
		"name=ilike.*get",
		"name=is.null",
		"in_stock=is.true",
		"in_stock=is.false",
		"price=lt.10",
		"price=gt.%2210.5%22",
		"price=gte.10",
		"price=lte.20",
		"and=(price.gte.10,price.lte.20)",
		"kind=in.(physical,digital)",
		"kind=not.in.(digital)",
		"released_on=eq.2024-01-15",
		"created_at=lt.2024-01-15T10%3A30%3A00",
		"and=(created_at.gte.2024-01-15T00%3A00%3A00,created_at.lt.2024-01-16T00%3A00%3A00)",
		"name=eq.Widget&and=(price.gte.10,price.lte.20)&in_stock=is.true",
	}
	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			assert.Equal(t, q, RenderAll(ParseQuery(def, q)))
		})
	}
}

func TestParseQuery_SkipsUnrecognised(t *testing.T) {
	def := productsDef(t)
	filters := ParseQuery(def, "select=*&name=eq.Widget&limit=25&order=name.asc")
	require.Len(t, filters, 1)
	assert.Equal(t, "name", filters[0].Column)
	assert.Equal(t, OpEquals, filters[0].Op)
}
