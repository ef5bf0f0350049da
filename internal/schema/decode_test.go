package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/value"
)

const productsDoc = `{
	"definitions": {
		"products": {
			"required": ["name"],
			"properties": {
				"id": {"type": "integer", "description": "Note: This is a Primary Key.<pk/>"},
				"name": {"type": "string"},
				"price": {"type": "number"},
				"in_stock": {"type": "boolean"},
				"kind": {"type": "string", "enum": ["physical", "digital"]},
				"notes": {"type": "string", "format": "text"},
				"released_on": {"type": "string", "format": "date"},
				"created_at": {"type": "string", "format": "timestamp without time zone"},
				"owner_id": {"type": "integer", "description": "Note: fk table='users' column='id'"}
			}
		},
		"users": {
			"required": ["email"],
			"properties": {
				"id": {"type": "integer", "description": "Primary Key"},
				"email": {"type": "string"},
				"name": {"type": "string"}
			}
		}
	}
}`

func decodeProducts(t *testing.T, ov Overrides) *Schema {
	t.Helper()
	s, err := Decode([]byte(productsDoc), ov)
	require.NoError(t, err)
	return s
}

func TestDecode_ColumnDispatch(t *testing.T) {
	s := decodeProducts(t, Overrides{})
	def, ok := s.Table("products")
	require.True(t, ok)

	tests := []struct {
		column     string
		kind       value.Kind
		constraint Constraint
		required   bool
	}{
		{"id", value.KindPrimaryKey, ConstraintPrimaryKey, false},
		{"name", value.KindText, ConstraintNone, true},
		{"price", value.KindFloat, ConstraintNone, false},
		{"in_stock", value.KindBool, ConstraintNone, false},
		{"kind", value.KindEnum, ConstraintNone, false},
		{"notes", value.KindLongText, ConstraintNone, false},
		{"released_on", value.KindDate, ConstraintNone, false},
		{"created_at", value.KindTime, ConstraintNone, false},
		{"owner_id", value.KindForeignKey, ConstraintForeignKey, false},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			col, ok := def.Column(tt.column)
			require.True(t, ok)
			assert.Equal(t, tt.kind, col.Value.Kind)
			assert.Equal(t, tt.constraint, col.Constraint)
			assert.Equal(t, tt.required, col.Required)
		})
	}
}

func TestDecode_ForeignKeyParams(t *testing.T) {
	s := decodeProducts(t, Overrides{})
	def, _ := s.Table("products")
	col, _ := def.Column("owner_id")

	params := col.Value.FKParams
	require.NotNil(t, params)
	assert.Equal(t, "users", params.Table)
	assert.Equal(t, "id", params.PrimaryKeyName)
	// "email" ranks below "name" on the label priority list.
	assert.Equal(t, "name", params.LabelColumn)
}

func TestDecode_LabelColumnOverride(t *testing.T) {
	s := decodeProducts(t, Overrides{LabelColumns: map[string]string{"users": "email"}})
	def, _ := s.Table("products")
	col, _ := def.Column("owner_id")
	assert.Equal(t, "email", col.Value.FKParams.LabelColumn)
}

func TestDecode_LabelColumnUnknownTable(t *testing.T) {
	doc := `{"definitions": {"orders": {"required": [], "properties": {
		"id": {"type": "integer", "description": "Primary Key"},
		"customer_id": {"type": "integer", "description": "fk table='customers' column='id'"}
	}}}}`
	s, err := Decode([]byte(doc), Overrides{})
	require.NoError(t, err, "a dangling reference must not fail the decode")

	def, _ := s.Table("orders")
	col, _ := def.Column("customer_id")
	assert.Equal(t, ConstraintForeignKey, col.Constraint)
	assert.Empty(t, col.Value.FKParams.LabelColumn)
}

func TestDecode_EnumChoices(t *testing.T) {
	s := decodeProducts(t, Overrides{})
	def, _ := s.Table("products")
	col, _ := def.Column("kind")
	assert.Equal(t, []string{"physical", "digital"}, col.Value.Choices)
}

func TestDecode_UnknownTypeIsOpaque(t *testing.T) {
	doc := `{"definitions": {"t": {"required": [], "properties": {
		"blob": {"type": "array"}
	}}}}`
	s, err := Decode([]byte(doc), Overrides{})
	require.NoError(t, err)
	def, _ := s.Table("t")
	col, _ := def.Column("blob")
	assert.Equal(t, value.KindOpaque, col.Value.Kind)
}

func TestDecode_PreservesColumnOrder(t *testing.T) {
	s := decodeProducts(t, Overrides{})
	def, _ := s.Table("products")
	assert.Equal(t, []string{
		"id", "name", "price", "in_stock", "kind",
		"notes", "released_on", "created_at", "owner_id",
	}, def.ColumnNames())
}

func TestDecode_MalformedColumnNamesOffender(t *testing.T) {
	doc := `{"definitions": {"t": {"required": [], "properties": {
		"good": {"type": "string"},
		"bad": {"type": ["not", "a", "string"]}
	}}}}`
	_, err := Decode([]byte(doc), Overrides{})
	require.Error(t, err)
	assert.True(t, errs.IsDecode(err))
	assert.Contains(t, err.Error(), `"bad"`)
}

func TestDecode_NotJSON(t *testing.T) {
	_, err := Decode([]byte("nope"), Overrides{})
	require.Error(t, err)
	assert.True(t, errs.IsDecode(err))
}

func TestDecode_TableListAndAliases(t *testing.T) {
	s := decodeProducts(t, Overrides{
		Tables:  []string{"people", "products"},
		Aliases: map[string]string{"people": "users"},
	})
	assert.Equal(t, []string{"people", "products"}, s.TableNames())

	def, ok := s.Table("people")
	require.True(t, ok)
	assert.Equal(t, "users", def.Name)
}

func TestPrimaryKeyName(t *testing.T) {
	s := decodeProducts(t, Overrides{})
	def, _ := s.Table("products")
	name, ok := def.PrimaryKeyName()
	require.True(t, ok)
	assert.Equal(t, "id", name)

	doc := `{"definitions": {"view": {"required": [], "properties": {"a": {"type": "string"}}}}}`
	s2, err := Decode([]byte(doc), Overrides{})
	require.NoError(t, err)
	view, _ := s2.Table("view")
	_, ok = view.PrimaryKeyName()
	assert.False(t, ok)
}
