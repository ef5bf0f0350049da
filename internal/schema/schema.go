// Package schema decodes the machine-readable API description fetched from
// the backend into typed, immutable table metadata.
//
// The decoder is the only place that understands the wire document's shape,
// including the regex-embedded key metadata inside column descriptions.
// Everything above this package works with TableDefinition and Column and
// never re-inspects the raw document.
package schema

import (
	"github.com/koustreak/restadmin/internal/value"
)

// Constraint classifies a column's key role within its table.
type Constraint int

const (
	ConstraintNone Constraint = iota
	ConstraintPrimaryKey
	ConstraintForeignKey
)

func (c Constraint) String() string {
	switch c {
	case ConstraintPrimaryKey:
		return "primary_key"
	case ConstraintForeignKey:
		return "foreign_key"
	default:
		return "none"
	}
}

// Column is the decoded metadata for one column. Value is a prototype
// carrying the column's Kind (and, for foreign keys, the reference
// parameters); rows clone it and fill the payload.
type Column struct {
	Name       string
	Required   bool
	Constraint Constraint
	Value      value.Value
}

// TableDefinition is the decoded, read-only metadata for one table:
// an insertion-ordered mapping from column name to Column. It is derived
// once per table and shared by every row of that table.
type TableDefinition struct {
	Name    string
	columns map[string]Column
	order   []string
}

func newTableDefinition(name string) *TableDefinition {
	return &TableDefinition{Name: name, columns: make(map[string]Column)}
}

func (t *TableDefinition) add(col Column) {
	if _, dup := t.columns[col.Name]; !dup {
		t.order = append(t.order, col.Name)
	}
	t.columns[col.Name] = col
}

// Column returns the named column.
func (t *TableDefinition) Column(name string) (Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// ColumnNames returns the column names in schema order.
func (t *TableDefinition) ColumnNames() []string {
	names := make([]string, len(t.order))
	copy(names, t.order)
	return names
}

// Columns returns the columns in schema order.
func (t *TableDefinition) Columns() []Column {
	cols := make([]Column, 0, len(t.order))
	for _, name := range t.order {
		cols = append(cols, t.columns[name])
	}
	return cols
}

// PrimaryKeyName returns the name of the table's primary-key column,
// or false when the table has none (e.g. a view).
func (t *TableDefinition) PrimaryKeyName() (string, bool) {
	for _, name := range t.order {
		if t.columns[name].Constraint == ConstraintPrimaryKey {
			return name, true
		}
	}
	return "", false
}

// Len returns the number of columns.
func (t *TableDefinition) Len() int { return len(t.order) }

// Schema is the full decoded catalogue: every table definition, in display
// order. It is read-only after Decode.
type Schema struct {
	tables     map[string]*TableDefinition
	order      []string
	aliases    map[string]string
	formFields map[string][]string
}

// FormFields returns the configured form-field allowlist for a table, or
// nil when every column is form-editable.
func (s *Schema) FormFields(table string) []string {
	if actual, ok := s.aliases[table]; ok {
		table = actual
	}
	return s.formFields[table]
}

// Table resolves name (or a configured alias for it) to its definition.
func (s *Schema) Table(name string) (*TableDefinition, bool) {
	if actual, ok := s.aliases[name]; ok {
		name = actual
	}
	t, ok := s.tables[name]
	return t, ok
}

// TableNames returns the table names in display order. When the deployment
// configured an explicit table list, that order (and subset) is used;
// otherwise document order applies.
func (s *Schema) TableNames() []string {
	names := make([]string, len(s.order))
	copy(names, s.order)
	return names
}

// Len returns the number of listed tables.
func (s *Schema) Len() int { return len(s.order) }
