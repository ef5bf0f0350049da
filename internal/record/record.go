package record

import (
	"encoding/json"
	"fmt"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

// Record is one row as an insertion-ordered mapping from column name to
// Field. A Record owns its Fields exclusively — nothing is shared across
// rows, so edits and error attachment never bleed between them.
type Record struct {
	Table  *schema.TableDefinition
	fields map[string]*Field
	order  []string
}

// New builds a blank Record from a table definition, for "create" forms.
// Every field starts with the column's empty prototype value.
func New(def *schema.TableDefinition) *Record {
	r := &Record{
		Table:  def,
		fields: make(map[string]*Field, def.Len()),
	}
	for _, col := range def.Columns() {
		r.fields[col.Name] = newField(col)
		r.order = append(r.order, col.Name)
	}
	return r
}

// Decode builds a populated Record from one wire row. Foreign-key columns
// with a known label column additionally pick their label out of the row's
// embedded referenced-table object, so no second request is needed per row.
func Decode(def *schema.TableDefinition, row json.RawMessage) (*Record, error) {
	var cells map[string]json.RawMessage
	if err := json.Unmarshal(row, &cells); err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode,
			fmt.Sprintf("table %q: row is not a JSON object", def.Name), err)
	}

	r := New(def)
	for _, name := range r.order {
		raw, present := cells[name]
		if !present {
			continue
		}
		f := r.fields[name]
		decoded, err := f.Value.DecodeJSON(raw)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindDecode,
				fmt.Sprintf("table %q: column %q", def.Name, name), err)
		}
		f.Value = decoded

		if params := decoded.FKParams; params != nil && params.LabelColumn != "" {
			if label, ok := embeddedLabel(cells, params); ok {
				f.Value = f.Value.WithLabel(label)
			}
		}
	}
	return r, nil
}

// embeddedLabel extracts the label string from the joined referenced-table
// object the select projection embedded into the row.
func embeddedLabel(cells map[string]json.RawMessage, params *value.ForeignKeyParams) (string, bool) {
	nested, ok := cells[params.Table]
	if !ok {
		return "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(nested, &obj); err != nil {
		return "", false
	}
	raw, ok := obj[params.LabelColumn]
	if !ok {
		return "", false
	}
	var label string
	if err := json.Unmarshal(raw, &label); err != nil {
		return "", false
	}
	return label, true
}

// Field returns the named field.
func (r *Record) Field(name string) (*Field, bool) {
	f, ok := r.fields[name]
	return f, ok
}

// ColumnNames returns the column names in schema order.
func (r *Record) ColumnNames() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Update applies a user edit to the named column. Unknown columns are
// ignored — the schema is the source of truth for what exists.
func (r *Record) Update(column string, v value.Value) {
	if f, ok := r.fields[column]; ok {
		f.Update(v)
	}
}

// UpdateWithString applies a user's raw text edit to the named column.
func (r *Record) UpdateWithString(column, raw string) {
	if f, ok := r.fields[column]; ok {
		f.UpdateWithString(raw)
	}
}

// Encode emits the wire JSON body for a create or update. The primary-key
// column is always omitted: it must never be sent back on a write.
func (r *Record) Encode() map[string]any {
	body := make(map[string]any, len(r.order))
	for _, name := range r.order {
		f := r.fields[name]
		if f.Value.IsPrimaryKey() {
			continue
		}
		body[name] = f.Value.Encode()
	}
	return body
}

// Changed reports whether any field carries an unsaved edit.
func (r *Record) Changed() bool {
	for _, f := range r.fields {
		if f.Changed {
			return true
		}
	}
	return false
}

// Errors recomputes validation over every field without mutating any of
// them, returning column name → message for the fields that would fail.
func (r *Record) Errors() map[string]string {
	out := make(map[string]string)
	for name, f := range r.fields {
		if msg := f.validationError(); msg != "" {
			out[name] = msg
		}
	}
	return out
}

// HasErrors reports whether any field would fail validation. Saves are
// blocked client-side while this is true.
func (r *Record) HasErrors() bool {
	for _, f := range r.fields {
		if f.validationError() != "" {
			return true
		}
	}
	return false
}

// SetServerError attaches a backend rejection to the field it names.
// It reports whether the error was absorbed by a field; a false return
// means the caller must surface the rejection as a general failure.
func (r *Record) SetServerError(e *errs.Error) bool {
	if e == nil || e.Kind != errs.ErrKindServerRejection || e.Column == "" {
		return false
	}
	f, ok := r.fields[e.Column]
	if !ok {
		return false
	}
	before := f.Error
	f.setServerError(e.Code)
	return f.Error != before || e.Code == notNullViolation
}

// PrimaryKey returns the row's identity from its primary-key field. ok is
// false when the table has no primary-key column or the field is empty
// (e.g. a partially loaded or not-yet-created row).
func (r *Record) PrimaryKey() (value.PK, bool) {
	for _, name := range r.order {
		f := r.fields[name]
		if f.Value.IsPrimaryKey() {
			return f.Value.ToPrimaryKey()
		}
	}
	return value.PK{}, false
}
