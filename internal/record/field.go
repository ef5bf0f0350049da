// Package record wraps decoded rows as editable fields: per-column value,
// required flag, dirty tracking, local validation, and mapping of server
// rejections back onto the column they refer to.
package record

import (
	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

// RequiredMessage is the user-facing error for a required field left empty.
// Server-side not-null violations surface as the same message so the form
// reads identically whether the check ran locally or on the backend.
const RequiredMessage = "This field is required"

// notNullViolation is the PostgreSQL SQLSTATE for a not-null constraint
// violation, the one backend rejection that maps cleanly onto a field.
const notNullViolation = "23502"

// Field is the live, per-row wrapper around one column's value. It is
// created when a row is decoded (or blank-initialised for creation), and
// mutated on user edits and server validation errors only.
type Field struct {
	Value      value.Value
	Constraint schema.Constraint
	Required   bool
	Changed    bool
	Error      string // "" when the field is valid
}

func newField(col schema.Column) *Field {
	return &Field{
		Value:      col.Value,
		Constraint: col.Constraint,
		Required:   col.Required,
	}
}

// Update replaces the field's value, marks it dirty, and revalidates.
func (f *Field) Update(v value.Value) {
	f.Value = v
	f.Changed = true
	f.Validate()
}

// UpdateWithString re-parses raw according to the field's existing value
// kind and applies the result as an Update.
func (f *Field) UpdateWithString(raw string) {
	f.Update(f.Value.UpdateWithString(raw))
}

// Validate recomputes the field's error. A field is invalid iff it is
// required and empty — except primary keys, which are server-assigned on
// create and therefore exempt. Validate is idempotent.
func (f *Field) Validate() {
	if f.Required && f.Value.IsNothing() && !f.Value.IsPrimaryKey() {
		f.Error = RequiredMessage
	} else {
		f.Error = ""
	}
}

// validationError returns the error Validate would set, without mutating.
func (f *Field) validationError() string {
	if f.Required && f.Value.IsNothing() && !f.Value.IsPrimaryKey() {
		return RequiredMessage
	}
	return ""
}

// setServerError maps a backend constraint-violation code onto the field.
// Only the not-null violation is recognised; unknown codes leave the field
// untouched and surface as a general failure elsewhere.
func (f *Field) setServerError(code string) {
	if code == notNullViolation {
		f.Error = RequiredMessage
	}
}
