// Package filter implements the per-column search predicate algebra and its
// bidirectional translation to the backend's URL filter syntax.
//
// Every column kind maps to exactly one operator family; a Filter's kind
// always matches the kind of the column it names. Rendering and parsing are
// inverses over rendered queries: render(parse(q)) == q.
package filter

import (
	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

// Op identifies a filter operator. Which operators are legal depends on the
// column's value kind (see Family).
type Op int

const (
	OpBlank       Op = iota // unfilterable column (keys, opaque)
	OpEquals                // text, numeric
	OpContains              // text
	OpStartsWith            // text
	OpEndsWith              // text
	OpLesserThan            // numeric, temporal
	OpGreaterThan           // numeric, temporal
	OpBetween               // numeric, temporal, two-sided
	OpIsNull                // text, numeric, boolean
	OpTrue                  // boolean
	OpFalse                 // boolean
	OpOneOf                 // enum
	OpNoneOf                // enum
	OpInDate                // temporal: within one calendar day
)

func (o Op) String() string {
	switch o {
	case OpEquals:
		return "equals"
	case OpContains:
		return "contains"
	case OpStartsWith:
		return "starts_with"
	case OpEndsWith:
		return "ends_with"
	case OpLesserThan:
		return "lesser_than"
	case OpGreaterThan:
		return "greater_than"
	case OpBetween:
		return "between"
	case OpIsNull:
		return "is_null"
	case OpTrue:
		return "is_true"
	case OpFalse:
		return "is_false"
	case OpOneOf:
		return "one_of"
	case OpNoneOf:
		return "none_of"
	case OpInDate:
		return "in_date"
	default:
		return "blank"
	}
}

// Family groups value kinds that share an operator set.
type Family int

const (
	FamilyBlank Family = iota
	FamilyText
	FamilyNum
	FamilyBool
	FamilyEnum
	FamilyTemporal
)

// FamilyOf returns the operator family for a column kind.
func FamilyOf(k value.Kind) Family {
	switch k {
	case value.KindText, value.KindLongText:
		return FamilyText
	case value.KindInt, value.KindFloat:
		return FamilyNum
	case value.KindBool:
		return FamilyBool
	case value.KindEnum:
		return FamilyEnum
	case value.KindTime, value.KindDate:
		return FamilyTemporal
	default:
		return FamilyBlank
	}
}

// Ops returns the operator set of a family, default operator first.
func (f Family) Ops() []Op {
	switch f {
	case FamilyText:
		return []Op{OpEquals, OpContains, OpStartsWith, OpEndsWith, OpIsNull}
	case FamilyNum:
		return []Op{OpEquals, OpLesserThan, OpGreaterThan, OpBetween, OpIsNull}
	case FamilyBool:
		return []Op{OpTrue, OpFalse, OpIsNull}
	case FamilyEnum:
		return []Op{OpOneOf, OpNoneOf}
	case FamilyTemporal:
		return []Op{OpInDate, OpLesserThan, OpGreaterThan, OpBetween}
	default:
		return []Op{OpBlank}
	}
}

// Filter is one user-specified search predicate on one column. Its Kind is
// pinned to the column's value kind; A and B are typed operand slots (B is
// used only by Between); Choices/Chosen apply to enum columns only.
type Filter struct {
	Column string
	Kind   value.Kind
	Op     Op

	A value.Value
	B value.Value

	Choices []string
	Chosen  []string
}

// FromColumn builds the default filter for a column: the first operator of
// its family with empty operands.
func FromColumn(name string, col schema.Column) Filter {
	kind := col.Value.Kind
	family := FamilyOf(kind)
	f := Filter{
		Column: name,
		Kind:   kind,
		Op:     family.Ops()[0],
		A:      operandPrototype(kind, family.Ops()[0]),
		B:      operandPrototype(kind, family.Ops()[0]),
	}
	if kind == value.KindEnum {
		f.Choices = col.Value.Choices
	}
	return f
}

// Reassign retargets a filter at a different column. When the new column
// shares the old one's value kind the operator and operands survive; when
// only the family matches the operator survives with fresh operands; a
// family change resets to the new column's default.
//
// Enum selections never survive a retarget — the choice domain changed.
func Reassign(name string, col schema.Column, old Filter) Filter {
	fresh := FromColumn(name, col)
	if FamilyOf(col.Value.Kind) != FamilyOf(old.Kind) {
		return fresh
	}
	fresh.Op = old.Op
	if col.Value.Kind == old.Kind && old.Kind != value.KindEnum {
		fresh.A = old.A
		fresh.B = old.B
	} else {
		fresh.A = operandPrototype(fresh.Kind, fresh.Op)
		fresh.B = operandPrototype(fresh.Kind, fresh.Op)
	}
	return fresh
}

// WithOp switches the filter's operator within its family, resetting
// operands whose domain changes (InDate operands are dates even on
// timestamp columns).
func (f Filter) WithOp(op Op) Filter {
	if !f.allows(op) {
		return f
	}
	if operandKind(f.Kind, op) != operandKind(f.Kind, f.Op) {
		f.A = operandPrototype(f.Kind, op)
		f.B = operandPrototype(f.Kind, op)
	}
	f.Op = op
	return f
}

// UpdateOperand re-parses raw into the first operand slot.
func (f Filter) UpdateOperand(raw string) Filter {
	f.A = f.A.UpdateWithString(raw)
	return f
}

// UpdateSecondOperand re-parses raw into the Between upper bound.
func (f Filter) UpdateSecondOperand(raw string) Filter {
	f.B = f.B.UpdateWithString(raw)
	return f
}

func (f Filter) allows(op Op) bool {
	for _, o := range FamilyOf(f.Kind).Ops() {
		if o == op {
			return true
		}
	}
	return false
}

// operandKind returns the value kind of an operator's operands on a column
// of the given kind.
func operandKind(column value.Kind, op Op) value.Kind {
	if op == OpInDate {
		return value.KindDate
	}
	return column
}

func operandPrototype(column value.Kind, op Op) value.Value {
	switch operandKind(column, op) {
	case value.KindFloat:
		return value.NewFloat(nil)
	case value.KindInt:
		return value.NewInt(nil)
	case value.KindLongText:
		return value.NewLongText(nil)
	case value.KindEnum:
		return value.NewText(nil)
	case value.KindBool:
		return value.NewBool(nil)
	case value.KindTime:
		return value.NewTime(nil)
	case value.KindDate:
		return value.NewDate(nil)
	default:
		return value.NewText(nil)
	}
}
