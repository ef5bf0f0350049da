// Package value implements the tagged domain values that every decoded cell,
// form field, and filter operand in RestAdmin is built from.
//
// A Value pairs a Kind with an optional payload. The Kind is fixed at
// creation time: edits substitute the payload, never the tag, so rendering
// and query code can dispatch on the Kind once per column and rely on it for
// the lifetime of a session.
package value

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the domain tag of a Value.
type Kind int

const (
	KindFloat      Kind = iota
	KindInt             // plain integer, no key semantics
	KindText            // short text
	KindLongText        // multi-line text
	KindEnum            // text restricted to a fixed choice set
	KindBool            //
	KindTime            // timestamp without time zone
	KindDate            // date only
	KindPrimaryKey      // int-or-string row identity
	KindForeignKey      // reference to another table's primary key
	KindOpaque          // undecodable shape, carried through untouched
)

func (k Kind) String() string {
	switch k {
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindText:
		return "text"
	case KindLongText:
		return "long_text"
	case KindEnum:
		return "enum"
	case KindBool:
		return "bool"
	case KindTime:
		return "time"
	case KindDate:
		return "date"
	case KindPrimaryKey:
		return "primary_key"
	case KindForeignKey:
		return "foreign_key"
	default:
		return "opaque"
	}
}

// Wire formats for temporal payloads. The backend speaks
// "timestamp without time zone", so no zone suffix is emitted.
const (
	TimeLayout = "2006-01-02T15:04:05"
	DateLayout = "2006-01-02"
)

// PK is an int-or-string row identity. Exactly one of Int/Str is set on a
// present key; both nil means the key is absent.
type PK struct {
	Int *int64
	Str *string
}

// PKFromInt builds a present integer key.
func PKFromInt(i int64) PK { return PK{Int: &i} }

// PKFromString builds a present string key.
func PKFromString(s string) PK { return PK{Str: &s} }

// ParsePK interprets raw as an integer key when possible, else a string key.
func ParsePK(raw string) PK {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return PKFromInt(i)
	}
	return PKFromString(raw)
}

// IsZero reports whether the key is absent.
func (p PK) IsZero() bool { return p.Int == nil && p.Str == nil }

func (p PK) String() string {
	switch {
	case p.Int != nil:
		return strconv.FormatInt(*p.Int, 10)
	case p.Str != nil:
		return *p.Str
	default:
		return ""
	}
}

// Equal reports whether two keys identify the same row.
func (p PK) Equal(o PK) bool {
	if p.Int != nil && o.Int != nil {
		return *p.Int == *o.Int
	}
	if p.Str != nil && o.Str != nil {
		return *p.Str == *o.Str
	}
	return p.IsZero() && o.IsZero()
}

// Encode returns the wire JSON payload for the key.
func (p PK) Encode() any {
	switch {
	case p.Int != nil:
		return *p.Int
	case p.Str != nil:
		return *p.Str
	default:
		return nil
	}
}

// ForeignKeyParams is the structural half of a foreign-key value. Table,
// PrimaryKeyName and LabelColumn are fixed at schema-decode time; Label is
// resolved per occurrence (at row decode or at autocomplete time).
type ForeignKeyParams struct {
	Table          string
	PrimaryKeyName string
	LabelColumn    string  // "" when the referenced table has no label column
	Label          *string // resolved human-readable label, nil until known
}

// Value is the tagged union of all domain values. The payload slot used is
// determined by Kind; all other slots stay nil.
type Value struct {
	Kind Kind

	Float *float64
	Int   *int64
	Text  *string // also the Enum payload
	Bool  *bool
	Time  *time.Time // also the Date payload

	PK *PK // KindPrimaryKey payload
	FK *PK // KindForeignKey payload: the referenced key

	FKParams *ForeignKeyParams // KindForeignKey only
	Choices  []string          // KindEnum only: the allowed set

	Raw json.RawMessage // KindOpaque payload
}

// --- Constructors ---

func NewFloat(f *float64) Value  { return Value{Kind: KindFloat, Float: f} }
func NewInt(i *int64) Value      { return Value{Kind: KindInt, Int: i} }
func NewText(s *string) Value    { return Value{Kind: KindText, Text: s} }
func NewLongText(s *string) Value { return Value{Kind: KindLongText, Text: s} }
func NewBool(b *bool) Value      { return Value{Kind: KindBool, Bool: b} }
func NewTime(t *time.Time) Value { return Value{Kind: KindTime, Time: t} }
func NewDate(t *time.Time) Value { return Value{Kind: KindDate, Time: t} }

func NewEnum(choices []string, chosen *string) Value {
	return Value{Kind: KindEnum, Choices: choices, Text: chosen}
}

func NewPrimaryKey(pk *PK) Value { return Value{Kind: KindPrimaryKey, PK: pk} }

func NewForeignKey(params ForeignKeyParams, ref *PK) Value {
	return Value{Kind: KindForeignKey, FKParams: &params, FK: ref}
}

func NewOpaque(raw json.RawMessage) Value { return Value{Kind: KindOpaque, Raw: raw} }

// --- Predicates ---

// IsNothing reports whether the payload is absent, independent of Kind.
// Opaque values are always "nothing": they carry no editable payload.
func (v Value) IsNothing() bool {
	switch v.Kind {
	case KindFloat:
		return v.Float == nil
	case KindInt:
		return v.Int == nil
	case KindText, KindLongText, KindEnum:
		return v.Text == nil
	case KindBool:
		return v.Bool == nil
	case KindTime, KindDate:
		return v.Time == nil
	case KindPrimaryKey:
		return v.PK == nil || v.PK.IsZero()
	case KindForeignKey:
		return v.FK == nil || v.FK.IsZero()
	default:
		return true
	}
}

func (v Value) IsPrimaryKey() bool { return v.Kind == KindPrimaryKey }
func (v Value) IsForeignKey() bool { return v.Kind == KindForeignKey }

// ToPrimaryKey extracts the row identity carried by a primary- or
// foreign-key value. ok is false for absent keys and non-key kinds.
func (v Value) ToPrimaryKey() (PK, bool) {
	switch v.Kind {
	case KindPrimaryKey:
		if v.PK != nil && !v.PK.IsZero() {
			return *v.PK, true
		}
	case KindForeignKey:
		if v.FK != nil && !v.FK.IsZero() {
			return *v.FK, true
		}
	}
	return PK{}, false
}

// --- Encoding and display ---

// Encode returns the wire JSON payload for the value. Absent payloads and
// Opaque values encode as null.
func (v Value) Encode() any {
	switch v.Kind {
	case KindFloat:
		if v.Float != nil {
			return *v.Float
		}
	case KindInt:
		if v.Int != nil {
			return *v.Int
		}
	case KindText, KindLongText, KindEnum:
		if v.Text != nil {
			return *v.Text
		}
	case KindBool:
		if v.Bool != nil {
			return *v.Bool
		}
	case KindTime:
		if v.Time != nil {
			return v.Time.Format(TimeLayout)
		}
	case KindDate:
		if v.Time != nil {
			return v.Time.Format(DateLayout)
		}
	case KindPrimaryKey:
		if v.PK != nil {
			return v.PK.Encode()
		}
	case KindForeignKey:
		if v.FK != nil {
			return v.FK.Encode()
		}
	}
	return nil
}

// String renders the value for display. Foreign keys prefer the resolved
// label over the raw key so listings show "Ada" rather than "7".
func (v Value) String() string {
	switch v.Kind {
	case KindFloat:
		if v.Float != nil {
			return strconv.FormatFloat(*v.Float, 'f', -1, 64)
		}
	case KindInt:
		if v.Int != nil {
			return strconv.FormatInt(*v.Int, 10)
		}
	case KindText, KindLongText, KindEnum:
		if v.Text != nil {
			return *v.Text
		}
	case KindBool:
		if v.Bool != nil {
			return strconv.FormatBool(*v.Bool)
		}
	case KindTime:
		if v.Time != nil {
			return v.Time.Format(TimeLayout)
		}
	case KindDate:
		if v.Time != nil {
			return v.Time.Format(DateLayout)
		}
	case KindPrimaryKey:
		if v.PK != nil {
			return v.PK.String()
		}
	case KindForeignKey:
		if v.FKParams != nil && v.FKParams.Label != nil {
			return *v.FKParams.Label
		}
		if v.FK != nil {
			return v.FK.String()
		}
	}
	return ""
}

// --- Updates ---

// UpdateWithString re-parses raw according to the existing Kind and returns
// the updated value; the Kind is never changed. Unparseable numeric or
// temporal input yields an absent payload rather than an error — required
// validation in the field layer is what flags the gap afterwards.
//
// Booleans are a special case: a user interaction toggles the current
// payload regardless of the input text.
func (v Value) UpdateWithString(raw string) Value {
	switch v.Kind {
	case KindFloat:
		v.Float = parseFloat(raw)
	case KindInt:
		v.Int = parseInt(raw)
	case KindText, KindLongText, KindEnum:
		v.Text = nonBlank(raw)
	case KindBool:
		toggled := v.Bool == nil || !*v.Bool
		v.Bool = &toggled
	case KindTime:
		v.Time = parseTime(raw)
	case KindDate:
		v.Time = parseDate(raw)
	case KindPrimaryKey:
		v.PK = parseKey(raw)
	case KindForeignKey:
		v.FK = parseKey(raw)
		if v.FKParams != nil {
			// The old label no longer describes the new key.
			params := *v.FKParams
			params.Label = nil
			v.FKParams = &params
		}
	}
	return v
}

// WithLabel returns a foreign-key value with its resolved label replaced.
// Non-foreign-key values are returned unchanged.
func (v Value) WithLabel(label string) Value {
	if v.Kind != KindForeignKey || v.FKParams == nil {
		return v
	}
	params := *v.FKParams
	params.Label = &label
	v.FKParams = &params
	return v
}

// --- Parsing helpers ---

func nonBlank(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseFloat(s string) *float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseInt(s string) *int64 {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return nil
	}
	return &i
}

func parseKey(s string) *PK {
	if s == "" {
		return nil
	}
	pk := ParsePK(s)
	return &pk
}

// parseTime accepts ISO-8601 timestamps. Browsers' datetime-local inputs
// omit seconds, producing 16-character strings ("2006-01-02T15:04"); those
// get ":00" appended before parsing.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if len(s) == 16 {
		s += ":00"
	}
	for _, layout := range []string{TimeLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

func parseDate(s string) *time.Time {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}

// --- Wire decoding ---

// DecodeJSON returns a copy of v whose payload is parsed from the wire JSON
// fragment raw, keeping the Kind. A JSON null clears the payload. An error
// means the fragment does not fit the column's domain at all.
func (v Value) DecodeJSON(raw json.RawMessage) (Value, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return v.cleared(), nil
	}
	switch v.Kind {
	case KindFloat:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return v, fmt.Errorf("expected number: %w", err)
		}
		v.Float = &f
	case KindInt:
		var i int64
		if err := json.Unmarshal(raw, &i); err != nil {
			return v, fmt.Errorf("expected integer: %w", err)
		}
		v.Int = &i
	case KindText, KindLongText, KindEnum:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return v, fmt.Errorf("expected string: %w", err)
		}
		v.Text = &s
	case KindBool:
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return v, fmt.Errorf("expected boolean: %w", err)
		}
		v.Bool = &b
	case KindTime:
		s, err := decodeString(raw)
		if err != nil {
			return v, err
		}
		t := parseTime(s)
		if t == nil {
			return v, fmt.Errorf("expected timestamp, got %q", s)
		}
		v.Time = t
	case KindDate:
		s, err := decodeString(raw)
		if err != nil {
			return v, err
		}
		t := parseDate(s)
		if t == nil {
			return v, fmt.Errorf("expected date, got %q", s)
		}
		v.Time = t
	case KindPrimaryKey:
		pk, err := decodeKey(raw)
		if err != nil {
			return v, err
		}
		v.PK = pk
	case KindForeignKey:
		pk, err := decodeKey(raw)
		if err != nil {
			return v, err
		}
		v.FK = pk
	default:
		v.Raw = append(json.RawMessage(nil), raw...)
	}
	return v, nil
}

func (v Value) cleared() Value {
	v.Float, v.Int, v.Text, v.Bool, v.Time, v.PK, v.FK, v.Raw = nil, nil, nil, nil, nil, nil, nil, nil
	return v
}

func decodeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("expected string: %w", err)
	}
	return s, nil
}

func decodeKey(raw json.RawMessage) (*PK, error) {
	var i int64
	if err := json.Unmarshal(raw, &i); err == nil {
		pk := PKFromInt(i)
		return &pk, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		pk := PKFromString(s)
		return &pk, nil
	}
	return nil, fmt.Errorf("expected int or string key, got %s", string(raw))
}
