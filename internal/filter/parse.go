package filter

import (
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

// ParseFragment reconstructs a Filter from one rendered query fragment
// ("column=op.value" or "and=(…)"). The table definition supplies the
// column's kind, which types the operands. ok is false for fragments that
// reference unknown columns, carry operators outside the column's family,
// or are not filter syntax at all (select=, order=, limit=, …).
func ParseFragment(def *schema.TableDefinition, fragment string) (Filter, bool) {
	key, rawVal, found := strings.Cut(fragment, "=")
	if !found {
		return Filter{}, false
	}
	if key == "and" {
		return parseAndGroup(def, rawVal)
	}

	col, ok := def.Column(key)
	if !ok {
		return Filter{}, false
	}
	f := FromColumn(key, col)

	switch {
	case rawVal == "is.null":
		return f.withParsedOp(OpIsNull)
	case rawVal == "is.true":
		return f.withParsedOp(OpTrue)
	case rawVal == "is.false":
		return f.withParsedOp(OpFalse)
	}

	op, chunk, found := strings.Cut(rawVal, ".")
	if !found {
		return Filter{}, false
	}
	switch op {
	case "eq":
		if f.Kind == value.KindDate {
			// A date column "equals" a day; the family models that as InDate.
			return f.parseOperand(OpInDate, chunk)
		}
		return f.parseOperand(OpEquals, chunk)
	case "ilike":
		return f.parseILike(chunk)
	case "lt":
		return f.parseOperand(OpLesserThan, chunk)
	case "gt":
		return f.parseOperand(OpGreaterThan, chunk)
	case "gte":
		return f.parseOperand(OpBetween, chunk)
	case "lte":
		return f.parseSecondOperand(OpBetween, chunk)
	case "in":
		return f.parseList(OpOneOf, chunk)
	case "not":
		if rest, ok := strings.CutPrefix(chunk, "in."); ok {
			return f.parseList(OpNoneOf, rest)
		}
	}
	return Filter{}, false
}

// ParseQuery reconstructs every recognisable filter from a full raw query
// string, preserving fragment order. Unrecognised fragments are skipped.
func ParseQuery(def *schema.TableDefinition, query string) []Filter {
	var out []Filter
	for _, fragment := range strings.Split(query, "&") {
		if fragment == "" {
			continue
		}
		if f, ok := ParseFragment(def, fragment); ok {
			out = append(out, f)
		}
	}
	return out
}

// RenderAll joins the active filters' fragments into a raw query string.
func RenderAll(filters []Filter) string {
	var parts []string
	for _, f := range filters {
		if fragment, ok := f.Fragment(); ok {
			parts = append(parts, fragment)
		}
	}
	return strings.Join(parts, "&")
}

func (f Filter) withParsedOp(op Op) (Filter, bool) {
	if !f.allows(op) {
		return Filter{}, false
	}
	return f.WithOp(op), true
}

func (f Filter) parseOperand(op Op, chunk string) (Filter, bool) {
	g, ok := f.withParsedOp(op)
	if !ok {
		return Filter{}, false
	}
	lit, ok := decodeLiteral(chunk)
	if !ok {
		return Filter{}, false
	}
	g.A = g.A.UpdateWithString(lit)
	return g, true
}

func (f Filter) parseSecondOperand(op Op, chunk string) (Filter, bool) {
	g, ok := f.withParsedOp(op)
	if !ok {
		return Filter{}, false
	}
	lit, ok := decodeLiteral(chunk)
	if !ok {
		return Filter{}, false
	}
	g.B = g.B.UpdateWithString(lit)
	return g, true
}

func (f Filter) parseILike(chunk string) (Filter, bool) {
	op := OpContains
	switch {
	case strings.HasPrefix(chunk, "*") && strings.HasSuffix(chunk, "*") && len(chunk) >= 2:
		op = OpContains
		chunk = chunk[1 : len(chunk)-1]
	case strings.HasSuffix(chunk, "*"):
		op = OpStartsWith
		chunk = chunk[:len(chunk)-1]
	case strings.HasPrefix(chunk, "*"):
		op = OpEndsWith
		chunk = chunk[1:]
	}
	return f.parseOperand(op, chunk)
}

func (f Filter) parseList(op Op, chunk string) (Filter, bool) {
	g, ok := f.withParsedOp(op)
	if !ok {
		return Filter{}, false
	}
	if !strings.HasPrefix(chunk, "(") || !strings.HasSuffix(chunk, ")") {
		return Filter{}, false
	}
	inner := chunk[1 : len(chunk)-1]
	if inner == "" {
		return Filter{}, false
	}
	for _, item := range strings.Split(inner, ",") {
		lit, ok := decodeLiteral(item)
		if !ok {
			return Filter{}, false
		}
		g.Chosen = append(g.Chosen, lit)
	}
	return g, true
}

// parseAndGroup reconstructs the conjunctive grouped form our renderer
// emits: a two-sided Between, or a timestamp InDate lowered to the
// half-open [day 00:00, day+1 00:00) range.
func parseAndGroup(def *schema.TableDefinition, rawVal string) (Filter, bool) {
	if !strings.HasPrefix(rawVal, "(") || !strings.HasSuffix(rawVal, ")") {
		return Filter{}, false
	}
	parts := strings.Split(rawVal[1:len(rawVal)-1], ",")
	if len(parts) != 2 {
		return Filter{}, false
	}

	conds := make(map[string]string, 2)
	column := ""
	for _, part := range parts {
		segments := strings.SplitN(part, ".", 3)
		if len(segments) != 3 {
			return Filter{}, false
		}
		if column == "" {
			column = segments[0]
		} else if column != segments[0] {
			// Grouped conditions across different columns are not a
			// single-column filter.
			return Filter{}, false
		}
		conds[segments[1]] = segments[2]
	}

	col, ok := def.Column(column)
	if !ok {
		return Filter{}, false
	}
	f := FromColumn(column, col)

	lo, hasLo := conds["gte"]
	if hi, hasHi := conds["lte"]; hasLo && hasHi {
		g, ok := f.parseOperand(OpBetween, lo)
		if !ok {
			return Filter{}, false
		}
		return g.parseSecondOperandKeep(hi)
	}
	if hi, hasHi := conds["lt"]; hasLo && hasHi {
		if day, ok := inDateBounds(f.Kind, lo, hi); ok {
			g, ok := f.withParsedOp(OpInDate)
			if !ok {
				return Filter{}, false
			}
			g.A = value.NewDate(&day)
			return g, true
		}
		g, ok := f.parseOperand(OpBetween, lo)
		if !ok {
			return Filter{}, false
		}
		return g.parseSecondOperandKeep(hi)
	}
	return Filter{}, false
}

// parseSecondOperandKeep fills B on an already-typed Between filter.
func (f Filter) parseSecondOperandKeep(chunk string) (Filter, bool) {
	lit, ok := decodeLiteral(chunk)
	if !ok {
		return Filter{}, false
	}
	f.B = f.B.UpdateWithString(lit)
	return f, true
}

// inDateBounds recognises the [day 00:00, day+1 00:00) pattern on a
// timestamp column and returns the day it spans.
func inDateBounds(kind value.Kind, rawLo, rawHi string) (time.Time, bool) {
	if kind != value.KindTime {
		return time.Time{}, false
	}
	lo, ok := decodeLiteral(rawLo)
	if !ok {
		return time.Time{}, false
	}
	hi, ok := decodeLiteral(rawHi)
	if !ok {
		return time.Time{}, false
	}
	loT, err := time.Parse(value.TimeLayout, lo)
	if err != nil {
		return time.Time{}, false
	}
	hiT, err := time.Parse(value.TimeLayout, hi)
	if err != nil {
		return time.Time{}, false
	}
	h, m, s := loT.Clock()
	if h != 0 || m != 0 || s != 0 {
		return time.Time{}, false
	}
	if !hiT.Equal(loT.AddDate(0, 0, 1)) {
		return time.Time{}, false
	}
	return loT, true
}

// decodeLiteral reverses encodeLiteral: percent-decode, then strip the
// disambiguating quotes if present.
func decodeLiteral(chunk string) (string, bool) {
	s, err := url.QueryUnescape(chunk)
	if err != nil {
		return "", false
	}
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return s, true
}
