package filter

import (
	"strings"

	"github.com/koustreak/restadmin/internal/value"
)

// Fragment renders the filter as one percent-encoded query fragment
// ("column=op.value" or a grouped "and=(…)"), ready to be joined with "&".
// ok is false when the filter is inactive: Blank, or an operand-requiring
// operator with no operand.
func (f Filter) Fragment() (string, bool) {
	switch f.Op {
	case OpIsNull:
		return f.Column + "=is.null", true
	case OpTrue:
		return f.Column + "=is.true", true
	case OpFalse:
		return f.Column + "=is.false", true

	case OpEquals:
		s, ok := operandString(f.A)
		if !ok {
			return "", false
		}
		return f.Column + "=eq." + encodeLiteral(s), true

	case OpContains:
		return f.ilike("*", "*")
	case OpStartsWith:
		return f.ilike("", "*")
	case OpEndsWith:
		return f.ilike("*", "")

	case OpLesserThan:
		s, ok := operandString(f.A)
		if !ok {
			return "", false
		}
		return f.Column + "=lt." + encodeLiteral(s), true
	case OpGreaterThan:
		s, ok := operandString(f.A)
		if !ok {
			return "", false
		}
		return f.Column + "=gt." + encodeLiteral(s), true

	case OpBetween:
		lo, hasLo := operandString(f.A)
		hi, hasHi := operandString(f.B)
		switch {
		case hasLo && hasHi:
			return "and=(" + f.Column + ".gte." + encodeLiteral(lo) +
				"," + f.Column + ".lte." + encodeLiteral(hi) + ")", true
		case hasLo:
			return f.Column + "=gte." + encodeLiteral(lo), true
		case hasHi:
			return f.Column + "=lte." + encodeLiteral(hi), true
		default:
			return "", false
		}

	case OpInDate:
		if f.A.Time == nil {
			return "", false
		}
		day := *f.A.Time
		if f.Kind == value.KindDate {
			return f.Column + "=eq." + encodeLiteral(day.Format(value.DateLayout)), true
		}
		// "Within this date" on a timestamp column lowers to the half-open
		// range [day 00:00, day+1 00:00).
		lo := day.Format(value.TimeLayout)
		hi := day.AddDate(0, 0, 1).Format(value.TimeLayout)
		return "and=(" + f.Column + ".gte." + encodeLiteral(lo) +
			"," + f.Column + ".lt." + encodeLiteral(hi) + ")", true

	case OpOneOf:
		return f.inList("in")
	case OpNoneOf:
		return f.inList("not.in")

	default:
		return "", false
	}
}

func (f Filter) ilike(prefix, suffix string) (string, bool) {
	s, ok := operandString(f.A)
	if !ok {
		return "", false
	}
	return f.Column + "=ilike." + prefix + encodeLiteral(s) + suffix, true
}

func (f Filter) inList(op string) (string, bool) {
	if len(f.Chosen) == 0 {
		return "", false
	}
	parts := make([]string, len(f.Chosen))
	for i, c := range f.Chosen {
		parts[i] = encodeLiteral(c)
	}
	return f.Column + "=" + op + ".(" + strings.Join(parts, ",") + ")", true
}

func operandString(v value.Value) (string, bool) {
	if v.IsNothing() {
		return "", false
	}
	return v.String(), true
}

// encodeLiteral prepares a literal operand for the wire. Values containing
// a dot, comma, or paren are double-quoted first so the backend does not
// mistake them for operator separators or list syntax; the result is then
// percent-encoded with the same character set a browser's
// encodeURIComponent uses, so rendered fragments are byte-stable across
// parse/render round-trips.
func encodeLiteral(s string) string {
	if strings.ContainsAny(s, ".,()") {
		s = `"` + s + `"`
	}
	return percentEncode(s)
}

// percentEncode escapes every byte outside encodeURIComponent's unreserved
// set (alphanumerics and -_.!~*'()). Spaces become %20, never "+".
func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigits[c>>4])
		b.WriteByte(hexDigits[c&0xf])
	}
	return b.String()
}

const hexDigits = "0123456789ABCDEF"

func isUnreserved(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}
