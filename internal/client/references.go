package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/record"
	"github.com/koustreak/restadmin/internal/value"
)

// SearchReferences runs the bounded candidate query behind a foreign-key
// autocomplete: rows of the referenced table whose primary key equals the
// typed input (when the input parses as a numeric key) or whose label
// matches *input*, case-insensitively.
//
// The referenced table is resolved against the schema here, at first use;
// a foreign key pointing at a table absent from the document fails with a
// schema error only when a search actually reaches it.
func (c *Client) SearchReferences(ctx context.Context, params value.ForeignKeyParams, input string, limit int) ([]*record.Record, error) {
	if c.schema == nil {
		return nil, errs.New(errs.ErrKindSchema, "schema has not been fetched")
	}
	def, ok := c.schema.Table(params.Table)
	if !ok {
		return nil, errs.New(errs.ErrKindSchema,
			fmt.Sprintf("referenced table %q not found in schema", params.Table))
	}

	sel, err := buildSelect(def, c.schema)
	if err != nil {
		return nil, err
	}

	var conds []string
	if _, err := strconv.ParseInt(input, 10, 64); err == nil {
		conds = append(conds, params.PrimaryKeyName+".eq."+input)
	}
	if params.LabelColumn != "" && input != "" {
		conds = append(conds, params.LabelColumn+".ilike.*"+escapeSearchTerm(input)+"*")
	}
	if len(conds) == 0 {
		return nil, nil
	}

	parts := []string{sel}
	if len(conds) == 1 {
		column, rest, _ := strings.Cut(conds[0], ".")
		parts = append(parts, column+"="+rest)
	} else {
		parts = append(parts, "or=("+strings.Join(conds, ",")+")")
	}
	parts = append(parts, "limit="+strconv.Itoa(limit))

	body, err := c.do(ctx, "GET", def.Name, strings.Join(parts, "&"), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRows(def, body)
}

// escapeSearchTerm percent-encodes the user's text for use inside an ilike
// pattern, keeping the surrounding wildcards intact.
func escapeSearchTerm(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9',
			c == '-', c == '_', c == '~':
			b.WriteByte(c)
		default:
			b.WriteString(fmt.Sprintf("%%%02X", c))
		}
	}
	return b.String()
}
