package client

import (
	"fmt"
	"strings"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/schema"
)

// buildSelect produces the select projection for a table: every top-level
// column, plus an embedded resource for each foreign-key column whose
// referenced table has a known label column. The embed pulls the referenced
// primary key and label in the same response, so listings can show a human
// label without a second request per row.
//
// References are validated lazily, here at first use: a foreign key whose
// referenced table is missing from the schema document only fails when a
// query against it is actually built.
func buildSelect(def *schema.TableDefinition, s *schema.Schema) (string, error) {
	parts := make([]string, 0, def.Len())
	for _, col := range def.Columns() {
		parts = append(parts, col.Name)

		params := col.Value.FKParams
		if params == nil || params.LabelColumn == "" {
			continue
		}
		if s != nil {
			if _, ok := s.Table(params.Table); !ok {
				return "", errs.New(errs.ErrKindSchema,
					fmt.Sprintf("column %q references unknown table %q", col.Name, params.Table))
			}
		}
		parts = append(parts,
			params.Table+"("+params.PrimaryKeyName+","+params.LabelColumn+")")
	}
	return "select=" + strings.Join(parts, ","), nil
}
