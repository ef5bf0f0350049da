// Package export renders listings as CSV or JSON bytes. File-save and
// download mechanics belong to the caller; this package only produces the
// payload, plus an optional archiver that pushes it to object storage.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/record"
	"github.com/koustreak/restadmin/internal/schema"
)

// CSV renders rows as CSV. The header follows display order; cells use the
// human rendering, so foreign-key cells show their resolved label.
func CSV(def *schema.TableDefinition, rows []*record.Record) ([]byte, error) {
	columns := record.DisplayOrder(def, record.DefaultNamePriority)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode, "failed to write csv header", err)
	}

	cells := make([]string, len(columns))
	for _, r := range rows {
		for i, col := range columns {
			cells[i] = ""
			if f, ok := r.Field(col); ok {
				cells[i] = f.Value.String()
			}
		}
		if err := w.Write(cells); err != nil {
			return nil, errs.Wrap(errs.ErrKindDecode, "failed to write csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode, "failed to flush csv", err)
	}
	return buf.Bytes(), nil
}

// JSON renders rows as a JSON array of wire-encoded objects, column order
// following the schema. Primary keys are included — an export is a read,
// not a write body.
func JSON(def *schema.TableDefinition, rows []*record.Record) ([]byte, error) {
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		obj := make(map[string]any, def.Len())
		for _, name := range r.ColumnNames() {
			f, _ := r.Field(name)
			obj[name] = f.Value.Encode()
		}
		out = append(out, obj)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindDecode, "failed to encode export", err)
	}
	return data, nil
}
