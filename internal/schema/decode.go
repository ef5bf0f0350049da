package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/value"
)

// Overrides is the deployment-supplied correction surface for schema
// decoding. All fields are optional; zero value means "trust the document".
type Overrides struct {
	// Aliases maps a presented table name to the actual name in the
	// document (used to disambiguate views from their backing tables).
	Aliases map[string]string

	// LabelColumns forces the label column for a table, bypassing the
	// priority-list heuristic.
	LabelColumns map[string]string

	// FormFields restricts, per table, which columns appear on forms.
	FormFields map[string][]string

	// Tables is an explicit ordered table list. When non-empty it defines
	// both which tables are listed and their order.
	Tables []string
}

// fkPattern matches the foreign-key metadata the schema generator embeds in
// column descriptions, e.g. `Note: This is a Foreign Key to ... fk table='users' column='id'`.
var fkPattern = regexp.MustCompile(`fk table='([^']+)' column='([^']+)'`)

// primaryKeyMarker is the literal substring the generator places in a
// primary-key column's description.
const primaryKeyMarker = "Primary Key"

// labelPriority is the fixed priority list of common identifying field
// names used to pick a human-readable label column for a referenced table.
var labelPriority = []string{"title", "name", "full name", "email", "first name", "last name"}

// wireColumn is one entry of a table's "properties" object on the wire.
type wireColumn struct {
	Type        string   `json:"type"`
	Format      string   `json:"format"`
	Description string   `json:"description"`
	Enum        []string `json:"enum"`
}

// wireTable is one entry of the document's "definitions" object.
type wireTable struct {
	Required   []string                   `json:"required"`
	Properties map[string]json.RawMessage `json:"properties"`

	propertyOrder []string
}

// Decode parses the raw API description document into a Schema, applying
// the configured overrides.
//
// Decoding is all-or-nothing per table: if any single column fails, the
// whole decode fails with an error naming the offending column. A column of
// unrecognised type does not fail — it decodes as Opaque.
func Decode(doc []byte, ov Overrides) (*Schema, error) {
	tables, tableOrder, err := parseDocument(doc)
	if err != nil {
		return nil, err
	}

	// First pass: ordered property names per table, needed for label-column
	// inference before any referenced table has been decoded.
	propNames := make(map[string][]string, len(tables))
	for name, wt := range tables {
		propNames[name] = wt.propertyOrder
	}

	s := &Schema{
		tables:     make(map[string]*TableDefinition, len(tables)),
		aliases:    ov.Aliases,
		formFields: ov.FormFields,
	}

	for name, wt := range tables {
		def := newTableDefinition(name)
		required := make(map[string]bool, len(wt.Required))
		for _, r := range wt.Required {
			required[r] = true
		}
		for _, colName := range wt.propertyOrder {
			var wc wireColumn
			if err := json.Unmarshal(wt.Properties[colName], &wc); err != nil {
				return nil, errs.Wrap(errs.ErrKindDecode,
					fmt.Sprintf("table %q: column %q has a malformed definition", name, colName), err)
			}
			def.add(decodeColumn(colName, wc, required[colName], propNames, ov))
		}
		s.tables[name] = def
	}

	s.order = tableOrder
	if len(ov.Tables) > 0 {
		s.order = resolveTableList(ov.Tables, s)
	}
	return s, nil
}

// decodeColumn dispatches on (type, format, description, enum) to produce
// exactly one Column variant. Key interpretations are tried before the
// plain fallbacks: a foreign key is also a valid integer, so the ordering
// of attempts matters.
func decodeColumn(name string, wc wireColumn, required bool, propNames map[string][]string, ov Overrides) Column {
	col := Column{Name: name, Required: required}

	switch wc.Type {
	case "number":
		col.Value = value.NewFloat(nil)
	case "integer":
		col.Constraint, col.Value = keyOrPlain(wc, propNames, ov, value.NewInt(nil))
	case "boolean":
		col.Value = value.NewBool(nil)
	case "string":
		switch {
		case wc.Format == "timestamp without time zone":
			col.Value = value.NewTime(nil)
		case wc.Format == "date":
			col.Value = value.NewDate(nil)
		case wc.Format == "text":
			col.Value = value.NewLongText(nil)
		case len(wc.Enum) > 0:
			col.Value = value.NewEnum(wc.Enum, nil)
		default:
			// Non-integer keys (uuid, text identifiers) still carry the
			// generator's key metadata in their description.
			col.Constraint, col.Value = keyOrPlain(wc, propNames, ov, value.NewText(nil))
		}
	default:
		col.Value = value.NewOpaque(nil)
	}
	return col
}

// keyOrPlain tries primary-key, then foreign-key interpretation of the
// column description; the first successful interpretation wins. plain is
// the fallback value for columns with no key metadata.
func keyOrPlain(wc wireColumn, propNames map[string][]string, ov Overrides, plain value.Value) (Constraint, value.Value) {
	if strings.Contains(wc.Description, primaryKeyMarker) {
		return ConstraintPrimaryKey, value.NewPrimaryKey(nil)
	}
	if m := fkPattern.FindStringSubmatch(wc.Description); m != nil {
		params := value.ForeignKeyParams{
			Table:          m[1],
			PrimaryKeyName: m[2],
			LabelColumn:    labelColumn(m[1], propNames, ov),
		}
		return ConstraintForeignKey, value.NewForeignKey(params, nil)
	}
	return ConstraintNone, plain
}

// labelColumn picks the human-readable label column for the referenced
// table: a configured override first, else the first entry of the priority
// list present among the table's properties. Returns "" when the table is
// unknown or has no identifying column — the reference then displays its
// raw key.
func labelColumn(table string, propNames map[string][]string, ov Overrides) string {
	if forced, ok := ov.LabelColumns[table]; ok {
		return forced
	}
	props, ok := propNames[table]
	if !ok {
		return ""
	}
	present := make(map[string]bool, len(props))
	for _, p := range props {
		present[p] = true
	}
	for _, candidate := range labelPriority {
		if present[candidate] {
			return candidate
		}
	}
	return ""
}

// parseDocument extracts the "definitions" object preserving both table
// order and per-table property order, which encoding/json's map decoding
// would discard.
func parseDocument(doc []byte) (map[string]wireTable, []string, error) {
	var root struct {
		Definitions json.RawMessage `json:"definitions"`
	}
	if err := json.Unmarshal(doc, &root); err != nil {
		return nil, nil, errs.Wrap(errs.ErrKindDecode, "schema document is not valid JSON", err)
	}
	if len(root.Definitions) == 0 {
		return nil, nil, errs.New(errs.ErrKindDecode, "schema document has no definitions")
	}

	var byName map[string]wireTable
	if err := json.Unmarshal(root.Definitions, &byName); err != nil {
		return nil, nil, errs.Wrap(errs.ErrKindDecode, "definitions is not an object", err)
	}

	tableOrder, err := objectKeys(root.Definitions)
	if err != nil {
		return nil, nil, errs.Wrap(errs.ErrKindDecode, "definitions is not an object", err)
	}

	var rawTables map[string]struct {
		Properties json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(root.Definitions, &rawTables); err != nil {
		return nil, nil, errs.Wrap(errs.ErrKindDecode, "definitions is not an object", err)
	}
	for name, wt := range byName {
		wt.propertyOrder, err = objectKeys(rawTables[name].Properties)
		if err != nil {
			return nil, nil, errs.Wrap(errs.ErrKindDecode,
				fmt.Sprintf("table %q has malformed properties", name), err)
		}
		byName[name] = wt
	}
	return byName, tableOrder, nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
// It exists because encoding/json map decoding discards key order, which
// the label-column heuristic and default column display both rely on.
func objectKeys(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		keys = append(keys, key)
		// Skip the value so nested keys are not collected.
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}

// resolveTableList filters the configured table list down to names that
// resolve (directly or via alias) to a decoded table.
func resolveTableList(wanted []string, s *Schema) []string {
	out := make([]string, 0, len(wanted))
	for _, name := range wanted {
		if _, ok := s.Table(name); ok {
			out = append(out, name)
		}
	}
	return out
}
