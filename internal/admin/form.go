package admin

import (
	"net/http"

	"github.com/koustreak/restadmin/internal/filter"
	"github.com/koustreak/restadmin/internal/record"
	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

// fieldPayload is the JSON contract a front end renders one form field
// from: the widget the schema implies, constraints, and current state.
type fieldPayload struct {
	Column   string   `json:"column"`
	Widget   string   `json:"widget"`
	Required bool     `json:"required"`
	Value    string   `json:"value"`
	Error    string   `json:"error,omitempty"`
	Changed  bool     `json:"changed,omitempty"`
	Choices  []string `json:"choices,omitempty"`
	Table    string   `json:"references,omitempty"` // foreign-key target
	Filters  []string `json:"filter_ops,omitempty"` // operator family names
}

// handleForm serves the blank form metadata for a table: every
// form-visible column with its inferred widget, in display order.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.formPayload(def, record.New(def)))
}

// formPayload renders a record in form shape. The form-field allowlist
// from the deployment config applies; absent an allowlist every column is
// shown. Column order follows the display comparator.
func (s *Server) formPayload(def *schema.TableDefinition, rec *record.Record) map[string]any {
	allowed := map[string]bool{}
	for _, name := range s.schema.FormFields(def.Name) {
		allowed[name] = true
	}

	fields := make([]fieldPayload, 0, def.Len())
	for _, name := range record.DisplayOrder(def, record.DefaultNamePriority) {
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		f, ok := rec.Field(name)
		if !ok {
			continue
		}
		fields = append(fields, fieldFor(name, f))
	}

	payload := map[string]any{"table": def.Name, "fields": fields}
	if pk, ok := rec.PrimaryKey(); ok {
		payload["id"] = pk.String()
	}
	return payload
}

func fieldFor(name string, f *record.Field) fieldPayload {
	p := fieldPayload{
		Column:   name,
		Widget:   widgetFor(f.Value),
		Required: f.Required,
		Value:    f.Value.String(),
		Error:    f.Error,
		Changed:  f.Changed,
	}
	if f.Value.Kind == value.KindEnum {
		p.Choices = f.Value.Choices
	}
	if params := f.Value.FKParams; params != nil {
		p.Table = params.Table
	}
	for _, op := range filter.FamilyOf(f.Value.Kind).Ops() {
		if op != filter.OpBlank {
			p.Filters = append(p.Filters, op.String())
		}
	}
	return p
}

// widgetFor maps a value kind to the input widget a front end renders.
func widgetFor(v value.Value) string {
	switch v.Kind {
	case value.KindFloat, value.KindInt:
		return "number"
	case value.KindLongText:
		return "textarea"
	case value.KindEnum:
		return "select"
	case value.KindBool:
		return "checkbox"
	case value.KindTime:
		return "datetime"
	case value.KindDate:
		return "date"
	case value.KindPrimaryKey:
		return "readonly"
	case value.KindForeignKey:
		return "association"
	case value.KindOpaque:
		return "hidden"
	default:
		return "text"
	}
}
