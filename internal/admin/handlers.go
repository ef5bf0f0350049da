package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/restadmin/internal/autocomplete"
	"github.com/koustreak/restadmin/internal/client"
	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/export"
	"github.com/koustreak/restadmin/internal/filter"
	"github.com/koustreak/restadmin/internal/record"
	"github.com/koustreak/restadmin/internal/schema"
	"github.com/koustreak/restadmin/internal/value"
)

// defaultPageSize bounds listings when the caller does not pass limit=.
const defaultPageSize = 25

// handleTables lists the presented tables with their key metadata.
func (s *Server) handleTables(w http.ResponseWriter, _ *http.Request) {
	type tableInfo struct {
		Name       string `json:"name"`
		PrimaryKey string `json:"primary_key,omitempty"`
		Columns    int    `json:"columns"`
	}
	out := make([]tableInfo, 0, s.schema.Len())
	for _, name := range s.schema.TableNames() {
		def, _ := s.schema.Table(name)
		info := tableInfo{Name: name, Columns: def.Len()}
		if pk, ok := def.PrimaryKeyName(); ok {
			info.PrimaryKey = pk
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleList serves a paginated, filtered, sorted listing. Filter query
// parameters pass through in the backend's own syntax and are re-parsed
// into typed filters against the table definition.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}

	params := listParams(def, r)
	rows, err := s.client.FetchMany(r.Context(), def, params)
	if err != nil {
		writeError(w, err)
		return
	}

	columns := record.DisplayOrder(def, record.DefaultNamePriority)
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		cells := make(map[string]string, len(columns))
		for _, col := range columns {
			if f, ok := row.Field(col); ok {
				cells[col] = f.Value.String()
			}
		}
		out = append(out, cells)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"columns": columns,
		"rows":    out,
	})
}

// handleGet serves one row in form shape: per-field value, kind, and
// validation state.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	rec, err := s.client.FetchOne(r.Context(), def, value.ParsePK(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.formPayload(def, rec))
}

// handleCreate builds a blank record, applies the submitted edits, and
// inserts it. Local validation failures never reach the backend.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	edits, ok := decodeEdits(w, r)
	if !ok {
		return
	}

	rec := record.New(def)
	applyEdits(rec, edits)
	if rec.HasErrors() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": rec.Errors()})
		return
	}

	created, err := s.client.Create(r.Context(), def, rec)
	if err != nil {
		s.writeSaveError(w, rec, err)
		return
	}
	writeJSON(w, http.StatusCreated, s.formPayload(def, created))
}

// handleUpdate fetches the current row, applies the submitted edits, and
// patches it keyed by primary key.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	edits, ok := decodeEdits(w, r)
	if !ok {
		return
	}
	pk := value.ParsePK(chi.URLParam(r, "id"))

	rec, err := s.client.FetchOne(r.Context(), def, pk)
	if err != nil {
		writeError(w, err)
		return
	}
	applyEdits(rec, edits)
	if rec.HasErrors() {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": rec.Errors()})
		return
	}

	updated, err := s.client.Update(r.Context(), def, pk, rec)
	if err != nil {
		s.writeSaveError(w, rec, err)
		return
	}
	writeJSON(w, http.StatusOK, s.formPayload(def, updated))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	rec, err := s.client.FetchOne(r.Context(), def, value.ParsePK(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.client.Delete(r.Context(), def, rec); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleAutocomplete resolves ?q= against the column's foreign-key
// candidates and returns the match (if any) plus the candidate list.
func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	column := chi.URLParam(r, "column")
	col, ok := def.Column(column)
	if !ok || col.Value.FKParams == nil {
		writeError(w, errs.New(errs.ErrKindSchema,
			fmt.Sprintf("column %q of table %q is not a foreign key", column, def.Name)))
		return
	}

	session := s.fkSession(def.Name, column, *col.Value.FKParams)
	match, err := session.Resolve(r.Context(), s.client, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, err)
		return
	}

	candidates := session.Candidates()
	display := make([]string, len(candidates))
	for i, c := range candidates {
		display[i] = c.Display()
	}
	payload := map[string]any{"candidates": display}
	if match != nil {
		payload["key"] = match.Key.String()
		payload["label"] = match.Label
	}
	writeJSON(w, http.StatusOK, payload)
}

// handleExport streams the filtered listing as CSV or JSON. With
// ?archive=true (and configured storage) the payload is uploaded instead
// and a download URL returned.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	def, ok := s.table(w, r)
	if !ok {
		return
	}
	params := listParams(def, r)
	params.Limit = 0 // exports are unbounded unless the caller says otherwise
	if raw := r.URL.Query().Get("limit"); raw != "" {
		params.Limit, _ = strconv.Atoi(raw)
	}

	rows, err := s.client.FetchMany(r.Context(), def, params)
	if err != nil {
		writeError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	var data []byte
	var contentType string
	switch format {
	case "csv":
		data, err = export.CSV(def, rows)
		contentType = "text/csv"
	case "json":
		data, err = export.JSON(def, rows)
		contentType = "application/json"
	default:
		writeError(w, errs.New(errs.ErrKindValidation, fmt.Sprintf("unsupported format %q", format)))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if r.URL.Query().Get("archive") == "true" {
		if s.archiver == nil {
			writeError(w, errs.New(errs.ErrKindValidation, "export archiving is not configured"))
			return
		}
		url, err := s.archiver.Archive(r.Context(), def.Name, format, data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"url": url})
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", def.Name+"."+format))
	_, _ = w.Write(data)
}

// --- helpers ---

func (s *Server) table(w http.ResponseWriter, r *http.Request) (*schema.TableDefinition, bool) {
	name := chi.URLParam(r, "table")
	def, ok := s.schema.Table(name)
	if !ok {
		writeError(w, errs.New(errs.ErrKindNotFound, fmt.Sprintf("unknown table %q", name)))
		return nil, false
	}
	return def, true
}

// listParams translates the request's query string into typed ListParams,
// re-parsing filter fragments against the table definition.
func listParams(def *schema.TableDefinition, r *http.Request) client.ListParams {
	q := r.URL.Query()
	params := client.ListParams{
		Filters: filter.ParseQuery(def, r.URL.RawQuery),
		Limit:   defaultPageSize,
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			params.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			params.Offset = n
		}
	}
	if order := q.Get("order"); order != "" {
		column, dir, _ := strings.Cut(order, ".")
		if _, ok := def.Column(column); ok {
			params.OrderBy = column
			params.Descending = dir == "desc"
		}
	}
	return params
}

// decodeEdits reads the request body: a flat JSON object of column name to
// raw string value, matching what a form submits.
func decodeEdits(w http.ResponseWriter, r *http.Request) (map[string]string, bool) {
	var edits map[string]string
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		writeError(w, errs.Wrap(errs.ErrKindValidation, "request body must be an object of strings", err))
		return nil, false
	}
	return edits, true
}

// applyEdits feeds raw form strings into the record's fields. Booleans are
// set explicitly rather than toggled: an API caller states the value, it
// does not click a checkbox.
func applyEdits(rec *record.Record, edits map[string]string) {
	for column, raw := range edits {
		f, ok := rec.Field(column)
		if !ok {
			continue
		}
		if f.Value.Kind == value.KindBool {
			b := raw == "true"
			f.Update(value.NewBool(&b))
			continue
		}
		f.UpdateWithString(raw)
	}
}

// writeSaveError attaches a backend rejection to the field it names, so
// the response carries field-scoped errors just like local validation;
// rejections that name no known column surface as a general failure.
func (s *Server) writeSaveError(w http.ResponseWriter, rec *record.Record, err error) {
	if e := errs.AsError(err); e != nil && rec.SetServerError(e) {
		errsByField := map[string]string{}
		for _, name := range rec.ColumnNames() {
			if f, ok := rec.Field(name); ok && f.Error != "" {
				errsByField[name] = f.Error
			}
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": errsByField})
		return
	}
	writeError(w, err)
}

// fkSession returns the persistent autocomplete session for one
// foreign-key column, so blocked-state survives across keystrokes.
func (s *Server) fkSession(table, column string, params value.ForeignKeyParams) *autocomplete.Session {
	key := table + "/" + column
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[key]; ok {
		return session
	}
	session := autocomplete.NewSession(column, params)
	s.sessions[key] = session
	return session
}
