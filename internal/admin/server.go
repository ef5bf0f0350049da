// Package admin exposes the synthesized CRUD surface over HTTP: table
// listings with filter/sort/pagination passthrough, record detail and
// form metadata, create/update/delete, foreign-key autocomplete, and
// CSV/JSON export. It is orchestration glue over the core packages —
// presentation belongs to whatever front end consumes the JSON.
package admin

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/koustreak/restadmin/internal/autocomplete"
	"github.com/koustreak/restadmin/internal/client"
	"github.com/koustreak/restadmin/internal/errs"
	"github.com/koustreak/restadmin/internal/export"
	"github.com/koustreak/restadmin/internal/logger"
	"github.com/koustreak/restadmin/internal/schema"
)

// Server is the admin HTTP server.
type Server struct {
	router   chi.Router
	client   *client.Client
	schema   *schema.Schema
	log      *logger.Logger
	archiver *export.Archiver // nil when export archiving is not configured

	mu       sync.Mutex
	sessions map[string]*autocomplete.Session
}

// New assembles the server around an already schema-fetched client.
// archiver may be nil.
func New(c *client.Client, s *schema.Schema, log *logger.Logger, archiver *export.Archiver) *Server {
	if log == nil {
		log = logger.Nop()
	}
	srv := &Server{
		client:   c,
		schema:   s,
		log:      log,
		archiver: archiver,
		sessions: make(map[string]*autocomplete.Session),
	}

	r := chi.NewRouter()
	r.Use(srv.requestLogger)
	r.Get("/healthz", srv.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tables", srv.handleTables)
		r.Route("/tables/{table}", func(r chi.Router) {
			r.Get("/", srv.handleList)
			r.Get("/form", srv.handleForm)
			r.Get("/export", srv.handleExport)
			r.Get("/autocomplete/{column}", srv.handleAutocomplete)
			r.Post("/rows", srv.handleCreate)
			r.Route("/rows/{id}", func(r chi.Router) {
				r.Get("/", srv.handleGet)
				r.Patch("/", srv.handleUpdate)
				r.Delete("/", srv.handleDelete)
			})
		})
	})
	srv.router = r
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs every handled request with its status and duration.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Request(r.Method, r.URL.String(), rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errs.IsAuth(err):
		status = http.StatusUnauthorized
	case errs.IsNotFound(err):
		status = http.StatusNotFound
	case errs.IsSchema(err):
		status = http.StatusBadRequest
	case errs.IsValidation(err), errs.IsServerRejection(err):
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
