// Package service exposes the dataset workflow over HTTP.
//
// Routes:
//
//	POST   /datasets                         ingest a dataset (body or ?source=)
//	GET    /datasets                         list stored datasets
//	GET    /datasets/{id}                    fetch a dataset, filter via query params
//	PATCH  /datasets/{id}/columns/{name}     override one column's type
//	DELETE /datasets/{id}                    delete a dataset
//
// Ingestion runs the full pipeline: parse (format sniffed), infer the
// schema, generate filter fields, validate rows, persist. Type overrides
// rebuild the filter fields from the stored rows without re-running
// inference, so a user's explicit choice is never second-guessed by the
// heuristics.
package service

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"tablecast/internal/datasource"
	"tablecast/internal/filterfield"
	"tablecast/internal/infer"
	"tablecast/internal/metrics"
	"tablecast/internal/parser"
	"tablecast/internal/schema"
	"tablecast/internal/storage"
	"tablecast/internal/validate"
	"tablecast/pkg/records"
)

// DefaultMaxUploadBytes bounds request bodies when Config.MaxUploadBytes is zero.
const DefaultMaxUploadBytes = 10 << 20

// Config wires the server's dependencies.
type Config struct {
	Repo    storage.Repository
	Metrics metrics.Backend
	Logger  *log.Logger

	// MaxUploadBytes caps the request body size for POST /datasets.
	// If <= 0, DefaultMaxUploadBytes is used.
	MaxUploadBytes int64

	// Tag tunes the tag-likelihood heuristic. Zero value means defaults.
	Tag infer.TagConfig

	// AllowInsecureTLS is passed through to source fetching for ?source= uploads.
	AllowInsecureTLS bool
}

// Server handles dataset HTTP requests.
type Server struct {
	repo     storage.Repository
	metrics  metrics.Backend
	log      *log.Logger
	maxBody  int64
	tag      infer.TagConfig
	insecure bool

	// now and newID are test seams. Production uses time.Now and random ids.
	now   func() time.Time
	newID func() string

	mux *http.ServeMux
}

// New constructs the server and its route table.
func New(cfg Config) *Server {
	s := &Server{
		repo:     cfg.Repo,
		metrics:  cfg.Metrics,
		log:      cfg.Logger,
		maxBody:  cfg.MaxUploadBytes,
		tag:      cfg.Tag,
		insecure: cfg.AllowInsecureTLS,
		now:      time.Now,
		newID:    randomID,
	}
	if s.metrics == nil {
		s.metrics = metrics.Nop{}
	}
	if s.log == nil {
		s.log = log.Default()
	}
	if s.maxBody <= 0 {
		s.maxBody = DefaultMaxUploadBytes
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /datasets", s.handleCreate)
	mux.HandleFunc("GET /datasets", s.handleList)
	mux.HandleFunc("GET /datasets/{id}", s.handleGet)
	mux.HandleFunc("PATCH /datasets/{id}/columns/{name}", s.handleSetColumnType)
	mux.HandleFunc("DELETE /datasets/{id}", s.handleDelete)
	s.mux = mux
	return s
}

// Handler returns the routed handler wrapped with request instrumentation.
func (s *Server) Handler() http.Handler {
	return s.instrument(s.mux)
}

func randomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand read failures indicate a broken platform; there is no
		// meaningful recovery at request scope.
		panic(fmt.Sprintf("service: id generation: %v", err))
	}
	return hex.EncodeToString(b[:])
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		status := fmt.Sprintf("%d", rec.status)
		s.metrics.IncCounter(metrics.HTTPRequestsTotal, 1, metrics.Labels{"status": status})
		s.metrics.ObserveHistogram(metrics.HTTPRequestDurationSeconds, time.Since(start).Seconds(), metrics.Labels{"status": status})
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("service: encode response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// datasetResponse is the full dataset view returned by create, get and
// column-type updates.
type datasetResponse struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	CreatedAt   time.Time           `json:"created_at"`
	Schema      schema.TableSchema  `json:"schema"`
	Fields      []filterfield.Field `json:"fields"`
	Rows        []records.Record    `json:"rows"`
	RowCount    int                 `json:"row_count"`
	TotalRows   int                 `json:"total_rows"`
	InvalidRows int                 `json:"invalid_rows,omitempty"`
}

func toResponse(d *storage.Dataset, rows []records.Record, totalRows, invalidRows int) datasetResponse {
	if rows == nil {
		rows = []records.Record{}
	}
	return datasetResponse{
		ID:          d.ID,
		Name:        d.Name,
		CreatedAt:   d.CreatedAt,
		Schema:      d.Schema,
		Fields:      d.Fields,
		Rows:        rows,
		RowCount:    len(rows),
		TotalRows:   totalRows,
		InvalidRows: invalidRows,
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	data, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format, cols, rows, err := parser.ParseAny(data)
	if err != nil {
		s.metrics.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"format": string(format), "status": "parse_error"})
		s.writeError(w, http.StatusUnprocessableEntity, "Failed to parse data")
		return
	}

	inferStart := s.now()
	ts, err := infer.Infer(rows, infer.Options{Keys: cols, Tag: s.tag})
	s.metrics.ObserveHistogram(metrics.InferDurationSeconds, time.Since(inferStart).Seconds(), metrics.Labels{"format": string(format)})
	if err != nil {
		var empty *schema.EmptyDatasetError
		if errors.As(err, &empty) {
			s.metrics.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"format": string(format), "status": "empty"})
			s.writeError(w, http.StatusUnprocessableEntity, "Failed to parse data")
			return
		}
		s.internalError(w, "infer", err)
		return
	}

	fields, err := filterfield.Generate(ts, rows, filterfield.GenOptions{})
	if err != nil {
		s.internalError(w, "generate fields", err)
		return
	}

	invalid := s.countInvalidRows(ts, rows)

	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "dataset"
	}

	d := &storage.Dataset{
		ID:        s.newID(),
		Name:      name,
		CreatedAt: s.now().UTC(),
		Schema:    ts,
		Rows:      rows,
		Fields:    fields,
	}
	if err := s.repo.Save(ctx, d); err != nil {
		s.internalError(w, "save", err)
		return
	}

	s.metrics.IncCounter(metrics.UploadsTotal, 1, metrics.Labels{"format": string(format), "status": "ok"})
	s.metrics.IncCounter(metrics.RowsTotal, float64(len(rows)), metrics.Labels{"format": string(format)})
	s.log.Printf("service: created dataset id=%s name=%q format=%s rows=%d cols=%d invalid=%d",
		d.ID, d.Name, format, len(rows), ts.Len(), invalid)

	s.writeJSON(w, http.StatusCreated, toResponse(d, d.Rows, len(d.Rows), invalid))
}

// readUpload returns the dataset bytes for a create request: either fetched
// from the ?source= URL or read from the request body, size-capped.
func (s *Server) readUpload(r *http.Request) ([]byte, error) {
	if src := strings.TrimSpace(r.URL.Query().Get("source")); src != "" {
		data, err := datasource.Fetch(r.Context(), src, datasource.Options{
			MaxBytes:         int(s.maxBody),
			AllowInsecureTLS: s.insecure,
		})
		if err != nil {
			return nil, fmt.Errorf("fetch source: %w", err)
		}
		return data, nil
	}

	data, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty request body")
	}
	return data, nil
}

// countInvalidRows runs the row validator and reports how many rows carry at
// least one type violation. Violations never fail ingestion.
func (s *Server) countInvalidRows(ts schema.TableSchema, rows []records.Record) int {
	check, err := validate.RowValidator(ts)
	if err != nil {
		s.log.Printf("service: row validator: %v", err)
		return 0
	}
	invalid := 0
	for _, row := range rows {
		if err := check(row); err != nil {
			invalid++
		}
	}
	return invalid
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	infos, err := s.repo.List(r.Context())
	if err != nil {
		s.internalError(w, "list", err)
		return
	}
	if infos == nil {
		infos = []storage.Info{}
	}
	s.metrics.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{"op": "list"})
	s.writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDataset(w, r)
	if !ok {
		return
	}

	dec, err := validate.NewDecoder(d.Schema)
	if err != nil {
		s.internalError(w, "build decoder", err)
		return
	}
	filters, err := dec.DecodeQuery(r.URL.Query())
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rows := validate.Apply(d.Rows, filters)

	op := "get"
	if len(filters) > 0 {
		op = "filter"
	}
	s.metrics.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{"op": op})

	s.writeJSON(w, http.StatusOK, toResponse(d, rows, len(d.Rows), 0))
}

// setColumnTypeRequest is the PATCH body for column type overrides.
type setColumnTypeRequest struct {
	Type string `json:"type"`
}

func (s *Server) handleSetColumnType(w http.ResponseWriter, r *http.Request) {
	d, ok := s.loadDataset(w, r)
	if !ok {
		return
	}
	column := r.PathValue("name")

	var req setColumnTypeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	typ, err := schema.ParseType(req.Type)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, found := d.Schema.Lookup(column); !found {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("unknown column %q", column))
		return
	}

	updated, err := d.Schema.WithType(column, typ)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The override is authoritative: fields are rebuilt from the stored rows
	// under the new type, with no re-inference pass.
	fields, err := filterfield.Generate(updated, d.Rows, filterfield.GenOptions{})
	if err != nil {
		s.internalError(w, "generate fields", err)
		return
	}

	d.Schema = updated
	d.Fields = fields
	if err := s.repo.Save(r.Context(), d); err != nil {
		s.internalError(w, "save", err)
		return
	}

	s.metrics.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{"op": "retype"})
	s.log.Printf("service: dataset %s column %q set to %s", d.ID, column, typ)

	s.writeJSON(w, http.StatusOK, toResponse(d, d.Rows, len(d.Rows), 0))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.repo.Delete(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "dataset not found")
		return
	}
	if err != nil {
		s.internalError(w, "delete", err)
		return
	}
	s.metrics.IncCounter(metrics.QueriesTotal, 1, metrics.Labels{"op": "delete"})
	w.WriteHeader(http.StatusNoContent)
}

// loadDataset resolves {id} and writes the error response itself when the
// dataset cannot be loaded.
func (s *Server) loadDataset(w http.ResponseWriter, r *http.Request) (*storage.Dataset, bool) {
	id := r.PathValue("id")
	d, err := s.repo.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "dataset not found")
		return nil, false
	}
	if err != nil {
		s.internalError(w, "get", err)
		return nil, false
	}
	return d, true
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.log.Printf("service: %s: %v", op, err)
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

