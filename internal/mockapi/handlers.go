package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hnrobert/vanconnect/internal/dataservice"
	"github.com/hnrobert/vanconnect/internal/logger"
)

const maxBody = 1 << 20

type API struct {
	db *DB
}

func New(db *DB) *API {
	return &API{db: db}
}

func (a *API) Routes() http.Handler {
	mux := http.NewServeMux()
	for _, c := range []string{Usuarios, Drivers, Vehicles} {
		mux.HandleFunc("GET /"+c, func(w http.ResponseWriter, r *http.Request) { a.handleList(w, r, c) })
		mux.HandleFunc("POST /"+c, func(w http.ResponseWriter, r *http.Request) { a.handleCreate(w, r, c) })
		mux.HandleFunc("GET /"+c+"/{id}", func(w http.ResponseWriter, r *http.Request) { a.handleGet(w, r, c) })
	}
	mux.HandleFunc("GET /navigation", a.handleNavigation)
	return withAccessLog(mux)
}

func (a *API) handleList(w http.ResponseWriter, r *http.Request, collection string) {
	filter := map[string]string{}
	for k, vs := range r.URL.Query() {
		if len(vs) > 0 {
			filter[k] = vs[0]
		}
	}
	recs, err := a.db.List(collection, filter)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func (a *API) handleGet(w http.ResponseWriter, r *http.Request, collection string) {
	rec, err := a.db.Get(collection, r.PathValue("id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleCreate(w http.ResponseWriter, r *http.Request, collection string) {
	var rec dataservice.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(&rec); err != nil || rec == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be a JSON object"})
		return
	}
	saved, err := a.db.Insert(collection, rec)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (a *API) handleNavigation(w http.ResponseWriter, r *http.Request) {
	nav, err := a.db.Navigation()
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nav)
}

func (a *API) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownCollection):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		logger.Error("mockapi: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.code = code
	s.ResponseWriter.WriteHeader(code)
}

func withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)
		// the query may carry a password
		path := r.URL.Path
		if strings.Contains(r.URL.RawQuery, "senha") {
			path += "?…"
		} else if r.URL.RawQuery != "" {
			path += "?" + r.URL.RawQuery
		}
		logger.Debug("mockapi: %s %s %d %s", r.Method, path, rec.code, time.Since(start).Round(time.Microsecond))
	})
}
