// Package api provides the HTTP search surface: a health check plus one
// hybrid-search endpoint per engine kind, built on chi and mirroring the
// shape of the teacher's chi-based API router.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/dbsmedya/dbs-vector/internal/config"
	"github.com/dbsmedya/dbs-vector/internal/core"
	"github.com/dbsmedya/dbs-vector/internal/engine"
	"github.com/dbsmedya/dbs-vector/internal/observability"
	"github.com/dbsmedya/dbs-vector/internal/search"
)

// searchErrorStatus maps a search-execution error to its HTTP status:
// malformed caller input (empty query, bad shape) is a 422, anything else
// from the store/embedder is a 500.
func searchErrorStatus(err error) (int, string) {
	var verr *core.ValidationError
	var serr *core.ShapeMismatchError
	if errors.As(err, &verr) || errors.As(err, &serr) {
		return http.StatusUnprocessableEntity, err.Error()
	}
	return http.StatusInternalServerError, "Search execution failed: " + err.Error()
}

type requestIDKey struct{}

// withRequestID assigns a uuid to every request, used as the correlation
// ID carried through the request-scoped log lines below.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// NewRouter builds the HTTP router. reg must already be built (the
// caller fails hard at startup if BuildAll errored) so every route here
// can assume reg.Engines is final.
func NewRouter(logger *observability.Logger, cfg *config.Config, reg *engine.Registry) http.Handler {
	r := chi.NewRouter()

	r.Use(withRequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(requestLogger(logger))

	r.Get("/health", healthHandler(cfg, reg))
	r.Post("/search/md", searchDocumentsHandler(reg))
	r.Post("/search/sql", searchSqlHandler(reg))

	return r
}

// requestLogger logs one line per request at info level, tagged with the
// uuid correlation ID assigned by withRequestID.
func requestLogger(logger *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("request_id", requestIDFromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request handled")
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// healthHandler reports 503 until every configured engine is loaded, and
// 200 with each engine's model name once ready.
func healthHandler(cfg *config.Config, reg *engine.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || len(reg.Engines) == 0 {
			writeError(w, http.StatusServiceUnavailable, "Search service initializing or failed")
			return
		}

		status := map[string]string{"status": "healthy"}
		for name, inst := range reg.Engines {
			status[name+"_model"] = inst.ModelName()
		}
		writeJSON(w, http.StatusOK, status)
	}
}

type searchRequest struct {
	Query        string   `json:"query"`
	Limit        int      `json:"limit"`
	SourceFilter *string  `json:"source_filter"`
	MinTime      *float64 `json:"min_time"`
}

func searchDocumentsHandler(reg *engine.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, err := reg.Get("md")
		if err != nil || inst.Document == nil {
			writeError(w, http.StatusServiceUnavailable, "Document search service is not initialized.")
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		limit, ok := resolveLimit(req.Limit)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 100")
			return
		}

		results, err := inst.Document.Search(r.Context(), req.Query, search.Options{Limit: limit, SourceFilter: req.SourceFilter})
		if err != nil {
			status, detail := searchErrorStatus(err)
			writeError(w, status, detail)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": results})
	}
}

// resolveLimit applies the documented 1..100 range, default 5: an unset
// (zero) limit defaults to 5; anything outside [1, 100] is rejected.
func resolveLimit(limit int) (int, bool) {
	if limit == 0 {
		return 5, true
	}
	if limit < 1 || limit > 100 {
		return 0, false
	}
	return limit, true
}

func searchSqlHandler(reg *engine.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inst, err := reg.Get("sql")
		if err != nil || inst.SQL == nil {
			writeError(w, http.StatusServiceUnavailable, "SQL search service is not initialized.")
			return
		}

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		limit, ok := resolveLimit(req.Limit)
		if !ok {
			writeError(w, http.StatusUnprocessableEntity, "limit must be between 1 and 100")
			return
		}

		results, err := inst.SQL.Search(r.Context(), req.Query, search.Options{Limit: limit, SourceFilter: req.SourceFilter, MinTime: req.MinTime})
		if err != nil {
			status, detail := searchErrorStatus(err)
			writeError(w, status, detail)
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"query": req.Query, "results": results})
	}
}
