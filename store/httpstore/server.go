// Package httpstore exposes a store.Store over HTTP and consumes one.
//
// Routes:
//
//	GET    /health
//	GET    /snapshots           list slots (when the store can)
//	GET    /snapshots/{slot}    raw blob, 404 when absent
//	PUT    /snapshots/{slot}    replace blob
//	DELETE /snapshots/{slot}    clear slot
package httpstore

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/hotstate/kit"
	"github.com/hazyhaar/hotstate/store"
)

// DefaultMaxBody caps the size of an uploaded snapshot.
const DefaultMaxBody = 8 << 20

// Handler returns the HTTP API of s. maxBody <= 0 selects DefaultMaxBody.
func Handler(s store.Store, maxBody int64, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBody <= 0 {
		maxBody = DefaultMaxBody
	}
	h := &handler{store: s, maxBody: maxBody}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(traceID(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Route("/snapshots", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{slot}", h.load)
		r.Put("/{slot}", h.save)
		r.Delete("/{slot}", h.clear)
	})
	return r
}

type handler struct {
	store   store.Store
	maxBody int64
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	l, ok := h.store.(store.Lister)
	if !ok {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "store cannot list slots"})
		return
	}
	slots, err := l.Slots(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}
	if slots == nil {
		slots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

func (h *handler) load(w http.ResponseWriter, r *http.Request) {
	blob, err := h.store.Load(r.Context(), chi.URLParam(r, "slot"))
	if errors.Is(err, store.ErrNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(blob)
}

func (h *handler) save(w http.ResponseWriter, r *http.Request) {
	blob, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(r.Context(), w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}
	if err := h.store.Save(r.Context(), chi.URLParam(r, "slot"), blob); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context(), chi.URLParam(r, "slot")); err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// traceID tags each request with a random id, echoed in X-Trace-ID and
// attached to a per-request logger.
func traceID(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tid := kit.NewTraceID()
			w.Header().Set("X-Trace-ID", tid)

			logger := base.With("trace_id", tid, "method", r.Method, "path", r.URL.Path)
			logger.Debug("httpstore: request")
			ctx := kit.WithLogger(kit.WithTraceID(r.Context(), tid), logger)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, w http.ResponseWriter, code int, err error) {
	if code >= 500 {
		kit.Logger(ctx, nil).Error("httpstore: request failed", "error", err)
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
