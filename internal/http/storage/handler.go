// Package storage serves raw collection blobs to the browser UI with the
// {ok, exists, value} envelope it expects.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/freightbook/internal/storage"
)

// DefaultBodyLimit caps a POSTed blob.
const DefaultBodyLimit = 8 << 20

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// WriteHook runs after a blob was stored, so in-memory state built from the
// key can be refreshed.
type WriteHook func(ctx context.Context, key string)

type Handler struct {
	store   Store
	limit   int64
	onWrite WriteHook
}

func NewHandler(store Store, limit int64, onWrite WriteHook) *Handler {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}

	return &Handler{store: store, limit: limit, onWrite: onWrite}
}

func (h *Handler) Routes(r chi.Router) {
	r.HandleFunc("/{key}", h.serve)
}

type envelope struct {
	OK     bool            `json:"ok"`
	Exists *bool           `json:"exists,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func fail(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, envelope{Error: code})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(chi.URLParam(r, "key"))
	if !storage.ValidKey(key) {
		fail(w, http.StatusBadRequest, "invalid_storage_key")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, key)
	case http.MethodPost:
		h.post(w, r, key)
	default:
		fail(w, http.StatusMethodNotAllowed, "method_not_allowed")
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, key string) {
	data, err := h.store.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]any{"ok": true, "exists": false, "value": nil})
			return
		}

		slog.Error("failed to read storage key", "key", key, "error", err)
		fail(w, http.StatusInternalServerError, "read_storage_failed")

		return
	}

	if !json.Valid(data) {
		slog.Error("stored value is not valid JSON", "key", key)
		fail(w, http.StatusInternalServerError, "read_storage_failed")

		return
	}

	writeJSON(w, http.StatusOK, envelope{OK: true, Exists: new(true), Value: data})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request, key string) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, http.StatusRequestEntityTooLarge, "payload_too_large")
			return
		}

		fail(w, http.StatusBadRequest, "invalid_json_body")

		return
	}

	value := json.RawMessage("null")

	if len(strings.TrimSpace(string(raw))) > 0 {
		if !json.Valid(raw) {
			fail(w, http.StatusBadRequest, "invalid_json_body")
			return
		}

		var payload map[string]json.RawMessage
		if err := json.Unmarshal(raw, &payload); err == nil {
			if v, ok := payload["value"]; ok {
				value = v
			}
		}
	}

	if err := h.store.Put(r.Context(), key, value); err != nil {
		slog.Error("failed to write storage key", "key", key, "error", err)
		fail(w, http.StatusInternalServerError, "write_storage_failed")

		return
	}

	if h.onWrite != nil {
		h.onWrite(r.Context(), key)
	}

	writeJSON(w, http.StatusOK, envelope{OK: true})
}
