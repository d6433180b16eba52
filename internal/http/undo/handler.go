package undo

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.pending)
	r.Post("/", h.apply)
}

type pendingResponse struct {
	Pending bool                `json:"pending"`
	Undo    *ledger.PendingUndo `json:"undo,omitempty"`
}

func (h *Handler) pending(w http.ResponseWriter, r *http.Request) {
	resp := pendingResponse{}

	if p, ok := h.svc.PendingUndo(); ok {
		resp.Pending = true
		resp.Undo = &p
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) apply(w http.ResponseWriter, r *http.Request) {
	restored, err := h.svc.Undo(r.Context())
	if err != nil {
		slog.Error("failed to undo", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	if !restored {
		http.Error(w, "nothing to undo", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
