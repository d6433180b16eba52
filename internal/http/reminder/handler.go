package reminder

import (
	"context"
	"encoding/json"
	"errors"
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
	r.Get("/", h.list)
	r.Get("/stats", h.stats)
	r.Get("/actions", h.actions)
	r.Post("/{id}/snooze", h.act(h.svc.SnoozeReminder))
	r.Post("/{id}/contact", h.act(h.svc.ContactReminder))
	r.Post("/{id}/paid", h.act(h.svc.MarkReminderPaid))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := ledger.ReminderFilter{
		Status:     ledger.HomeSettleStatus(q.Get("status")),
		ActiveOnly: q.Get("active") == "true",
		Query:      q.Get("q"),
	}

	reminders := h.svc.Reminders(filter)
	if reminders == nil {
		reminders = []ledger.Reminder{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(reminders); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.svc.ReminderStats()); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) actions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.svc.HomeSettleActions()); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type actionFunc func(ctx context.Context, shipmentID string) (ledger.HomeSettleActionRecord, error)

func (h *Handler) act(fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := fn(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			if errors.Is(err, ledger.ErrShipmentNotFound) {
				http.Error(w, "shipment not found", http.StatusNotFound)
				return
			}

			slog.Error("failed to record reminder action", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)

		if err := json.NewEncoder(w).Encode(rec); err != nil {
			slog.Error("failed to encode response", "error", err)
		}
	}
}
