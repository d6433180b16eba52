package finance

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

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
	r.Post("/", h.create)
	r.Delete("/{id}", h.delete)
}

type createFinanceRequest struct {
	Type       ledger.FinanceType `json:"type"`
	Amount     decimal.Decimal    `json:"amount"`
	Date       string             `json:"date"`
	Summary    string             `json:"summary"`
	Category   string             `json:"category"`
	Note       string             `json:"note"`
	SourceType string             `json:"sourceType"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	typ := ledger.FinanceType(r.URL.Query().Get("type"))
	records := h.svc.FinanceRecords()

	if typ != "" {
		filtered := records[:0]

		for _, f := range records {
			if f.Type == typ {
				filtered = append(filtered, f)
			}
		}

		records = filtered
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(records); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createFinanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.svc.CreateFinanceRecord(r.Context(), ledger.FinanceParams{
		Type:       req.Type,
		Amount:     req.Amount,
		Date:       req.Date,
		Summary:    req.Summary,
		Category:   req.Category,
		Note:       req.Note,
		SourceType: req.SourceType,
	})
	if err != nil {
		// Every create failure is a rejected input.
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(rec); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFinanceRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, ledger.ErrFinanceNotFound) {
			http.Error(w, "finance record not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
