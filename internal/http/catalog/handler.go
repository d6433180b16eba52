package catalog

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

type Handler struct {
	svc *catalog.Service
}

func NewHandler(svc *catalog.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Get("/", h.overrides)
	r.Post("/", h.learn)
}

type suggestResponse struct {
	Found   bool             `json:"found"`
	Profile *catalog.Profile `json:"profile,omitempty"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := catalog.Query{
		Manufacturer: q.Get("manufacturer"),
		Customer:     q.Get("customer"),
		Product:      q.Get("product"),
	}
	if query.Product == "" {
		http.Error(w, "product query parameter is required", http.StatusBadRequest)
		return
	}

	profile, found, err := h.svc.Suggest(r.Context(), query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := suggestResponse{Found: found}
	if found {
		resp.Profile = &profile
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) overrides(w http.ResponseWriter, r *http.Request) {
	overrides, err := h.svc.Overrides(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if overrides == nil {
		overrides = []catalog.Override{}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(overrides); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type learnRequest struct {
	Manufacturer string          `json:"manufacturer"`
	Customer     string          `json:"customer"`
	Product      string          `json:"product"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	MeasureUnit  string          `json:"measureUnit"`
	Route        string          `json:"route"`
	Phone        string          `json:"phone"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if req.UnitPrice.IsNegative() {
		http.Error(w, "unitPrice must not be negative", http.StatusBadRequest)
		return
	}

	err := h.svc.Learn(r.Context(), catalog.Override{
		Manufacturer: req.Manufacturer,
		Customer:     req.Customer,
		Product:      req.Product,
		UnitPrice:    req.UnitPrice,
		MeasureUnit:  measure.NormalizeUnit(req.MeasureUnit),
		Route:        req.Route,
		Phone:        req.Phone,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrProductRequired) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusCreated)
}
