package shipment

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

type Handler struct {
	svc *ledger.Service
}

func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Put("/{id}/paid", h.setPaid)
	r.Post("/{id}/load", h.load)
	r.Post("/{id}/unload", h.unload)
}

type createShipmentRequest struct {
	SerialNo     string           `json:"serialNo"`
	Date         string           `json:"date"`
	Manufacturer string           `json:"manufacturer"`
	Customer     string           `json:"customer"`
	Product      string           `json:"product"`
	Route        string           `json:"route"`
	Phone        string           `json:"phone"`
	Note         string           `json:"note"`
	MeasureUnit  string           `json:"measureUnit"`
	Quantity     float64          `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Rebate       decimal.Decimal  `json:"rebate"`
	UnitWeight   float64          `json:"unitWeight"`
	UnitVolume   float64          `json:"unitVolume"`
}

func (req createShipmentRequest) validate() error {
	if req.Date != "" {
		if _, ok := measure.ParseDate(req.Date); !ok {
			return errors.New("invalid date")
		}
	}

	if req.Quantity < 0 || req.UnitWeight < 0 || req.UnitVolume < 0 {
		return errors.New("quantities must not be negative")
	}

	if req.UnitPrice.IsNegative() || req.Rebate.IsNegative() || (req.Amount != nil && req.Amount.IsNegative()) {
		return errors.New("money values must not be negative")
	}

	return nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sh := h.svc.CreateShipment(r.Context(), ledger.ShipmentParams{
		SerialNo:     req.SerialNo,
		Date:         req.Date,
		Manufacturer: req.Manufacturer,
		Customer:     req.Customer,
		Product:      req.Product,
		Route:        req.Route,
		Phone:        req.Phone,
		Note:         req.Note,
		MeasureUnit:  measure.NormalizeUnit(req.MeasureUnit),
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Amount:       req.Amount,
		Rebate:       req.Rebate,
		UnitWeight:   req.UnitWeight,
		UnitVolume:   req.UnitVolume,
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(sh)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type listFilter struct {
	loaded *bool
	paid   *bool
	from   string
	to     string
	query  string
}

func parseBool(s string) *bool {
	if s == "" {
		return nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return nil
	}

	return &b
}

func (f listFilter) match(sh ledger.Shipment) bool {
	if f.loaded != nil && sh.IsLoaded != *f.loaded {
		return false
	}

	if f.paid != nil && sh.IsPaid != *f.paid {
		return false
	}

	if f.from != "" && sh.Date < f.from {
		return false
	}

	if f.to != "" && sh.Date > f.to {
		return false
	}

	if f.query == "" {
		return true
	}

	for _, field := range []string{sh.SerialNo, sh.Manufacturer, sh.Customer, sh.Product, sh.Phone, sh.Note} {
		if strings.Contains(strings.ToLower(field), f.query) {
			return true
		}
	}

	return false
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := listFilter{
		loaded: parseBool(q.Get("loaded")),
		paid:   parseBool(q.Get("paid")),
		query:  strings.ToLower(strings.TrimSpace(q.Get("q"))),
	}

	if s := q.Get("start_date"); s != "" {
		if d, ok := measure.ParseDate(s); ok {
			filter.from = d
		}
	}

	if s := q.Get("end_date"); s != "" {
		if d, ok := measure.ParseDate(s); ok {
			filter.to = d
		}
	}

	var shipments []ledger.Shipment

	for _, sh := range h.svc.Shipments() {
		if filter.match(sh) {
			shipments = append(shipments, sh)
		}
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponseList(shipments)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	sh, err := h.svc.Shipment(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(*sh)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type updateShipmentRequest struct {
	SerialNo     *string          `json:"serialNo,omitempty"`
	Date         *string          `json:"date,omitempty"`
	Manufacturer *string          `json:"manufacturer,omitempty"`
	Customer     *string          `json:"customer,omitempty"`
	Product      *string          `json:"product,omitempty"`
	Route        *string          `json:"route,omitempty"`
	Phone        *string          `json:"phone,omitempty"`
	Note         *string          `json:"note,omitempty"`
	MeasureUnit  *string          `json:"measureUnit,omitempty"`
	Quantity     *float64         `json:"quantity,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unitPrice,omitempty"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	ResetAmount  bool             `json:"resetAmount,omitempty"`
	Rebate       *decimal.Decimal `json:"rebate,omitempty"`
	UnitWeight   *float64         `json:"unitWeight,omitempty"`
	UnitVolume   *float64         `json:"unitVolume,omitempty"`
	Dispatch     *dispatchMetaDTO `json:"dispatch,omitempty"`
}

func (req updateShipmentRequest) patch() (ledger.ShipmentPatch, error) {
	p := ledger.ShipmentPatch{
		SerialNo:     req.SerialNo,
		Manufacturer: req.Manufacturer,
		Customer:     req.Customer,
		Product:      req.Product,
		Route:        req.Route,
		Phone:        req.Phone,
		Note:         req.Note,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Amount:       req.Amount,
		ResetAmount:  req.ResetAmount,
		Rebate:       req.Rebate,
		UnitWeight:   req.UnitWeight,
		UnitVolume:   req.UnitVolume,
	}

	if req.Date != nil {
		d, ok := measure.ParseDate(*req.Date)
		if !ok {
			return p, errors.New("invalid date")
		}

		p.Date = &d
	}

	if req.MeasureUnit != nil {
		u := measure.NormalizeUnit(*req.MeasureUnit)
		if u == measure.UnitUnknown {
			return p, errors.New("unknown measure unit")
		}

		p.MeasureUnit = &u
	}

	for _, f := range []*float64{req.Quantity, req.UnitWeight, req.UnitVolume} {
		if f != nil && *f < 0 {
			return p, errors.New("quantities must not be negative")
		}
	}

	for _, d := range []*decimal.Decimal{req.UnitPrice, req.Amount, req.Rebate} {
		if d != nil && d.IsNegative() {
			return p, errors.New("money values must not be negative")
		}
	}

	if req.Dispatch != nil {
		p.Dispatch = new(req.Dispatch.meta())
	}

	return p, nil
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateShipmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	patch, err := req.patch()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sh, err := h.svc.UpdateShipment(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(*sh)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteShipment(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type setPaidRequest struct {
	Paid bool `json:"paid"`
}

func (h *Handler) setPaid(w http.ResponseWriter, r *http.Request) {
	var req setPaidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sh, err := h.svc.SetPaid(r.Context(), chi.URLParam(r, "id"), req.Paid)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(*sh)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) {
	var req dispatchMetaDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.svc.LoadSingle(r.Context(), chi.URLParam(r, "id"), req.meta())
	if err != nil {
		writeError(w, err)
		return
	}

	if rec == nil {
		http.Error(w, "shipment is not loadable", http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(rec); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) unload(w http.ResponseWriter, r *http.Request) {
	unloaded, err := h.svc.UnloadSingle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	if !unloaded {
		http.Error(w, "shipment is not loaded", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrShipmentNotFound) {
		http.Error(w, "shipment not found", http.StatusNotFound)
		return
	}

	slog.Error("failed to handle shipment request", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
