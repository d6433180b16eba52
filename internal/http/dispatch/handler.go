package dispatch

import (
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
	r.Post("/batch", h.batchLoad)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/items", h.appendItems)
	r.Delete("/{id}/items/{shipmentID}", h.removeItem)
}

type batchLoadRequest struct {
	ShipmentIDs []string `json:"shipmentIds"`
	Date        string   `json:"dispatchDate"`
	TruckNo     string   `json:"dispatchTruckNo"`
	PlateNo     string   `json:"dispatchPlateNo"`
	Driver      string   `json:"dispatchDriver"`
	ContactName string   `json:"dispatchContactName"`
}

type batchLoadResponse struct {
	UpdatedCount int                    `json:"updatedCount"`
	Record       *ledger.DispatchRecord `json:"record,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(h.svc.DispatchRecords()); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) batchLoad(w http.ResponseWriter, r *http.Request) {
	var req batchLoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if len(req.ShipmentIDs) == 0 {
		http.Error(w, "shipmentIds is required", http.StatusBadRequest)
		return
	}

	res, err := h.svc.BatchLoad(r.Context(), req.ShipmentIDs, ledger.DispatchMeta{
		Date:        req.Date,
		TruckNo:     req.TruckNo,
		PlateNo:     req.PlateNo,
		Driver:      req.Driver,
		ContactName: req.ContactName,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if res.Record != nil {
		w.WriteHeader(http.StatusCreated)
	}

	if err := json.NewEncoder(w).Encode(batchLoadResponse{
		UpdatedCount: res.UpdatedCount,
		Record:       res.Record,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.DispatchRecord(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(rec); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRecord(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type appendRequest struct {
	ShipmentIDs []string `json:"shipmentIds"`
}

type appendResponse struct {
	AddedCount int `json:"addedCount"`
}

func (h *Handler) appendItems(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := h.svc.AppendToRecord(r.Context(), chi.URLParam(r, "id"), req.ShipmentIDs)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(appendResponse{AddedCount: res.AddedCount}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type removeResponse struct {
	Removed       bool `json:"removed"`
	RecordDeleted bool `json:"recordDeleted"`
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RemoveFromRecord(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "shipmentID"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(removeResponse{
		Removed:       res.Removed,
		RecordDeleted: res.RecordDeleted,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ledger.ErrRecordNotFound) {
		http.Error(w, "dispatch record not found", http.StatusNotFound)
		return
	}

	slog.Error("failed to handle dispatch request", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
