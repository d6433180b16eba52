package importsheet

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/importer"
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

type Handler struct {
	importSvc  *importer.Service
	ledgerSvc  *ledger.Service
	catalogSvc *catalog.Service
}

func NewHandler(importSvc *importer.Service, ledgerSvc *ledger.Service, catalogSvc *catalog.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		ledgerSvc:  ledgerSvc,
		catalogSvc: catalogSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importSheet)
	r.Post("/confirm", h.confirmImport)
}

type rowDTO struct {
	SerialNo     string           `json:"serialNo"`
	Date         string           `json:"date"`
	Manufacturer string           `json:"manufacturer"`
	Customer     string           `json:"customer"`
	Product      string           `json:"product"`
	Route        string           `json:"route"`
	Phone        string           `json:"phone"`
	Note         string           `json:"note"`
	MeasureUnit  measure.Unit     `json:"measureUnit"`
	Quantity     float64          `json:"quantity"`
	UnitPrice    decimal.Decimal  `json:"unitPrice"`
	Amount       *decimal.Decimal `json:"amount,omitempty"`
	Rebate       decimal.Decimal  `json:"rebate"`
	UnitWeight   float64          `json:"unitWeight"`
	UnitVolume   float64          `json:"unitVolume"`
}

type previewResponse struct {
	Rows []rowDTO `json:"rows"`
}

type importSuccessResponse struct {
	Imported  int               `json:"imported"`
	Shipments []ledger.Shipment `json:"shipments"`
}

type confirmRequest struct {
	Rows []rowDTO `json:"rows"`
}

func (h *Handler) importSheet(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatFromName(header.Filename)
	}

	params, err := h.importSvc.Import(format, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	filled, err := h.catalogSvc.Fill(r.Context(), params)
	if err != nil {
		slog.Warn("failed to fill imported rows from catalog", "error", err)
	} else {
		params = filled
	}

	if r.FormValue("preview") == "true" {
		rows := make([]rowDTO, 0, len(params))
		for _, p := range params {
			rows = append(rows, toRowDTO(p))
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(previewResponse{Rows: rows}); err != nil {
			slog.Error("failed to encode response", "error", err)
		}

		return
	}

	h.respondImported(w, h.ledgerSvc.ImportShipments(r.Context(), params))
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	params := make([]ledger.ShipmentParams, 0, len(req.Rows))
	for _, row := range req.Rows {
		if row.Quantity < 0 || row.UnitPrice.IsNegative() || (row.Amount != nil && row.Amount.IsNegative()) {
			http.Error(w, "negative values are not allowed", http.StatusBadRequest)
			return
		}

		params = append(params, row.params())
	}

	h.respondImported(w, h.ledgerSvc.ImportShipments(r.Context(), params))
}

func (h *Handler) respondImported(w http.ResponseWriter, shipments []ledger.Shipment) {
	if shipments == nil {
		shipments = []ledger.Shipment{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(importSuccessResponse{
		Imported:  len(shipments),
		Shipments: shipments,
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func toRowDTO(p ledger.ShipmentParams) rowDTO {
	return rowDTO{
		SerialNo:     p.SerialNo,
		Date:         p.Date,
		Manufacturer: p.Manufacturer,
		Customer:     p.Customer,
		Product:      p.Product,
		Route:        p.Route,
		Phone:        p.Phone,
		Note:         p.Note,
		MeasureUnit:  p.MeasureUnit,
		Quantity:     p.Quantity,
		UnitPrice:    p.UnitPrice,
		Amount:       p.Amount,
		Rebate:       p.Rebate,
		UnitWeight:   p.UnitWeight,
		UnitVolume:   p.UnitVolume,
	}
}

func (d rowDTO) params() ledger.ShipmentParams {
	return ledger.ShipmentParams{
		SerialNo:     d.SerialNo,
		Date:         d.Date,
		Manufacturer: d.Manufacturer,
		Customer:     d.Customer,
		Product:      d.Product,
		Route:        d.Route,
		Phone:        d.Phone,
		Note:         d.Note,
		MeasureUnit:  measure.NormalizeUnit(string(d.MeasureUnit)),
		Quantity:     d.Quantity,
		UnitPrice:    d.UnitPrice,
		Amount:       d.Amount,
		Rebate:       d.Rebate,
		UnitWeight:   d.UnitWeight,
		UnitVolume:   d.UnitVolume,
	}
}
