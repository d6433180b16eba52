package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/freightbook/internal/export"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

type Handler struct {
	svc *export.Service
	now func() time.Time
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc, now: time.Now}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

type exportRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

func (req exportRequest) filter() (export.Filter, error) {
	var f export.Filter

	if req.StartDate != "" {
		d, ok := measure.ParseDate(req.StartDate)
		if !ok {
			return f, fmt.Errorf("invalid start_date %q", req.StartDate)
		}

		f.From = d
	}

	if req.EndDate != "" {
		d, ok := measure.ParseDate(req.EndDate)
		if !ok {
			return f, fmt.Errorf("invalid end_date %q", req.EndDate)
		}

		f.To = d
	}

	return f, nil
}

type exportMetadataResponse struct {
	StartDate      string `json:"start_date,omitempty"`
	EndDate        string `json:"end_date,omitempty"`
	ReminderDigest string `json:"reminder_digest"`
}

func decodeFilter(w http.ResponseWriter, r *http.Request) (export.Filter, bool) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return export.Filter{}, false
	}

	filter, err := req.filter()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return export.Filter{}, false
	}

	return filter, true
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	filter, ok := decodeFilter(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(exportMetadataResponse{
		StartDate:      filter.From,
		EndDate:        filter.To,
		ReminderDigest: h.svc.ReminderDigest(),
	}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	filter, ok := decodeFilter(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"freightbook_%s.zip\"", h.now().Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	book, err := zipWriter.Create("freightbook.xlsx")
	if err != nil {
		slog.Error("failed to create zip", "error", err)
		return
	}

	if err := h.svc.Workbook(book, filter); err != nil {
		slog.Error("failed to write workbook", "error", err)
		return
	}

	digest, err := zipWriter.Create("reminders.txt")
	if err != nil {
		slog.Error("failed to create zip", "error", err)
		return
	}

	if _, err := digest.Write([]byte(h.svc.ReminderDigest())); err != nil {
		slog.Error("failed to write reminder digest", "error", err)
	}
}
