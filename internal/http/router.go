package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/freightbook/internal/http/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/http/dispatch"
	"github.com/MrJamesThe3rd/freightbook/internal/http/export"
	"github.com/MrJamesThe3rd/freightbook/internal/http/finance"
	"github.com/MrJamesThe3rd/freightbook/internal/http/importsheet"
	"github.com/MrJamesThe3rd/freightbook/internal/http/reminder"
	"github.com/MrJamesThe3rd/freightbook/internal/http/shipment"
	"github.com/MrJamesThe3rd/freightbook/internal/http/storage"
	"github.com/MrJamesThe3rd/freightbook/internal/http/undo"
)

type Handlers struct {
	Health      http.HandlerFunc
	Storage     *storage.Handler
	ShipmentsV1 *shipment.Handler
	DispatchV1  *dispatch.Handler
	FinanceV1   *finance.Handler
	RemindersV1 *reminder.Handler
	UndoV1      *undo.Handler
	ImportV1    *importsheet.Handler
	ExportV1    *export.Handler
	CatalogV1   *catalog.Handler
}

type Options struct {
	CORSOrigins []string
	// WebDir, when set, is served as static files for every non-API path.
	WebDir string
}

func New(h Handlers, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	router.Get("/api/health", h.Health)
	router.Route("/api/storage", h.Storage.Routes)

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/shipments", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.ShipmentsV1.Routes(r)
		})

		r.Route("/dispatch", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.DispatchV1.Routes(r)
		})

		r.Route("/finance", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.FinanceV1.Routes(r)
		})

		r.Route("/reminders", h.RemindersV1.Routes)
		r.Route("/undo", h.UndoV1.Routes)
		r.Route("/import", h.ImportV1.Routes)

		r.Route("/export", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			h.ExportV1.Routes(r)
		})

		r.Route("/catalog", h.CatalogV1.Routes)
	})

	if opts.WebDir != "" {
		router.Handle("/*", http.FileServer(http.Dir(opts.WebDir)))
	}

	return router
}
