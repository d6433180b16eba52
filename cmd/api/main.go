package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/config"
	"github.com/MrJamesThe3rd/freightbook/internal/database"
	"github.com/MrJamesThe3rd/freightbook/internal/export"
	fbHttp "github.com/MrJamesThe3rd/freightbook/internal/http"
	catalogHandler "github.com/MrJamesThe3rd/freightbook/internal/http/catalog"
	dispatchHandler "github.com/MrJamesThe3rd/freightbook/internal/http/dispatch"
	exportHandler "github.com/MrJamesThe3rd/freightbook/internal/http/export"
	financeHandler "github.com/MrJamesThe3rd/freightbook/internal/http/finance"
	"github.com/MrJamesThe3rd/freightbook/internal/http/health"
	importHandler "github.com/MrJamesThe3rd/freightbook/internal/http/importsheet"
	reminderHandler "github.com/MrJamesThe3rd/freightbook/internal/http/reminder"
	shipmentHandler "github.com/MrJamesThe3rd/freightbook/internal/http/shipment"
	storageHandler "github.com/MrJamesThe3rd/freightbook/internal/http/storage"
	undoHandler "github.com/MrJamesThe3rd/freightbook/internal/http/undo"
	"github.com/MrJamesThe3rd/freightbook/internal/importer"
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/storage"
)

func main() {
	_ = godotenv.Load()

	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	loc, err := cfg.Location()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	store, closeStore, err := database.OpenStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	ledgerService := ledger.NewService(store,
		ledger.WithLogger(slog.Default()),
		ledger.WithSnoozeDuration(cfg.Ledger.SnoozeDuration),
		ledger.WithUndoWindow(cfg.Ledger.UndoWindow),
	)

	if err := ledgerService.Load(ctx); err != nil {
		slog.Error("failed to load ledger", "error", err)
		os.Exit(1)
	}

	var (
		catalogService = catalog.NewService(store, ledgerService)
		importService  = importer.NewService()
		exportService  = export.NewService(ledgerService, loc)
	)

	// Blobs written by the browser UI bypass the services, so the affected
	// in-memory state is rebuilt from storage.
	reload := func(ctx context.Context, key string) {
		switch key {
		case ledger.KeyShipments, ledger.KeyDispatchRecords, ledger.KeyFinanceRecords, ledger.KeyHomeSettleActions:
			if err := ledgerService.Load(ctx); err != nil {
				slog.Error("failed to reload ledger", "key", key, "error", err)
			}
		case catalog.KeyOverrides:
			catalogService.Reset()
		}
	}

	dataDir := ""
	if cfg.Storage.Driver == storage.DriverFile {
		dataDir = cfg.Storage.DataDir
	}

	router := fbHttp.New(fbHttp.Handlers{
		Health:      health.Handler(cfg.Storage.Driver, dataDir),
		Storage:     storageHandler.NewHandler(store, cfg.Server.BodyLimit, reload),
		ShipmentsV1: shipmentHandler.NewHandler(ledgerService),
		DispatchV1:  dispatchHandler.NewHandler(ledgerService),
		FinanceV1:   financeHandler.NewHandler(ledgerService),
		RemindersV1: reminderHandler.NewHandler(ledgerService),
		UndoV1:      undoHandler.NewHandler(ledgerService),
		ImportV1:    importHandler.NewHandler(importService, ledgerService, catalogService),
		ExportV1:    exportHandler.NewHandler(exportService),
		CatalogV1:   catalogHandler.NewHandler(catalogService),
	}, fbHttp.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		WebDir:      cfg.Server.WebDir,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	slog.Info("starting server", "app", cfg.App.Name, "addr", srv.Addr, "driver", cfg.Storage.Driver)

	if err := srv.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
