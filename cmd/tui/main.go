package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/freightbook/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/freightbook/internal/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/config"
	"github.com/MrJamesThe3rd/freightbook/internal/database"
	"github.com/MrJamesThe3rd/freightbook/internal/export"
	"github.com/MrJamesThe3rd/freightbook/internal/importer"
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

type model struct {
	appName        string
	ledgerService  *ledger.Service
	catalogService *catalog.Service
	importService  *importer.Service
	exportService  *export.Service

	currentView View

	shipmentsView view.ShipmentsModel
	dispatchView  view.DispatchModel
	remindersView view.RemindersModel
	importView    view.ImportModel
	exportView    view.ExportModel
}

type View int

const (
	ViewMenu      View = 0
	ViewShipments View = 1
	ViewDispatch  View = 2
	ViewReminders View = 3
	ViewImport    View = 4
	ViewExport    View = 5
)

func fatal(msg string, args ...any) {
	slog.Error(msg, args...)
	os.Exit(1)
}

func initialModel(ctx context.Context, cfg *config.Config, store database.Store) model {
	loc, err := cfg.Location()
	if err != nil {
		fatal("failed to load config", "error", err)
	}

	ledgerSvc := ledger.NewService(store,
		ledger.WithLogger(slog.Default()),
		ledger.WithSnoozeDuration(cfg.Ledger.SnoozeDuration),
		ledger.WithUndoWindow(cfg.Ledger.UndoWindow),
	)

	if err := ledgerSvc.Load(ctx); err != nil {
		fatal("failed to load ledger", "error", err)
	}

	catSvc := catalog.NewService(store, ledgerSvc)
	impSvc := importer.NewService()
	expSvc := export.NewService(ledgerSvc, loc)

	return model{
		appName:        cfg.App.Name,
		ledgerService:  ledgerSvc,
		catalogService: catSvc,
		importService:  impSvc,
		exportService:  expSvc,
		currentView:    ViewMenu,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewShipments
				m.shipmentsView = view.NewShipmentsModel(m.ledgerService)

				return m, m.shipmentsView.Init()
			case "2":
				m.currentView = ViewDispatch
				m.dispatchView = view.NewDispatchModel(m.ledgerService)

				return m, m.dispatchView.Init()
			case "3":
				m.currentView = ViewReminders
				m.remindersView = view.NewRemindersModel(m.ledgerService)

				return m, m.remindersView.Init()
			case "4":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.ledgerService, m.importService, m.catalogService)

				return m, m.importView.Init()
			case "5":
				m.currentView = ViewExport
				m.exportView = view.NewExportModel(m.exportService)

				return m, m.exportView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewShipments:
		var newModel tea.Model
		newModel, cmd = m.shipmentsView.Update(msg)
		m.shipmentsView = newModel.(view.ShipmentsModel)
	case ViewDispatch:
		var newModel tea.Model
		newModel, cmd = m.dispatchView.Update(msg)
		m.dispatchView = newModel.(view.DispatchModel)
	case ViewReminders:
		var newModel tea.Model
		newModel, cmd = m.remindersView.Update(msg)
		m.remindersView = newModel.(view.RemindersModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewExport:
		var newModel tea.Model
		newModel, cmd = m.exportView.Update(msg)
		m.exportView = newModel.(view.ExportModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		stats := m.ledgerService.ReminderStats()

		return lipgloss.NewStyle().Padding(2).Render(
			m.appName + "\n\n" +
				"1. Shipments\n" +
				"2. Dispatch Records\n" +
				fmt.Sprintf("3. Home-Settle Reminders (%d active)\n", stats.Active) +
				"4. Import Shipments\n" +
				"5. Export Workbook\n\n" +
				"q. Quit",
		)
	case ViewShipments:
		return m.shipmentsView.View()
	case ViewDispatch:
		return m.dispatchView.View()
	case ViewReminders:
		return m.remindersView.View()
	case ViewImport:
		return m.importView.View()
	case ViewExport:
		return m.exportView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal("failed to load config", "error", err)
	}

	// The terminal belongs to bubbletea; logs go to a file next to the data.
	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		fatal("failed to create data dir", "error", err)
	}

	logFile, err := tea.LogToFile(filepath.Join(cfg.Storage.DataDir, "tui.log"), "")
	if err != nil {
		fatal("failed to open log file", "error", err)
	}
	defer logFile.Close()

	slog.SetDefault(slog.New(slog.NewTextHandler(logFile, nil)))

	ctx := context.Background()

	store, closeStore, err := database.OpenStore(ctx, cfg)
	if err != nil {
		fatal("failed to open storage", "driver", cfg.Storage.Driver, "error", err)
	}
	defer closeStore()

	p := tea.NewProgram(initialModel(ctx, cfg, store), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
	}
}
