package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/freightbook/internal/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/importer"
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateFilePick importState = iota
	importStateImporting
	importStatePreview
	importStateResult
)

type ImportModel struct {
	CommonModel
	ledgerService  *ledger.Service
	importService  *importer.Service
	catalogService *catalog.Service

	state      importState
	filePicker filepicker.Model

	rows        []ledger.ShipmentParams
	previewList list.Model
	selected    map[int]bool

	status string
	err    error
}

func NewImportModel(ledgerSvc *ledger.Service, impSvc *importer.Service, catSvc *catalog.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt", ".xlsx", ".xlsm"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		ledgerService:  ledgerSvc,
		importService:  impSvc,
		catalogService: catSvc,
		filePicker:     fp,
		selected:       make(map[int]bool),
	}
}

func (m ImportModel) Title() string { return "Import Shipments" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStatePreview {
		return "Space: toggle | a: all | n: none | Enter: import selected | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStatePreview {
			return m.updatePreview(msg)
		}

	case parsedMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		if len(msg.rows) == 0 {
			m.state = importStateResult
			m.status = "No rows found in the file."

			return m, nil
		}

		m.rows = msg.rows
		m.selected = make(map[int]bool, len(msg.rows))
		m.state = importStatePreview

		items := make([]list.Item, len(m.rows))
		for i, r := range m.rows {
			m.selected[i] = true
			items[i] = rowItem{params: r, index: i}
		}

		delegate := rowDelegate{selected: &m.selected}
		m.previewList = list.New(items, delegate, 100, 20)
		m.previewList.Title = fmt.Sprintf("Preview (%d rows)", len(m.rows))
		m.previewList.SetShowStatusBar(false)
		m.previewList.SetFilteringEnabled(false)
		m.previewList.SetShowHelp(false)

		return m, nil

	case confirmResultMsg:
		m.state = importStateResult
		m.status = fmt.Sprintf("Imported %d shipments.", msg.count)

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateImporting
		m.status = fmt.Sprintf("Reading %s...", path)

		return m, m.parseCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateResult, importStatePreview:
		m.state = importStateFilePick
		m.rows = nil
		m.selected = make(map[int]bool)
		m.err = nil
		m.status = ""

		return m, m.filePicker.Init()
	}

	return m, Back
}

func (m ImportModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		idx := m.previewList.Index()
		m.selected[idx] = !m.selected[idx]

		return m, nil
	case "a":
		for i := range m.rows {
			m.selected[i] = true
		}

		return m, nil
	case "n":
		for i := range m.rows {
			m.selected[i] = false
		}

		return m, nil
	case "enter":
		return m, m.confirmCmd()
	}

	var cmd tea.Cmd
	m.previewList, cmd = m.previewList.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			"Select a CSV or Excel sheet to import:\n\n" + m.filePicker.View(),
		)
	case importStateImporting:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStatePreview:
		return lipgloss.NewStyle().Padding(1).Render(m.previewList.View())
	case importStateResult:
		msg := successStyle(m.status)
		if m.err != nil {
			msg = errorStyle(m.status)
		}

		return lipgloss.NewStyle().Padding(2).Render(msg + "\n\n(Esc to go back)")
	}

	return ""
}

type parsedMsg struct {
	rows []ledger.ShipmentParams
	err  error
}

type confirmResultMsg struct {
	count int
}

func (m ImportModel) parseCmd(path string) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return parsedMsg{err: err}
		}
		defer f.Close()

		rows, err := m.importService.Import(importer.FormatFromName(path), f)
		if err != nil {
			return parsedMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		// Catalog suggestions are best effort; rows import without them.
		if filled, err := m.catalogService.Fill(ctx, rows); err == nil {
			rows = filled
		}

		return parsedMsg{rows: rows}
	}
}

func (m ImportModel) confirmCmd() tea.Cmd {
	rows := m.rows
	selected := m.selected

	return func() tea.Msg {
		picked := make([]ledger.ShipmentParams, 0, len(rows))
		for i, r := range rows {
			if selected[i] {
				picked = append(picked, r)
			}
		}

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		created := m.ledgerService.ImportShipments(ctx, picked)

		return confirmResultMsg{count: len(created)}
	}
}

type rowItem struct {
	params ledger.ShipmentParams
	index  int
}

func (i rowItem) Title() string       { return "" }
func (i rowItem) Description() string { return "" }
func (i rowItem) FilterValue() string { return "" }

type rowDelegate struct {
	selected *map[int]bool
}

func (d rowDelegate) Height() int                             { return 2 }
func (d rowDelegate) Spacing() int                            { return 0 }
func (d rowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d rowDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(rowItem)
	if !ok {
		return
	}

	checkbox := "[ ]"
	if (*d.selected)[item.index] {
		checkbox = "[x]"
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%s%s\n      %s\n", cursor, checkbox+" "+rowSummary(item.params), rowDetail(item.params))
}

func rowSummary(p ledger.ShipmentParams) string {
	date := p.Date
	if date == "" {
		date = "(today)"
	}

	return fmt.Sprintf("%s  %s  %s  %s", date, p.SerialNo, p.Customer, p.Product)
}

func rowDetail(p ledger.ShipmentParams) string {
	amount := measure.LineAmount(p.Quantity, p.UnitPrice)
	if p.Amount != nil {
		amount = *p.Amount
	}

	return fmt.Sprintf("%g %s × %s = %s  %s",
		p.Quantity, p.MeasureUnit.OrPiece().Label(), FormatMoney(p.UnitPrice), FormatMoney(amount), p.Route)
}
