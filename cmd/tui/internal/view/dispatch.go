package view

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

type DispatchModel struct {
	CommonModel
	svc *ledger.Service

	table   table.Model
	records []ledger.DispatchRecord
	detail  bool
	item    int

	status string
	err    error
}

func NewDispatchModel(svc *ledger.Service) DispatchModel {
	return DispatchModel{
		svc: svc,
		table: newTable([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Truck", Width: 8},
			{Title: "Plate", Width: 10},
			{Title: "Driver", Width: 8},
			{Title: "Items", Width: 5},
			{Title: "Goods", Width: 24},
			{Title: "Amount", Width: 10},
			{Title: "Weight", Width: 8},
			{Title: "Cubic", Width: 8},
		}),
	}
}

func (m DispatchModel) Title() string { return "Dispatch Records" }

func (m DispatchModel) ShortHelp() string {
	return "Esc: back | Enter: items | d: remove item | x: delete | z: undo | r: refresh"
}

func (m DispatchModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m DispatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case recordsLoadedMsg:
		m.records = msg.records
		m.refreshTable()

		return m, nil

	case actionDoneMsg:
		m.status = msg.status
		m.err = msg.err
		m.item = 0

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.detail {
				m.detail = false
				return m, nil
			}

			return m, Back
		case "r":
			return m, m.loadCmd()
		case "enter":
			m.detail = !m.detail
			m.item = 0

			return m, nil
		case "up", "k", "down", "j":
			if m.detail {
				m.moveItem(msg.String())
				return m, nil
			}
		case "z":
			return m, undoCmd(m.svc)
		case "x":
			if rec, ok := m.selected(); ok {
				return m, m.deleteCmd(rec.ID)
			}

			return m, nil
		case "d":
			if rec, ok := m.selected(); ok && m.detail && m.item < len(rec.Items) {
				return m, m.removeItemCmd(rec.ID, rec.Items[m.item].ShipmentID)
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m DispatchModel) selected() (ledger.DispatchRecord, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return ledger.DispatchRecord{}, false
	}

	return m.records[idx], true
}

func (m *DispatchModel) moveItem(key string) {
	rec, ok := m.selected()
	if !ok {
		return
	}

	switch key {
	case "up", "k":
		if m.item > 0 {
			m.item--
		}
	default:
		if m.item < len(rec.Items)-1 {
			m.item++
		}
	}
}

func (m DispatchModel) View() string {
	content := boxed(m.table.View())

	if rec, ok := m.selected(); ok && m.detail {
		var sb strings.Builder

		sb.WriteString(rec.Destination + "\n\n")

		for i, it := range rec.Items {
			cursor := "  "
			if i == m.item {
				cursor = "> "
			}

			sb.WriteString(fmt.Sprintf("%s%s %s %s %s %s\n", cursor,
				it.SerialNo, it.Customer, it.Product,
				strconv.FormatFloat(it.Quantity, 'f', -1, 64)+it.MeasureUnit.Label(),
				FormatMoney(it.Amount)))
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(50).
			Render(sb.String())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	switch {
	case m.err != nil:
		content = errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n" + content
	case m.status != "":
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func recordRow(r ledger.DispatchRecord) table.Row {
	return table.Row{
		r.DispatchMeta.Date,
		r.TruckNo,
		r.PlateNo,
		r.Driver,
		strconv.Itoa(r.ItemCount),
		r.ProductsSummary,
		FormatMoney(r.TotalAmount),
		strconv.FormatFloat(r.TotalWeight, 'f', -1, 64),
		strconv.FormatFloat(r.TotalCubic, 'f', -1, 64),
	}
}

func (m *DispatchModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.records))
	for _, r := range m.records {
		rows = append(rows, recordRow(r))
	}

	m.table.SetRows(rows)
}

type recordsLoadedMsg struct {
	records []ledger.DispatchRecord
}

func (m DispatchModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		return recordsLoadedMsg{records: m.svc.DispatchRecords()}
	}
}

func (m DispatchModel) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		if err := m.svc.DeleteRecord(ctx, id); err != nil {
			return actionDoneMsg{err: err}
		}

		return actionDoneMsg{status: "Record deleted. Press z to undo."}
	}
}

func (m DispatchModel) removeItemCmd(recordID, shipmentID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		res, err := m.svc.RemoveFromRecord(ctx, recordID, shipmentID)
		if err != nil {
			return actionDoneMsg{err: err}
		}

		if res.RecordDeleted {
			return actionDoneMsg{status: "Last item removed; record deleted."}
		}

		return actionDoneMsg{status: "Item removed."}
	}
}
