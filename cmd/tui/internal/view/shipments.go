package view

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

type shipmentsState int

const (
	shipmentsStateBrowse shipmentsState = iota
	shipmentsStateLoad
)

type shipmentFilter int

const (
	shipmentFilterAll shipmentFilter = iota
	shipmentFilterUnloaded
	shipmentFilterLoaded
	shipmentFilterUnpaid
	shipmentFilterHomeSettle
	shipmentFilterCount
)

func (f shipmentFilter) String() string {
	switch f {
	case shipmentFilterUnloaded:
		return "Unloaded"
	case shipmentFilterLoaded:
		return "Loaded"
	case shipmentFilterUnpaid:
		return "Unpaid"
	case shipmentFilterHomeSettle:
		return "Home settle"
	}

	return "All"
}

func (f shipmentFilter) match(s ledger.Shipment) bool {
	switch f {
	case shipmentFilterUnloaded:
		return !s.IsLoaded
	case shipmentFilterLoaded:
		return s.IsLoaded
	case shipmentFilterUnpaid:
		return !s.IsPaid
	case shipmentFilterHomeSettle:
		return ledger.IsHomeSettleCandidate(s)
	}

	return true
}

// loadForm holds the huh bindings on the heap so they survive the model
// being copied between updates.
type loadForm struct {
	date    string
	truck   string
	plate   string
	driver  string
	contact string
}

func (f *loadForm) meta() ledger.DispatchMeta {
	return ledger.DispatchMeta{
		Date:        f.date,
		TruckNo:     f.truck,
		PlateNo:     f.plate,
		Driver:      f.driver,
		ContactName: f.contact,
	}
}

type ShipmentsModel struct {
	CommonModel
	svc *ledger.Service

	state     shipmentsState
	table     table.Model
	shipments []ledger.Shipment
	filter    shipmentFilter

	form     *huh.Form
	formData *loadForm
	target   string

	status string
	err    error
}

func NewShipmentsModel(svc *ledger.Service) ShipmentsModel {
	return ShipmentsModel{
		svc: svc,
		table: newTable([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Serial", Width: 10},
			{Title: "Customer", Width: 12},
			{Title: "Product", Width: 12},
			{Title: "Qty", Width: 8},
			{Title: "Amount", Width: 10},
			{Title: "Loaded", Width: 6},
			{Title: "Paid", Width: 5},
			{Title: "Truck", Width: 28},
		}),
	}
}

func (m ShipmentsModel) Title() string { return "Shipments" }

func (m ShipmentsModel) ShortHelp() string {
	if m.state == shipmentsStateLoad {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | p: paid | l: load | u: unload | x: delete | z: undo | f: filter | r: refresh"
}

func (m ShipmentsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m ShipmentsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case shipmentsLoadedMsg:
		m.shipments = msg.shipments
		m.refreshTable()

		return m, nil

	case actionDoneMsg:
		m.status = msg.status
		m.err = msg.err
		m.state = shipmentsStateBrowse
		m.form = nil
		m.table.Focus()

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if m.state == shipmentsStateLoad {
		return m.updateLoad(msg)
	}

	return m.updateBrowse(msg)
}

func (m ShipmentsModel) selected() (ledger.Shipment, bool) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.shipments) {
		return ledger.Shipment{}, false
	}

	return m.shipments[idx], true
}

func (m ShipmentsModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	switch keyMsg.String() {
	case "esc":
		return m, Back
	case "r":
		return m, m.loadCmd()
	case "f":
		m.filter = (m.filter + 1) % shipmentFilterCount
		return m, m.loadCmd()
	case "z":
		return m, undoCmd(m.svc)
	}

	sh, ok := m.selected()
	if !ok {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)

		return m, cmd
	}

	switch keyMsg.String() {
	case "p":
		return m, m.setPaidCmd(sh.ID, !sh.IsPaid)
	case "l":
		if sh.IsLoaded {
			m.status = "Shipment is already loaded."
			return m, nil
		}

		return m.enterLoadMode(sh)
	case "u":
		return m, m.unloadCmd(sh.ID)
	case "x":
		return m, m.deleteCmd(sh.ID)
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ShipmentsModel) enterLoadMode(sh ledger.Shipment) (tea.Model, tea.Cmd) {
	m.target = sh.ID
	m.formData = &loadForm{
		date:    sh.DispatchMeta.Date,
		truck:   sh.TruckNo,
		plate:   sh.PlateNo,
		driver:  sh.Driver,
		contact: sh.ContactName,
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dispatch date").
				Placeholder("today").
				Value(&m.formData.date).
				Validate(func(s string) error {
					if s == "" {
						return nil
					}

					if _, ok := measure.ParseDate(s); !ok {
						return fmt.Errorf("unrecognized date")
					}

					return nil
				}),
			huh.NewInput().Title("Truck no.").Value(&m.formData.truck),
			huh.NewInput().Title("Plate").Value(&m.formData.plate),
			huh.NewInput().Title("Driver").Value(&m.formData.driver),
			huh.NewInput().Title("Contact").Value(&m.formData.contact),
		),
	).WithWidth(45).WithShowHelp(false)

	m.state = shipmentsStateLoad
	m.table.Blur()

	return m, m.form.Init()
}

func (m ShipmentsModel) updateLoad(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = shipmentsStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.loadSingleCmd(m.target, m.formData.meta())
}

func (m ShipmentsModel) View() string {
	header := fmt.Sprintf("Filter: [f] %s | %d shipments", activeStyle(m.filter.String()), len(m.shipments))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	if m.state == shipmentsStateLoad && m.form != nil {
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render("Load onto truck\n\n" + m.form.View())

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

func shipmentRow(s ledger.Shipment) table.Row {
	return table.Row{
		s.Date,
		s.SerialNo,
		s.Customer,
		s.Product,
		strconv.FormatFloat(s.Quantity, 'f', -1, 64) + s.MeasureUnit.Label(),
		FormatMoney(s.Amount),
		yesNo(s.IsLoaded),
		yesNo(s.IsPaid),
		s.Destination,
	}
}

func (m *ShipmentsModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.shipments))
	for _, s := range m.shipments {
		rows = append(rows, shipmentRow(s))
	}

	m.table.SetRows(rows)
}

// Messages

type shipmentsLoadedMsg struct {
	shipments []ledger.Shipment
}

type actionDoneMsg struct {
	status string
	err    error
}

func (m ShipmentsModel) loadCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		var out []ledger.Shipment

		for _, s := range m.svc.Shipments() {
			if filter.match(s) {
				out = append(out, s)
			}
		}

		return shipmentsLoadedMsg{shipments: out}
	}
}

func (m ShipmentsModel) setPaidCmd(id string, paid bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		if _, err := m.svc.SetPaid(ctx, id, paid); err != nil {
			return actionDoneMsg{err: err}
		}

		if paid {
			return actionDoneMsg{status: "Marked paid."}
		}

		return actionDoneMsg{status: "Marked unpaid."}
	}
}

func (m ShipmentsModel) loadSingleCmd(id string, meta ledger.DispatchMeta) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		rec, err := m.svc.LoadSingle(ctx, id, meta)
		if err != nil {
			return actionDoneMsg{err: err}
		}

		if rec == nil {
			return actionDoneMsg{status: "Shipment cannot be loaded."}
		}

		return actionDoneMsg{status: "Loaded: " + rec.Destination}
	}
}

func (m ShipmentsModel) unloadCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		unloaded, err := m.svc.UnloadSingle(ctx, id)
		if err != nil {
			return actionDoneMsg{err: err}
		}

		if !unloaded {
			return actionDoneMsg{status: "Shipment is not loaded."}
		}

		return actionDoneMsg{status: "Unloaded."}
	}
}

func (m ShipmentsModel) deleteCmd(id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		if err := m.svc.DeleteShipment(ctx, id); err != nil {
			return actionDoneMsg{err: err}
		}

		return actionDoneMsg{status: "Shipment deleted. Press z to undo."}
	}
}

func undoCmd(svc *ledger.Service) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		restored, err := svc.Undo(ctx)
		if err != nil {
			return actionDoneMsg{err: err}
		}

		if !restored {
			return actionDoneMsg{status: "Nothing to undo."}
		}

		return actionDoneMsg{status: "Restored."}
	}
}
