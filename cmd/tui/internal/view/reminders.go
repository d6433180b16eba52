package view

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

type RemindersModel struct {
	CommonModel
	svc *ledger.Service

	table      table.Model
	reminders  []ledger.Reminder
	stats      ledger.ReminderStats
	activeOnly bool

	status string
	err    error
}

func NewRemindersModel(svc *ledger.Service) RemindersModel {
	return RemindersModel{
		svc:        svc,
		activeOnly: true,
		table: newTable([]table.Column{
			{Title: "Date", Width: 10},
			{Title: "Serial", Width: 10},
			{Title: "Customer", Width: 12},
			{Title: "Product", Width: 12},
			{Title: "Phone", Width: 12},
			{Title: "Debt", Width: 10},
			{Title: "Status", Width: 9},
			{Title: "Reminded", Width: 16},
		}),
	}
}

func (m RemindersModel) Title() string { return "Home-Settle Reminders" }

func (m RemindersModel) ShortHelp() string {
	return "Esc: back | s: snooze | c: contacted | p: paid | a: active/all | r: refresh"
}

func (m RemindersModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m RemindersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case remindersLoadedMsg:
		m.reminders = msg.reminders
		m.stats = msg.stats
		m.refreshTable()

		return m, nil

	case actionDoneMsg:
		m.status = msg.status
		m.err = msg.err

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 12)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			return m, m.loadCmd()
		case "a":
			m.activeOnly = !m.activeOnly
			return m, m.loadCmd()
		case "s":
			return m, m.actCmd(m.svc.SnoozeReminder, "Snoozed.")
		case "c":
			return m, m.actCmd(m.svc.ContactReminder, "Marked as contacted.")
		case "p":
			return m, m.actCmd(m.svc.MarkReminderPaid, "Marked paid.")
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func statusLabel(s ledger.HomeSettleStatus) string {
	switch s {
	case ledger.HomeSettlePaid:
		return "paid"
	case ledger.HomeSettleReminded:
		return "reminded"
	}

	return "unpaid"
}

func (m RemindersModel) View() string {
	scope := "Active"
	if !m.activeOnly {
		scope = "All due"
	}

	header := fmt.Sprintf("Showing: [a] %s | due %d | active %d | snoozed %d | outstanding %s",
		activeStyle(scope), m.stats.Total, m.stats.Active, m.stats.Snoozed, FormatMoney(m.stats.OutstandingDebt))

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		boxed(m.table.View()),
	)

	switch {
	case m.err != nil:
		content = errorStyle(fmt.Sprintf("Error: %v", m.err)) + "\n" + content
	case m.status != "":
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func reminderRow(r ledger.Reminder) table.Row {
	s := r.Shipment

	status := statusLabel(r.Status)
	if r.Snoozed {
		status = "snoozed"
	}

	return table.Row{
		s.Date,
		s.SerialNo,
		s.Customer,
		s.Product,
		s.Phone,
		FormatMoney(r.Debt),
		status,
		FormatInstant(s.HomeSettleRemindedAt),
	}
}

func (m *RemindersModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.reminders))
	for _, r := range m.reminders {
		rows = append(rows, reminderRow(r))
	}

	m.table.SetRows(rows)
}

type remindersLoadedMsg struct {
	reminders []ledger.Reminder
	stats     ledger.ReminderStats
}

func (m RemindersModel) loadCmd() tea.Cmd {
	filter := ledger.ReminderFilter{ActiveOnly: m.activeOnly}

	return func() tea.Msg {
		return remindersLoadedMsg{
			reminders: m.svc.Reminders(filter),
			stats:     m.svc.ReminderStats(),
		}
	}
}

type reminderAction func(ctx context.Context, shipmentID string) (ledger.HomeSettleActionRecord, error)

func (m RemindersModel) actCmd(fn reminderAction, done string) tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.reminders) {
		return nil
	}

	id := m.reminders[idx].Shipment.ID

	return func() tea.Msg {
		ctx, cancel := StoreCtx()
		defer cancel()

		if _, err := fn(ctx, id); err != nil {
			return actionDoneMsg{err: err}
		}

		return actionDoneMsg{status: done}
	}
}
