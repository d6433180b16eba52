package view

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

func TestPresetRange(t *testing.T) {
	wednesday := time.Date(2024, 3, 13, 15, 4, 0, 0, time.UTC)
	january := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		preset   int
		now      time.Time
		wantFrom string
		wantTo   string
	}{
		{"this month", 0, wednesday, "2024-03-01", "2024-03-13"},
		{"last month leap february", 1, wednesday, "2024-02-01", "2024-02-29"},
		{"last month across year", 1, january, "2023-12-01", "2023-12-31"},
		{"this year", 2, wednesday, "2024-01-01", "2024-03-13"},
		{"everything", 3, wednesday, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := presetRange(tt.preset, tt.now)
			assert.Equal(t, tt.wantFrom, from)
			assert.Equal(t, tt.wantTo, to)
		})
	}
}

func TestRangePicker_SelectPreset(t *testing.T) {
	p := NewRangePicker()
	p.now = func() time.Time { return time.Date(2024, 3, 13, 15, 4, 0, 0, time.UTC) }

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	p, cmd := p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, RangeSelectedMsg{From: "2024-02-01", To: "2024-02-29"}, cmd())

	for range len(rangePresets) {
		p, _ = p.Update(tea.KeyMsg{Type: tea.KeyDown})
	}

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.True(t, p.Typing())

	p, _ = p.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, p.Typing())
}

func TestParseRange(t *testing.T) {
	from, to, err := parseRange("2024/3/5", "2024年3月9日")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-05", from)
	assert.Equal(t, "2024-03-09", to)

	_, _, err = parseRange("yesterday", "2024-03-09")
	assert.ErrorContains(t, err, "start date")

	_, _, err = parseRange("2024-03-05", "")
	assert.ErrorContains(t, err, "end date")

	_, _, err = parseRange("2024-03-09", "2024-03-05")
	assert.ErrorContains(t, err, "before start")
}

func TestShipmentFilter_Match(t *testing.T) {
	loaded := ledger.Shipment{IsLoaded: true, IsPaid: true}
	homeSettle := ledger.Shipment{Note: "家结"}

	assert.True(t, shipmentFilterAll.match(loaded))
	assert.True(t, shipmentFilterLoaded.match(loaded))
	assert.False(t, shipmentFilterUnloaded.match(loaded))
	assert.False(t, shipmentFilterUnpaid.match(loaded))
	assert.True(t, shipmentFilterUnpaid.match(homeSettle))
	assert.True(t, shipmentFilterHomeSettle.match(homeSettle))
	assert.False(t, shipmentFilterHomeSettle.match(loaded))
}

func TestReminderRow(t *testing.T) {
	r := ledger.Reminder{
		Shipment: ledger.Shipment{Date: "2024-03-01", SerialNo: "A1", Customer: "王", Product: "瓷砖", Phone: "138"},
		Status:   ledger.HomeSettleReminded,
		Debt:     decimal.RequireFromString("120.5"),
	}

	row := reminderRow(r)
	assert.Equal(t, "120.50", row[5])
	assert.Equal(t, "reminded", row[6])
	assert.Equal(t, "-", row[7])

	r.Snoozed = true
	assert.Equal(t, "snoozed", reminderRow(r)[6])
}

func TestRowDetail(t *testing.T) {
	p := ledger.ShipmentParams{
		Quantity:  3,
		UnitPrice: decimal.NewFromInt(7),
		Route:     "宁波",
	}
	assert.Equal(t, "3 件 × 7.00 = 21.00  宁波", rowDetail(p))

	p.MeasureUnit = measure.UnitWeight
	p.Amount = new(decimal.NewFromInt(50))
	assert.Equal(t, "3 公斤 × 7.00 = 50.00  宁波", rowDetail(p))
}

func TestExportFileName(t *testing.T) {
	now := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "out/freightbook_20240305.xlsx", exportFileName("out", now))
}
