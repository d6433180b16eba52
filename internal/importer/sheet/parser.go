package sheet

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/width"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

var ErrNoHeader = errors.New("no matching header found: expected a date column and a quantity or amount column")

// colIndex maps normalized header names to their index in the row.
type colIndex map[string]int

func headerName(s string) string {
	s = width.Fold.String(strings.TrimSpace(s))
	s = strings.Trim(s, "*:：")

	return strings.ToLower(strings.Join(strings.Fields(strings.ReplaceAll(s, "_", " ")), " "))
}

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, its resolved columns and the header row index.
func detectProfile(rows [][]string) (*Profile, map[field]int, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := headerName(cell)
			if _, dup := cols[name]; name != "" && !dup {
				cols[name] = i
			}
		}

		for i := range profiles {
			if resolved, ok := profiles[i].matches(cols); ok {
				return &profiles[i], resolved, rowIdx
			}
		}
	}

	return nil, nil, 0
}

// parseRows turns the rows below the header into intake params. Rows without
// a recognizable date are skipped as notes or totals.
func parseRows(rows [][]string) ([]ledger.ShipmentParams, error) {
	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, ErrNoHeader
	}

	var params []ledger.ShipmentParams

	for i, row := range rows[headerIdx+1:] {
		rowNum := headerIdx + i + 2

		p, ok, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if ok {
			params = append(params, p)
		}
	}

	return params, nil
}

func parseRow(cols map[field]int, row []string) (ledger.ShipmentParams, bool, error) {
	cell := func(f field) string {
		idx, ok := cols[f]
		if !ok {
			return ""
		}

		return cellValue(row, idx)
	}

	date, ok := measure.ParseDate(cell(fieldDate))
	if !ok {
		return ledger.ShipmentParams{}, false, nil
	}

	p := ledger.ShipmentParams{
		SerialNo:     cell(fieldSerial),
		Date:         date,
		Manufacturer: cell(fieldManufacturer),
		Customer:     cell(fieldCustomer),
		Product:      cell(fieldProduct),
		Route:        cell(fieldRoute),
		Phone:        cell(fieldPhone),
		Note:         cell(fieldNote),
		MeasureUnit:  measure.NormalizeUnit(cell(fieldUnit)).OrPiece(),
	}

	if s := cell(fieldQuantity); s != "" {
		q, ok := measure.ParseNumber(s)
		if !ok || q < 0 {
			return p, false, fmt.Errorf("invalid quantity %q", s)
		}

		p.Quantity = q
	}

	if s := cell(fieldUnitPrice); s != "" {
		price, ok := measure.ParseDecimal(s)
		if !ok || price.IsNegative() {
			return p, false, fmt.Errorf("invalid unit price %q", s)
		}

		p.UnitPrice = price
	}

	if s := cell(fieldRebate); s != "" {
		if rebate, ok := measure.ParseDecimal(s); ok {
			p.Rebate = measure.NonNegativeMoney(rebate)
		}
	}

	if s := cell(fieldUnitWeight); s != "" {
		p.UnitWeight, _ = measure.ParseNumber(s)
	}

	if s := cell(fieldUnitVolume); s != "" {
		p.UnitVolume, _ = measure.ParseNumber(s)
	}

	if s := cell(fieldAmount); s != "" {
		amount, ok := measure.ParseDecimal(s)
		if !ok || amount.IsNegative() {
			return p, false, fmt.Errorf("invalid amount %q", s)
		}

		if !amount.Equal(measure.LineAmount(p.Quantity, p.UnitPrice)) {
			p.Amount = &amount
		}
	}

	if p.Quantity == 0 && p.Amount == nil {
		return p, false, nil
	}

	return p, true, nil
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
