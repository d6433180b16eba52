package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
)

const (
	sheetShipments = "运单"
	sheetDispatch  = "装车记录"
	sheetFinance   = "收支"
	sheetReminders = "家结提醒"
)

// Source is the read side of the ledger the export draws from.
type Source interface {
	Shipments() []ledger.Shipment
	DispatchRecords() []ledger.DispatchRecord
	FinanceRecords() []ledger.FinanceRecord
	ActiveReminders() []ledger.Reminder
}

// Filter limits an export to an inclusive date range. Empty bounds are open.
type Filter struct {
	From string
	To   string
}

func (f Filter) contains(date string) bool {
	if f.From != "" && date < f.From {
		return false
	}

	if f.To != "" && date > f.To {
		return false
	}

	return true
}

// Service renders ledger data as spreadsheets and text.
type Service struct {
	source Source
	loc    *time.Location
}

// NewService creates a new export Service. Instants are rendered in loc.
func NewService(source Source, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}

	return &Service{source: source, loc: loc}
}

// Workbook writes an XLSX file with one sheet per collection.
func (s *Service) Workbook(w io.Writer, filter Filter) error {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{sheetShipments, s.shipmentRows(filter)},
		{sheetDispatch, s.dispatchRows(filter)},
		{sheetFinance, s.financeRows(filter)},
		{sheetReminders, s.reminderRows()},
	}

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sh.name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", sh.name, err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", sh.name, err)
		}

		if err := writeRows(f, sh.name, sh.rows, header); err != nil {
			return fmt.Errorf("writing sheet %s: %w", sh.name, err)
		}
	}

	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}

	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	if len(rows) == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}

	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}

	return f.SetColWidth(sheet, "A", lastCol, 14)
}

func (s *Service) instant(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	return t.In(s.loc).Format(time.DateTime)
}

func yesNo(b bool) string {
	if b {
		return "是"
	}

	return "否"
}

func (s *Service) shipmentRows(filter Filter) [][]any {
	rows := [][]any{{
		"日期", "单号", "厂家", "客户", "品名", "到站", "电话", "单位", "数量", "单价", "运费", "回扣",
		"已装车", "装车信息", "已收款", "收款时间", "备注",
	}}

	for _, sh := range s.source.Shipments() {
		if !filter.contains(sh.Date) {
			continue
		}

		rows = append(rows, []any{
			sh.Date, sh.SerialNo, sh.Manufacturer, sh.Customer, sh.Product, sh.Route, sh.Phone,
			sh.MeasureUnit.Label(), sh.Quantity, sh.UnitPrice.InexactFloat64(), sh.Amount.InexactFloat64(),
			sh.Rebate.InexactFloat64(), yesNo(sh.IsLoaded), sh.Destination, yesNo(sh.IsPaid),
			s.instant(sh.PaidAt), sh.Note,
		})
	}

	return rows
}

func (s *Service) dispatchRows(filter Filter) [][]any {
	rows := [][]any{{
		"装车日期", "车次", "车牌", "司机", "联系人", "票数", "货物", "件数", "重量", "体积", "运费合计", "装车时间",
	}}

	for _, r := range s.source.DispatchRecords() {
		if !filter.contains(r.DispatchMeta.Date) {
			continue
		}

		rows = append(rows, []any{
			r.DispatchMeta.Date, r.TruckNo, r.PlateNo, r.Driver, r.ContactName, r.ItemCount,
			r.ProductsSummary, r.TotalPieces, r.TotalWeight, r.TotalCubic, r.TotalAmount.InexactFloat64(),
			s.instant(r.LoadedAt),
		})
	}

	return rows
}

func financeTypeLabel(t ledger.FinanceType) string {
	if t == ledger.FinanceIncome {
		return "收入"
	}

	return "支出"
}

func (s *Service) financeRows(filter Filter) [][]any {
	rows := [][]any{{"日期", "类型", "金额", "摘要", "分类", "备注", "来源单号"}}

	for _, f := range s.source.FinanceRecords() {
		if !filter.contains(f.Date) {
			continue
		}

		rows = append(rows, []any{
			f.Date, financeTypeLabel(f.Type), f.Amount.InexactFloat64(), f.Summary, f.Category, f.Note,
			f.SourceSerialNo,
		})
	}

	return rows
}

func statusLabel(st ledger.HomeSettleStatus) string {
	switch st {
	case ledger.HomeSettlePaid:
		return "已收"
	case ledger.HomeSettleReminded:
		return "已催"
	default:
		return "未催"
	}
}

func (s *Service) reminderRows() [][]any {
	rows := [][]any{{"日期", "单号", "厂家", "客户", "品名", "电话", "欠款", "状态", "上次催收"}}

	for _, r := range s.source.ActiveReminders() {
		sh := r.Shipment
		rows = append(rows, []any{
			sh.Date, sh.SerialNo, sh.Manufacturer, sh.Customer, sh.Product, sh.Phone,
			r.Debt.InexactFloat64(), statusLabel(r.Status), s.instant(sh.HomeSettleRemindedAt),
		})
	}

	return rows
}

// ReminderDigest renders the active home-settle reminders as plain text,
// one line per shipment, ending with the outstanding total.
func (s *Service) ReminderDigest() string {
	var sb strings.Builder

	reminders := s.source.ActiveReminders()
	if len(reminders) == 0 {
		return "暂无到期家结\n"
	}

	total := 0.0

	for _, r := range reminders {
		sh := r.Shipment
		desc := strings.Join(nonEmpty(sh.SerialNo, sh.Customer, sh.Product), " ")

		phone := sh.Phone
		if phone == "" {
			phone = "无电话"
		}

		sb.WriteString(fmt.Sprintf("* %s | %s | %s | 欠 %s 元 | %s\n",
			sh.Date, desc, phone, r.Debt.StringFixed(2), statusLabel(r.Status)))

		total += r.Debt.InexactFloat64()
	}

	sb.WriteString(fmt.Sprintf("共 %d 笔，合计 %.2f 元\n", len(reminders), total))

	return sb.String()
}

func nonEmpty(values ...string) []string {
	out := values[:0]

	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}

	return out
}
