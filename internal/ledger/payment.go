package ledger

import (
	"strings"
	"time"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

const (
	paymentSummaryPrefix = "运单收款"
	paymentCategory      = "运费收入"
)

// ReconcilePaymentIncome rebuilds the payment-sync rows of finance from
// shipments. Manual records pass through untouched and keep their order; one
// auto record follows for every paid shipment with a positive amount, in
// shipment order. An existing auto record for the shipment keeps its ID,
// CreatedAt and Category; auto records pointing at nothing are dropped.
func ReconcilePaymentIncome(shipments []Shipment, finance []FinanceRecord, now time.Time, newID func() string) []FinanceRecord {
	var (
		out      = make([]FinanceRecord, 0, len(finance))
		existing = make(map[string]FinanceRecord)
		bySerial = make(map[string]string)
	)

	for _, s := range shipments {
		if s.SerialNo == "" {
			continue
		}

		if _, ok := bySerial[s.SerialNo]; !ok {
			bySerial[s.SerialNo] = s.ID
		}
	}

	for _, f := range finance {
		if !f.IsAuto() {
			out = append(out, f)
			continue
		}

		id := f.SourceShipmentID
		if id == "" {
			id = bySerial[f.SourceSerialNo]
		}

		if id == "" {
			continue
		}

		if _, ok := existing[id]; !ok {
			existing[id] = f
		}
	}

	for _, s := range shipments {
		if !s.IsPaid || !s.Amount.IsPositive() {
			continue
		}

		rec := paymentRecord(s, now.Location())

		if prev, ok := existing[s.ID]; ok {
			rec.ID = prev.ID
			rec.CreatedAt = prev.CreatedAt
			if prev.Category != "" {
				rec.Category = prev.Category
			}
		}

		if rec.ID == "" {
			rec.ID = newID()
		}

		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		out = append(out, rec)
	}

	return out
}

// paymentRecord is the canonical auto record for a paid shipment, without
// identity.
func paymentRecord(s Shipment, loc *time.Location) FinanceRecord {
	date := s.Date
	if !s.PaidAt.IsZero() {
		date = s.PaidAt.In(loc).Format(measure.DateLayout)
	}

	return FinanceRecord{
		Type:             FinanceIncome,
		Amount:           s.Amount,
		Date:             date,
		Summary:          paymentSummary(s),
		Category:         paymentCategory,
		Note:             s.Note,
		SourceType:       SourceShipmentPayment,
		SourceShipmentID: s.ID,
		SourceSerialNo:   s.SerialNo,
	}
}

func paymentSummary(s Shipment) string {
	parts := []string{paymentSummaryPrefix}

	for _, v := range []string{s.SerialNo, s.Manufacturer, s.Customer, s.Product} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, "-")
}

// IsSameShipmentPaymentFinanceRecord reports whether a and b carry the same
// payment content and linkage. Identity and CreatedAt are ignored.
func IsSameShipmentPaymentFinanceRecord(a, b FinanceRecord) bool {
	return a.Type == b.Type &&
		a.Date == b.Date &&
		a.Summary == b.Summary &&
		a.Amount.Equal(b.Amount) &&
		a.Note == b.Note &&
		a.SourceType == b.SourceType &&
		a.SourceShipmentID == b.SourceShipmentID &&
		a.SourceSerialNo == b.SourceSerialNo
}

// SameFinanceRecords reports whether two finance collections are equal
// element by element, so a reconcile that changed nothing can skip the write.
func SameFinanceRecords(a, b []FinanceRecord) bool {
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if a[i].ID != b[i].ID || a[i].Category != b[i].Category || !a[i].CreatedAt.Equal(b[i].CreatedAt) {
			return false
		}

		if !IsSameShipmentPaymentFinanceRecord(a[i], b[i]) {
			return false
		}
	}

	return true
}
