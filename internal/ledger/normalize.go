package ledger

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

// Historical exports used several names for the same field. Every alias list
// is tried in order and the first present key wins.
var (
	aliasID           = []string{"id", "_id", "shipmentId"}
	aliasSerial       = []string{"serialNo", "serial", "waybillNo", "orderNo", "单号"}
	aliasDate         = []string{"date", "receiveDate", "shipDate", "日期"}
	aliasManufacturer = []string{"manufacturer", "factory", "sender", "厂家"}
	aliasCustomer     = []string{"customer", "receiver", "consignee", "客户"}
	aliasProduct      = []string{"product", "productName", "goods", "品名"}
	aliasRoute        = []string{"route", "destination", "station", "到站"}
	aliasPhone        = []string{"phone", "customerPhone", "tel"}
	aliasNote         = []string{"note", "remark", "memo", "备注"}
	aliasUnit         = []string{"measureUnit", "unit", "unitType"}
	aliasQuantity     = []string{"quantity", "qty", "count", "pieces"}
	aliasUnitPrice    = []string{"unitPrice", "price"}
	aliasAmount       = []string{"amount", "freight", "total"}
	aliasRebate       = []string{"rebate", "kickback", "discount"}
	aliasLoaded       = []string{"isLoaded", "loaded"}
	aliasPaid         = []string{"isPaid", "paid"}
	aliasCreatedAt    = []string{"createdAt", "createTime"}

	aliasDispatchDate    = []string{"dispatchDate", "loadDate"}
	aliasTruckNo         = []string{"dispatchTruckNo", "truckNo", "carNo"}
	aliasPlateNo         = []string{"dispatchPlateNo", "plateNo", "licensePlate"}
	aliasDriver          = []string{"dispatchDriver", "driver"}
	aliasContactName     = []string{"dispatchContactName", "contactName", "contact"}
	aliasDestinationText = []string{"dispatchDestination", "dispatchInfo"}
)

var errUnexpectedShape = errors.New("unexpected collection shape")

type rawRecord map[string]json.RawMessage

// decodeList accepts a bare array, an object wrapping the array under
// items, records or data, or null.
func decodeList(data []byte) ([]rawRecord, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	switch data[0] {
	case '[':
		var elems []json.RawMessage
		if err := json.Unmarshal(data, &elems); err != nil {
			return nil, err
		}

		out := make([]rawRecord, 0, len(elems))
		for _, e := range elems {
			var r rawRecord
			if err := json.Unmarshal(e, &r); err != nil || r == nil {
				continue
			}

			out = append(out, r)
		}

		return out, nil
	case '{':
		var wrapper rawRecord
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil, err
		}

		for _, key := range []string{"items", "records", "data"} {
			if inner, ok := wrapper[key]; ok {
				return decodeList(inner)
			}
		}

		return nil, nil
	default:
		return nil, errUnexpectedShape
	}
}

func (r rawRecord) lookup(keys []string) (json.RawMessage, bool) {
	for _, k := range keys {
		v, ok := r[k]
		if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
			continue
		}

		return v, true
	}

	return nil, false
}

func (r rawRecord) has(keys []string) bool {
	_, ok := r.lookup(keys)
	return ok
}

func (r rawRecord) str(keys []string) string {
	v, ok := r.lookup(keys)
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(v, &n); err == nil {
		return n.String()
	}

	return ""
}

func (r rawRecord) num(keys []string) (float64, bool) {
	v, ok := r.lookup(keys)
	if !ok {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, true
	}

	return measure.ParseNumber(r.str(keys))
}

func (r rawRecord) money(keys []string) (decimal.Decimal, bool) {
	v, ok := r.lookup(keys)
	if !ok {
		return decimal.Zero, false
	}

	var d decimal.Decimal
	if err := json.Unmarshal(v, &d); err == nil {
		return d, true
	}

	return measure.ParseDecimal(r.str(keys))
}

func (r rawRecord) boolean(keys []string) (bool, bool) {
	v, ok := r.lookup(keys)
	if !ok {
		return false, false
	}

	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b, true
	}

	switch strings.ToLower(r.str(keys)) {
	case "1", "true", "yes", "是":
		return true, true
	case "0", "false", "no", "否", "":
		return false, true
	}

	return false, false
}

// instant reads epoch milliseconds, RFC 3339 or a bare date.
func (r rawRecord) instant(keys []string) time.Time {
	v, ok := r.lookup(keys)
	if !ok {
		return time.Time{}
	}

	var ms float64
	if err := json.Unmarshal(v, &ms); err == nil {
		if ms <= 0 || math.IsInf(ms, 0) {
			return time.Time{}
		}

		return time.UnixMilli(int64(ms))
	}

	s := r.str(keys)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}

	// Millisecond epochs have at least 11 digits; shorter numbers are dates
	// or spreadsheet serials.
	if len(s) >= 11 {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil && n > 0 {
			return time.UnixMilli(n)
		}
	}

	if date, ok := measure.ParseDate(s); ok {
		t, _ := time.Parse(measure.DateLayout, date)
		return t
	}

	return time.Time{}
}

func (r rawRecord) date(keys []string) string {
	date, _ := measure.ParseDate(r.str(keys))
	return date
}

func (r rawRecord) dispatchMeta() DispatchMeta {
	return DispatchMeta{
		Date:        r.date(aliasDispatchDate),
		TruckNo:     r.str(aliasTruckNo),
		PlateNo:     r.str(aliasPlateNo),
		Driver:      r.str(aliasDriver),
		ContactName: r.str(aliasContactName),
		Destination: r.str(aliasDestinationText),
	}
}

func decodeShipments(data []byte) ([]Shipment, error) {
	raws, err := decodeList(data)
	if err != nil {
		return nil, err
	}

	out := make([]Shipment, 0, len(raws))
	for _, r := range raws {
		out = append(out, shipmentFromRaw(r))
	}

	return out, nil
}

func shipmentFromRaw(r rawRecord) Shipment {
	s := Shipment{
		ID:               r.str(aliasID),
		SerialNo:         r.str(aliasSerial),
		Date:             r.date(aliasDate),
		Type:             ShipmentType(r.str([]string{"type"})),
		Manufacturer:     r.str(aliasManufacturer),
		Customer:         r.str(aliasCustomer),
		Product:          r.str(aliasProduct),
		Route:            r.str(aliasRoute),
		Phone:            r.str(aliasPhone),
		Note:             r.str(aliasNote),
		MeasureUnit:      measure.NormalizeUnit(r.str(aliasUnit)),
		DispatchMeta:     r.dispatchMeta(),
		LoadedAt:         r.instant([]string{"loadedAt"}),
		PaidAt:           r.instant([]string{"paidAt"}),
		CreatedAt:        r.instant(aliasCreatedAt),
		HomeSettleStatus: HomeSettleStatus(r.str([]string{"homeSettleStatus"})),

		HomeSettleStatusUpdatedAt: r.instant([]string{"homeSettleStatusUpdatedAt"}),
		HomeSettleRemindedAt:      r.instant([]string{"homeSettleRemindedAt"}),
		HomeSettleSnoozeUntil:     r.instant([]string{"homeSettleSnoozeUntil"}),
		HomeSettleLastAction:      HomeSettleAction(r.str([]string{"homeSettleLastAction"})),
		HomeSettleLastActionAt:    r.instant([]string{"homeSettleLastActionAt"}),
	}

	s.Quantity, _ = r.num(aliasQuantity)
	s.UnitWeight, _ = r.num([]string{"unitWeight"})
	s.UnitVolume, _ = r.num([]string{"unitVolume"})
	s.UnitPrice, _ = r.money(aliasUnitPrice)
	s.Amount, _ = r.money(aliasAmount)
	s.Rebate, _ = r.money(aliasRebate)
	s.IsPaid, _ = r.boolean(aliasPaid)

	if loaded, ok := r.boolean(aliasLoaded); ok {
		s.IsLoaded = loaded
	} else {
		s.IsLoaded = s.Type == ShipmentShip
	}

	if overridden, ok := r.boolean([]string{"amountOverridden"}); ok {
		s.AmountOverridden = overridden
	} else if r.has(aliasAmount) {
		s.AmountOverridden = !s.Amount.Equal(measure.LineAmount(s.Quantity, s.UnitPrice))
	}

	return s
}

func decodeRecords(data []byte) ([]DispatchRecord, error) {
	raws, err := decodeList(data)
	if err != nil {
		return nil, err
	}

	out := make([]DispatchRecord, 0, len(raws))
	for _, r := range raws {
		rec := DispatchRecord{
			ID:           r.str([]string{"id", "_id", "recordId"}),
			LoadedAt:     r.instant([]string{"loadedAt", "loadTime"}),
			CreatedAt:    r.instant(aliasCreatedAt),
			DispatchMeta: r.dispatchMeta(),
		}

		itemData, _ := r.lookup([]string{"items", "shipments"})

		items, err := decodeList(itemData)
		if err != nil {
			return nil, err
		}

		for _, it := range items {
			rec.Items = append(rec.Items, itemFromRaw(it))
		}

		out = append(out, rec)
	}

	return out, nil
}

func itemFromRaw(r rawRecord) DispatchItem {
	it := DispatchItem{
		ShipmentID:   r.str([]string{"shipmentId", "id", "_id"}),
		SerialNo:     r.str(aliasSerial),
		Date:         r.date(aliasDate),
		Manufacturer: r.str(aliasManufacturer),
		Customer:     r.str(aliasCustomer),
		Product:      r.str(aliasProduct),
		MeasureUnit:  measure.NormalizeUnit(r.str(aliasUnit)).OrPiece(),
		DispatchMeta: r.dispatchMeta(),
	}

	it.Quantity, _ = r.num(aliasQuantity)
	it.UnitWeight, _ = r.num([]string{"unitWeight"})
	it.UnitVolume, _ = r.num([]string{"unitVolume"})
	it.UnitPrice, _ = r.money(aliasUnitPrice)

	if amount, ok := r.money(aliasAmount); ok {
		it.Amount = amount
	} else {
		it.Amount = measure.LineAmount(it.Quantity, it.UnitPrice)
	}

	return it
}

func decodeFinance(data []byte) ([]FinanceRecord, error) {
	raws, err := decodeList(data)
	if err != nil {
		return nil, err
	}

	out := make([]FinanceRecord, 0, len(raws))
	for _, r := range raws {
		f := FinanceRecord{
			ID:               r.str(aliasID),
			Type:             FinanceType(strings.ToLower(r.str([]string{"type", "direction"}))),
			Date:             r.date(aliasDate),
			Summary:          r.str([]string{"summary", "title", "description"}),
			Category:         r.str([]string{"category"}),
			Note:             r.str(aliasNote),
			CreatedAt:        r.instant(aliasCreatedAt),
			SourceType:       r.str([]string{"sourceType"}),
			SourceShipmentID: r.str([]string{"sourceShipmentId"}),
			SourceSerialNo:   r.str([]string{"sourceSerialNo"}),
		}

		f.Amount, _ = r.money([]string{"amount"})

		out = append(out, f)
	}

	return out, nil
}

func decodeActions(data []byte) ([]HomeSettleActionRecord, error) {
	raws, err := decodeList(data)
	if err != nil {
		return nil, err
	}

	out := make([]HomeSettleActionRecord, 0, len(raws))
	for _, r := range raws {
		a := HomeSettleActionRecord{
			ID:           r.str([]string{"id"}),
			ShipmentID:   r.str([]string{"shipmentId"}),
			ActionType:   HomeSettleAction(r.str([]string{"actionType", "action"})),
			ActionAt:     r.instant([]string{"actionAt"}),
			SerialNo:     r.str(aliasSerial),
			Date:         r.date(aliasDate),
			Manufacturer: r.str(aliasManufacturer),
			Customer:     r.str(aliasCustomer),
			Product:      r.str(aliasProduct),
			Phone:        r.str(aliasPhone),
			Note:         r.str(aliasNote),
		}

		a.DebtBefore, _ = r.money([]string{"debtBefore"})
		a.DebtAfter, _ = r.money([]string{"debtAfter"})

		out = append(out, a)
	}

	return out, nil
}

// normalize re-derives every cached field and repairs drift between the
// collections. It runs once after decoding.
func (s *Service) normalize(now time.Time) {
	live := make(map[string]struct{}, len(s.shipments))

	for i := range s.shipments {
		sh := &s.shipments[i]

		if sh.ID == "" {
			sh.ID = s.newID()
		}

		live[sh.ID] = struct{}{}

		if sh.CreatedAt.IsZero() {
			sh.CreatedAt = now
		}

		if sh.Date == "" {
			sh.Date = sh.CreatedAt.In(now.Location()).Format(measure.DateLayout)
		}

		sh.MeasureUnit = sh.MeasureUnit.OrPiece()
		sh.Quantity = measure.NonNegative(sh.Quantity)
		sh.UnitPrice = measure.NonNegativeDecimal(sh.UnitPrice)
		sh.Amount = measure.NonNegativeMoney(sh.Amount)
		sh.Rebate = measure.NonNegativeMoney(sh.Rebate)
		sh.recomputeAmount()

		if sh.IsLoaded {
			sh.Type = ShipmentShip
			sh.DispatchMeta = sh.DispatchMeta.WithDestination()
			if sh.LoadedAt.IsZero() {
				sh.LoadedAt = sh.CreatedAt
			}
		} else {
			takeOffTruck(sh)
		}

		switch {
		case sh.IsPaid && sh.PaidAt.IsZero():
			sh.PaidAt = sh.CreatedAt
		case !sh.IsPaid:
			sh.PaidAt = time.Time{}
		}

		switch sh.HomeSettleStatus {
		case HomeSettleNone, HomeSettleUnpaid, HomeSettleReminded, HomeSettlePaid:
		default:
			sh.HomeSettleStatus = HomeSettleNone
		}
	}

	kept := s.records[:0]

	for _, rec := range s.records {
		items := rec.Items[:0]
		for _, it := range rec.Items {
			if _, ok := live[it.ShipmentID]; ok {
				items = append(items, it)
			}
		}

		if len(items) == 0 {
			continue
		}

		rec.Items = items

		if rec.ID == "" {
			rec.ID = s.newID()
		}

		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = rec.LoadedAt
		}

		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}

		RebuildRecordTotals(&rec)
		kept = append(kept, rec)
	}

	s.records = kept

	for i := range s.finance {
		f := &s.finance[i]
		if f.ID == "" {
			f.ID = s.newID()
		}

		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
	}

	s.finance = ReconcilePaymentIncome(s.shipments, s.finance, now, s.newID)
}
