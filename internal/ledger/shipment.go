package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

// LoadState is the single answer to "is this shipment on a truck".
type LoadState int

const (
	LoadStateUnloaded LoadState = iota
	LoadStateLoaded
)

func (l LoadState) String() string {
	if l == LoadStateLoaded {
		return "loaded"
	}

	return "unloaded"
}

// LoadStateOf derives the load state from IsLoaded only; Type may lag behind
// while a load toggle is in flight.
func LoadStateOf(s Shipment) LoadState {
	if s.IsLoaded {
		return LoadStateLoaded
	}

	return LoadStateUnloaded
}

// loadable reports whether s may be put on a new truck.
func loadable(s *Shipment) bool {
	return LoadStateOf(*s) == LoadStateUnloaded && s.Type == ShipmentReceive
}

// IsEmpty reports whether no meta field is set.
func (m DispatchMeta) IsEmpty() bool {
	return m == DispatchMeta{}
}

func (m DispatchMeta) hasSource() bool {
	return m.Date != "" || m.TruckNo != "" || m.PlateNo != "" || m.Driver != "" || m.ContactName != ""
}

// WithDestination recomputes Destination from the other fields. When they
// are all empty the stored Destination is kept verbatim.
func (m DispatchMeta) WithDestination() DispatchMeta {
	m = m.trimmed()
	if !m.hasSource() {
		return m
	}

	parts := make([]string, 0, 5)
	if m.Date != "" {
		parts = append(parts, m.Date)
	}

	if m.TruckNo != "" {
		parts = append(parts, "车次"+m.TruckNo)
	}

	if m.PlateNo != "" {
		parts = append(parts, "车牌"+m.PlateNo)
	}

	if m.Driver != "" {
		parts = append(parts, "司机"+m.Driver)
	}

	if m.ContactName != "" {
		parts = append(parts, "联系人"+m.ContactName)
	}

	m.Destination = strings.Join(parts, " ")

	return m
}

// Or fills every empty field of m from fallback.
func (m DispatchMeta) Or(fallback DispatchMeta) DispatchMeta {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}

		return b
	}

	return DispatchMeta{
		Date:        pick(m.Date, fallback.Date),
		TruckNo:     pick(m.TruckNo, fallback.TruckNo),
		PlateNo:     pick(m.PlateNo, fallback.PlateNo),
		Driver:      pick(m.Driver, fallback.Driver),
		ContactName: pick(m.ContactName, fallback.ContactName),
		Destination: pick(m.Destination, fallback.Destination),
	}
}

func (m DispatchMeta) trimmed() DispatchMeta {
	return DispatchMeta{
		Date:        strings.TrimSpace(m.Date),
		TruckNo:     strings.TrimSpace(m.TruckNo),
		PlateNo:     strings.TrimSpace(m.PlateNo),
		Driver:      strings.TrimSpace(m.Driver),
		ContactName: strings.TrimSpace(m.ContactName),
		Destination: strings.TrimSpace(m.Destination),
	}
}

// ShipmentParams is the intake form for a new shipment.
type ShipmentParams struct {
	SerialNo     string
	Date         string
	Manufacturer string
	Customer     string
	Product      string
	Route        string
	Phone        string
	Note         string
	MeasureUnit  measure.Unit
	Quantity     float64
	UnitPrice    decimal.Decimal
	// Amount overrides quantity × unit price when set.
	Amount     *decimal.Decimal
	Rebate     decimal.Decimal
	UnitWeight float64
	UnitVolume float64
}

// ShipmentPatch is an inline edit; nil fields are left alone.
type ShipmentPatch struct {
	SerialNo     *string
	Date         *string
	Manufacturer *string
	Customer     *string
	Product      *string
	Route        *string
	Phone        *string
	Note         *string
	MeasureUnit  *measure.Unit
	Quantity     *float64
	UnitPrice    *decimal.Decimal
	Amount       *decimal.Decimal
	// ResetAmount drops a manual amount override.
	ResetAmount bool
	Rebate      *decimal.Decimal
	UnitWeight  *float64
	UnitVolume  *float64
	// Dispatch edits the meta of a loaded shipment and of its item in the
	// owning dispatch record.
	Dispatch *DispatchMeta
}

func newShipment(id string, p ShipmentParams, now time.Time) Shipment {
	s := Shipment{
		ID:           id,
		SerialNo:     strings.TrimSpace(p.SerialNo),
		Date:         p.Date,
		Type:         ShipmentReceive,
		Manufacturer: strings.TrimSpace(p.Manufacturer),
		Customer:     strings.TrimSpace(p.Customer),
		Product:      strings.TrimSpace(p.Product),
		Route:        strings.TrimSpace(p.Route),
		Phone:        strings.TrimSpace(p.Phone),
		Note:         p.Note,
		MeasureUnit:  p.MeasureUnit.OrPiece(),
		Quantity:     measure.NonNegative(p.Quantity),
		UnitPrice:    measure.NonNegativeDecimal(p.UnitPrice),
		Rebate:       measure.NonNegativeMoney(p.Rebate),
		UnitWeight:   measure.NonNegative(p.UnitWeight),
		UnitVolume:   measure.NonNegative(p.UnitVolume),
		CreatedAt:    now,
	}

	if date, ok := measure.ParseDate(s.Date); ok {
		s.Date = date
	} else {
		s.Date = now.Format(measure.DateLayout)
	}

	if p.Amount != nil {
		s.Amount = measure.NonNegativeMoney(*p.Amount)
		s.AmountOverridden = true
	}

	s.recomputeAmount()

	return s
}

// recomputeAmount refreshes Amount unless it was entered by hand.
func (s *Shipment) recomputeAmount() {
	if s.AmountOverridden {
		return
	}

	s.Amount = measure.LineAmount(s.Quantity, s.UnitPrice)
}

func (s *Shipment) apply(p ShipmentPatch) {
	setString := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}

	setString(&s.SerialNo, p.SerialNo)
	setString(&s.Manufacturer, p.Manufacturer)
	setString(&s.Customer, p.Customer)
	setString(&s.Product, p.Product)
	setString(&s.Route, p.Route)
	setString(&s.Phone, p.Phone)

	if p.Note != nil {
		s.Note = *p.Note
	}

	if p.Date != nil {
		if date, ok := measure.ParseDate(*p.Date); ok {
			s.Date = date
		}
	}

	if p.MeasureUnit != nil {
		s.MeasureUnit = p.MeasureUnit.OrPiece()
	}

	if p.Quantity != nil {
		s.Quantity = measure.NonNegative(*p.Quantity)
	}

	if p.UnitPrice != nil {
		s.UnitPrice = measure.NonNegativeDecimal(*p.UnitPrice)
	}

	if p.Rebate != nil {
		s.Rebate = measure.NonNegativeMoney(*p.Rebate)
	}

	if p.UnitWeight != nil {
		s.UnitWeight = measure.NonNegative(*p.UnitWeight)
	}

	if p.UnitVolume != nil {
		s.UnitVolume = measure.NonNegative(*p.UnitVolume)
	}

	if p.ResetAmount {
		s.AmountOverridden = false
	}

	if p.Amount != nil {
		s.Amount = measure.NonNegativeMoney(*p.Amount)
		s.AmountOverridden = true
	}

	s.recomputeAmount()
}

// putOnTruck marks s as loaded with meta.
func putOnTruck(s *Shipment, meta DispatchMeta, at time.Time) {
	s.Type = ShipmentShip
	s.IsLoaded = true
	s.LoadedAt = at
	s.DispatchMeta = meta.WithDestination()
}

// takeOffTruck resets s to an unloaded intake line.
func takeOffTruck(s *Shipment) {
	s.Type = ShipmentReceive
	s.IsLoaded = false
	s.LoadedAt = time.Time{}
	s.DispatchMeta = DispatchMeta{}
}

// newDispatchItem snapshots s for a dispatch record.
func newDispatchItem(s *Shipment, meta DispatchMeta) DispatchItem {
	item := DispatchItem{
		ShipmentID:   s.ID,
		SerialNo:     s.SerialNo,
		Date:         s.Date,
		Manufacturer: s.Manufacturer,
		Customer:     s.Customer,
		Product:      s.Product,
		MeasureUnit:  s.MeasureUnit.OrPiece(),
		Quantity:     s.Quantity,
		UnitPrice:    s.UnitPrice,
		Amount:       s.Amount,
		UnitWeight:   s.UnitWeight,
		UnitVolume:   s.UnitVolume,
		DispatchMeta: meta.WithDestination(),
	}

	item.computeMeasures()

	return item
}

func (it *DispatchItem) computeMeasures() {
	switch it.MeasureUnit {
	case measure.UnitWeight:
		it.TotalWeight = measure.Round(it.Quantity, 3)
		it.TotalVolume = 0
	case measure.UnitVolume:
		it.TotalWeight = 0
		it.TotalVolume = measure.Round(it.Quantity, 3)
	default:
		it.TotalWeight = measure.Round(it.UnitWeight*it.Quantity, 3)
		it.TotalVolume = measure.Round(it.UnitVolume*it.Quantity, 3)
	}
}
