package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

var (
	ErrShipmentNotFound = errors.New("shipment not found")
	ErrRecordNotFound   = errors.New("dispatch record not found")
	ErrFinanceNotFound  = errors.New("finance record not found")
	ErrManualOnly       = errors.New("finance records with a source are managed by payment sync")
	ErrInvalidAmount    = errors.New("amount must be positive")
)

// ShipmentType is the intake/dispatch classification of a shipment.
type ShipmentType string

const (
	ShipmentReceive ShipmentType = "receive"
	ShipmentShip    ShipmentType = "ship"
)

// FinanceType represents the direction of a finance record.
type FinanceType string

const (
	FinanceIncome  FinanceType = "income"
	FinanceExpense FinanceType = "expense"
)

// SourceShipmentPayment marks finance records generated by payment sync.
const SourceShipmentPayment = "shipment_payment"

// HomeSettleStatus is the reminder state of a home-settle shipment. The empty
// value on a stored shipment means "no manual override".
type HomeSettleStatus string

const (
	HomeSettleNone     HomeSettleStatus = ""
	HomeSettleUnpaid   HomeSettleStatus = "unpaid"
	HomeSettleReminded HomeSettleStatus = "reminded"
	HomeSettlePaid     HomeSettleStatus = "paid"
)

// HomeSettleAction is an action taken on a home-settle reminder.
type HomeSettleAction string

const (
	ActionSnooze  HomeSettleAction = "snooze"
	ActionContact HomeSettleAction = "contact"
	ActionPaid    HomeSettleAction = "paid"
)

// DispatchMeta describes the truck a load went out on.
type DispatchMeta struct {
	Date        string `json:"dispatchDate,omitempty"`
	TruckNo     string `json:"dispatchTruckNo,omitempty"`
	PlateNo     string `json:"dispatchPlateNo,omitempty"`
	Driver      string `json:"dispatchDriver,omitempty"`
	ContactName string `json:"dispatchContactName,omitempty"`
	// Destination is a display string derived from the other fields.
	Destination string `json:"dispatchDestination,omitempty"`
}

// Shipment is one cargo line item.
type Shipment struct {
	ID       string       `json:"id"`
	SerialNo string       `json:"serialNo,omitempty"`
	Date     string       `json:"date"`
	Type     ShipmentType `json:"type"`

	Manufacturer string `json:"manufacturer,omitempty"`
	Customer     string `json:"customer,omitempty"`
	Product      string `json:"product,omitempty"`
	Route        string `json:"route,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Note         string `json:"note,omitempty"`

	MeasureUnit      measure.Unit    `json:"measureUnit"`
	Quantity         float64         `json:"quantity"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	Amount           decimal.Decimal `json:"amount"`
	AmountOverridden bool            `json:"amountOverridden,omitempty"`
	Rebate           decimal.Decimal `json:"rebate"`
	UnitWeight       float64         `json:"unitWeight,omitempty"`
	UnitVolume       float64         `json:"unitVolume,omitempty"`

	DispatchMeta
	IsLoaded bool      `json:"isLoaded"`
	LoadedAt time.Time `json:"loadedAt,omitzero"`

	IsPaid bool      `json:"isPaid"`
	PaidAt time.Time `json:"paidAt,omitzero"`

	HomeSettleStatus          HomeSettleStatus `json:"homeSettleStatus,omitempty"`
	HomeSettleStatusUpdatedAt time.Time        `json:"homeSettleStatusUpdatedAt,omitzero"`
	HomeSettleRemindedAt      time.Time        `json:"homeSettleRemindedAt,omitzero"`
	HomeSettleSnoozeUntil     time.Time        `json:"homeSettleSnoozeUntil,omitzero"`
	HomeSettleLastAction      HomeSettleAction `json:"homeSettleLastAction,omitempty"`
	HomeSettleLastActionAt    time.Time        `json:"homeSettleLastActionAt,omitzero"`

	CreatedAt time.Time `json:"createdAt"`
}

// DispatchItem is a snapshot of a shipment taken when it was loaded.
type DispatchItem struct {
	ShipmentID   string          `json:"shipmentId"`
	SerialNo     string          `json:"serialNo,omitempty"`
	Date         string          `json:"date,omitempty"`
	Manufacturer string          `json:"manufacturer,omitempty"`
	Customer     string          `json:"customer,omitempty"`
	Product      string          `json:"product,omitempty"`
	MeasureUnit  measure.Unit    `json:"measureUnit"`
	Quantity     float64         `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
	Amount       decimal.Decimal `json:"amount"`
	UnitWeight   float64         `json:"unitWeight"`
	TotalWeight  float64         `json:"totalWeight"`
	UnitVolume   float64         `json:"unitVolume"`
	TotalVolume  float64         `json:"totalVolume"`

	DispatchMeta
}

// DispatchRecord is one truck-load event. The meta and every total are
// derived from Items by RebuildRecordTotals.
type DispatchRecord struct {
	ID        string    `json:"id"`
	LoadedAt  time.Time `json:"loadedAt,omitzero"`
	CreatedAt time.Time `json:"createdAt"`

	DispatchMeta
	Items []DispatchItem `json:"items"`

	ItemCount       int             `json:"itemCount"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	TotalWeight     float64         `json:"totalWeight"`
	TotalCubic      float64         `json:"totalCubic"`
	TotalPieces     float64         `json:"totalPieces"`
	ProductsSummary string          `json:"productsSummary"`
}

// FinanceRecord is one income or expense ledger line.
type FinanceRecord struct {
	ID        string          `json:"id"`
	Type      FinanceType     `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	Date      string          `json:"date"`
	Summary   string          `json:"summary"`
	Category  string          `json:"category,omitempty"`
	Note      string          `json:"note,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`

	SourceType       string `json:"sourceType,omitempty"`
	SourceShipmentID string `json:"sourceShipmentId,omitempty"`
	SourceSerialNo   string `json:"sourceSerialNo,omitempty"`
}

// IsAuto reports whether the record was produced by payment sync.
func (f FinanceRecord) IsAuto() bool {
	return f.SourceType == SourceShipmentPayment
}

// HomeSettleActionRecord is an append-only audit entry for a reminder action.
type HomeSettleActionRecord struct {
	ID         string           `json:"id"`
	ShipmentID string           `json:"shipmentId"`
	ActionType HomeSettleAction `json:"actionType"`
	ActionAt   time.Time        `json:"actionAt"`
	DebtBefore decimal.Decimal  `json:"debtBefore"`
	DebtAfter  decimal.Decimal  `json:"debtAfter"`

	SerialNo     string `json:"serialNo,omitempty"`
	Date         string `json:"date,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Customer     string `json:"customer,omitempty"`
	Product      string `json:"product,omitempty"`
	Phone        string `json:"phone,omitempty"`
	Note         string `json:"note,omitempty"`
}
