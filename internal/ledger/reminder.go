package ledger

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

// homeSettleMarker flags a shipment whose freight is settled by the
// consignee's household after delivery.
const homeSettleMarker = "家结"

const defaultSnoozeDuration = time.Hour

// IsHomeSettleCandidate reports whether the shipment note carries the
// home-settle marker.
func IsHomeSettleCandidate(s Shipment) bool {
	if strings.Contains(stripNote(s.Note), homeSettleMarker) {
		return true
	}

	tokens := strings.FieldsFunc(s.Note, func(r rune) bool { return r == ';' || r == '；' })
	for _, t := range tokens {
		if strings.TrimSpace(t) == homeSettleMarker {
			return true
		}
	}

	return false
}

func stripNote(note string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return -1
		}

		return r
	}, note)
}

// IsHomeSettleDue reports whether a full calendar month has passed since the
// shipment date, measured from midnight in now's location.
func IsHomeSettleDue(s Shipment, now time.Time) bool {
	day, ok := measure.DateIn(s.Date, now.Location())
	if !ok {
		return false
	}

	return !now.Before(day.AddDate(0, 1, 0))
}

// HomeSettleStatusOf is the single answer to the reminder state of s.
func HomeSettleStatusOf(s Shipment) HomeSettleStatus {
	switch {
	case s.IsPaid:
		return HomeSettlePaid
	case s.HomeSettleStatus != HomeSettleNone:
		return s.HomeSettleStatus
	case !s.HomeSettleRemindedAt.IsZero():
		return HomeSettleReminded
	default:
		return HomeSettleUnpaid
	}
}

// HomeSettleDebt is the amount still owed: amount less rebate while unpaid.
func HomeSettleDebt(s Shipment) decimal.Decimal {
	if HomeSettleStatusOf(s) == HomeSettlePaid {
		return decimal.Zero
	}

	debt := s.Amount.Sub(s.Rebate)
	if debt.IsNegative() {
		return decimal.Zero
	}

	return debt
}

func isSnoozed(s Shipment, now time.Time) bool {
	return now.Before(s.HomeSettleSnoozeUntil)
}

// Reminder is a projection of one due home-settle shipment.
type Reminder struct {
	Shipment Shipment         `json:"shipment"`
	Status   HomeSettleStatus `json:"status"`
	Debt     decimal.Decimal  `json:"debt"`
	Snoozed  bool             `json:"snoozed"`
}

// ReminderFilter narrows Reminders. The zero value lists every due
// candidate.
type ReminderFilter struct {
	Status HomeSettleStatus
	// ActiveOnly keeps reminders that are neither paid nor snoozed.
	ActiveOnly bool
	// Query matches serial, manufacturer, customer, product or phone.
	Query string
}

func (f ReminderFilter) match(r Reminder) bool {
	if f.Status != HomeSettleNone && r.Status != f.Status {
		return false
	}

	if f.ActiveOnly && (r.Snoozed || r.Status == HomeSettlePaid) {
		return false
	}

	q := strings.TrimSpace(f.Query)
	if q == "" {
		return true
	}

	s := r.Shipment
	for _, v := range []string{s.SerialNo, s.Manufacturer, s.Customer, s.Product, s.Phone} {
		if strings.Contains(v, q) {
			return true
		}
	}

	return false
}

// ReminderStats summarizes the due home-settle candidates.
type ReminderStats struct {
	Total           int             `json:"total"`
	Unpaid          int             `json:"unpaid"`
	Reminded        int             `json:"reminded"`
	Paid            int             `json:"paid"`
	Snoozed         int             `json:"snoozed"`
	Active          int             `json:"active"`
	OutstandingDebt decimal.Decimal `json:"outstandingDebt"`
}

// Reminders projects every due home-settle candidate matching f, in
// shipment order.
func (s *Service) Reminders(f ReminderFilter) []Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.reminders(f, s.clock.Now())
}

// ActiveReminders lists the reminders that need attention now.
func (s *Service) ActiveReminders() []Reminder {
	return s.Reminders(ReminderFilter{ActiveOnly: true})
}

func (s *Service) reminders(f ReminderFilter, now time.Time) []Reminder {
	var out []Reminder

	for _, sh := range s.shipments {
		if !IsHomeSettleCandidate(sh) || !IsHomeSettleDue(sh, now) {
			continue
		}

		r := Reminder{
			Shipment: sh,
			Status:   HomeSettleStatusOf(sh),
			Debt:     HomeSettleDebt(sh),
			Snoozed:  isSnoozed(sh, now),
		}

		if f.match(r) {
			out = append(out, r)
		}
	}

	return out
}

// ReminderStats counts due candidates per status.
func (s *Service) ReminderStats() ReminderStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := ReminderStats{OutstandingDebt: decimal.Zero}

	for _, r := range s.reminders(ReminderFilter{}, s.clock.Now()) {
		stats.Total++

		switch r.Status {
		case HomeSettleUnpaid:
			stats.Unpaid++
		case HomeSettleReminded:
			stats.Reminded++
		case HomeSettlePaid:
			stats.Paid++
		}

		if r.Snoozed {
			stats.Snoozed++
		}

		if !r.Snoozed && r.Status != HomeSettlePaid {
			stats.Active++
		}

		stats.OutstandingDebt = stats.OutstandingDebt.Add(r.Debt)
	}

	return stats
}

// SnoozeReminder marks the shipment reminded and hides it from the active
// list for the snooze duration.
func (s *Service) SnoozeReminder(ctx context.Context, shipmentID string) (HomeSettleActionRecord, error) {
	return s.remind(ctx, shipmentID, ActionSnooze)
}

// ContactReminder marks the shipment reminded without hiding it.
func (s *Service) ContactReminder(ctx context.Context, shipmentID string) (HomeSettleActionRecord, error) {
	return s.remind(ctx, shipmentID, ActionContact)
}

func (s *Service) remind(ctx context.Context, shipmentID string, action HomeSettleAction) (HomeSettleActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.shipment(shipmentID)
	if sh == nil {
		return HomeSettleActionRecord{}, ErrShipmentNotFound
	}

	now := s.clock.Now()
	debt := HomeSettleDebt(*sh)

	sh.HomeSettleStatus = HomeSettleReminded
	sh.HomeSettleStatusUpdatedAt = now
	sh.HomeSettleRemindedAt = now
	sh.HomeSettleLastAction = action
	sh.HomeSettleLastActionAt = now

	if action == ActionSnooze {
		sh.HomeSettleSnoozeUntil = now.Add(s.snooze)
	} else {
		sh.HomeSettleSnoozeUntil = time.Time{}
	}

	rec := s.appendAction(*sh, action, now, debt, debt)
	s.commit(ctx, colShipments|colActions)

	return rec, nil
}

// MarkReminderPaid settles a home-settle shipment: the override is cleared,
// the shipment is paid and payment sync runs.
func (s *Service) MarkReminderPaid(ctx context.Context, shipmentID string) (HomeSettleActionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.shipment(shipmentID)
	if sh == nil {
		return HomeSettleActionRecord{}, ErrShipmentNotFound
	}

	now := s.clock.Now()
	debt := HomeSettleDebt(*sh)

	markPaid(sh, true, now)
	sh.HomeSettleLastAction = ActionPaid
	sh.HomeSettleLastActionAt = now

	rec := s.appendAction(*sh, ActionPaid, now, debt, decimal.Zero)
	s.commit(ctx, colShipments|colFinance|colActions)

	return rec, nil
}

func (s *Service) appendAction(sh Shipment, action HomeSettleAction, at time.Time, before, after decimal.Decimal) HomeSettleActionRecord {
	rec := HomeSettleActionRecord{
		ID:           s.newID(),
		ShipmentID:   sh.ID,
		ActionType:   action,
		ActionAt:     at,
		DebtBefore:   before,
		DebtAfter:    after,
		SerialNo:     sh.SerialNo,
		Date:         sh.Date,
		Manufacturer: sh.Manufacturer,
		Customer:     sh.Customer,
		Product:      sh.Product,
		Phone:        sh.Phone,
		Note:         sh.Note,
	}

	s.actions = append(s.actions, rec)

	return rec
}

// markPaid toggles payment keeping IsPaid and PaidAt consistent. An already
// paid shipment keeps its original PaidAt. Any manual reminder override and
// snooze are cleared.
func markPaid(sh *Shipment, paid bool, now time.Time) {
	switch {
	case !paid:
		sh.PaidAt = time.Time{}
	case !sh.IsPaid || sh.PaidAt.IsZero():
		sh.PaidAt = now
	}

	sh.IsPaid = paid

	sh.HomeSettleStatus = HomeSettleNone
	sh.HomeSettleStatusUpdatedAt = now
	sh.HomeSettleSnoozeUntil = time.Time{}
}
