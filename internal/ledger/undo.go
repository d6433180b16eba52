package ledger

import (
	"context"
	"slices"
	"time"
)

const defaultUndoWindow = 10 * time.Second

// UndoKind names what a pending undo would bring back.
type UndoKind string

const (
	UndoShipment       UndoKind = "shipment"
	UndoDispatchRecord UndoKind = "dispatch_record"
	UndoFinanceRecord  UndoKind = "finance_record"
)

// PendingUndo describes the deletion that Undo would revert.
type PendingUndo struct {
	Kind      UndoKind  `json:"kind"`
	TargetID  string    `json:"targetId"`
	DeletedAt time.Time `json:"deletedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type undoSnapshot struct {
	PendingUndo
	shipments []Shipment
	records   []DispatchRecord
	finance   []FinanceRecord
}

// snapshot captures every collection a delete may cascade into. It must be
// taken before the delete mutates anything.
func (s *Service) snapshot(kind UndoKind, id string) *undoSnapshot {
	now := s.clock.Now()

	return &undoSnapshot{
		PendingUndo: PendingUndo{
			Kind:      kind,
			TargetID:  id,
			DeletedAt: now,
			ExpiresAt: now.Add(s.undoWindow),
		},
		shipments: slices.Clone(s.shipments),
		records:   cloneRecords(s.records),
		finance:   slices.Clone(s.finance),
	}
}

// PendingUndo returns the deletion Undo would revert, if it is still within
// the undo window.
func (s *Service) PendingUndo() (PendingUndo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.undoLive(s.clock.Now()) {
		return PendingUndo{}, false
	}

	return s.undo.PendingUndo, true
}

// Undo restores the collections to their state before the last delete. It
// reports false when nothing is pending or the window has passed.
func (s *Service) Undo(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.undoLive(s.clock.Now()) {
		s.undo = nil
		return false, nil
	}

	snap := s.undo

	s.shipments = snap.shipments
	s.records = snap.records
	s.finance = snap.finance

	s.commit(ctx, colShipments|colRecords|colFinance)

	return true, nil
}

func (s *Service) undoLive(now time.Time) bool {
	return s.undo != nil && now.Before(s.undo.ExpiresAt)
}
