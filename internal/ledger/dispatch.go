package ledger

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
)

// productsSummaryLimit is how many product names a summary lists before
// collapsing the rest into "等N种".
const productsSummaryLimit = 3

// RebuildRecordTotals recomputes every derived field of r from r.Items:
// item destinations, record meta, totals and the products summary.
func RebuildRecordTotals(r *DispatchRecord) {
	var (
		amount  = decimal.Zero
		weight  float64
		cubic   float64
		pieces  float64
		meta    DispatchMeta
		seen    = make(map[string]struct{})
		product []string
	)

	for i := range r.Items {
		it := &r.Items[i]
		it.DispatchMeta = it.DispatchMeta.WithDestination()
		it.computeMeasures()

		amount = amount.Add(it.Amount)
		weight += it.TotalWeight
		cubic += it.TotalVolume

		if it.MeasureUnit.OrPiece() == measure.UnitPiece {
			pieces += it.Quantity
		}

		meta = meta.Or(it.DispatchMeta)

		name := strings.TrimSpace(it.Product)
		if name == "" {
			continue
		}

		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		product = append(product, name)
	}

	if len(r.Items) > 0 {
		r.DispatchMeta = meta.WithDestination()
	}

	r.ItemCount = len(r.Items)
	r.TotalAmount = amount.Round(2)
	r.TotalWeight = measure.Round(weight, 3)
	r.TotalCubic = measure.Round(cubic, 3)
	r.TotalPieces = measure.Round(pieces, 3)
	r.ProductsSummary = summarizeProducts(product)
}

func summarizeProducts(names []string) string {
	if len(names) <= productsSummaryLimit {
		return strings.Join(names, "、")
	}

	return fmt.Sprintf("%s等%d种", strings.Join(names[:productsSummaryLimit], "、"), len(names))
}

// recordTime orders records for the most-recent-reference lookup.
func recordTime(r *DispatchRecord) time.Time {
	if !r.LoadedAt.IsZero() {
		return r.LoadedAt
	}

	return r.CreatedAt
}

func (r *DispatchRecord) contains(shipmentID string) bool {
	for _, it := range r.Items {
		if it.ShipmentID == shipmentID {
			return true
		}
	}

	return false
}

// strip removes every item of shipmentID and reports whether any was found.
func (r *DispatchRecord) strip(shipmentID string) bool {
	n := len(r.Items)
	r.Items = slices.DeleteFunc(r.Items, func(it DispatchItem) bool {
		return it.ShipmentID == shipmentID
	})

	return len(r.Items) != n
}

// BatchLoadResult reports the outcome of BatchLoad.
type BatchLoadResult struct {
	UpdatedCount int
	Record       *DispatchRecord
}

// AppendResult reports the outcome of AppendToRecord.
type AppendResult struct {
	AddedCount int
}

// RemoveResult reports the outcome of RemoveFromRecord.
type RemoveResult struct {
	Removed       bool
	RecordDeleted bool
}

// LoadSingle puts one unloaded intake shipment on a new truck load. A
// shipment that is already loaded, or not an intake line, is left alone and
// nil is returned.
func (s *Service) LoadSingle(ctx context.Context, shipmentID string, meta DispatchMeta) (*DispatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.shipment(shipmentID)
	if sh == nil {
		return nil, ErrShipmentNotFound
	}

	if !loadable(sh) {
		return nil, nil
	}

	rec := s.newRecord([]*Shipment{sh}, meta)
	s.commit(ctx, colShipments|colRecords)

	return new(rec.clone()), nil
}

// UnloadSingle takes a loaded shipment off its truck, detaching it from
// every dispatch record that holds it. It reports false when the shipment was
// not loaded.
func (s *Service) UnloadSingle(ctx context.Context, shipmentID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.shipment(shipmentID)
	if sh == nil {
		return false, ErrShipmentNotFound
	}

	if LoadStateOf(*sh) != LoadStateLoaded {
		return false, nil
	}

	s.detachEverywhere(shipmentID)
	takeOffTruck(sh)
	s.commit(ctx, colShipments|colRecords)

	return true, nil
}

// BatchLoad puts every loadable shipment among ids on one new truck load.
// Unknown, already loaded and duplicate ids are skipped.
func (s *Service) BatchLoad(ctx context.Context, ids []string, meta DispatchMeta) (BatchLoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		picked []*Shipment
		seen   = make(map[string]struct{}, len(ids))
	)

	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}

		seen[id] = struct{}{}

		sh := s.shipment(id)
		if sh == nil || !loadable(sh) {
			continue
		}

		picked = append(picked, sh)
	}

	if len(picked) == 0 {
		return BatchLoadResult{}, nil
	}

	rec := s.newRecord(picked, meta)
	s.commit(ctx, colShipments|colRecords)

	return BatchLoadResult{UpdatedCount: len(picked), Record: new(rec.clone())}, nil
}

// AppendToRecord adds loadable shipments to an existing truck load. New
// items take the record's meta unless the shipment carries its own values.
func (s *Service) AppendToRecord(ctx context.Context, recordID string, ids []string) (AppendResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(recordID)
	if rec == nil {
		return AppendResult{}, ErrRecordNotFound
	}

	now := s.clock.Now()
	added := 0

	for _, id := range ids {
		if rec.contains(id) {
			continue
		}

		sh := s.shipment(id)
		if sh == nil || !loadable(sh) {
			continue
		}

		putOnTruck(sh, sh.DispatchMeta.Or(rec.DispatchMeta), now)
		rec.Items = append(rec.Items, newDispatchItem(sh, sh.DispatchMeta))
		added++
	}

	if added == 0 {
		return AppendResult{}, nil
	}

	RebuildRecordTotals(rec)
	s.commit(ctx, colShipments|colRecords)

	return AppendResult{AddedCount: added}, nil
}

// RemoveFromRecord detaches one shipment from a truck load, deleting the
// record when it becomes empty. The shipment falls back to its most recent
// other dispatch reference, or back to an unloaded intake line.
func (s *Service) RemoveFromRecord(ctx context.Context, recordID, shipmentID string) (RemoveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.recordIndex(recordID)
	if idx < 0 {
		return RemoveResult{}, ErrRecordNotFound
	}

	rec := &s.records[idx]
	if !rec.strip(shipmentID) {
		return RemoveResult{}, nil
	}

	res := RemoveResult{Removed: true}

	if len(rec.Items) == 0 {
		s.records = slices.Delete(s.records, idx, idx+1)
		res.RecordDeleted = true
	} else {
		RebuildRecordTotals(rec)
	}

	s.restoreShipment(shipmentID)
	s.commit(ctx, colShipments|colRecords)

	return res, nil
}

// DeleteRecord removes a truck load entirely. Every shipment it held is
// restored the same way RemoveFromRecord restores one. The deletion can be
// undone within the undo window.
func (s *Service) DeleteRecord(ctx context.Context, recordID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.recordIndex(recordID)
	if idx < 0 {
		return ErrRecordNotFound
	}

	snap := s.snapshot(UndoDispatchRecord, recordID)

	items := s.records[idx].Items
	s.records = slices.Delete(s.records, idx, idx+1)

	restored := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := restored[it.ShipmentID]; ok {
			continue
		}

		restored[it.ShipmentID] = struct{}{}
		s.restoreShipment(it.ShipmentID)
	}

	s.commit(ctx, colShipments|colRecords)
	s.undo = snap

	return nil
}

// newRecord loads shipments onto a fresh record sharing meta.
func (s *Service) newRecord(shipments []*Shipment, meta DispatchMeta) *DispatchRecord {
	now := s.clock.Now()

	meta.Destination = ""
	if meta.Date == "" {
		meta.Date = now.Format(measure.DateLayout)
	}

	rec := DispatchRecord{
		ID:        s.newID(),
		LoadedAt:  now,
		CreatedAt: now,
		Items:     make([]DispatchItem, 0, len(shipments)),
	}

	for _, sh := range shipments {
		putOnTruck(sh, meta, now)
		rec.Items = append(rec.Items, newDispatchItem(sh, sh.DispatchMeta))
	}

	RebuildRecordTotals(&rec)
	s.records = append(s.records, rec)

	return &s.records[len(s.records)-1]
}

// detachEverywhere strips shipmentID from every record and drops records
// left empty.
func (s *Service) detachEverywhere(shipmentID string) {
	for i := range s.records {
		if s.records[i].strip(shipmentID) {
			RebuildRecordTotals(&s.records[i])
		}
	}

	s.records = slices.DeleteFunc(s.records, func(r DispatchRecord) bool {
		return len(r.Items) == 0
	})
}

// mostRecentReference finds the record that most recently loaded
// shipmentID: greatest LoadedAt (CreatedAt when unset), ties broken by the
// greater record ID.
func (s *Service) mostRecentReference(shipmentID string) (*DispatchRecord, *DispatchItem) {
	var (
		bestRec  *DispatchRecord
		bestItem *DispatchItem
	)

	for i := range s.records {
		r := &s.records[i]

		item := -1
		for j := range r.Items {
			if r.Items[j].ShipmentID == shipmentID {
				item = j
				break
			}
		}

		if item < 0 {
			continue
		}

		if bestRec != nil {
			t, bt := recordTime(r), recordTime(bestRec)
			if t.Before(bt) || (t.Equal(bt) && r.ID < bestRec.ID) {
				continue
			}
		}

		bestRec, bestItem = r, &r.Items[item]
	}

	return bestRec, bestItem
}

// restoreShipment re-derives the load state of shipmentID from the records
// that still reference it.
func (s *Service) restoreShipment(shipmentID string) {
	sh := s.shipment(shipmentID)
	if sh == nil {
		return
	}

	rec, item := s.mostRecentReference(shipmentID)
	if rec == nil {
		takeOffTruck(sh)
		return
	}

	meta := item.DispatchMeta
	if meta.IsEmpty() {
		meta = rec.DispatchMeta
	}

	putOnTruck(sh, meta, recordTime(rec))
}
