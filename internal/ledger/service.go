package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/freightbook/internal/measure"
	"github.com/MrJamesThe3rd/freightbook/internal/storage"
)

// Storage keys of the persisted collections.
const (
	KeyShipments         = "shipments"
	KeyDispatchRecords   = "dispatch_records"
	KeyFinanceRecords    = "finance_records"
	KeyHomeSettleActions = "home_settle_actions"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=ledger
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// collection is a bitmask of the collections a mutation touched.
type collection uint8

const (
	colShipments collection = 1 << iota
	colRecords
	colFinance
	colActions
)

// Service owns the shipment, dispatch, finance and reminder-action
// collections. Callers only ever receive copies.
type Service struct {
	repo       Repository
	logger     *slog.Logger
	clock      Clock
	newID      func() string
	snooze     time.Duration
	undoWindow time.Duration

	mu        sync.Mutex
	shipments []Shipment
	records   []DispatchRecord
	finance   []FinanceRecord
	actions   []HomeSettleActionRecord
	undo      *undoSnapshot
}

type Option func(*Service)

func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithSnoozeDuration(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.snooze = d
		}
	}
}

func WithUndoWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.undoWindow = d
		}
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		logger:     slog.Default(),
		clock:      systemClock,
		newID:      uuid.NewString,
		snooze:     defaultSnoozeDuration,
		undoWindow: defaultUndoWindow,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Load reads every collection from the repository and repairs whatever
// drifted while it was stored. Missing collections start empty.
func (s *Service) Load(ctx context.Context) error {
	shipmentData, err := s.read(ctx, KeyShipments)
	if err != nil {
		return err
	}

	recordData, err := s.read(ctx, KeyDispatchRecords)
	if err != nil {
		return err
	}

	financeData, err := s.read(ctx, KeyFinanceRecords)
	if err != nil {
		return err
	}

	actionData, err := s.read(ctx, KeyHomeSettleActions)
	if err != nil {
		return err
	}

	shipments, err := decodeShipments(shipmentData)
	if err != nil {
		return fmt.Errorf("decoding shipments: %w", err)
	}

	records, err := decodeRecords(recordData)
	if err != nil {
		return fmt.Errorf("decoding dispatch records: %w", err)
	}

	finance, err := decodeFinance(financeData)
	if err != nil {
		return fmt.Errorf("decoding finance records: %w", err)
	}

	actions, err := decodeActions(actionData)
	if err != nil {
		return fmt.Errorf("decoding home settle actions: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.shipments = shipments
	s.records = records
	s.finance = finance
	s.actions = actions
	s.undo = nil

	s.normalize(s.clock.Now())
	s.persist(ctx, colShipments|colRecords|colFinance)

	return nil
}

func (s *Service) read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.repo.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", key, err)
	}

	return data, nil
}

// commit finishes a mutation: payment sync runs against the new state and
// the touched collections are written. Any pending undo is superseded.
func (s *Service) commit(ctx context.Context, touched collection) {
	s.undo = nil

	finance := ReconcilePaymentIncome(s.shipments, s.finance, s.clock.Now(), s.newID)
	if !SameFinanceRecords(finance, s.finance) {
		touched |= colFinance
	}

	s.finance = finance
	s.persist(ctx, touched)
}

// persist writes the touched collections. Failures are logged and
// swallowed; memory stays authoritative until the next successful write.
func (s *Service) persist(ctx context.Context, touched collection) {
	write := func(key string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			s.logger.Error("failed to encode collection", "key", key, "error", err)
			return
		}

		if err := s.repo.Put(ctx, key, data); err != nil {
			s.logger.Warn("failed to persist collection", "key", key, "error", err)
		}
	}

	if touched&colShipments != 0 {
		write(KeyShipments, nonNil(s.shipments))
	}

	if touched&colRecords != 0 {
		write(KeyDispatchRecords, nonNil(s.records))
	}

	if touched&colFinance != 0 {
		write(KeyFinanceRecords, nonNil(s.finance))
	}

	if touched&colActions != 0 {
		write(KeyHomeSettleActions, nonNil(s.actions))
	}
}

func nonNil[T any](v []T) []T {
	if v == nil {
		return []T{}
	}

	return v
}

func (s *Service) shipment(id string) *Shipment {
	for i := range s.shipments {
		if s.shipments[i].ID == id {
			return &s.shipments[i]
		}
	}

	return nil
}

func (s *Service) recordIndex(id string) int {
	return slices.IndexFunc(s.records, func(r DispatchRecord) bool { return r.ID == id })
}

func (s *Service) record(id string) *DispatchRecord {
	if i := s.recordIndex(id); i >= 0 {
		return &s.records[i]
	}

	return nil
}

func (s *Service) Shipments() []Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return nonNil(slices.Clone(s.shipments))
}

func (s *Service) Shipment(id string) (*Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.shipment(id)
	if sh == nil {
		return nil, ErrShipmentNotFound
	}

	return new(*sh), nil
}

func (s *Service) DispatchRecords() []DispatchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return nonNil(cloneRecords(s.records))
}

func (s *Service) DispatchRecord(id string) (*DispatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(id)
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	return new(rec.clone()), nil
}

func (s *Service) FinanceRecords() []FinanceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return nonNil(slices.Clone(s.finance))
}

func (s *Service) HomeSettleActions() []HomeSettleActionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return nonNil(slices.Clone(s.actions))
}

// CreateShipment records a new intake line.
func (s *Service) CreateShipment(ctx context.Context, params ShipmentParams) Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := newShipment(s.newID(), params, s.clock.Now())
	s.shipments = append(s.shipments, sh)
	s.commit(ctx, colShipments)

	return sh
}

// ImportShipments records a batch of intake lines with a single write.
func (s *Service) ImportShipments(ctx context.Context, params []ShipmentParams) []Shipment {
	if len(params) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	created := make([]Shipment, 0, len(params))

	for _, p := range params {
		created = append(created, newShipment(s.newID(), p, now))
	}

	s.shipments = append(s.shipments, created...)
	s.commit(ctx, colShipments)

	return created
}

// UpdateShipment applies an inline edit. A dispatch meta edit on a loaded
// shipment also rewrites its item in the record that currently holds it.
func (s *Service) UpdateShipment(ctx context.Context, id string, patch ShipmentPatch) (*Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.shipment(id)
	if sh == nil {
		return nil, ErrShipmentNotFound
	}

	sh.apply(patch)
	touched := colShipments

	if patch.Dispatch != nil && sh.IsLoaded {
		meta := *patch.Dispatch
		meta.Destination = strings.TrimSpace(meta.Destination)
		sh.DispatchMeta = meta.WithDestination()

		if rec, item := s.mostRecentReference(id); rec != nil {
			item.DispatchMeta = sh.DispatchMeta
			RebuildRecordTotals(rec)
			touched |= colRecords
		}
	}

	s.commit(ctx, touched)

	return new(*sh), nil
}

// SetPaid is the general payment toggle. It always clears any manual
// reminder override and snooze.
func (s *Service) SetPaid(ctx context.Context, id string, paid bool) (*Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sh := s.shipment(id)
	if sh == nil {
		return nil, ErrShipmentNotFound
	}

	markPaid(sh, paid, s.clock.Now())
	s.commit(ctx, colShipments)

	return new(*sh), nil
}

// DeleteShipment removes a shipment, strips it from every dispatch record
// and drops its payment income. It can be undone within the undo window.
func (s *Service) DeleteShipment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.shipments, func(sh Shipment) bool { return sh.ID == id })
	if idx < 0 {
		return ErrShipmentNotFound
	}

	snap := s.snapshot(UndoShipment, id)

	s.shipments = slices.Delete(s.shipments, idx, idx+1)
	s.detachEverywhere(id)

	s.commit(ctx, colShipments|colRecords)
	s.undo = snap

	return nil
}

// FinanceParams is a manually entered finance line.
type FinanceParams struct {
	Type     FinanceType
	Amount   decimal.Decimal
	Date     string
	Summary  string
	Category string
	Note     string
	// SourceType must stay empty; payment rows belong to payment sync.
	SourceType string
}

func (s *Service) CreateFinanceRecord(ctx context.Context, params FinanceParams) (*FinanceRecord, error) {
	if params.SourceType != "" {
		return nil, ErrManualOnly
	}

	if !params.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	if params.Type != FinanceIncome && params.Type != FinanceExpense {
		return nil, fmt.Errorf("unknown finance type %q", params.Type)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()

	date, ok := measure.ParseDate(params.Date)
	if !ok {
		date = now.Format(measure.DateLayout)
	}

	rec := FinanceRecord{
		ID:        s.newID(),
		Type:      params.Type,
		Amount:    params.Amount.Round(2),
		Date:      date,
		Summary:   strings.TrimSpace(params.Summary),
		Category:  strings.TrimSpace(params.Category),
		Note:      params.Note,
		CreatedAt: now,
	}

	s.finance = append(s.finance, rec)
	s.commit(ctx, colFinance)

	return &rec, nil
}

// DeleteFinanceRecord removes a finance line. Removing a payment-sync row
// marks its shipment unpaid, otherwise sync would recreate it. It can be
// undone within the undo window.
func (s *Service) DeleteFinanceRecord(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.finance, func(f FinanceRecord) bool { return f.ID == id })
	if idx < 0 {
		return ErrFinanceNotFound
	}

	snap := s.snapshot(UndoFinanceRecord, id)

	rec := s.finance[idx]
	s.finance = slices.Delete(s.finance, idx, idx+1)
	touched := colFinance

	if rec.IsAuto() {
		if sh := s.paymentSource(rec); sh != nil {
			markPaid(sh, false, s.clock.Now())
			touched |= colShipments
		}
	}

	s.commit(ctx, touched)
	s.undo = snap

	return nil
}

// paymentSource resolves an auto record to its shipment the same way
// payment sync does.
func (s *Service) paymentSource(f FinanceRecord) *Shipment {
	if f.SourceShipmentID != "" {
		return s.shipment(f.SourceShipmentID)
	}

	if f.SourceSerialNo == "" {
		return nil
	}

	for i := range s.shipments {
		if s.shipments[i].SerialNo == f.SourceSerialNo {
			return &s.shipments[i]
		}
	}

	return nil
}
