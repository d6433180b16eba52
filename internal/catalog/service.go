package catalog

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/storage"
)

// KeyOverrides is the storage key of the user's pinned profiles.
const KeyOverrides = "catalog_overrides"

var ErrProductRequired = errors.New("product is required")

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// History supplies the shipments the index learns from.
type History interface {
	Shipments() []ledger.Shipment
}

type Service struct {
	repo    Repository
	history History

	mu        sync.Mutex
	overrides []Override
	loaded    bool
}

func NewService(repo Repository, history History) *Service {
	return &Service{repo: repo, history: history}
}

// Build layers the built-in catalog, shipment history and overrides into an
// index. Later layers win: among shipments the latest by date, then
// creation time, wins.
func Build(shipments []ledger.Shipment, overrides []Override) *Index {
	ix := newIndex()

	for _, b := range builtin {
		ix.product[newKey("", "", b.product)] = Profile{MeasureUnit: b.unit, Source: SourceBuiltin}
	}

	ordered := slices.Clone(shipments)
	slices.SortStableFunc(ordered, func(a, b ledger.Shipment) int {
		return cmp.Or(cmp.Compare(a.Date, b.Date), a.CreatedAt.Compare(b.CreatedAt))
	})

	for _, s := range ordered {
		ix.put(s.Manufacturer, s.Customer, s.Product, Profile{
			UnitPrice:   s.UnitPrice,
			MeasureUnit: s.MeasureUnit.OrPiece(),
			Route:       s.Route,
			Phone:       s.Phone,
			Source:      SourceHistory,
		})
	}

	for _, o := range overrides {
		ix.putOverride(o)
	}

	return ix
}

// Suggest returns the profile to pre-fill for q.
func (s *Service) Suggest(ctx context.Context, q Query) (Profile, bool, error) {
	overrides, err := s.Overrides(ctx)
	if err != nil {
		return Profile{}, false, err
	}

	p, ok := Build(s.history.Shipments(), overrides).Lookup(q)

	return p, ok, nil
}

// Fill completes imported rows from the index. Only blank unit prices,
// routes and phones are filled; a row with an explicit amount keeps a zero
// price so its amount stays as entered.
func (s *Service) Fill(ctx context.Context, params []ledger.ShipmentParams) ([]ledger.ShipmentParams, error) {
	overrides, err := s.Overrides(ctx)
	if err != nil {
		return nil, err
	}

	ix := Build(s.history.Shipments(), overrides)
	out := slices.Clone(params)

	for i := range out {
		p := &out[i]

		prof, ok := ix.Lookup(Query{Manufacturer: p.Manufacturer, Customer: p.Customer, Product: p.Product})
		if !ok {
			continue
		}

		if p.UnitPrice.IsZero() && p.Amount == nil {
			p.UnitPrice = prof.UnitPrice
		}

		if p.Route == "" {
			p.Route = prof.Route
		}

		if p.Phone == "" {
			p.Phone = prof.Phone
		}
	}

	return out, nil
}

// Overrides returns the pinned profiles, reading them on first use.
func (s *Service) Overrides(ctx context.Context) ([]Override, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return nil, err
	}

	return slices.Clone(s.overrides), nil
}

// Learn pins a profile, replacing any override with the same key.
func (s *Service) Learn(ctx context.Context, o Override) error {
	if NormalizeKey(o.Product) == "" {
		return ErrProductRequired
	}

	o.MeasureUnit = o.MeasureUnit.OrPiece()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return err
	}

	k := newKey(o.Manufacturer, o.Customer, o.Product)

	idx := slices.IndexFunc(s.overrides, func(e Override) bool {
		return newKey(e.Manufacturer, e.Customer, e.Product) == k
	})
	if idx >= 0 {
		s.overrides[idx] = o
	} else {
		s.overrides = append(s.overrides, o)
	}

	data, err := json.Marshal(s.overrides)
	if err != nil {
		return fmt.Errorf("encoding overrides: %w", err)
	}

	if err := s.repo.Put(ctx, KeyOverrides, data); err != nil {
		return fmt.Errorf("saving overrides: %w", err)
	}

	return nil
}

// Reset drops the cached overrides so the next call re-reads storage.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overrides = nil
	s.loaded = false
}

func (s *Service) load(ctx context.Context) error {
	if s.loaded {
		return nil
	}

	data, err := s.repo.Get(ctx, KeyOverrides)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("loading overrides: %w", err)
	}

	var overrides []Override
	if len(data) > 0 {
		if err := json.Unmarshal(data, &overrides); err != nil {
			return fmt.Errorf("decoding overrides: %w", err)
		}
	}

	s.overrides = overrides
	s.loaded = true

	return nil
}
