package ledger_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/storage/file"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time {
	return c.now
}

func (c *testClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func sequentialIDs(prefix string) func() string {
	n := 0

	return func() string {
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

type fixture struct {
	svc   *ledger.Service
	store *file.Store
	clock *testClock
}

// newFixture builds a service over a temporary file store seeded with the
// given collections and loads it.
func newFixture(t *testing.T, seed map[string]any) *fixture {
	t.Helper()

	store, err := file.New(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	for key, v := range seed {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		require.NoError(t, store.Put(ctx, key, data))
	}

	clock := &testClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	svc := ledger.NewService(store,
		ledger.WithClock(clock),
		ledger.WithIDGenerator(sequentialIDs("id")),
		ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	require.NoError(t, svc.Load(ctx))

	return &fixture{svc: svc, store: store, clock: clock}
}

func (f *fixture) create(t *testing.T, p ledger.ShipmentParams) ledger.Shipment {
	t.Helper()
	return f.svc.CreateShipment(context.Background(), p)
}

func (f *fixture) get(t *testing.T, id string) ledger.Shipment {
	t.Helper()

	sh, err := f.svc.Shipment(id)
	require.NoError(t, err)

	return *sh
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func autoRecords(records []ledger.FinanceRecord) []ledger.FinanceRecord {
	var out []ledger.FinanceRecord

	for _, r := range records {
		if r.IsAuto() {
			out = append(out, r)
		}
	}

	return out
}

// requireDispatchInvariants checks that no record is empty and every item
// points at a live shipment.
func requireDispatchInvariants(t *testing.T, svc *ledger.Service) {
	t.Helper()

	live := make(map[string]bool)
	for _, s := range svc.Shipments() {
		live[s.ID] = true
	}

	for _, r := range svc.DispatchRecords() {
		require.NotEmpty(t, r.Items, "record %s is empty", r.ID)
		require.Equal(t, len(r.Items), r.ItemCount)

		for _, it := range r.Items {
			require.True(t, live[it.ShipmentID], "record %s holds orphan %s", r.ID, it.ShipmentID)
		}
	}
}
