package ledger_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
	"github.com/MrJamesThe3rd/freightbook/internal/storage"
)

func TestService_CreateShipment(t *testing.T) {
	tests := []struct {
		name       string
		params     ledger.ShipmentParams
		wantAmount string
		wantDate   string
		wantUnit   measure.Unit
		overridden bool
	}{
		{
			name:       "ComputedAmount",
			params:     ledger.ShipmentParams{Date: "2024/3/1", Quantity: 3, UnitPrice: dec("0.335")},
			wantAmount: "1.01",
			wantDate:   "2024-03-01",
			wantUnit:   measure.UnitPiece,
		},
		{
			name:       "OverriddenAmount",
			params:     ledger.ShipmentParams{Quantity: 3, UnitPrice: dec("10"), Amount: new(dec("25")), MeasureUnit: measure.UnitWeight},
			wantAmount: "25",
			wantDate:   "2024-03-15",
			wantUnit:   measure.UnitWeight,
			overridden: true,
		},
		{
			name:       "NegativeClamped",
			params:     ledger.ShipmentParams{Date: "bogus", Quantity: -4, UnitPrice: dec("-2")},
			wantAmount: "0",
			wantDate:   "2024-03-15",
			wantUnit:   measure.UnitPiece,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)

			got := f.create(t, tt.params)

			assert.NotEmpty(t, got.ID)
			assert.Equal(t, ledger.ShipmentReceive, got.Type)
			assert.False(t, got.IsLoaded)
			assert.False(t, got.IsPaid)
			assert.True(t, got.Amount.Equal(dec(tt.wantAmount)), got.Amount.String())
			assert.Equal(t, tt.wantDate, got.Date)
			assert.Equal(t, tt.wantUnit, got.MeasureUnit)
			assert.Equal(t, tt.overridden, got.AmountOverridden)
		})
	}
}

func TestService_UnitPriceKeepsPrecision(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]any{
		ledger.KeyShipments: []map[string]any{
			{"id": "s1", "date": "2024-03-01", "quantity": 3, "unitPrice": "0.335", "amount": "1.01"},
		},
	})

	s1 := f.get(t, "s1")
	assert.Equal(t, "0.335", s1.UnitPrice.String())
	assert.True(t, s1.Amount.Equal(dec("1.01")), s1.Amount.String())
	assert.False(t, s1.AmountOverridden)

	got, err := f.svc.UpdateShipment(ctx, "s1", ledger.ShipmentPatch{UnitPrice: new(dec("0.125")), Quantity: new(7.0)})
	require.NoError(t, err)
	assert.Equal(t, "0.125", got.UnitPrice.String())
	assert.True(t, got.Amount.Equal(dec("0.88")), got.Amount.String())
}

func TestService_UpdateShipmentResetAmount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	a := f.create(t, ledger.ShipmentParams{Quantity: 2, UnitPrice: dec("10"), Amount: new(dec("5"))})

	got, err := f.svc.UpdateShipment(ctx, a.ID, ledger.ShipmentPatch{Quantity: new(4.0)})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("5")))

	got, err = f.svc.UpdateShipment(ctx, a.ID, ledger.ShipmentPatch{ResetAmount: true})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(dec("40")))
	assert.False(t, got.AmountOverridden)

	_, err = f.svc.UpdateShipment(ctx, "missing", ledger.ShipmentPatch{})
	assert.ErrorIs(t, err, ledger.ErrShipmentNotFound)
}

func TestService_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	a := f.create(t, ledger.ShipmentParams{Product: "水泥", Quantity: 1})
	rec, err := f.svc.LoadSingle(ctx, a.ID, truck)
	require.NoError(t, err)

	shipments := f.svc.Shipments()
	shipments[0].Product = "changed"

	records := f.svc.DispatchRecords()
	records[0].Items[0].Product = "changed"

	rec.Items[0].Product = "changed"

	assert.Equal(t, "水泥", f.get(t, a.ID).Product)

	stored, err := f.svc.DispatchRecord(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "水泥", stored.Items[0].Product)
}

func TestService_UndoDeleteShipment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	a := f.create(t, ledger.ShipmentParams{Quantity: 1, UnitPrice: dec("30")})
	b := f.create(t, ledger.ShipmentParams{Quantity: 1, UnitPrice: dec("20")})

	_, err := f.svc.BatchLoad(ctx, []string{a.ID, b.ID}, truck)
	require.NoError(t, err)
	_, err = f.svc.SetPaid(ctx, a.ID, true)
	require.NoError(t, err)

	wantShipments := f.svc.Shipments()
	wantRecords := f.svc.DispatchRecords()
	wantFinance := f.svc.FinanceRecords()

	require.NoError(t, f.svc.DeleteShipment(ctx, a.ID))
	assert.Len(t, f.svc.Shipments(), 1)
	assert.Empty(t, f.svc.FinanceRecords())
	assert.Equal(t, 1, f.svc.DispatchRecords()[0].ItemCount)

	pending, ok := f.svc.PendingUndo()
	require.True(t, ok)
	assert.Equal(t, ledger.UndoShipment, pending.Kind)
	assert.Equal(t, a.ID, pending.TargetID)

	f.clock.advance(5 * time.Second)

	undone, err := f.svc.Undo(ctx)
	require.NoError(t, err)
	assert.True(t, undone)

	assert.Equal(t, wantShipments, f.svc.Shipments())
	assert.Equal(t, wantRecords, f.svc.DispatchRecords())
	assert.Equal(t, wantFinance, f.svc.FinanceRecords())

	undone, err = f.svc.Undo(ctx)
	require.NoError(t, err)
	assert.False(t, undone)
}

func TestService_UndoExpiry(t *testing.T) {
	ctx := context.Background()

	t.Run("WindowElapsed", func(t *testing.T) {
		f := newFixture(t, nil)
		a := f.create(t, ledger.ShipmentParams{Quantity: 1})

		require.NoError(t, f.svc.DeleteShipment(ctx, a.ID))
		f.clock.advance(10 * time.Second)

		_, ok := f.svc.PendingUndo()
		assert.False(t, ok)

		undone, err := f.svc.Undo(ctx)
		require.NoError(t, err)
		assert.False(t, undone)
		assert.Empty(t, f.svc.Shipments())
	})

	t.Run("SupersededByMutation", func(t *testing.T) {
		f := newFixture(t, nil)
		a := f.create(t, ledger.ShipmentParams{Quantity: 1})

		require.NoError(t, f.svc.DeleteShipment(ctx, a.ID))
		f.create(t, ledger.ShipmentParams{Quantity: 2})

		undone, err := f.svc.Undo(ctx)
		require.NoError(t, err)
		assert.False(t, undone)
		assert.Len(t, f.svc.Shipments(), 1)
	})
}

func TestService_UndoDeleteRecordAndFinance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, legacyDispatchSeed())

	require.NoError(t, f.svc.DeleteRecord(ctx, "r"))

	undone, err := f.svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, undone)
	assert.Len(t, f.svc.DispatchRecords(), 2)
	assert.Equal(t, "R1", f.get(t, "x").TruckNo)
	assert.True(t, f.get(t, "z").IsLoaded)

	_, err = f.svc.SetPaid(ctx, "z", true)
	require.NoError(t, err)

	auto := autoRecords(f.svc.FinanceRecords())
	require.Len(t, auto, 1)
	require.NoError(t, f.svc.DeleteFinanceRecord(ctx, auto[0].ID))
	assert.False(t, f.get(t, "z").IsPaid)

	undone, err = f.svc.Undo(ctx)
	require.NoError(t, err)
	require.True(t, undone)
	assert.True(t, f.get(t, "z").IsPaid)
	assert.Equal(t, auto, autoRecords(f.svc.FinanceRecords()))
}

func TestService_LoadLegacyFormat(t *testing.T) {
	created := time.Date(2023, 12, 1, 8, 0, 0, 0, time.UTC).UnixMilli()

	f := newFixture(t, map[string]any{
		ledger.KeyShipments: json.RawMessage(`{"items": [
			{"_id": "a", "单号": "0001", "receiveDate": "2024/1/5", "factory": "华星", "consignee": "李四",
			 "goods": "水泥", "unit": "吨", "qty": "2.5", "price": "¥40", "freight": 100, "remark": "家结",
			 "paid": true, "createTime": ` + jsonInt(created) + `},
			{"id": "b", "date": "20240106", "quantity": 2, "unitPrice": 10, "amount": 20, "type": "ship",
			 "truckNo": "K1", "driver": "老周"},
			{"quantity": 1, "unitPrice": 5, "isLoaded": false, "type": "ship", "dispatchTruckNo": "stale"}
		]}`),
		ledger.KeyDispatchRecords: json.RawMessage(`[
			{"id": "r1", "loadedAt": "2024-01-06T08:00:00Z", "items": [
				{"shipmentId": "b", "quantity": 2, "unitPrice": 10, "truckNo": "K1"},
				{"shipmentId": "deleted", "quantity": 9, "unitPrice": 9}
			], "totalAmount": 9999},
			{"id": "r2", "items": [{"shipmentId": "deleted"}]}
		]`),
		ledger.KeyFinanceRecords: json.RawMessage(`[
			{"id": "old-auto", "type": "income", "amount": 1, "sourceType": "shipment_payment", "sourceSerialNo": "0001"},
			{"id": "m1", "type": "expense", "amount": "30", "date": "2024-01-02", "summary": "油费"}
		]`),
	})

	a := f.get(t, "a")
	assert.Equal(t, "0001", a.SerialNo)
	assert.Equal(t, "2024-01-05", a.Date)
	assert.Equal(t, "华星", a.Manufacturer)
	assert.Equal(t, "李四", a.Customer)
	assert.Equal(t, "水泥", a.Product)
	assert.Equal(t, measure.UnitWeight, a.MeasureUnit)
	assert.InDelta(t, 2.5, a.Quantity, 1e-9)
	assert.True(t, a.UnitPrice.Equal(dec("40")))
	assert.True(t, a.Amount.Equal(dec("100")))
	assert.False(t, a.AmountOverridden)
	assert.True(t, a.IsPaid)
	assert.Equal(t, created, a.PaidAt.UnixMilli())
	assert.Equal(t, ledger.ShipmentReceive, a.Type)

	b := f.get(t, "b")
	assert.True(t, b.IsLoaded)
	assert.Equal(t, "车次K1 司机老周", b.Destination)

	shipments := f.svc.Shipments()
	require.Len(t, shipments, 3)
	stale := shipments[2]
	assert.NotEmpty(t, stale.ID)
	assert.False(t, stale.IsLoaded)
	assert.Equal(t, ledger.ShipmentReceive, stale.Type)
	assert.True(t, stale.DispatchMeta.IsEmpty())

	records := f.svc.DispatchRecords()
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].ItemCount)
	assert.True(t, records[0].TotalAmount.Equal(dec("20")))

	finance := f.svc.FinanceRecords()
	require.Len(t, finance, 2)
	assert.Equal(t, "m1", finance[0].ID)
	assert.Equal(t, "old-auto", finance[1].ID)
	assert.Equal(t, "a", finance[1].SourceShipmentID)
	assert.True(t, finance[1].Amount.Equal(dec("100")))
	assert.Equal(t, "运单收款-0001-华星-李四-水泥", finance[1].Summary)

	require.Len(t, f.svc.Reminders(ledger.ReminderFilter{}), 1)
}

func jsonInt(v int64) string {
	data, _ := json.Marshal(v)
	return string(data)
}

func TestService_Load(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *ledger.MockRepository)
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "EmptyStore",
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound).Times(4)
				m.EXPECT().Put(gomock.Any(), gomock.Any(), []byte("[]")).Return(nil).Times(3)
			},
		},
		{
			name: "RepoError",
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().Get(gomock.Any(), ledger.KeyShipments).Return(nil, errors.New("disk error"))
			},
			wantErr: true,
		},
		{
			name: "CorruptCollection",
			setupMock: func(m *ledger.MockRepository) {
				m.EXPECT().Get(gomock.Any(), gomock.Any()).Return([]byte(`"oops"`), nil).Times(4)
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := ledger.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := ledger.NewService(repo, ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
			err := svc.Load(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Empty(t, svc.Shipments())
		})
	}
}

func TestService_PersistenceFailureIsTolerated(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound).AnyTimes()
	repo.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full")).AnyTimes()

	ctx := context.Background()
	svc := ledger.NewService(repo, ledger.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, svc.Load(ctx))

	a := svc.CreateShipment(ctx, ledger.ShipmentParams{Quantity: 2, UnitPrice: dec("15")})

	_, err := svc.SetPaid(ctx, a.ID, true)
	require.NoError(t, err)

	rec, err := svc.LoadSingle(ctx, a.ID, truck)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Len(t, svc.Shipments(), 1)
	assert.Len(t, svc.DispatchRecords(), 1)
	require.Len(t, svc.FinanceRecords(), 1)
	assert.True(t, svc.FinanceRecords()[0].Amount.Equal(dec("30")))
}

func TestService_WritesOnlyTouchedCollections(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := ledger.NewMockRepository(ctrl)
	repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, storage.ErrNotFound).Times(4)
	repo.EXPECT().Put(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(3)

	ctx := context.Background()
	svc := ledger.NewService(repo)
	require.NoError(t, svc.Load(ctx))

	repo.EXPECT().Put(gomock.Any(), ledger.KeyShipments, gomock.Any()).Return(nil)
	a := svc.CreateShipment(ctx, ledger.ShipmentParams{Quantity: 1, UnitPrice: dec("9")})

	repo.EXPECT().Put(gomock.Any(), ledger.KeyShipments, gomock.Any()).Return(nil)
	repo.EXPECT().Put(gomock.Any(), ledger.KeyFinanceRecords, gomock.Any()).Return(nil)
	_, err := svc.SetPaid(ctx, a.ID, true)
	require.NoError(t, err)
}
