package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/freightbook/internal/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/measure"
	"github.com/MrJamesThe3rd/freightbook/internal/storage/file"
)

type history []ledger.Shipment

func (h history) Shipments() []ledger.Shipment {
	return h
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "abc 水泥", catalog.NormalizeKey("  ＡＢＣ　 水泥 "))
	assert.Equal(t, "", catalog.NormalizeKey(" \t"))
}

func TestBuild_Lookup(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	shipments := []ledger.Shipment{
		{Manufacturer: "华星", Customer: "李四", Product: "水泥", Date: "2024-03-02", UnitPrice: decimal.NewFromInt(45), MeasureUnit: measure.UnitWeight, Route: "杭州", CreatedAt: day},
		{Manufacturer: "华星", Customer: "李四", Product: "水泥", Date: "2024-03-01", UnitPrice: decimal.NewFromInt(40), MeasureUnit: measure.UnitWeight, Route: "宁波", CreatedAt: day.Add(time.Hour)},
		{Manufacturer: "东方", Customer: "王五", Product: "水泥", Date: "2024-02-01", UnitPrice: decimal.NewFromInt(38), MeasureUnit: measure.UnitWeight},
	}

	overrides := []catalog.Override{
		{Customer: "王五", Product: "瓷砖", UnitPrice: decimal.NewFromInt(3), MeasureUnit: measure.UnitPiece, Phone: "138"},
	}

	ix := catalog.Build(shipments, overrides)

	tests := []struct {
		name      string
		query     catalog.Query
		wantOK    bool
		wantPrice int64
		wantRoute string
		wantSrc   catalog.Source
	}{
		{name: "FullMatchLatestByDate", query: catalog.Query{Manufacturer: "华星", Customer: "李四", Product: "水泥"}, wantOK: true, wantPrice: 45, wantRoute: "杭州", wantSrc: catalog.SourceHistory},
		{name: "CustomerAndProduct", query: catalog.Query{Manufacturer: "新厂", Customer: "王五", Product: "水泥"}, wantOK: true, wantPrice: 38, wantSrc: catalog.SourceHistory},
		{name: "ProductOnlyLatest", query: catalog.Query{Product: "水泥"}, wantOK: true, wantPrice: 45, wantRoute: "杭州", wantSrc: catalog.SourceHistory},
		{name: "OverrideAtCustomerLevel", query: catalog.Query{Customer: "王五", Product: "瓷砖"}, wantOK: true, wantPrice: 3, wantSrc: catalog.SourceOverride},
		{name: "BuiltinFallback", query: catalog.Query{Customer: "李四", Product: "瓷砖"}, wantOK: true, wantPrice: 0, wantSrc: catalog.SourceBuiltin},
		{name: "WidthFolded", query: catalog.Query{Manufacturer: " 华星 ", Customer: "李四", Product: "水泥"}, wantOK: true, wantPrice: 45, wantRoute: "杭州", wantSrc: catalog.SourceHistory},
		{name: "Unknown", query: catalog.Query{Product: "月饼"}},
		{name: "EmptyProduct", query: catalog.Query{Customer: "李四"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ix.Lookup(tt.query)

			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}

			assert.True(t, got.UnitPrice.Equal(decimal.NewFromInt(tt.wantPrice)), got.UnitPrice.String())
			assert.Equal(t, tt.wantRoute, got.Route)
			assert.Equal(t, tt.wantSrc, got.Source)
		})
	}
}

func TestBuild_BlankKeysDoNotShadow(t *testing.T) {
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	ix := catalog.Build([]ledger.Shipment{
		{Product: "钢材", Date: "2024-01-01", UnitPrice: decimal.NewFromInt(20), Route: "旧线", CreatedAt: day},
		{Manufacturer: "华星", Customer: "李四", Product: "钢材", Date: "2024-02-01", UnitPrice: decimal.NewFromInt(25), Route: "新线", CreatedAt: day},
	}, nil)

	got, ok := ix.Lookup(catalog.Query{Product: "钢材"})
	require.True(t, ok)
	assert.Equal(t, catalog.SourceHistory, got.Source)
	assert.Equal(t, "新线", got.Route)
	assert.True(t, got.UnitPrice.Equal(decimal.NewFromInt(25)))

	got, ok = ix.Lookup(catalog.Query{Customer: "王五", Product: "钢材"})
	require.True(t, ok)
	assert.Equal(t, "新线", got.Route)

	got, ok = ix.Lookup(catalog.Query{Product: "木材"})
	require.True(t, ok)
	assert.Equal(t, catalog.SourceBuiltin, got.Source)
	assert.Equal(t, measure.UnitVolume, got.MeasureUnit)
}

func TestService_LearnAndSuggest(t *testing.T) {
	ctx := context.Background()

	store, err := file.New(t.TempDir())
	require.NoError(t, err)

	h := history{{Product: "钢管", Customer: "李四", UnitPrice: decimal.NewFromInt(7), Date: "2024-01-01"}}
	svc := catalog.NewService(store, h)

	got, ok, err := svc.Suggest(ctx, catalog.Query{Customer: "李四", Product: "钢管"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, catalog.SourceHistory, got.Source)

	require.NoError(t, svc.Learn(ctx, catalog.Override{Customer: "李四", Product: "钢管", UnitPrice: decimal.NewFromInt(9)}))
	require.NoError(t, svc.Learn(ctx, catalog.Override{Customer: "李四", Product: "钢管", UnitPrice: decimal.NewFromInt(11)}))

	assert.ErrorIs(t, svc.Learn(ctx, catalog.Override{Customer: "李四"}), catalog.ErrProductRequired)

	reopened := catalog.NewService(store, h)

	overrides, err := reopened.Overrides(ctx)
	require.NoError(t, err)
	require.Len(t, overrides, 1)
	assert.Equal(t, measure.UnitPiece, overrides[0].MeasureUnit)

	got, ok, err = reopened.Suggest(ctx, catalog.Query{Manufacturer: "华星", Customer: "李四", Product: "钢管"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, catalog.SourceOverride, got.Source)
	assert.True(t, got.UnitPrice.Equal(decimal.NewFromInt(11)))
}

func TestService_Fill(t *testing.T) {
	store, err := file.New(t.TempDir())
	require.NoError(t, err)

	h := history{{Customer: "李四", Product: "钢管", UnitPrice: decimal.NewFromInt(7), Route: "宁波", Phone: "139", Date: "2024-01-01"}}
	svc := catalog.NewService(store, h)

	amount := decimal.NewFromInt(50)

	got, err := svc.Fill(context.Background(), []ledger.ShipmentParams{
		{Customer: "李四", Product: "钢管", Quantity: 3},
		{Customer: "李四", Product: "钢管", Quantity: 3, UnitPrice: decimal.NewFromInt(8), Phone: "150"},
		{Customer: "李四", Product: "钢管", Amount: &amount},
		{Customer: "赵六", Product: "木板"},
		{Product: "钢管", Quantity: 1},
	})
	require.NoError(t, err)
	require.Len(t, got, 5)

	assert.True(t, got[0].UnitPrice.Equal(decimal.NewFromInt(7)))
	assert.Equal(t, "宁波", got[0].Route)
	assert.Equal(t, "139", got[0].Phone)

	assert.True(t, got[1].UnitPrice.Equal(decimal.NewFromInt(8)))
	assert.Equal(t, "150", got[1].Phone)

	assert.True(t, got[2].UnitPrice.IsZero())
	assert.Equal(t, "宁波", got[2].Route)

	assert.Empty(t, got[3].Route)

	assert.True(t, got[4].UnitPrice.Equal(decimal.NewFromInt(7)), got[4].UnitPrice.String())
	assert.Equal(t, "宁波", got[4].Route)
}
