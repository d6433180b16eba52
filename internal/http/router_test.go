package http_test

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/freightbook/internal/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/export"
	apphttp "github.com/MrJamesThe3rd/freightbook/internal/http"
	catalogv1 "github.com/MrJamesThe3rd/freightbook/internal/http/catalog"
	"github.com/MrJamesThe3rd/freightbook/internal/http/dispatch"
	exportv1 "github.com/MrJamesThe3rd/freightbook/internal/http/export"
	"github.com/MrJamesThe3rd/freightbook/internal/http/finance"
	"github.com/MrJamesThe3rd/freightbook/internal/http/health"
	"github.com/MrJamesThe3rd/freightbook/internal/http/importsheet"
	"github.com/MrJamesThe3rd/freightbook/internal/http/reminder"
	"github.com/MrJamesThe3rd/freightbook/internal/http/shipment"
	storagev1 "github.com/MrJamesThe3rd/freightbook/internal/http/storage"
	"github.com/MrJamesThe3rd/freightbook/internal/http/undo"
	"github.com/MrJamesThe3rd/freightbook/internal/importer"
	"github.com/MrJamesThe3rd/freightbook/internal/ledger"
	"github.com/MrJamesThe3rd/freightbook/internal/storage/file"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	now     time.Time
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := file.New(t.TempDir())
	require.NoError(t, err)

	ts := &testServer{t: t, now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}

	n := 0
	ledgerSvc := ledger.NewService(store,
		ledger.WithClock(ledger.ClockFunc(func() time.Time { return ts.now })),
		ledger.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%03d", n)
		}),
		ledger.WithLogger(slog.New(slog.DiscardHandler)),
	)
	require.NoError(t, ledgerSvc.Load(context.Background()))

	catalogSvc := catalog.NewService(store, ledgerSvc)

	ts.handler = apphttp.New(apphttp.Handlers{
		Health:      health.Handler("file", store.Dir()),
		Storage:     storagev1.NewHandler(store, 0, nil),
		ShipmentsV1: shipment.NewHandler(ledgerSvc),
		DispatchV1:  dispatch.NewHandler(ledgerSvc),
		FinanceV1:   finance.NewHandler(ledgerSvc),
		RemindersV1: reminder.NewHandler(ledgerSvc),
		UndoV1:      undo.NewHandler(ledgerSvc),
		ImportV1:    importsheet.NewHandler(importer.NewService(), ledgerSvc, catalogSvc),
		ExportV1:    exportv1.NewHandler(export.NewService(ledgerSvc, time.UTC)),
		CatalogV1:   catalogv1.NewHandler(catalogSvc),
	}, apphttp.Options{})

	return ts
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(ts.t, err)

		rd = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())

	return v
}

type shipmentBody struct {
	ledger.Shipment
	LoadState  string `json:"loadState"`
	HomeSettle bool   `json:"homeSettle"`
}

func TestRouter_Health(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "file", body["driver"])
}

func TestRouter_ShipmentLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/shipments", map[string]any{
		"date": "2024-03-10", "serialNo": "H1", "customer": "张三", "product": "水泥",
		"measureUnit": "件", "quantity": 10, "unitPrice": 5,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[shipmentBody](t, rec)
	assert.True(t, created.Amount.Equal(decimal.NewFromInt(50)))
	assert.Equal(t, "unloaded", created.LoadState)

	rec = ts.do(http.MethodGet, "/api/v1/shipments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]shipmentBody](t, rec), 1)

	rec = ts.do(http.MethodPost, "/api/v1/shipments/"+created.ID+"/load", map[string]any{"dispatchTruckNo": "K7"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	record := decode[ledger.DispatchRecord](t, rec)
	assert.Equal(t, 1, record.ItemCount)
	assert.Equal(t, "K7", record.TruckNo)

	rec = ts.do(http.MethodPost, "/api/v1/shipments/"+created.ID+"/load", map[string]any{})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodPut, "/api/v1/shipments/"+created.ID+"/paid", map[string]any{"paid": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/finance", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	finance := decode[[]ledger.FinanceRecord](t, rec)
	require.Len(t, finance, 1)
	assert.Equal(t, ledger.SourceShipmentPayment, finance[0].SourceType)
	assert.True(t, finance[0].Amount.Equal(decimal.NewFromInt(50)))

	rec = ts.do(http.MethodDelete, "/api/v1/dispatch/"+record.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/shipments/"+created.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "unloaded", decode[shipmentBody](t, rec).LoadState)

	rec = ts.do(http.MethodGet, "/api/v1/undo", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["pending"])

	rec = ts.do(http.MethodPost, "/api/v1/undo", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = ts.do(http.MethodGet, "/api/v1/shipments/"+created.ID, nil)
	assert.Equal(t, "loaded", decode[shipmentBody](t, rec).LoadState)

	rec = ts.do(http.MethodPost, "/api/v1/undo", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_ShipmentErrors(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{"get missing", http.MethodGet, "/api/v1/shipments/nope", nil, http.StatusNotFound},
		{"delete missing", http.MethodDelete, "/api/v1/shipments/nope", nil, http.StatusNotFound},
		{"unload missing", http.MethodPost, "/api/v1/shipments/nope/unload", nil, http.StatusNotFound},
		{"negative quantity", http.MethodPost, "/api/v1/shipments", map[string]any{"quantity": -1}, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/v1/shipments", map[string]any{"date": "soon"}, http.StatusBadRequest},
		{"patch missing", http.MethodPatch, "/api/v1/shipments/nope", map[string]any{"note": "x"}, http.StatusNotFound},
		{"dispatch missing", http.MethodGet, "/api/v1/dispatch/nope", nil, http.StatusNotFound},
		{"batch without ids", http.MethodPost, "/api/v1/dispatch/batch", map[string]any{}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestRouter_BatchLoadAndItems(t *testing.T) {
	ts := newTestServer(t)

	var ids []string

	for _, product := range []string{"水泥", "钢管"} {
		rec := ts.do(http.MethodPost, "/api/v1/shipments", map[string]any{
			"date": "2024-03-10", "product": product, "quantity": 2, "unitPrice": 10,
		})
		require.Equal(t, http.StatusCreated, rec.Code)

		ids = append(ids, decode[shipmentBody](t, rec).ID)
	}

	rec := ts.do(http.MethodPost, "/api/v1/dispatch/batch", map[string]any{
		"shipmentIds": []string{ids[0], ids[0], "ghost"}, "dispatchDriver": "老王",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	batch := decode[struct {
		UpdatedCount int                    `json:"updatedCount"`
		Record       *ledger.DispatchRecord `json:"record"`
	}](t, rec)
	assert.Equal(t, 1, batch.UpdatedCount)
	require.NotNil(t, batch.Record)

	path := "/api/v1/dispatch/" + batch.Record.ID + "/items"

	rec = ts.do(http.MethodPost, path, map[string]any{"shipmentIds": ids})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[map[string]int](t, rec)["addedCount"])

	rec = ts.do(http.MethodGet, "/api/v1/dispatch/"+batch.Record.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	full := decode[ledger.DispatchRecord](t, rec)
	assert.Equal(t, 2, full.ItemCount)
	assert.True(t, full.TotalAmount.Equal(decimal.NewFromInt(40)))

	rec = ts.do(http.MethodDelete, path+"/"+ids[0], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"removed": true, "recordDeleted": false}, decode[map[string]bool](t, rec))

	rec = ts.do(http.MethodDelete, path+"/"+ids[1], nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"removed": true, "recordDeleted": true}, decode[map[string]bool](t, rec))

	rec = ts.do(http.MethodGet, "/api/v1/dispatch", nil)
	assert.Empty(t, decode[[]ledger.DispatchRecord](t, rec))
}

func TestRouter_Finance(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"manual income", map[string]any{"type": "income", "amount": 999, "date": "2024-03-01", "summary": "其他"}, http.StatusCreated},
		{"source marker", map[string]any{"type": "income", "amount": 1, "sourceType": "shipment_payment"}, http.StatusBadRequest},
		{"zero amount", map[string]any{"type": "expense", "amount": 0}, http.StatusBadRequest},
		{"unknown type", map[string]any{"type": "refund", "amount": 3}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/v1/finance", tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}

	rec := ts.do(http.MethodGet, "/api/v1/finance?type=expense", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]ledger.FinanceRecord](t, rec))

	rec = ts.do(http.MethodDelete, "/api/v1/finance/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Reminders(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/shipments", map[string]any{
		"date": "2024-01-10", "customer": "张三", "quantity": 3, "unitPrice": 30, "note": "家结",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	created := decode[shipmentBody](t, rec)
	assert.True(t, created.HomeSettle)

	rec = ts.do(http.MethodGet, "/api/v1/reminders?active=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decode[[]ledger.Reminder](t, rec), 1)

	rec = ts.do(http.MethodPost, "/api/v1/reminders/"+created.ID+"/snooze", nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, ledger.ActionSnooze, decode[ledger.HomeSettleActionRecord](t, rec).ActionType)

	rec = ts.do(http.MethodGet, "/api/v1/reminders?active=true", nil)
	assert.Empty(t, decode[[]ledger.Reminder](t, rec))

	rec = ts.do(http.MethodGet, "/api/v1/reminders/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	stats := decode[ledger.ReminderStats](t, rec)
	assert.Equal(t, 1, stats.Total)
	assert.Equal(t, 1, stats.Snoozed)
	assert.True(t, stats.OutstandingDebt.Equal(decimal.NewFromInt(90)))

	rec = ts.do(http.MethodGet, "/api/v1/reminders/actions", nil)
	assert.Len(t, decode[[]ledger.HomeSettleActionRecord](t, rec), 1)

	rec = ts.do(http.MethodPost, "/api/v1/reminders/nope/paid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (io.Reader, string) {
	t.Helper()

	var buf bytes.Buffer

	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}

	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)

	_, err = io.WriteString(fw, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestRouter_ImportWithCatalog(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/catalog", map[string]any{
		"customer": "李四", "product": "钢管", "unitPrice": 7, "route": "宁波",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/v1/catalog/suggest?customer=李四&product=钢管", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode[map[string]any](t, rec)["found"])

	const sheet = "日期,客户,品名,数量\n2024-03-01,李四,钢管,3\n"

	body, contentType := multipartBody(t, map[string]string{"preview": "true"}, "in.csv", sheet)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import", body)
	req.Header.Set("Content-Type", contentType)

	preview := httptest.NewRecorder()
	ts.handler.ServeHTTP(preview, req)
	require.Equal(t, http.StatusOK, preview.Code, preview.Body.String())
	assert.Contains(t, preview.Body.String(), "宁波")

	rec = ts.do(http.MethodGet, "/api/v1/shipments", nil)
	assert.Empty(t, decode[[]shipmentBody](t, rec))

	body, contentType = multipartBody(t, nil, "in.csv", sheet)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", body)
	req.Header.Set("Content-Type", contentType)

	imported := httptest.NewRecorder()
	ts.handler.ServeHTTP(imported, req)
	require.Equal(t, http.StatusCreated, imported.Code, imported.Body.String())

	result := decode[struct {
		Imported  int               `json:"imported"`
		Shipments []ledger.Shipment `json:"shipments"`
	}](t, imported)
	require.Equal(t, 1, result.Imported)
	assert.True(t, result.Shipments[0].Amount.Equal(decimal.NewFromInt(21)))
	assert.Equal(t, "宁波", result.Shipments[0].Route)

	body, contentType = multipartBody(t, map[string]string{"format": "pdf"}, "in.pdf", sheet)
	req = httptest.NewRequest(http.MethodPost, "/api/v1/import", body)
	req.Header.Set("Content-Type", contentType)

	bad := httptest.NewRecorder()
	ts.handler.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestRouter_ExportDownload(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/api/v1/shipments", map[string]any{"date": "2024-03-10", "quantity": 1, "unitPrice": 5})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/export/download", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	require.NoError(t, err)

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"freightbook.xlsx", "reminders.txt"}, names)

	rec = ts.do(http.MethodPost, "/api/v1/export", map[string]any{"start_date": "someday"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/api/v1/export", map[string]any{"start_date": "2024/03/01"})
	require.Equal(t, http.StatusOK, rec.Code)

	meta := decode[map[string]string](t, rec)
	assert.Equal(t, "2024-03-01", meta["start_date"])
	assert.True(t, strings.HasPrefix(meta["reminder_digest"], "暂无"))
}
