package database_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/freightbook/internal/config"
	"github.com/MrJamesThe3rd/freightbook/internal/database"
	"github.com/MrJamesThe3rd/freightbook/internal/storage"
)

func TestOpenStore(t *testing.T) {
	tests := []struct {
		name   string
		driver string
	}{
		{"file", storage.DriverFile},
		{"sqlite", storage.DriverSQLite},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			dir := t.TempDir()

			var cfg config.Config
			cfg.Storage.Driver = tt.driver
			cfg.Storage.DataDir = filepath.Join(dir, "data")
			cfg.Storage.SQLitePath = filepath.Join(dir, "db", "fb.db")

			store, closeFn, err := database.OpenStore(ctx, &cfg)
			require.NoError(t, err)
			defer closeFn()

			_, err = store.Get(ctx, "shipments")
			assert.ErrorIs(t, err, storage.ErrNotFound)

			require.NoError(t, store.Put(ctx, "shipments", []byte(`[{"id":"a"}]`)))

			got, err := store.Get(ctx, "shipments")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"a"}]`, string(got))
		})
	}
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	var cfg config.Config
	cfg.Storage.Driver = "redis"

	_, _, err := database.OpenStore(context.Background(), &cfg)
	assert.Error(t, err)
}
