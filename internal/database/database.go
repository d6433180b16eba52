package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MrJamesThe3rd/freightbook/internal/config"
	"github.com/MrJamesThe3rd/freightbook/internal/storage"
	"github.com/MrJamesThe3rd/freightbook/internal/storage/file"
	"github.com/MrJamesThe3rd/freightbook/internal/storage/postgres"
	"github.com/MrJamesThe3rd/freightbook/internal/storage/sqlite"
)

func New(connStr string) (*sql.DB, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// Store is a blob backend as used by the ledger, the catalog and the
// storage endpoint.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// OpenStore opens the backend selected by STORAGE_DRIVER. The returned
// close function releases whatever the backend holds.
func OpenStore(ctx context.Context, cfg *config.Config) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Storage.Driver {
	case storage.DriverFile:
		s, err := file.New(cfg.Storage.DataDir)
		if err != nil {
			return nil, nil, err
		}

		return s, noop, nil

	case storage.DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.SQLitePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("creating sqlite directory: %w", err)
		}

		s, err := sqlite.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return s, s.Close, nil

	case storage.DriverPostgres:
		db, err := New(cfg.ConnectionString())
		if err != nil {
			return nil, nil, err
		}

		s := postgres.New(db)
		if err := s.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}

		return s, db.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
