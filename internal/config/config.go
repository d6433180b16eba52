package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/freightbook/internal/storage"
)

type Config struct {
	App struct {
		Name     string `envconfig:"APP_NAME" default:"物流台账"`
		Host     string `envconfig:"HOST" default:"127.0.0.1"`
		Port     int    `envconfig:"PORT" default:"5173"`
		Timezone string `envconfig:"TIMEZONE" default:"Local"`
	}

	Storage struct {
		Driver     string `envconfig:"STORAGE_DRIVER" default:"file"`
		DataDir    string `envconfig:"DATA_DIR" default:"data"`
		SQLitePath string `envconfig:"SQLITE_PATH" default:"data/freightbook.db"`
	}

	DB struct {
		Host     string `envconfig:"DB_HOST" default:"localhost"`
		Port     int    `envconfig:"DB_PORT" default:"5432"`
		User     string `envconfig:"DB_USER" default:"postgres"`
		Password string `envconfig:"DB_PASSWORD" default:""`
		Name     string `envconfig:"DB_NAME" default:"freightbook"`
	}

	Server struct {
		Timeout     time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		WebDir      string        `envconfig:"WEB_DIR"`
		CORSOrigins []string      `envconfig:"CORS_ORIGINS"`
		BodyLimit   int64         `envconfig:"BODY_LIMIT" default:"8388608"`
	}

	Ledger struct {
		SnoozeDuration time.Duration `envconfig:"SNOOZE_DURATION" default:"1h"`
		UndoWindow     time.Duration `envconfig:"UNDO_WINDOW" default:"10s"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.App.Host, c.App.Port)
}

// Location resolves TIMEZONE. "Local" and the empty string mean the host
// zone.
func (c *Config) Location() (*time.Location, error) {
	if c.App.Timezone == "" || strings.EqualFold(c.App.Timezone, "local") {
		return time.Local, nil
	}

	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.App.Timezone, err)
	}

	return loc, nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	switch cfg.Storage.Driver {
	case storage.DriverFile, storage.DriverPostgres, storage.DriverSQLite:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	return &cfg, nil
}
