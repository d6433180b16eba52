// Package storage holds the contract shared by the JSON blob backends: one
// opaque JSON document per key.
package storage

import (
	"errors"
	"regexp"
)

// ErrNotFound is returned by Get when nothing has been stored under a key.
var ErrNotFound = errors.New("storage key not found")

// ErrInvalidKey is returned for keys outside the allowed alphabet.
var ErrInvalidKey = errors.New("invalid storage key")

var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Driver names accepted by the STORAGE_DRIVER setting.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// ValidKey reports whether key may be used as a storage key. Keys double as
// file names for the file backend, so the alphabet is deliberately narrow.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}
