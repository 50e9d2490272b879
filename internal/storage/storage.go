// Package storage defines the persistence interface for inventories.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/oboji/internal/models"
)

// ErrMalformed is returned by Load when stored content cannot be decoded.
var ErrMalformed = errors.New("malformed inventory data")

// Storage persists the whole inventory. Save always rewrites the full mapping.
type Storage interface {
	// Load returns the stored inventory, or an empty one when nothing is stored yet.
	Load(ctx context.Context) (*models.Inventory, error)
	Save(ctx context.Context, inv *models.Inventory) error
	// Path returns the on-disk location, for status reporting.
	Path() string
	Close() error
}

// Backend names accepted by Open.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// Open returns the storage for backend ("json" or "sqlite"). An empty backend means json.
func Open(backend, jsonPath, dbPath string) (Storage, error) {
	switch backend {
	case "", BackendJSON:
		return NewJSONFileStorage(jsonPath), nil
	case BackendSQLite:
		return NewSQLiteStorage(dbPath)
	default:
		return nil, errors.New("unknown storage backend: " + backend)
	}
}
