package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperjump/oboji/internal/models"
)

const jsonIndent = "    "

// JSONFileStorage keeps the inventory in a single JSON file.
// Writes go to a temp file in the same directory, then replace the target by rename.
type JSONFileStorage struct {
	path string
}

// NewJSONFileStorage returns a storage backed by the file at path. The file need not exist.
func NewJSONFileStorage(path string) *JSONFileStorage {
	return &JSONFileStorage{path: path}
}

// Path returns the file path.
func (s *JSONFileStorage) Path() string { return s.path }

// Load reads the file. A missing or empty file yields an empty inventory;
// undecodable content yields an error wrapping ErrMalformed.
func (s *JSONFileStorage) Load(_ context.Context) (*models.Inventory, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.NewInventory(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read inventory: %w", err)
	}
	if len(data) == 0 {
		return models.NewInventory(), nil
	}
	inv := models.NewInventory()
	if err := json.Unmarshal(data, inv); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, s.path, err)
	}
	return inv, nil
}

// Save writes the whole inventory with 4-space indentation.
func (s *JSONFileStorage) Save(_ context.Context, inv *models.Inventory) error {
	data, err := json.MarshalIndent(inv, "", jsonIndent)
	if err != nil {
		return fmt.Errorf("encode inventory: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create inventory directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write inventory: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync inventory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close inventory: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("chmod inventory: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace inventory: %w", err)
	}
	return nil
}

// Close is a no-op; the file is not held open between calls.
func (s *JSONFileStorage) Close() error { return nil }
