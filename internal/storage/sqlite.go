package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/oboji/internal/models"
)

// SQLiteStorage implements Storage using SQLite. Rows carry a sequence number
// so the first-seen order of users and items survives a round trip.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS inventory_items (
		user_id TEXT NOT NULL,
		item TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		seq INTEGER NOT NULL,
		PRIMARY KEY (user_id, item)
	);

	CREATE INDEX IF NOT EXISTS idx_inventory_items_seq ON inventory_items(seq);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string { return s.path }

// Load reads every row in sequence order.
func (s *SQLiteStorage) Load(ctx context.Context) (*models.Inventory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_id, item, quantity FROM inventory_items ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	defer rows.Close()

	inv := models.NewInventory()
	for rows.Next() {
		var userID, item string
		var qty int
		if err := rows.Scan(&userID, &item, &qty); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if err := inv.Set(userID, item, qty); err != nil {
			inv.Dropped++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}
	return inv, nil
}

// Save replaces all rows in one transaction.
func (s *SQLiteStorage) Save(ctx context.Context, inv *models.Inventory) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM inventory_items`); err != nil {
		return fmt.Errorf("clear inventory: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO inventory_items (user_id, item, quantity, seq) VALUES (?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seq := 0
	for _, userID := range inv.Users() {
		for _, it := range inv.Items(userID) {
			if _, err := stmt.ExecContext(ctx, userID, it.Item, it.Quantity, seq); err != nil {
				return fmt.Errorf("insert %s/%s: %w", userID, it.Item, err)
			}
			seq++
		}
	}
	return tx.Commit()
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
