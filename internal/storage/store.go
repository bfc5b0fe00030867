package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// Item is a listed item joined with its category name.
type Item struct {
	ID       int64
	Name     string
	Category string
	Image    string // stored image file name
}

// ItemStore defines the interface for item persistence.
type ItemStore interface {
	AddItem(name, category, image string) (int64, error)
	GetItem(id int64) (*Item, error)
	ListItems() ([]Item, error)
	SearchItems(keyword string) ([]Item, error)
	GetItemImage(id int64) (string, error)
	Close() error
}

// SQLiteStore implements ItemStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if needed) the SQLite database at dbPath.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// Pragmas in the DSN apply to every pooled connection.
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.init(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) init() error {
	categoryQuery := `
	CREATE TABLE IF NOT EXISTS category (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);
	`
	if _, err := s.db.Exec(categoryQuery); err != nil {
		return fmt.Errorf("failed to create category table: %w", err)
	}

	itemsQuery := `
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		category_id INTEGER NOT NULL,
		image TEXT NOT NULL,
		FOREIGN KEY (category_id) REFERENCES category(id)
	);
	`
	if _, err := s.db.Exec(itemsQuery); err != nil {
		return fmt.Errorf("failed to create items table: %w", err)
	}

	return nil
}

// AddItem stores an item, creating its category on first use, and returns
// the new item id.
func (s *SQLiteStore) AddItem(name, category, image string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO category (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, category); err != nil {
		return 0, fmt.Errorf("failed to insert category: %w", err)
	}

	var categoryID int64
	if err := tx.QueryRow("SELECT id FROM category WHERE name = ?", category).Scan(&categoryID); err != nil {
		return 0, fmt.Errorf("failed to query category: %w", err)
	}

	res, err := tx.Exec(
		"INSERT INTO items (name, category_id, image) VALUES (?, ?, ?)",
		name, categoryID, image,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert item: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read item id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit item: %w", err)
	}
	return id, nil
}

// GetItem retrieves an item by id.
// Returns nil, nil if the item doesn't exist.
func (s *SQLiteStore) GetItem(id int64) (*Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var item Item
	err := s.db.QueryRow(`
		SELECT items.id, items.name, category.name, items.image
		FROM items
		INNER JOIN category ON items.category_id = category.id
		WHERE items.id = ?
	`, id).Scan(&item.ID, &item.Name, &item.Category, &item.Image)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item: %w", err)
	}

	return &item, nil
}

// ListItems returns all items in insertion order.
func (s *SQLiteStore) ListItems() ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT items.id, items.name, category.name, items.image
		FROM items
		INNER JOIN category ON items.category_id = category.id
		ORDER BY items.id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// SearchItems returns items whose name contains keyword.
func (s *SQLiteStore) SearchItems(keyword string) ([]Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT items.id, items.name, category.name, items.image
		FROM items
		INNER JOIN category ON items.category_id = category.id
		WHERE items.name LIKE ?
		ORDER BY items.id
	`, "%"+keyword+"%")
	if err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	defer rows.Close()

	return scanItems(rows)
}

// GetItemImage returns the stored image file name of an item.
// Returns empty string if the item doesn't exist.
func (s *SQLiteStore) GetItemImage(id int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var image string
	err := s.db.QueryRow("SELECT image FROM items WHERE id = ?", id).Scan(&image)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query item image: %w", err)
	}
	return image, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Image); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

var _ ItemStore = (*SQLiteStore)(nil)
