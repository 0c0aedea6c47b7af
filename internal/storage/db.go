package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"plantshop/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := New(conn)
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

// New wraps an existing connection without touching the schema.
func New(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS items (
  id TEXT PRIMARY KEY,
  position INTEGER NOT NULL,
  name TEXT NOT NULL,
  price REAL NOT NULL,
  image TEXT NOT NULL,
  description TEXT NOT NULL,
  category TEXT NOT NULL,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_items_position ON items(position);
CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);

CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS category_items (
  categoryId TEXT NOT NULL,
  itemId TEXT NOT NULL,
  position INTEGER NOT NULL,
  PRIMARY KEY(categoryId, itemId)
);

CREATE TABLE IF NOT EXISTS item_details (
  id TEXT PRIMARY KEY,
  raw_json TEXT NOT NULL,
  fetchedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// ReplaceItems swaps the whole cached listing for items, keeping their order.
func (d *DB) ReplaceItems(items []internal.StoredItem) error {
	return d.inTx(func(tx *sql.Tx) error { return replaceItems(tx, items) })
}

// ReplaceCatalog swaps items, categories and category membership in a single
// transaction. Membership rows of categories missing from categories are
// removed too.
func (d *DB) ReplaceCatalog(items []internal.StoredItem, categories []internal.Category, members map[string][]string) error {
	return d.inTx(func(tx *sql.Tx) error {
		if err := replaceItems(tx, items); err != nil {
			return err
		}
		if err := replaceCategories(tx, categories); err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM category_items`); err != nil {
			return err
		}
		for _, c := range categories {
			if err := insertCategoryItems(tx, c.ID, members[c.ID]); err != nil {
				return fmt.Errorf("category %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

func (d *DB) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceItems(tx *sql.Tx, items []internal.StoredItem) error {
	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
INSERT INTO items (id, position, name, price, image, description, category, raw_json, lastSeenAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO NOTHING
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, it := range items {
		if _, err := stmt.Exec(it.ID, i, it.Name, it.Price, it.Image, it.Description, it.Category, it.RawJSON); err != nil {
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	return nil
}

const itemColumns = `i.id, i.name, i.price, i.image, i.description, i.category, i.raw_json`

func scanItems(rows *sql.Rows) ([]internal.StoredItem, error) {
	defer rows.Close()

	var out []internal.StoredItem
	for rows.Next() {
		var it internal.StoredItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Price, &it.Image, &it.Description, &it.Category, &it.RawJSON); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (d *DB) ListItems() ([]internal.StoredItem, error) {
	rows, err := d.conn.Query(`SELECT ` + itemColumns + ` FROM items i ORDER BY i.position`)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (d *DB) CountItems() (int, error) {
	var n int
	err := d.conn.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

// GetItem returns nil when the id is not cached.
func (d *DB) GetItem(id string) (*internal.StoredItem, error) {
	var it internal.StoredItem
	err := d.conn.QueryRow(`SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id).Scan(
		&it.ID, &it.Name, &it.Price, &it.Image, &it.Description, &it.Category, &it.RawJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (d *DB) ReplaceCategories(categories []internal.Category) error {
	return d.inTx(func(tx *sql.Tx) error { return replaceCategories(tx, categories) })
}

func replaceCategories(tx *sql.Tx, categories []internal.Category) error {
	if _, err := tx.Exec(`DELETE FROM categories`); err != nil {
		return err
	}
	for i, c := range categories {
		if _, err := tx.Exec(`
INSERT INTO categories (id, name, position) VALUES (?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name
`, c.ID, c.Name, i); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) ListCategories() ([]internal.Category, error) {
	rows, err := d.conn.Query(`SELECT id, name FROM categories ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Category
	for rows.Next() {
		var c internal.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceCategoryItems records which cached items a category listing
// returned, in order. The items themselves must already be cached.
func (d *DB) ReplaceCategoryItems(categoryID string, itemIDs []string) error {
	return d.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM category_items WHERE categoryId = ?`, categoryID); err != nil {
			return err
		}
		return insertCategoryItems(tx, categoryID, itemIDs)
	})
}

func insertCategoryItems(tx *sql.Tx, categoryID string, itemIDs []string) error {
	for i, id := range itemIDs {
		if _, err := tx.Exec(`
INSERT INTO category_items (categoryId, itemId, position) VALUES (?, ?, ?)
ON CONFLICT(categoryId, itemId) DO NOTHING
`, categoryID, id, i); err != nil {
			return err
		}
	}
	return nil
}

func (d *DB) ListCategoryItems(categoryID string) ([]internal.StoredItem, error) {
	rows, err := d.conn.Query(`
SELECT `+itemColumns+`
FROM category_items ci
JOIN items i ON i.id = ci.itemId
WHERE ci.categoryId = ?
ORDER BY ci.position
`, categoryID)
	if err != nil {
		return nil, err
	}
	return scanItems(rows)
}

func (d *DB) UpsertItemDetail(id, rawJSON string) error {
	_, err := d.conn.Exec(`
INSERT INTO item_details (id, raw_json) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET raw_json = excluded.raw_json, fetchedAt = CURRENT_TIMESTAMP
`, id, rawJSON)
	return err
}

// GetItemDetail returns nil when no detail record was cached for id.
func (d *DB) GetItemDetail(id string) (*string, error) {
	var raw string
	err := d.conn.QueryRow(`SELECT raw_json FROM item_details WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &raw, nil
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
