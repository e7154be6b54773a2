package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

// ErrNotFound is returned when a key does not exist in a table.
var ErrNotFound = errors.New("key not found")

// DB is a libSQL-backed database holding any number of named key/value
// tables. All tables share a single tkv relation; each write commits
// before returning (autocommit + WAL).
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the key/value database at path. The
// parent directory is created with mode 0700 since the database may hold
// encrypted secret material.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("libsql", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Some PRAGMAs return rows, so QueryRow instead of Exec.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS tkv (
			table_name TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL,
			UNIQUE (table_name, key) ON CONFLICT REPLACE
		)`,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tkv table: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error { return d.db.Close() }

// Table returns a view of the named key/value table.
func (d *DB) Table(name string) *KV {
	return &KV{db: d.db, table: name}
}

// KV is a durable string-to-string map scoped by a table name.
type KV struct {
	db    *sql.DB
	table string
}

// Item is one key/value pair from a table enumeration.
type Item struct {
	Key   string
	Value string
}

// Get returns the value stored under key, or ErrNotFound.
func (kv *KV) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := kv.db.QueryRowContext(ctx,
		`SELECT value FROM tkv WHERE table_name = ? AND key = ?`,
		kv.table, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// Set upserts value under key. Replace-on-conflict; the write is durable
// when Set returns.
func (kv *KV) Set(ctx context.Context, key, value string) error {
	_, err := kv.db.ExecContext(ctx,
		`INSERT INTO tkv (table_name, key, value) VALUES (?, ?, ?)
		 ON CONFLICT (table_name, key) DO UPDATE SET value = excluded.value`,
		kv.table, key, value,
	)
	return err
}

// Delete removes key from the table. Deleting an absent key is a no-op.
func (kv *KV) Delete(ctx context.Context, key string) error {
	_, err := kv.db.ExecContext(ctx,
		`DELETE FROM tkv WHERE table_name = ? AND key = ?`,
		kv.table, key,
	)
	return err
}

// Contains reports whether key exists in the table.
func (kv *KV) Contains(ctx context.Context, key string) (bool, error) {
	var one int
	err := kv.db.QueryRowContext(ctx,
		`SELECT 1 FROM tkv WHERE table_name = ? AND key = ?`,
		kv.table, key,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// Keys returns every key in the table.
func (kv *KV) Keys(ctx context.Context) ([]string, error) {
	rows, err := kv.db.QueryContext(ctx,
		`SELECT key FROM tkv WHERE table_name = ?`, kv.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Values returns every value in the table.
func (kv *KV) Values(ctx context.Context) ([]string, error) {
	rows, err := kv.db.QueryContext(ctx,
		`SELECT value FROM tkv WHERE table_name = ?`, kv.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// Items returns every (key, value) pair in the table.
func (kv *KV) Items(ctx context.Context) ([]Item, error) {
	rows, err := kv.db.QueryContext(ctx,
		`SELECT key, value FROM tkv WHERE table_name = ?`, kv.table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.Key, &it.Value); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
